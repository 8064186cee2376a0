// Package api exposes the library over HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/unalkalkan/bookshelf/internal/core"
	"github.com/unalkalkan/bookshelf/internal/library"
	"github.com/unalkalkan/bookshelf/internal/prefs"
)

// Server holds the dependencies of the HTTP handlers
type Server struct {
	app            *core.App
	library        *library.Service
	prefs          *prefs.Store
	maxUploadBytes int64
}

// NewServer creates a Server on top of app
func NewServer(app *core.App) *Server {
	maxMB := app.Config().Server.MaxUploadMB
	if maxMB <= 0 {
		maxMB = 100
	}
	return &Server{
		app:            app,
		library:        app.Library(),
		prefs:          app.Prefs(),
		maxUploadBytes: int64(maxMB) << 20,
	}
}

// Router sets up and returns the main router
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	h := s.app.Health()
	r.Get("/health", h.HealthHandler())
	r.Get("/health/live", h.LivenessHandler())
	r.Get("/health/ready", h.ReadinessHandler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/books", s.handleListBooks)
		r.Post("/books", s.handleUploadBook)
		r.Put("/books/order", s.handleReorderBooks)

		r.Route("/books/{bookID}", func(r chi.Router) {
			r.Get("/", s.handleGetBook)
			r.Delete("/", s.handleDeleteBook)
			r.Get("/file", s.handleDownloadBook)
			r.Put("/status", s.handleSetStatus)
			r.Post("/open", s.handleOpenBook)
			r.Delete("/session", s.handleCloseSession)

			r.Get("/chapters/{index}", s.handleGetChapter)
			r.Get("/chapters/{index}/search", s.handleSearchChapter)

			r.Get("/progress", s.handleGetProgress)
			r.Put("/progress", s.handleSaveProgress)
			r.Delete("/progress", s.handleResetProgress)

			r.Get("/bookmarks", s.handleListBookmarks)
			r.Post("/bookmarks", s.handleAddBookmark)
			r.Delete("/bookmarks/{bookmarkID}", s.handleDeleteBookmark)
		})

		r.Get("/preferences", s.handleGetPreferences)
		r.Put("/preferences", s.handleSavePreferences)
	})

	r.Get("/ws", func(w http.ResponseWriter, r *http.Request) {
		s.app.WsHub().ServeWs(w, r)
	})

	return r
}
