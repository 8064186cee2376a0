// Package core assembles the components shared by the HTTP server and the
// terminal reader.
package core

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/unalkalkan/bookshelf/internal/book"
	"github.com/unalkalkan/bookshelf/internal/db"
	"github.com/unalkalkan/bookshelf/internal/health"
	"github.com/unalkalkan/bookshelf/internal/jobs"
	"github.com/unalkalkan/bookshelf/internal/library"
	"github.com/unalkalkan/bookshelf/internal/parser"
	"github.com/unalkalkan/bookshelf/internal/prefs"
	"github.com/unalkalkan/bookshelf/internal/session"
	"github.com/unalkalkan/bookshelf/internal/storage"
	"github.com/unalkalkan/bookshelf/internal/store"
	"github.com/unalkalkan/bookshelf/internal/websocket"
	"github.com/unalkalkan/bookshelf/pkg/types"
)

// Version is reported by the health endpoints
const Version = "0.3.0"

// maxLiveSessions is the soft limit above which the sessions check degrades
const maxLiveSessions = 32

// App holds the wired application components
type App struct {
	config   *types.Config
	db       *sql.DB
	storage  storage.Adapter
	store    *store.Store
	sessions *session.Manager
	library  *library.Service
	hub      *websocket.Hub
	prefs    *prefs.Store
	health   *health.Handler

	scheduler *jobs.Scheduler
	watcher   *library.Watcher
}

// New opens storage and the database and builds the library on top of them.
// Background work does not start until Start is called.
func New(cfg *types.Config) (*App, error) {
	adapter, err := storage.NewAdapter(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage adapter: %w", err)
	}

	database, err := db.InitDB(cfg.Database.Path)
	if err != nil {
		adapter.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if err := db.RunMigrations(database); err != nil {
		database.Close()
		adapter.Close()
		return nil, fmt.Errorf("failed to run database migrations: %w", err)
	}

	factory := parser.NewFactory(parser.Options{
		EPUB:       epubTimeouts(cfg.Session),
		MOBIEngine: cfg.Parser.MOBIEngine,
	})
	files := book.NewFileRepository(adapter)
	sessions := session.NewManager(factory, files, session.Options{
		ParseTimeout:   millis(cfg.Session.ParseTimeoutMs),
		ChapterTimeout: millis(cfg.Session.ChapterTimeoutMs),
	})

	st := store.New(database)
	hub := websocket.NewHub()
	lib := library.NewService(st, files, sessions, hub)

	healthHandler := health.NewHandler(Version)
	healthHandler.Register("storage", health.StorageCheck(adapter))
	healthHandler.Register("database", health.DatabaseCheck(database))
	healthHandler.Register("sessions", health.SessionsCheck(sessions.Count, maxLiveSessions))

	log.Printf("Core application setup complete (storage: %s, database: %s)", cfg.Storage.Adapter, cfg.Database.Path)
	return &App{
		config:   cfg,
		db:       database,
		storage:  adapter,
		store:    st,
		sessions: sessions,
		library:  lib,
		hub:      hub,
		prefs:    prefs.NewStore(cfg.Prefs.Path),
		health:   healthHandler,
	}, nil
}

// Start launches the websocket hub, the job scheduler and, when a watch
// directory is configured, the inbox watcher
func (a *App) Start() error {
	go a.hub.Run()
	a.scheduler = jobs.StartJobs(a.sessions, a.config.Session)

	if dir := a.config.Import.WatchDir; dir != "" {
		a.watcher = library.NewWatcher(a.library, dir, millis(a.config.Import.DebounceMs))
		if err := a.watcher.Start(); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		log.Printf("Watching %s for new books", dir)
	}
	return nil
}

// Close stops background work, releases every session and closes storage
// and the database
func (a *App) Close() {
	if a.watcher != nil {
		if err := a.watcher.Stop(); err != nil {
			log.Printf("Error stopping watcher: %v", err)
		}
	}
	if a.scheduler != nil {
		a.scheduler.Stop()
	}
	a.sessions.ReleaseAll()
	if err := a.storage.Close(); err != nil {
		log.Printf("Error closing storage: %v", err)
	}
	if err := a.db.Close(); err != nil {
		log.Printf("Error closing database: %v", err)
	}
}

func (a *App) Config() *types.Config      { return a.config }
func (a *App) DB() *sql.DB                { return a.db }
func (a *App) Library() *library.Service  { return a.library }
func (a *App) Sessions() *session.Manager { return a.sessions }
func (a *App) WsHub() *websocket.Hub      { return a.hub }
func (a *App) Prefs() *prefs.Store        { return a.prefs }
func (a *App) Health() *health.Handler    { return a.health }

func epubTimeouts(cfg types.SessionConfig) parser.EPUBTimeouts {
	t := parser.DefaultEPUBTimeouts()
	if cfg.EPUBReadyTimeoutMs > 0 {
		t.Ready = millis(cfg.EPUBReadyTimeoutMs)
	}
	if cfg.EPUBMetaTimeoutMs > 0 {
		t.Metadata = millis(cfg.EPUBMetaTimeoutMs)
	}
	if cfg.EPUBNavTimeoutMs > 0 {
		t.Navigation = millis(cfg.EPUBNavTimeoutMs)
	}
	if cfg.EPUBRenderTimeoutMs > 0 {
		t.Render = millis(cfg.EPUBRenderTimeoutMs)
	}
	return t
}

func millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
