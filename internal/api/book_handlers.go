package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/unalkalkan/bookshelf/internal/library"
	"github.com/unalkalkan/bookshelf/internal/parser"
	"github.com/unalkalkan/bookshelf/pkg/types"
)

// handleUploadBook imports the multipart field "file". An optional
// "lastModified" field carries the file's mtime in unix milliseconds.
func (s *Server) handleUploadBook(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			RespondWithError(w, http.StatusRequestEntityTooLarge, "File too large")
			return
		}
		RespondWithError(w, http.StatusBadRequest, "Failed to parse form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "Missing file field")
		return
	}
	defer file.Close()

	if _, err := parser.EnsureFormat(header.Filename); err != nil {
		respondWithServiceError(w, err)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "Failed to read file")
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = parser.MIMEType(header.Filename)
	}
	modTime := time.Now()
	if ms, err := strconv.ParseInt(r.FormValue("lastModified"), 10, 64); err == nil && ms > 0 {
		modTime = time.UnixMilli(ms)
	}

	b, err := s.library.Import(r.Context(), parser.NewBytesSource(header.Filename, mimeType, modTime, data))
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusCreated, b)
}

func (s *Server) handleListBooks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	books, err := s.library.List(r.Context(), library.ParseFilter(q.Get("status")), library.ParseSortBy(q.Get("sort")))
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, map[string]any{
		"books": books,
		"count": len(books),
	})
}

func (s *Server) handleReorderBooks(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		IDs []string `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	books, err := s.library.Reorder(r.Context(), payload.IDs)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, map[string]any{
		"books": books,
		"count": len(books),
	})
}

func (s *Server) handleGetBook(w http.ResponseWriter, r *http.Request) {
	b, err := s.library.Get(r.Context(), chi.URLParam(r, "bookID"))
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, b)
}

func (s *Server) handleDeleteBook(w http.ResponseWriter, r *http.Request) {
	if err := s.library.Remove(r.Context(), chi.URLParam(r, "bookID")); err != nil {
		respondWithServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetStatus(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Status types.BookStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	b, err := s.library.SetStatus(r.Context(), chi.URLParam(r, "bookID"), payload.Status)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, b)
}

// handleDownloadBook serves the raw file as it was imported
func (s *Server) handleDownloadBook(w http.ResponseWriter, r *http.Request) {
	file, err := s.library.File(r.Context(), chi.URLParam(r, "bookID"))
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	contentType := file.Type
	if contentType == "" {
		contentType = parser.MIMEType(file.Name)
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": file.Name}))
	http.ServeContent(w, r, file.Name, file.LastModified, bytes.NewReader(file.Data))
}

func (s *Server) handleOpenBook(w http.ResponseWriter, r *http.Request) {
	opened, err := s.library.Open(r.Context(), chi.URLParam(r, "bookID"))
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, opened)
}

func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	s.library.Close(chi.URLParam(r, "bookID"))
	w.WriteHeader(http.StatusNoContent)
}
