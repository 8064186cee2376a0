package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/unalkalkan/bookshelf/pkg/types"
)

// chapterIndex reads the {index} route parameter
func chapterIndex(r *http.Request) (int, bool) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || index < 0 {
		return 0, false
	}
	return index, true
}

func (s *Server) handleGetChapter(w http.ResponseWriter, r *http.Request) {
	index, ok := chapterIndex(r)
	if !ok {
		RespondWithError(w, http.StatusBadRequest, "Invalid chapter index")
		return
	}

	ch, err := s.library.Chapter(r.Context(), chi.URLParam(r, "bookID"), index)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, ch)
}

func (s *Server) handleSearchChapter(w http.ResponseWriter, r *http.Request) {
	index, ok := chapterIndex(r)
	if !ok {
		RespondWithError(w, http.StatusBadRequest, "Invalid chapter index")
		return
	}
	keyword := strings.TrimSpace(r.URL.Query().Get("q"))
	if keyword == "" {
		RespondWithError(w, http.StatusBadRequest, "Search keyword is required")
		return
	}

	results, err := s.library.Search(r.Context(), chi.URLParam(r, "bookID"), index, keyword)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, map[string]any{
		"results": results,
		"count":   len(results),
	})
}

func (s *Server) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	p, err := s.library.Progress(r.Context(), chi.URLParam(r, "bookID"))
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, p)
}

func (s *Server) handleSaveProgress(w http.ResponseWriter, r *http.Request) {
	var p types.ReadingProgress
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	p.BookID = chi.URLParam(r, "bookID")

	saved, err := s.library.SaveProgress(r.Context(), &p)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, saved)
}

func (s *Server) handleResetProgress(w http.ResponseWriter, r *http.Request) {
	if err := s.library.ResetProgress(r.Context(), chi.URLParam(r, "bookID")); err != nil {
		respondWithServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListBookmarks(w http.ResponseWriter, r *http.Request) {
	bookmarks, err := s.library.Bookmarks(r.Context(), chi.URLParam(r, "bookID"))
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, bookmarks)
}

func (s *Server) handleAddBookmark(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ChapterIndex int `json:"chapterIndex"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.ChapterIndex < 0 {
		RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	bm, err := s.library.AddBookmark(r.Context(), chi.URLParam(r, "bookID"), payload.ChapterIndex)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusCreated, bm)
}

func (s *Server) handleDeleteBookmark(w http.ResponseWriter, r *http.Request) {
	err := s.library.RemoveBookmark(r.Context(), chi.URLParam(r, "bookID"), chi.URLParam(r, "bookmarkID"))
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
