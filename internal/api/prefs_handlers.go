package api

import (
	"encoding/json"
	"net/http"
)

func (s *Server) handleGetPreferences(w http.ResponseWriter, r *http.Request) {
	RespondWithJSON(w, http.StatusOK, s.prefs.Get())
}

// handleSavePreferences merges the body over the current preferences, so
// a partial update leaves the other fields alone
func (s *Server) handleSavePreferences(w http.ResponseWriter, r *http.Request) {
	current := s.prefs.Get()
	if err := json.NewDecoder(r.Body).Decode(&current); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	saved, err := s.prefs.Put(current)
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to save preferences")
		return
	}
	RespondWithJSON(w, http.StatusOK, saved)
}
