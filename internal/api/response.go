package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/unalkalkan/bookshelf/internal/library"
	"github.com/unalkalkan/bookshelf/internal/parser"
	"github.com/unalkalkan/bookshelf/internal/session"
	"github.com/unalkalkan/bookshelf/internal/timeout"
)

// RespondWithJSON writes payload as JSON with the given status code
func RespondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to marshal response")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

// RespondWithError writes {"error": message}
func RespondWithError(w http.ResponseWriter, code int, message string) {
	RespondWithJSON(w, code, map[string]string{"error": message})
}

// statusFor maps a library or parser error to an HTTP status
func statusFor(err error) int {
	switch {
	case errors.Is(err, parser.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, timeout.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, parser.ErrParse):
		return http.StatusUnprocessableEntity
	case errors.Is(err, parser.ErrChapterNotFound),
		errors.Is(err, library.ErrBookNotFound),
		errors.Is(err, library.ErrBookmarkNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrSessionNotFound),
		errors.Is(err, session.ErrSessionDisposed):
		return http.StatusConflict
	case errors.Is(err, session.ErrMissingSource):
		return http.StatusGone
	case errors.Is(err, library.ErrInvalidStatus):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// respondWithServiceError writes err with its mapped status. Unmapped
// errors are logged and reported generically.
func respondWithServiceError(w http.ResponseWriter, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		log.Printf("Internal error: %v", err)
	}
	RespondWithError(w, code, err.Error())
}
