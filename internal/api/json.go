package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/starford/tickler/internal/apperr"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error   string `json:"error" validate:"required"`
	Message string `json:"message,omitempty"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// writeError maps a domain error to its HTTP status. Review failures also
// carry the user-facing notice text.
func writeError(w http.ResponseWriter, err error) {
	var status int
	var code string
	switch {
	case errors.Is(err, apperr.ErrInvalidDate):
		status, code = http.StatusBadRequest, "invalid date"
	case errors.Is(err, apperr.ErrInvalidLine):
		status, code = http.StatusBadRequest, "invalid line"
	case errors.Is(err, apperr.ErrNotFound):
		status, code = http.StatusNotFound, "not found"
	case errors.Is(err, apperr.ErrAlreadyExists):
		status, code = http.StatusConflict, "already exists"
	case errors.Is(err, apperr.ErrMissingCollaborator):
		status, code = http.StatusServiceUnavailable, "date parser unavailable"
	default:
		slog.Error("request failed", slog.String("error", err.Error()))
		status, code = http.StatusInternalServerError, "internal error"
	}
	writeJSON(w, status, errResponse{Error: code, Message: apperr.UserMessage(err)})
}
