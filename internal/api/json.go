package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/starford/vitrine/internal/apperr"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error string `json:"error"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// writeError maps domain errors to HTTP statuses. Anything unmapped is
// logged and reported as an internal error.
func writeError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.Is(err, apperr.ErrAlreadyExists),
		errors.Is(err, apperr.ErrConflict),
		errors.Is(err, apperr.ErrDuplicateLabel):
		writeJSON(w, http.StatusConflict, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrValidation),
		errors.Is(err, apperr.ErrIncompleteRule):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	default:
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}
