package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"coverguard/internal/compliance"
	"coverguard/internal/storage"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError maps service errors onto the wire envelope. Internal errors omit
// the description so backend details never leak to callers.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error":             "not_found",
			"error_description": err.Error(),
		})
	case errors.Is(err, compliance.ErrInvalidTransition):
		writeJSON(w, http.StatusConflict, map[string]string{
			"error":             "invalid_transition",
			"error_description": err.Error(),
		})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "internal_error",
		})
	}
}

func writeBadRequest(w http.ResponseWriter, description string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{
		"error":             "bad_request",
		"error_description": description,
	})
}
