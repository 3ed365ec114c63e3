package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

type reviewRequest struct {
	ReviewerID string `json:"reviewerId"`
}

func decodeActor(r *http.Request) (string, bool) {
	var req reviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return "", false
	}
	return req.ReviewerID, req.ReviewerID != ""
}

func (h *Handler) handleApproveVerification(w http.ResponseWriter, r *http.Request) {
	actor, ok := decodeActor(r)
	if !ok {
		writeBadRequest(w, "reviewerId is required")
		return
	}
	if err := h.compliance.ApproveVerification(r.Context(), chi.URLParam(r, "verificationID"), actor); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "approved"})
}

func (h *Handler) handleRejectVerification(w http.ResponseWriter, r *http.Request) {
	actor, ok := decodeActor(r)
	if !ok {
		writeBadRequest(w, "reviewerId is required")
		return
	}
	if err := h.compliance.RejectVerification(r.Context(), chi.URLParam(r, "verificationID"), actor); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "rejected"})
}

func (h *Handler) handleApproveException(w http.ResponseWriter, r *http.Request) {
	actor, ok := decodeActor(r)
	if !ok {
		writeBadRequest(w, "reviewerId is required")
		return
	}
	if err := h.compliance.ApproveException(r.Context(), chi.URLParam(r, "exceptionID"), actor); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "active"})
}

func (h *Handler) handleResolveException(w http.ResponseWriter, r *http.Request) {
	actor, ok := decodeActor(r)
	if !ok {
		writeBadRequest(w, "reviewerId is required")
		return
	}
	if err := h.compliance.ResolveException(r.Context(), chi.URLParam(r, "exceptionID"), actor); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "resolved"})
}
