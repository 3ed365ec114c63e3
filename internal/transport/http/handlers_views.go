package httpapi

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

const defaultPendingLimit = 50

func (h *Handler) handleComplianceStats(w http.ResponseWriter, r *http.Request) {
	companyID := chi.URLParam(r, "companyID")
	stats, err := h.views.ComplianceStats(r.Context(), companyID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) handleStopWorkRisks(w http.ResponseWriter, r *http.Request) {
	companyID := chi.URLParam(r, "companyID")
	risks, err := h.views.StopWorkRisks(r.Context(), companyID, r.URL.Query().Get("exceptions") == "true")
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, risks)
}

func (h *Handler) handlePendingResponses(w http.ResponseWriter, r *http.Request) {
	companyID := chi.URLParam(r, "companyID")
	limit, ok := queryInt(r, "limit", defaultPendingLimit)
	if !ok {
		writeBadRequest(w, "limit must be an integer")
		return
	}
	pending, err := h.views.PendingResponses(r.Context(), companyID, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pending)
}

func (h *Handler) handlePendingFollowUps(w http.ResponseWriter, r *http.Request) {
	companyID := chi.URLParam(r, "companyID")
	minDays, ok := queryInt(r, "minDays", 3)
	if !ok {
		writeBadRequest(w, "minDays must be an integer")
		return
	}
	maxFollowUps, ok := queryInt(r, "maxFollowUps", 3)
	if !ok {
		writeBadRequest(w, "maxFollowUps must be an integer")
		return
	}
	candidates, err := h.views.PendingFollowUps(r.Context(), companyID, minDays, maxFollowUps)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, candidates)
}

func (h *Handler) handleMorningBrief(w http.ResponseWriter, r *http.Request) {
	companyID := chi.URLParam(r, "companyID")
	brief, err := h.views.MorningBrief(r.Context(), companyID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, brief)
}

func queryInt(r *http.Request, key string, fallback int) (int, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return n, true
}
