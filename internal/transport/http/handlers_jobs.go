package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"coverguard/internal/scheduler"
)

// handleRunJob triggers one scheduled job by name. The richer result types
// flatten into JSON alongside the shared processed/errors summary.
func (h *Handler) handleRunJob(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var (
		body any
		err  error
	)
	switch job := chi.URLParam(r, "job"); job {
	case scheduler.JobExpirationCheck:
		body, err = h.runner.RunExpirationCheck(ctx)
	case scheduler.JobMorningBrief:
		body, err = h.runner.RunMorningBrief(ctx)
	case scheduler.JobFollowUps:
		body, err = h.runner.RunFollowUps(ctx)
	case scheduler.JobStopWorkAlerts:
		body, err = h.runner.RunStopWorkAlerts(ctx)
	case scheduler.JobExceptionSweep:
		body, err = h.runner.RunExceptionSweep(ctx)
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error":             "not_found",
			"error_description": "unknown job " + job,
		})
		return
	}
	if err != nil {
		h.log.Error("job trigger failed", "error", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, body)
}

func (h *Handler) handleAuditRecent(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(r, "limit", 100)
	if !ok {
		writeBadRequest(w, "limit must be an integer")
		return
	}
	events, err := h.auditor.ListRecent(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	checks := map[string]string{}
	for _, hc := range h.health {
		if err := hc.Check(); err != nil {
			checks[hc.Name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[hc.Name] = "ok"
	}
	writeJSON(w, status, map[string]any{
		"status": http.StatusText(status),
		"checks": checks,
	})
}
