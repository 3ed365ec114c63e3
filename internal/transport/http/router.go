// Package httpapi is the thin HTTP layer. Handlers delegate to the aggregation
// views, the compliance service and the job runner without embedding business
// logic, so transport concerns stay isolated.
package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"coverguard/internal/aggregate"
	"coverguard/internal/audit"
	"coverguard/internal/compliance"
	"coverguard/internal/scheduler"
)

type Handler struct {
	views      *aggregate.Service
	compliance *compliance.Service
	runner     *scheduler.Runner
	auditor    *audit.Service
	log        *slog.Logger
	health     []HealthCheck
}

// HealthCheck is a named readiness probe, one per backing service.
type HealthCheck struct {
	Name  string
	Check func() error
}

type Deps struct {
	Views      *aggregate.Service
	Compliance *compliance.Service
	Runner     *scheduler.Runner
	Auditor    *audit.Service
	Log        *slog.Logger
	Health     []HealthCheck
}

func NewHandler(deps Deps) *Handler {
	h := &Handler{
		views:      deps.Views,
		compliance: deps.Compliance,
		runner:     deps.Runner,
		auditor:    deps.Auditor,
		log:        deps.Log,
		health:     deps.Health,
	}
	if h.log == nil {
		h.log = slog.Default()
	}
	return h
}

// NewRouter wires all endpoints. Job triggers are POSTs so external cron can
// drive them; everything else is read-only.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(h.log))

	r.Get("/healthz", h.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/companies/{companyID}", func(r chi.Router) {
		r.Get("/compliance", h.handleComplianceStats)
		r.Get("/stop-work-risks", h.handleStopWorkRisks)
		r.Get("/pending-responses", h.handlePendingResponses)
		r.Get("/pending-followups", h.handlePendingFollowUps)
		r.Get("/morning-brief", h.handleMorningBrief)
	})

	r.Post("/verifications/{verificationID}/approve", h.handleApproveVerification)
	r.Post("/verifications/{verificationID}/reject", h.handleRejectVerification)

	r.Post("/exceptions/{exceptionID}/approve", h.handleApproveException)
	r.Post("/exceptions/{exceptionID}/resolve", h.handleResolveException)

	r.Post("/jobs/{job}/run", h.handleRunJob)
	r.Get("/audit/recent", h.handleAuditRecent)

	return r
}
