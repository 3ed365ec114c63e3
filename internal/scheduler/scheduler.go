// Package scheduler holds the five time-triggered notification jobs. Each job
// is a runnable entry point driven by an external trigger: it reads the
// aggregation views, filters through idempotency and escalation rules, invokes
// the external send capability, persists the resulting records, and reports to
// the job run ledger. Item and company failures are isolated; a single bad
// record never aborts a run.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"coverguard/internal/aggregate"
	"coverguard/internal/audit"
	"coverguard/internal/compliance"
	"coverguard/internal/domain"
	"coverguard/internal/idempotency"
	"coverguard/internal/jobrun"
	"coverguard/internal/notify"
	"coverguard/internal/storage"
)

// Job names as recorded in the ledger.
const (
	JobExpirationCheck = "expiration_check"
	JobMorningBrief    = "morning_brief"
	JobFollowUps       = "follow_up_sequence"
	JobStopWorkAlerts  = "stop_work_alerts"
	JobExceptionSweep  = "exception_expiry"
)

// Result is the summary every job entry point returns alongside the ledger
// entry it wrote.
type Result struct {
	Processed int      `json:"processed"`
	Errors    []string `json:"errors"`
}

// FollowUpResult adds the escalation count Job C reports.
type FollowUpResult struct {
	Result
	Escalated int `json:"escalated"`
}

// StopWorkResult adds the SMS count Job D reports.
type StopWorkResult struct {
	Result
	SMSSent int `json:"smsSent"`
}

// Recorder is the audit seam shared with the compliance service.
type Recorder interface {
	Record(ctx context.Context, event audit.Event) error
}

// Runner owns the job entry points. One Runner serves every job; runs of the
// same job are not serialized here; the external trigger must not overlap
// them.
type Runner struct {
	companies      storage.CompanyStore
	users          storage.UserStore
	projects       storage.ProjectStore
	subcontractors storage.SubcontractorStore
	documents      storage.DocumentStore
	verifications  storage.VerificationStore
	communications storage.CommunicationStore
	exceptions     storage.ExceptionStore
	notifications  storage.NotificationStore

	views      *aggregate.Service
	compliance *compliance.Service
	ledger     *jobrun.Ledger
	sender     notify.Sender
	guard      idempotency.Guard
	recorder   Recorder

	log     *slog.Logger
	metrics *Metrics
	tracer  trace.Tracer
	now     func() time.Time
}

// Deps wires a Runner. Guard and Metrics are optional.
type Deps struct {
	Stores     *storage.Stores
	Views      *aggregate.Service
	Compliance *compliance.Service
	Ledger     *jobrun.Ledger
	Sender     notify.Sender
	Guard      idempotency.Guard
	Recorder   Recorder
	Log        *slog.Logger
	Metrics    *Metrics
	Now        func() time.Time
}

func NewRunner(deps Deps) *Runner {
	r := &Runner{
		companies:      deps.Stores.Companies,
		users:          deps.Stores.Users,
		projects:       deps.Stores.Projects,
		subcontractors: deps.Stores.Subcontractors,
		documents:      deps.Stores.Documents,
		verifications:  deps.Stores.Verifications,
		communications: deps.Stores.Communications,
		exceptions:     deps.Stores.Exceptions,
		notifications:  deps.Stores.Notifications,
		views:          deps.Views,
		compliance:     deps.Compliance,
		ledger:         deps.Ledger,
		sender:         deps.Sender,
		guard:          deps.Guard,
		recorder:       deps.Recorder,
		log:            deps.Log,
		metrics:        deps.Metrics,
		tracer:         otel.Tracer("coverguard/scheduler"),
		now:            deps.Now,
	}
	if r.log == nil {
		r.log = slog.Default()
	}
	if r.now == nil {
		r.now = time.Now
	}
	return r
}

// runState folds one run's counters. Jobs mutate it only from the single
// run goroutine; companies are processed sequentially by design.
type runState struct {
	processed int
	escalated int
	smsSent   int
	errors    []string
	metadata  map[string]any
}

func (st *runState) errorf(format string, args ...any) {
	st.errors = append(st.errors, fmt.Sprintf(format, args...))
}

func (st *runState) setMeta(key string, value any) {
	if st.metadata == nil {
		st.metadata = map[string]any{}
	}
	st.metadata[key] = value
}

func (st *runState) result() Result {
	return Result{Processed: st.processed, Errors: st.errors}
}

// run brackets a job body with the ledger protocol. An error returned by the
// body is job-level fatal: the run is marked failed with the cause ahead of
// any accumulated item errors, and the error is re-raised to the trigger.
func (r *Runner) run(ctx context.Context, jobName string, body func(context.Context, *runState) error) (Result, error) {
	ctx, span := r.tracer.Start(ctx, "job."+jobName)
	defer span.End()

	runID, err := r.ledger.Start(ctx, jobName)
	if err != nil {
		return Result{}, err
	}

	started := r.now()
	st := &runState{}
	if err := body(ctx, st); err != nil {
		if lerr := r.ledger.Fail(ctx, runID, err, st.processed, st.errors); lerr != nil {
			r.log.Error("job ledger write failed", "job", jobName, "error", lerr)
		}
		r.metrics.ObserveRun(jobName, string(domain.JobFailed), r.now().Sub(started), st.processed)
		return st.result(), err
	}

	if err := r.ledger.Complete(ctx, runID, st.processed, st.errors, st.metadata); err != nil {
		r.metrics.ObserveRun(jobName, string(domain.JobFailed), r.now().Sub(started), st.processed)
		return st.result(), err
	}

	r.metrics.ObserveRun(jobName, string(jobrun.Status(st.processed, st.errors)), r.now().Sub(started), st.processed)
	r.log.Info("job run finished",
		"job", jobName,
		"processed", st.processed,
		"errors", len(st.errors),
		"duration_ms", r.now().Sub(started).Milliseconds(),
	)
	return st.result(), nil
}

// forEachCompany walks active companies sequentially. A company-level failure
// (including a panic inside the body) is recorded and the walk continues;
// only the initial company listing is job-level fatal.
func (r *Runner) forEachCompany(ctx context.Context, st *runState, body func(context.Context, domain.Company) error) error {
	companies, err := r.companies.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list active companies: %w", err)
	}
	for _, company := range companies {
		if err := r.companyScope(ctx, company, body); err != nil {
			r.log.Warn("company processing failed", "company", company.ID, "error", err)
			st.errorf("company %s: %v", company.ID, err)
		}
	}
	return nil
}

func (r *Runner) companyScope(ctx context.Context, company domain.Company, body func(context.Context, domain.Company) error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return body(ctx, company)
}

// acquire consults the fast-path guard. The persisted-history check stays
// authoritative, so guard errors degrade to acquired rather than blocking
// a send.
func (r *Runner) acquire(ctx context.Context, key string) bool {
	if r.guard == nil {
		return true
	}
	ok, err := r.guard.Acquire(ctx, key)
	if err != nil {
		r.log.Warn("idempotency guard unavailable", "key", key, "error", err)
		return true
	}
	return ok
}

// send invokes the external capability and folds transport refusals into
// item errors.
func (r *Runner) send(ctx context.Context, msg notify.Message) error {
	receipt, err := r.sender.Send(ctx, msg)
	if err != nil {
		return err
	}
	if !receipt.Success {
		return fmt.Errorf("send rejected: %s", receipt.Error)
	}
	return nil
}
