// Package jobrun is the append-only ledger of scheduled job invocations. It
// is the only durable signal retry and alerting tooling gets about a run.
package jobrun

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"coverguard/internal/domain"
	"coverguard/internal/storage"
)

type Ledger struct {
	store storage.JobRunStore
	now   func() time.Time
}

type Option func(*Ledger)

func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

func NewLedger(store storage.JobRunStore, opts ...Option) *Ledger {
	l := &Ledger{store: store, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l
}

// Start opens a running entry and returns its id. A job that cannot open its
// ledger entry must not proceed; there would be no durable trace of the run.
func (l *Ledger) Start(ctx context.Context, jobName string) (string, error) {
	run := domain.JobRun{
		ID:        uuid.NewString(),
		JobName:   jobName,
		StartedAt: l.now(),
		Status:    domain.JobRunning,
	}
	if err := l.store.Create(ctx, run); err != nil {
		return "", fmt.Errorf("start job %s: %w", jobName, err)
	}
	return run.ID, nil
}

// Status derives the outcome of a finished run: success with no errors,
// partial while errors stay below the processed count, and failed once
// errors reach or exceed it. Metrics labels and persisted statuses both
// come from here so they cannot drift apart.
func Status(processed int, errs []string) domain.JobStatus {
	switch {
	case len(errs) == 0:
		return domain.JobSuccess
	case len(errs) < processed:
		return domain.JobPartial
	default:
		return domain.JobFailed
	}
}

// Complete finalizes a run that finished its item processing.
func (l *Ledger) Complete(ctx context.Context, runID string, processed int, errs []string, metadata map[string]any) error {
	return l.finalize(ctx, runID, Status(processed, errs), processed, errs, metadata)
}

// Fail finalizes a run that threw outside normal item processing. The
// causing error is stored ahead of any accumulated item errors.
func (l *Ledger) Fail(ctx context.Context, runID string, cause error, processed int, errs []string) error {
	all := make([]string, 0, len(errs)+1)
	if cause != nil {
		all = append(all, cause.Error())
	}
	all = append(all, errs...)
	return l.finalize(ctx, runID, domain.JobFailed, processed, all, nil)
}

func (l *Ledger) finalize(ctx context.Context, runID string, status domain.JobStatus, processed int, errs []string, metadata map[string]any) error {
	run, err := l.store.FindByID(ctx, runID)
	if err != nil {
		return fmt.Errorf("find job run %s: %w", runID, err)
	}
	finished := l.now()
	run.FinishedAt = &finished
	run.Status = status
	run.Processed = processed
	run.Errors = errs
	run.Metadata = metadata
	if err := l.store.Update(ctx, run); err != nil {
		return fmt.Errorf("finalize job run %s: %w", runID, err)
	}
	return nil
}
