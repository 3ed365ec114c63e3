package domain

import "time"

type JobStatus string

const (
	JobRunning JobStatus = "running"
	JobSuccess JobStatus = "success"
	JobPartial JobStatus = "partial"
	JobFailed  JobStatus = "failed"
)

// JobRun is one append-only ledger entry per scheduled job invocation. It is
// the only durable signal retry and alerting tooling has about a run.
type JobRun struct {
	ID         string
	JobName    string
	StartedAt  time.Time
	FinishedAt *time.Time
	Status     JobStatus
	Processed  int
	Errors     []string
	Metadata   map[string]any
}
