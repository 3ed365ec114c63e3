package audit

import (
	"context"
	"time"
)

// Event is emitted from domain logic to capture compliance-relevant actions:
// status transitions, exception lifecycle changes, and job-driven patches.
// Keep it transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	CompanyID string    `json:"companyId,omitempty"`
	// Actor is a user id or a job name for scheduler-driven changes.
	Actor     string `json:"actor"`
	Subject   string `json:"subject"`
	SubjectID string `json:"subjectId"`
	Action    string `json:"action"`
	Detail    string `json:"detail,omitempty"`
}

// Appender is the minimal sink contract; Kafka mirrors and stores both
// satisfy it.
type Appender interface {
	Append(ctx context.Context, event Event) error
}

// Store is the durable audit log.
type Store interface {
	Appender
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}
