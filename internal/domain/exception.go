package domain

import "time"

type ExceptionStatus string

const (
	ExceptionPendingApproval ExceptionStatus = "pending_approval"
	ExceptionActive          ExceptionStatus = "active"
	ExceptionExpired         ExceptionStatus = "expired"
	ExceptionResolved        ExceptionStatus = "resolved"
	ExceptionClosed          ExceptionStatus = "closed"
)

// Exception is a manually approved waiver on an assignment. While active it
// overrides the verification-derived compliance status. The lifecycle only
// moves forward; expired is reached solely through the scheduled sweep.
type Exception struct {
	ID           string
	AssignmentID string
	Reason       string
	RiskLevel    string
	CreatedBy    string
	Status       ExceptionStatus
	// ExpiresAt is nil for permanent exceptions.
	ExpiresAt *time.Time
	CreatedAt time.Time
}

// ExpiredBy reports whether an active exception has passed its expiry.
func (e Exception) ExpiredBy(now time.Time) bool {
	return e.Status == ExceptionActive && e.ExpiresAt != nil && e.ExpiresAt.Before(now)
}
