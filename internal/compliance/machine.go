// Package compliance holds the legal states and transitions for assignment
// status and the exception lifecycle, and the services that apply them when
// verification outcomes arrive or exceptions change.
package compliance

import (
	"errors"

	"coverguard/internal/domain"
)

// ErrInvalidTransition marks an attempt to move a status against the
// lifecycle. Exception statuses only ever move forward.
var ErrInvalidTransition = errors.New("invalid status transition")

var assignmentTransitions = map[domain.AssignmentStatus][]domain.AssignmentStatus{
	domain.AssignmentPending:      {domain.AssignmentCompliant, domain.AssignmentNonCompliant, domain.AssignmentException},
	domain.AssignmentCompliant:    {domain.AssignmentNonCompliant, domain.AssignmentException},
	domain.AssignmentNonCompliant: {domain.AssignmentCompliant, domain.AssignmentException},
	// Leaving exception re-derives status from the latest verification, which
	// may also land back on pending when nothing verifiable remains.
	domain.AssignmentException: {domain.AssignmentCompliant, domain.AssignmentNonCompliant, domain.AssignmentPending},
}

var exceptionTransitions = map[domain.ExceptionStatus][]domain.ExceptionStatus{
	domain.ExceptionPendingApproval: {domain.ExceptionActive, domain.ExceptionClosed},
	domain.ExceptionActive:          {domain.ExceptionExpired, domain.ExceptionResolved, domain.ExceptionClosed},
}

// CanTransitionAssignment reports whether an assignment may move between the
// two statuses. Same-status moves are allowed as no-ops.
func CanTransitionAssignment(from, to domain.AssignmentStatus) bool {
	if from == to {
		return true
	}
	for _, allowed := range assignmentTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// CanTransitionException reports whether the exception lifecycle allows the
// move. Expired, resolved, and closed are terminal.
func CanTransitionException(from, to domain.ExceptionStatus) bool {
	for _, allowed := range exceptionTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// OutcomeStatus maps a verification outcome onto the assignment status it
// implies. Review outcomes keep the assignment pending until a human decides.
func OutcomeStatus(status domain.VerificationStatus) domain.AssignmentStatus {
	switch status {
	case domain.VerificationPass:
		return domain.AssignmentCompliant
	case domain.VerificationFail:
		return domain.AssignmentNonCompliant
	default:
		return domain.AssignmentPending
	}
}
