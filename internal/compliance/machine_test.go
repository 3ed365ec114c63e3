package compliance

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"coverguard/internal/domain"
)

func TestCanTransitionAssignment(t *testing.T) {
	cases := []struct {
		name string
		from domain.AssignmentStatus
		to   domain.AssignmentStatus
		ok   bool
	}{
		{"pending to compliant", domain.AssignmentPending, domain.AssignmentCompliant, true},
		{"pending to non-compliant", domain.AssignmentPending, domain.AssignmentNonCompliant, true},
		{"compliant to non-compliant", domain.AssignmentCompliant, domain.AssignmentNonCompliant, true},
		{"non-compliant back to compliant", domain.AssignmentNonCompliant, domain.AssignmentCompliant, true},
		{"compliant cannot revert to pending", domain.AssignmentCompliant, domain.AssignmentPending, false},
		{"non-compliant cannot revert to pending", domain.AssignmentNonCompliant, domain.AssignmentPending, false},
		{"exception back to pending", domain.AssignmentException, domain.AssignmentPending, true},
		{"exception back to compliant", domain.AssignmentException, domain.AssignmentCompliant, true},
		{"same status is a no-op", domain.AssignmentCompliant, domain.AssignmentCompliant, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.ok, CanTransitionAssignment(tc.from, tc.to))
		})
	}
}

func TestCanTransitionException(t *testing.T) {
	cases := []struct {
		name string
		from domain.ExceptionStatus
		to   domain.ExceptionStatus
		ok   bool
	}{
		{"pending approval to active", domain.ExceptionPendingApproval, domain.ExceptionActive, true},
		{"pending approval to closed", domain.ExceptionPendingApproval, domain.ExceptionClosed, true},
		{"active to expired", domain.ExceptionActive, domain.ExceptionExpired, true},
		{"active to resolved", domain.ExceptionActive, domain.ExceptionResolved, true},
		{"expired is terminal", domain.ExceptionExpired, domain.ExceptionActive, false},
		{"resolved is terminal", domain.ExceptionResolved, domain.ExceptionActive, false},
		{"closed is terminal", domain.ExceptionClosed, domain.ExceptionActive, false},
		{"active cannot return to pending", domain.ExceptionActive, domain.ExceptionPendingApproval, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.ok, CanTransitionException(tc.from, tc.to))
		})
	}
}

func TestOutcomeStatus(t *testing.T) {
	assert.Equal(t, domain.AssignmentCompliant, OutcomeStatus(domain.VerificationPass))
	assert.Equal(t, domain.AssignmentNonCompliant, OutcomeStatus(domain.VerificationFail))
	assert.Equal(t, domain.AssignmentPending, OutcomeStatus(domain.VerificationReview))
}
