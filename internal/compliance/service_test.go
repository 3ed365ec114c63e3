package compliance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"coverguard/internal/audit"
	"coverguard/internal/domain"
	"coverguard/internal/storage"
)

type ComplianceSuite struct {
	suite.Suite

	ctx    context.Context
	stores *storage.Stores
	trail  *audit.InMemoryStore
	svc    *Service
	now    time.Time
}

func TestComplianceSuite(t *testing.T) {
	suite.Run(t, new(ComplianceSuite))
}

func (s *ComplianceSuite) SetupTest() {
	s.ctx = context.Background()
	s.now = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	s.stores = storage.NewMemoryStores()
	s.trail = audit.NewInMemoryStore()
	s.svc = NewService(s.stores, audit.NewService(s.trail), WithClock(func() time.Time { return s.now }))

	s.Require().NoError(s.stores.Companies.Save(s.ctx, domain.Company{ID: "c1", Name: "Meridian Build", Active: true}))
	s.Require().NoError(s.stores.Projects.Save(s.ctx, domain.Project{
		ID: "p1", CompanyID: "c1", Name: "Harbour Tower", Status: domain.ProjectActive,
	}))
	s.Require().NoError(s.stores.Subcontractors.Save(s.ctx, domain.Subcontractor{
		ID: "s1", CompanyID: "c1", Name: "Apex Scaffolding", ABN: "51000000001", ContactEmail: "office@apex.test",
	}))
	s.Require().NoError(s.stores.Assignments.Save(s.ctx, domain.Assignment{
		ID: "a1", ProjectID: "p1", SubcontractorID: "s1", Status: domain.AssignmentPending,
	}))
	s.Require().NoError(s.stores.Documents.Save(s.ctx, domain.Document{
		ID: "d1", SubcontractorID: "s1", ProjectID: "p1", ReceivedAt: s.now.AddDate(0, 0, -1), Status: domain.DocumentCompleted,
	}))
	s.Require().NoError(s.stores.Verifications.Save(s.ctx, domain.Verification{
		ID: "v1", DocumentID: "d1", ProjectID: "p1", Status: domain.VerificationReview, Confidence: 0.58,
	}))
}

func (s *ComplianceSuite) assignment(id string) domain.Assignment {
	assignment, err := s.stores.Assignments.FindByID(s.ctx, id)
	s.Require().NoError(err)
	return assignment
}

func (s *ComplianceSuite) exception(id string) domain.Exception {
	exception, err := s.stores.Exceptions.FindByID(s.ctx, id)
	s.Require().NoError(err)
	return exception
}

func (s *ComplianceSuite) auditActions() []string {
	events, err := s.trail.ListRecent(s.ctx, 0)
	s.Require().NoError(err)
	actions := make([]string, len(events))
	for i, e := range events {
		actions[i] = e.Action
	}
	return actions
}

func (s *ComplianceSuite) TestApproveVerification() {
	s.Require().NoError(s.svc.ApproveVerification(s.ctx, "v1", "u-reviewer"))

	verification, err := s.stores.Verifications.FindByID(s.ctx, "v1")
	s.Require().NoError(err)
	s.Equal(domain.VerificationPass, verification.Status)
	s.Equal("u-reviewer", verification.ReviewerID)
	s.Require().NotNil(verification.ReviewedAt)
	s.Equal(s.now, *verification.ReviewedAt)

	s.Equal(domain.AssignmentCompliant, s.assignment("a1").Status)
	s.Contains(s.auditActions(), "status.compliant")
}

func (s *ComplianceSuite) TestRejectVerificationQueuesDeficiency() {
	s.Require().NoError(s.svc.RejectVerification(s.ctx, "v1", "u-reviewer"))

	s.Equal(domain.AssignmentNonCompliant, s.assignment("a1").Status)

	comms, err := s.stores.Communications.ListByVerification(s.ctx, "v1")
	s.Require().NoError(err)
	s.Require().Len(comms, 1)
	s.Equal(domain.CommDeficiency, comms[0].Type)
	s.Equal(domain.CommPending, comms[0].Status)
	s.Equal(domain.ChannelEmail, comms[0].Channel)
	s.Equal("office@apex.test", comms[0].Recipient)
	s.Equal("s1", comms[0].SubcontractorID)
}

func (s *ComplianceSuite) TestApproveVerificationNotFound() {
	err := s.svc.ApproveVerification(s.ctx, "missing", "u-reviewer")
	s.Require().ErrorIs(err, storage.ErrNotFound)
}

func (s *ComplianceSuite) TestVerificationDoesNotOverrideActiveException() {
	s.Require().NoError(s.stores.Assignments.UpdateStatus(s.ctx, "a1", domain.AssignmentException))

	s.Require().NoError(s.svc.ApproveVerification(s.ctx, "v1", "u-reviewer"))

	// The recorded outcome waits for recalculation; the exception keeps the
	// assignment as-is.
	s.Equal(domain.AssignmentException, s.assignment("a1").Status)
}

func (s *ComplianceSuite) TestApproveException() {
	s.Require().NoError(s.stores.Exceptions.Save(s.ctx, domain.Exception{
		ID: "e1", AssignmentID: "a1", Reason: "awaiting renewed policy", Status: domain.ExceptionPendingApproval,
		CreatedBy: "u-admin",
	}))

	s.Require().NoError(s.svc.ApproveException(s.ctx, "e1", "u-approver"))

	s.Equal(domain.ExceptionActive, s.exception("e1").Status)
	s.Equal(domain.AssignmentException, s.assignment("a1").Status)
	s.Contains(s.auditActions(), "exception.approved")
	s.Contains(s.auditActions(), "status.exception")
}

func (s *ComplianceSuite) TestApproveExceptionRejectsClosed() {
	s.Require().NoError(s.stores.Exceptions.Save(s.ctx, domain.Exception{
		ID: "e1", AssignmentID: "a1", Status: domain.ExceptionClosed,
	}))

	err := s.svc.ApproveException(s.ctx, "e1", "u-approver")
	s.Require().ErrorIs(err, ErrInvalidTransition)
	s.Equal(domain.ExceptionClosed, s.exception("e1").Status)
}

func (s *ComplianceSuite) TestResolveExceptionRecalculates() {
	s.Require().NoError(s.stores.Assignments.UpdateStatus(s.ctx, "a1", domain.AssignmentException))
	s.Require().NoError(s.stores.Exceptions.Save(s.ctx, domain.Exception{
		ID: "e1", AssignmentID: "a1", Status: domain.ExceptionActive, CreatedBy: "u-admin",
	}))
	verification, err := s.stores.Verifications.FindByID(s.ctx, "v1")
	s.Require().NoError(err)
	verification.Status = domain.VerificationPass
	s.Require().NoError(s.stores.Verifications.Save(s.ctx, verification))

	s.Require().NoError(s.svc.ResolveException(s.ctx, "e1", "u-admin"))

	s.Equal(domain.ExceptionResolved, s.exception("e1").Status)
	// Status is re-derived from the latest verification, not restored.
	s.Equal(domain.AssignmentCompliant, s.assignment("a1").Status)
	s.Contains(s.auditActions(), "exception.resolved")
}

func (s *ComplianceSuite) TestResolveExceptionRequiresActive() {
	s.Require().NoError(s.stores.Exceptions.Save(s.ctx, domain.Exception{
		ID: "e1", AssignmentID: "a1", Status: domain.ExceptionPendingApproval,
	}))

	err := s.svc.ResolveException(s.ctx, "e1", "u-admin")
	s.Require().ErrorIs(err, ErrInvalidTransition)
}

func (s *ComplianceSuite) TestExpireExceptionNotifiesCreator() {
	s.Require().NoError(s.stores.Assignments.UpdateStatus(s.ctx, "a1", domain.AssignmentException))
	expires := s.now.AddDate(0, 0, -1)
	s.Require().NoError(s.stores.Exceptions.Save(s.ctx, domain.Exception{
		ID: "e1", AssignmentID: "a1", Reason: "awaiting renewed policy",
		Status: domain.ExceptionActive, CreatedBy: "u-admin", ExpiresAt: &expires,
	}))

	s.Require().NoError(s.svc.ExpireException(s.ctx, "e1", "exception_expiry"))

	s.Equal(domain.ExceptionExpired, s.exception("e1").Status)
	// v1 is still in review, so the assignment falls back to pending.
	s.Equal(domain.AssignmentPending, s.assignment("a1").Status)
	s.Contains(s.auditActions(), "exception.expired")

	notifications, err := s.stores.Notifications.ListByUser(s.ctx, "u-admin")
	s.Require().NoError(err)
	s.Require().Len(notifications, 1)
	s.Equal("exception_expired", notifications[0].Type)
	s.Contains(notifications[0].Title, "Apex Scaffolding")
	s.Contains(notifications[0].Message, "Harbour Tower")
}

func (s *ComplianceSuite) TestRecalculatePrefersActiveException() {
	s.Require().NoError(s.stores.Exceptions.Save(s.ctx, domain.Exception{
		ID: "e1", AssignmentID: "a1", Status: domain.ExceptionActive,
	}))

	status, err := s.svc.Recalculate(s.ctx, "a1", "u-admin")
	s.Require().NoError(err)
	s.Equal(domain.AssignmentException, status)
}

func (s *ComplianceSuite) TestRecalculateUsesLatestDocument() {
	// A newer completed document with a failed verification outranks the
	// older one in review.
	s.Require().NoError(s.stores.Documents.Save(s.ctx, domain.Document{
		ID: "d2", SubcontractorID: "s1", ProjectID: "p1", ReceivedAt: s.now.Add(-2 * time.Hour), Status: domain.DocumentCompleted,
	}))
	s.Require().NoError(s.stores.Verifications.Save(s.ctx, domain.Verification{
		ID: "v2", DocumentID: "d2", ProjectID: "p1", Status: domain.VerificationFail,
		Deficiencies: []string{"coverage below contract minimum"},
	}))

	status, err := s.svc.Recalculate(s.ctx, "a1", "u-admin")
	s.Require().NoError(err)
	s.Equal(domain.AssignmentNonCompliant, status)
	s.Equal(domain.AssignmentNonCompliant, s.assignment("a1").Status)
}

func (s *ComplianceSuite) TestRecalculateSkipsUnverifiedDocuments() {
	s.Require().NoError(s.stores.Documents.Save(s.ctx, domain.Document{
		ID: "d2", SubcontractorID: "s1", ProjectID: "p1", ReceivedAt: s.now.Add(-2 * time.Hour), Status: domain.DocumentProcessing,
	}))
	verification, err := s.stores.Verifications.FindByID(s.ctx, "v1")
	s.Require().NoError(err)
	verification.Status = domain.VerificationPass
	s.Require().NoError(s.stores.Verifications.Save(s.ctx, verification))

	// d2 has no verification yet; the walk falls through to d1.
	status, err := s.svc.Recalculate(s.ctx, "a1", "u-admin")
	s.Require().NoError(err)
	s.Equal(domain.AssignmentCompliant, status)
}
