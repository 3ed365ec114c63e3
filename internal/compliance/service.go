package compliance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"coverguard/internal/audit"
	"coverguard/internal/domain"
	"coverguard/internal/storage"
)

// Recorder is the audit seam; the audit service satisfies it.
type Recorder interface {
	Record(ctx context.Context, event audit.Event) error
}

// Service applies verification outcomes and exception lifecycle changes to
// assignments. All writes are single-record patches; every applied transition
// leaves an audit event.
type Service struct {
	projects       storage.ProjectStore
	subcontractors storage.SubcontractorStore
	assignments    storage.AssignmentStore
	documents      storage.DocumentStore
	verifications  storage.VerificationStore
	exceptions     storage.ExceptionStore
	communications storage.CommunicationStore
	notifications  storage.NotificationStore

	recorder Recorder
	now      func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(stores *storage.Stores, recorder Recorder, opts ...Option) *Service {
	s := &Service{
		projects:       stores.Projects,
		subcontractors: stores.Subcontractors,
		assignments:    stores.Assignments,
		documents:      stores.Documents,
		verifications:  stores.Verifications,
		exceptions:     stores.Exceptions,
		communications: stores.Communications,
		notifications:  stores.Notifications,
		recorder:       recorder,
		now:            time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// ApproveVerification marks the verification passed and moves the assignment
// towards compliant. An active exception keeps overriding the outcome; the
// verification is recorded and picked up on recalculation.
func (s *Service) ApproveVerification(ctx context.Context, verificationID, reviewerID string) error {
	return s.settleVerification(ctx, verificationID, reviewerID, domain.VerificationPass)
}

// RejectVerification marks the verification failed, moves the assignment
// towards non-compliant, and queues a deficiency communication to the
// subcontractor.
func (s *Service) RejectVerification(ctx context.Context, verificationID, reviewerID string) error {
	if err := s.settleVerification(ctx, verificationID, reviewerID, domain.VerificationFail); err != nil {
		return err
	}
	return s.queueDeficiency(ctx, verificationID)
}

func (s *Service) settleVerification(ctx context.Context, verificationID, reviewerID string, outcome domain.VerificationStatus) error {
	verification, err := s.verifications.FindByID(ctx, verificationID)
	if err != nil {
		return fmt.Errorf("find verification %s: %w", verificationID, err)
	}

	now := s.now()
	verification.Status = outcome
	verification.ReviewerID = reviewerID
	verification.ReviewedAt = &now
	if err := s.verifications.Save(ctx, verification); err != nil {
		return fmt.Errorf("save verification %s: %w", verificationID, err)
	}

	doc, err := s.documents.FindByID(ctx, verification.DocumentID)
	if err != nil {
		return fmt.Errorf("find document %s: %w", verification.DocumentID, err)
	}
	assignment, err := s.assignments.FindByPair(ctx, verification.ProjectID, doc.SubcontractorID)
	if err != nil {
		return fmt.Errorf("find assignment for project %s subcontractor %s: %w", verification.ProjectID, doc.SubcontractorID, err)
	}

	// An active exception holds the assignment in exception status until it
	// resolves or expires.
	if assignment.Status == domain.AssignmentException {
		return nil
	}
	return s.transitionAssignment(ctx, assignment, OutcomeStatus(outcome), reviewerID,
		fmt.Sprintf("verification %s %s", verificationID, outcome))
}

func (s *Service) queueDeficiency(ctx context.Context, verificationID string) error {
	verification, err := s.verifications.FindByID(ctx, verificationID)
	if err != nil {
		return fmt.Errorf("find verification %s: %w", verificationID, err)
	}
	doc, err := s.documents.FindByID(ctx, verification.DocumentID)
	if err != nil {
		return fmt.Errorf("find document %s: %w", verification.DocumentID, err)
	}
	sub, err := s.subcontractors.FindByID(ctx, doc.SubcontractorID)
	if err != nil {
		return fmt.Errorf("find subcontractor %s: %w", doc.SubcontractorID, err)
	}

	comm := domain.Communication{
		ID:              uuid.NewString(),
		SubcontractorID: sub.ID,
		ProjectID:       verification.ProjectID,
		VerificationID:  verification.ID,
		Type:            domain.CommDeficiency,
		Channel:         domain.ChannelEmail,
		Recipient:       sub.BestEmail(),
		Status:          domain.CommPending,
	}
	if err := s.communications.Save(ctx, comm); err != nil {
		return fmt.Errorf("queue deficiency communication: %w", err)
	}
	return nil
}

// ApproveException activates a pending exception and moves its assignment to
// exception status regardless of the underlying verification outcome.
func (s *Service) ApproveException(ctx context.Context, exceptionID, approverID string) error {
	exception, err := s.exceptions.FindByID(ctx, exceptionID)
	if err != nil {
		return fmt.Errorf("find exception %s: %w", exceptionID, err)
	}
	if !CanTransitionException(exception.Status, domain.ExceptionActive) {
		return fmt.Errorf("exception %s is %s: %w", exceptionID, exception.Status, ErrInvalidTransition)
	}
	if err := s.exceptions.UpdateStatus(ctx, exceptionID, domain.ExceptionActive); err != nil {
		return fmt.Errorf("activate exception %s: %w", exceptionID, err)
	}

	assignment, err := s.assignments.FindByID(ctx, exception.AssignmentID)
	if err != nil {
		return fmt.Errorf("find assignment %s: %w", exception.AssignmentID, err)
	}
	if err := s.transitionAssignment(ctx, assignment, domain.AssignmentException, approverID,
		fmt.Sprintf("exception %s approved", exceptionID)); err != nil {
		return err
	}
	return s.recordException(ctx, exception, approverID, "exception.approved")
}

// ResolveException closes out an active exception and recalculates the
// assignment from the latest verification outcome rather than reverting to
// whatever it was before.
func (s *Service) ResolveException(ctx context.Context, exceptionID, actorID string) error {
	return s.finishException(ctx, exceptionID, actorID, domain.ExceptionResolved, "exception.resolved")
}

// ExpireException is invoked by the scheduled sweep once an active
// exception's expiry passes. It recalculates the assignment, records an audit
// event, and notifies the exception's creator.
func (s *Service) ExpireException(ctx context.Context, exceptionID, actor string) error {
	if err := s.finishException(ctx, exceptionID, actor, domain.ExceptionExpired, "exception.expired"); err != nil {
		return err
	}
	return s.notifyExceptionCreator(ctx, exceptionID)
}

func (s *Service) finishException(ctx context.Context, exceptionID, actor string, target domain.ExceptionStatus, action string) error {
	exception, err := s.exceptions.FindByID(ctx, exceptionID)
	if err != nil {
		return fmt.Errorf("find exception %s: %w", exceptionID, err)
	}
	if !CanTransitionException(exception.Status, target) {
		return fmt.Errorf("exception %s is %s, cannot become %s: %w", exceptionID, exception.Status, target, ErrInvalidTransition)
	}
	if err := s.exceptions.UpdateStatus(ctx, exceptionID, target); err != nil {
		return fmt.Errorf("update exception %s: %w", exceptionID, err)
	}
	if _, err := s.Recalculate(ctx, exception.AssignmentID, actor); err != nil {
		return err
	}
	return s.recordException(ctx, exception, actor, action)
}

func (s *Service) notifyExceptionCreator(ctx context.Context, exceptionID string) error {
	exception, err := s.exceptions.FindByID(ctx, exceptionID)
	if err != nil {
		return fmt.Errorf("find exception %s: %w", exceptionID, err)
	}
	assignment, err := s.assignments.FindByID(ctx, exception.AssignmentID)
	if err != nil {
		return fmt.Errorf("find assignment %s: %w", exception.AssignmentID, err)
	}
	project, err := s.projects.FindByID(ctx, assignment.ProjectID)
	if err != nil {
		return fmt.Errorf("find project %s: %w", assignment.ProjectID, err)
	}
	sub, err := s.subcontractors.FindByID(ctx, assignment.SubcontractorID)
	if err != nil {
		return fmt.Errorf("find subcontractor %s: %w", assignment.SubcontractorID, err)
	}

	notification := domain.Notification{
		ID:        uuid.NewString(),
		UserID:    exception.CreatedBy,
		CompanyID: project.CompanyID,
		Type:      "exception_expired",
		Title:     fmt.Sprintf("Exception expired: %s", sub.Name),
		Message:   fmt.Sprintf("The exception for %s on %s has expired; compliance status was recalculated.", sub.Name, project.Name),
		CreatedAt: s.now(),
	}
	if err := s.notifications.Save(ctx, notification); err != nil {
		return fmt.Errorf("save exception notification: %w", err)
	}
	return nil
}

// Recalculate re-derives an assignment's status from the latest verified
// document for its (project, subcontractor) pair. A remaining active
// exception keeps the assignment in exception status.
func (s *Service) Recalculate(ctx context.Context, assignmentID, actor string) (domain.AssignmentStatus, error) {
	assignment, err := s.assignments.FindByID(ctx, assignmentID)
	if err != nil {
		return "", fmt.Errorf("find assignment %s: %w", assignmentID, err)
	}

	exceptions, err := s.exceptions.ListByAssignment(ctx, assignmentID)
	if err != nil {
		return "", fmt.Errorf("list exceptions for assignment %s: %w", assignmentID, err)
	}
	for _, exception := range exceptions {
		if exception.Status == domain.ExceptionActive {
			return domain.AssignmentException, nil
		}
	}

	target, err := s.latestOutcome(ctx, assignment)
	if err != nil {
		return "", err
	}
	if err := s.transitionAssignment(ctx, assignment, target, actor, "status recalculated"); err != nil {
		return "", err
	}
	return target, nil
}

// latestOutcome walks documents newest first and maps the first one with a
// verification onto an assignment status.
func (s *Service) latestOutcome(ctx context.Context, assignment domain.Assignment) (domain.AssignmentStatus, error) {
	docs, err := s.documents.ListByPair(ctx, assignment.ProjectID, assignment.SubcontractorID)
	if err != nil {
		return "", fmt.Errorf("list documents for assignment %s: %w", assignment.ID, err)
	}
	for _, doc := range docs {
		verification, err := s.verifications.FindByDocument(ctx, doc.ID)
		if err != nil {
			if errorsIsNotFound(err) {
				continue
			}
			return "", fmt.Errorf("find verification for document %s: %w", doc.ID, err)
		}
		return OutcomeStatus(verification.Status), nil
	}
	return domain.AssignmentPending, nil
}

func (s *Service) transitionAssignment(ctx context.Context, assignment domain.Assignment, target domain.AssignmentStatus, actor, detail string) error {
	if assignment.Status == target {
		return nil
	}
	if !CanTransitionAssignment(assignment.Status, target) {
		return fmt.Errorf("assignment %s cannot move %s -> %s: %w", assignment.ID, assignment.Status, target, ErrInvalidTransition)
	}
	if err := s.assignments.UpdateStatus(ctx, assignment.ID, target); err != nil {
		return fmt.Errorf("update assignment %s: %w", assignment.ID, err)
	}
	return s.recorder.Record(ctx, audit.Event{
		Actor:     actor,
		Subject:   "assignment",
		SubjectID: assignment.ID,
		Action:    fmt.Sprintf("status.%s", target),
		Detail:    detail,
	})
}

func (s *Service) recordException(ctx context.Context, exception domain.Exception, actor, action string) error {
	return s.recorder.Record(ctx, audit.Event{
		Actor:     actor,
		Subject:   "exception",
		SubjectID: exception.ID,
		Action:    action,
		Detail:    exception.Reason,
	})
}

func errorsIsNotFound(err error) bool {
	return errors.Is(err, storage.ErrNotFound)
}
