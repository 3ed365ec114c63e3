package storage

import (
	"context"
	"time"

	"coverguard/internal/domain"
)

// Stores are interface-driven to keep the aggregation and scheduling logic
// testable and to allow swapping in-memory and PostgreSQL persistence without
// rewiring business code. All lookups are get-by-id or indexed range/equality
// reads; there are no multi-record transactions.

type CompanyStore interface {
	Save(ctx context.Context, company domain.Company) error
	FindByID(ctx context.Context, id string) (domain.Company, error)
	ListActive(ctx context.Context) ([]domain.Company, error)
}

type UserStore interface {
	Save(ctx context.Context, user domain.User) error
	FindByID(ctx context.Context, id string) (domain.User, error)
	ListAdmins(ctx context.Context, companyID string) ([]domain.User, error)
}

type ProjectStore interface {
	Save(ctx context.Context, project domain.Project) error
	FindByID(ctx context.Context, id string) (domain.Project, error)
	ListActiveByCompany(ctx context.Context, companyID string) ([]domain.Project, error)
}

type SubcontractorStore interface {
	Save(ctx context.Context, sub domain.Subcontractor) error
	FindByID(ctx context.Context, id string) (domain.Subcontractor, error)
	// FindByIDs batches id lookups so aggregation stays at one round-trip per
	// entity type. Missing ids are simply absent from the result map.
	FindByIDs(ctx context.Context, ids []string) (map[string]domain.Subcontractor, error)
}

type AssignmentStore interface {
	Save(ctx context.Context, assignment domain.Assignment) error
	FindByID(ctx context.Context, id string) (domain.Assignment, error)
	FindByPair(ctx context.Context, projectID, subcontractorID string) (domain.Assignment, error)
	ListByProject(ctx context.Context, projectID string) ([]domain.Assignment, error)
	UpdateStatus(ctx context.Context, id string, status domain.AssignmentStatus) error
}

type DocumentStore interface {
	Save(ctx context.Context, doc domain.Document) error
	FindByID(ctx context.Context, id string) (domain.Document, error)
	ListByProject(ctx context.Context, projectID string) ([]domain.Document, error)
	ListByPair(ctx context.Context, projectID, subcontractorID string) ([]domain.Document, error)
}

type VerificationStore interface {
	Save(ctx context.Context, verification domain.Verification) error
	FindByID(ctx context.Context, id string) (domain.Verification, error)
	FindByDocument(ctx context.Context, documentID string) (domain.Verification, error)
	ListByProject(ctx context.Context, projectID string) ([]domain.Verification, error)
	// ListExpiring returns verifications whose extracted policy end date falls
	// within [from, to], restricted to the given projects.
	ListExpiring(ctx context.Context, projectIDs []string, from, to time.Time) ([]domain.Verification, error)
}

type CommunicationStore interface {
	Save(ctx context.Context, comm domain.Communication) error
	ListByProject(ctx context.Context, projectID string) ([]domain.Communication, error)
	ListByVerification(ctx context.Context, verificationID string) ([]domain.Communication, error)
	// SentOnDay checks the (subcontractor, type, day) idempotency key against
	// persisted history. day is a UTC calendar day from domain.Day.
	SentOnDay(ctx context.Context, subcontractorID string, ctype domain.CommunicationType, day string) (bool, error)
	// SentForAssignmentOnDay narrows the key to one (project, subcontractor)
	// pair, used by stop-work alerts.
	SentForAssignmentOnDay(ctx context.Context, projectID, subcontractorID string, ctype domain.CommunicationType, day string) (bool, error)
}

type ExceptionStore interface {
	Save(ctx context.Context, exception domain.Exception) error
	FindByID(ctx context.Context, id string) (domain.Exception, error)
	ListByAssignment(ctx context.Context, assignmentID string) ([]domain.Exception, error)
	// ListActiveExpired returns active exceptions whose expiry has passed. The
	// sweep spans companies; status flips make it naturally idempotent.
	ListActiveExpired(ctx context.Context, now time.Time) ([]domain.Exception, error)
	CountActive(ctx context.Context, assignmentIDs []string) (map[string]int, error)
	UpdateStatus(ctx context.Context, id string, status domain.ExceptionStatus) error
}

type NotificationStore interface {
	Save(ctx context.Context, notification domain.Notification) error
	ListByUser(ctx context.Context, userID string) ([]domain.Notification, error)
}

type JobRunStore interface {
	Create(ctx context.Context, run domain.JobRun) error
	Update(ctx context.Context, run domain.JobRun) error
	FindByID(ctx context.Context, id string) (domain.JobRun, error)
}

// Stores bundles every store interface for wiring. Services still declare the
// subset they depend on.
type Stores struct {
	Companies      CompanyStore
	Users          UserStore
	Projects       ProjectStore
	Subcontractors SubcontractorStore
	Assignments    AssignmentStore
	Documents      DocumentStore
	Verifications  VerificationStore
	Communications CommunicationStore
	Exceptions     ExceptionStore
	Notifications  NotificationStore
	JobRuns        JobRunStore
}
