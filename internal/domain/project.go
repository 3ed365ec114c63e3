package domain

import "time"

type ProjectStatus string

const (
	ProjectActive    ProjectStatus = "active"
	ProjectCompleted ProjectStatus = "completed"
	ProjectOnHold    ProjectStatus = "on_hold"
)

// Project is a construction site. Projects are archived by status change and
// never hard-deleted by this core.
type Project struct {
	ID        string
	CompanyID string
	Name      string
	Status    ProjectStatus
	ManagerID string
	EndDate   *time.Time
}

// Active covers both running and on-hold projects; only completed projects
// drop out of compliance tracking.
func (p Project) Active() bool {
	return p.Status != ProjectCompleted
}

// Subcontractor identity is immutable once registered; the ABN is enforced
// unique per company by the store.
type Subcontractor struct {
	ID           string
	CompanyID    string
	Name         string
	ABN          string
	ContactEmail string
	ContactPhone string
	BrokerEmail  string
	BrokerPhone  string
}

// BestEmail prefers the subcontractor's own contact over the broker's.
func (s Subcontractor) BestEmail() string {
	if s.ContactEmail != "" {
		return s.ContactEmail
	}
	return s.BrokerEmail
}

type AssignmentStatus string

const (
	AssignmentPending      AssignmentStatus = "pending"
	AssignmentCompliant    AssignmentStatus = "compliant"
	AssignmentNonCompliant AssignmentStatus = "non_compliant"
	AssignmentException    AssignmentStatus = "exception"
)

// Assignment links a subcontractor to a project. It is the unit the compliance
// state machine and the stop-work check operate on; at most one row exists per
// (project, subcontractor) pair.
type Assignment struct {
	ID              string
	ProjectID       string
	SubcontractorID string
	Status          AssignmentStatus
	OnSiteDate      *time.Time
}

// AtRisk reports whether the assignment should appear on the stop-work list:
// non-compliant or still pending while scheduled on-site today or earlier.
// Assignments without an on-site date are included; they can mobilise any day.
func (a Assignment) AtRisk(today time.Time) bool {
	if a.Status != AssignmentNonCompliant && a.Status != AssignmentPending {
		return false
	}
	if a.OnSiteDate == nil {
		return true
	}
	return !a.OnSiteDate.After(today)
}
