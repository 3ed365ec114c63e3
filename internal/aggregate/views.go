package aggregate

import (
	"time"

	"coverguard/internal/domain"
)

// Views are computed read-models, never persisted. Each call joins normalized
// entities as of one logical snapshot; callers must not assume transactional
// consistency with concurrent writers.

// Stats summarises assignment compliance for one company.
type Stats struct {
	Total          int      `json:"total"`
	Compliant      int      `json:"compliant"`
	NonCompliant   int      `json:"nonCompliant"`
	Pending        int      `json:"pending"`
	Exception      int      `json:"exception"`
	// ComplianceRate is a percentage; nil when no assignments exist, which is
	// distinct from zero.
	ComplianceRate *float64 `json:"complianceRate"`
	PendingReviews int      `json:"pendingReviews"`
	ActiveProjects int      `json:"activeProjects"`
}

// StopWorkRisk is a subcontractor scheduled on-site today or earlier (or with
// no scheduled date at all) while not compliant.
type StopWorkRisk struct {
	AssignmentID     string               `json:"assignmentId"`
	ProjectID        string               `json:"projectId"`
	ProjectName      string               `json:"projectName"`
	SubcontractorID  string               `json:"subcontractorId"`
	Subcontractor    domain.Subcontractor `json:"subcontractor"`
	Status           domain.AssignmentStatus `json:"status"`
	OnSiteDate       *time.Time           `json:"onSiteDate"`
	ActiveExceptions int                  `json:"activeExceptions,omitempty"`
}

// PendingResponse is a failed verification awaiting a new document after our
// last outbound message.
type PendingResponse struct {
	VerificationID  string               `json:"verificationId"`
	DocumentID      string               `json:"documentId"`
	ProjectID       string               `json:"projectId"`
	SubcontractorID string               `json:"subcontractorId"`
	Subcontractor   domain.Subcontractor `json:"subcontractor"`
	Deficiencies    []string             `json:"deficiencies"`
	LastContactAt   time.Time            `json:"lastContactAt"`
	LastContactType domain.CommunicationType `json:"lastContactType"`
	DaysWaiting     int                  `json:"daysWaiting"`
}

// FollowUpCandidate is a pending response eligible for the next follow-up
// stage. FollowUpCount is the number of follow-ups already sent for the
// verification, which gates re-sending a stage that was already reached.
type FollowUpCandidate struct {
	PendingResponse
	FollowUpCount int `json:"followUpCount"`
}

// Brief merges every view for the morning digest, computed off a single
// snapshot so the numbers agree with each other.
type Brief struct {
	CompanyID        string            `json:"companyId"`
	GeneratedAt      time.Time         `json:"generatedAt"`
	Stats            Stats             `json:"stats"`
	StopWorkRisks    []StopWorkRisk    `json:"stopWorkRisks"`
	PendingResponses []PendingResponse `json:"pendingResponses"`
	NewDocuments     int               `json:"newDocuments"`
}
