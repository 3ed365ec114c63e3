package domain

import "time"

type CommunicationType string

const (
	CommDeficiency         CommunicationType = "deficiency"
	CommFollowUp           CommunicationType = "follow_up"
	CommConfirmation       CommunicationType = "confirmation"
	CommExpirationReminder CommunicationType = "expiration_reminder"
	CommCriticalAlert      CommunicationType = "critical_alert"
)

type CommunicationStatus string

const (
	CommPending   CommunicationStatus = "pending"
	CommSent      CommunicationStatus = "sent"
	CommDelivered CommunicationStatus = "delivered"
	CommOpened    CommunicationStatus = "opened"
	CommFailed    CommunicationStatus = "failed"
)

type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

// Communication is an outbound external message to a subcontractor or broker.
// The (subcontractor, type, calendar day) tuple is the idempotency key for
// reminder-class communications.
type Communication struct {
	ID              string
	SubcontractorID string
	ProjectID       string
	VerificationID  string
	Type            CommunicationType
	Channel         Channel
	Recipient       string
	Status          CommunicationStatus
	SentAt          time.Time
	FollowUpNumber  int
	Escalated       bool
}

// Outbound reports whether the message actually left the platform.
func (c Communication) Outbound() bool {
	switch c.Status {
	case CommSent, CommDelivered, CommOpened:
		return true
	}
	return false
}

// Notification is an internal alert shown to a platform user, distinct from an
// external Communication.
type Notification struct {
	ID        string
	UserID    string
	CompanyID string
	Type      string
	Title     string
	Message   string
	Link      string
	Read      bool
	CreatedAt time.Time
}

// Day collapses a timestamp to its UTC calendar day, the granularity all
// reminder idempotency keys use.
func Day(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
