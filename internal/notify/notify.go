// Package notify defines the outbound send capability. Delivery transports
// are external collaborators; this package holds the contract, an SMTP
// adapter, and test doubles. It never decides who to contact or when; that
// is scheduler logic.
package notify

import (
	"context"
	"sync"

	"coverguard/internal/domain"
)

// Kind selects the message template.
type Kind string

const (
	KindExpirationReminder Kind = "expiration_reminder"
	KindMorningBrief       Kind = "morning_brief"
	KindDeficiency         Kind = "deficiency"
	KindFollowUp           Kind = "follow_up"
	KindEscalation         Kind = "escalation"
	KindStopWorkAlert      Kind = "stop_work_alert"
	KindExceptionExpired   Kind = "exception_expired"
)

// Message is one outbound send request.
type Message struct {
	Recipient string
	Channel   domain.Channel
	Kind      Kind
	Payload   map[string]any
}

// Receipt reports the transport outcome. A failed send is a value, not an
// error; errors are reserved for the transport itself being unreachable.
type Receipt struct {
	Success bool
	ID      string
	Error   string
}

type Sender interface {
	Send(ctx context.Context, msg Message) (Receipt, error)
}

// Recorder is a Sender double that captures messages and fails on demand.
// Jobs are tested against it the way stores are tested against their
// in-memory implementations.
type Recorder struct {
	mu     sync.Mutex
	sent   []Message
	FailOn func(Message) error
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Send(_ context.Context, msg Message) (Receipt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailOn != nil {
		if err := r.FailOn(msg); err != nil {
			return Receipt{Success: false, Error: err.Error()}, err
		}
	}
	r.sent = append(r.sent, msg)
	return Receipt{Success: true, ID: "recorded"}, nil
}

func (r *Recorder) Sent() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.sent))
	copy(out, r.sent)
	return out
}

// SentOfKind filters captured messages by template kind.
func (r *Recorder) SentOfKind(kind Kind) []Message {
	var out []Message
	for _, msg := range r.Sent() {
		if msg.Kind == kind {
			out = append(out, msg)
		}
	}
	return out
}
