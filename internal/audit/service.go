package audit

import (
	"context"
	"time"
)

// Service captures structured audit events. Appends are synchronous so a
// recorded transition is durable before the caller proceeds; an optional
// mirror channel feeds asynchronous sinks (Kafka) without blocking writers.
type Service struct {
	store  Store
	mirror chan<- Event
}

// Option configures a Service.
type Option func(*Service)

// WithMirror attaches a channel drained by a Worker into a secondary sink.
// Sends never block; if the channel is full the mirror simply misses the
// event while the store keeps the durable copy.
func WithMirror(mirror chan<- Event) Option {
	return func(s *Service) { s.mirror = mirror }
}

func NewService(store Store, opts ...Option) *Service {
	s := &Service{store: store}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *Service) Record(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if err := s.store.Append(ctx, event); err != nil {
		return err
	}
	if s.mirror != nil {
		select {
		case s.mirror <- event:
		default:
		}
	}
	return nil
}

func (s *Service) ListRecent(ctx context.Context, limit int) ([]Event, error) {
	return s.store.ListRecent(ctx, limit)
}
