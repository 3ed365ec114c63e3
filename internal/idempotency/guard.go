// Package idempotency provides a fast-path daily alert-key guard. The
// persisted communication history remains the authoritative duplicate check;
// the guard only narrows the check-then-send race window between overlapping
// runs. Guard failures are never fatal to a job.
package idempotency

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Guard reserves a key. Acquire returns false when the key was already taken
// within its retention window.
type Guard interface {
	Acquire(ctx context.Context, key string) (bool, error)
}

// Key builds the (subject, alert-type, day) tuple every reminder-class send
// is deduplicated on.
func Key(alertType, subjectID string, day time.Time) string {
	return fmt.Sprintf("alert:%s:%s:%s", alertType, subjectID, day.UTC().Format("2006-01-02"))
}

// MemoryGuard is the single-process implementation.
type MemoryGuard struct {
	mu   sync.Mutex
	seen map[string]time.Time
	ttl  time.Duration
	now  func() time.Time
}

func NewMemoryGuard(ttl time.Duration) *MemoryGuard {
	return &MemoryGuard{
		seen: make(map[string]time.Time),
		ttl:  ttl,
		now:  time.Now,
	}
}

func (g *MemoryGuard) Acquire(_ context.Context, key string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	now := g.now()
	if takenAt, ok := g.seen[key]; ok && now.Sub(takenAt) < g.ttl {
		return false, nil
	}
	g.seen[key] = now
	return true, nil
}
