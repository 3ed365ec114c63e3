package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"coverguard/internal/audit"
)

// AuditStore persists audit events append-only. The sequence column gives a
// total order without trusting clock resolution.
type AuditStore struct {
	db *sql.DB
}

func NewAuditStore(db *sql.DB) *AuditStore {
	return &AuditStore{db: db}
}

func (s *AuditStore) Append(ctx context.Context, event audit.Event) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_events (ts, company_id, actor, subject, subject_id, action, detail)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		event.Timestamp, event.CompanyID, event.Actor, event.Subject,
		event.SubjectID, event.Action, event.Detail,
	)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

func (s *AuditStore) ListRecent(ctx context.Context, limit int) ([]audit.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ts, company_id, actor, subject, subject_id, action, detail
		FROM audit_events ORDER BY seq DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var out []audit.Event
	for rows.Next() {
		var event audit.Event
		if err := rows.Scan(&event.Timestamp, &event.CompanyID, &event.Actor,
			&event.Subject, &event.SubjectID, &event.Action, &event.Detail); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		out = append(out, event)
	}
	return out, rows.Err()
}
