// Package postgres backs the storage interfaces with PostgreSQL. Each store
// mirrors its in-memory counterpart; sql.ErrNoRows maps onto the shared
// sentinel errors so callers never see driver details.
package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"

	"coverguard/internal/storage"
)

//go:embed schema.sql
var schema string

// Open dials the database and verifies the connection.
func Open(ctx context.Context, url string) (*sql.DB, error) {
	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// Migrate applies the embedded schema. Statements are idempotent, so Migrate
// is safe to run on every start.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// NewStores bundles one store per entity over a shared pool.
func NewStores(db *sql.DB) *storage.Stores {
	return &storage.Stores{
		Companies:      NewCompanyStore(db),
		Users:          NewUserStore(db),
		Projects:       NewProjectStore(db),
		Subcontractors: NewSubcontractorStore(db),
		Assignments:    NewAssignmentStore(db),
		Documents:      NewDocumentStore(db),
		Verifications:  NewVerificationStore(db),
		Communications: NewCommunicationStore(db),
		Exceptions:     NewExceptionStore(db),
		Notifications:  NewNotificationStore(db),
		JobRuns:        NewJobRunStore(db),
	}
}

// marshalJSON stores nil collections as SQL NULL rather than the string
// "null".
func marshalJSON(v any, empty bool) (any, error) {
	if empty {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal json column: %w", err)
	}
	return b, nil
}

func unmarshalJSON(raw []byte, into any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, into); err != nil {
		return fmt.Errorf("unmarshal json column: %w", err)
	}
	return nil
}
