package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"coverguard/internal/domain"
	"coverguard/internal/storage"
)

type ExceptionStore struct {
	db *sql.DB
}

func NewExceptionStore(db *sql.DB) *ExceptionStore {
	return &ExceptionStore{db: db}
}

const exceptionColumns = `
	id, assignment_id, reason, risk_level, created_by, status, expires_at, created_at`

func (s *ExceptionStore) Save(ctx context.Context, exception domain.Exception) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO exceptions (id, assignment_id, reason, risk_level, created_by, status, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			reason = $3, risk_level = $4, status = $6, expires_at = $7`,
		exception.ID, exception.AssignmentID, exception.Reason, exception.RiskLevel,
		exception.CreatedBy, string(exception.Status), nullTimePtr(exception.ExpiresAt),
		exception.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save exception: %w", err)
	}
	return nil
}

func (s *ExceptionStore) FindByID(ctx context.Context, id string) (domain.Exception, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+exceptionColumns+` FROM exceptions WHERE id = $1`, id)
	exception, err := scanException(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Exception{}, storage.ErrNotFound
	}
	if err != nil {
		return domain.Exception{}, fmt.Errorf("find exception: %w", err)
	}
	return exception, nil
}

func (s *ExceptionStore) ListByAssignment(ctx context.Context, assignmentID string) ([]domain.Exception, error) {
	return s.list(ctx,
		`SELECT `+exceptionColumns+` FROM exceptions WHERE assignment_id = $1 ORDER BY created_at DESC, id`,
		assignmentID)
}

func (s *ExceptionStore) ListActiveExpired(ctx context.Context, now time.Time) ([]domain.Exception, error) {
	return s.list(ctx, `
		SELECT `+exceptionColumns+`
		FROM exceptions
		WHERE status = $1 AND expires_at IS NOT NULL AND expires_at < $2
		ORDER BY id`,
		string(domain.ExceptionActive), now)
}

func (s *ExceptionStore) CountActive(ctx context.Context, assignmentIDs []string) (map[string]int, error) {
	out := make(map[string]int, len(assignmentIDs))
	if len(assignmentIDs) == 0 {
		return out, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT assignment_id, COUNT(*)
		FROM exceptions
		WHERE status = $1 AND assignment_id = ANY($2)
		GROUP BY assignment_id`,
		string(domain.ExceptionActive), assignmentIDs)
	if err != nil {
		return nil, fmt.Errorf("count active exceptions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id    string
			count int
		)
		if err := rows.Scan(&id, &count); err != nil {
			return nil, fmt.Errorf("scan exception count: %w", err)
		}
		out[id] = count
	}
	return out, rows.Err()
}

func (s *ExceptionStore) UpdateStatus(ctx context.Context, id string, status domain.ExceptionStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE exceptions SET status = $2 WHERE id = $1`, id, string(status))
	if err != nil {
		return fmt.Errorf("update exception status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update exception status: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *ExceptionStore) list(ctx context.Context, query string, args ...any) ([]domain.Exception, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list exceptions: %w", err)
	}
	defer rows.Close()

	var out []domain.Exception
	for rows.Next() {
		exception, err := scanException(rows)
		if err != nil {
			return nil, fmt.Errorf("scan exception: %w", err)
		}
		out = append(out, exception)
	}
	return out, rows.Err()
}

func scanException(row rowScanner) (domain.Exception, error) {
	var (
		exception domain.Exception
		status    string
		expiresAt sql.NullTime
	)
	if err := row.Scan(&exception.ID, &exception.AssignmentID, &exception.Reason,
		&exception.RiskLevel, &exception.CreatedBy, &status, &expiresAt,
		&exception.CreatedAt); err != nil {
		return domain.Exception{}, err
	}
	exception.Status = domain.ExceptionStatus(status)
	exception.ExpiresAt = timePtr(expiresAt)
	return exception, nil
}
