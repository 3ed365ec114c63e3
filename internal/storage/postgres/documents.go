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

type DocumentStore struct {
	db *sql.DB
}

func NewDocumentStore(db *sql.DB) *DocumentStore {
	return &DocumentStore{db: db}
}

func (s *DocumentStore) Save(ctx context.Context, doc domain.Document) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (id, subcontractor_id, project_id, received_at, status)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET received_at = $4, status = $5`,
		doc.ID, doc.SubcontractorID, doc.ProjectID, doc.ReceivedAt, string(doc.Status),
	)
	if err != nil {
		return fmt.Errorf("save document: %w", err)
	}
	return nil
}

func (s *DocumentStore) FindByID(ctx context.Context, id string) (domain.Document, error) {
	var (
		doc    domain.Document
		status string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, subcontractor_id, project_id, received_at, status
		FROM documents WHERE id = $1`, id,
	).Scan(&doc.ID, &doc.SubcontractorID, &doc.ProjectID, &doc.ReceivedAt, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Document{}, storage.ErrNotFound
	}
	if err != nil {
		return domain.Document{}, fmt.Errorf("find document: %w", err)
	}
	doc.Status = domain.DocumentStatus(status)
	return doc, nil
}

// ListByProject returns documents newest first, matching what the aggregation
// join expects.
func (s *DocumentStore) ListByProject(ctx context.Context, projectID string) ([]domain.Document, error) {
	return s.list(ctx, `
		SELECT id, subcontractor_id, project_id, received_at, status
		FROM documents WHERE project_id = $1
		ORDER BY received_at DESC, id`, projectID)
}

func (s *DocumentStore) ListByPair(ctx context.Context, projectID, subcontractorID string) ([]domain.Document, error) {
	return s.list(ctx, `
		SELECT id, subcontractor_id, project_id, received_at, status
		FROM documents WHERE project_id = $1 AND subcontractor_id = $2
		ORDER BY received_at DESC, id`, projectID, subcontractorID)
}

func (s *DocumentStore) list(ctx context.Context, query string, args ...any) ([]domain.Document, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var out []domain.Document
	for rows.Next() {
		var (
			doc    domain.Document
			status string
		)
		if err := rows.Scan(&doc.ID, &doc.SubcontractorID, &doc.ProjectID, &doc.ReceivedAt, &status); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		doc.Status = domain.DocumentStatus(status)
		out = append(out, doc)
	}
	return out, rows.Err()
}

type VerificationStore struct {
	db *sql.DB
}

func NewVerificationStore(db *sql.DB) *VerificationStore {
	return &VerificationStore{db: db}
}

const verificationColumns = `
	id, document_id, project_id, status, confidence,
	policy_number, insurer, policy_end_date, coverage_amount,
	field_confidence, deficiencies, reviewer_id, reviewed_at`

func (s *VerificationStore) Save(ctx context.Context, v domain.Verification) error {
	fieldConfidence, err := marshalJSON(v.Extracted.FieldConfidence, len(v.Extracted.FieldConfidence) == 0)
	if err != nil {
		return err
	}
	deficiencies, err := marshalJSON(v.Deficiencies, len(v.Deficiencies) == 0)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO verifications (
			id, document_id, project_id, status, confidence,
			policy_number, insurer, policy_end_date, coverage_amount,
			field_confidence, deficiencies, reviewer_id, reviewed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			status = $4, confidence = $5, policy_number = $6, insurer = $7,
			policy_end_date = $8, coverage_amount = $9, field_confidence = $10,
			deficiencies = $11, reviewer_id = $12, reviewed_at = $13`,
		v.ID, v.DocumentID, v.ProjectID, string(v.Status), v.Confidence,
		v.Extracted.PolicyNumber, v.Extracted.Insurer,
		nullTimePtr(v.Extracted.PolicyEndDate), nullFloatPtr(v.Extracted.CoverageAmount),
		fieldConfidence, deficiencies, v.ReviewerID, nullTimePtr(v.ReviewedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("save verification: %w", err)
	}
	return nil
}

func (s *VerificationStore) FindByID(ctx context.Context, id string) (domain.Verification, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+verificationColumns+` FROM verifications WHERE id = $1`, id)
	return scanVerificationRow(row, "find verification")
}

func (s *VerificationStore) FindByDocument(ctx context.Context, documentID string) (domain.Verification, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+verificationColumns+` FROM verifications WHERE document_id = $1`, documentID)
	return scanVerificationRow(row, "find verification by document")
}

func (s *VerificationStore) ListByProject(ctx context.Context, projectID string) ([]domain.Verification, error) {
	return s.list(ctx,
		`SELECT `+verificationColumns+` FROM verifications WHERE project_id = $1 ORDER BY id`, projectID)
}

func (s *VerificationStore) ListExpiring(ctx context.Context, projectIDs []string, from, to time.Time) ([]domain.Verification, error) {
	if len(projectIDs) == 0 {
		return nil, nil
	}
	return s.list(ctx, `
		SELECT `+verificationColumns+`
		FROM verifications
		WHERE project_id = ANY($1) AND policy_end_date BETWEEN $2 AND $3
		ORDER BY id`, projectIDs, from, to)
}

func (s *VerificationStore) list(ctx context.Context, query string, args ...any) ([]domain.Verification, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list verifications: %w", err)
	}
	defer rows.Close()

	var out []domain.Verification
	for rows.Next() {
		v, err := scanVerificationRow(rows, "scan verification")
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func scanVerificationRow(row rowScanner, op string) (domain.Verification, error) {
	var (
		v               domain.Verification
		status          string
		policyEnd       sql.NullTime
		coverage        sql.NullFloat64
		fieldConfidence []byte
		deficiencies    []byte
		reviewedAt      sql.NullTime
	)
	err := row.Scan(&v.ID, &v.DocumentID, &v.ProjectID, &status, &v.Confidence,
		&v.Extracted.PolicyNumber, &v.Extracted.Insurer, &policyEnd, &coverage,
		&fieldConfidence, &deficiencies, &v.ReviewerID, &reviewedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Verification{}, storage.ErrNotFound
	}
	if err != nil {
		return domain.Verification{}, fmt.Errorf("%s: %w", op, err)
	}
	v.Status = domain.VerificationStatus(status)
	v.Extracted.PolicyEndDate = timePtr(policyEnd)
	v.Extracted.CoverageAmount = floatPtr(coverage)
	v.ReviewedAt = timePtr(reviewedAt)
	if err := unmarshalJSON(fieldConfidence, &v.Extracted.FieldConfidence); err != nil {
		return domain.Verification{}, err
	}
	if err := unmarshalJSON(deficiencies, &v.Deficiencies); err != nil {
		return domain.Verification{}, err
	}
	return v, nil
}
