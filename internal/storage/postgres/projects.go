package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"coverguard/internal/domain"
	"coverguard/internal/storage"
)

type ProjectStore struct {
	db *sql.DB
}

func NewProjectStore(db *sql.DB) *ProjectStore {
	return &ProjectStore{db: db}
}

func (s *ProjectStore) Save(ctx context.Context, project domain.Project) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO projects (id, company_id, name, status, manager_id, end_date)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			company_id = $2, name = $3, status = $4, manager_id = $5, end_date = $6`,
		project.ID, project.CompanyID, project.Name, string(project.Status),
		project.ManagerID, nullTimePtr(project.EndDate),
	)
	if err != nil {
		return fmt.Errorf("save project: %w", err)
	}
	return nil
}

func (s *ProjectStore) FindByID(ctx context.Context, id string) (domain.Project, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, company_id, name, status, manager_id, end_date
		FROM projects WHERE id = $1`, id)
	project, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Project{}, storage.ErrNotFound
	}
	if err != nil {
		return domain.Project{}, fmt.Errorf("find project: %w", err)
	}
	return project, nil
}

func (s *ProjectStore) ListActiveByCompany(ctx context.Context, companyID string) ([]domain.Project, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, company_id, name, status, manager_id, end_date
		FROM projects WHERE company_id = $1 AND status <> $2 ORDER BY id`,
		companyID, string(domain.ProjectCompleted))
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var out []domain.Project
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		out = append(out, project)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (domain.Project, error) {
	var (
		project domain.Project
		status  string
		endDate sql.NullTime
	)
	if err := row.Scan(&project.ID, &project.CompanyID, &project.Name, &status, &project.ManagerID, &endDate); err != nil {
		return domain.Project{}, err
	}
	project.Status = domain.ProjectStatus(status)
	project.EndDate = timePtr(endDate)
	return project, nil
}

type SubcontractorStore struct {
	db *sql.DB
}

func NewSubcontractorStore(db *sql.DB) *SubcontractorStore {
	return &SubcontractorStore{db: db}
}

func (s *SubcontractorStore) Save(ctx context.Context, sub domain.Subcontractor) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO subcontractors (id, company_id, name, abn, contact_email, contact_phone, broker_email, broker_phone)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = $3, abn = $4, contact_email = $5, contact_phone = $6, broker_email = $7, broker_phone = $8`,
		sub.ID, sub.CompanyID, sub.Name, sub.ABN,
		sub.ContactEmail, sub.ContactPhone, sub.BrokerEmail, sub.BrokerPhone,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("save subcontractor: %w", err)
	}
	return nil
}

func (s *SubcontractorStore) FindByID(ctx context.Context, id string) (domain.Subcontractor, error) {
	var sub domain.Subcontractor
	err := s.db.QueryRowContext(ctx, `
		SELECT id, company_id, name, abn, contact_email, contact_phone, broker_email, broker_phone
		FROM subcontractors WHERE id = $1`, id,
	).Scan(&sub.ID, &sub.CompanyID, &sub.Name, &sub.ABN,
		&sub.ContactEmail, &sub.ContactPhone, &sub.BrokerEmail, &sub.BrokerPhone)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Subcontractor{}, storage.ErrNotFound
	}
	if err != nil {
		return domain.Subcontractor{}, fmt.Errorf("find subcontractor: %w", err)
	}
	return sub, nil
}

func (s *SubcontractorStore) FindByIDs(ctx context.Context, ids []string) (map[string]domain.Subcontractor, error) {
	out := make(map[string]domain.Subcontractor, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, company_id, name, abn, contact_email, contact_phone, broker_email, broker_phone
		FROM subcontractors WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("find subcontractors: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var sub domain.Subcontractor
		if err := rows.Scan(&sub.ID, &sub.CompanyID, &sub.Name, &sub.ABN,
			&sub.ContactEmail, &sub.ContactPhone, &sub.BrokerEmail, &sub.BrokerPhone); err != nil {
			return nil, fmt.Errorf("scan subcontractor: %w", err)
		}
		out[sub.ID] = sub
	}
	return out, rows.Err()
}

type AssignmentStore struct {
	db *sql.DB
}

func NewAssignmentStore(db *sql.DB) *AssignmentStore {
	return &AssignmentStore{db: db}
}

func (s *AssignmentStore) Save(ctx context.Context, assignment domain.Assignment) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO assignments (id, project_id, subcontractor_id, status, on_site_date)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET status = $4, on_site_date = $5`,
		assignment.ID, assignment.ProjectID, assignment.SubcontractorID,
		string(assignment.Status), nullTimePtr(assignment.OnSiteDate),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("save assignment: %w", err)
	}
	return nil
}

func (s *AssignmentStore) FindByID(ctx context.Context, id string) (domain.Assignment, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, project_id, subcontractor_id, status, on_site_date
		FROM assignments WHERE id = $1`, id)
	return scanAssignmentRow(row, "find assignment")
}

func (s *AssignmentStore) FindByPair(ctx context.Context, projectID, subcontractorID string) (domain.Assignment, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, project_id, subcontractor_id, status, on_site_date
		FROM assignments WHERE project_id = $1 AND subcontractor_id = $2`,
		projectID, subcontractorID)
	return scanAssignmentRow(row, "find assignment by pair")
}

func scanAssignmentRow(row rowScanner, op string) (domain.Assignment, error) {
	var (
		assignment domain.Assignment
		status     string
		onSite     sql.NullTime
	)
	err := row.Scan(&assignment.ID, &assignment.ProjectID, &assignment.SubcontractorID, &status, &onSite)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Assignment{}, storage.ErrNotFound
	}
	if err != nil {
		return domain.Assignment{}, fmt.Errorf("%s: %w", op, err)
	}
	assignment.Status = domain.AssignmentStatus(status)
	assignment.OnSiteDate = timePtr(onSite)
	return assignment, nil
}

func (s *AssignmentStore) ListByProject(ctx context.Context, projectID string) ([]domain.Assignment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, project_id, subcontractor_id, status, on_site_date
		FROM assignments WHERE project_id = $1 ORDER BY id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	defer rows.Close()

	var out []domain.Assignment
	for rows.Next() {
		var (
			assignment domain.Assignment
			status     string
			onSite     sql.NullTime
		)
		if err := rows.Scan(&assignment.ID, &assignment.ProjectID, &assignment.SubcontractorID, &status, &onSite); err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		assignment.Status = domain.AssignmentStatus(status)
		assignment.OnSiteDate = timePtr(onSite)
		out = append(out, assignment)
	}
	return out, rows.Err()
}

func (s *AssignmentStore) UpdateStatus(ctx context.Context, id string, status domain.AssignmentStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE assignments SET status = $2 WHERE id = $1`, id, string(status))
	if err != nil {
		return fmt.Errorf("update assignment status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update assignment status: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}
