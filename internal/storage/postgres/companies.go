package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"coverguard/internal/domain"
	"coverguard/internal/storage"
)

type CompanyStore struct {
	db *sql.DB
}

func NewCompanyStore(db *sql.DB) *CompanyStore {
	return &CompanyStore{db: db}
}

func (s *CompanyStore) Save(ctx context.Context, company domain.Company) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO companies (id, name, active, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET name = $2, active = $3`,
		company.ID, company.Name, company.Active, company.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save company: %w", err)
	}
	return nil
}

func (s *CompanyStore) FindByID(ctx context.Context, id string) (domain.Company, error) {
	var company domain.Company
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, active, created_at FROM companies WHERE id = $1`, id,
	).Scan(&company.ID, &company.Name, &company.Active, &company.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Company{}, storage.ErrNotFound
	}
	if err != nil {
		return domain.Company{}, fmt.Errorf("find company: %w", err)
	}
	return company, nil
}

func (s *CompanyStore) ListActive(ctx context.Context) ([]domain.Company, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, active, created_at FROM companies WHERE active ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list active companies: %w", err)
	}
	defer rows.Close()

	var out []domain.Company
	for rows.Next() {
		var company domain.Company
		if err := rows.Scan(&company.ID, &company.Name, &company.Active, &company.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan company: %w", err)
		}
		out = append(out, company)
	}
	return out, rows.Err()
}

type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) Save(ctx context.Context, user domain.User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, company_id, name, email, phone, is_admin)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			company_id = $2, name = $3, email = $4, phone = $5, is_admin = $6`,
		user.ID, user.CompanyID, user.Name, user.Email, user.Phone, user.Admin,
	)
	if err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	return nil
}

func (s *UserStore) FindByID(ctx context.Context, id string) (domain.User, error) {
	var user domain.User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, company_id, name, email, phone, is_admin FROM users WHERE id = $1`, id,
	).Scan(&user.ID, &user.CompanyID, &user.Name, &user.Email, &user.Phone, &user.Admin)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, storage.ErrNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

func (s *UserStore) ListAdmins(ctx context.Context, companyID string) ([]domain.User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, company_id, name, email, phone, is_admin
		FROM users WHERE company_id = $1 AND is_admin ORDER BY id`, companyID)
	if err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	defer rows.Close()

	var out []domain.User
	for rows.Next() {
		var user domain.User
		if err := rows.Scan(&user.ID, &user.CompanyID, &user.Name, &user.Email, &user.Phone, &user.Admin); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, user)
	}
	return out, rows.Err()
}
