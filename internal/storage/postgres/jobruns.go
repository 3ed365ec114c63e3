package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"coverguard/internal/domain"
	"coverguard/internal/storage"
)

type JobRunStore struct {
	db *sql.DB
}

func NewJobRunStore(db *sql.DB) *JobRunStore {
	return &JobRunStore{db: db}
}

func (s *JobRunStore) Create(ctx context.Context, run domain.JobRun) error {
	errs, err := marshalJSON(run.Errors, len(run.Errors) == 0)
	if err != nil {
		return err
	}
	metadata, err := marshalJSON(run.Metadata, len(run.Metadata) == 0)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO job_runs (id, job_name, started_at, finished_at, status, processed, errors, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		run.ID, run.JobName, run.StartedAt, nullTimePtr(run.FinishedAt),
		string(run.Status), run.Processed, errs, metadata,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("create job run: %w", err)
	}
	return nil
}

func (s *JobRunStore) Update(ctx context.Context, run domain.JobRun) error {
	errs, err := marshalJSON(run.Errors, len(run.Errors) == 0)
	if err != nil {
		return err
	}
	metadata, err := marshalJSON(run.Metadata, len(run.Metadata) == 0)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE job_runs
		SET finished_at = $2, status = $3, processed = $4, errors = $5, metadata = $6
		WHERE id = $1`,
		run.ID, nullTimePtr(run.FinishedAt), string(run.Status), run.Processed, errs, metadata,
	)
	if err != nil {
		return fmt.Errorf("update job run: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update job run: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *JobRunStore) FindByID(ctx context.Context, id string) (domain.JobRun, error) {
	var (
		run        domain.JobRun
		finishedAt sql.NullTime
		status     string
		errsRaw    []byte
		metaRaw    []byte
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, job_name, started_at, finished_at, status, processed, errors, metadata
		FROM job_runs WHERE id = $1`, id,
	).Scan(&run.ID, &run.JobName, &run.StartedAt, &finishedAt, &status, &run.Processed, &errsRaw, &metaRaw)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.JobRun{}, storage.ErrNotFound
	}
	if err != nil {
		return domain.JobRun{}, fmt.Errorf("find job run: %w", err)
	}
	run.FinishedAt = timePtr(finishedAt)
	run.Status = domain.JobStatus(status)
	if err := unmarshalJSON(errsRaw, &run.Errors); err != nil {
		return domain.JobRun{}, err
	}
	if err := unmarshalJSON(metaRaw, &run.Metadata); err != nil {
		return domain.JobRun{}, err
	}
	return run, nil
}
