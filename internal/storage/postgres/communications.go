package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"coverguard/internal/domain"
)

type CommunicationStore struct {
	db *sql.DB
}

func NewCommunicationStore(db *sql.DB) *CommunicationStore {
	return &CommunicationStore{db: db}
}

const communicationColumns = `
	id, subcontractor_id, project_id, verification_id, type, channel,
	recipient, status, sent_at, follow_up_number, escalated`

func (s *CommunicationStore) Save(ctx context.Context, comm domain.Communication) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO communications (
			id, subcontractor_id, project_id, verification_id, type, channel,
			recipient, status, sent_at, follow_up_number, escalated)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET status = $8`,
		comm.ID, comm.SubcontractorID, comm.ProjectID, comm.VerificationID,
		string(comm.Type), string(comm.Channel), comm.Recipient,
		string(comm.Status), comm.SentAt, comm.FollowUpNumber, comm.Escalated,
	)
	if err != nil {
		return fmt.Errorf("save communication: %w", err)
	}
	return nil
}

// ListByProject returns communications newest first.
func (s *CommunicationStore) ListByProject(ctx context.Context, projectID string) ([]domain.Communication, error) {
	return s.list(ctx, `
		SELECT `+communicationColumns+`
		FROM communications WHERE project_id = $1
		ORDER BY sent_at DESC, id`, projectID)
}

func (s *CommunicationStore) ListByVerification(ctx context.Context, verificationID string) ([]domain.Communication, error) {
	return s.list(ctx, `
		SELECT `+communicationColumns+`
		FROM communications WHERE verification_id = $1
		ORDER BY sent_at DESC, id`, verificationID)
}

func (s *CommunicationStore) SentOnDay(ctx context.Context, subcontractorID string, ctype domain.CommunicationType, day string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM communications
			WHERE subcontractor_id = $1 AND type = $2
			  AND status <> 'failed'
			  AND to_char(sent_at AT TIME ZONE 'UTC', 'YYYY-MM-DD') = $3
		)`, subcontractorID, string(ctype), day,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check sent on day: %w", err)
	}
	return exists, nil
}

func (s *CommunicationStore) SentForAssignmentOnDay(ctx context.Context, projectID, subcontractorID string, ctype domain.CommunicationType, day string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM communications
			WHERE project_id = $1 AND subcontractor_id = $2 AND type = $3
			  AND status <> 'failed'
			  AND to_char(sent_at AT TIME ZONE 'UTC', 'YYYY-MM-DD') = $4
		)`, projectID, subcontractorID, string(ctype), day,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check sent for assignment on day: %w", err)
	}
	return exists, nil
}

func (s *CommunicationStore) list(ctx context.Context, query string, args ...any) ([]domain.Communication, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list communications: %w", err)
	}
	defer rows.Close()

	var out []domain.Communication
	for rows.Next() {
		var (
			comm    domain.Communication
			ctype   string
			channel string
			status  string
		)
		if err := rows.Scan(&comm.ID, &comm.SubcontractorID, &comm.ProjectID, &comm.VerificationID,
			&ctype, &channel, &comm.Recipient, &status, &comm.SentAt,
			&comm.FollowUpNumber, &comm.Escalated); err != nil {
			return nil, fmt.Errorf("scan communication: %w", err)
		}
		comm.Type = domain.CommunicationType(ctype)
		comm.Channel = domain.Channel(channel)
		comm.Status = domain.CommunicationStatus(status)
		out = append(out, comm)
	}
	return out, rows.Err()
}

type NotificationStore struct {
	db *sql.DB
}

func NewNotificationStore(db *sql.DB) *NotificationStore {
	return &NotificationStore{db: db}
}

func (s *NotificationStore) Save(ctx context.Context, notification domain.Notification) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (id, user_id, company_id, type, title, message, link, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET read = $8`,
		notification.ID, notification.UserID, notification.CompanyID, notification.Type,
		notification.Title, notification.Message, notification.Link, notification.Read,
		notification.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save notification: %w", err)
	}
	return nil
}

func (s *NotificationStore) ListByUser(ctx context.Context, userID string) ([]domain.Notification, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, company_id, type, title, message, link, read, created_at
		FROM notifications WHERE user_id = $1
		ORDER BY created_at DESC, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var out []domain.Notification
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.CompanyID, &n.Type, &n.Title,
			&n.Message, &n.Link, &n.Read, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
