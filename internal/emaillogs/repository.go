package emaillogs

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/matchvault/backend/internal/apperr"
	"github.com/matchvault/backend/internal/models"
)

// Repository handles email_logs persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an email logs repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Record inserts a delivery outcome.
func (r *Repository) Record(ctx context.Context, el *models.EmailLog) error {
	const q = `INSERT INTO email_logs (id, recording_id, email_type, recipient_email, subject, status, sent_at, error_message)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, NULLIF($7, ''))
		RETURNING id, created_at`
	if el.Status == models.EmailLogStatusSent && el.SentAt == nil {
		now := time.Now()
		el.SentAt = &now
	}
	if err := r.pool.QueryRow(ctx, q, el.RecordingID, el.EmailType, el.RecipientEmail, el.Subject, el.Status, el.SentAt, el.ErrorMessage).
		Scan(&el.ID, &el.CreatedAt); err != nil {
		return apperr.Database("record email log", err)
	}
	return nil
}

// ListByRecording returns email logs for a recording, newest first.
func (r *Repository) ListByRecording(ctx context.Context, recordingID uuid.UUID) ([]*models.EmailLog, error) {
	const q = `SELECT id, recording_id, email_type, recipient_email, subject, status, sent_at, error_message, created_at
		FROM email_logs
		WHERE recording_id = $1
		ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, q, recordingID)
	if err != nil {
		return nil, apperr.Database("list email logs", err)
	}
	defer rows.Close()
	var list []*models.EmailLog
	for rows.Next() {
		var el models.EmailLog
		var subject, errMsg *string
		if err := rows.Scan(&el.ID, &el.RecordingID, &el.EmailType, &el.RecipientEmail, &subject, &el.Status, &el.SentAt, &errMsg, &el.CreatedAt); err != nil {
			return nil, apperr.Database("scan email log", err)
		}
		if subject != nil {
			el.Subject = *subject
		}
		if errMsg != nil {
			el.ErrorMessage = *errMsg
		}
		list = append(list, &el)
	}
	return list, rows.Err()
}
