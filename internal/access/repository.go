// Package access answers who may watch a recording. Grants are written by the checkout
// and admin flows; this package only reads them.
package access

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/matchvault/backend/internal/apperr"
	"github.com/matchvault/backend/internal/models"
)

// Repository reads recording access grants.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an access repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ActiveRecipients returns users holding an unexpired, unrevoked grant on the recording,
// plus members of the recording's organization.
func (r *Repository) ActiveRecipients(ctx context.Context, recordingID uuid.UUID) ([]models.Recipient, error) {
	const q = `SELECT DISTINCT u.id, u.email, COALESCE(u.full_name, '')
		FROM users u
		WHERE u.id IN (
			SELECT ra.user_id FROM recording_access ra
			WHERE ra.recording_id = $1
				AND ra.revoked_at IS NULL
				AND (ra.expires_at IS NULL OR ra.expires_at > NOW())
			UNION
			SELECT ou.user_id FROM organization_users ou
			INNER JOIN recordings rec ON rec.organization_id = ou.organization_id
			WHERE rec.id = $1
		)
		ORDER BY u.email`
	rows, err := r.pool.Query(ctx, q, recordingID)
	if err != nil {
		return nil, apperr.Database("list recording recipients", err)
	}
	defer rows.Close()
	var list []models.Recipient
	for rows.Next() {
		var rc models.Recipient
		if err := rows.Scan(&rc.UserID, &rc.Email, &rc.FullName); err != nil {
			return nil, apperr.Database("scan recipient", err)
		}
		list = append(list, rc)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Database("list recording recipients", err)
	}
	return list, nil
}

// HasAccess reports whether a user may play the recording.
func (r *Repository) HasAccess(ctx context.Context, recordingID, userID uuid.UUID) (bool, error) {
	recipients, err := r.ActiveRecipients(ctx, recordingID)
	if err != nil {
		return false, err
	}
	for _, rc := range recipients {
		if rc.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}
