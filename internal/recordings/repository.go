package recordings

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/matchvault/backend/internal/apperr"
	"github.com/matchvault/backend/internal/models"
)

const recordingColumns = `id, external_session_id, COALESCE(external_production_id,''), title, COALESCE(description,''),
	business_date, storage_key, file_size_bytes, status, organization_id, transferred_at, created_at, updated_at`

// Repository handles recording persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a recordings repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanRecording(row pgx.Row) (*models.Recording, error) {
	var rec models.Recording
	err := row.Scan(&rec.ID, &rec.ExternalSessionID, &rec.ExternalProductionID, &rec.Title, &rec.Description,
		&rec.BusinessDate, &rec.StorageKey, &rec.FileSizeBytes, &rec.Status, &rec.OrganizationID, &rec.TransferredAt,
		&rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// GetByID returns a recording by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Recording, error) {
	q := `SELECT ` + recordingColumns + ` FROM recordings WHERE id = $1`
	rec, err := scanRecording(r.pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("get recording", "recording not found")
		}
		return nil, apperr.Database("get recording", err)
	}
	return rec, nil
}

// GetByExternalSessionID returns the recording for a platform session, or nil if none exists.
func (r *Repository) GetByExternalSessionID(ctx context.Context, sessionID string) (*models.Recording, error) {
	q := `SELECT ` + recordingColumns + ` FROM recordings WHERE external_session_id = $1`
	rec, err := scanRecording(r.pool.QueryRow(ctx, q, sessionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, apperr.Database("get recording by session", err)
	}
	return rec, nil
}

// ListKnown returns every recording linked to a platform session, keyed by session id.
func (r *Repository) ListKnown(ctx context.Context) (map[string]*models.Recording, error) {
	q := `SELECT ` + recordingColumns + ` FROM recordings WHERE external_session_id IS NOT NULL`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, apperr.Database("list known recordings", err)
	}
	defer rows.Close()
	known := make(map[string]*models.Recording)
	for rows.Next() {
		rec, err := scanRecording(rows)
		if err != nil {
			return nil, apperr.Database("scan recording", err)
		}
		known[rec.SessionID()] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Database("list known recordings", err)
	}
	return known, nil
}

// Upsert inserts or updates the recording for in.ExternalSessionID. The unique
// external_session_id constraint is the conflict target, so concurrent callers
// converge on one row.
func (r *Repository) Upsert(ctx context.Context, in models.RecordingUpsert) (*models.Recording, error) {
	q := `INSERT INTO recordings (id, external_session_id, external_production_id, title, description, business_date,
			storage_key, file_size_bytes, status, organization_id, transferred_at)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (external_session_id) DO UPDATE SET
			external_production_id = EXCLUDED.external_production_id,
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			business_date = EXCLUDED.business_date,
			storage_key = EXCLUDED.storage_key,
			file_size_bytes = EXCLUDED.file_size_bytes,
			status = EXCLUDED.status,
			organization_id = COALESCE(EXCLUDED.organization_id, recordings.organization_id),
			transferred_at = EXCLUDED.transferred_at,
			updated_at = NOW()
		RETURNING ` + recordingColumns
	rec, err := scanRecording(r.pool.QueryRow(ctx, q,
		in.ExternalSessionID, in.ExternalProductionID, in.Title, in.Description, in.BusinessDate,
		in.StorageKey, in.FileSizeBytes, in.Status, in.OrganizationID, in.TransferredAt,
	))
	if err != nil {
		return nil, apperr.Database("upsert recording", err)
	}
	return rec, nil
}

// UpdateStorageKey points an existing recording at a new object key.
func (r *Repository) UpdateStorageKey(ctx context.Context, id uuid.UUID, key string) error {
	const q = `UPDATE recordings SET storage_key = $1, updated_at = NOW() WHERE id = $2`
	tag, err := r.pool.Exec(ctx, q, key, id)
	if err != nil {
		return apperr.Database("update storage key", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("update storage key", "recording not found")
	}
	return nil
}

// UpdateStatus sets recording status.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	const q = `UPDATE recordings SET status = $1, updated_at = NOW() WHERE id = $2`
	if _, err := r.pool.Exec(ctx, q, status, id); err != nil {
		return apperr.Database("update recording status", err)
	}
	return nil
}
