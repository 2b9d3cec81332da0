package organizations

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/matchvault/backend/internal/apperr"
	"github.com/matchvault/backend/internal/models"
)

// Repository reads organizations and the scene → organization mapping. Both are owned
// by the admin side of the marketplace; the sync pipeline only reads them.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an organizations repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetByID returns an organization by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Organization, error) {
	const q = `SELECT id, name, slug, created_at, updated_at FROM organizations WHERE id = $1`
	var org models.Organization
	err := r.pool.QueryRow(ctx, q, id).Scan(&org.ID, &org.Name, &org.Slug, &org.CreatedAt, &org.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("get organization", "organization not found")
		}
		return nil, apperr.Database("get organization", err)
	}
	return &org, nil
}

// VenueName returns the display name of an organization, or "" when unknown.
func (r *Repository) VenueName(ctx context.Context, id uuid.UUID) (string, error) {
	org, err := r.GetByID(ctx, id)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return "", nil
		}
		return "", err
	}
	return org.Name, nil
}

// OrganizationForScene resolves the organization owning a camera scene. Unmapped scenes yield nil.
func (r *Repository) OrganizationForScene(ctx context.Context, sceneID string) (*uuid.UUID, error) {
	if sceneID == "" {
		return nil, nil
	}
	const q = `SELECT organization_id FROM scene_organizations WHERE scene_id = $1`
	var id uuid.UUID
	err := r.pool.QueryRow(ctx, q, sceneID).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, apperr.Database("resolve scene organization", err)
	}
	return &id, nil
}

// ListSceneMappings returns every scene → organization link, ordered by scene.
func (r *Repository) ListSceneMappings(ctx context.Context) ([]models.SceneMapping, error) {
	const q = `SELECT scene_id, organization_id, created_at FROM scene_organizations ORDER BY scene_id`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, apperr.Database("list scene mappings", err)
	}
	defer rows.Close()
	var list []models.SceneMapping
	for rows.Next() {
		var m models.SceneMapping
		if err := rows.Scan(&m.SceneID, &m.OrganizationID, &m.CreatedAt); err != nil {
			return nil, apperr.Database("scan scene mapping", err)
		}
		list = append(list, m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Database("list scene mappings", err)
	}
	return list, nil
}

// MapScene links a scene to an organization, replacing any previous owner.
func (r *Repository) MapScene(ctx context.Context, sceneID string, orgID uuid.UUID) (*models.SceneMapping, error) {
	const q = `INSERT INTO scene_organizations (scene_id, organization_id) VALUES ($1, $2)
		ON CONFLICT (scene_id) DO UPDATE SET organization_id = EXCLUDED.organization_id
		RETURNING scene_id, organization_id, created_at`
	var m models.SceneMapping
	if err := r.pool.QueryRow(ctx, q, sceneID, orgID).Scan(&m.SceneID, &m.OrganizationID, &m.CreatedAt); err != nil {
		return nil, apperr.Database("map scene", err)
	}
	return &m, nil
}
