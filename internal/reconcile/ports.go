package reconcile

import (
	"context"

	"github.com/google/uuid"

	"github.com/matchvault/backend/internal/models"
	"github.com/matchvault/backend/internal/platform"
	"github.com/matchvault/backend/pkg/storage"
)

// Directory is the external session directory. *platform.Client satisfies it.
type Directory interface {
	ListFinishedSessions(ctx context.Context) ([]platform.Session, error)
	LiveProduction(ctx context.Context, sessionID string) (platform.Production, error)
	GetOrCreateDownloadExport(ctx context.Context, productionID string) (platform.Export, error)
	PollExportProgress(ctx context.Context, exportID string) (int, error)
	GetDownloadLocator(ctx context.Context, exportID string) (string, error)
}

// ObjectStore is the recordings bucket. *storage.S3 satisfies it.
type ObjectStore interface {
	Exists(ctx context.Context, key string) (bool, error)
	ObjectSize(ctx context.Context, key string) (int64, error)
	UploadFromURL(ctx context.Context, sourceURL, key string) (storage.UploadResult, error)
	Move(ctx context.Context, sourceKey, destKey string) (storage.MoveResult, error)
}

// RecordStore is the recordings table. *recordings.Repository satisfies it.
type RecordStore interface {
	ListKnown(ctx context.Context) (map[string]*models.Recording, error)
	Upsert(ctx context.Context, in models.RecordingUpsert) (*models.Recording, error)
	UpdateStorageKey(ctx context.Context, id uuid.UUID, key string) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
}

// Notifier is told about recordings that just became available. Implementations must not block
// on delivery and never fail the caller.
type Notifier interface {
	RecordingReady(ctx context.Context, rec *models.Recording)
}

// OrgResolver maps a camera scene to the owning organization.
type OrgResolver interface {
	OrganizationForScene(ctx context.Context, sceneID string) (*uuid.UUID, error)
}

// Metrics receives per-session outcomes. *metrics.Sync satisfies it.
type Metrics interface {
	ObserveResult(outcome string, sizeBytes int64)
	ObservePending(n int)
}

type nopNotifier struct{}

func (nopNotifier) RecordingReady(context.Context, *models.Recording) {}

type nopOrgs struct{}

func (nopOrgs) OrganizationForScene(context.Context, string) (*uuid.UUID, error) { return nil, nil }

type nopMetrics struct{}

func (nopMetrics) ObserveResult(string, int64) {}
func (nopMetrics) ObservePending(int)          {}
