package reconcile

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/matchvault/backend/internal/apperr"
	"github.com/matchvault/backend/internal/models"
	"github.com/matchvault/backend/internal/platform"
	"github.com/matchvault/backend/pkg/storage"
)

// transfer moves one finished session's recording into the bucket and upserts its record.
// existing is the placeholder row for the session, if any.
func (r *Reconciler) transfer(ctx context.Context, s platform.Session, existing *models.Recording) Result {
	log := r.logger.With(zap.String("session_id", s.ID))

	date, err := s.BusinessDate()
	if err != nil {
		return failed(s.ID, s.Title, apperr.Wrap(apperr.KindUpstream, "parse scheduled start", err))
	}
	prod, err := r.dir.LiveProduction(ctx, s.ID)
	if err != nil {
		return failed(s.ID, s.Title, err)
	}
	key, err := storage.DeriveKey(s.ID, prod.ID, date, r.ext)
	if err != nil {
		return failed(s.ID, s.Title, err)
	}

	var size int64
	present, err := r.objects.Exists(ctx, key)
	if err != nil {
		return failed(s.ID, s.Title, err)
	}
	if present {
		size, err = r.objects.ObjectSize(ctx, key)
		if err != nil {
			return failed(s.ID, s.Title, err)
		}
		log.Info("object already at canonical key, skipping upload", zap.String("storage_key", key))
	} else {
		exp, err := r.dir.GetOrCreateDownloadExport(ctx, prod.ID)
		if err != nil {
			return failed(s.ID, s.Title, err)
		}
		poll, err := r.poller.Wait(ctx, exp.ID, r.dir.PollExportProgress)
		if err != nil {
			return failed(s.ID, s.Title, err)
		}
		if !poll.Done {
			r.markProcessing(ctx, existing)
			log.Info("export still rendering",
				zap.String("export_id", exp.ID),
				zap.Int("progress", poll.Progress),
				zap.Duration("waited", poll.Elapsed),
			)
			return Result{SessionID: s.ID, Title: s.Title, Outcome: OutcomeProcessing, Progress: poll.Progress}
		}
		locator, err := r.dir.GetDownloadLocator(ctx, exp.ID)
		if err != nil {
			return failed(s.ID, s.Title, err)
		}
		up, err := r.objects.UploadFromURL(ctx, locator, key)
		if err != nil {
			return failed(s.ID, s.Title, err)
		}
		size = up.SizeBytes
	}

	rec, err := r.records.Upsert(ctx, models.RecordingUpsert{
		ExternalSessionID:    s.ID,
		ExternalProductionID: prod.ID,
		Title:                sessionTitle(s, existing),
		Description:          s.Description,
		BusinessDate:         date,
		StorageKey:           key,
		FileSizeBytes:        size,
		Status:               models.RecordingStatusPublished,
		OrganizationID:       r.resolveOrg(ctx, s, existing),
		TransferredAt:        r.now().UTC(),
	})
	if err != nil {
		log.Error("object stored but recording upsert failed", zap.String("storage_key", key), zap.Error(err))
		res := failed(s.ID, s.Title, err)
		res.StorageKey = key
		return res
	}
	log.Info("recording transferred", zap.String("storage_key", key), zap.Int64("size_bytes", size))

	r.notifier.RecordingReady(ctx, rec)
	return Result{SessionID: s.ID, Title: s.Title, Outcome: OutcomeTransferred, StorageKey: key, SizeBytes: size, Progress: 100}
}

// markProcessing flags a placeholder row while its export is still rendering. Nothing is
// written when no row exists yet.
func (r *Reconciler) markProcessing(ctx context.Context, existing *models.Recording) {
	if existing == nil || existing.Status == models.RecordingStatusProcessing {
		return
	}
	if err := r.records.UpdateStatus(ctx, existing.ID, models.RecordingStatusProcessing); err != nil {
		r.logger.Warn("mark recording processing failed", zap.String("recording_id", existing.ID.String()), zap.Error(err))
	}
}

func (r *Reconciler) resolveOrg(ctx context.Context, s platform.Session, existing *models.Recording) *uuid.UUID {
	if existing != nil && existing.OrganizationID != nil {
		return existing.OrganizationID
	}
	id, err := r.orgs.OrganizationForScene(ctx, s.SceneID)
	if err != nil {
		r.logger.Warn("resolve organization failed", zap.String("session_id", s.ID), zap.String("scene_id", s.SceneID), zap.Error(err))
		return nil
	}
	return id
}

func sessionTitle(s platform.Session, existing *models.Recording) string {
	if s.Title != "" {
		return s.Title
	}
	if existing != nil && existing.Title != "" {
		return existing.Title
	}
	return s.ID
}
