package reconcile

import (
	"context"

	"go.uber.org/zap"

	"github.com/matchvault/backend/internal/apperr"
	"github.com/matchvault/backend/internal/models"
	"github.com/matchvault/backend/internal/platform"
	"github.com/matchvault/backend/pkg/storage"
)

// Backfill records objects that reached the bucket without a matching row. Sessions already
// known with a storage key are ignored; nothing is transferred.
func (r *Reconciler) Backfill(ctx context.Context) (Summary, error) {
	sum := Summary{StartedAt: r.now()}
	known, sessions, err := r.load(ctx)
	if err != nil {
		return sum, err
	}
	for _, s := range sessions {
		rec := known[s.ID]
		if rec != nil && rec.HasStorageKey() {
			continue
		}
		if err := ctx.Err(); err != nil {
			sum.FinishedAt = r.now()
			return sum, err
		}
		res := r.backfill(ctx, s, rec)
		r.record(&sum, res)
		if res.Err != nil && apperr.IsFatal(res.Err) {
			sum.FinishedAt = r.now()
			return sum, res.Err
		}
	}
	sum.FinishedAt = r.now()
	r.logger.Info("backfill finished",
		zap.Int("total", sum.Total),
		zap.Int("backfilled", sum.Backfilled),
		zap.Int("skipped", sum.Skipped),
		zap.Int("errors", sum.Errors),
	)
	return sum, nil
}

func (r *Reconciler) backfill(ctx context.Context, s platform.Session, existing *models.Recording) Result {
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
	ok, err := r.objects.Exists(ctx, key)
	if err != nil {
		return failed(s.ID, s.Title, err)
	}
	if !ok {
		return Result{SessionID: s.ID, Title: s.Title, Outcome: OutcomeSkipped, StorageKey: key}
	}
	size, err := r.objects.ObjectSize(ctx, key)
	if err != nil {
		return failed(s.ID, s.Title, err)
	}
	if _, err := r.records.Upsert(ctx, models.RecordingUpsert{
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
	}); err != nil {
		return failed(s.ID, s.Title, err)
	}
	r.logger.Info("recording backfilled", zap.String("session_id", s.ID), zap.String("storage_key", key))
	return Result{SessionID: s.ID, Title: s.Title, Outcome: OutcomeBackfilled, StorageKey: key, SizeBytes: size}
}
