package reconcile

import (
	"context"

	"go.uber.org/zap"

	"github.com/matchvault/backend/internal/apperr"
	"github.com/matchvault/backend/internal/models"
	"github.com/matchvault/backend/internal/platform"
)

// migrate moves a stored object to its canonical key when the two have drifted apart.
// The record is only touched after the move succeeded.
func (r *Reconciler) migrate(ctx context.Context, s platform.Session, rec *models.Recording) Result {
	current := rec.Key()
	want, err := r.expectedKey(ctx, s, rec)
	if err != nil {
		res := failed(s.ID, s.Title, err)
		res.StorageKey = current
		return res
	}
	if want == current {
		return Result{SessionID: s.ID, Title: s.Title, Outcome: OutcomeSynced, StorageKey: current}
	}

	log := r.logger.With(
		zap.String("session_id", s.ID),
		zap.String("source_key", current),
		zap.String("storage_key", want),
	)
	ok, err := r.objects.Exists(ctx, current)
	if err != nil {
		res := failed(s.ID, s.Title, err)
		res.StorageKey = current
		return res
	}
	if !ok {
		res := failed(s.ID, s.Title, apperr.NotFound("migrate recording", "source file not found: "+current))
		res.StorageKey = current
		return res
	}
	if _, err := r.objects.Move(ctx, current, want); err != nil {
		res := failed(s.ID, s.Title, err)
		res.StorageKey = current
		return res
	}
	if err := r.records.UpdateStorageKey(ctx, rec.ID, want); err != nil {
		log.Error("object moved but recording still points at the old key", zap.Error(err))
		res := failed(s.ID, s.Title, err)
		res.StorageKey = current
		return res
	}
	log.Info("recording migrated")
	return Result{SessionID: s.ID, Title: s.Title, Outcome: OutcomeMigrated, StorageKey: want, PreviousKey: current}
}
