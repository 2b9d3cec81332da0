// Package reconcile keeps the recordings table and the recordings bucket consistent with the
// finished sessions on the external platform. Every operation is safe to re-run and to run
// concurrently with itself: keys are derived deterministically and the metadata write is a
// single-row upsert on the external session id.
package reconcile

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/matchvault/backend/internal/apperr"
	"github.com/matchvault/backend/internal/models"
	"github.com/matchvault/backend/internal/platform"
	"github.com/matchvault/backend/pkg/storage"
)

// Deps are the collaborators of a Reconciler. Notifier, Orgs and Metrics are optional.
type Deps struct {
	Directory Directory
	Objects   ObjectStore
	Records   RecordStore
	Notifier  Notifier
	Orgs      OrgResolver
	Metrics   Metrics
}

// Reconciler runs status checks, sync batches, backfills and scheduled ticks.
type Reconciler struct {
	dir      Directory
	objects  ObjectStore
	records  RecordStore
	notifier Notifier
	orgs     OrgResolver
	metrics  Metrics
	poller   *Poller
	ext      string
	now      func() time.Time
	logger   *zap.Logger
}

// New creates a reconciler. A nil poller uses the default wait budget.
func New(deps Deps, poller *Poller, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if poller == nil {
		poller = NewPoller(0, 0)
	}
	r := &Reconciler{
		dir:      deps.Directory,
		objects:  deps.Objects,
		records:  deps.Records,
		notifier: deps.Notifier,
		orgs:     deps.Orgs,
		metrics:  deps.Metrics,
		poller:   poller,
		ext:      storage.DefaultRecordingExt,
		now:      time.Now,
		logger:   logger,
	}
	if r.notifier == nil {
		r.notifier = nopNotifier{}
	}
	if r.orgs == nil {
		r.orgs = nopOrgs{}
	}
	if r.metrics == nil {
		r.metrics = nopMetrics{}
	}
	return r
}

// CheckStatus classifies every finished session without writing anything.
func (r *Reconciler) CheckStatus(ctx context.Context) (StatusReport, error) {
	var report StatusReport
	known, sessions, err := r.load(ctx)
	if err != nil {
		return report, err
	}
	for _, s := range sessions {
		report.add(r.classify(ctx, s, known[s.ID]))
	}
	return report, nil
}

// RunSync processes every finished session, or only targetSessionID when set. Per-session
// failures are reported in the summary; only setup and fatal (auth/config) errors are returned.
func (r *Reconciler) RunSync(ctx context.Context, targetSessionID string) (Summary, error) {
	sum := Summary{StartedAt: r.now()}
	known, sessions, err := r.load(ctx)
	if err != nil {
		return sum, err
	}
	if targetSessionID != "" {
		s, ok := findSession(sessions, targetSessionID)
		if !ok {
			return sum, apperr.NotFound("run sync", fmt.Sprintf("session %s is not a finished session", targetSessionID))
		}
		sessions = []platform.Session{s}
	}

	for _, s := range sessions {
		if err := ctx.Err(); err != nil {
			sum.FinishedAt = r.now()
			return sum, err
		}
		res := r.processSession(ctx, s, known[s.ID])
		r.record(&sum, res)
		if res.Err != nil && apperr.IsFatal(res.Err) {
			sum.FinishedAt = r.now()
			return sum, res.Err
		}
	}
	sum.FinishedAt = r.now()
	r.logger.Info("sync run finished",
		zap.Int("total", sum.Total),
		zap.Int("synced", sum.Synced),
		zap.Int("transferred", sum.Transferred),
		zap.Int("migrated", sum.Migrated),
		zap.Int("processing", sum.Processing),
		zap.Int("errors", sum.Errors),
	)
	return sum, nil
}

// RunNext processes the single oldest session that needs a transfer or a key migration.
func (r *Reconciler) RunNext(ctx context.Context) (Summary, error) {
	sum := Summary{StartedAt: r.now()}
	known, sessions, err := r.load(ctx)
	if err != nil {
		return sum, err
	}
	var pending []platform.Session
	for _, s := range sessions {
		st := r.classify(ctx, s, known[s.ID])
		if st.State != StateSynced {
			pending = append(pending, s)
		}
	}
	r.metrics.ObservePending(len(pending))
	if len(pending) == 0 {
		sum.FinishedAt = r.now()
		r.logger.Debug("no pending sessions")
		return sum, nil
	}

	next := pending[0]
	res := r.processSession(ctx, next, known[next.ID])
	r.record(&sum, res)
	sum.FinishedAt = r.now()
	r.logger.Info("scheduled tick finished",
		zap.String("session_id", next.ID),
		zap.String("outcome", string(res.Outcome)),
		zap.Int("remaining", len(pending)-1),
	)
	if res.Err != nil && apperr.IsFatal(res.Err) {
		return sum, res.Err
	}
	return sum, nil
}

// TransferOne runs the transfer path for one finished session, even when a record with a
// storage key already exists.
func (r *Reconciler) TransferOne(ctx context.Context, sessionID string) (Result, error) {
	known, sessions, err := r.load(ctx)
	if err != nil {
		return Result{}, err
	}
	s, ok := findSession(sessions, sessionID)
	if !ok {
		return Result{}, apperr.NotFound("transfer session", fmt.Sprintf("session %s is not a finished session", sessionID))
	}
	existing := known[sessionID]
	if existing != nil && existing.HasStorageKey() {
		r.logger.Warn("re-transferring session that already has a stored object",
			zap.String("session_id", sessionID), zap.String("storage_key", existing.Key()))
	}
	res := r.transfer(ctx, s, existing)
	r.metrics.ObserveResult(string(res.Outcome), res.SizeBytes)
	if res.Err != nil && apperr.IsFatal(res.Err) {
		return res, res.Err
	}
	return res, nil
}

func (r *Reconciler) load(ctx context.Context) (map[string]*models.Recording, []platform.Session, error) {
	known, err := r.records.ListKnown(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load known recordings: %w", err)
	}
	sessions, err := r.dir.ListFinishedSessions(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list finished sessions: %w", err)
	}
	sortOldestFirst(sessions)
	return known, sessions, nil
}

func (r *Reconciler) processSession(ctx context.Context, s platform.Session, rec *models.Recording) Result {
	if rec != nil && rec.HasStorageKey() {
		return r.migrate(ctx, s, rec)
	}
	return r.transfer(ctx, s, rec)
}

func (r *Reconciler) classify(ctx context.Context, s platform.Session, rec *models.Recording) SessionStatus {
	st := SessionStatus{SessionID: s.ID, Title: s.Title}
	if rec == nil || !rec.HasStorageKey() {
		st.State = StateNeedsSync
		return st
	}
	st.StoredKey = rec.Key()
	want, err := r.expectedKey(ctx, s, rec)
	if err != nil {
		st.State = StateError
		st.Error = err.Error()
		return st
	}
	st.ExpectedKey = want
	if want != st.StoredKey {
		st.State = StateNeedsMigration
		return st
	}
	st.State = StateSynced
	return st
}

// expectedKey derives the canonical key for a known record. Records written before the
// production id was stored resolve it from the platform.
func (r *Reconciler) expectedKey(ctx context.Context, s platform.Session, rec *models.Recording) (string, error) {
	date, err := s.BusinessDate()
	if err != nil {
		return "", apperr.Wrap(apperr.KindUpstream, "parse scheduled start", err)
	}
	productionID := rec.ExternalProductionID
	if productionID == "" {
		prod, err := r.dir.LiveProduction(ctx, s.ID)
		if err != nil {
			return "", err
		}
		productionID = prod.ID
	}
	return storage.DeriveKey(s.ID, productionID, date, r.ext)
}

func (r *Reconciler) record(sum *Summary, res Result) {
	sum.add(res)
	r.metrics.ObserveResult(string(res.Outcome), res.SizeBytes)
	if res.Outcome == OutcomeError {
		r.logger.Warn("session failed",
			zap.String("session_id", res.SessionID),
			zap.String("kind", string(res.ErrorKind)),
			zap.String("error", res.Error),
		)
	}
}

func findSession(sessions []platform.Session, id string) (platform.Session, bool) {
	for _, s := range sessions {
		if s.ID == id {
			return s, true
		}
	}
	return platform.Session{}, false
}

// sortOldestFirst orders by scheduled start, then id. Unparseable dates sort last.
func sortOldestFirst(sessions []platform.Session) {
	dates := make(map[string]time.Time, len(sessions))
	for _, s := range sessions {
		if d, err := s.BusinessDate(); err == nil {
			dates[s.ID] = d
		}
	}
	sort.SliceStable(sessions, func(i, j int) bool {
		di, iok := dates[sessions[i].ID]
		dj, jok := dates[sessions[j].ID]
		switch {
		case iok && !jok:
			return true
		case !iok && jok:
			return false
		case iok && jok && !di.Equal(dj):
			return di.Before(dj)
		}
		return sessions[i].ID < sessions[j].ID
	})
}
