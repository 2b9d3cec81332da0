package reconcile

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/matchvault/backend/internal/apperr"
	"github.com/matchvault/backend/internal/models"
	"github.com/matchvault/backend/internal/platform"
	"github.com/matchvault/backend/pkg/storage"
)

type fakeDirectory struct {
	mu          sync.Mutex
	sessions    []platform.Session
	productions map[string]string // session → production id
	progress    map[string]int    // production → progress of its export
	listErr     error
	prodErr     map[string]error
	exports     map[string]platform.Export
	created     int
	polls       int
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		productions: map[string]string{},
		progress:    map[string]int{},
		prodErr:     map[string]error{},
		exports:     map[string]platform.Export{},
	}
}

func (d *fakeDirectory) addSession(id, productionID, start string, progress int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sessions = append(d.sessions, platform.Session{
		ID:              id,
		Title:           "Match " + id,
		ProcessingState: platform.StateFinished,
		ScheduledStart:  start,
		SceneID:         "scene-" + id,
	})
	d.productions[id] = productionID
	d.progress[productionID] = progress
}

func (d *fakeDirectory) ListFinishedSessions(ctx context.Context) ([]platform.Session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.listErr != nil {
		return nil, d.listErr
	}
	out := make([]platform.Session, len(d.sessions))
	copy(out, d.sessions)
	return out, nil
}

func (d *fakeDirectory) LiveProduction(ctx context.Context, sessionID string) (platform.Production, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.prodErr[sessionID]; err != nil {
		return platform.Production{}, err
	}
	id, ok := d.productions[sessionID]
	if !ok {
		return platform.Production{}, apperr.NotFound("get live production", "no live production found")
	}
	return platform.Production{ID: id, SessionID: sessionID, Type: platform.ProductionTypeLive}, nil
}

func (d *fakeDirectory) GetOrCreateDownloadExport(ctx context.Context, productionID string) (platform.Export, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if exp, ok := d.exports[productionID]; ok {
		return exp, nil
	}
	d.created++
	exp := platform.Export{ID: "E-" + productionID, ProductionID: productionID, Kind: platform.ExportKindDownload}
	d.exports[productionID] = exp
	return exp, nil
}

func (d *fakeDirectory) PollExportProgress(ctx context.Context, exportID string) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.polls++
	for prod, exp := range d.exports {
		if exp.ID == exportID {
			return d.progress[prod], nil
		}
	}
	return 0, apperr.NotFound("poll export", "export not found")
}

func (d *fakeDirectory) GetDownloadLocator(ctx context.Context, exportID string) (string, error) {
	return "https://cdn.example.test/" + exportID + ".mp4", nil
}

type fakeObjects struct {
	mu        sync.Mutex
	objects   map[string]int64
	uploads   int
	moves     int
	uploadErr map[string]error
	deleteErr error
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{objects: map[string]int64{}, uploadErr: map[string]error{}}
}

func (o *fakeObjects) has(key string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.objects[key]
	return ok
}

func (o *fakeObjects) Exists(ctx context.Context, key string) (bool, error) {
	return o.has(key), nil
}

func (o *fakeObjects) ObjectSize(ctx context.Context, key string) (int64, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	size, ok := o.objects[key]
	if !ok {
		return 0, apperr.NotFound("head object", "object not found")
	}
	return size, nil
}

func (o *fakeObjects) UploadFromURL(ctx context.Context, sourceURL, key string) (storage.UploadResult, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.uploadErr[key]; err != nil {
		return storage.UploadResult{}, err
	}
	o.uploads++
	o.objects[key] = 2048
	return storage.UploadResult{Key: key, SizeBytes: 2048}, nil
}

func (o *fakeObjects) Move(ctx context.Context, sourceKey, destKey string) (storage.MoveResult, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.moves++
	size, ok := o.objects[sourceKey]
	if !ok {
		return storage.MoveResult{}, apperr.Storage("copy object", errors.New("NoSuchKey"))
	}
	o.objects[destKey] = size
	if o.deleteErr != nil {
		return storage.MoveResult{SourceDeleted: false}, nil
	}
	delete(o.objects, sourceKey)
	return storage.MoveResult{SourceDeleted: true}, nil
}

type fakeRecords struct {
	mu        sync.Mutex
	rows      map[string]*models.Recording
	upserts   int
	updates   int
	upsertErr error
}

func newFakeRecords() *fakeRecords {
	return &fakeRecords{rows: map[string]*models.Recording{}}
}

func (f *fakeRecords) put(rec *models.Recording) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[rec.SessionID()] = rec
}

func (f *fakeRecords) get(sessionID string) *models.Recording {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.rows[sessionID]
	if !ok {
		return nil
	}
	cp := *rec
	return &cp
}

func (f *fakeRecords) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

func (f *fakeRecords) ListKnown(ctx context.Context) (map[string]*models.Recording, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]*models.Recording, len(f.rows))
	for id, rec := range f.rows {
		cp := *rec
		out[id] = &cp
	}
	return out, nil
}

func (f *fakeRecords) Upsert(ctx context.Context, in models.RecordingUpsert) (*models.Recording, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return nil, f.upsertErr
	}
	f.upserts++
	rec, ok := f.rows[in.ExternalSessionID]
	if !ok {
		sid := in.ExternalSessionID
		rec = &models.Recording{ID: uuid.New(), ExternalSessionID: &sid, CreatedAt: time.Now()}
		f.rows[sid] = rec
	}
	key := in.StorageKey
	size := in.FileSizeBytes
	at := in.TransferredAt
	rec.ExternalProductionID = in.ExternalProductionID
	rec.Title = in.Title
	rec.Description = in.Description
	rec.BusinessDate = in.BusinessDate
	rec.StorageKey = &key
	rec.FileSizeBytes = &size
	rec.Status = in.Status
	if in.OrganizationID != nil {
		rec.OrganizationID = in.OrganizationID
	}
	rec.TransferredAt = &at
	cp := *rec
	return &cp, nil
}

func (f *fakeRecords) UpdateStorageKey(ctx context.Context, id uuid.UUID, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, rec := range f.rows {
		if rec.ID == id {
			f.updates++
			k := key
			rec.StorageKey = &k
			return nil
		}
	}
	return apperr.NotFound("update storage key", "recording not found")
}

func (f *fakeRecords) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, rec := range f.rows {
		if rec.ID == id {
			f.updates++
			rec.Status = status
			return nil
		}
	}
	return apperr.NotFound("update status", "recording not found")
}

type fakeNotifier struct {
	mu    sync.Mutex
	ready []string
}

func (n *fakeNotifier) RecordingReady(ctx context.Context, rec *models.Recording) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.ready = append(n.ready, rec.SessionID())
}

func (n *fakeNotifier) calls() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.ready...)
}

type fakeOrgs struct {
	org uuid.UUID
}

func (o fakeOrgs) OrganizationForScene(ctx context.Context, sceneID string) (*uuid.UUID, error) {
	id := o.org
	return &id, nil
}

type fakeMetrics struct {
	mu       sync.Mutex
	outcomes map[string]int
	pending  int
}

func (m *fakeMetrics) ObserveResult(outcome string, sizeBytes int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.outcomes == nil {
		m.outcomes = map[string]int{}
	}
	m.outcomes[outcome]++
}

func (m *fakeMetrics) ObservePending(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = n
}

type harness struct {
	dir      *fakeDirectory
	objects  *fakeObjects
	records  *fakeRecords
	notifier *fakeNotifier
	metrics  *fakeMetrics
	org      uuid.UUID
	rec      *Reconciler
}

func newHarness() *harness {
	h := &harness{
		dir:      newFakeDirectory(),
		objects:  newFakeObjects(),
		records:  newFakeRecords(),
		notifier: &fakeNotifier{},
		metrics:  &fakeMetrics{},
		org:      uuid.New(),
	}
	h.rec = New(Deps{
		Directory: h.dir,
		Objects:   h.objects,
		Records:   h.records,
		Notifier:  h.notifier,
		Orgs:      fakeOrgs{org: h.org},
		Metrics:   h.metrics,
	}, NewPoller(60*time.Millisecond, 10*time.Millisecond), zap.NewNop())
	return h
}

func knownRecording(sessionID, productionID, key string) *models.Recording {
	sid := sessionID
	k := key
	return &models.Recording{
		ID:                   uuid.New(),
		ExternalSessionID:    &sid,
		ExternalProductionID: productionID,
		Title:                "Match " + sessionID,
		StorageKey:           &k,
		Status:               models.RecordingStatusPublished,
	}
}
