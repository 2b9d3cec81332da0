package reconcile

import (
	"time"

	"github.com/matchvault/backend/internal/apperr"
)

// Outcome is what happened to one session during a run.
type Outcome string

const (
	OutcomeSynced      Outcome = "synced"
	OutcomeTransferred Outcome = "transferred"
	OutcomeMigrated    Outcome = "migrated"
	OutcomeProcessing  Outcome = "processing"
	OutcomeError       Outcome = "error"
	OutcomeBackfilled  Outcome = "backfilled"
	OutcomeSkipped     Outcome = "skipped"
)

// Result is the per-session entry of a Summary.
type Result struct {
	SessionID   string        `json:"session_id"`
	Title       string        `json:"title,omitempty"`
	Outcome     Outcome       `json:"outcome"`
	StorageKey  string        `json:"storage_key,omitempty"`
	PreviousKey string        `json:"previous_key,omitempty"`
	Progress    int           `json:"progress,omitempty"`
	SizeBytes   int64         `json:"size_bytes,omitempty"`
	Err         *apperr.Error `json:"-"`
	Error       string        `json:"error,omitempty"`
	ErrorKind   apperr.Kind   `json:"error_kind,omitempty"`
}

func failed(sessionID, title string, err error) Result {
	e := apperr.From("process session", err)
	return Result{
		SessionID: sessionID,
		Title:     title,
		Outcome:   OutcomeError,
		Err:       e,
		Error:     e.Error(),
		ErrorKind: e.Kind,
	}
}

// Summary aggregates one invocation.
type Summary struct {
	Total       int       `json:"total"`
	Synced      int       `json:"synced"`
	Transferred int       `json:"transferred"`
	Migrated    int       `json:"migrated"`
	Processing  int       `json:"processing"`
	Backfilled  int       `json:"backfilled"`
	Skipped     int       `json:"skipped"`
	Errors      int       `json:"errors"`
	Results     []Result  `json:"results"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
}

func (s *Summary) add(r Result) {
	s.Total++
	switch r.Outcome {
	case OutcomeSynced:
		s.Synced++
	case OutcomeTransferred:
		s.Transferred++
	case OutcomeMigrated:
		s.Migrated++
	case OutcomeProcessing:
		s.Processing++
	case OutcomeBackfilled:
		s.Backfilled++
	case OutcomeSkipped:
		s.Skipped++
	case OutcomeError:
		s.Errors++
	}
	s.Results = append(s.Results, r)
}

// State is the read-only classification used by CheckStatus.
type State string

const (
	StateSynced         State = "synced"
	StateNeedsSync      State = "needs_sync"
	StateNeedsMigration State = "needs_migration"
	StateError          State = "error"
)

// SessionStatus is one row of a StatusReport.
type SessionStatus struct {
	SessionID   string `json:"session_id"`
	Title       string `json:"title,omitempty"`
	State       State  `json:"state"`
	StoredKey   string `json:"stored_key,omitempty"`
	ExpectedKey string `json:"expected_key,omitempty"`
	Error       string `json:"error,omitempty"`
}

// StatusReport is the CheckStatus result.
type StatusReport struct {
	Total          int             `json:"total"`
	Synced         int             `json:"synced"`
	NeedsSync      int             `json:"needs_sync"`
	NeedsMigration int             `json:"needs_migration"`
	Errors         int             `json:"errors"`
	Sessions       []SessionStatus `json:"sessions"`
}

func (r *StatusReport) add(s SessionStatus) {
	r.Total++
	switch s.State {
	case StateSynced:
		r.Synced++
	case StateNeedsSync:
		r.NeedsSync++
	case StateNeedsMigration:
		r.NeedsMigration++
	case StateError:
		r.Errors++
	}
	r.Sessions = append(r.Sessions, s)
}
