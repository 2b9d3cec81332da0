package platform

import (
	"time"

	"github.com/matchvault/backend/pkg/storage"
)

// Session processing states reported by the platform.
const (
	StateScheduled  = "scheduled"
	StateInProgress = "in_progress"
	StateFinished   = "finished"
)

const (
	// ProductionTypeLive is the only production type eligible for transfer.
	ProductionTypeLive = "live"
	// ExportKindDownload is the only export kind this pipeline requests.
	ExportKindDownload = "download"
)

// Session is one recorded match on the external platform.
type Session struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Description     string `json:"description,omitempty"`
	ProcessingState string `json:"processing_state"`
	ScheduledStart  string `json:"scheduled_start_time"`
	SceneID         string `json:"scene_id,omitempty"`
}

// BusinessDate parses the scheduled start time used for key derivation.
func (s Session) BusinessDate() (time.Time, error) {
	return storage.ParseBusinessDate(s.ScheduledStart)
}

// Finished reports whether the session is eligible for transfer.
func (s Session) Finished() bool { return s.ProcessingState == StateFinished }

// Production groups exports for a session.
type Production struct {
	ID        string `json:"id"`
	SessionID string `json:"session_id,omitempty"`
	Type      string `json:"type"`
}

// Export is a packaging job attached to a production.
type Export struct {
	ID              string `json:"id"`
	ProductionID    string `json:"production_id,omitempty"`
	Kind            string `json:"kind"`
	ProgressPercent int    `json:"progress"`
	DownloadURL     string `json:"download_url,omitempty"`
}

// Done reports whether the export finished rendering.
func (e Export) Done() bool { return e.ProgressPercent >= 100 }

type page[T any] struct {
	Items []T    `json:"items"`
	Next  string `json:"next,omitempty"`
}
