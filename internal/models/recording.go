package models

import (
	"time"

	"github.com/google/uuid"
)

// RecordingStatus represents recording lifecycle.
const (
	RecordingStatusScheduled  = "scheduled"
	RecordingStatusProcessing = "processing"
	RecordingStatusPublished  = "published"
	RecordingStatusError      = "error"
)

// Recording is a match recording (platform export → S3). At most one row exists per external session.
type Recording struct {
	ID                   uuid.UUID  `json:"id"`
	ExternalSessionID    *string    `json:"external_session_id,omitempty"`
	ExternalProductionID string     `json:"external_production_id,omitempty"`
	Title                string     `json:"title"`
	Description          string     `json:"description,omitempty"`
	BusinessDate         time.Time  `json:"business_date"`
	StorageKey           *string    `json:"storage_key,omitempty"`
	FileSizeBytes        *int64     `json:"file_size_bytes,omitempty"`
	Status               string     `json:"status"`
	OrganizationID       *uuid.UUID `json:"organization_id,omitempty"`
	TransferredAt        *time.Time `json:"transferred_at,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// HasStorageKey reports whether the recording points at a stored object.
func (r *Recording) HasStorageKey() bool {
	return r.StorageKey != nil && *r.StorageKey != ""
}

// Key returns the storage key or "".
func (r *Recording) Key() string {
	if r.StorageKey == nil {
		return ""
	}
	return *r.StorageKey
}

// SessionID returns the external session id or "".
func (r *Recording) SessionID() string {
	if r.ExternalSessionID == nil {
		return ""
	}
	return *r.ExternalSessionID
}

// RecordingUpsert is the write model for the session-keyed upsert.
type RecordingUpsert struct {
	ExternalSessionID    string
	ExternalProductionID string
	Title                string
	Description          string
	BusinessDate         time.Time
	StorageKey           string
	FileSizeBytes        int64
	Status               string
	OrganizationID       *uuid.UUID
	TransferredAt        time.Time
}
