package models

import (
	"time"

	"github.com/google/uuid"
)

// Organization is a club or venue that owns recordings.
type Organization struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SceneMapping links a platform camera scene to the organization that owns it.
type SceneMapping struct {
	SceneID        string    `json:"scene_id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	CreatedAt      time.Time `json:"created_at"`
}

// Recipient is a user with active access to a recording.
type Recipient struct {
	UserID   uuid.UUID `json:"user_id"`
	Email    string    `json:"email"`
	FullName string    `json:"full_name"`
}
