package models

import (
	"time"

	"github.com/google/uuid"
)

// Character is the persisted character row. CharacterData is the nested
// document the versioning engine operates on.
type Character struct {
	ID            uuid.UUID      `gorm:"type:char(36);primaryKey" json:"id"`
	Name          string         `gorm:"size:255;not null" json:"name"`
	CharacterData map[string]any `gorm:"type:json;serializer:json" json:"character_data"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// TableName pins the table name.
func (Character) TableName() string {
	return "characters"
}

// CreateCharacterRequest is the body of POST /characters.
type CreateCharacterRequest struct {
	Name          string         `json:"name"`
	CharacterData map[string]any `json:"character_data"`
}

// ApplyChangesRequest is the body of POST /characters/:id/changes.
type ApplyChangesRequest struct {
	// Changes is a partial document deep-merged into the character data.
	Changes map[string]any `json:"changes"`
	// BaseVersion is the version the changes were computed against.
	BaseVersion *int `json:"base_version,omitempty"`
}

// ApplyChangesResponse reports the version written by an apply.
type ApplyChangesResponse struct {
	Version     int  `json:"version"`
	HadConflict bool `json:"had_conflict"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error    string `json:"error"`
	Kind     string `json:"kind"`
	EntityID string `json:"entity_id,omitempty"`
}
