package versioning

import (
	"context"
	"time"

	"character-sync/core/fieldmerge"

	"github.com/google/uuid"
)

// Latest selects the newest retained version in GetCharacterVersion.
const Latest = 0

// StateVersion is an immutable snapshot of a character at one point in its history.
type StateVersion struct {
	EntityID      uuid.UUID      `json:"entity_id"`
	Version       int            `json:"version"`
	StateData     map[string]any `json:"state_data"`
	Timestamp     time.Time      `json:"timestamp"`
	ParentVersion *int           `json:"parent_version,omitempty"`
}

// clone returns a copy that shares nothing with v.
func (v StateVersion) clone() StateVersion {
	out := v
	out.StateData = fieldmerge.CopyDocument(v.StateData)
	if v.ParentVersion != nil {
		p := *v.ParentVersion
		out.ParentVersion = &p
	}
	return out
}

// Entity is the versioned object as the repository stores it.
type Entity struct {
	ID            uuid.UUID
	CharacterData map[string]any
}

// CharacterRepository is the durable store of current character state.
type CharacterRepository interface {
	// Get returns the entity, or nil and no error when it does not exist.
	Get(ctx context.Context, id uuid.UUID) (*Entity, error)
	// Update overwrites the entity's state. Updating a missing entity
	// returns a syncerr entity_not_found error.
	Update(ctx context.Context, id uuid.UUID, entity *Entity) error
}

// Config holds the version manager settings.
type Config struct {
	// MaxVersionHistory is the retention window per entity.
	MaxVersionHistory int `mapstructure:"max_version_history" default:"100"`
	// CleanupInterval is the delay between retention sweeps.
	CleanupInterval time.Duration `mapstructure:"cleanup_interval" default:"60s"`
	// CleanupBackoff is the pause after a failed sweep.
	CleanupBackoff time.Duration `mapstructure:"cleanup_backoff" default:"5s"`
	// CleanupWorkers bounds how many entities are trimmed in parallel.
	CleanupWorkers int `mapstructure:"cleanup_workers" default:"4"`
}

// withDefaults fills zero values so a literal Config{} is usable in tests.
func (c Config) withDefaults() Config {
	if c.MaxVersionHistory <= 0 {
		c.MaxVersionHistory = 100
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = 60 * time.Second
	}
	if c.CleanupBackoff <= 0 {
		c.CleanupBackoff = 5 * time.Second
	}
	if c.CleanupWorkers <= 0 {
		c.CleanupWorkers = 4
	}
	return c
}
