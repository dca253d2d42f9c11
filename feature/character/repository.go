package character

import (
	"context"
	"errors"
	"fmt"

	"character-sync/core/database"
	"character-sync/core/syncerr"
	"character-sync/core/versioning"
	"character-sync/feature/character/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository stores characters through GORM. It is the versioning
// engine's CharacterRepository.
type Repository struct {
	db *gorm.DB
}

var _ versioning.CharacterRepository = (*Repository)(nil)

// NewRepository creates a repository on db.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Prepare migrates the characters table, or only verifies its columns when
// migrate is false.
func (r *Repository) Prepare(migrate bool) error {
	if migrate {
		if err := r.db.AutoMigrate(&models.Character{}); err != nil {
			return fmt.Errorf("failed to migrate characters: %w", err)
		}
		return nil
	}
	return database.RequireColumns(r.db, models.Character{}.TableName(), "id", "name", "character_data")
}

// Create inserts a new character, assigning an id when none is set.
func (r *Repository) Create(ctx context.Context, c *models.Character) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.CharacterData == nil {
		c.CharacterData = map[string]any{}
	}
	if err := r.db.WithContext(ctx).Create(c).Error; err != nil {
		return fmt.Errorf("failed to create character: %w", err)
	}
	return nil
}

// Find returns the full character row, or nil when it does not exist.
func (r *Repository) Find(ctx context.Context, id uuid.UUID) (*models.Character, error) {
	var c models.Character
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load character %s: %w", id, err)
	}
	return &c, nil
}

// Get implements versioning.CharacterRepository.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*versioning.Entity, error) {
	c, err := r.Find(ctx, id)
	if err != nil || c == nil {
		return nil, err
	}
	data := c.CharacterData
	if data == nil {
		data = map[string]any{}
	}
	return &versioning.Entity{ID: c.ID, CharacterData: data}, nil
}

// Update implements versioning.CharacterRepository.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, entity *versioning.Entity) error {
	res := r.db.WithContext(ctx).
		Model(&models.Character{ID: id}).
		Select("character_data", "updated_at").
		Updates(&models.Character{CharacterData: entity.CharacterData})
	if res.Error != nil {
		return fmt.Errorf("failed to update character %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return syncerr.EntityNotFound(id.String())
	}
	return nil
}
