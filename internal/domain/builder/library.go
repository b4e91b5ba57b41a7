package builder

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ComponentDefinition is a reusable component saved to a user's library.
type ComponentDefinition struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerID       uuid.UUID      `gorm:"type:uuid;column:owner_id;not null;index" json:"ownerId"`
	ProjectID     string         `gorm:"column:project_id;index" json:"projectId,omitempty"`
	Name          string         `gorm:"column:name;not null" json:"name"`
	Type          string         `gorm:"column:type;not null;index" json:"type"`
	Description   string         `gorm:"column:description" json:"description"`
	Configuration datatypes.JSON `gorm:"column:configuration;type:jsonb" json:"configuration"`
	Status        string         `gorm:"column:status;not null" json:"status"`
	Version       string         `gorm:"column:version;not null" json:"version"`
	CreatedAt     time.Time      `gorm:"not null" json:"createdAt"`
	UpdatedAt     time.Time      `gorm:"not null" json:"updatedAt"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

func (ComponentDefinition) TableName() string { return "component_definition" }

func (c *ComponentDefinition) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Status == "" {
		c.Status = "active"
	}
	if c.Version == "" {
		c.Version = "1.0.0"
	}
	return nil
}
