package builder

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	ProjectStatusCreated   = "created"
	ProjectStatusGenerated = "generated"
)

// Project is the stored form of a canvas document. Components and Connections
// hold the serialized graph; Schema is opaque attached data.
type Project struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID      string         `gorm:"column:project_id;not null;uniqueIndex" json:"projectId"`
	OwnerID        uuid.UUID      `gorm:"type:uuid;column:owner_id;not null;index" json:"ownerId"`
	Name           string         `gorm:"column:name;not null" json:"projectName"`
	Description    string         `gorm:"column:description" json:"description"`
	Status         string         `gorm:"column:status;not null" json:"status"`
	CreatedByName  string         `gorm:"column:created_by_name" json:"-"`
	CreatedByEmail string         `gorm:"column:created_by_email" json:"-"`
	Components     datatypes.JSON `gorm:"column:components;type:jsonb" json:"components"`
	Connections    datatypes.JSON `gorm:"column:connections;type:jsonb" json:"connections"`
	Schema         datatypes.JSON `gorm:"column:schema;type:jsonb" json:"schema,omitempty"`
	Revision       int            `gorm:"column:revision;not null" json:"revision"`
	CreatedAt      time.Time      `gorm:"not null;index" json:"createdAt"`
	UpdatedAt      time.Time      `gorm:"not null" json:"updatedAt"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Project) TableName() string { return "project" }

func (p *Project) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Status == "" {
		p.Status = ProjectStatusCreated
	}
	return nil
}
