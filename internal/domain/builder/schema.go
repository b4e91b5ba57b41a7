package builder

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type RelationshipType string

const (
	OneToOne   RelationshipType = "oneToOne"
	OneToMany  RelationshipType = "oneToMany"
	ManyToOne  RelationshipType = "manyToOne"
	ManyToMany RelationshipType = "manyToMany"
)

func (t RelationshipType) Valid() bool {
	switch t {
	case OneToOne, OneToMany, ManyToOne, ManyToMany:
		return true
	}
	return false
}

type SchemaField struct {
	Name         string `json:"name"`
	Type         string `json:"type"`
	IsRequired   bool   `json:"isRequired"`
	IsUnique     bool   `json:"isUnique"`
	IsID         bool   `json:"isId"`
	DefaultValue string `json:"defaultValue,omitempty"`
}

type SchemaTable struct {
	Name   string        `json:"name"`
	Fields []SchemaField `json:"fields"`
}

type RelationshipEnd struct {
	Table string `json:"table"`
	Field string `json:"field"`
}

type SchemaRelationship struct {
	ID     string           `json:"id"`
	Source RelationshipEnd  `json:"source"`
	Target RelationshipEnd  `json:"target"`
	Type   RelationshipType `json:"type"`
}

// SchemaDesign is the table/relationship design attached to one project.
type SchemaDesign struct {
	ID            uuid.UUID                               `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID     string                                  `gorm:"column:project_id;not null;uniqueIndex" json:"projectId"`
	OwnerID       uuid.UUID                               `gorm:"type:uuid;column:owner_id;not null;index" json:"ownerId"`
	Tables        datatypes.JSONSlice[SchemaTable]        `gorm:"column:tables;type:jsonb" json:"tables"`
	Relationships datatypes.JSONSlice[SchemaRelationship] `gorm:"column:relationships;type:jsonb" json:"relationships"`
	CreatedAt     time.Time                               `gorm:"not null" json:"createdAt"`
	UpdatedAt     time.Time                               `gorm:"not null" json:"updatedAt"`
	DeletedAt     gorm.DeletedAt                          `gorm:"index" json:"-"`
}

func (SchemaDesign) TableName() string { return "schema_design" }

func (s *SchemaDesign) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
