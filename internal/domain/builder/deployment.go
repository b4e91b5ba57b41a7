package builder

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	DeploymentPending    = "pending"
	DeploymentInProgress = "in-progress"
	DeploymentCompleted  = "completed"
	DeploymentFailed     = "failed"
	DeploymentCanceled   = "canceled"
)

func DeploymentTerminal(status string) bool {
	switch status {
	case DeploymentCompleted, DeploymentFailed, DeploymentCanceled:
		return true
	}
	return false
}

type FrontendTarget struct {
	Platform   string `json:"platform"`
	BuildTime  int    `json:"buildTime,omitempty"`
	URL        string `json:"url,omitempty"`
	Status     string `json:"status,omitempty"`
	CDNEnabled bool   `json:"cdnEnabled"`
}

type BackendTarget struct {
	Platform    string `json:"platform"`
	Database    string `json:"database"`
	AutoScaling bool   `json:"autoScaling"`
	URL         string `json:"url,omitempty"`
	Status      string `json:"status,omitempty"`
}

type DeploymentLog struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
}

type Deployment struct {
	ID          uuid.UUID                          `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerID     uuid.UUID                          `gorm:"type:uuid;column:owner_id;not null;index" json:"ownerId"`
	ProjectID   string                             `gorm:"column:project_id;not null;index" json:"projectId"`
	Frontend    datatypes.JSONType[FrontendTarget] `gorm:"column:frontend;type:jsonb" json:"frontend"`
	Backend     datatypes.JSONType[BackendTarget]  `gorm:"column:backend;type:jsonb" json:"backend"`
	Status      string                             `gorm:"column:status;not null;index" json:"status"`
	Logs        datatypes.JSONSlice[DeploymentLog] `gorm:"column:logs;type:jsonb" json:"logs"`
	Error       string                             `gorm:"column:error" json:"error,omitempty"`
	StartedAt   *time.Time                         `gorm:"column:started_at" json:"startedAt,omitempty"`
	CompletedAt *time.Time                         `gorm:"column:completed_at" json:"completedAt,omitempty"`
	CreatedAt   time.Time                          `gorm:"not null" json:"createdAt"`
	UpdatedAt   time.Time                          `gorm:"not null" json:"updatedAt"`
	DeletedAt   gorm.DeletedAt                     `gorm:"index" json:"-"`
}

func (Deployment) TableName() string { return "deployment" }

func (d *Deployment) BeforeCreate(*gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if d.Status == "" {
		d.Status = DeploymentPending
	}
	return nil
}
