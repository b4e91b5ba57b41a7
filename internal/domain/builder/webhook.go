package builder

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type DeliveryStatus struct {
	Success    bool      `json:"success"`
	StatusCode int       `json:"statusCode,omitempty"`
	Message    string    `json:"message,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

type Webhook struct {
	ID              uuid.UUID                             `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerID         uuid.UUID                             `gorm:"type:uuid;column:owner_id;not null;index" json:"ownerId"`
	ProjectID       string                                `gorm:"column:project_id;index" json:"projectId,omitempty"`
	Name            string                                `gorm:"column:name;not null" json:"name"`
	URL             string                                `gorm:"column:url;not null" json:"url"`
	Description     string                                `gorm:"column:description" json:"description,omitempty"`
	Events          datatypes.JSONSlice[string]           `gorm:"column:events;type:jsonb" json:"events"`
	Headers         datatypes.JSONType[map[string]string] `gorm:"column:headers;type:jsonb" json:"headers"`
	Method          string                                `gorm:"column:method;not null" json:"method"`
	IsActive        bool                                  `gorm:"column:is_active;not null" json:"isActive"`
	MaxRetries      int                                   `gorm:"column:max_retries;not null" json:"maxRetries"`
	RetryIntervalMS int                                   `gorm:"column:retry_interval_ms;not null" json:"retryInterval"`
	LastStatus      *datatypes.JSONType[DeliveryStatus]   `gorm:"column:last_status;type:jsonb" json:"lastStatus,omitempty"`
	CreatedAt       time.Time                             `gorm:"not null" json:"createdAt"`
	UpdatedAt       time.Time                             `gorm:"not null" json:"updatedAt"`
	DeletedAt       gorm.DeletedAt                        `gorm:"index" json:"-"`
}

func (Webhook) TableName() string { return "webhook" }

func (w *Webhook) BeforeCreate(*gorm.DB) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	return nil
}

// Subscribed reports whether the webhook wants event. An empty event list means all events.
func (w *Webhook) Subscribed(event string) bool {
	if !w.IsActive {
		return false
	}
	if len(w.Events) == 0 {
		return true
	}
	for _, e := range w.Events {
		if e == event || e == "*" {
			return true
		}
	}
	return false
}
