package models

import (
	"github.com/google/uuid"
	"github.com/hugh/go-crm/internal/domain"
)

// Activity is an append-only timeline entry on a deal. AuthorID is nil for
// entries written by the system.
type Activity struct {
	Base
	DealID   uuid.UUID           `gorm:"type:uuid;not null;index" json:"deal_id"`
	AuthorID *uuid.UUID          `gorm:"type:uuid;index" json:"author_id,omitempty"`
	Type     domain.ActivityType `gorm:"type:varchar(32);not null" json:"type"`
	Payload  map[string]any      `gorm:"type:jsonb;serializer:json;not null" json:"payload"`
}

func (Activity) TableName() string {
	return "activities"
}
