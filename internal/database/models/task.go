package models

import (
	"time"

	"github.com/google/uuid"
)

type Task struct {
	Base
	DealID      uuid.UUID `gorm:"type:uuid;not null;index" json:"deal_id"`
	Title       string    `gorm:"not null" json:"title"`
	Description *string   `json:"description,omitempty"`
	DueDate     time.Time `gorm:"not null;index" json:"due_date"`
	IsDone      bool      `gorm:"not null;default:false" json:"is_done"`

	Deal *Deal `gorm:"foreignKey:DealID" json:"-"`
}

func (Task) TableName() string {
	return "tasks"
}
