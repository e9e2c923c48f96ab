package models

import (
	"github.com/google/uuid"
	"github.com/hugh/go-crm/internal/domain"
	"github.com/shopspring/decimal"
)

type Deal struct {
	Base
	OrganizationID uuid.UUID         `gorm:"type:uuid;not null;index" json:"organization_id"`
	ContactID      uuid.UUID         `gorm:"type:uuid;not null;index" json:"contact_id"`
	OwnerID        uuid.UUID         `gorm:"type:uuid;not null;index" json:"owner_id"`
	Title          string            `gorm:"not null" json:"title"`
	Amount         decimal.Decimal   `gorm:"type:numeric(12,2);not null;default:0" json:"amount"`
	Currency       string            `gorm:"type:varchar(3);not null;default:'USD'" json:"currency"`
	Status         domain.DealStatus `gorm:"type:varchar(20);not null;default:'new';index" json:"status"`
	Stage          domain.DealStage  `gorm:"type:varchar(20);not null;default:'qualification';index" json:"stage"`

	// Relationships
	Contact    *Contact   `gorm:"foreignKey:ContactID" json:"contact,omitempty"`
	Tasks      []Task     `gorm:"foreignKey:DealID" json:"-"`
	Activities []Activity `gorm:"foreignKey:DealID" json:"-"`
}

func (Deal) TableName() string {
	return "deals"
}
