package models

import "github.com/google/uuid"

type Contact struct {
	Base
	OrganizationID uuid.UUID `gorm:"type:uuid;not null;index" json:"organization_id"`
	OwnerID        uuid.UUID `gorm:"type:uuid;not null;index" json:"owner_id"`
	Name           string    `gorm:"not null" json:"name"`
	Email          *string   `gorm:"index" json:"email,omitempty"`
	Phone          *string   `json:"phone,omitempty"`
}

func (Contact) TableName() string {
	return "contacts"
}
