package models

import (
	"github.com/google/uuid"
	"github.com/hugh/go-crm/internal/domain"
)

type Organization struct {
	Base
	Name string `gorm:"not null" json:"name"`

	// Relationships
	Members  []OrganizationMember `gorm:"foreignKey:OrganizationID" json:"-"`
	Contacts []Contact            `gorm:"foreignKey:OrganizationID" json:"-"`
	Deals    []Deal               `gorm:"foreignKey:OrganizationID" json:"-"`
}

func (Organization) TableName() string {
	return "organizations"
}

// OrganizationMember ties a user to an organization with a role.
// A user holds at most one membership per organization.
type OrganizationMember struct {
	Base
	OrganizationID uuid.UUID   `gorm:"type:uuid;not null;uniqueIndex:idx_org_member" json:"organization_id"`
	UserID         uuid.UUID   `gorm:"type:uuid;not null;uniqueIndex:idx_org_member;index" json:"user_id"`
	Role           domain.Role `gorm:"type:varchar(20);not null;default:'member'" json:"role"`

	Organization *Organization `gorm:"foreignKey:OrganizationID" json:"organization,omitempty"`
	User         *User         `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (OrganizationMember) TableName() string {
	return "organization_members"
}
