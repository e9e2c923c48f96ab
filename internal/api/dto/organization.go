package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/hugh/go-crm/internal/api/validation"
	"github.com/hugh/go-crm/internal/database/models"
	"github.com/hugh/go-crm/internal/domain"
)

type OrganizationDTO struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

func NewOrganizationDTO(o *models.Organization) *OrganizationDTO {
	if o == nil {
		return nil
	}
	return &OrganizationDTO{ID: o.ID.String(), Name: o.Name, CreatedAt: o.CreatedAt}
}

// MembershipDTO is one entry of GET /organizations/me.
type MembershipDTO struct {
	Organization *OrganizationDTO `json:"organization"`
	Role         domain.Role      `json:"role"`
}

type MemberDTO struct {
	UserID    string      `json:"user_id"`
	Email     string      `json:"email,omitempty"`
	Name      string      `json:"name,omitempty"`
	Role      domain.Role `json:"role"`
	CreatedAt time.Time   `json:"created_at"`
}

func NewMemberDTO(m *models.OrganizationMember) MemberDTO {
	resp := MemberDTO{
		UserID:    m.UserID.String(),
		Role:      m.Role,
		CreatedAt: m.CreatedAt,
	}
	if m.User != nil {
		resp.Email = m.User.Email
		resp.Name = m.User.Name
	}
	return resp
}

type AddMemberRequest struct {
	UserID string      `json:"user_id" validate:"required,uuid"`
	Role   domain.Role `json:"role" validate:"required,oneof=owner admin manager member"`
}

func (r AddMemberRequest) Validate() map[string]string {
	return validation.Struct(r)
}

func (r AddMemberRequest) ParsedUserID() uuid.UUID {
	id, _ := uuid.Parse(r.UserID)
	return id
}

type UpdateMemberRequest struct {
	Role domain.Role `json:"role" validate:"required,oneof=owner admin manager member"`
}

func (r UpdateMemberRequest) Validate() map[string]string {
	return validation.Struct(r)
}
