package dto

import (
	"time"

	"github.com/hugh/go-crm/internal/api/validation"
	"github.com/hugh/go-crm/internal/database/models"
)

type CreateContactRequest struct {
	Name  string  `json:"name" validate:"notblank,max=255"`
	Email *string `json:"email,omitempty" validate:"omitempty,email,max=254"`
	Phone *string `json:"phone,omitempty" validate:"omitempty,max=50"`
}

func (r CreateContactRequest) Validate() map[string]string {
	return validation.Struct(r)
}

type UpdateContactRequest struct {
	Name  *string `json:"name,omitempty" validate:"omitempty,notblank,max=255"`
	Email *string `json:"email,omitempty" validate:"omitempty,email,max=254"`
	Phone *string `json:"phone,omitempty" validate:"omitempty,max=50"`
}

func (r UpdateContactRequest) Validate() map[string]string {
	return validation.Struct(r)
}

type ContactResponse struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	OwnerID        string    `json:"owner_id"`
	Name           string    `json:"name"`
	Email          *string   `json:"email"`
	Phone          *string   `json:"phone"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func NewContactResponse(c *models.Contact) ContactResponse {
	return ContactResponse{
		ID:             c.ID.String(),
		OrganizationID: c.OrganizationID.String(),
		OwnerID:        c.OwnerID.String(),
		Name:           c.Name,
		Email:          c.Email,
		Phone:          c.Phone,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}
