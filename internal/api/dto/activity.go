package dto

import (
	"time"

	"github.com/hugh/go-crm/internal/api/validation"
	"github.com/hugh/go-crm/internal/database/models"
	"github.com/hugh/go-crm/internal/domain"
)

type CommentPayload struct {
	Text string `json:"text" validate:"notblank,max=10000"`
}

// CreateActivityRequest is the body of POST /deals/{id}/activities. Only
// comments may be created through the API; the rest are system generated.
type CreateActivityRequest struct {
	Type    domain.ActivityType `json:"type" validate:"required"`
	Payload *CommentPayload     `json:"payload" validate:"required"`
}

func (r CreateActivityRequest) Validate() map[string]string {
	return validation.Struct(r)
}

type ActivityResponse struct {
	ID        string              `json:"id"`
	DealID    string              `json:"deal_id"`
	AuthorID  *string             `json:"author_id"`
	Type      domain.ActivityType `json:"type"`
	Payload   map[string]any      `json:"payload"`
	CreatedAt time.Time           `json:"created_at"`
}

func NewActivityResponse(a *models.Activity) ActivityResponse {
	resp := ActivityResponse{
		ID:        a.ID.String(),
		DealID:    a.DealID.String(),
		Type:      a.Type,
		Payload:   a.Payload,
		CreatedAt: a.CreatedAt,
	}
	if a.AuthorID != nil {
		s := a.AuthorID.String()
		resp.AuthorID = &s
	}
	if resp.Payload == nil {
		resp.Payload = map[string]any{}
	}
	return resp
}
