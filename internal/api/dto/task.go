package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/hugh/go-crm/internal/api/validation"
	"github.com/hugh/go-crm/internal/database/models"
)

type CreateTaskRequest struct {
	DealID      string    `json:"deal_id" validate:"required,uuid"`
	Title       string    `json:"title" validate:"notblank,max=255"`
	Description *string   `json:"description,omitempty" validate:"omitempty,max=5000"`
	DueDate     time.Time `json:"due_date" validate:"required"`
}

func (r CreateTaskRequest) Validate() map[string]string {
	return validation.Struct(r)
}

func (r CreateTaskRequest) ParsedDealID() uuid.UUID {
	id, _ := uuid.Parse(r.DealID)
	return id
}

type UpdateTaskRequest struct {
	Title       *string    `json:"title,omitempty" validate:"omitempty,notblank,max=255"`
	Description *string    `json:"description,omitempty" validate:"omitempty,max=5000"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	IsDone      *bool      `json:"is_done,omitempty"`
}

func (r UpdateTaskRequest) Validate() map[string]string {
	return validation.Struct(r)
}

type TaskResponse struct {
	ID          string    `json:"id"`
	DealID      string    `json:"deal_id"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	DueDate     time.Time `json:"due_date"`
	IsDone      bool      `json:"is_done"`
	CreatedAt   time.Time `json:"created_at"`
}

func NewTaskResponse(t *models.Task) TaskResponse {
	return TaskResponse{
		ID:          t.ID.String(),
		DealID:      t.DealID.String(),
		Title:       t.Title,
		Description: t.Description,
		DueDate:     t.DueDate,
		IsDone:      t.IsDone,
		CreatedAt:   t.CreatedAt,
	}
}
