package jobs

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/hugh/go-crm/internal/domain"
	"github.com/shopspring/decimal"
)

// Task type names
const (
	TypeDealClosed    = "deal:closed"
	TypeTaskReminders = "tasks:due_reminders"
)

// DealClosedPayload describes a deal that has just been marked won or lost.
type DealClosedPayload struct {
	DealID         uuid.UUID         `json:"deal_id"`
	OrganizationID uuid.UUID         `json:"organization_id"`
	OwnerID        uuid.UUID         `json:"owner_id"`
	Title          string            `json:"title"`
	Status         domain.DealStatus `json:"status"`
	Amount         decimal.Decimal   `json:"amount"`
	Currency       string            `json:"currency"`
	ClosedAt       time.Time         `json:"closed_at"`
}

func NewDealClosedTask(payload DealClosedPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeDealClosed, data, asynq.MaxRetry(3)), nil
}

// TaskRemindersPayload is empty; the handler scans every organization.
type TaskRemindersPayload struct{}

func NewTaskRemindersTask() *asynq.Task {
	return asynq.NewTask(TypeTaskReminders, nil, asynq.MaxRetry(1))
}
