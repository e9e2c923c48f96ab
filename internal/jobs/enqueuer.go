package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/hugh/go-crm/internal/database/models"
)

// Enqueuer publishes deal lifecycle events to the job queue.
type Enqueuer struct {
	client *asynq.Client
}

func NewEnqueuer(client *asynq.Client) *Enqueuer {
	return &Enqueuer{client: client}
}

func (e *Enqueuer) DealClosed(ctx context.Context, deal *models.Deal) error {
	task, err := NewDealClosedTask(DealClosedPayload{
		DealID:         deal.ID,
		OrganizationID: deal.OrganizationID,
		OwnerID:        deal.OwnerID,
		Title:          deal.Title,
		Status:         deal.Status,
		Amount:         deal.Amount,
		Currency:       deal.Currency,
		ClosedAt:       time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("building task: %w", err)
	}

	if _, err := e.client.EnqueueContext(ctx, task, asynq.Queue("default")); err != nil {
		return fmt.Errorf("enqueue %s: %w", TypeDealClosed, err)
	}
	return nil
}
