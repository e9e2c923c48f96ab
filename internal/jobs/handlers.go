package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/hugh/go-crm/internal/database/models"
	"github.com/hugh/go-crm/internal/domain"
	"gorm.io/gorm"
)

type Handler struct {
	db     *gorm.DB
	logger *slog.Logger
	now    func() time.Time
}

func NewHandler(db *gorm.DB, logger *slog.Logger) *Handler {
	return &Handler{db: db, logger: logger, now: time.Now}
}

func (h *Handler) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeDealClosed, h.HandleDealClosed)
	mux.HandleFunc(TypeTaskReminders, h.HandleTaskReminders)
}

func (h *Handler) HandleDealClosed(ctx context.Context, t *asynq.Task) error {
	var payload DealClosedPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}
	if !payload.Status.Closed() {
		return fmt.Errorf("deal %s has non-terminal status %q: %w", payload.DealID, payload.Status, asynq.SkipRetry)
	}

	var owner models.User
	if err := h.db.WithContext(ctx).Select("id", "email", "name").First(&owner, "id = ?", payload.OwnerID).Error; err != nil {
		h.logger.Warn("deal owner not found", "deal_id", payload.DealID, "owner_id", payload.OwnerID, "error", err)
		return nil
	}

	h.logger.Info("deal closed",
		"deal_id", payload.DealID,
		"org_id", payload.OrganizationID,
		"status", payload.Status,
		"amount", payload.Amount.StringFixed(2),
		"currency", payload.Currency,
		"owner_email", owner.Email,
	)
	return nil
}

// Reminder is one open task due within the current UTC day.
type Reminder struct {
	TaskID         uuid.UUID
	TaskTitle      string
	DueDate        time.Time
	DealID         uuid.UUID
	DealTitle      string
	OrganizationID uuid.UUID
	OwnerID        uuid.UUID
}

// DueToday returns open tasks due between 00:00 UTC today and 00:00 UTC tomorrow.
func (h *Handler) DueToday(ctx context.Context) ([]Reminder, error) {
	start := domain.StartOfDay(h.now())
	end := start.Add(24 * time.Hour)

	var tasks []models.Task
	if err := h.db.WithContext(ctx).
		Preload("Deal").
		Where("is_done = ? AND due_date >= ? AND due_date < ?", false, start, end).
		Order("due_date ASC").
		Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("loading due tasks: %w", err)
	}

	reminders := make([]Reminder, 0, len(tasks))
	for _, task := range tasks {
		if task.Deal == nil {
			continue
		}
		reminders = append(reminders, Reminder{
			TaskID:         task.ID,
			TaskTitle:      task.Title,
			DueDate:        task.DueDate,
			DealID:         task.DealID,
			DealTitle:      task.Deal.Title,
			OrganizationID: task.Deal.OrganizationID,
			OwnerID:        task.Deal.OwnerID,
		})
	}
	return reminders, nil
}

func (h *Handler) HandleTaskReminders(ctx context.Context, t *asynq.Task) error {
	reminders, err := h.DueToday(ctx)
	if err != nil {
		return err
	}

	for _, r := range reminders {
		h.logger.Info("task due today",
			"task_id", r.TaskID,
			"task_title", r.TaskTitle,
			"deal_id", r.DealID,
			"org_id", r.OrganizationID,
			"owner_id", r.OwnerID,
			"due_date", r.DueDate.Format(time.RFC3339),
		)
	}

	h.logger.Info("task reminders sent", "count", len(reminders))
	return nil
}
