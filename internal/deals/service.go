// Package deals implements the deal lifecycle: creation, guarded status and
// stage transitions, and the timeline entries each transition produces.
package deals

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/hugh/go-crm/internal/activities"
	"github.com/hugh/go-crm/internal/database/models"
	"github.com/hugh/go-crm/internal/domain"
	"github.com/hugh/go-crm/internal/membership"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Notifier is told about deals that were closed as won or lost. It runs after
// the transaction commits; its failures never affect the update.
type Notifier interface {
	DealClosed(ctx context.Context, deal *models.Deal) error
}

type Service struct {
	db       *gorm.DB
	members  membership.Resolver
	notifier Notifier
	logger   *slog.Logger
}

func NewService(db *gorm.DB, members membership.Resolver, notifier Notifier, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{db: db, members: members, notifier: notifier, logger: logger}
}

type CreateInput struct {
	ContactID uuid.UUID
	Title     string
	Amount    *decimal.Decimal
	Currency  string
}

// UpdateInput carries a partial update; nil fields are left unchanged.
type UpdateInput struct {
	Title    *string
	Amount   *decimal.Decimal
	Currency *string
	Status   *domain.DealStatus
	Stage    *domain.DealStage
}

type ListFilter struct {
	Statuses  []domain.DealStatus
	Stage     *domain.DealStage
	OwnerID   *uuid.UUID
	MinAmount *decimal.Decimal
	MaxAmount *decimal.Decimal
	OrderBy   string
	Order     string
	Page      int
	PerPage   int
}

const (
	DefaultPerPage = 20
	MaxPerPage     = 100
)

var sortColumns = map[string]string{
	"created_at": "created_at",
	"amount":     "amount",
	"updated_at": "updated_at",
}

type ListResult struct {
	Items []models.Deal
	Total int64
}

func (s *Service) List(ctx context.Context, orgID, actorID uuid.UUID, f ListFilter) (*ListResult, error) {
	actor, err := s.members.Resolve(ctx, orgID, actorID)
	if err != nil {
		return nil, err
	}

	// Members without manage-all rights only ever see their own deals when
	// they filter by owner.
	if f.OwnerID != nil && !domain.CanManageAll(actor.Role) {
		f.OwnerID = &actorID
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PerPage < 1 {
		f.PerPage = DefaultPerPage
	}
	if f.PerPage > MaxPerPage {
		f.PerPage = MaxPerPage
	}

	query := s.db.WithContext(ctx).Model(&models.Deal{}).Where("organization_id = ?", orgID)
	if len(f.Statuses) > 0 {
		query = query.Where("status IN ?", f.Statuses)
	}
	if f.Stage != nil {
		query = query.Where("stage = ?", *f.Stage)
	}
	if f.OwnerID != nil {
		query = query.Where("owner_id = ?", *f.OwnerID)
	}
	if f.MinAmount != nil {
		query = query.Where("amount >= ?", *f.MinAmount)
	}
	if f.MaxAmount != nil {
		query = query.Where("amount <= ?", *f.MaxAmount)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("counting deals: %w", err)
	}

	column, ok := sortColumns[f.OrderBy]
	if !ok {
		column = "created_at"
	}
	direction := "DESC"
	if strings.EqualFold(f.Order, "asc") {
		direction = "ASC"
	}

	var items []models.Deal
	if err := query.
		Order(column + " " + direction).
		Offset((f.Page - 1) * f.PerPage).
		Limit(f.PerPage).
		Find(&items).Error; err != nil {
		return nil, fmt.Errorf("listing deals: %w", err)
	}

	return &ListResult{Items: items, Total: total}, nil
}

func (s *Service) Get(ctx context.Context, orgID, actorID, dealID uuid.UUID) (*models.Deal, error) {
	if _, err := s.members.Resolve(ctx, orgID, actorID); err != nil {
		return nil, err
	}
	return s.find(ctx, orgID, dealID)
}

func (s *Service) Create(ctx context.Context, orgID, actorID uuid.UUID, in CreateInput) (*models.Deal, error) {
	if _, err := s.members.Resolve(ctx, orgID, actorID); err != nil {
		return nil, err
	}

	var contact models.Contact
	err := s.db.WithContext(ctx).Select("id").
		Where("id = ? AND organization_id = ?", in.ContactID, orgID).
		First(&contact).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.Validation("Contact not found in this organization")
		}
		return nil, fmt.Errorf("loading contact: %w", err)
	}

	deal := models.Deal{
		OrganizationID: orgID,
		ContactID:      in.ContactID,
		OwnerID:        actorID,
		Title:          in.Title,
		Amount:         decimal.Zero,
		Currency:       domain.DefaultCurrency,
		Status:         domain.DealStatusNew,
		Stage:          domain.DealStageQualification,
	}
	if in.Amount != nil {
		deal.Amount = *in.Amount
	}
	if in.Currency != "" {
		deal.Currency = strings.ToUpper(in.Currency)
	}

	if err := s.db.WithContext(ctx).Create(&deal).Error; err != nil {
		return nil, fmt.Errorf("creating deal: %w", err)
	}
	return &deal, nil
}

// Update applies a partial update. Checks run in a fixed order: ownership,
// the won-amount guard, then the stage rollback guard. The column update and
// any status or stage timeline entries commit in one transaction.
func (s *Service) Update(ctx context.Context, orgID, actorID, dealID uuid.UUID, in UpdateInput) (*models.Deal, error) {
	actor, err := s.members.Resolve(ctx, orgID, actorID)
	if err != nil {
		return nil, err
	}

	deal, err := s.find(ctx, orgID, dealID)
	if err != nil {
		return nil, err
	}

	if !domain.CanManageAll(actor.Role) && deal.OwnerID != actorID {
		return nil, domain.Forbidden("You can only update your own deals")
	}

	if in.Status != nil || in.Amount != nil {
		status := deal.Status
		if in.Status != nil {
			status = *in.Status
		}
		if status == domain.DealStatusWon {
			amount := deal.Amount
			if in.Amount != nil {
				amount = *in.Amount
			}
			if err := domain.EnsureCanWin(amount); err != nil {
				return nil, err
			}
		}
	}

	if in.Stage != nil {
		if err := domain.EnsureStageChangeAllowed(actor.Role, deal.Stage, *in.Stage); err != nil {
			return nil, err
		}
	}

	oldStatus, oldStage := deal.Status, deal.Stage
	updates := map[string]interface{}{}
	if in.Title != nil {
		deal.Title = *in.Title
		updates["title"] = deal.Title
	}
	if in.Amount != nil {
		deal.Amount = *in.Amount
		updates["amount"] = deal.Amount
	}
	if in.Currency != nil {
		deal.Currency = strings.ToUpper(*in.Currency)
		updates["currency"] = deal.Currency
	}
	if in.Status != nil {
		deal.Status = *in.Status
		updates["status"] = deal.Status
	}
	if in.Stage != nil {
		deal.Stage = *in.Stage
		updates["stage"] = deal.Stage
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(updates) > 0 {
			if err := tx.Model(deal).Updates(updates).Error; err != nil {
				return fmt.Errorf("updating deal: %w", err)
			}
		}
		if deal.Status != oldStatus {
			if _, err := activities.RecordStatusChanged(tx, deal.ID, actorID, oldStatus, deal.Status); err != nil {
				return err
			}
		}
		if deal.Stage != oldStage {
			if _, err := activities.RecordStageChanged(tx, deal.ID, actorID, oldStage, deal.Stage); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if deal.Status != oldStatus && deal.Status.Closed() {
		s.notifyClosed(ctx, deal)
	}

	return s.find(ctx, orgID, dealID)
}

// Delete removes the deal together with its tasks and timeline.
func (s *Service) Delete(ctx context.Context, orgID, actorID, dealID uuid.UUID) error {
	actor, err := s.members.Resolve(ctx, orgID, actorID)
	if err != nil {
		return err
	}

	deal, err := s.find(ctx, orgID, dealID)
	if err != nil {
		return err
	}

	if !domain.CanManageAll(actor.Role) && deal.OwnerID != actorID {
		return domain.Forbidden("You can only delete your own deals")
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("deal_id = ?", deal.ID).Delete(&models.Activity{}).Error; err != nil {
			return fmt.Errorf("deleting activities: %w", err)
		}
		if err := tx.Where("deal_id = ?", deal.ID).Delete(&models.Task{}).Error; err != nil {
			return fmt.Errorf("deleting tasks: %w", err)
		}
		if err := tx.Delete(deal).Error; err != nil {
			return fmt.Errorf("deleting deal: %w", err)
		}
		return nil
	})
}

func (s *Service) find(ctx context.Context, orgID, dealID uuid.UUID) (*models.Deal, error) {
	var deal models.Deal
	err := s.db.WithContext(ctx).
		Where("id = ? AND organization_id = ?", dealID, orgID).
		First(&deal).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NotFound("Deal not found")
		}
		return nil, fmt.Errorf("loading deal: %w", err)
	}
	return &deal, nil
}

func (s *Service) notifyClosed(ctx context.Context, deal *models.Deal) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.DealClosed(ctx, deal); err != nil {
		s.logger.Warn("failed to enqueue deal closed notification",
			"deal_id", deal.ID,
			"status", deal.Status,
			"error", err,
		)
	}
}
