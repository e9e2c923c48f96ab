// Package tasks manages follow-up tasks attached to deals.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hugh/go-crm/internal/activities"
	"github.com/hugh/go-crm/internal/database/models"
	"github.com/hugh/go-crm/internal/domain"
	"github.com/hugh/go-crm/internal/membership"
	"gorm.io/gorm"
)

const (
	DefaultPerPage = 20
	MaxPerPage     = 100
)

type Service struct {
	db      *gorm.DB
	members membership.Resolver
	now     func() time.Time
}

func NewService(db *gorm.DB, members membership.Resolver) *Service {
	return &Service{db: db, members: members, now: time.Now}
}

// WithClock replaces the time source used by the due-date check.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

type CreateInput struct {
	DealID      uuid.UUID
	Title       string
	Description *string
	DueDate     time.Time
}

type UpdateInput struct {
	Title       *string
	Description *string
	DueDate     *time.Time
	IsDone      *bool
}

// ListFilter narrows a task listing. A nil DealID lists the whole organization.
type ListFilter struct {
	DealID    *uuid.UUID
	OnlyOpen  bool
	DueBefore *time.Time
	DueAfter  *time.Time
	Page      int
	PerPage   int
}

type ListResult struct {
	Items []models.Task
	Total int64
}

func (s *Service) List(ctx context.Context, orgID, actorID uuid.UUID, f ListFilter) (*ListResult, error) {
	if _, err := s.members.Resolve(ctx, orgID, actorID); err != nil {
		return nil, err
	}

	query := s.db.WithContext(ctx).Model(&models.Task{})
	if f.DealID != nil {
		if _, err := s.findDeal(ctx, orgID, *f.DealID); err != nil {
			return nil, err
		}
		query = query.Where("deal_id = ?", *f.DealID)
	} else {
		orgDeals := s.db.Model(&models.Deal{}).Select("id").Where("organization_id = ?", orgID)
		query = query.Where("deal_id IN (?)", orgDeals)
	}

	if f.OnlyOpen {
		query = query.Where("is_done = ?", false)
	}
	if f.DueBefore != nil {
		query = query.Where("due_date <= ?", f.DueBefore.UTC())
	}
	if f.DueAfter != nil {
		query = query.Where("due_date >= ?", f.DueAfter.UTC())
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

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("counting tasks: %w", err)
	}

	var items []models.Task
	if err := query.
		Order("due_date ASC").
		Offset((f.Page - 1) * f.PerPage).
		Limit(f.PerPage).
		Find(&items).Error; err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}

	return &ListResult{Items: items, Total: total}, nil
}

func (s *Service) Get(ctx context.Context, orgID, actorID, taskID uuid.UUID) (*models.Task, error) {
	if _, err := s.members.Resolve(ctx, orgID, actorID); err != nil {
		return nil, err
	}
	task, _, err := s.findTask(ctx, orgID, taskID)
	return task, err
}

// Create adds a task to a deal and records a task_created entry on the
// deal's timeline in the same transaction.
func (s *Service) Create(ctx context.Context, orgID, actorID uuid.UUID, in CreateInput) (*models.Task, error) {
	actor, err := s.members.Resolve(ctx, orgID, actorID)
	if err != nil {
		return nil, err
	}

	deal, err := s.findDeal(ctx, orgID, in.DealID)
	if err != nil {
		return nil, err
	}
	if err := ensureTaskOwner(actor, deal); err != nil {
		return nil, err
	}
	if err := domain.EnsureDueDateNotInPast(in.DueDate, s.now()); err != nil {
		return nil, err
	}

	task := models.Task{
		DealID:      deal.ID,
		Title:       in.Title,
		Description: in.Description,
		DueDate:     in.DueDate.UTC(),
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&task).Error; err != nil {
			return fmt.Errorf("creating task: %w", err)
		}
		_, err := activities.RecordTaskCreated(tx, &task, actorID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (s *Service) Update(ctx context.Context, orgID, actorID, taskID uuid.UUID, in UpdateInput) (*models.Task, error) {
	actor, err := s.members.Resolve(ctx, orgID, actorID)
	if err != nil {
		return nil, err
	}

	task, deal, err := s.findTask(ctx, orgID, taskID)
	if err != nil {
		return nil, err
	}
	if err := ensureTaskOwner(actor, deal); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if in.DueDate != nil {
		if err := domain.EnsureDueDateNotInPast(*in.DueDate, s.now()); err != nil {
			return nil, err
		}
		task.DueDate = in.DueDate.UTC()
		updates["due_date"] = task.DueDate
	}
	if in.Title != nil {
		task.Title = *in.Title
		updates["title"] = task.Title
	}
	if in.Description != nil {
		task.Description = in.Description
		updates["description"] = *in.Description
	}
	if in.IsDone != nil {
		task.IsDone = *in.IsDone
		updates["is_done"] = task.IsDone
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(task).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("updating task: %w", err)
		}
	}
	return task, nil
}

func (s *Service) Delete(ctx context.Context, orgID, actorID, taskID uuid.UUID) error {
	actor, err := s.members.Resolve(ctx, orgID, actorID)
	if err != nil {
		return err
	}

	task, deal, err := s.findTask(ctx, orgID, taskID)
	if err != nil {
		return err
	}
	if err := ensureTaskOwner(actor, deal); err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Delete(task).Error; err != nil {
		return fmt.Errorf("deleting task: %w", err)
	}
	return nil
}

// ensureTaskOwner restricts the member role to tasks on its own deals.
func ensureTaskOwner(actor *models.OrganizationMember, deal *models.Deal) error {
	if actor.Role == domain.RoleMember && deal.OwnerID != actor.UserID {
		return domain.Forbidden("You can only manage tasks for your own deals")
	}
	return nil
}

func (s *Service) findDeal(ctx context.Context, orgID, dealID uuid.UUID) (*models.Deal, error) {
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

// findTask loads a task and its deal, treating a deal outside orgID as a
// missing task.
func (s *Service) findTask(ctx context.Context, orgID, taskID uuid.UUID) (*models.Task, *models.Deal, error) {
	var task models.Task
	if err := s.db.WithContext(ctx).First(&task, "id = ?", taskID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, domain.NotFound("Task not found")
		}
		return nil, nil, fmt.Errorf("loading task: %w", err)
	}

	deal, err := s.findDeal(ctx, orgID, task.DealID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil, domain.NotFound("Task not found")
		}
		return nil, nil, err
	}
	return &task, deal, nil
}
