// Package activities is the append-only timeline attached to every deal.
package activities

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/hugh/go-crm/internal/database/models"
	"github.com/hugh/go-crm/internal/domain"
	"github.com/hugh/go-crm/internal/membership"
	"gorm.io/gorm"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 100
)

type Service struct {
	db      *gorm.DB
	members membership.Resolver
}

func NewService(db *gorm.DB, members membership.Resolver) *Service {
	return &Service{db: db, members: members}
}

type ListResult struct {
	Items []models.Activity
	Total int64
}

// List returns a deal's timeline, newest first.
func (s *Service) List(ctx context.Context, orgID, actorID, dealID uuid.UUID, page, pageSize int) (*ListResult, error) {
	if _, err := s.members.Resolve(ctx, orgID, actorID); err != nil {
		return nil, err
	}
	if err := s.ensureDeal(ctx, orgID, dealID); err != nil {
		return nil, err
	}

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	query := s.db.WithContext(ctx).Model(&models.Activity{}).Where("deal_id = ?", dealID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("counting activities: %w", err)
	}

	var items []models.Activity
	if err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&items).Error; err != nil {
		return nil, fmt.Errorf("listing activities: %w", err)
	}

	return &ListResult{Items: items, Total: total}, nil
}

// CreateComment appends a user comment. Text is trimmed and must not be empty.
func (s *Service) CreateComment(ctx context.Context, orgID, actorID, dealID uuid.UUID, text string) (*models.Activity, error) {
	if _, err := s.members.Resolve(ctx, orgID, actorID); err != nil {
		return nil, err
	}
	if err := s.ensureDeal(ctx, orgID, dealID); err != nil {
		return nil, err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, domain.Validation("Comment text cannot be empty")
	}

	return record(s.db.WithContext(ctx), dealID, &actorID, domain.ActivityComment, map[string]any{"text": text})
}

func (s *Service) ensureDeal(ctx context.Context, orgID, dealID uuid.UUID) error {
	var deal models.Deal
	err := s.db.WithContext(ctx).Select("id").
		Where("id = ? AND organization_id = ?", dealID, orgID).
		First(&deal).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.NotFound("Deal not found")
		}
		return fmt.Errorf("loading deal: %w", err)
	}
	return nil
}
