// Package membership resolves a caller's role inside an organization and
// administers organization members.
package membership

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/hugh/go-crm/internal/database/models"
	"github.com/hugh/go-crm/internal/domain"
	"gorm.io/gorm"
)

// Resolver is the capability every tenant-scoped service depends on.
type Resolver interface {
	Resolve(ctx context.Context, orgID, userID uuid.UUID) (*models.OrganizationMember, error)
}

var _ Resolver = (*Service)(nil)

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Resolve returns the caller's membership in orgID. A missing membership is
// reported as Forbidden so that tenant existence is not disclosed.
func (s *Service) Resolve(ctx context.Context, orgID, userID uuid.UUID) (*models.OrganizationMember, error) {
	var member models.OrganizationMember
	err := s.db.WithContext(ctx).
		Where("organization_id = ? AND user_id = ?", orgID, userID).
		First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.Forbidden("You are not a member of this organization")
		}
		return nil, fmt.Errorf("resolving membership: %w", err)
	}
	return &member, nil
}

// ListOrganizations returns every membership of userID with its organization.
func (s *Service) ListOrganizations(ctx context.Context, userID uuid.UUID) ([]models.OrganizationMember, error) {
	var members []models.OrganizationMember
	if err := s.db.WithContext(ctx).
		Preload("Organization").
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&members).Error; err != nil {
		return nil, fmt.Errorf("listing organizations: %w", err)
	}
	return members, nil
}

func (s *Service) ListMembers(ctx context.Context, orgID, actorID uuid.UUID) ([]models.OrganizationMember, error) {
	if _, err := s.Resolve(ctx, orgID, actorID); err != nil {
		return nil, err
	}

	var members []models.OrganizationMember
	if err := s.db.WithContext(ctx).
		Preload("User").
		Where("organization_id = ?", orgID).
		Order("created_at ASC").
		Find(&members).Error; err != nil {
		return nil, fmt.Errorf("listing members: %w", err)
	}
	return members, nil
}

func (s *Service) AddMember(ctx context.Context, orgID, actorID, targetUserID uuid.UUID, role domain.Role) (*models.OrganizationMember, error) {
	actor, err := s.requireAdmin(ctx, orgID, actorID)
	if err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, domain.Validation("Invalid role")
	}
	if role == domain.RoleOwner && actor.Role != domain.RoleOwner {
		return nil, domain.Forbidden("Only owner can change owner role")
	}

	var user models.User
	if err := s.db.WithContext(ctx).Select("id").First(&user, "id = ?", targetUserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NotFound("User not found")
		}
		return nil, fmt.Errorf("loading user: %w", err)
	}

	var existing int64
	if err := s.db.WithContext(ctx).Model(&models.OrganizationMember{}).
		Where("organization_id = ? AND user_id = ?", orgID, targetUserID).
		Count(&existing).Error; err != nil {
		return nil, fmt.Errorf("checking membership: %w", err)
	}
	if existing > 0 {
		return nil, domain.Conflict("User is already a member of this organization")
	}

	member := models.OrganizationMember{OrganizationID: orgID, UserID: targetUserID, Role: role}
	if err := s.db.WithContext(ctx).Create(&member).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, domain.Conflict("User is already a member of this organization")
		}
		return nil, fmt.Errorf("adding member: %w", err)
	}
	return &member, nil
}

// UpdateRole changes a member's role. Any change into or out of owner needs
// an owner as the actor.
func (s *Service) UpdateRole(ctx context.Context, orgID, actorID, targetUserID uuid.UUID, role domain.Role) (*models.OrganizationMember, error) {
	actor, err := s.requireAdmin(ctx, orgID, actorID)
	if err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, domain.Validation("Invalid role")
	}

	target, err := s.findMember(ctx, orgID, targetUserID)
	if err != nil {
		return nil, err
	}

	if (target.Role == domain.RoleOwner || role == domain.RoleOwner) && actor.Role != domain.RoleOwner {
		return nil, domain.Forbidden("Only owner can change owner role")
	}

	if err := s.db.WithContext(ctx).Model(target).Update("role", role).Error; err != nil {
		return nil, fmt.Errorf("updating role: %w", err)
	}
	target.Role = role
	return target, nil
}

func (s *Service) RemoveMember(ctx context.Context, orgID, actorID, targetUserID uuid.UUID) error {
	if _, err := s.requireAdmin(ctx, orgID, actorID); err != nil {
		return err
	}

	target, err := s.findMember(ctx, orgID, targetUserID)
	if err != nil {
		return err
	}
	if target.Role == domain.RoleOwner {
		return domain.Validation("Cannot remove organization owner")
	}

	if err := s.db.WithContext(ctx).Delete(target).Error; err != nil {
		return fmt.Errorf("removing member: %w", err)
	}
	return nil
}

func (s *Service) requireAdmin(ctx context.Context, orgID, actorID uuid.UUID) (*models.OrganizationMember, error) {
	actor, err := s.Resolve(ctx, orgID, actorID)
	if err != nil {
		return nil, err
	}
	if !domain.CanModifySettings(actor.Role) {
		return nil, domain.Forbidden("Insufficient permissions")
	}
	return actor, nil
}

func (s *Service) findMember(ctx context.Context, orgID, userID uuid.UUID) (*models.OrganizationMember, error) {
	var member models.OrganizationMember
	err := s.db.WithContext(ctx).
		Where("organization_id = ? AND user_id = ?", orgID, userID).
		First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NotFound("Member not found")
		}
		return nil, fmt.Errorf("loading member: %w", err)
	}
	return &member, nil
}
