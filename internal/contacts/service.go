package contacts

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
	DefaultPerPage = 20
	MaxPerPage     = 100
)

type Service struct {
	db      *gorm.DB
	members membership.Resolver
}

func NewService(db *gorm.DB, members membership.Resolver) *Service {
	return &Service{db: db, members: members}
}

type CreateInput struct {
	Name  string
	Email *string
	Phone *string
}

type UpdateInput struct {
	Name  *string
	Email *string
	Phone *string
}

type ListFilter struct {
	Search  string
	OwnerID *uuid.UUID
	Page    int
	PerPage int
}

type ListResult struct {
	Items []models.Contact
	Total int64
}

func (s *Service) List(ctx context.Context, orgID, actorID uuid.UUID, f ListFilter) (*ListResult, error) {
	actor, err := s.members.Resolve(ctx, orgID, actorID)
	if err != nil {
		return nil, err
	}
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

	query := s.db.WithContext(ctx).Model(&models.Contact{}).Where("organization_id = ?", orgID)
	if search := strings.TrimSpace(f.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ?", pattern, pattern)
	}
	if f.OwnerID != nil {
		query = query.Where("owner_id = ?", *f.OwnerID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("counting contacts: %w", err)
	}

	var items []models.Contact
	if err := query.
		Order("created_at DESC").
		Offset((f.Page - 1) * f.PerPage).
		Limit(f.PerPage).
		Find(&items).Error; err != nil {
		return nil, fmt.Errorf("listing contacts: %w", err)
	}

	return &ListResult{Items: items, Total: total}, nil
}

func (s *Service) Get(ctx context.Context, orgID, actorID, contactID uuid.UUID) (*models.Contact, error) {
	if _, err := s.members.Resolve(ctx, orgID, actorID); err != nil {
		return nil, err
	}
	return s.find(ctx, orgID, contactID)
}

func (s *Service) Create(ctx context.Context, orgID, actorID uuid.UUID, in CreateInput) (*models.Contact, error) {
	if _, err := s.members.Resolve(ctx, orgID, actorID); err != nil {
		return nil, err
	}

	contact := models.Contact{
		OrganizationID: orgID,
		OwnerID:        actorID,
		Name:           in.Name,
		Email:          in.Email,
		Phone:          in.Phone,
	}
	if err := s.db.WithContext(ctx).Create(&contact).Error; err != nil {
		return nil, fmt.Errorf("creating contact: %w", err)
	}
	return &contact, nil
}

// Update changes name, email and phone. Ownership cannot be transferred.
func (s *Service) Update(ctx context.Context, orgID, actorID, contactID uuid.UUID, in UpdateInput) (*models.Contact, error) {
	actor, err := s.members.Resolve(ctx, orgID, actorID)
	if err != nil {
		return nil, err
	}

	contact, err := s.find(ctx, orgID, contactID)
	if err != nil {
		return nil, err
	}
	if !domain.CanManageAll(actor.Role) && contact.OwnerID != actorID {
		return nil, domain.Forbidden("You can only update your own contacts")
	}

	updates := map[string]interface{}{}
	if in.Name != nil {
		contact.Name = *in.Name
		updates["name"] = contact.Name
	}
	if in.Email != nil {
		contact.Email = in.Email
		updates["email"] = *in.Email
	}
	if in.Phone != nil {
		contact.Phone = in.Phone
		updates["phone"] = *in.Phone
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(contact).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("updating contact: %w", err)
		}
	}
	return contact, nil
}

// Delete removes a contact that no deal references.
func (s *Service) Delete(ctx context.Context, orgID, actorID, contactID uuid.UUID) error {
	actor, err := s.members.Resolve(ctx, orgID, actorID)
	if err != nil {
		return err
	}

	contact, err := s.find(ctx, orgID, contactID)
	if err != nil {
		return err
	}
	if !domain.CanManageAll(actor.Role) && contact.OwnerID != actorID {
		return domain.Forbidden("You can only delete your own contacts")
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var deals int64
		if err := tx.Model(&models.Deal{}).Where("contact_id = ?", contact.ID).Count(&deals).Error; err != nil {
			return fmt.Errorf("counting deals: %w", err)
		}
		if deals > 0 {
			return domain.Conflict("Cannot delete contact with existing deals")
		}
		if err := tx.Delete(contact).Error; err != nil {
			return fmt.Errorf("deleting contact: %w", err)
		}
		return nil
	})
}

func (s *Service) find(ctx context.Context, orgID, contactID uuid.UUID) (*models.Contact, error) {
	var contact models.Contact
	err := s.db.WithContext(ctx).
		Where("id = ? AND organization_id = ?", contactID, orgID).
		First(&contact).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NotFound("Contact not found")
		}
		return nil, fmt.Errorf("loading contact: %w", err)
	}
	return &contact, nil
}
