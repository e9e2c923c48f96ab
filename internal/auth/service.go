package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/hugh/go-crm/internal/database/models"
	"github.com/hugh/go-crm/internal/domain"
	"gorm.io/gorm"
)

var errInvalidCredentials = domain.Unauthorized("Invalid email or password")

type Service struct {
	db  *gorm.DB
	jwt *JWTService
}

func NewService(db *gorm.DB, jwt *JWTService) *Service {
	return &Service{db: db, jwt: jwt}
}

type RegisterInput struct {
	Email    string
	Password string
	Name     string
	OrgName  string
}

type LoginInput struct {
	Email    string
	Password string
}

type AuthResult struct {
	User         *models.User
	Organization *models.Organization
	Tokens       *TokenPair
}

// Register creates the user, their organization and the owner membership,
// and issues a token pair. Either all of it happens or none of it does.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	email := normalizeEmail(input.Email)

	var existing int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&existing).Error; err != nil {
		return nil, fmt.Errorf("checking email: %w", err)
	}
	if existing > 0 {
		return nil, domain.Conflict("User with this email already exists")
	}

	hash, err := HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	result := &AuthResult{}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user := models.User{Email: email, PasswordHash: hash, Name: input.Name}
		if err := tx.Create(&user).Error; err != nil {
			return err
		}

		org := models.Organization{Name: input.OrgName}
		if err := tx.Create(&org).Error; err != nil {
			return err
		}

		member := models.OrganizationMember{OrganizationID: org.ID, UserID: user.ID, Role: domain.RoleOwner}
		if err := tx.Create(&member).Error; err != nil {
			return err
		}

		tokens, err := s.jwt.IssuePair(user.ID)
		if err != nil {
			return err
		}

		result.User = &user
		result.Organization = &org
		result.Tokens = tokens
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, domain.Conflict("User with this email already exists")
		}
		return nil, fmt.Errorf("registering user: %w", err)
	}

	return result, nil
}

func (s *Service) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", normalizeEmail(input.Email)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errInvalidCredentials
		}
		return nil, fmt.Errorf("loading user: %w", err)
	}

	if !CheckPassword(input.Password, user.PasswordHash) {
		return nil, errInvalidCredentials
	}

	tokens, err := s.jwt.IssuePair(user.ID)
	if err != nil {
		return nil, fmt.Errorf("issuing tokens: %w", err)
	}

	return &AuthResult{User: &user, Tokens: tokens}, nil
}

// Refresh exchanges a valid refresh token of an existing user for a new pair.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.jwt.Verify(refreshToken, TokenRefresh)
	if err != nil {
		return nil, domain.Unauthorized("Invalid refresh token")
	}
	userID, _ := claims.UserID()

	if _, err := s.GetUserByID(ctx, userID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.Unauthorized("Invalid refresh token")
		}
		return nil, err
	}

	tokens, err := s.jwt.IssuePair(userID)
	if err != nil {
		return nil, fmt.Errorf("issuing tokens: %w", err)
	}
	return tokens, nil
}

func (s *Service) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NotFound("User not found")
		}
		return nil, fmt.Errorf("loading user: %w", err)
	}
	return &user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
