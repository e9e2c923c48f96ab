package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hugh/go-crm/internal/auth"
	"github.com/hugh/go-crm/internal/database"
	"github.com/hugh/go-crm/internal/database/models"
	"github.com/hugh/go-crm/internal/domain"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OrganizationHeader carries the tenant id on every tenant-scoped request.
const OrganizationHeader = "X-Organization-Id"

// SetupTestDB creates an in-memory SQLite database for testing
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), database.GormConfig(logger.Default.LogMode(logger.Silent)))
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	// Every connection to ":memory:" is a separate database.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

// CreateTestOrg creates a test organization
func CreateTestOrg(t *testing.T, db *gorm.DB) *models.Organization {
	t.Helper()

	org := &models.Organization{
		Base: models.Base{ID: uuid.New()},
		Name: "Test Organization " + uuid.New().String()[:8],
	}

	if err := db.Create(org).Error; err != nil {
		t.Fatalf("failed to create test organization: %v", err)
	}

	return org
}

// CreateTestUser creates a user with password "testpassword123" and no memberships.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()

	hash, err := auth.HashPassword("testpassword123")
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Base:         models.Base{ID: uuid.New()},
		Email:        "test-" + uuid.New().String()[:8] + "@example.com",
		PasswordHash: hash,
		Name:         "Test User",
	}

	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}

	return user
}

// AddTestMember grants user the given role in org.
func AddTestMember(t *testing.T, db *gorm.DB, org *models.Organization, user *models.User, role domain.Role) *models.OrganizationMember {
	t.Helper()

	member := &models.OrganizationMember{
		OrganizationID: org.ID,
		UserID:         user.ID,
		Role:           role,
	}
	if err := db.Create(member).Error; err != nil {
		t.Fatalf("failed to create test membership: %v", err)
	}

	return member
}

// CreateTestMember creates a new user holding role in org.
func CreateTestMember(t *testing.T, db *gorm.DB, org *models.Organization, role domain.Role) *models.User {
	t.Helper()

	user := CreateTestUser(t, db)
	AddTestMember(t, db, org, user, role)
	return user
}

// CreateTestJWTService creates a JWT service for testing
func CreateTestJWTService() *auth.JWTService {
	return auth.NewJWTService("test-secret-key-for-testing", 30*time.Minute, 7*24*time.Hour)
}

// GenerateTestToken generates a valid access token for the given user
func GenerateTestToken(t *testing.T, jwtService *auth.JWTService, user *models.User) string {
	t.Helper()

	token, err := jwtService.Issue(user.ID, auth.TokenAccess)
	if err != nil {
		t.Fatalf("failed to generate test token: %v", err)
	}

	return token
}

// CreateTestContact creates a contact owned by ownerID.
func CreateTestContact(t *testing.T, db *gorm.DB, orgID, ownerID uuid.UUID, name string) *models.Contact {
	t.Helper()

	email := name + "@example.com"
	contact := &models.Contact{
		Base:           models.Base{ID: uuid.New()},
		OrganizationID: orgID,
		OwnerID:        ownerID,
		Name:           name,
		Email:          &email,
	}

	if err := db.Create(contact).Error; err != nil {
		t.Fatalf("failed to create test contact: %v", err)
	}

	return contact
}

// CreateTestDeal creates a deal in the qualification stage with status new.
func CreateTestDeal(t *testing.T, db *gorm.DB, contact *models.Contact, ownerID uuid.UUID, title string, amount int64) *models.Deal {
	t.Helper()

	deal := &models.Deal{
		Base:           models.Base{ID: uuid.New()},
		OrganizationID: contact.OrganizationID,
		ContactID:      contact.ID,
		OwnerID:        ownerID,
		Title:          title,
		Amount:         decimal.NewFromInt(amount),
		Currency:       domain.DefaultCurrency,
		Status:         domain.DealStatusNew,
		Stage:          domain.DealStageQualification,
	}

	if err := db.Create(deal).Error; err != nil {
		t.Fatalf("failed to create test deal: %v", err)
	}

	return deal
}

// CreateTestTask creates an open task on deal.
func CreateTestTask(t *testing.T, db *gorm.DB, dealID uuid.UUID, title string, due time.Time) *models.Task {
	t.Helper()

	task := &models.Task{
		Base:    models.Base{ID: uuid.New()},
		DealID:  dealID,
		Title:   title,
		DueDate: due.UTC(),
	}

	if err := db.Create(task).Error; err != nil {
		t.Fatalf("failed to create test task: %v", err)
	}

	return task
}

// TomorrowUTC returns noon UTC of the next day, safely past any due-date check.
func TomorrowUTC() time.Time {
	y, m, d := time.Now().UTC().AddDate(0, 0, 1).Date()
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

// AuthenticatedRequest creates an HTTP request with authentication
func AuthenticatedRequest(t *testing.T, method, path string, body interface{}, token string) *http.Request {
	t.Helper()

	var reqBody *bytes.Buffer
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return req
}

// TenantRequest creates an authenticated request scoped to orgID.
func TenantRequest(t *testing.T, method, path string, body interface{}, token string, orgID uuid.UUID) *http.Request {
	t.Helper()

	req := AuthenticatedRequest(t, method, path, body, token)
	req.Header.Set(OrganizationHeader, orgID.String())
	return req
}

// UnauthenticatedRequest creates an HTTP request without authentication
func UnauthenticatedRequest(t *testing.T, method, path string, body interface{}) *http.Request {
	t.Helper()
	return AuthenticatedRequest(t, method, path, body, "")
}

// ParseJSONResponse parses the response body into the given struct
func ParseJSONResponse(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()

	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to parse response body: %v. Body: %s", err, rr.Body.String())
	}
}

// TestContext creates a context with a timeout for tests
func TestContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// TestSetup holds all the common test dependencies
type TestSetup struct {
	DB         *gorm.DB
	JWTService *auth.JWTService
	Org        *models.Organization
	User       *models.User
	Token      string
}

// NewTestContext creates a DB, an organization, and an owner with an access token.
func NewTestContext(t *testing.T) *TestSetup {
	t.Helper()

	db := SetupTestDB(t)
	jwtService := CreateTestJWTService()
	org := CreateTestOrg(t, db)
	user := CreateTestMember(t, db, org, domain.RoleOwner)
	token := GenerateTestToken(t, jwtService, user)

	return &TestSetup{
		DB:         db,
		JWTService: jwtService,
		Org:        org,
		User:       user,
		Token:      token,
	}
}

// NewMember creates another member of the setup's organization and returns
// the user with an access token.
func (ts *TestSetup) NewMember(t *testing.T, role domain.Role) (*models.User, string) {
	t.Helper()

	user := CreateTestMember(t, ts.DB, ts.Org, role)
	return user, GenerateTestToken(t, ts.JWTService, user)
}

// Cleanup closes the test database
func (ts *TestSetup) Cleanup() {
	if ts.DB != nil {
		sqlDB, err := ts.DB.DB()
		if err == nil {
			sqlDB.Close()
		}
	}
}
