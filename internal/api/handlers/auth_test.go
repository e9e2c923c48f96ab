package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hugh/go-crm/internal/api/dto"
	"github.com/hugh/go-crm/internal/api/handlers"
	"github.com/hugh/go-crm/internal/auth"
	"github.com/hugh/go-crm/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupAuthTestRouter(t *testing.T) (*chi.Mux, *testutil.TestSetup) {
	tc := testutil.NewTestContext(t)

	authService := auth.NewService(tc.DB, tc.JWTService)
	handler := handlers.NewAuthHandler(authService)

	r := chi.NewRouter()
	r.Post("/api/v1/auth/register", handler.Register)
	r.Post("/api/v1/auth/login", handler.Login)
	r.Post("/api/v1/auth/refresh", handler.Refresh)

	return r, tc
}

func TestAuthHandler_Register(t *testing.T) {
	router, tc := setupAuthTestRouter(t)
	defer tc.Cleanup()

	t.Run("successful registration", func(t *testing.T) {
		body := map[string]string{
			"email":             "NewUser@Example.com",
			"password":          "securepassword123",
			"name":              "New User",
			"organization_name": "New Org",
		}

		req := testutil.UnauthenticatedRequest(t, "POST", "/api/v1/auth/register", body)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

		var resp dto.AuthResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.NotEmpty(t, resp.AccessToken)
		assert.NotEmpty(t, resp.RefreshToken)
		assert.Equal(t, "bearer", resp.TokenType)
		assert.Equal(t, "newuser@example.com", resp.User.Email)
		assert.Equal(t, "New User", resp.User.Name)
		require.NotNil(t, resp.Organization)
		assert.Equal(t, "New Org", resp.Organization.Name)
		assert.NotContains(t, rr.Body.String(), "password")
	})

	t.Run("duplicate email", func(t *testing.T) {
		body := map[string]string{
			"email":             "newuser@example.com",
			"password":          "anotherpassword123",
			"name":              "Another User",
			"organization_name": "Another Org",
		}

		req := testutil.UnauthenticatedRequest(t, "POST", "/api/v1/auth/register", body)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		resp := requireErrorCode(t, rr, http.StatusConflict, "conflict")
		assert.Equal(t, "User with this email already exists", resp.Error)
	})

	t.Run("validation errors", func(t *testing.T) {
		tests := []struct {
			name  string
			body  map[string]string
			field string
		}{
			{"missing email", map[string]string{"password": "password123", "name": "Test", "organization_name": "Org"}, "email"},
			{"invalid email", map[string]string{"email": "nope", "password": "password123", "name": "Test", "organization_name": "Org"}, "email"},
			{"short password", map[string]string{"email": "a@example.com", "password": "short", "name": "Test", "organization_name": "Org"}, "password"},
			{"blank name", map[string]string{"email": "a@example.com", "password": "password123", "name": "  ", "organization_name": "Org"}, "name"},
			{"missing organization", map[string]string{"email": "a@example.com", "password": "password123", "name": "Test"}, "organization_name"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				req := testutil.UnauthenticatedRequest(t, "POST", "/api/v1/auth/register", tt.body)
				rr := httptest.NewRecorder()
				router.ServeHTTP(rr, req)

				resp := requireErrorCode(t, rr, http.StatusBadRequest, "validation_failed")
				assert.Contains(t, resp.Details, tt.field)
			})
		}
	})

	t.Run("invalid json", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/api/v1/auth/register", nil)
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestAuthHandler_LoginAndRefresh(t *testing.T) {
	router, tc := setupAuthTestRouter(t)
	defer tc.Cleanup()

	register := testutil.UnauthenticatedRequest(t, "POST", "/api/v1/auth/register", map[string]string{
		"email":             "login@example.com",
		"password":          "correctpassword",
		"name":              "Login User",
		"organization_name": "Login Org",
	})
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, register)
	require.Equal(t, http.StatusCreated, rr.Code)

	var login dto.AuthResponse

	t.Run("successful login", func(t *testing.T) {
		req := testutil.UnauthenticatedRequest(t, "POST", "/api/v1/auth/login", map[string]string{
			"email":    "LOGIN@example.com",
			"password": "correctpassword",
		})
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		testutil.ParseJSONResponse(t, rr, &login)
		assert.NotEmpty(t, login.AccessToken)
		assert.Equal(t, "login@example.com", login.User.Email)
	})

	t.Run("wrong password and unknown email look the same", func(t *testing.T) {
		for _, email := range []string{"login@example.com", "ghost@example.com"} {
			req := testutil.UnauthenticatedRequest(t, "POST", "/api/v1/auth/login", map[string]string{
				"email":    email,
				"password": "wrongpassword",
			})
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			resp := requireErrorCode(t, rr, http.StatusUnauthorized, "unauthorized")
			assert.Equal(t, "Invalid email or password", resp.Error)
		}
	})

	t.Run("refresh issues a new pair", func(t *testing.T) {
		req := testutil.UnauthenticatedRequest(t, "POST", "/api/v1/auth/refresh", map[string]string{
			"refresh_token": login.RefreshToken,
		})
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		var resp dto.TokenResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.NotEmpty(t, resp.AccessToken)
		assert.NotEmpty(t, resp.RefreshToken)
	})

	t.Run("access token cannot refresh", func(t *testing.T) {
		req := testutil.UnauthenticatedRequest(t, "POST", "/api/v1/auth/refresh", map[string]string{
			"refresh_token": login.AccessToken,
		})
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		requireErrorCode(t, rr, http.StatusUnauthorized, "unauthorized")
	})
}
