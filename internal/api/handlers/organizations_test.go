package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/hugh/go-crm/internal/api/dto"
	"github.com/hugh/go-crm/internal/domain"
	"github.com/hugh/go-crm/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrganizationHandler_Me(t *testing.T) {
	router, tc := setupTenantRouter(t)

	other := testutil.CreateTestOrg(t, tc.DB)
	testutil.AddTestMember(t, tc.DB, other, tc.User, domain.RoleMember)

	// /organizations/me needs no tenant header.
	req := testutil.AuthenticatedRequest(t, "GET", "/api/v1/organizations/me", nil, tc.Token)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var resp []dto.MembershipDTO
	testutil.ParseJSONResponse(t, rr, &resp)
	require.Len(t, resp, 2)

	roles := map[string]domain.Role{}
	for _, m := range resp {
		roles[m.Organization.ID] = m.Role
	}
	assert.Equal(t, domain.RoleOwner, roles[tc.Org.ID.String()])
	assert.Equal(t, domain.RoleMember, roles[other.ID.String()])
}

func TestOrganizationHandler_TenantHeader(t *testing.T) {
	router, tc := setupTenantRouter(t)

	t.Run("missing header", func(t *testing.T) {
		req := testutil.AuthenticatedRequest(t, "GET", "/api/v1/contacts", nil, tc.Token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("not a member", func(t *testing.T) {
		foreign := testutil.CreateTestOrg(t, tc.DB)
		req := testutil.TenantRequest(t, "GET", "/api/v1/contacts", nil, tc.Token, foreign.ID)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		resp := requireErrorCode(t, rr, http.StatusForbidden, "forbidden")
		assert.Equal(t, "You are not a member of this organization", resp.Error)
	})

	t.Run("no token", func(t *testing.T) {
		req := testutil.TenantRequest(t, "GET", "/api/v1/contacts", nil, "", tc.Org.ID)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func TestOrganizationHandler_Members(t *testing.T) {
	router, tc := setupTenantRouter(t)

	_, memberToken := tc.NewMember(t, domain.RoleMember)
	outsider := testutil.CreateTestUser(t, tc.DB)

	t.Run("member cannot add", func(t *testing.T) {
		rr := do(t, router, tc, memberToken, "POST", "/api/v1/organizations/members", map[string]string{
			"user_id": outsider.ID.String(),
			"role":    "member",
		})
		requireErrorCode(t, rr, http.StatusForbidden, "forbidden")
	})

	t.Run("owner adds manager", func(t *testing.T) {
		rr := do(t, router, tc, tc.Token, "POST", "/api/v1/organizations/members", map[string]string{
			"user_id": outsider.ID.String(),
			"role":    "manager",
		})
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

		var resp dto.MemberDTO
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.Equal(t, outsider.ID.String(), resp.UserID)
		assert.Equal(t, domain.RoleManager, resp.Role)
	})

	t.Run("adding twice conflicts", func(t *testing.T) {
		rr := do(t, router, tc, tc.Token, "POST", "/api/v1/organizations/members", map[string]string{
			"user_id": outsider.ID.String(),
			"role":    "member",
		})
		requireErrorCode(t, rr, http.StatusConflict, "conflict")
	})

	t.Run("unknown role", func(t *testing.T) {
		rr := do(t, router, tc, tc.Token, "POST", "/api/v1/organizations/members", map[string]string{
			"user_id": uuid.NewString(),
			"role":    "emperor",
		})
		resp := requireErrorCode(t, rr, http.StatusBadRequest, "validation_failed")
		assert.Contains(t, resp.Details, "role")
	})

	t.Run("list", func(t *testing.T) {
		rr := do(t, router, tc, memberToken, "GET", "/api/v1/organizations/members", nil)
		require.Equal(t, http.StatusOK, rr.Code)

		var resp []dto.MemberDTO
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.Len(t, resp, 3)
	})

	t.Run("update role", func(t *testing.T) {
		rr := do(t, router, tc, tc.Token, "PATCH", "/api/v1/organizations/members/"+outsider.ID.String(), map[string]string{
			"role": "admin",
		})
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

		var resp dto.MemberDTO
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.Equal(t, domain.RoleAdmin, resp.Role)
	})

	t.Run("owner cannot be removed", func(t *testing.T) {
		rr := do(t, router, tc, tc.Token, "DELETE", "/api/v1/organizations/members/"+tc.User.ID.String(), nil)
		resp := requireErrorCode(t, rr, http.StatusBadRequest, "validation_failed")
		assert.Equal(t, "Cannot remove organization owner", resp.Error)
	})

	t.Run("remove", func(t *testing.T) {
		rr := do(t, router, tc, tc.Token, "DELETE", "/api/v1/organizations/members/"+outsider.ID.String(), nil)
		assert.Equal(t, http.StatusNoContent, rr.Code)

		rr = do(t, router, tc, tc.Token, "DELETE", "/api/v1/organizations/members/"+outsider.ID.String(), nil)
		requireErrorCode(t, rr, http.StatusNotFound, "not_found")
	})

	t.Run("bad user id in path", func(t *testing.T) {
		rr := do(t, router, tc, tc.Token, "DELETE", "/api/v1/organizations/members/not-a-uuid", nil)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}
