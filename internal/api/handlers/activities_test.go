package handlers_test

import (
	"net/http"
	"testing"

	"github.com/hugh/go-crm/internal/api/dto"
	"github.com/hugh/go-crm/internal/domain"
	"github.com/hugh/go-crm/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type activityPage struct {
	Data    []dto.ActivityResponse `json:"data"`
	Total   int64                  `json:"total"`
	PerPage int                    `json:"per_page"`
}

func TestActivityHandler(t *testing.T) {
	router, tc := setupTenantRouter(t)
	contact := testutil.CreateTestContact(t, tc.DB, tc.Org.ID, tc.User.ID, "acme")
	deal := testutil.CreateTestDeal(t, tc.DB, contact, tc.User.ID, "Deal", 100)
	path := "/api/v1/deals/" + deal.ID.String() + "/activities"

	t.Run("comment", func(t *testing.T) {
		rr := do(t, router, tc, tc.Token, "POST", path, map[string]interface{}{
			"type":    "comment",
			"payload": map[string]string{"text": "  Called the client  "},
		})
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

		var resp dto.ActivityResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.Equal(t, domain.ActivityComment, resp.Type)
		assert.Equal(t, "Called the client", resp.Payload["text"])
		require.NotNil(t, resp.AuthorID)
		assert.Equal(t, tc.User.ID.String(), *resp.AuthorID)
	})

	t.Run("system types are rejected", func(t *testing.T) {
		rr := do(t, router, tc, tc.Token, "POST", path, map[string]interface{}{
			"type":    "status_changed",
			"payload": map[string]string{"old_status": "new", "new_status": "won"},
		})
		resp := requireErrorCode(t, rr, http.StatusBadRequest, "validation_failed")
		assert.Equal(t, "Only comment activities can be created directly", resp.Error)
	})

	t.Run("empty comment", func(t *testing.T) {
		rr := do(t, router, tc, tc.Token, "POST", path, map[string]interface{}{
			"type":    "comment",
			"payload": map[string]string{"text": "   "},
		})
		resp := requireErrorCode(t, rr, http.StatusBadRequest, "validation_failed")
		assert.Contains(t, resp.Details, "payload.text")
	})

	t.Run("list newest first", func(t *testing.T) {
		rr := do(t, router, tc, tc.Token, "PATCH", "/api/v1/deals/"+deal.ID.String(), map[string]string{"status": "in_progress"})
		require.Equal(t, http.StatusOK, rr.Code)

		rr = do(t, router, tc, tc.Token, "GET", path, nil)
		require.Equal(t, http.StatusOK, rr.Code)

		var page activityPage
		testutil.ParseJSONResponse(t, rr, &page)
		require.Len(t, page.Data, 2)
		assert.Equal(t, 50, page.PerPage)
		assert.Equal(t, domain.ActivityStatusChanged, page.Data[0].Type)
		assert.Equal(t, "new", page.Data[0].Payload["old_status"])
		assert.Equal(t, "in_progress", page.Data[0].Payload["new_status"])
		assert.Equal(t, domain.ActivityComment, page.Data[1].Type)
	})

	t.Run("unknown deal", func(t *testing.T) {
		rr := do(t, router, tc, tc.Token, "GET", "/api/v1/deals/"+contact.ID.String()+"/activities", nil)
		requireErrorCode(t, rr, http.StatusNotFound, "not_found")
	})
}
