package handlers_test

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hugh/go-crm/internal/activities"
	"github.com/hugh/go-crm/internal/analytics"
	"github.com/hugh/go-crm/internal/api/dto"
	"github.com/hugh/go-crm/internal/api/handlers"
	"github.com/hugh/go-crm/internal/api/middleware"
	"github.com/hugh/go-crm/internal/contacts"
	"github.com/hugh/go-crm/internal/deals"
	"github.com/hugh/go-crm/internal/membership"
	"github.com/hugh/go-crm/internal/tasks"
	"github.com/hugh/go-crm/internal/testutil"
	"github.com/hugh/go-crm/pkg/cache"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// setupTenantRouter mounts every tenant-scoped handler behind the auth and
// tenant middleware, mirroring the production route table.
func setupTenantRouter(t *testing.T) (*chi.Mux, *testutil.TestSetup) {
	tc := testutil.NewTestContext(t)
	t.Cleanup(tc.Cleanup)

	members := membership.NewService(tc.DB)
	orgHandler := handlers.NewOrganizationHandler(members)
	contactHandler := handlers.NewContactHandler(contacts.NewService(tc.DB, members))
	dealHandler := handlers.NewDealHandler(deals.NewService(tc.DB, members, nil, quietLogger()))
	activityHandler := handlers.NewActivityHandler(activities.NewService(tc.DB, members))
	taskHandler := handlers.NewTaskHandler(tasks.NewService(tc.DB, members))
	analyticsHandler := handlers.NewAnalyticsHandler(
		analytics.NewService(tc.DB, members, cache.NewMemory(), analytics.DefaultTTL, quietLogger()),
	)

	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(tc.JWTService))
		r.Get("/organizations/me", orgHandler.Me)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Tenant)

			r.Get("/organizations/members", orgHandler.ListMembers)
			r.Post("/organizations/members", orgHandler.AddMember)
			r.Patch("/organizations/members/{userID}", orgHandler.UpdateMember)
			r.Delete("/organizations/members/{userID}", orgHandler.RemoveMember)

			r.Get("/contacts", contactHandler.List)
			r.Post("/contacts", contactHandler.Create)
			r.Get("/contacts/{id}", contactHandler.Get)
			r.Patch("/contacts/{id}", contactHandler.Update)
			r.Delete("/contacts/{id}", contactHandler.Delete)

			r.Get("/deals", dealHandler.List)
			r.Post("/deals", dealHandler.Create)
			r.Get("/deals/{id}", dealHandler.Get)
			r.Patch("/deals/{id}", dealHandler.Update)
			r.Delete("/deals/{id}", dealHandler.Delete)
			r.Get("/deals/{id}/activities", activityHandler.List)
			r.Post("/deals/{id}/activities", activityHandler.Create)

			r.Get("/tasks", taskHandler.List)
			r.Post("/tasks", taskHandler.Create)
			r.Get("/tasks/{id}", taskHandler.Get)
			r.Patch("/tasks/{id}", taskHandler.Update)
			r.Delete("/tasks/{id}", taskHandler.Delete)

			r.Get("/analytics/deals/summary", analyticsHandler.Summary)
			r.Get("/analytics/deals/funnel", analyticsHandler.Funnel)
		})
	})

	return r, tc
}

// do sends a tenant-scoped request as the given token holder.
func do(t *testing.T, router http.Handler, tc *testutil.TestSetup, token, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	req := testutil.TenantRequest(t, method, path, body, token, tc.Org.ID)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func requireErrorCode(t *testing.T, rr *httptest.ResponseRecorder, status int, code string) dto.ErrorResponse {
	t.Helper()

	require.Equal(t, status, rr.Code, rr.Body.String())
	var resp dto.ErrorResponse
	testutil.ParseJSONResponse(t, rr, &resp)
	require.Equal(t, code, resp.Code)
	return resp
}
