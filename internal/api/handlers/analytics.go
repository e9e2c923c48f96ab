package handlers

import (
	"net/http"
	"strconv"

	"github.com/hugh/go-crm/internal/analytics"
	"github.com/hugh/go-crm/internal/api/middleware"
)

type AnalyticsHandler struct {
	analytics *analytics.Service
}

func NewAnalyticsHandler(analytics *analytics.Service) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics}
}

// Summary handles GET /api/v1/analytics/deals/summary?days=
func (h *AnalyticsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	days := analytics.DefaultDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeValidationError(w, map[string]string{"days": "Must be an integer"})
			return
		}
		days = n
	}

	ctx := r.Context()
	summary, err := h.analytics.Summary(ctx, middleware.GetOrganizationID(ctx), middleware.GetUserID(ctx), days)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// Funnel handles GET /api/v1/analytics/deals/funnel
func (h *AnalyticsHandler) Funnel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	funnel, err := h.analytics.Funnel(ctx, middleware.GetOrganizationID(ctx), middleware.GetUserID(ctx))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, funnel)
}
