package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/hugh/go-crm/internal/activities"
	"github.com/hugh/go-crm/internal/api/dto"
	"github.com/hugh/go-crm/internal/api/middleware"
	"github.com/hugh/go-crm/internal/domain"
)

type ActivityHandler struct {
	activities *activities.Service
}

func NewActivityHandler(activities *activities.Service) *ActivityHandler {
	return &ActivityHandler{activities: activities}
}

// List handles GET /api/v1/deals/{id}/activities
func (h *ActivityHandler) List(w http.ResponseWriter, r *http.Request) {
	dealID, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}
	p := pagination(r, activities.DefaultPageSize)

	ctx := r.Context()
	result, err := h.activities.List(ctx, middleware.GetOrganizationID(ctx), middleware.GetUserID(ctx), dealID, p.Page, p.PerPage)
	if err != nil {
		writeError(w, r, err)
		return
	}

	response := make([]dto.ActivityResponse, len(result.Items))
	for i := range result.Items {
		response[i] = dto.NewActivityResponse(&result.Items[i])
	}
	writeJSON(w, http.StatusOK, dto.NewPaginatedResponse(response, result.Total, p))
}

// Create handles POST /api/v1/deals/{id}/activities
func (h *ActivityHandler) Create(w http.ResponseWriter, r *http.Request) {
	dealID, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req dto.CreateActivityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "Invalid request body")
		return
	}
	// Type is checked before the payload so a system type never reaches
	// payload validation.
	if req.Type != domain.ActivityComment {
		writeError(w, r, domain.Validation("Only comment activities can be created directly"))
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		writeValidationError(w, errs)
		return
	}

	ctx := r.Context()
	activity, err := h.activities.CreateComment(ctx, middleware.GetOrganizationID(ctx), middleware.GetUserID(ctx), dealID, req.Payload.Text)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.NewActivityResponse(activity))
}
