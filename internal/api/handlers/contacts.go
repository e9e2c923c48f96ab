package handlers

import (
	"net/http"

	"github.com/hugh/go-crm/internal/api/dto"
	"github.com/hugh/go-crm/internal/api/middleware"
	"github.com/hugh/go-crm/internal/api/validation"
	"github.com/hugh/go-crm/internal/contacts"
)

type ContactHandler struct {
	contacts *contacts.Service
}

func NewContactHandler(contacts *contacts.Service) *ContactHandler {
	return &ContactHandler{contacts: contacts}
}

// List handles GET /api/v1/contacts
func (h *ContactHandler) List(w http.ResponseWriter, r *http.Request) {
	q := newQueryParser(r)
	ownerID := q.uuid("owner_id")
	if !q.ok(w) {
		return
	}
	p := pagination(r, contacts.DefaultPerPage)

	ctx := r.Context()
	result, err := h.contacts.List(ctx, middleware.GetOrganizationID(ctx), middleware.GetUserID(ctx), contacts.ListFilter{
		Search:  r.URL.Query().Get("search"),
		OwnerID: ownerID,
		Page:    p.Page,
		PerPage: p.PerPage,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	response := make([]dto.ContactResponse, len(result.Items))
	for i := range result.Items {
		response[i] = dto.NewContactResponse(&result.Items[i])
	}
	writeJSON(w, http.StatusOK, dto.NewPaginatedResponse(response, result.Total, p))
}

// Create handles POST /api/v1/contacts
func (h *ContactHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateContactRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	ctx := r.Context()
	contact, err := h.contacts.Create(ctx, middleware.GetOrganizationID(ctx), middleware.GetUserID(ctx), contacts.CreateInput{
		Name:  validation.SanitizeString(req.Name),
		Email: req.Email,
		Phone: validation.SanitizeOptional(req.Phone),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.NewContactResponse(contact))
}

// Get handles GET /api/v1/contacts/{id}
func (h *ContactHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}

	ctx := r.Context()
	contact, err := h.contacts.Get(ctx, middleware.GetOrganizationID(ctx), middleware.GetUserID(ctx), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.NewContactResponse(contact))
}

// Update handles PATCH /api/v1/contacts/{id}
func (h *ContactHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}

	var req dto.UpdateContactRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	ctx := r.Context()
	contact, err := h.contacts.Update(ctx, middleware.GetOrganizationID(ctx), middleware.GetUserID(ctx), id, contacts.UpdateInput{
		Name:  validation.SanitizeOptional(req.Name),
		Email: req.Email,
		Phone: validation.SanitizeOptional(req.Phone),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.NewContactResponse(contact))
}

// Delete handles DELETE /api/v1/contacts/{id}
func (h *ContactHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}

	ctx := r.Context()
	if err := h.contacts.Delete(ctx, middleware.GetOrganizationID(ctx), middleware.GetUserID(ctx), id); err != nil {
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
