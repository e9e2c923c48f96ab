package handlers

import (
	"net/http"

	"github.com/hugh/go-crm/internal/api/dto"
	"github.com/hugh/go-crm/internal/api/middleware"
	"github.com/hugh/go-crm/internal/membership"
)

type OrganizationHandler struct {
	members *membership.Service
}

func NewOrganizationHandler(members *membership.Service) *OrganizationHandler {
	return &OrganizationHandler{members: members}
}

// Me handles GET /api/v1/organizations/me
func (h *OrganizationHandler) Me(w http.ResponseWriter, r *http.Request) {
	memberships, err := h.members.ListOrganizations(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}

	response := make([]dto.MembershipDTO, len(memberships))
	for i := range memberships {
		response[i] = dto.MembershipDTO{
			Organization: dto.NewOrganizationDTO(memberships[i].Organization),
			Role:         memberships[i].Role,
		}
	}
	writeJSON(w, http.StatusOK, response)
}

// ListMembers handles GET /api/v1/organizations/members
func (h *OrganizationHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	members, err := h.members.ListMembers(ctx, middleware.GetOrganizationID(ctx), middleware.GetUserID(ctx))
	if err != nil {
		writeError(w, r, err)
		return
	}

	response := make([]dto.MemberDTO, len(members))
	for i := range members {
		response[i] = dto.NewMemberDTO(&members[i])
	}
	writeJSON(w, http.StatusOK, response)
}

// AddMember handles POST /api/v1/organizations/members
func (h *OrganizationHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	var req dto.AddMemberRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	ctx := r.Context()
	member, err := h.members.AddMember(ctx,
		middleware.GetOrganizationID(ctx),
		middleware.GetUserID(ctx),
		req.ParsedUserID(),
		req.Role,
	)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.NewMemberDTO(member))
}

// UpdateMember handles PATCH /api/v1/organizations/members/{userID}
func (h *OrganizationHandler) UpdateMember(w http.ResponseWriter, r *http.Request) {
	userID, ok := urlUUID(w, r, "userID")
	if !ok {
		return
	}

	var req dto.UpdateMemberRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	ctx := r.Context()
	member, err := h.members.UpdateRole(ctx, middleware.GetOrganizationID(ctx), middleware.GetUserID(ctx), userID, req.Role)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.NewMemberDTO(member))
}

// RemoveMember handles DELETE /api/v1/organizations/members/{userID}
func (h *OrganizationHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	userID, ok := urlUUID(w, r, "userID")
	if !ok {
		return
	}

	ctx := r.Context()
	if err := h.members.RemoveMember(ctx, middleware.GetOrganizationID(ctx), middleware.GetUserID(ctx), userID); err != nil {
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
