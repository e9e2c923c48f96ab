package handlers

import (
	"net/http"
	"strings"

	"github.com/hugh/go-crm/internal/api/dto"
	"github.com/hugh/go-crm/internal/api/middleware"
	"github.com/hugh/go-crm/internal/api/validation"
	"github.com/hugh/go-crm/internal/deals"
	"github.com/hugh/go-crm/internal/domain"
	"github.com/shopspring/decimal"
)

type DealHandler struct {
	deals *deals.Service
}

func NewDealHandler(deals *deals.Service) *DealHandler {
	return &DealHandler{deals: deals}
}

// parseDealFilter reads the list filters. status may repeat or be a
// comma-separated list.
func parseDealFilter(r *http.Request) (deals.ListFilter, map[string]string) {
	q := newQueryParser(r)
	query := r.URL.Query()

	var f deals.ListFilter
	for _, raw := range query["status"] {
		for _, s := range strings.Split(raw, ",") {
			status := domain.DealStatus(strings.TrimSpace(s))
			if status == "" {
				continue
			}
			if !status.Valid() {
				q.errs["status"] = "Unknown status: " + string(status)
				continue
			}
			f.Statuses = append(f.Statuses, status)
		}
	}
	if raw := query.Get("stage"); raw != "" {
		stage := domain.DealStage(raw)
		if !stage.Valid() {
			q.errs["stage"] = "Unknown stage: " + raw
		} else {
			f.Stage = &stage
		}
	}
	f.OwnerID = q.uuid("owner_id")
	f.MinAmount = parseDecimal(q, "min_amount")
	f.MaxAmount = parseDecimal(q, "max_amount")

	if orderBy := query.Get("order_by"); orderBy != "" {
		switch orderBy {
		case "created_at", "amount", "updated_at":
			f.OrderBy = orderBy
		default:
			q.errs["order_by"] = "Must be one of: created_at, amount, updated_at"
		}
	}
	if order := query.Get("order"); order != "" {
		switch strings.ToLower(order) {
		case "asc", "desc":
			f.Order = strings.ToLower(order)
		default:
			q.errs["order"] = "Must be one of: asc, desc"
		}
	}

	return f, q.errs
}

func parseDecimal(q *queryParser, name string) *decimal.Decimal {
	raw := q.r.URL.Query().Get(name)
	if raw == "" {
		return nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		q.errs[name] = "Must be a number"
		return nil
	}
	return &d
}

// List handles GET /api/v1/deals
func (h *DealHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, errs := parseDealFilter(r)
	if len(errs) > 0 {
		writeValidationError(w, errs)
		return
	}
	p := pagination(r, deals.DefaultPerPage)
	filter.Page, filter.PerPage = p.Page, p.PerPage

	ctx := r.Context()
	result, err := h.deals.List(ctx, middleware.GetOrganizationID(ctx), middleware.GetUserID(ctx), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}

	response := make([]dto.DealResponse, len(result.Items))
	for i := range result.Items {
		response[i] = dto.NewDealResponse(&result.Items[i])
	}
	writeJSON(w, http.StatusOK, dto.NewPaginatedResponse(response, result.Total, p))
}

// Create handles POST /api/v1/deals
func (h *DealHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateDealRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	ctx := r.Context()
	deal, err := h.deals.Create(ctx, middleware.GetOrganizationID(ctx), middleware.GetUserID(ctx), deals.CreateInput{
		ContactID: req.ParsedContactID(),
		Title:     validation.SanitizeString(req.Title),
		Amount:    req.Amount,
		Currency:  req.Currency,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.NewDealResponse(deal))
}

// Get handles GET /api/v1/deals/{id}
func (h *DealHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}

	ctx := r.Context()
	deal, err := h.deals.Get(ctx, middleware.GetOrganizationID(ctx), middleware.GetUserID(ctx), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.NewDealResponse(deal))
}

// Update handles PATCH /api/v1/deals/{id}
func (h *DealHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}

	var req dto.UpdateDealRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	ctx := r.Context()
	deal, err := h.deals.Update(ctx, middleware.GetOrganizationID(ctx), middleware.GetUserID(ctx), id, deals.UpdateInput{
		Title:    validation.SanitizeOptional(req.Title),
		Amount:   req.Amount,
		Currency: req.Currency,
		Status:   req.Status,
		Stage:    req.Stage,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.NewDealResponse(deal))
}

// Delete handles DELETE /api/v1/deals/{id}
func (h *DealHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}

	ctx := r.Context()
	if err := h.deals.Delete(ctx, middleware.GetOrganizationID(ctx), middleware.GetUserID(ctx), id); err != nil {
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
