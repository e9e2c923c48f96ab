package handlers

import (
	"net/http"
	"time"

	"github.com/hugh/go-crm/internal/api/dto"
	"github.com/hugh/go-crm/internal/api/middleware"
	"github.com/hugh/go-crm/internal/api/validation"
	"github.com/hugh/go-crm/internal/tasks"
)

type TaskHandler struct {
	tasks *tasks.Service
}

func NewTaskHandler(tasks *tasks.Service) *TaskHandler {
	return &TaskHandler{tasks: tasks}
}

func parseTime(q *queryParser, name string) *time.Time {
	raw := q.r.URL.Query().Get(name)
	if raw == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		q.errs[name] = "Must be an RFC 3339 timestamp"
		return nil
	}
	return &t
}

// List handles GET /api/v1/tasks
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	q := newQueryParser(r)
	filter := tasks.ListFilter{
		DealID:    q.uuid("deal_id"),
		OnlyOpen:  q.bool("only_open"),
		DueBefore: parseTime(q, "due_before"),
		DueAfter:  parseTime(q, "due_after"),
	}
	if !q.ok(w) {
		return
	}
	p := pagination(r, tasks.DefaultPerPage)
	filter.Page, filter.PerPage = p.Page, p.PerPage

	ctx := r.Context()
	result, err := h.tasks.List(ctx, middleware.GetOrganizationID(ctx), middleware.GetUserID(ctx), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}

	response := make([]dto.TaskResponse, len(result.Items))
	for i := range result.Items {
		response[i] = dto.NewTaskResponse(&result.Items[i])
	}
	writeJSON(w, http.StatusOK, dto.NewPaginatedResponse(response, result.Total, p))
}

// Create handles POST /api/v1/tasks
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateTaskRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	ctx := r.Context()
	task, err := h.tasks.Create(ctx, middleware.GetOrganizationID(ctx), middleware.GetUserID(ctx), tasks.CreateInput{
		DealID:      req.ParsedDealID(),
		Title:       validation.SanitizeString(req.Title),
		Description: validation.SanitizeOptional(req.Description),
		DueDate:     req.DueDate,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.NewTaskResponse(task))
}

// Get handles GET /api/v1/tasks/{id}
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}

	ctx := r.Context()
	task, err := h.tasks.Get(ctx, middleware.GetOrganizationID(ctx), middleware.GetUserID(ctx), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.NewTaskResponse(task))
}

// Update handles PATCH /api/v1/tasks/{id}
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}

	var req dto.UpdateTaskRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	ctx := r.Context()
	task, err := h.tasks.Update(ctx, middleware.GetOrganizationID(ctx), middleware.GetUserID(ctx), id, tasks.UpdateInput{
		Title:       validation.SanitizeOptional(req.Title),
		Description: validation.SanitizeOptional(req.Description),
		DueDate:     req.DueDate,
		IsDone:      req.IsDone,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.NewTaskResponse(task))
}

// Delete handles DELETE /api/v1/tasks/{id}
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}

	ctx := r.Context()
	if err := h.tasks.Delete(ctx, middleware.GetOrganizationID(ctx), middleware.GetUserID(ctx), id); err != nil {
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
