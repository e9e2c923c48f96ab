package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hugh/go-crm/internal/api/dto"
	"github.com/hugh/go-crm/internal/domain"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps a service error onto the HTTP error contract. Anything
// that is not a domain error is logged and reported as a bare 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := http.StatusInternalServerError, "internal_error"
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrUnauthorized):
		status, code = http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, domain.ErrForbidden):
		status, code = http.StatusForbidden, "forbidden"
	case errors.Is(err, domain.ErrConflict):
		status, code = http.StatusConflict, "conflict"
	case errors.Is(err, domain.ErrValidation):
		status, code = http.StatusBadRequest, "validation_failed"
	}

	if status == http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		writeJSON(w, status, dto.ErrorResponse{Error: "Internal server error", Code: code})
		return
	}

	writeJSON(w, status, dto.ErrorResponse{Error: domain.Message(err), Code: code})
}

func writeValidationError(w http.ResponseWriter, details map[string]string) {
	writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{
		Error:   "Validation failed",
		Code:    "validation_failed",
		Details: details,
	})
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: message, Code: "bad_request"})
}

type validatable interface {
	Validate() map[string]string
}

// decodeAndValidate reads a JSON body into dst and runs its validation. It
// writes the error response itself and reports whether the caller may proceed.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst validatable) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeBadRequest(w, "Invalid request body")
		return false
	}
	if errs := dst.Validate(); len(errs) > 0 {
		writeValidationError(w, errs)
		return false
	}
	return true
}

func urlUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeBadRequest(w, "Invalid "+name+" format")
		return uuid.Nil, false
	}
	return id, true
}

func pagination(r *http.Request, defaultPerPage int) dto.PaginationParams {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	if perPage < 1 {
		perPage = defaultPerPage
	}
	p := dto.PaginationParams{Page: page, PerPage: perPage}
	p.Normalize()
	return p
}

// queryParser collects per-parameter errors so a request with several bad
// query values reports all of them at once.
type queryParser struct {
	r    *http.Request
	errs map[string]string
}

func newQueryParser(r *http.Request) *queryParser {
	return &queryParser{r: r, errs: make(map[string]string)}
}

func (p *queryParser) uuid(name string) *uuid.UUID {
	raw := p.r.URL.Query().Get(name)
	if raw == "" {
		return nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		p.errs[name] = "Must be a valid UUID"
		return nil
	}
	return &id
}

func (p *queryParser) bool(name string) bool {
	raw := p.r.URL.Query().Get(name)
	if raw == "" {
		return false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		p.errs[name] = "Must be true or false"
	}
	return v
}

func (p *queryParser) ok(w http.ResponseWriter) bool {
	if len(p.errs) > 0 {
		writeValidationError(w, p.errs)
		return false
	}
	return true
}
