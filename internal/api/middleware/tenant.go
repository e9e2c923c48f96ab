package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

const OrganizationHeader = "X-Organization-Id"

// Tenant reads the target organization from the X-Organization-Id header.
// It only parses the id; membership is checked by the services.
func Tenant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(r.Header.Get(OrganizationHeader))
		if raw == "" {
			writeError(w, http.StatusBadRequest, "missing_organization", "X-Organization-Id header is required")
			return
		}
		orgID, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_organization", "X-Organization-Id must be a valid UUID")
			return
		}

		ctx := context.WithValue(r.Context(), OrganizationIDKey, orgID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
