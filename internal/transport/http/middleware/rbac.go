package middleware

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"shiftrota/internal/domain/auth"
	"shiftrota/internal/transport/http/api"
)

// DepartmentParam returns the department named by the URL parameter param,
// percent-decoded.
func DepartmentParam(r *http.Request, param string) string {
	raw := chi.URLParam(r, param)
	if decoded, err := url.PathUnescape(raw); err == nil {
		return decoded
	}
	return raw
}

// RequireEditor rejects callers that may not edit the department named by the
// URL parameter param.
func RequireEditor(param string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := GetActor(r.Context())
			if !actor.Authenticated() {
				api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", GetRequestID(r.Context()))
				return
			}
			if !auth.CanEdit(actor, DepartmentParam(r, param)) {
				api.Fail(w, http.StatusForbidden, "forbidden", "not allowed to edit this department", GetRequestID(r.Context()))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
