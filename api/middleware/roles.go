package middleware

import (
	"context"
	"net/http"

	"github.com/angelmondragon/elibrary-backend/api/responses"
	pkgerrors "github.com/angelmondragon/elibrary-backend/pkg/errors"
	"github.com/angelmondragon/elibrary-backend/pkg/enums"
	"github.com/angelmondragon/elibrary-backend/pkg/logger"
)

// IsAdmin reports whether the authenticated caller carries the admin role.
func IsAdmin(ctx context.Context) bool {
	return enums.Role(RoleFromContext(ctx)) == enums.RoleAdmin
}

// RequireAdmin must run after Auth. Non-admin callers get 403.
func RequireAdmin(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !IsAdmin(r.Context()) {
				if logg != nil {
					logg.Warn(logg.WithField(r.Context(), "path", r.URL.Path), "admin route denied")
				}
				responses.WriteError(r.Context(), logg, w, pkgerrors.Forbidden("admin privileges required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
