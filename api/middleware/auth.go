package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/angelmondragon/elibrary-backend/api/responses"
	pkgauth "github.com/angelmondragon/elibrary-backend/pkg/auth"
	"github.com/angelmondragon/elibrary-backend/pkg/auth/session"
	"github.com/angelmondragon/elibrary-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/elibrary-backend/pkg/errors"
	"github.com/angelmondragon/elibrary-backend/pkg/logger"
)

const bearerPrefix = "bearer "

// Auth requires a valid access token whose refresh session is still live.
// A logged-out token is rejected even before it expires.
func Auth(cfg config.JWTConfig, sessions session.AccessSessionChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := authenticate(r, cfg, sessions)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			ctx := withClaims(r.Context(), claims)
			if logg != nil {
				ctx = logg.WithFields(ctx, map[string]any{
					"user_id":    claims.UserID.String(),
					"actor_role": string(claims.Role),
				})
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func authenticate(r *http.Request, cfg config.JWTConfig, sessions session.AccessSessionChecker) (*pkgauth.AccessTokenClaims, error) {
	raw := BearerToken(r)
	if raw == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	claims, err := pkgauth.ParseAccessToken(cfg, raw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}
	if claims.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id")
	}
	if sessions == nil {
		return claims, nil
	}
	live, err := sessions.HasSession(r.Context(), claims.ID)
	switch {
	case err != nil:
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "validate session")
	case !live:
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "session expired or revoked")
	}
	return claims, nil
}

func withClaims(ctx context.Context, claims *pkgauth.AccessTokenClaims) context.Context {
	ctx = WithUserID(ctx, claims.UserID.String())
	ctx = WithRole(ctx, string(claims.Role))
	ctx = WithSessionID(ctx, claims.ID)
	return context.WithValue(ctx, ctxUsername, claims.Username)
}

// BearerToken extracts the token from "Authorization: Bearer <token>". A bare token is accepted too.
func BearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(raw) >= len(bearerPrefix) && strings.EqualFold(raw[:len(bearerPrefix)], bearerPrefix) {
		raw = strings.TrimSpace(raw[len(bearerPrefix):])
	}
	return raw
}
