package controllers

import (
	"net/http"

	"github.com/angelmondragon/elibrary-backend/api/middleware"
	"github.com/angelmondragon/elibrary-backend/api/responses"
	"github.com/angelmondragon/elibrary-backend/api/validators"
	"github.com/angelmondragon/elibrary-backend/internal/auth"
	pkgerrors "github.com/angelmondragon/elibrary-backend/pkg/errors"
	"github.com/angelmondragon/elibrary-backend/pkg/logger"
)

const (
	maxUsernameLen = 50
	maxEmailLen    = 120
)

func AuthLogin(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("auth service"))
			return
		}
		var in auth.LoginRequest
		if err := validators.DecodeJSONBody(r, &in); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		in.Username = validators.SanitizeString(in.Username, maxUsernameLen)

		tokens, err := svc.Login(r.Context(), in)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, tokens)
	}
}

// AuthRegister creates a reader account and signs it in, answering 201 with the token pair.
func AuthRegister(reg auth.RegisterService, svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if reg == nil || svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("auth service"))
			return
		}
		var in auth.RegisterRequest
		if err := validators.DecodeJSONBody(r, &in); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		in.Username = validators.SanitizeString(in.Username, maxUsernameLen)
		in.Email = validators.SanitizeString(in.Email, maxEmailLen)

		if _, err := reg.Register(r.Context(), in); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		tokens, err := svc.Login(r.Context(), auth.LoginRequest{Username: in.Username, Password: in.Password})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, tokens)
	}
}

// AuthRefresh trades a refresh token for a new pair. The access token may be
// expired but must still be presented as the bearer since its jti keys the session.
func AuthRefresh(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("auth service"))
			return
		}
		access := middleware.BearerToken(r)
		if access == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}
		var in auth.RefreshRequest
		if err := validators.DecodeJSONBody(r, &in); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		in.AccessToken = access

		tokens, err := svc.Refresh(r.Context(), in)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, tokens)
	}
}

// AuthLogout runs behind Auth and revokes the caller's refresh session.
func AuthLogout(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("auth service"))
			return
		}
		if err := svc.Logout(r.Context(), middleware.SessionIDFromContext(r.Context())); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "logged_out"})
	}
}
