package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/elibrary-backend/api/middleware"
	pkgerrors "github.com/angelmondragon/elibrary-backend/pkg/errors"
)

func requireUser(r *http.Request) (uuid.UUID, error) {
	id, ok := middleware.UserUUIDFromContext(r.Context())
	if !ok {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return id, nil
}

func unavailable(name string) error {
	return pkgerrors.New(pkgerrors.CodeInternal, name+" unavailable")
}
