package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/nmoralesdev/storefront-backend/api/middleware"
	"github.com/nmoralesdev/storefront-backend/internal/orders"
	"github.com/nmoralesdev/storefront-backend/pkg/enums"
	pkgerrors "github.com/nmoralesdev/storefront-backend/pkg/errors"
)

// actorFromRequest pulls the authenticated user out of the request context.
func actorFromRequest(r *http.Request) (orders.Actor, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return orders.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return orders.Actor{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}
	return orders.Actor{
		UserID: userID,
		Role:   enums.UserRole(middleware.RoleFromContext(r.Context())),
	}, nil
}

// parseUUID parses a request-supplied identifier, path or body, as a UUID.
func parseUUID(value, field string) (uuid.UUID, error) {
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+field)
	}
	return id, nil
}
