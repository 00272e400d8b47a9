// Package identity reads the authenticated caller inside handlers.
package identity

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/hrthis/hrthis-backend/api/middleware"
	"github.com/hrthis/hrthis-backend/pkg/enums"
	pkgerrors "github.com/hrthis/hrthis-backend/pkg/errors"
)

// ResolveUserID returns the authenticated caller.
func ResolveUserID(r *http.Request) (uuid.UUID, error) {
	id, ok := middleware.IdentityFrom(r.Context())
	if !ok || id.UserID == uuid.Nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	return id.UserID, nil
}

// ResolveAdminID returns the caller and enforces the admin role.
func ResolveAdminID(r *http.Request) (uuid.UUID, error) {
	if id, _ := middleware.IdentityFrom(r.Context()); id.Role != enums.UserRoleAdmin {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin access required")
	}
	return ResolveUserID(r)
}
