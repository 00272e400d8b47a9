package controllers

import (
	"net/http"

	"github.com/hrthis/hrthis-backend/api/middleware"
	"github.com/hrthis/hrthis-backend/api/responses"
)

type pingBody struct {
	Scope  string `json:"scope"`
	Status string `json:"status"`
	UserID string `json:"user_id,omitempty"`
	Role   string `json:"role,omitempty"`
}

func PublicPing() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		responses.WriteSuccess(w, pingBody{Scope: "public", Status: "ok"})
	}
}

// PrivatePing echoes who the token says the caller is.
func PrivatePing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := pingBody{Scope: "private", Status: "ok"}
		if id, ok := middleware.IdentityFrom(r.Context()); ok {
			body.UserID, body.Role = id.UserID.String(), string(id.Role)
		}
		responses.WriteSuccess(w, body)
	}
}
