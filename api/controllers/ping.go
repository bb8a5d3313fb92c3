package controllers

import (
	"net/http"

	"github.com/angelmondragon/gatic-backend/api/middleware"
	"github.com/angelmondragon/gatic-backend/api/responses"
)

// Ping echoes the caller identity the gateway forwarded.
func Ping() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{
			"status": "ok",
			"actor":  middleware.ActorFromContext(r.Context()),
			"role":   string(middleware.RoleFromContext(r.Context())),
		})
	}
}
