package middleware

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/gatic-backend/api/responses"
	"github.com/angelmondragon/gatic-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/gatic-backend/pkg/errors"
	"github.com/angelmondragon/gatic-backend/pkg/logger"
)

const (
	actorHeader     = "X-Actor"
	actorRoleHeader = "X-Actor-Role"
)

// Actor trusts the identity headers forwarded by the gateway and seeds the
// request context with them. Requests without an actor are rejected.
func Actor(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := strings.TrimSpace(r.Header.Get(actorHeader))
			if actor == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "X-Actor header required"))
				return
			}

			role := enums.ActorRoleReader
			if raw := strings.TrimSpace(r.Header.Get(actorRoleHeader)); raw != "" {
				parsed, err := enums.ParseActorRole(raw)
				if err != nil {
					responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "unknown actor role"))
					return
				}
				role = parsed
			}

			ctx := WithActor(r.Context(), actor, role)
			if logg != nil {
				ctx = logg.WithActor(ctx, actor)
				ctx = logg.WithActorRole(ctx, string(role))
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
