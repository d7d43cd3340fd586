package middleware

import (
	"context"
	"net/http"

	"github.com/duetchat/duet-api/internal/domain/identity"
)

type contextKey string

// ActorKey stores the resolved actor in the request context
const ActorKey contextKey = "actor"

// RequireActor returns middleware that resolves the caller to an actor
// (guest or account) and rejects requests without a valid identity.
func RequireActor(resolver *identity.Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, err := resolver.Resolve(r)
			if err != nil {
				identity.WriteResolveError(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), ActorKey, actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetActor extracts the resolved actor from context
func GetActor(ctx context.Context) identity.Actor {
	if actor, ok := ctx.Value(ActorKey).(identity.Actor); ok {
		return actor
	}
	return identity.Actor{}
}
