package session

import (
	"github.com/go-chi/chi/v5"

	"github.com/duetchat/duet-api/internal/domain/identity"
	"github.com/duetchat/duet-api/internal/middleware"
)

// Routes returns the sessions router. Other domains (messages, matchmaking)
// attach their session-scoped endpoints through attach callbacks so everything
// under /sessions shares one actor-resolving middleware chain.
func (h *Handler) Routes(resolver *identity.Resolver, attach ...func(chi.Router)) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequireActor(resolver))

	r.Get("/active", h.Active)
	r.Get("/{id}", h.Get)
	r.Post("/{id}/end", h.End)

	for _, fn := range attach {
		fn(r)
	}

	return r
}
