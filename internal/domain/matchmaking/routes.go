package matchmaking

import (
	"github.com/go-chi/chi/v5"

	"github.com/duetchat/duet-api/internal/domain/identity"
	"github.com/duetchat/duet-api/internal/middleware"
)

// Routes returns the queue router
func (h *Handler) Routes(resolver *identity.Resolver) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequireActor(resolver))

	r.Post("/join", h.Join)
	r.Delete("/leave", h.Leave)

	return r
}

// SessionRoutes attaches the pairing endpoint to the sessions router.
func (h *Handler) SessionRoutes() func(chi.Router) {
	return func(r chi.Router) {
		r.Post("/", h.CreateSession)
	}
}
