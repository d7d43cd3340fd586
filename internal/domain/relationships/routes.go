package relationships

import (
	"github.com/go-chi/chi/v5"

	"github.com/duetchat/duet-api/internal/domain/identity"
	"github.com/duetchat/duet-api/internal/middleware"
)

// Routes returns blocks router, all endpoints require a resolved actor
func (h *Handler) Routes(resolver *identity.Resolver) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequireActor(resolver))

	r.Post("/", h.Block)
	r.Get("/", h.List)
	r.Delete("/{target_id}", h.Unblock)

	return r
}
