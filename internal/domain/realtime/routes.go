package realtime

import (
	"github.com/go-chi/chi/v5"

	"github.com/duetchat/duet-api/internal/domain/identity"
	"github.com/duetchat/duet-api/internal/middleware"
)

// Routes returns realtime router
func (h *Handler) Routes(resolver *identity.Resolver) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequireActor(resolver))

	r.Get("/", h.Serve)

	return r
}
