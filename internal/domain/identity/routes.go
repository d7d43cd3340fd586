package identity

import (
	"github.com/go-chi/chi/v5"
)

// Routes returns identity router
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/guests", h.CreateGuest)
	r.Get("/me", h.Me)

	return r
}
