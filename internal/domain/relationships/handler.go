package relationships

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/duetchat/duet-api/internal/domain/identity"
	"github.com/duetchat/duet-api/internal/middleware"
	"github.com/duetchat/duet-api/internal/pkg/response"
	"github.com/duetchat/duet-api/internal/pkg/validator"
)

// Handler handles block HTTP requests
type Handler struct {
	service *Service
}

// NewHandler creates relationships handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Block handles POST /blocks
func (h *Handler) Block(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetActor(r.Context())

	var req BlockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if errs := validator.Validate(req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	targetID, err := uuid.Parse(req.TargetID)
	if err != nil {
		response.BadRequest(w, "Invalid target ID")
		return
	}
	target := identity.Ref{ID: targetID, IsGuest: req.TargetGuest}

	if err := h.service.Block(r.Context(), actor.Ref, target); err != nil {
		if errors.Is(err, ErrSelfBlock) {
			response.BadRequest(w, "Cannot block yourself")
			return
		}
		log.Error().Err(err).Msg("Block creation failed")
		response.InternalError(w)
		return
	}

	response.NoContent(w)
}

// Unblock handles DELETE /blocks/{target_id}
func (h *Handler) Unblock(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetActor(r.Context())

	targetID, err := uuid.Parse(chi.URLParam(r, "target_id"))
	if err != nil {
		response.BadRequest(w, "Invalid target ID")
		return
	}
	target := identity.Ref{ID: targetID, IsGuest: r.URL.Query().Get("guest") == "true"}

	if err := h.service.Unblock(r.Context(), actor.Ref, target); err != nil {
		if errors.Is(err, ErrBlockNotFound) {
			response.NotFound(w, "Block not found")
			return
		}
		log.Error().Err(err).Msg("Unblock failed")
		response.InternalError(w)
		return
	}

	response.NoContent(w)
}

// List handles GET /blocks
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetActor(r.Context())

	blocks, err := h.service.ListMyBlocks(r.Context(), actor.Ref)
	if err != nil {
		log.Error().Err(err).Msg("Block listing failed")
		response.InternalError(w)
		return
	}

	items := make([]*BlockResponse, 0, len(blocks))
	for _, b := range blocks {
		items = append(items, BlockResponseFromEntity(b))
	}
	response.OK(w, items)
}
