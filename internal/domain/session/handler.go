package session

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/duetchat/duet-api/internal/middleware"
	"github.com/duetchat/duet-api/internal/pkg/response"
	"github.com/duetchat/duet-api/internal/pkg/validator"
)

// Handler handles session HTTP requests
type Handler struct {
	service *Service
}

// NewHandler creates session handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Get handles GET /sessions/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetActor(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid session ID")
		return
	}

	sess, err := h.service.Get(r.Context(), actor.Ref, id)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.OK(w, SessionResponseFromEntity(sess, actor.Ref))
}

// Active handles GET /sessions/active
func (h *Handler) Active(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetActor(r.Context())

	sess, err := h.service.Active(r.Context(), actor.Ref)
	if err != nil {
		log.Error().Err(err).Msg("Active session lookup failed")
		response.InternalError(w)
		return
	}
	if sess == nil {
		response.NotFound(w, "No active session")
		return
	}

	response.OK(w, SessionResponseFromEntity(sess, actor.Ref))
}

// End handles POST /sessions/{id}/end
func (h *Handler) End(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetActor(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid session ID")
		return
	}

	var req EndRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if errs := validator.Validate(req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	sess, err := h.service.End(r.Context(), actor.Ref, id, req.Reason)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.OK(w, SessionResponseFromEntity(sess, actor.Ref))
}

// WriteError maps session errors to the response envelope. Shared with the
// message handlers, which surface the same access errors.
func WriteError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrSessionNotFound):
		response.NotFound(w, "Session not found")
	case errors.Is(err, ErrNotParticipant):
		response.Forbidden(w, "You are not a participant of this session")
	case errors.Is(err, ErrSessionNotActive):
		response.Error(w, http.StatusConflict, "SESSION_NOT_ACTIVE", "Session is no longer active")
	default:
		log.Error().Err(err).Msg("Session operation failed")
		response.InternalError(w)
	}
}
