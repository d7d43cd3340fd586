package message

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/duetchat/duet-api/internal/domain/session"
	"github.com/duetchat/duet-api/internal/middleware"
	"github.com/duetchat/duet-api/internal/pkg/response"
	"github.com/duetchat/duet-api/internal/pkg/validator"
)

// Handler handles message HTTP requests
type Handler struct {
	service *Service
}

// NewHandler creates message handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Send handles POST /sessions/{id}/messages
func (h *Handler) Send(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetActor(r.Context())

	sessionID, ok := parseSessionID(w, r)
	if !ok {
		return
	}

	var req SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if errs := validator.Validate(req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	msg, err := h.service.Send(r.Context(), actor, sessionID, req.Content)
	if err != nil {
		var blocked *BlockedError
		switch {
		case errors.As(err, &blocked):
			response.Error(w, http.StatusUnprocessableEntity, "CONTENT_BLOCKED", blocked.Reason)
		case errors.Is(err, ErrInvalidContent):
			response.Error(w, http.StatusBadRequest, "INVALID_CONTENT", "Message must be non-empty UTF-8 of at most 2000 characters")
		case errors.Is(err, ErrRateLimited):
			response.TooManyRequests(w)
		default:
			session.WriteError(w, err)
		}
		return
	}

	response.Created(w, MessageResponseFromEntity(msg, actor.Ref))
}

// History handles GET /sessions/{id}/messages
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetActor(r.Context())

	sessionID, ok := parseSessionID(w, r)
	if !ok {
		return
	}

	var after time.Time
	if raw := r.URL.Query().Get("after"); raw != "" {
		parsed, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			response.BadRequest(w, "Invalid after timestamp, expected RFC3339")
			return
		}
		after = parsed
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			response.BadRequest(w, "Invalid limit")
			return
		}
		limit = parsed
	}

	messages, err := h.service.History(r.Context(), actor.Ref, sessionID, after, limit)
	if err != nil {
		session.WriteError(w, err)
		return
	}

	response.OK(w, messages)
}

// MarkRead handles POST /sessions/{id}/read
func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetActor(r.Context())

	sessionID, ok := parseSessionID(w, r)
	if !ok {
		return
	}

	if err := h.service.MarkRead(r.Context(), actor.Ref, sessionID); err != nil {
		session.WriteError(w, err)
		return
	}

	response.NoContent(w)
}

// Typing handles POST /sessions/{id}/typing
func (h *Handler) Typing(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetActor(r.Context())

	sessionID, ok := parseSessionID(w, r)
	if !ok {
		return
	}

	if err := h.service.Typing(r.Context(), actor.Ref, sessionID); err != nil {
		session.WriteError(w, err)
		return
	}

	response.NoContent(w)
}

// SessionRoutes attaches message endpoints to the sessions router.
func (h *Handler) SessionRoutes() func(chi.Router) {
	return func(r chi.Router) {
		r.Post("/{id}/messages", h.Send)
		r.Get("/{id}/messages", h.History)
		r.Post("/{id}/read", h.MarkRead)
		r.Post("/{id}/typing", h.Typing)
	}
}

func parseSessionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid session ID")
		return uuid.Nil, false
	}
	return id, true
}
