package matchmaking

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/duetchat/duet-api/internal/domain/session"
	"github.com/duetchat/duet-api/internal/middleware"
	"github.com/duetchat/duet-api/internal/pkg/ratelimit"
	"github.com/duetchat/duet-api/internal/pkg/response"
	"github.com/duetchat/duet-api/internal/pkg/validator"
)

// Handler handles matchmaking HTTP requests
type Handler struct {
	service *Service
	limiter *ratelimit.Limiter
}

// NewHandler creates matchmaking handler
func NewHandler(service *Service, limiter *ratelimit.Limiter) *Handler {
	return &Handler{service: service, limiter: limiter}
}

// Join handles POST /queue/join
func (h *Handler) Join(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetActor(r.Context())

	if !h.limiter.Allow(r.Context(), actor.Key(), ratelimit.RuleJoin) {
		response.TooManyRequests(w)
		return
	}

	var req JoinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if errs := validator.Validate(req); errs != nil {
		response.ValidationError(w, errs)
		return
	}
	if req.AgeMin > 0 && req.AgeMax > 0 && req.AgeMin > req.AgeMax {
		response.ValidationError(w, map[string]string{"age_min": "Must not exceed age_max"})
		return
	}

	result, err := h.service.Join(r.Context(), actor, req)
	if err != nil {
		log.Error().Err(err).Msg("Queue join failed")
		response.InternalError(w)
		return
	}

	response.OK(w, result)
}

// Leave handles DELETE /queue/leave
func (h *Handler) Leave(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetActor(r.Context())

	if err := h.service.Leave(r.Context(), actor.Ref); err != nil {
		log.Error().Err(err).Msg("Queue leave failed")
		response.InternalError(w)
		return
	}

	response.NoContent(w)
}

// CreateSession handles POST /sessions. Idempotent per pair: an existing
// active session for the caller is returned instead of a new one.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetActor(r.Context())

	sess, created, err := h.service.TryCreateSession(r.Context(), actor.Ref)
	if err != nil {
		switch {
		case errors.Is(err, ErrNoMatchYet):
			response.Error(w, http.StatusNotFound, "NO_MATCH_YET", "No compatible partner yet, keep waiting")
		case errors.Is(err, ErrNotQueued):
			response.Error(w, http.StatusConflict, "NOT_QUEUED", "Join the queue before requesting a session")
		default:
			log.Error().Err(err).Msg("Session creation attempt failed")
			response.InternalError(w)
		}
		return
	}

	body := session.SessionResponseFromEntity(sess, actor.Ref)
	if created {
		response.Created(w, body)
		return
	}
	response.OK(w, body)
}
