package report

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/duetchat/duet-api/internal/domain/identity"
	"github.com/duetchat/duet-api/internal/domain/session"
	"github.com/duetchat/duet-api/internal/middleware"
	"github.com/duetchat/duet-api/internal/pkg/response"
	"github.com/duetchat/duet-api/internal/pkg/validator"
)

// Handler handles report HTTP requests
type Handler struct {
	service *Service
}

// NewHandler creates report handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// File handles POST /reports
func (h *Handler) File(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetActor(r.Context())

	var req FileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if errs := validator.Validate(req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	reportedID, err := uuid.Parse(req.ReportedID)
	if err != nil {
		response.BadRequest(w, "Invalid reported ID")
		return
	}
	reported := identity.Ref{ID: reportedID, IsGuest: req.ReportedGuest}

	var sessionID *uuid.UUID
	if req.SessionID != "" {
		id, err := uuid.Parse(req.SessionID)
		if err != nil {
			response.BadRequest(w, "Invalid session ID")
			return
		}
		sessionID = &id
	}

	rep, err := h.service.File(r.Context(), actor.Ref, reported, sessionID, req.Category, req.Reason)
	if err != nil {
		var cooldown *CooldownError
		switch {
		case errors.As(err, &cooldown):
			response.ErrorWithDetails(w, http.StatusTooManyRequests, "REPORT_COOLDOWN",
				"You recently reported this user, try again later",
				map[string]string{"retry_after_seconds": strconv.Itoa(cooldown.RemainingSeconds())})
		case errors.Is(err, ErrSelfReport):
			response.BadRequest(w, "Cannot report yourself")
		case errors.Is(err, session.ErrSessionNotFound), errors.Is(err, session.ErrNotParticipant):
			session.WriteError(w, err)
		default:
			log.Error().Err(err).Msg("Report filing failed")
			response.InternalError(w)
		}
		return
	}

	response.Created(w, ReportResponseFromEntity(rep))
}
