package identity

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/duetchat/duet-api/internal/pkg/ratelimit"
	"github.com/duetchat/duet-api/internal/pkg/response"
)

// Handler handles identity HTTP requests
type Handler struct {
	resolver *Resolver
	limiter  *ratelimit.Limiter
}

// NewHandler creates identity handler
func NewHandler(resolver *Resolver, limiter *ratelimit.Limiter) *Handler {
	return &Handler{resolver: resolver, limiter: limiter}
}

// CreateGuest handles POST /guests
func (h *Handler) CreateGuest(w http.ResponseWriter, r *http.Request) {
	if !h.limiter.Allow(r.Context(), clientIP(r), ratelimit.RuleGuestCreate) {
		response.TooManyRequests(w)
		return
	}

	guest, err := h.resolver.CreateGuest(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Guest creation failed")
		response.InternalError(w)
		return
	}

	response.Created(w, GuestResponseFromEntity(guest))
}

// Me handles GET /me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	actor, err := h.resolver.Resolve(r)
	if err != nil {
		WriteResolveError(w, err)
		return
	}
	response.OK(w, ActorResponseFromEntity(actor))
}

// WriteResolveError maps resolver errors to the response envelope.
func WriteResolveError(w http.ResponseWriter, err error) {
	switch err {
	case ErrNoIdentity:
		response.Error(w, http.StatusUnauthorized, "NO_IDENTITY", "No guest identity, request guest creation first")
	case ErrAutoBanned:
		response.Error(w, http.StatusForbidden, "AUTO_BANNED", "This identity has been banned after repeated reports")
	case ErrUnauthorized:
		response.Unauthorized(w, "Invalid or banned identity")
	default:
		response.InternalError(w)
	}
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		for i := 0; i < len(xff); i++ {
			if xff[i] == ',' {
				return xff[:i]
			}
		}
		return xff
	}
	return r.RemoteAddr
}
