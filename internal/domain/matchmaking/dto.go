package matchmaking

import (
	"time"

	"github.com/google/uuid"
)

// JoinRequest represents queue join preferences
type JoinRequest struct {
	Interests  []string `json:"interests" validate:"omitempty,max=10,dive,min=1,max=30"`
	LookingFor string   `json:"looking_for" validate:"omitempty,looking_for"`
	Age        int      `json:"age" validate:"omitempty,min=13,max=120"`
	AgeMin     int      `json:"age_min" validate:"omitempty,min=13,max=120"`
	AgeMax     int      `json:"age_max" validate:"omitempty,min=13,max=120"`
}

// QueueEntryResponse represents a queue entry in API responses
type QueueEntryResponse struct {
	ID         string    `json:"id"`
	Interests  []string  `json:"interests"`
	LookingFor string    `json:"looking_for"`
	AgeMin     int       `json:"age_min,omitempty"`
	AgeMax     int       `json:"age_max,omitempty"`
	EnteredAt  time.Time `json:"entered_at"`
}

// JoinResponse is the queue join result. AlreadyQueued flags the
// success-with-notice path when the actor replaced a prior entry.
type JoinResponse struct {
	Entry                *QueueEntryResponse `json:"entry"`
	EstimatedWaitSeconds int                 `json:"estimated_wait_seconds"`
	AlreadyQueued        bool                `json:"already_queued"`
}

// QueueEntryResponseFromEntity converts entity to response DTO
func QueueEntryResponseFromEntity(e *QueueEntry) *QueueEntryResponse {
	return &QueueEntryResponse{
		ID:         e.ID.String(),
		Interests:  e.Interests,
		LookingFor: e.LookingFor,
		AgeMin:     e.MinAge,
		AgeMax:     e.MaxAge,
		EnteredAt:  e.EnteredAt,
	}
}

// QueueChangedEvent is published on queue.changed after every queue mutation
// that can unlock a new pairing.
type QueueChangedEvent struct {
	ActorID uuid.UUID `json:"actor_id"`
	IsGuest bool      `json:"is_guest"`
}

// MatchFoundEvent is published on match.found.<actor_id> for both sides of a
// freshly created pair.
type MatchFoundEvent struct {
	Type            string    `json:"type"`
	SessionID       uuid.UUID `json:"session_id"`
	PartnerName     string    `json:"partner_name"`
	SharedInterests []string  `json:"shared_interests"`
	MatchScore      float64   `json:"match_score"`
}
