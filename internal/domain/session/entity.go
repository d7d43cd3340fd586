package session

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/duetchat/duet-api/internal/domain/identity"
)

// Status represents session lifecycle state (matches session_status enum)
type Status string

const (
	StatusActive   Status = "active"
	StatusEnded    Status = "ended"
	StatusReported Status = "reported"
	StatusBanned   Status = "banned"
)

// Terminal returns true for end states. Transitions out of a terminal
// state are never allowed.
func (s Status) Terminal() bool {
	return s == StatusEnded || s == StatusReported || s == StatusBanned
}

// End reasons recorded on session termination.
const (
	EndReasonUserLeft   = "user_left"
	EndReasonSkip       = "skip"
	EndReasonInactivity = "inactivity"
	EndReasonReported   = "reported"
	EndReasonBanned     = "banned"
)

// ChatSession represents a paired 1:1 conversation (matches chat_sessions table).
// Sessions are never deleted; terminal rows remain as the audit trail.
type ChatSession struct {
	ID              uuid.UUID      `db:"id"`
	ActorAID        uuid.UUID      `db:"actor_a_id"`
	ActorAGuest     bool           `db:"actor_a_guest"`
	ActorAName      string         `db:"actor_a_name"`
	ActorBID        uuid.UUID      `db:"actor_b_id"`
	ActorBGuest     bool           `db:"actor_b_guest"`
	ActorBName      string         `db:"actor_b_name"`
	Status          Status         `db:"status"`
	SharedInterests pq.StringArray `db:"shared_interests"`
	MatchScore      float64        `db:"match_score"`
	StartedAt       time.Time      `db:"started_at"`
	EndedAt         sql.NullTime   `db:"ended_at"`
	EndedByID       uuid.NullUUID  `db:"ended_by_id"`
	EndedByGuest    sql.NullBool   `db:"ended_by_guest"`
	EndReason       sql.NullString `db:"end_reason"`
}

// ActorA returns the first participant's reference
func (s *ChatSession) ActorA() identity.Ref {
	return identity.Ref{ID: s.ActorAID, IsGuest: s.ActorAGuest}
}

// ActorB returns the second participant's reference
func (s *ChatSession) ActorB() identity.Ref {
	return identity.Ref{ID: s.ActorBID, IsGuest: s.ActorBGuest}
}

// HasParticipant reports whether ref is one of the two participants
func (s *ChatSession) HasParticipant(ref identity.Ref) bool {
	return s.ActorA() == ref || s.ActorB() == ref
}

// Partner returns the other participant's reference
func (s *ChatSession) Partner(ref identity.Ref) identity.Ref {
	if s.ActorA() == ref {
		return s.ActorB()
	}
	return s.ActorA()
}

// PartnerName returns the other participant's display name
func (s *ChatSession) PartnerName(ref identity.Ref) string {
	if s.ActorA() == ref {
		return s.ActorBName
	}
	return s.ActorAName
}
