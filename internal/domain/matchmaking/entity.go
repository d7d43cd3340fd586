package matchmaking

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/duetchat/duet-api/internal/domain/identity"
)

// Looking-for modes. An entry only pairs with entries whose modes overlap;
// "both" overlaps everything.
const (
	ModeText  = "text"
	ModeVideo = "video"
	ModeBoth  = "both"
)

// QueueEntry represents a waiting actor (matches queue_entries table).
// matched_at is the claim marker: a pairing transaction sets it on both rows
// of a pair before creating the session, so two concurrent workers can never
// both claim the same entry.
type QueueEntry struct {
	ID          uuid.UUID      `db:"id"`
	ActorID     uuid.UUID      `db:"actor_id"`
	IsGuest     bool           `db:"is_guest"`
	DisplayName string         `db:"display_name"`
	Tier        identity.Tier  `db:"tier"`
	Interests   pq.StringArray `db:"interests"`
	LookingFor  string         `db:"looking_for"`
	OwnAge      int            `db:"own_age"`
	MinAge      int            `db:"min_age"`
	MaxAge      int            `db:"max_age"`
	EnteredAt   time.Time      `db:"entered_at"`
	MatchedAt   sql.NullTime   `db:"matched_at"`
}

// Actor returns the entry owner's reference
func (e *QueueEntry) Actor() identity.Ref {
	return identity.Ref{ID: e.ActorID, IsGuest: e.IsGuest}
}

// modesOverlap reports whether two looking-for modes are compatible.
func modesOverlap(a, b string) bool {
	if a == ModeBoth || b == ModeBoth {
		return true
	}
	return a == b
}

// acceptsAge reports whether the seeker's age range admits the partner.
// A zero range means no age filtering; a partner without a stated age only
// matches unfiltered seekers.
func acceptsAge(seeker, partner *QueueEntry) bool {
	if seeker.MinAge == 0 && seeker.MaxAge == 0 {
		return true
	}
	if partner.OwnAge == 0 {
		return false
	}
	if partner.OwnAge < seeker.MinAge {
		return false
	}
	if seeker.MaxAge > 0 && partner.OwnAge > seeker.MaxAge {
		return false
	}
	return true
}

// Compatible applies the hard pairing filters: looking-for overlap and
// mutual age-range satisfaction. Interests stay soft (scoring only).
func Compatible(a, b *QueueEntry) bool {
	if a.Actor() == b.Actor() {
		return false
	}
	if !modesOverlap(a.LookingFor, b.LookingFor) {
		return false
	}
	return acceptsAge(a, b) && acceptsAge(b, a)
}

// MatchScore returns |shared| / max(1, |union|) over the two interest sets
// plus the shared interests themselves. Empty sets score zero but still match.
func MatchScore(a, b *QueueEntry) (float64, []string) {
	inA := make(map[string]bool, len(a.Interests))
	union := make(map[string]bool, len(a.Interests)+len(b.Interests))
	for _, i := range a.Interests {
		inA[i] = true
		union[i] = true
	}

	sharedSet := make(map[string]bool)
	var shared []string
	for _, i := range b.Interests {
		union[i] = true
		if inA[i] && !sharedSet[i] {
			sharedSet[i] = true
			shared = append(shared, i)
		}
	}

	if len(union) == 0 {
		return 0, nil
	}
	return float64(len(shared)) / float64(len(union)), shared
}
