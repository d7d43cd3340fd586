package relationships

import (
	"time"

	"github.com/google/uuid"

	"github.com/duetchat/duet-api/internal/domain/identity"
)

// BlockRelation represents an actor-to-actor block
type BlockRelation struct {
	ID           uuid.UUID `db:"id"`
	BlockerID    uuid.UUID `db:"blocker_id"`
	BlockerGuest bool      `db:"blocker_guest"`
	BlockedID    uuid.UUID `db:"blocked_id"`
	BlockedGuest bool      `db:"blocked_guest"`
	CreatedAt    time.Time `db:"created_at"`
}

// Blocker returns the blocking actor's reference
func (b *BlockRelation) Blocker() identity.Ref {
	return identity.Ref{ID: b.BlockerID, IsGuest: b.BlockerGuest}
}

// Blocked returns the blocked actor's reference
func (b *BlockRelation) Blocked() identity.Ref {
	return identity.Ref{ID: b.BlockedID, IsGuest: b.BlockedGuest}
}
