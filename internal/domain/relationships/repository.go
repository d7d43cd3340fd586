package relationships

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/duetchat/duet-api/internal/domain/identity"
)

// Repository defines relationships data access interface
type Repository interface {
	CreateBlock(ctx context.Context, block *BlockRelation) error
	DeleteBlock(ctx context.Context, blocker, blocked identity.Ref) error
	ListBlocks(ctx context.Context, blocker identity.Ref) ([]*BlockRelation, error)

	// IsBlockedEither reports whether either actor has blocked the other.
	// The pairing engine uses this to exclude candidates.
	IsBlockedEither(ctx context.Context, a, b identity.Ref) (bool, error)
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates new relationships repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateBlock(ctx context.Context, block *BlockRelation) error {
	query := `
		INSERT INTO actor_blocks (id, blocker_id, blocker_guest, blocked_id, blocked_guest, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (blocker_id, blocker_guest, blocked_id, blocked_guest) DO NOTHING
	`
	_, err := r.db.ExecContext(ctx, query,
		block.ID,
		block.BlockerID,
		block.BlockerGuest,
		block.BlockedID,
		block.BlockedGuest,
		block.CreatedAt,
	)
	return err
}

func (r *repository) DeleteBlock(ctx context.Context, blocker, blocked identity.Ref) error {
	query := `
		DELETE FROM actor_blocks
		WHERE blocker_id = $1 AND blocker_guest = $2 AND blocked_id = $3 AND blocked_guest = $4
	`
	result, err := r.db.ExecContext(ctx, query, blocker.ID, blocker.IsGuest, blocked.ID, blocked.IsGuest)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return ErrBlockNotFound
	}

	return nil
}

func (r *repository) ListBlocks(ctx context.Context, blocker identity.Ref) ([]*BlockRelation, error) {
	query := `
		SELECT * FROM actor_blocks
		WHERE blocker_id = $1 AND blocker_guest = $2
		ORDER BY created_at DESC
	`
	var blocks []*BlockRelation
	err := r.db.SelectContext(ctx, &blocks, query, blocker.ID, blocker.IsGuest)
	return blocks, err
}

func (r *repository) IsBlockedEither(ctx context.Context, a, b identity.Ref) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM actor_blocks
			WHERE (blocker_id = $1 AND blocker_guest = $2 AND blocked_id = $3 AND blocked_guest = $4)
			   OR (blocker_id = $3 AND blocker_guest = $4 AND blocked_id = $1 AND blocked_guest = $2)
		)
	`
	var exists bool
	err := r.db.GetContext(ctx, &exists, query, a.ID, a.IsGuest, b.ID, b.IsGuest)
	return exists, err
}
