package matchmaking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/duetchat/duet-api/internal/domain/identity"
)

// Repository defines matchmaking data access interface
type Repository interface {
	// Join replaces any unmatched entry for the same actor with the given one,
	// in a single transaction.
	Join(ctx context.Context, entry *QueueEntry) error

	// Leave deletes the actor's unmatched entry. No-op when absent.
	Leave(ctx context.Context, actor identity.Ref) error

	GetUnmatchedByActor(ctx context.Context, actor identity.Ref) (*QueueEntry, error)

	// ListUnmatched returns unclaimed entries ordered by entered_at, then id,
	// so candidate selection is deterministic.
	ListUnmatched(ctx context.Context, limit int) ([]*QueueEntry, error)

	CountUnmatched(ctx context.Context) (int, error)
	CountUnmatchedBefore(ctx context.Context, t time.Time) (int, error)

	// ClaimPair atomically claims both entries, runs create inside the same
	// transaction (session insert), then removes the entries. Returns false
	// without error when another worker claimed either entry first.
	ClaimPair(ctx context.Context, a, b uuid.UUID, create func(ctx context.Context, tx *sqlx.Tx) error) (bool, error)
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates new matchmaking repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Join(ctx context.Context, entry *QueueEntry) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`DELETE FROM queue_entries WHERE actor_id = $1 AND is_guest = $2 AND matched_at IS NULL`,
		entry.ActorID, entry.IsGuest,
	)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO queue_entries (
			id, actor_id, is_guest, display_name, tier,
			interests, looking_for, own_age, min_age, max_age, entered_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`,
		entry.ID, entry.ActorID, entry.IsGuest, entry.DisplayName, entry.Tier,
		entry.Interests, entry.LookingFor, entry.OwnAge, entry.MinAge, entry.MaxAge, entry.EnteredAt,
	)
	if err != nil {
		return err
	}

	return tx.Commit()
}

func (r *repository) Leave(ctx context.Context, actor identity.Ref) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM queue_entries WHERE actor_id = $1 AND is_guest = $2 AND matched_at IS NULL`,
		actor.ID, actor.IsGuest,
	)
	return err
}

func (r *repository) GetUnmatchedByActor(ctx context.Context, actor identity.Ref) (*QueueEntry, error) {
	var entry QueueEntry
	err := r.db.GetContext(ctx, &entry,
		`SELECT * FROM queue_entries WHERE actor_id = $1 AND is_guest = $2 AND matched_at IS NULL`,
		actor.ID, actor.IsGuest,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

func (r *repository) ListUnmatched(ctx context.Context, limit int) ([]*QueueEntry, error) {
	var entries []*QueueEntry
	err := r.db.SelectContext(ctx, &entries, `
		SELECT * FROM queue_entries
		WHERE matched_at IS NULL
		ORDER BY entered_at ASC, id ASC
		LIMIT $1
	`, limit)
	return entries, err
}

func (r *repository) CountUnmatched(ctx context.Context) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM queue_entries WHERE matched_at IS NULL`)
	return count, err
}

func (r *repository) CountUnmatchedBefore(ctx context.Context, t time.Time) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM queue_entries WHERE matched_at IS NULL AND entered_at < $1`, t)
	return count, err
}

func (r *repository) ClaimPair(ctx context.Context, a, b uuid.UUID, create func(ctx context.Context, tx *sqlx.Tx) error) (bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	// The conditional update is the claim: it only succeeds on both rows when
	// neither has been matched by a concurrent worker.
	result, err := tx.ExecContext(ctx,
		`UPDATE queue_entries SET matched_at = NOW() WHERE id IN ($1, $2) AND matched_at IS NULL`,
		a, b,
	)
	if err != nil {
		return false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	if rows != 2 {
		return false, nil
	}

	if err := create(ctx, tx); err != nil {
		return false, fmt.Errorf("create session in claim: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM queue_entries WHERE id IN ($1, $2)`, a, b); err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}
