package session

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/duetchat/duet-api/internal/domain/identity"
)

// Repository defines session data access interface
type Repository interface {
	Create(ctx context.Context, s *ChatSession) error

	// CreateTx inserts a session inside an existing transaction. The pairing
	// engine uses this so the queue claim and the session insert commit together.
	CreateTx(ctx context.Context, tx *sqlx.Tx, s *ChatSession) error

	GetByID(ctx context.Context, id uuid.UUID) (*ChatSession, error)
	GetActiveByActor(ctx context.Context, actor identity.Ref) (*ChatSession, error)

	// Terminate moves an active session to a terminal status. Returns true when
	// this call performed the transition, false when the session was already
	// terminal (or missing). ended_at is set exactly once.
	Terminate(ctx context.Context, id uuid.UUID, to Status, endedBy *identity.Ref, reason string, now time.Time) (bool, error)

	CountActive(ctx context.Context) (int, error)
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates new session repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

const insertSessionQuery = `
	INSERT INTO chat_sessions (
		id, actor_a_id, actor_a_guest, actor_a_name,
		actor_b_id, actor_b_guest, actor_b_name,
		status, shared_interests, match_score, started_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
`

func (r *repository) Create(ctx context.Context, s *ChatSession) error {
	_, err := r.db.ExecContext(ctx, insertSessionQuery,
		s.ID, s.ActorAID, s.ActorAGuest, s.ActorAName,
		s.ActorBID, s.ActorBGuest, s.ActorBName,
		s.Status, s.SharedInterests, s.MatchScore, s.StartedAt,
	)
	return err
}

func (r *repository) CreateTx(ctx context.Context, tx *sqlx.Tx, s *ChatSession) error {
	_, err := tx.ExecContext(ctx, insertSessionQuery,
		s.ID, s.ActorAID, s.ActorAGuest, s.ActorAName,
		s.ActorBID, s.ActorBGuest, s.ActorBName,
		s.Status, s.SharedInterests, s.MatchScore, s.StartedAt,
	)
	return err
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*ChatSession, error) {
	var s ChatSession
	err := r.db.GetContext(ctx, &s, `SELECT * FROM chat_sessions WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

func (r *repository) GetActiveByActor(ctx context.Context, actor identity.Ref) (*ChatSession, error) {
	query := `
		SELECT * FROM chat_sessions
		WHERE status = 'active'
		  AND ((actor_a_id = $1 AND actor_a_guest = $2) OR (actor_b_id = $1 AND actor_b_guest = $2))
		ORDER BY started_at DESC
		LIMIT 1
	`
	var s ChatSession
	err := r.db.GetContext(ctx, &s, query, actor.ID, actor.IsGuest)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

func (r *repository) Terminate(ctx context.Context, id uuid.UUID, to Status, endedBy *identity.Ref, reason string, now time.Time) (bool, error) {
	query := `
		UPDATE chat_sessions
		SET status = $2, ended_at = $3, ended_by_id = $4, ended_by_guest = $5, end_reason = $6
		WHERE id = $1 AND status = 'active'
	`
	var byID interface{}
	var byGuest interface{}
	if endedBy != nil {
		byID = endedBy.ID
		byGuest = endedBy.IsGuest
	}

	result, err := r.db.ExecContext(ctx, query, id, to, now, byID, byGuest, reason)
	if err != nil {
		return false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

func (r *repository) CountActive(ctx context.Context) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM chat_sessions WHERE status = 'active'`)
	return count, err
}
