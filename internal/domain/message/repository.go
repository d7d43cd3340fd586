package message

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/duetchat/duet-api/internal/domain/identity"
)

// Repository defines message data access interface
type Repository interface {
	Create(ctx context.Context, msg *ChatMessage) error

	// ListBySession returns messages after the given timestamp ordered by
	// created_at, then id, so per-session order matches persistence order.
	// A zero after returns from the beginning.
	ListBySession(ctx context.Context, sessionID uuid.UUID, after time.Time, limit int) ([]*ChatMessage, error)

	// MarkRead marks every unread message not sent by reader as read.
	MarkRead(ctx context.Context, sessionID uuid.UUID, reader identity.Ref, now time.Time) error
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates new message repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, msg *ChatMessage) error {
	query := `
		INSERT INTO chat_messages (
			id, session_id, sender_id, sender_guest, sender_name,
			content, is_safe, safety_score, flagged_reason, delivered, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.db.ExecContext(ctx, query,
		msg.ID, msg.SessionID, msg.SenderID, msg.SenderGuest, msg.SenderName,
		msg.Content, msg.IsSafe, msg.SafetyScore, msg.FlaggedReason, msg.Delivered, msg.CreatedAt,
	)
	return err
}

func (r *repository) ListBySession(ctx context.Context, sessionID uuid.UUID, after time.Time, limit int) ([]*ChatMessage, error) {
	query := `
		SELECT * FROM chat_messages
		WHERE session_id = $1 AND created_at > $2
		ORDER BY created_at ASC, id ASC
		LIMIT $3
	`
	var messages []*ChatMessage
	err := r.db.SelectContext(ctx, &messages, query, sessionID, after, limit)
	return messages, err
}

func (r *repository) MarkRead(ctx context.Context, sessionID uuid.UUID, reader identity.Ref, now time.Time) error {
	query := `
		UPDATE chat_messages
		SET read_at = $3
		WHERE session_id = $1
		  AND read_at IS NULL
		  AND sender_id IS NOT NULL
		  AND NOT (sender_id = $2 AND sender_guest = $4)
	`
	_, err := r.db.ExecContext(ctx, query, sessionID, reader.ID, now, reader.IsGuest)
	return err
}
