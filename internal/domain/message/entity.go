package message

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/duetchat/duet-api/internal/domain/identity"
)

// ChatMessage represents one message in a session (matches chat_messages
// table). Rows are immutable after insert except the delivery and read flags.
// Blocked messages are persisted with is_safe = false for the audit trail but
// never delivered.
type ChatMessage struct {
	ID            uuid.UUID      `db:"id"`
	SessionID     uuid.UUID      `db:"session_id"`
	SenderID      uuid.NullUUID  `db:"sender_id"` // null for system messages
	SenderGuest   bool           `db:"sender_guest"`
	SenderName    string         `db:"sender_name"`
	Content       string         `db:"content"`
	IsSafe        bool           `db:"is_safe"`
	SafetyScore   float64        `db:"safety_score"`
	FlaggedReason sql.NullString `db:"flagged_reason"`
	Delivered     bool           `db:"delivered"`
	ReadAt        sql.NullTime   `db:"read_at"`
	CreatedAt     time.Time      `db:"created_at"`
}

// SystemSenderName labels messages emitted by the service itself.
const SystemSenderName = "system"

// IsSystem reports whether the message was emitted by the service
func (m *ChatMessage) IsSystem() bool {
	return !m.SenderID.Valid
}

// Sender returns the sending actor's reference; ok is false for system messages
func (m *ChatMessage) Sender() (identity.Ref, bool) {
	if !m.SenderID.Valid {
		return identity.Ref{}, false
	}
	return identity.Ref{ID: m.SenderID.UUID, IsGuest: m.SenderGuest}, true
}

// SentBy reports whether ref authored this message
func (m *ChatMessage) SentBy(ref identity.Ref) bool {
	sender, ok := m.Sender()
	return ok && sender == ref
}
