package message

import (
	"time"

	"github.com/duetchat/duet-api/internal/domain/identity"
)

// SendRequest represents a message send request
type SendRequest struct {
	Content string `json:"content" validate:"required"`
}

// SenderInfo describes a message author
type SenderInfo struct {
	ID          string `json:"id,omitempty"`
	DisplayName string `json:"display_name"`
	IsGuest     bool   `json:"is_guest,omitempty"`
	System      bool   `json:"system,omitempty"`
}

// MessageResponse represents a message in API responses
type MessageResponse struct {
	ID        string     `json:"id"`
	SessionID string     `json:"session_id"`
	Sender    SenderInfo `json:"sender"`
	Content   string     `json:"content"`
	Flagged   bool       `json:"flagged,omitempty"`
	Blocked   bool       `json:"blocked,omitempty"`
	Reason    string     `json:"reason,omitempty"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// redactedContent replaces blocked content in histories served to the
// non-sender. The literal content never leaves the database.
const redactedContent = "[message removed]"

// MessageResponseFromEntity converts entity to response DTO for a viewer.
// Blocked messages keep their content only for the sender; everyone else
// sees a placeholder plus the reason.
func MessageResponseFromEntity(m *ChatMessage, viewer identity.Ref) *MessageResponse {
	resp := &MessageResponse{
		ID:        m.ID.String(),
		SessionID: m.SessionID.String(),
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
	}

	if sender, ok := m.Sender(); ok {
		resp.Sender = SenderInfo{
			ID:          sender.ID.String(),
			DisplayName: m.SenderName,
			IsGuest:     sender.IsGuest,
		}
	} else {
		resp.Sender = SenderInfo{DisplayName: SystemSenderName, System: true}
	}

	if m.ReadAt.Valid {
		t := m.ReadAt.Time
		resp.ReadAt = &t
	}

	if !m.IsSafe {
		resp.Blocked = true
		resp.Reason = m.FlaggedReason.String
		if !m.SentBy(viewer) {
			resp.Content = redactedContent
		}
	} else if m.FlaggedReason.Valid {
		resp.Flagged = true
		resp.Reason = m.FlaggedReason.String
	}

	return resp
}

// Event frames published on session.<id>.

// MessageEvent carries a delivered message to live subscribers
type MessageEvent struct {
	Type    string           `json:"type"`
	Message *MessageResponse `json:"message"`
}

// TypingEvent is ephemeral: published, never persisted
type TypingEvent struct {
	Type     string `json:"type"`
	SenderID string `json:"sender_id"`
}

// ReadEvent signals the partner's messages were read
type ReadEvent struct {
	Type     string    `json:"type"`
	ReaderID string    `json:"reader_id"`
	ReadAt   time.Time `json:"read_at"`
}
