package message

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/duetchat/duet-api/internal/domain/identity"
	"github.com/duetchat/duet-api/internal/domain/safety"
	"github.com/duetchat/duet-api/internal/domain/session"
	"github.com/duetchat/duet-api/internal/metrics"
	"github.com/duetchat/duet-api/internal/pkg/ratelimit"
)

// MaxContentRunes caps message length, counted in runes, not bytes.
const MaxContentRunes = 2000

// defaultHistoryLimit bounds history pages when the client asks for none.
const defaultHistoryLimit = 100

// Bus is the slice of the message bus the pipeline publishes on.
// Satisfied by messaging.Client.
type Bus interface {
	PublishSessionEvent(sessionID string, data []byte) error
}

// Service runs the message pipeline: session check, content validation, rate
// limit, safety gate, persist, publish.
type Service struct {
	repo     Repository
	sessions session.Repository
	gate     *safety.Gate
	limiter  *ratelimit.Limiter
	bus      Bus
}

// NewService creates message service
func NewService(repo Repository, sessions session.Repository, gate *safety.Gate, limiter *ratelimit.Limiter, bus Bus) *Service {
	return &Service{
		repo:     repo,
		sessions: sessions,
		gate:     gate,
		limiter:  limiter,
		bus:      bus,
	}
}

// Send pushes one message through the pipeline. Order within a session is
// persistence order; reads sort by created_at then id to match it.
func (s *Service) Send(ctx context.Context, actor identity.Actor, sessionID uuid.UUID, content string) (*ChatMessage, error) {
	start := time.Now()

	sess, err := s.activeSession(ctx, actor.Ref, sessionID)
	if err != nil {
		return nil, err
	}

	if !validContent(content) {
		metrics.MessagesTotal.WithLabelValues("invalid").Inc()
		return nil, ErrInvalidContent
	}

	if !s.limiter.Allow(ctx, actor.Key(), ratelimit.RuleMessage) {
		return nil, ErrRateLimited
	}

	decision := s.gate.Review(ctx, content, actor.Key())

	msg := &ChatMessage{
		ID:          uuid.New(),
		SessionID:   sess.ID,
		SenderID:    uuid.NullUUID{UUID: actor.ID, Valid: true},
		SenderGuest: actor.IsGuest,
		SenderName:  actor.DisplayName,
		Content:     content,
		IsSafe:      decision.Outcome != safety.OutcomeBlocked,
		SafetyScore: decision.Score,
		Delivered:   decision.Outcome != safety.OutcomeBlocked,
		CreatedAt:   time.Now(),
	}
	if decision.Reason != "" {
		msg.FlaggedReason = sql.NullString{String: decision.Reason, Valid: true}
	}

	if err := s.repo.Create(ctx, msg); err != nil {
		return nil, err
	}

	if decision.Outcome == safety.OutcomeBlocked {
		metrics.MessagesTotal.WithLabelValues("blocked").Inc()
		return msg, &BlockedError{Reason: safety.ReasonText(decision.Reason)}
	}

	metrics.MessagesTotal.WithLabelValues(string(decision.Outcome)).Inc()
	s.publishMessage(msg, actor.Ref)
	metrics.SendLatency.Observe(time.Since(start).Seconds())

	return msg, nil
}

// AppendSystem persists and publishes a system-sender message. Used by the
// session lifecycle on terminal transitions.
func (s *Service) AppendSystem(ctx context.Context, sessionID uuid.UUID, content string) error {
	msg := &ChatMessage{
		ID:         uuid.New(),
		SessionID:  sessionID,
		SenderName: SystemSenderName,
		Content:    content,
		IsSafe:     true,
		Delivered:  true,
		CreatedAt:  time.Now(),
	}

	if err := s.repo.Create(ctx, msg); err != nil {
		return err
	}

	s.publishMessage(msg, identity.Ref{})
	return nil
}

// History returns session messages after the given time, redacting blocked
// content for everyone but its sender. Terminal sessions stay readable.
func (s *Service) History(ctx context.Context, actor identity.Ref, sessionID uuid.UUID, after time.Time, limit int) ([]*MessageResponse, error) {
	sess, err := s.participantSession(ctx, actor, sessionID)
	if err != nil {
		return nil, err
	}

	if limit <= 0 || limit > defaultHistoryLimit {
		limit = defaultHistoryLimit
	}

	messages, err := s.repo.ListBySession(ctx, sess.ID, after, limit)
	if err != nil {
		return nil, err
	}

	out := make([]*MessageResponse, 0, len(messages))
	for _, m := range messages {
		out = append(out, MessageResponseFromEntity(m, actor))
	}
	return out, nil
}

// MarkRead marks the partner's messages read and notifies the session channel.
func (s *Service) MarkRead(ctx context.Context, actor identity.Ref, sessionID uuid.UUID) error {
	sess, err := s.participantSession(ctx, actor, sessionID)
	if err != nil {
		return err
	}

	now := time.Now()
	if err := s.repo.MarkRead(ctx, sess.ID, actor, now); err != nil {
		return err
	}

	s.publishEvent(sess.ID, ReadEvent{Type: "read", ReaderID: actor.ID.String(), ReadAt: now})
	return nil
}

// Typing publishes an ephemeral typing notification, nothing persisted.
func (s *Service) Typing(ctx context.Context, actor identity.Ref, sessionID uuid.UUID) error {
	sess, err := s.activeSession(ctx, actor, sessionID)
	if err != nil {
		return err
	}

	s.publishEvent(sess.ID, TypingEvent{Type: "typing", SenderID: actor.ID.String()})
	return nil
}

func (s *Service) participantSession(ctx context.Context, actor identity.Ref, sessionID uuid.UUID) (*session.ChatSession, error) {
	sess, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, session.ErrSessionNotFound
	}
	if !sess.HasParticipant(actor) {
		return nil, session.ErrNotParticipant
	}
	return sess, nil
}

func (s *Service) activeSession(ctx context.Context, actor identity.Ref, sessionID uuid.UUID) (*session.ChatSession, error) {
	sess, err := s.participantSession(ctx, actor, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status != session.StatusActive {
		return nil, session.ErrSessionNotActive
	}
	return sess, nil
}

func validContent(content string) bool {
	if content == "" || !utf8.ValidString(content) {
		return false
	}
	return utf8.RuneCountInString(content) <= MaxContentRunes
}

func (s *Service) publishMessage(msg *ChatMessage, viewer identity.Ref) {
	s.publishEvent(msg.SessionID, MessageEvent{Type: "message", Message: MessageResponseFromEntity(msg, viewer)})
}

func (s *Service) publishEvent(sessionID uuid.UUID, event interface{}) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	if err := s.bus.PublishSessionEvent(sessionID.String(), data); err != nil {
		log.Warn().Err(err).Str("session_id", sessionID.String()).Msg("Session event publish failed")
	}
}
