package session

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/duetchat/duet-api/internal/domain/identity"
	"github.com/duetchat/duet-api/internal/metrics"
)

// SystemMessenger appends system-sender messages to a session's history and
// publishes them to live subscribers. Implemented by the message service.
type SystemMessenger interface {
	AppendSystem(ctx context.Context, sessionID uuid.UUID, content string) error
}

// Service handles session lifecycle business logic
type Service struct {
	repo      Repository
	messenger SystemMessenger
}

// NewService creates session service
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// SetMessenger wires the system message sink. Set once during startup; the
// message service itself depends on the session repository, so this cannot be
// a constructor argument.
func (s *Service) SetMessenger(m SystemMessenger) {
	s.messenger = m
}

// Get returns a session visible to the given actor
func (s *Service) Get(ctx context.Context, actor identity.Ref, id uuid.UUID) (*ChatSession, error) {
	sess, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrSessionNotFound
	}
	if !sess.HasParticipant(actor) {
		return nil, ErrNotParticipant
	}
	return sess, nil
}

// Active returns the actor's current active session, nil if none
func (s *Service) Active(ctx context.Context, actor identity.Ref) (*ChatSession, error) {
	return s.repo.GetActiveByActor(ctx, actor)
}

// End terminates a session on behalf of a participant. Idempotent: ending an
// already-terminal session succeeds and leaves ended_at untouched.
func (s *Service) End(ctx context.Context, actor identity.Ref, id uuid.UUID, reason string) (*ChatSession, error) {
	sess, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if sess.Status.Terminal() {
		return sess, nil
	}

	if reason == "" {
		reason = EndReasonUserLeft
	}

	did, err := s.repo.Terminate(ctx, id, StatusEnded, &actor, reason, time.Now())
	if err != nil {
		return nil, err
	}

	if did {
		metrics.ActiveSessions.Dec()
		s.appendSystem(ctx, id, "Your partner has left the chat")
	}

	sess, err = s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// MarkReported moves an active session to reported. Silent: the reported
// party gets no system message about this transition.
func (s *Service) MarkReported(ctx context.Context, id uuid.UUID) error {
	did, err := s.repo.Terminate(ctx, id, StatusReported, nil, EndReasonReported, time.Now())
	if err != nil {
		return err
	}
	if did {
		metrics.ActiveSessions.Dec()
	}
	return nil
}

// MarkBanned moves an active session to banned after a report-threshold ban
// and tells the remaining participant why the conversation stopped.
func (s *Service) MarkBanned(ctx context.Context, id uuid.UUID) error {
	did, err := s.repo.Terminate(ctx, id, StatusBanned, nil, EndReasonBanned, time.Now())
	if err != nil {
		return err
	}
	if did {
		metrics.ActiveSessions.Dec()
		s.appendSystem(ctx, id, "Your partner has been removed from the chat")
	}
	return nil
}

func (s *Service) appendSystem(ctx context.Context, id uuid.UUID, content string) {
	if s.messenger == nil {
		return
	}
	if err := s.messenger.AppendSystem(ctx, id, content); err != nil {
		log.Warn().Err(err).Str("session_id", id.String()).Msg("System message append failed")
	}
}
