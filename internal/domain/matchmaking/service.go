package matchmaking

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/duetchat/duet-api/internal/domain/identity"
	"github.com/duetchat/duet-api/internal/domain/session"
	"github.com/duetchat/duet-api/internal/metrics"
)

// Bus is the slice of the message bus the matchmaking service publishes on.
// Satisfied by messaging.Client.
type Bus interface {
	PublishQueueChanged(data []byte) error
	PublishMatchFound(actorID string, data []byte) error
}

// BlockChecker answers whether two actors have blocked each other.
// Satisfied by the relationships service.
type BlockChecker interface {
	IsBlockedEither(ctx context.Context, a, b identity.Ref) (bool, error)
}

// Service handles queue and pairing business logic
type Service struct {
	repo     Repository
	sessions session.Repository
	blocks   BlockChecker
	bus      Bus
	baseWait time.Duration
}

// NewService creates matchmaking service
func NewService(repo Repository, sessions session.Repository, blocks BlockChecker, bus Bus, baseWait time.Duration) *Service {
	if baseWait <= 0 {
		baseWait = 30 * time.Second
	}
	return &Service{
		repo:     repo,
		sessions: sessions,
		blocks:   blocks,
		bus:      bus,
		baseWait: baseWait,
	}
}

// Join puts the actor into the queue, replacing any prior unmatched entry in
// one transaction. Re-joining keeps the original entered_at so updating
// preferences does not cost queue position.
func (s *Service) Join(ctx context.Context, actor identity.Actor, req JoinRequest) (*JoinResponse, error) {
	existing, err := s.repo.GetUnmatchedByActor(ctx, actor.Ref)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	entry := &QueueEntry{
		ID:          uuid.New(),
		ActorID:     actor.ID,
		IsGuest:     actor.IsGuest,
		DisplayName: actor.DisplayName,
		Tier:        actor.Tier,
		Interests:   normalizeInterests(req.Interests),
		LookingFor:  req.LookingFor,
		OwnAge:      req.Age,
		MinAge:      req.AgeMin,
		MaxAge:      req.AgeMax,
		EnteredAt:   now,
	}
	if entry.LookingFor == "" {
		entry.LookingFor = ModeBoth
	}
	if existing != nil {
		entry.EnteredAt = existing.EnteredAt
	}

	if err := s.repo.Join(ctx, entry); err != nil {
		return nil, err
	}

	s.publishQueueChanged(entry.Actor())
	s.refreshQueueDepth(ctx)

	ahead, err := s.repo.CountUnmatchedBefore(ctx, entry.EnteredAt)
	if err != nil {
		log.Warn().Err(err).Msg("Queue depth lookup failed")
		ahead = 0
	}

	return &JoinResponse{
		Entry:                QueueEntryResponseFromEntity(entry),
		EstimatedWaitSeconds: s.estimateWait(ahead),
		AlreadyQueued:        existing != nil,
	}, nil
}

// Leave removes the actor's unmatched entry. No-op when absent.
func (s *Service) Leave(ctx context.Context, actor identity.Ref) error {
	if err := s.repo.Leave(ctx, actor); err != nil {
		return err
	}
	s.refreshQueueDepth(ctx)
	return nil
}

// estimateWait scales the base estimate by how many unmatched entries sit
// ahead of this one, capped at ten times the base.
func (s *Service) estimateWait(ahead int) int {
	wait := s.baseWait + s.baseWait/2*time.Duration(ahead)
	if max := 10 * s.baseWait; wait > max {
		wait = max
	}
	return int(wait / time.Second)
}

func normalizeInterests(interests []string) []string {
	seen := make(map[string]bool, len(interests))
	out := make([]string, 0, len(interests))
	for _, i := range interests {
		if i == "" || seen[i] {
			continue
		}
		seen[i] = true
		out = append(out, i)
	}
	return out
}

func (s *Service) publishQueueChanged(actor identity.Ref) {
	data, err := json.Marshal(QueueChangedEvent{ActorID: actor.ID, IsGuest: actor.IsGuest})
	if err != nil {
		return
	}
	if err := s.bus.PublishQueueChanged(data); err != nil {
		log.Warn().Err(err).Msg("Queue changed publish failed")
	}
}

func (s *Service) refreshQueueDepth(ctx context.Context) {
	count, err := s.repo.CountUnmatched(ctx)
	if err != nil {
		return
	}
	metrics.QueueDepth.Set(float64(count))
}
