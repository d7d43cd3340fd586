package relationships

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/duetchat/duet-api/internal/domain/identity"
)

// Service handles actor block business logic
type Service struct {
	repo Repository
}

// NewService creates new relationships service
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Block blocks another actor
func (s *Service) Block(ctx context.Context, blocker, target identity.Ref) error {
	if blocker == target {
		return ErrSelfBlock
	}

	block := &BlockRelation{
		ID:           uuid.New(),
		BlockerID:    blocker.ID,
		BlockerGuest: blocker.IsGuest,
		BlockedID:    target.ID,
		BlockedGuest: target.IsGuest,
		CreatedAt:    time.Now(),
	}
	return s.repo.CreateBlock(ctx, block)
}

// Unblock removes a block
func (s *Service) Unblock(ctx context.Context, blocker, target identity.Ref) error {
	return s.repo.DeleteBlock(ctx, blocker, target)
}

// ListMyBlocks returns all actors blocked by the given actor
func (s *Service) ListMyBlocks(ctx context.Context, blocker identity.Ref) ([]*BlockRelation, error) {
	return s.repo.ListBlocks(ctx, blocker)
}

// IsBlockedEither reports whether either actor has blocked the other
func (s *Service) IsBlockedEither(ctx context.Context, a, b identity.Ref) (bool, error) {
	return s.repo.IsBlockedEither(ctx, a, b)
}
