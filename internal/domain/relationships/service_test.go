package relationships

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/duetchat/duet-api/internal/domain/identity"
)

type fakeRepo struct {
	blocks map[string]*BlockRelation
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{blocks: make(map[string]*BlockRelation)}
}

func pairKey(blocker, blocked identity.Ref) string {
	return blocker.Key() + "|" + blocked.Key()
}

func (f *fakeRepo) CreateBlock(ctx context.Context, block *BlockRelation) error {
	key := pairKey(block.Blocker(), block.Blocked())
	if _, ok := f.blocks[key]; ok {
		return nil
	}
	f.blocks[key] = block
	return nil
}

func (f *fakeRepo) DeleteBlock(ctx context.Context, blocker, blocked identity.Ref) error {
	key := pairKey(blocker, blocked)
	if _, ok := f.blocks[key]; !ok {
		return ErrBlockNotFound
	}
	delete(f.blocks, key)
	return nil
}

func (f *fakeRepo) ListBlocks(ctx context.Context, blocker identity.Ref) ([]*BlockRelation, error) {
	var out []*BlockRelation
	for _, b := range f.blocks {
		if b.Blocker() == blocker {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeRepo) IsBlockedEither(ctx context.Context, a, b identity.Ref) (bool, error) {
	_, ab := f.blocks[pairKey(a, b)]
	_, ba := f.blocks[pairKey(b, a)]
	return ab || ba, nil
}

var (
	guestRef   = identity.Ref{ID: uuid.MustParse("00000000-0000-0000-0000-000000000001"), IsGuest: true}
	accountRef = identity.Ref{ID: uuid.MustParse("00000000-0000-0000-0000-000000000002"), IsGuest: false}
)

func TestBlockAndCheck(t *testing.T) {
	svc := NewService(newFakeRepo())
	ctx := context.Background()

	if err := svc.Block(ctx, guestRef, accountRef); err != nil {
		t.Fatalf("Block: %v", err)
	}

	// Either direction of the pair reports blocked.
	for _, pair := range [][2]identity.Ref{{guestRef, accountRef}, {accountRef, guestRef}} {
		blocked, err := svc.IsBlockedEither(ctx, pair[0], pair[1])
		if err != nil {
			t.Fatalf("IsBlockedEither: %v", err)
		}
		if !blocked {
			t.Errorf("IsBlockedEither(%s, %s) = false, want true", pair[0].Key(), pair[1].Key())
		}
	}

	// Blocking again is a no-op, not an error.
	if err := svc.Block(ctx, guestRef, accountRef); err != nil {
		t.Errorf("repeat Block: %v", err)
	}

	list, _ := svc.ListMyBlocks(ctx, guestRef)
	if len(list) != 1 {
		t.Errorf("blocks = %d, want 1", len(list))
	}
}

func TestBlockSelf(t *testing.T) {
	svc := NewService(newFakeRepo())

	if err := svc.Block(context.Background(), guestRef, guestRef); !errors.Is(err, ErrSelfBlock) {
		t.Errorf("err = %v, want ErrSelfBlock", err)
	}
}

func TestUnblock(t *testing.T) {
	svc := NewService(newFakeRepo())
	ctx := context.Background()

	svc.Block(ctx, guestRef, accountRef)
	if err := svc.Unblock(ctx, guestRef, accountRef); err != nil {
		t.Fatalf("Unblock: %v", err)
	}

	blocked, _ := svc.IsBlockedEither(ctx, guestRef, accountRef)
	if blocked {
		t.Error("pair still blocked after unblock")
	}

	if err := svc.Unblock(ctx, guestRef, accountRef); !errors.Is(err, ErrBlockNotFound) {
		t.Errorf("second Unblock = %v, want ErrBlockNotFound", err)
	}
}
