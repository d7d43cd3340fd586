package matchmaking

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/duetchat/duet-api/internal/domain/identity"
	"github.com/duetchat/duet-api/internal/domain/session"
)

type fakeQueueRepo struct {
	entries    map[uuid.UUID]*QueueEntry
	failClaims int
}

func newFakeQueueRepo() *fakeQueueRepo {
	return &fakeQueueRepo{entries: make(map[uuid.UUID]*QueueEntry)}
}

func (f *fakeQueueRepo) Join(ctx context.Context, entry *QueueEntry) error {
	for id, e := range f.entries {
		if e.Actor() == entry.Actor() && !e.MatchedAt.Valid {
			delete(f.entries, id)
		}
	}
	f.entries[entry.ID] = entry
	return nil
}

func (f *fakeQueueRepo) Leave(ctx context.Context, actor identity.Ref) error {
	for id, e := range f.entries {
		if e.Actor() == actor && !e.MatchedAt.Valid {
			delete(f.entries, id)
		}
	}
	return nil
}

func (f *fakeQueueRepo) GetUnmatchedByActor(ctx context.Context, actor identity.Ref) (*QueueEntry, error) {
	for _, e := range f.entries {
		if e.Actor() == actor && !e.MatchedAt.Valid {
			return e, nil
		}
	}
	return nil, nil
}

func (f *fakeQueueRepo) ListUnmatched(ctx context.Context, limit int) ([]*QueueEntry, error) {
	var out []*QueueEntry
	for _, e := range f.entries {
		if !e.MatchedAt.Valid {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].EnteredAt.Equal(out[j].EnteredAt) {
			return out[i].EnteredAt.Before(out[j].EnteredAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeQueueRepo) CountUnmatched(ctx context.Context) (int, error) {
	list, _ := f.ListUnmatched(ctx, len(f.entries)+1)
	return len(list), nil
}

func (f *fakeQueueRepo) CountUnmatchedBefore(ctx context.Context, t time.Time) (int, error) {
	count := 0
	for _, e := range f.entries {
		if !e.MatchedAt.Valid && e.EnteredAt.Before(t) {
			count++
		}
	}
	return count, nil
}

func (f *fakeQueueRepo) ClaimPair(ctx context.Context, a, b uuid.UUID, create func(ctx context.Context, tx *sqlx.Tx) error) (bool, error) {
	if f.failClaims > 0 {
		f.failClaims--
		return false, nil
	}
	ea, okA := f.entries[a]
	eb, okB := f.entries[b]
	if !okA || !okB || ea.MatchedAt.Valid || eb.MatchedAt.Valid {
		return false, nil
	}
	if err := create(ctx, nil); err != nil {
		return false, err
	}
	delete(f.entries, a)
	delete(f.entries, b)
	return true, nil
}

type fakeSessionRepo struct {
	sessions map[uuid.UUID]*session.ChatSession
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[uuid.UUID]*session.ChatSession)}
}

func (f *fakeSessionRepo) Create(ctx context.Context, s *session.ChatSession) error {
	f.sessions[s.ID] = s
	return nil
}

func (f *fakeSessionRepo) CreateTx(ctx context.Context, tx *sqlx.Tx, s *session.ChatSession) error {
	f.sessions[s.ID] = s
	return nil
}

func (f *fakeSessionRepo) GetByID(ctx context.Context, id uuid.UUID) (*session.ChatSession, error) {
	return f.sessions[id], nil
}

func (f *fakeSessionRepo) GetActiveByActor(ctx context.Context, actor identity.Ref) (*session.ChatSession, error) {
	for _, s := range f.sessions {
		if s.Status == session.StatusActive && s.HasParticipant(actor) {
			return s, nil
		}
	}
	return nil, nil
}

func (f *fakeSessionRepo) Terminate(ctx context.Context, id uuid.UUID, to session.Status, endedBy *identity.Ref, reason string, now time.Time) (bool, error) {
	s, ok := f.sessions[id]
	if !ok || s.Status != session.StatusActive {
		return false, nil
	}
	s.Status = to
	return true, nil
}

func (f *fakeSessionRepo) CountActive(ctx context.Context) (int, error) {
	count := 0
	for _, s := range f.sessions {
		if s.Status == session.StatusActive {
			count++
		}
	}
	return count, nil
}

type fakeBus struct {
	queueChanged int
	matchFound   map[string]int
}

func newFakeBus() *fakeBus {
	return &fakeBus{matchFound: make(map[string]int)}
}

func (f *fakeBus) PublishQueueChanged(data []byte) error {
	f.queueChanged++
	return nil
}

func (f *fakeBus) PublishMatchFound(actorID string, data []byte) error {
	f.matchFound[actorID]++
	return nil
}

type fakeBlocks struct {
	pairs map[string]bool
}

func newFakeBlocks() *fakeBlocks {
	return &fakeBlocks{pairs: make(map[string]bool)}
}

func (f *fakeBlocks) block(a, b identity.Ref) {
	f.pairs[a.Key()+"|"+b.Key()] = true
}

func (f *fakeBlocks) IsBlockedEither(ctx context.Context, a, b identity.Ref) (bool, error) {
	return f.pairs[a.Key()+"|"+b.Key()] || f.pairs[b.Key()+"|"+a.Key()], nil
}

type testEnv struct {
	queue    *fakeQueueRepo
	sessions *fakeSessionRepo
	blocks   *fakeBlocks
	bus      *fakeBus
	service  *Service
}

func newTestEnv() *testEnv {
	queue := newFakeQueueRepo()
	sessions := newFakeSessionRepo()
	blocks := newFakeBlocks()
	bus := newFakeBus()
	return &testEnv{
		queue:    queue,
		sessions: sessions,
		blocks:   blocks,
		bus:      bus,
		service:  NewService(queue, sessions, blocks, bus, 30*time.Second),
	}
}

func testActor(id string, name string) identity.Actor {
	return identity.Actor{
		Ref:         identity.Ref{ID: uuid.MustParse(id), IsGuest: true},
		DisplayName: name,
		Tier:        identity.TierFree,
	}
}

var (
	actorLow  = testActor("00000000-0000-0000-0000-000000000001", "Ada")
	actorMid  = testActor("00000000-0000-0000-0000-000000000002", "Ben")
	actorHigh = testActor("00000000-0000-0000-0000-000000000003", "Cleo")
)

func TestJoinReplacesEntryAndKeepsPosition(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	first, err := env.service.Join(ctx, actorLow, JoinRequest{Interests: []string{"music"}})
	if err != nil {
		t.Fatalf("first join: %v", err)
	}
	if first.AlreadyQueued {
		t.Error("first join should not be flagged already_queued")
	}

	second, err := env.service.Join(ctx, actorLow, JoinRequest{Interests: []string{"films"}})
	if err != nil {
		t.Fatalf("second join: %v", err)
	}
	if !second.AlreadyQueued {
		t.Error("second join should be flagged already_queued")
	}

	entry, _ := env.queue.GetUnmatchedByActor(ctx, actorLow.Ref)
	if entry == nil {
		t.Fatal("expected one unmatched entry")
	}
	if len(entry.Interests) != 1 || entry.Interests[0] != "films" {
		t.Errorf("preferences not replaced: %v", entry.Interests)
	}
	if !second.Entry.EnteredAt.Equal(first.Entry.EnteredAt) {
		t.Error("re-join should keep the original queue position")
	}
	if count, _ := env.queue.CountUnmatched(ctx); count != 1 {
		t.Errorf("expected 1 entry after replace, got %d", count)
	}
}

func TestJoinPublishesQueueChanged(t *testing.T) {
	env := newTestEnv()

	env.service.Join(context.Background(), actorLow, JoinRequest{})
	if env.bus.queueChanged != 1 {
		t.Errorf("expected 1 queue.changed publish, got %d", env.bus.queueChanged)
	}
}

func TestJoinDefaultsLookingFor(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	env.service.Join(ctx, actorLow, JoinRequest{})
	entry, _ := env.queue.GetUnmatchedByActor(ctx, actorLow.Ref)
	if entry.LookingFor != ModeBoth {
		t.Errorf("expected default mode %q, got %q", ModeBoth, entry.LookingFor)
	}
}

func TestAttemptPairEarliestFirst(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	env.service.Join(ctx, actorMid, JoinRequest{})
	time.Sleep(time.Millisecond)
	env.service.Join(ctx, actorHigh, JoinRequest{})
	time.Sleep(time.Millisecond)
	env.service.Join(ctx, actorLow, JoinRequest{})

	sess, err := env.service.AttemptPair(ctx, actorLow.Ref)
	if err != nil {
		t.Fatalf("AttemptPair: %v", err)
	}

	if !sess.HasParticipant(actorMid.Ref) {
		t.Error("expected the earliest waiting actor to be chosen")
	}
	if sess.Status != session.StatusActive {
		t.Errorf("session status = %s, want active", sess.Status)
	}

	// Both pair entries are gone; the third actor still waits.
	if count, _ := env.queue.CountUnmatched(ctx); count != 1 {
		t.Errorf("expected 1 remaining entry, got %d", count)
	}

	// Both sides were notified.
	if env.bus.matchFound[actorLow.ID.String()] != 1 || env.bus.matchFound[actorMid.ID.String()] != 1 {
		t.Errorf("match events = %v", env.bus.matchFound)
	}
}

func TestAttemptPairCreatorIsSmallerID(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	env.service.Join(ctx, actorHigh, JoinRequest{})
	env.service.Join(ctx, actorLow, JoinRequest{})

	sess, err := env.service.AttemptPair(ctx, actorHigh.Ref)
	if err != nil {
		t.Fatalf("AttemptPair: %v", err)
	}
	if sess.ActorAID != actorLow.ID {
		t.Errorf("actor_a = %s, want the lexicographically smaller id", sess.ActorAID)
	}
}

func TestAttemptPairSkipsBlocked(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	env.service.Join(ctx, actorMid, JoinRequest{})
	env.service.Join(ctx, actorLow, JoinRequest{})
	env.blocks.block(actorLow.Ref, actorMid.Ref)

	if _, err := env.service.AttemptPair(ctx, actorLow.Ref); !errors.Is(err, ErrNoMatchYet) {
		t.Errorf("expected ErrNoMatchYet with only a blocked candidate, got %v", err)
	}

	// The block works in both directions.
	if _, err := env.service.AttemptPair(ctx, actorMid.Ref); !errors.Is(err, ErrNoMatchYet) {
		t.Errorf("expected ErrNoMatchYet for the other direction, got %v", err)
	}
}

func TestAttemptPairClaimLostLeavesEntries(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	env.service.Join(ctx, actorMid, JoinRequest{})
	env.service.Join(ctx, actorLow, JoinRequest{})
	env.queue.failClaims = 1

	if _, err := env.service.AttemptPair(ctx, actorLow.Ref); !errors.Is(err, ErrNoMatchYet) {
		t.Fatalf("expected ErrNoMatchYet on lost claim, got %v", err)
	}

	if count, _ := env.queue.CountUnmatched(ctx); count != 2 {
		t.Errorf("lost claim must leave both entries unmatched, got %d", count)
	}
	if len(env.sessions.sessions) != 0 {
		t.Error("lost claim must not create a session")
	}

	// The retry succeeds.
	if _, err := env.service.AttemptPair(ctx, actorLow.Ref); err != nil {
		t.Fatalf("retry after lost claim: %v", err)
	}
}

func TestAttemptPairNotQueued(t *testing.T) {
	env := newTestEnv()

	if _, err := env.service.AttemptPair(context.Background(), actorLow.Ref); !errors.Is(err, ErrNoMatchYet) {
		t.Errorf("expected ErrNoMatchYet for unqueued actor, got %v", err)
	}
}

func TestAttemptPairIncompatibleModes(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	env.service.Join(ctx, actorLow, JoinRequest{LookingFor: ModeText})
	env.service.Join(ctx, actorMid, JoinRequest{LookingFor: ModeVideo})

	if _, err := env.service.AttemptPair(ctx, actorLow.Ref); !errors.Is(err, ErrNoMatchYet) {
		t.Errorf("expected ErrNoMatchYet for incompatible modes, got %v", err)
	}
}

func TestTryCreateSessionCreatorContract(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	env.service.Join(ctx, actorLow, JoinRequest{})
	env.service.Join(ctx, actorMid, JoinRequest{})

	// The larger id is not the creator and must wait.
	if _, _, err := env.service.TryCreateSession(ctx, actorMid.Ref); !errors.Is(err, ErrNoMatchYet) {
		t.Fatalf("non-creator should get ErrNoMatchYet, got %v", err)
	}

	sess, created, err := env.service.TryCreateSession(ctx, actorLow.Ref)
	if err != nil {
		t.Fatalf("creator TryCreateSession: %v", err)
	}
	if !created {
		t.Error("creator call should create the session")
	}

	// Once the session exists, either side gets it back idempotently.
	again, created, err := env.service.TryCreateSession(ctx, actorMid.Ref)
	if err != nil {
		t.Fatalf("partner TryCreateSession: %v", err)
	}
	if created || again.ID != sess.ID {
		t.Errorf("expected the existing session back, created=%v", created)
	}
}

func TestTryCreateSessionNotQueued(t *testing.T) {
	env := newTestEnv()

	if _, _, err := env.service.TryCreateSession(context.Background(), actorLow.Ref); !errors.Is(err, ErrNotQueued) {
		t.Errorf("expected ErrNotQueued, got %v", err)
	}
}

func TestSweepPairsWaitingEntries(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	env.service.Join(ctx, actorLow, JoinRequest{})
	env.service.Join(ctx, actorMid, JoinRequest{})
	env.service.Join(ctx, actorHigh, JoinRequest{})

	env.service.Sweep(ctx)

	if count, _ := env.queue.CountUnmatched(ctx); count != 1 {
		t.Errorf("sweep should pair an even number of entries, %d left", count)
	}
	if len(env.sessions.sessions) != 1 {
		t.Errorf("expected 1 session from sweep, got %d", len(env.sessions.sessions))
	}
}

func TestEstimateWait(t *testing.T) {
	env := newTestEnv()

	if got := env.service.estimateWait(0); got != 30 {
		t.Errorf("empty queue estimate = %ds, want 30", got)
	}
	if got := env.service.estimateWait(4); got != 90 {
		t.Errorf("4 ahead estimate = %ds, want 90", got)
	}
	if got := env.service.estimateWait(1000); got != 300 {
		t.Errorf("estimate should cap at 300s, got %d", got)
	}
}
