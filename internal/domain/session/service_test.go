package session

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/duetchat/duet-api/internal/domain/identity"
)

type fakeRepo struct {
	sessions       map[uuid.UUID]*ChatSession
	terminateCalls int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{sessions: make(map[uuid.UUID]*ChatSession)}
}

func (f *fakeRepo) Create(ctx context.Context, s *ChatSession) error {
	f.sessions[s.ID] = s
	return nil
}

func (f *fakeRepo) CreateTx(ctx context.Context, tx *sqlx.Tx, s *ChatSession) error {
	f.sessions[s.ID] = s
	return nil
}

func (f *fakeRepo) GetByID(ctx context.Context, id uuid.UUID) (*ChatSession, error) {
	return f.sessions[id], nil
}

func (f *fakeRepo) GetActiveByActor(ctx context.Context, actor identity.Ref) (*ChatSession, error) {
	for _, s := range f.sessions {
		if s.Status == StatusActive && s.HasParticipant(actor) {
			return s, nil
		}
	}
	return nil, nil
}

func (f *fakeRepo) Terminate(ctx context.Context, id uuid.UUID, to Status, endedBy *identity.Ref, reason string, now time.Time) (bool, error) {
	f.terminateCalls++
	s, ok := f.sessions[id]
	if !ok || s.Status != StatusActive {
		return false, nil
	}
	s.Status = to
	s.EndedAt = sql.NullTime{Time: now, Valid: true}
	s.EndReason = sql.NullString{String: reason, Valid: true}
	if endedBy != nil {
		s.EndedByID = uuid.NullUUID{UUID: endedBy.ID, Valid: true}
		s.EndedByGuest = sql.NullBool{Bool: endedBy.IsGuest, Valid: true}
	}
	return true, nil
}

func (f *fakeRepo) CountActive(ctx context.Context) (int, error) {
	count := 0
	for _, s := range f.sessions {
		if s.Status == StatusActive {
			count++
		}
	}
	return count, nil
}

type fakeMessenger struct {
	appended []string
}

func (f *fakeMessenger) AppendSystem(ctx context.Context, sessionID uuid.UUID, content string) error {
	f.appended = append(f.appended, content)
	return nil
}

var (
	alice = identity.Ref{ID: uuid.MustParse("00000000-0000-0000-0000-00000000000a"), IsGuest: true}
	bob   = identity.Ref{ID: uuid.MustParse("00000000-0000-0000-0000-00000000000b"), IsGuest: false}
	eve   = identity.Ref{ID: uuid.MustParse("00000000-0000-0000-0000-00000000000e"), IsGuest: true}
)

func activeSession() *ChatSession {
	return &ChatSession{
		ID:          uuid.New(),
		ActorAID:    alice.ID,
		ActorAGuest: alice.IsGuest,
		ActorAName:  "Alice",
		ActorBID:    bob.ID,
		ActorBGuest: bob.IsGuest,
		ActorBName:  "Bob",
		Status:      StatusActive,
		StartedAt:   time.Now(),
	}
}

func newTestService(repo *fakeRepo, messenger *fakeMessenger) *Service {
	svc := NewService(repo)
	if messenger != nil {
		svc.SetMessenger(messenger)
	}
	return svc
}

func TestGetParticipantOnly(t *testing.T) {
	repo := newFakeRepo()
	sess := activeSession()
	repo.sessions[sess.ID] = sess
	svc := newTestService(repo, nil)
	ctx := context.Background()

	if _, err := svc.Get(ctx, alice, sess.ID); err != nil {
		t.Errorf("participant Get: %v", err)
	}
	if _, err := svc.Get(ctx, eve, sess.ID); !errors.Is(err, ErrNotParticipant) {
		t.Errorf("outsider Get = %v, want ErrNotParticipant", err)
	}
	if _, err := svc.Get(ctx, alice, uuid.New()); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("missing Get = %v, want ErrSessionNotFound", err)
	}
}

func TestEndAppendsSystemMessageOnce(t *testing.T) {
	repo := newFakeRepo()
	messenger := &fakeMessenger{}
	sess := activeSession()
	repo.sessions[sess.ID] = sess
	svc := newTestService(repo, messenger)
	ctx := context.Background()

	ended, err := svc.End(ctx, alice, sess.ID, "")
	if err != nil {
		t.Fatalf("End: %v", err)
	}
	if ended.Status != StatusEnded {
		t.Errorf("status = %s, want ended", ended.Status)
	}
	if ended.EndReason.String != EndReasonUserLeft {
		t.Errorf("reason = %q, want %q", ended.EndReason.String, EndReasonUserLeft)
	}
	if ended.EndedByID.UUID != alice.ID {
		t.Errorf("ended_by = %s, want %s", ended.EndedByID.UUID, alice.ID)
	}
	if len(messenger.appended) != 1 {
		t.Errorf("system messages = %d, want 1", len(messenger.appended))
	}
}

func TestEndIdempotent(t *testing.T) {
	repo := newFakeRepo()
	messenger := &fakeMessenger{}
	sess := activeSession()
	repo.sessions[sess.ID] = sess
	svc := newTestService(repo, messenger)
	ctx := context.Background()

	first, err := svc.End(ctx, alice, sess.ID, EndReasonSkip)
	if err != nil {
		t.Fatalf("first End: %v", err)
	}
	firstEndedAt := first.EndedAt
	firstReason := first.EndReason

	second, err := svc.End(ctx, bob, sess.ID, "")
	if err != nil {
		t.Fatalf("second End: %v", err)
	}

	if second.EndedAt != firstEndedAt || second.EndReason != firstReason {
		t.Error("second End must not rewrite the terminal record")
	}
	if repo.terminateCalls != 1 {
		t.Errorf("terminate calls = %d, want 1", repo.terminateCalls)
	}
	if len(messenger.appended) != 1 {
		t.Errorf("system messages = %d, want exactly 1", len(messenger.appended))
	}
}

func TestMarkReportedIsSilent(t *testing.T) {
	repo := newFakeRepo()
	messenger := &fakeMessenger{}
	sess := activeSession()
	repo.sessions[sess.ID] = sess
	svc := newTestService(repo, messenger)

	if err := svc.MarkReported(context.Background(), sess.ID); err != nil {
		t.Fatalf("MarkReported: %v", err)
	}
	if sess.Status != StatusReported {
		t.Errorf("status = %s, want reported", sess.Status)
	}
	if len(messenger.appended) != 0 {
		t.Errorf("reported transition must not message participants, got %v", messenger.appended)
	}
}

func TestMarkBannedNotifiesPartner(t *testing.T) {
	repo := newFakeRepo()
	messenger := &fakeMessenger{}
	sess := activeSession()
	repo.sessions[sess.ID] = sess
	svc := newTestService(repo, messenger)

	if err := svc.MarkBanned(context.Background(), sess.ID); err != nil {
		t.Fatalf("MarkBanned: %v", err)
	}
	if sess.Status != StatusBanned {
		t.Errorf("status = %s, want banned", sess.Status)
	}
	if len(messenger.appended) != 1 {
		t.Fatalf("system messages = %d, want 1", len(messenger.appended))
	}
}

func TestMarkBannedOnEndedSessionNoop(t *testing.T) {
	repo := newFakeRepo()
	messenger := &fakeMessenger{}
	sess := activeSession()
	sess.Status = StatusEnded
	repo.sessions[sess.ID] = sess
	svc := newTestService(repo, messenger)

	if err := svc.MarkBanned(context.Background(), sess.ID); err != nil {
		t.Fatalf("MarkBanned: %v", err)
	}
	if sess.Status != StatusEnded {
		t.Errorf("status = %s, want ended unchanged", sess.Status)
	}
	if len(messenger.appended) != 0 {
		t.Error("no-op transition must not append a message")
	}
}

func TestPartnerName(t *testing.T) {
	sess := activeSession()
	if got := sess.PartnerName(alice); got != "Bob" {
		t.Errorf("PartnerName(alice) = %q, want Bob", got)
	}
	if got := sess.PartnerName(bob); got != "Alice" {
		t.Errorf("PartnerName(bob) = %q, want Alice", got)
	}
}
