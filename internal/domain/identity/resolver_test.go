package identity

import (
	"context"
	"database/sql"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/duetchat/duet-api/internal/pkg/jwt"
)

type fakeRepo struct {
	guests       map[uuid.UUID]*Guest
	accounts     map[uuid.UUID]*Account
	accountReads int
	banCleared   bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		guests:   make(map[uuid.UUID]*Guest),
		accounts: make(map[uuid.UUID]*Account),
	}
}

func (f *fakeRepo) CreateGuest(ctx context.Context, guest *Guest) error {
	f.guests[guest.ID] = guest
	return nil
}
func (f *fakeRepo) GetGuest(ctx context.Context, id uuid.UUID) (*Guest, error) {
	return f.guests[id], nil
}
func (f *fakeRepo) GetAccount(ctx context.Context, id uuid.UUID) (*Account, error) {
	f.accountReads++
	return f.accounts[id], nil
}
func (f *fakeRepo) ClearAccountBan(ctx context.Context, id uuid.UUID) error {
	f.banCleared = true
	return nil
}
func (f *fakeRepo) TouchLastSeen(ctx context.Context, ref Ref, at time.Time) error { return nil }
func (f *fakeRepo) BanGuest(ctx context.Context, id uuid.UUID, reason string) (bool, error) {
	g, ok := f.guests[id]
	if !ok || g.IsBanned {
		return false, nil
	}
	g.IsBanned = true
	g.BanReason = sql.NullString{String: reason, Valid: true}
	return true, nil
}
func (f *fakeRepo) BanAccount(ctx context.Context, id uuid.UUID, reason string, until time.Time) (bool, error) {
	a, ok := f.accounts[id]
	if !ok || a.IsBanned {
		return false, nil
	}
	a.IsBanned = true
	a.BanReason = sql.NullString{String: reason, Valid: true}
	a.BanExpiresAt = sql.NullTime{Time: until, Valid: true}
	return true, nil
}
func (f *fakeRepo) IncrementGuestReports(ctx context.Context, id uuid.UUID) error {
	if g, ok := f.guests[id]; ok {
		g.ReportCount++
	}
	return nil
}

func newTestResolver(repo Repository, maxAge time.Duration) *Resolver {
	return NewResolver(repo, jwt.NewService("test-secret", time.Hour), NewCache(maxAge), nil, 24*time.Hour)
}

func TestResolveGuest(t *testing.T) {
	repo := newFakeRepo()
	resolver := newTestResolver(repo, 30*time.Second)

	guest, err := resolver.CreateGuest(context.Background())
	if err != nil {
		t.Fatalf("CreateGuest: %v", err)
	}

	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set(GuestHeader, guest.ID.String())

	actor, err := resolver.Resolve(req)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !actor.IsGuest || actor.ID != guest.ID {
		t.Errorf("resolved wrong actor: %+v", actor)
	}
	if actor.DisplayName == "" {
		t.Error("expected generated display name")
	}
}

func TestResolveNoIdentity(t *testing.T) {
	resolver := newTestResolver(newFakeRepo(), 30*time.Second)

	req := httptest.NewRequest("GET", "/me", nil)
	if _, err := resolver.Resolve(req); err != ErrNoIdentity {
		t.Errorf("expected ErrNoIdentity, got %v", err)
	}
}

func TestResolveExpiredGuest(t *testing.T) {
	repo := newFakeRepo()
	id := uuid.New()
	repo.guests[id] = &Guest{
		ID:          id,
		DisplayName: "StaleBadger42",
		ExpiresAt:   time.Now().Add(-time.Minute),
	}
	resolver := newTestResolver(repo, 30*time.Second)

	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set(GuestHeader, id.String())

	if _, err := resolver.Resolve(req); err != ErrNoIdentity {
		t.Errorf("expected ErrNoIdentity for expired guest, got %v", err)
	}
}

func TestResolveAccountUsesCache(t *testing.T) {
	repo := newFakeRepo()
	id := uuid.New()
	repo.accounts[id] = &Account{ID: id, Email: "a@b.c", DisplayName: "Casey", Tier: TierFree}
	resolver := newTestResolver(repo, time.Minute)

	jwtService := jwt.NewService("test-secret", time.Hour)
	token, err := jwtService.GenerateAccessToken(id, string(TierFree))
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest("GET", "/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		if _, err := resolver.Resolve(req); err != nil {
			t.Fatalf("Resolve #%d: %v", i, err)
		}
	}

	if repo.accountReads != 1 {
		t.Errorf("expected 1 repo read (cache hits after), got %d", repo.accountReads)
	}
}

func TestResolveAccountCacheMaxAge(t *testing.T) {
	repo := newFakeRepo()
	id := uuid.New()
	repo.accounts[id] = &Account{ID: id, Email: "a@b.c", DisplayName: "Casey", Tier: TierFree}
	resolver := newTestResolver(repo, time.Millisecond)

	jwtService := jwt.NewService("test-secret", time.Hour)
	token, _ := jwtService.GenerateAccessToken(id, string(TierFree))

	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	resolver.Resolve(req)
	time.Sleep(5 * time.Millisecond)
	resolver.Resolve(req)

	if repo.accountReads != 2 {
		t.Errorf("expected refetch after cache max-age, got %d reads", repo.accountReads)
	}
}

func TestResolveExpiredBanClears(t *testing.T) {
	repo := newFakeRepo()
	id := uuid.New()
	repo.accounts[id] = &Account{
		ID:           id,
		Email:        "a@b.c",
		DisplayName:  "Casey",
		Tier:         TierFree,
		IsBanned:     true,
		BanReason:    sql.NullString{String: BanReasonReports, Valid: true},
		BanExpiresAt: sql.NullTime{Time: time.Now().Add(-time.Hour), Valid: true},
	}
	resolver := newTestResolver(repo, 30*time.Second)

	jwtService := jwt.NewService("test-secret", time.Hour)
	token, _ := jwtService.GenerateAccessToken(id, string(TierFree))

	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	actor, err := resolver.Resolve(req)
	if err != nil {
		t.Fatalf("expected expired ban to resolve, got %v", err)
	}
	if actor.IsBanned {
		t.Error("actor should not be banned after ban expiry")
	}
	if !repo.banCleared {
		t.Error("expected lazy ban clear")
	}
}

func TestResolveAutoBannedGuest(t *testing.T) {
	repo := newFakeRepo()
	id := uuid.New()
	repo.guests[id] = &Guest{
		ID:          id,
		DisplayName: "RowdyOtter7",
		IsBanned:    true,
		BanReason:   sql.NullString{String: BanReasonReports, Valid: true},
		ExpiresAt:   time.Now().Add(time.Hour),
	}
	resolver := newTestResolver(repo, 30*time.Second)

	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set(GuestHeader, id.String())

	if _, err := resolver.Resolve(req); err != ErrAutoBanned {
		t.Errorf("expected ErrAutoBanned, got %v", err)
	}
}
