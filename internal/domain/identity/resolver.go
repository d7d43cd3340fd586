package identity

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/duetchat/duet-api/internal/pkg/jwt"
)

const (
	// GuestHeader carries the anonymous caller's guest id.
	GuestHeader = "X-Guest-ID"

	// seenThrottle limits how often a single actor's last-seen timestamp is
	// written back to the store.
	seenThrottle = time.Minute
)

// Resolver resolves a request to a stable actor identity: either a registered
// account (Bearer token) or an anonymous guest (X-Guest-ID header).
type Resolver struct {
	repo     Repository
	jwt      *jwt.Service
	cache    *Cache
	redis    *redis.Client // nil disables the last-seen throttle
	guestTTL time.Duration
}

// NewResolver creates an identity resolver.
func NewResolver(repo Repository, jwtService *jwt.Service, cache *Cache, redisClient *redis.Client, guestTTL time.Duration) *Resolver {
	return &Resolver{
		repo:     repo,
		jwt:      jwtService,
		cache:    cache,
		redis:    redisClient,
		guestTTL: guestTTL,
	}
}

// Resolve resolves the request to an Actor.
//
// A Bearer token resolves to an account; an invalid token or an actively
// banned account fails with ErrUnauthorized (auto-bans with ErrAutoBanned).
// The X-Guest-ID header resolves to a non-expired, non-banned guest; a
// missing, unknown, or expired guest fails with ErrNoIdentity so the caller
// knows to request guest creation.
func (r *Resolver) Resolve(req *http.Request) (Actor, error) {
	ctx := req.Context()

	if authHeader := req.Header.Get("Authorization"); authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			return Actor{}, ErrUnauthorized
		}
		claims, err := r.jwt.ValidateAccessToken(parts[1])
		if err != nil {
			return Actor{}, ErrUnauthorized
		}
		return r.resolveAccount(ctx, claims.AccountID)
	}

	if guestID := req.Header.Get(GuestHeader); guestID != "" {
		id, err := uuid.Parse(guestID)
		if err != nil {
			return Actor{}, ErrNoIdentity
		}
		return r.resolveGuest(ctx, id)
	}

	return Actor{}, ErrNoIdentity
}

func (r *Resolver) resolveAccount(ctx context.Context, id uuid.UUID) (Actor, error) {
	ref := Ref{ID: id, IsGuest: false}
	if actor, ok := r.cache.Get(ref); ok {
		if err := bannedErr(actor); err != nil {
			return Actor{}, err
		}
		r.touchSeen(ref)
		return actor, nil
	}

	account, err := r.repo.GetAccount(ctx, id)
	if err != nil {
		return Actor{}, err
	}
	if account == nil {
		return Actor{}, ErrUnauthorized
	}

	now := time.Now()
	if account.IsBanned && !account.BanActive(now) {
		// Temporary ban has expired; clear it lazily.
		if err := r.repo.ClearAccountBan(ctx, id); err != nil {
			log.Warn().Err(err).Str("account_id", id.String()).Msg("Failed to clear expired ban")
		}
	}

	actor := account.Actor(now)
	r.cache.Put(actor)
	if err := bannedErr(actor); err != nil {
		return Actor{}, err
	}

	r.touchSeen(ref)
	return actor, nil
}

func (r *Resolver) resolveGuest(ctx context.Context, id uuid.UUID) (Actor, error) {
	ref := Ref{ID: id, IsGuest: true}
	if actor, ok := r.cache.Get(ref); ok {
		if err := bannedErr(actor); err != nil {
			return Actor{}, err
		}
		r.touchSeen(ref)
		return actor, nil
	}

	guest, err := r.repo.GetGuest(ctx, id)
	if err != nil {
		return Actor{}, err
	}
	if guest == nil || guest.Expired(time.Now()) {
		return Actor{}, ErrNoIdentity
	}

	actor := guest.Actor()
	r.cache.Put(actor)
	if err := bannedErr(actor); err != nil {
		return Actor{}, err
	}

	r.touchSeen(ref)
	return actor, nil
}

// CreateGuest creates a fresh anonymous identity with a generated display
// name and a 24-hour expiry.
func (r *Resolver) CreateGuest(ctx context.Context) (*Guest, error) {
	now := time.Now()
	guest := &Guest{
		ID:          uuid.New(),
		DisplayName: GenerateDisplayName(),
		ExpiresAt:   now.Add(r.guestTTL),
		CreatedAt:   now,
		LastSeenAt:  now,
	}
	if err := r.repo.CreateGuest(ctx, guest); err != nil {
		return nil, err
	}
	return guest, nil
}

// InvalidateActor drops a cached actor. The report engine calls this when an
// auto-ban fires so the next resolve sees the ban.
func (r *Resolver) InvalidateActor(ref Ref) {
	r.cache.Invalidate(ref)
}

// touchSeen updates the actor's last-seen timestamp asynchronously, throttled
// through Redis so hot actors do not hammer the store.
func (r *Resolver) touchSeen(ref Ref) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		if r.redis != nil {
			ok, err := r.redis.SetNX(ctx, "seen:"+ref.Key(), 1, seenThrottle).Result()
			if err == nil && !ok {
				return // touched recently
			}
		}

		if err := r.repo.TouchLastSeen(ctx, ref, time.Now()); err != nil {
			log.Debug().Err(err).Str("actor", ref.Key()).Msg("Last-seen touch failed")
		}
	}()
}

func bannedErr(actor Actor) error {
	if !actor.IsBanned {
		return nil
	}
	if actor.BanReason == BanReasonReports {
		return ErrAutoBanned
	}
	return ErrUnauthorized
}
