// Package ratelimit provides Redis-backed rate limiting using the INCR + EXPIRE
// fixed window algorithm, for per-actor throttling of message sends and queue
// joins.
package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Rule defines a rate limiting policy: the Redis key prefix, maximum number of
// requests allowed in the window, and the window duration.
type Rule struct {
	Key    string        // Redis key prefix (e.g., "rl:msg:", "rl:join:")
	Limit  int           // max count in the window
	Window time.Duration // time window
}

var (
	// RuleMessage allows 30 messages per minute per actor.
	RuleMessage = Rule{Key: "rl:msg:", Limit: 30, Window: time.Minute}

	// RuleJoin allows 10 queue joins per minute per actor.
	RuleJoin = Rule{Key: "rl:join:", Limit: 10, Window: time.Minute}

	// RuleGuestCreate allows 5 guest creations per minute per IP.
	RuleGuestCreate = Rule{Key: "rl:guest:", Limit: 5, Window: time.Minute}
)

// Limiter performs rate limiting checks against Redis.
type Limiter struct {
	client *redis.Client
}

// NewLimiter creates a Limiter backed by the given Redis client. A nil client
// disables limiting (everything is allowed).
func NewLimiter(client *redis.Client) *Limiter {
	return &Limiter{client: client}
}

// Allow checks whether the given identifier is within the rate limit defined by
// rule. It increments the counter in Redis and sets the expiry on first access.
//
// Returns true if the request is allowed, false if rate limited. On Redis
// errors the method fails open so that a Redis outage does not block
// legitimate traffic.
func (l *Limiter) Allow(ctx context.Context, identifier string, rule Rule) bool {
	if l.client == nil {
		return true
	}

	key := rule.Key + identifier

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Rate limit INCR failed, failing open")
		return true
	}

	// On the first increment, set the expiry to define the window boundary.
	if count == 1 {
		if err := l.client.Expire(ctx, key, rule.Window).Err(); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("Rate limit EXPIRE failed, failing open")
			// The key exists but has no TTL; delete it so it cannot block
			// the identifier forever.
			l.client.Del(ctx, key)
			return true
		}
	}

	return int(count) <= rule.Limit
}
