package matchmaking

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/duetchat/duet-api/internal/domain/identity"
	"github.com/duetchat/duet-api/internal/domain/session"
	"github.com/duetchat/duet-api/internal/metrics"
)

// candidateLimit bounds how many unmatched entries one pairing attempt scans.
const candidateLimit = 100

// AttemptPair tries to pair the given actor with the best compatible waiting
// partner and claim both entries. Returns ErrNoMatchYet when the actor is not
// queued, no candidate passes the filters, or a concurrent worker won the
// claim. Workers call this on every queue event; losing a claim is normal.
func (s *Service) AttemptPair(ctx context.Context, actor identity.Ref) (*session.ChatSession, error) {
	me, err := s.repo.GetUnmatchedByActor(ctx, actor)
	if err != nil {
		metrics.PairingAttemptsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	if me == nil {
		metrics.PairingAttemptsTotal.WithLabelValues("no_match").Inc()
		return nil, ErrNoMatchYet
	}

	partner, err := s.findPartner(ctx, me)
	if err != nil {
		metrics.PairingAttemptsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	if partner == nil {
		metrics.PairingAttemptsTotal.WithLabelValues("no_match").Inc()
		return nil, ErrNoMatchYet
	}

	return s.claim(ctx, me, partner)
}

// TryCreateSession backs the client-facing pairing endpoint. It is idempotent
// per pair: if a session already exists for the caller it is returned as-is.
// Only the lexicographically smaller actor of a candidate pair creates; the
// other side polls or waits for its match event.
func (s *Service) TryCreateSession(ctx context.Context, actor identity.Ref) (*session.ChatSession, bool, error) {
	if existing, err := s.sessions.GetActiveByActor(ctx, actor); err != nil {
		return nil, false, err
	} else if existing != nil {
		return existing, false, nil
	}

	me, err := s.repo.GetUnmatchedByActor(ctx, actor)
	if err != nil {
		return nil, false, err
	}
	if me == nil {
		return nil, false, ErrNotQueued
	}

	partner, err := s.findPartner(ctx, me)
	if err != nil {
		return nil, false, err
	}
	if partner == nil {
		return nil, false, ErrNoMatchYet
	}

	if partner.Actor().Less(me.Actor()) {
		// The partner is the designated creator. Claiming here would race the
		// partner's own attempt for no benefit; report no-match and let the
		// caller wait for the match event.
		return nil, false, ErrNoMatchYet
	}

	sess, err := s.claim(ctx, me, partner)
	if err != nil {
		return nil, false, err
	}
	return sess, true, nil
}

// findPartner scans unmatched entries in arrival order and returns the first
// compatible, non-blocked candidate. Arrival order plus the id tie-break in
// the query makes the choice deterministic across workers.
func (s *Service) findPartner(ctx context.Context, me *QueueEntry) (*QueueEntry, error) {
	candidates, err := s.repo.ListUnmatched(ctx, candidateLimit)
	if err != nil {
		return nil, err
	}

	for _, candidate := range candidates {
		if !Compatible(me, candidate) {
			continue
		}

		blocked, err := s.blocks.IsBlockedEither(ctx, me.Actor(), candidate.Actor())
		if err != nil {
			return nil, err
		}
		if blocked {
			continue
		}

		return candidate, nil
	}
	return nil, nil
}

// claim runs the exactly-once pairing transaction and publishes match events
// to both actors on success.
func (s *Service) claim(ctx context.Context, me, partner *QueueEntry) (*session.ChatSession, error) {
	a, b := me, partner
	if b.Actor().Less(a.Actor()) {
		a, b = b, a
	}

	score, shared := MatchScore(a, b)
	sess := &session.ChatSession{
		ID:              uuid.New(),
		ActorAID:        a.ActorID,
		ActorAGuest:     a.IsGuest,
		ActorAName:      a.DisplayName,
		ActorBID:        b.ActorID,
		ActorBGuest:     b.IsGuest,
		ActorBName:      b.DisplayName,
		Status:          session.StatusActive,
		SharedInterests: shared,
		MatchScore:      score,
		StartedAt:       time.Now(),
	}

	claimed, err := s.repo.ClaimPair(ctx, a.ID, b.ID, func(ctx context.Context, tx *sqlx.Tx) error {
		return s.sessions.CreateTx(ctx, tx, sess)
	})
	if err != nil {
		metrics.PairingAttemptsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	if !claimed {
		metrics.PairingAttemptsTotal.WithLabelValues("claim_lost").Inc()
		return nil, ErrNoMatchYet
	}

	metrics.PairingAttemptsTotal.WithLabelValues("paired").Inc()
	metrics.ActiveSessions.Inc()
	s.refreshQueueDepth(ctx)

	log.Info().
		Str("session_id", sess.ID.String()).
		Str("actor_a", a.Actor().Key()).
		Str("actor_b", b.Actor().Key()).
		Float64("score", score).
		Msg("Pair matched")

	s.publishMatchFound(sess, a.Actor(), b.DisplayName)
	s.publishMatchFound(sess, b.Actor(), a.DisplayName)

	return sess, nil
}

func (s *Service) publishMatchFound(sess *session.ChatSession, to identity.Ref, partnerName string) {
	data, err := json.Marshal(MatchFoundEvent{
		Type:            "match_found",
		SessionID:       sess.ID,
		PartnerName:     partnerName,
		SharedInterests: sess.SharedInterests,
		MatchScore:      sess.MatchScore,
	})
	if err != nil {
		return
	}
	if err := s.bus.PublishMatchFound(to.ID.String(), data); err != nil {
		log.Warn().Err(err).Str("actor", to.Key()).Msg("Match found publish failed")
	}
}

// Sweep runs one pairing pass over the whole queue. It is the safety net
// behind event-driven pairing: events can be lost, and entries whose only
// compatible partner arrived before them are never retried by events alone.
func (s *Service) Sweep(ctx context.Context) {
	entries, err := s.repo.ListUnmatched(ctx, candidateLimit)
	if err != nil {
		log.Warn().Err(err).Msg("Queue sweep listing failed")
		return
	}

	for _, entry := range entries {
		if _, err := s.AttemptPair(ctx, entry.Actor()); err != nil && err != ErrNoMatchYet {
			log.Warn().Err(err).Str("actor", entry.Actor().Key()).Msg("Sweep pairing attempt failed")
		}
	}

	s.refreshQueueDepth(ctx)
}
