package report

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/duetchat/duet-api/internal/domain/identity"
	"github.com/duetchat/duet-api/internal/domain/session"
	"github.com/duetchat/duet-api/internal/metrics"
)

// SessionModerator is the slice of the session service the escalation path
// needs: finding the reported actor's live session and closing it.
type SessionModerator interface {
	Active(ctx context.Context, actor identity.Ref) (*session.ChatSession, error)
	Get(ctx context.Context, actor identity.Ref, id uuid.UUID) (*session.ChatSession, error)
	MarkReported(ctx context.Context, id uuid.UUID) error
	MarkBanned(ctx context.Context, id uuid.UUID) error
}

// CacheInvalidator evicts a banned actor from the resolver cache so the ban
// takes effect on their next request, not after cache expiry.
type CacheInvalidator interface {
	InvalidateActor(ref identity.Ref)
}

// Service handles report filing and threshold escalation
type Service struct {
	repo      Repository
	identRepo identity.Repository
	sessions  SessionModerator
	cache     CacheInvalidator

	threshold   int
	cooldown    time.Duration
	banDuration time.Duration
}

// NewService creates report service
func NewService(repo Repository, identRepo identity.Repository, sessions SessionModerator, cache CacheInvalidator, threshold int, cooldown, banDuration time.Duration) *Service {
	if threshold <= 0 {
		threshold = 3
	}
	if cooldown <= 0 {
		cooldown = 10 * time.Minute
	}
	if banDuration <= 0 {
		banDuration = 24 * time.Hour
	}
	return &Service{
		repo:        repo,
		identRepo:   identRepo,
		sessions:    sessions,
		cache:       cache,
		threshold:   threshold,
		cooldown:    cooldown,
		banDuration: banDuration,
	}
}

// File records a report and runs the escalation check. The session named in
// the request, if any, is moved to reported; at the pending-report threshold
// the reported actor is banned and their live session closed.
func (s *Service) File(ctx context.Context, reporter identity.Ref, reported identity.Ref, sessionID *uuid.UUID, category, reason string) (*Report, error) {
	if reporter == reported {
		return nil, ErrSelfReport
	}

	now := time.Now()

	latest, err := s.repo.LatestPendingBy(ctx, reporter, reported)
	if err != nil {
		return nil, err
	}
	if latest != nil {
		if elapsed := now.Sub(latest.CreatedAt); elapsed < s.cooldown {
			metrics.ReportsTotal.WithLabelValues("cooldown").Inc()
			return nil, &CooldownError{Remaining: s.cooldown - elapsed}
		}
	}

	rep := &Report{
		ID:            uuid.New(),
		ReporterID:    reporter.ID,
		ReporterGuest: reporter.IsGuest,
		ReportedID:    reported.ID,
		ReportedGuest: reported.IsGuest,
		Category:      category,
		Status:        StatusPending,
		CreatedAt:     now,
	}
	if reason != "" {
		rep.Reason = sql.NullString{String: reason, Valid: true}
	}

	if sessionID != nil {
		// The reporter must be in the session they name; a report against a
		// stranger's session is rejected upstream by this check.
		sess, err := s.sessions.Get(ctx, reporter, *sessionID)
		if err != nil {
			return nil, err
		}
		if !sess.HasParticipant(reported) {
			return nil, session.ErrNotParticipant
		}
		rep.SessionID = uuid.NullUUID{UUID: sess.ID, Valid: true}
	}

	if err := s.repo.Create(ctx, rep); err != nil {
		return nil, err
	}

	if reported.IsGuest {
		if err := s.identRepo.IncrementGuestReports(ctx, reported.ID); err != nil {
			log.Warn().Err(err).Msg("Guest report counter update failed")
		}
	}

	if rep.SessionID.Valid {
		if err := s.sessions.MarkReported(ctx, rep.SessionID.UUID); err != nil {
			log.Warn().Err(err).Str("session_id", rep.SessionID.UUID.String()).Msg("Session reported transition failed")
		}
	}

	banned, err := s.escalate(ctx, reported, now)
	if err != nil {
		// The report itself is recorded; escalation failures are logged, not
		// surfaced to the reporter.
		log.Error().Err(err).Str("reported", reported.Key()).Msg("Report escalation failed")
	}

	if banned {
		metrics.ReportsTotal.WithLabelValues("auto_ban").Inc()
	} else {
		metrics.ReportsTotal.WithLabelValues("recorded").Inc()
	}

	return rep, nil
}

// escalate bans the reported actor once the pending count reaches the
// threshold. The conditional ban write makes concurrent escalations ban
// exactly once; only the winning call resolves reports and closes sessions.
func (s *Service) escalate(ctx context.Context, reported identity.Ref, now time.Time) (bool, error) {
	count, err := s.repo.CountPending(ctx, reported)
	if err != nil {
		return false, err
	}
	if count < s.threshold {
		return false, nil
	}

	var fired bool
	if reported.IsGuest {
		fired, err = s.identRepo.BanGuest(ctx, reported.ID, identity.BanReasonReports)
	} else {
		fired, err = s.identRepo.BanAccount(ctx, reported.ID, identity.BanReasonReports, now.Add(s.banDuration))
	}
	if err != nil {
		return false, err
	}
	if !fired {
		return false, nil
	}

	log.Info().
		Str("actor", reported.Key()).
		Int("pending_reports", count).
		Msg("Report threshold reached, actor banned")

	s.cache.InvalidateActor(reported)

	if err := s.repo.ResolvePending(ctx, reported, now); err != nil {
		log.Warn().Err(err).Msg("Pending report resolution failed")
	}

	active, err := s.sessions.Active(ctx, reported)
	if err != nil {
		log.Warn().Err(err).Msg("Banned actor session lookup failed")
		return true, nil
	}
	if active != nil {
		if err := s.sessions.MarkBanned(ctx, active.ID); err != nil {
			log.Warn().Err(err).Str("session_id", active.ID.String()).Msg("Session banned transition failed")
		}
	}

	return true, nil
}
