package report

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/duetchat/duet-api/internal/domain/identity"
)

// Repository defines report data access interface
type Repository interface {
	Create(ctx context.Context, report *Report) error

	// LatestPendingBy returns the most recent pending report by reporter
	// against reported, nil if none. Drives the cooldown check.
	LatestPendingBy(ctx context.Context, reporter, reported identity.Ref) (*Report, error)

	CountPending(ctx context.Context, reported identity.Ref) (int, error)

	// ResolvePending marks every pending report against the actor resolved.
	// Called when the report threshold fires a ban.
	ResolvePending(ctx context.Context, reported identity.Ref, now time.Time) error
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates new report repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, report *Report) error {
	query := `
		INSERT INTO reports (
			id, reporter_id, reporter_guest, reported_id, reported_guest,
			session_id, category, reason, status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.ExecContext(ctx, query,
		report.ID, report.ReporterID, report.ReporterGuest, report.ReportedID, report.ReportedGuest,
		report.SessionID, report.Category, report.Reason, report.Status, report.CreatedAt,
	)
	return err
}

func (r *repository) LatestPendingBy(ctx context.Context, reporter, reported identity.Ref) (*Report, error) {
	query := `
		SELECT * FROM reports
		WHERE reporter_id = $1 AND reporter_guest = $2
		  AND reported_id = $3 AND reported_guest = $4
		  AND status = 'pending'
		ORDER BY created_at DESC
		LIMIT 1
	`
	var report Report
	err := r.db.GetContext(ctx, &report, query, reporter.ID, reporter.IsGuest, reported.ID, reported.IsGuest)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &report, nil
}

func (r *repository) CountPending(ctx context.Context, reported identity.Ref) (int, error) {
	query := `
		SELECT COUNT(*) FROM reports
		WHERE reported_id = $1 AND reported_guest = $2 AND status = 'pending'
	`
	var count int
	err := r.db.GetContext(ctx, &count, query, reported.ID, reported.IsGuest)
	return count, err
}

func (r *repository) ResolvePending(ctx context.Context, reported identity.Ref, now time.Time) error {
	query := `
		UPDATE reports
		SET status = 'resolved', resolved_at = $3
		WHERE reported_id = $1 AND reported_guest = $2 AND status = 'pending'
	`
	_, err := r.db.ExecContext(ctx, query, reported.ID, reported.IsGuest, now)
	return err
}
