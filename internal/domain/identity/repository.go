package identity

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Repository defines identity data access interface
type Repository interface {
	// Guest operations
	CreateGuest(ctx context.Context, guest *Guest) error
	GetGuest(ctx context.Context, id uuid.UUID) (*Guest, error)

	// Account operations
	GetAccount(ctx context.Context, id uuid.UUID) (*Account, error)
	ClearAccountBan(ctx context.Context, id uuid.UUID) error

	// Shared
	TouchLastSeen(ctx context.Context, ref Ref, at time.Time) error

	// Ban operations (used by the report engine). Both are conditional
	// check-and-set writes: they return true only for the call that actually
	// flipped the ban flag, so concurrent escalations ban exactly once.
	BanGuest(ctx context.Context, id uuid.UUID, reason string) (bool, error)
	BanAccount(ctx context.Context, id uuid.UUID, reason string, until time.Time) (bool, error)
	IncrementGuestReports(ctx context.Context, id uuid.UUID) error
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates new identity repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

// Guest operations

func (r *repository) CreateGuest(ctx context.Context, guest *Guest) error {
	query := `
		INSERT INTO guests (id, display_name, report_count, is_banned, expires_at, created_at, last_seen_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		guest.ID,
		guest.DisplayName,
		guest.ReportCount,
		guest.IsBanned,
		guest.ExpiresAt,
		guest.CreatedAt,
		guest.LastSeenAt,
	)
	return err
}

func (r *repository) GetGuest(ctx context.Context, id uuid.UUID) (*Guest, error) {
	query := `SELECT * FROM guests WHERE id = $1`
	var guest Guest
	err := r.db.GetContext(ctx, &guest, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &guest, nil
}

// Account operations

func (r *repository) GetAccount(ctx context.Context, id uuid.UUID) (*Account, error) {
	query := `SELECT * FROM accounts WHERE id = $1`
	var account Account
	err := r.db.GetContext(ctx, &account, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

func (r *repository) ClearAccountBan(ctx context.Context, id uuid.UUID) error {
	// Only clears bans whose expiry has passed; permanent bans stay.
	query := `
		UPDATE accounts
		SET is_banned = false, ban_reason = NULL, ban_expires_at = NULL
		WHERE id = $1 AND is_banned = true
		  AND ban_expires_at IS NOT NULL AND ban_expires_at <= NOW()
	`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

func (r *repository) TouchLastSeen(ctx context.Context, ref Ref, at time.Time) error {
	var query string
	if ref.IsGuest {
		query = `UPDATE guests SET last_seen_at = $2 WHERE id = $1`
	} else {
		query = `UPDATE accounts SET last_seen_at = $2 WHERE id = $1`
	}
	_, err := r.db.ExecContext(ctx, query, ref.ID, at)
	return err
}

// Ban operations

func (r *repository) BanGuest(ctx context.Context, id uuid.UUID, reason string) (bool, error) {
	query := `
		UPDATE guests
		SET is_banned = true, ban_reason = $2
		WHERE id = $1 AND is_banned = false
	`
	result, err := r.db.ExecContext(ctx, query, id, reason)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

func (r *repository) BanAccount(ctx context.Context, id uuid.UUID, reason string, until time.Time) (bool, error) {
	query := `
		UPDATE accounts
		SET is_banned = true, ban_reason = $2, ban_expires_at = $3
		WHERE id = $1 AND is_banned = false
	`
	result, err := r.db.ExecContext(ctx, query, id, reason, until)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

func (r *repository) IncrementGuestReports(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE guests SET report_count = report_count + 1 WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}
