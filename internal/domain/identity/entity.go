package identity

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Tier represents account tier (matches account_tier enum)
type Tier string

const (
	TierFree    Tier = "free"
	TierStudent Tier = "student"
	TierPremium Tier = "premium"
	TierAdmin   Tier = "admin"
)

// BanReasonReports marks bans applied automatically by the report engine.
const BanReasonReports = "report_threshold"

// Ref identifies an actor. Guest and account ids are drawn from different id
// spaces, so the id alone is ambiguous; every reference carries IsGuest.
type Ref struct {
	ID      uuid.UUID
	IsGuest bool
}

// Key returns a stable string form usable as a map key.
func (r Ref) Key() string {
	if r.IsGuest {
		return "g:" + r.ID.String()
	}
	return "a:" + r.ID.String()
}

// Less orders refs by lexicographic id comparison. Used by the pairing
// engine to designate the session creator deterministically.
func (r Ref) Less(other Ref) bool {
	return r.ID.String() < other.ID.String()
}

// Actor is the resolved identity every operation runs as.
type Actor struct {
	Ref
	DisplayName string
	Tier        Tier
	IsBanned    bool
	BanReason   string
}

// Guest represents an ephemeral anonymous identity (matches guests table)
type Guest struct {
	ID          uuid.UUID      `db:"id"`
	DisplayName string         `db:"display_name"`
	ReportCount int            `db:"report_count"`
	IsBanned    bool           `db:"is_banned"`
	BanReason   sql.NullString `db:"ban_reason"`
	ExpiresAt   time.Time      `db:"expires_at"`
	CreatedAt   time.Time      `db:"created_at"`
	LastSeenAt  time.Time      `db:"last_seen_at"`
}

// Expired returns true if the guest identity is past its expiry
func (g *Guest) Expired(now time.Time) bool {
	return now.After(g.ExpiresAt)
}

// Actor converts the guest row to a resolved Actor
func (g *Guest) Actor() Actor {
	return Actor{
		Ref:         Ref{ID: g.ID, IsGuest: true},
		DisplayName: g.DisplayName,
		Tier:        TierFree,
		IsBanned:    g.IsBanned,
		BanReason:   g.BanReason.String,
	}
}

// Account represents a durable registered identity (matches accounts table)
type Account struct {
	ID            uuid.UUID      `db:"id"`
	Email         string         `db:"email"`
	DisplayName   string         `db:"display_name"`
	Tier          Tier           `db:"tier"`
	EmailVerified bool           `db:"email_verified"`
	IsBanned      bool           `db:"is_banned"`
	BanReason     sql.NullString `db:"ban_reason"`
	BanExpiresAt  sql.NullTime   `db:"ban_expires_at"`
	CreatedAt     time.Time      `db:"created_at"`
	LastSeenAt    time.Time      `db:"last_seen_at"`
}

// BanActive returns true if the account ban is in force. Temporary bans carry
// an expiry; an expired ban resolves to non-banned.
func (a *Account) BanActive(now time.Time) bool {
	if !a.IsBanned {
		return false
	}
	if a.BanExpiresAt.Valid && now.After(a.BanExpiresAt.Time) {
		return false
	}
	return true
}

// Actor converts the account row to a resolved Actor
func (a *Account) Actor(now time.Time) Actor {
	return Actor{
		Ref:         Ref{ID: a.ID, IsGuest: false},
		DisplayName: a.DisplayName,
		Tier:        a.Tier,
		IsBanned:    a.BanActive(now),
		BanReason:   a.BanReason.String,
	}
}
