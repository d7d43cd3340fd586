package report

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/duetchat/duet-api/internal/domain/identity"
)

// Status represents report lifecycle state (matches report_status enum)
type Status string

const (
	StatusPending   Status = "pending"
	StatusResolved  Status = "resolved"
	StatusDismissed Status = "dismissed"
)

// Report categories accepted at the API boundary.
const (
	CategoryHarassment = "harassment"
	CategorySpam       = "spam"
	CategoryExplicit   = "explicit"
	CategoryUnderage   = "underage"
	CategoryOther      = "other"
)

// Report represents one abuse report (matches reports table)
type Report struct {
	ID            uuid.UUID      `db:"id"`
	ReporterID    uuid.UUID      `db:"reporter_id"`
	ReporterGuest bool           `db:"reporter_guest"`
	ReportedID    uuid.UUID      `db:"reported_id"`
	ReportedGuest bool           `db:"reported_guest"`
	SessionID     uuid.NullUUID  `db:"session_id"`
	Category      string         `db:"category"`
	Reason        sql.NullString `db:"reason"`
	Status        Status         `db:"status"`
	CreatedAt     time.Time      `db:"created_at"`
	ResolvedAt    sql.NullTime   `db:"resolved_at"`
}

// Reporter returns the reporting actor's reference
func (r *Report) Reporter() identity.Ref {
	return identity.Ref{ID: r.ReporterID, IsGuest: r.ReporterGuest}
}

// Reported returns the reported actor's reference
func (r *Report) Reported() identity.Ref {
	return identity.Ref{ID: r.ReportedID, IsGuest: r.ReportedGuest}
}
