package session

import (
	"time"

	"github.com/duetchat/duet-api/internal/domain/identity"
)

// EndRequest represents a session end request
type EndRequest struct {
	Reason string `json:"reason" validate:"omitempty,end_reason"`
}

// PartnerInfo describes the other participant from the viewer's side
type PartnerInfo struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	IsGuest     bool   `json:"is_guest"`
}

// SessionResponse represents a session in API responses
type SessionResponse struct {
	ID              string      `json:"id"`
	Status          Status      `json:"status"`
	Partner         PartnerInfo `json:"partner"`
	SharedInterests []string    `json:"shared_interests"`
	MatchScore      float64     `json:"match_score"`
	StartedAt       time.Time   `json:"started_at"`
	EndedAt         *time.Time  `json:"ended_at,omitempty"`
	EndReason       string      `json:"end_reason,omitempty"`
}

// SessionResponseFromEntity converts entity to response DTO for a viewer
func SessionResponseFromEntity(s *ChatSession, viewer identity.Ref) *SessionResponse {
	partner := s.Partner(viewer)
	resp := &SessionResponse{
		ID:     s.ID.String(),
		Status: s.Status,
		Partner: PartnerInfo{
			ID:          partner.ID.String(),
			DisplayName: s.PartnerName(viewer),
			IsGuest:     partner.IsGuest,
		},
		SharedInterests: s.SharedInterests,
		MatchScore:      s.MatchScore,
		StartedAt:       s.StartedAt,
	}
	if s.EndedAt.Valid {
		t := s.EndedAt.Time
		resp.EndedAt = &t
	}
	if s.EndReason.Valid {
		resp.EndReason = s.EndReason.String
	}
	return resp
}
