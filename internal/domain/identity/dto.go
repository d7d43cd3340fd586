package identity

import "time"

// GuestResponse is returned on guest creation and lookup
type GuestResponse struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// GuestResponseFromEntity converts entity to response DTO
func GuestResponseFromEntity(g *Guest) *GuestResponse {
	return &GuestResponse{
		ID:          g.ID.String(),
		DisplayName: g.DisplayName,
		ExpiresAt:   g.ExpiresAt,
	}
}

// ActorResponse describes the resolved caller identity
type ActorResponse struct {
	ID          string `json:"id"`
	IsGuest     bool   `json:"is_guest"`
	DisplayName string `json:"display_name"`
	Tier        string `json:"tier"`
}

// ActorResponseFromEntity converts entity to response DTO
func ActorResponseFromEntity(a Actor) *ActorResponse {
	return &ActorResponse{
		ID:          a.ID.String(),
		IsGuest:     a.IsGuest,
		DisplayName: a.DisplayName,
		Tier:        string(a.Tier),
	}
}
