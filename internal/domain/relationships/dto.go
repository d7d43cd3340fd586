package relationships

import "time"

// BlockRequest represents a block creation request
type BlockRequest struct {
	TargetID    string `json:"target_id" validate:"required,uuid"`
	TargetGuest bool   `json:"target_guest"`
}

// BlockResponse represents a block in API responses
type BlockResponse struct {
	ID          string    `json:"id"`
	BlockedID   string    `json:"blocked_id"`
	BlockedType string    `json:"blocked_type"`
	CreatedAt   time.Time `json:"created_at"`
}

// BlockResponseFromEntity converts entity to response DTO
func BlockResponseFromEntity(block *BlockRelation) *BlockResponse {
	blockedType := "account"
	if block.BlockedGuest {
		blockedType = "guest"
	}
	return &BlockResponse{
		ID:          block.ID.String(),
		BlockedID:   block.BlockedID.String(),
		BlockedType: blockedType,
		CreatedAt:   block.CreatedAt,
	}
}
