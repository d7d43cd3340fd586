package report

import "time"

// FileRequest represents a report filing request
type FileRequest struct {
	ReportedID    string `json:"reported_id" validate:"required,uuid"`
	ReportedGuest bool   `json:"reported_guest"`
	SessionID     string `json:"session_id" validate:"omitempty,uuid"`
	Category      string `json:"category" validate:"required,report_category"`
	Reason        string `json:"reason" validate:"omitempty,max=500"`
}

// ReportResponse represents a filed report in API responses
type ReportResponse struct {
	ID        string    `json:"id"`
	Category  string    `json:"category"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// ReportResponseFromEntity converts entity to response DTO. The response is
// deliberately thin: reporters never learn whether their report fired a ban.
func ReportResponseFromEntity(r *Report) *ReportResponse {
	return &ReportResponse{
		ID:        r.ID.String(),
		Category:  r.Category,
		Status:    StatusPending,
		CreatedAt: r.CreatedAt,
	}
}
