package api

import "time"

// IngestEventRequest is the request body for submitting an identity event.
type IngestEventRequest struct {
	Identity   string     `json:"identity" example:"Asha" validate:"required"`
	ObservedAt *time.Time `json:"observed_at,omitempty"`
}

// RecordItem is one attendance row in a response, with the work time
// rendered the way the report front end shows it (blank while open).
type RecordItem struct {
	Identity string `json:"identity" example:"Asha" validate:"required"`
	Date     string `json:"date" example:"2024-01-01" validate:"required"`
	CheckIn  string `json:"check_in" example:"09:00:00" validate:"required"`
	CheckOut string `json:"check_out" example:"11:05:00"`
	Status   string `json:"status" example:"CheckedOut" validate:"required"`
	WorkTime string `json:"work_time" example:"2h 05m 00s"`
}

// RecordListResponse wraps paginated record listings.
type RecordListResponse struct {
	Records []RecordItem `json:"records" validate:"required"`
	Total   int          `json:"total" example:"42" validate:"required"`
}

// SummaryResponse wraps a daily summary.
type SummaryResponse struct {
	Date    string       `json:"date" example:"2024-01-01" validate:"required"`
	Records []RecordItem `json:"records" validate:"required"`
}
