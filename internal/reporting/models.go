package reporting

import (
	"time"

	"healthline-api/internal/audit"
)

// Page sizes offered by the admin log view.
var AllowedPageSizes = []int{10, 20, 50}

const (
	DefaultPageSize = 20

	// SummaryRowLimit caps how many records a summary aggregates.
	SummaryRowLimit = 2000
	// SummaryDefaultLookback applies when no From is given.
	SummaryDefaultLookback = 30 * 24 * time.Hour
)

// ListRequest filters the emergency-call log.
// Nil times and empty strings mean no filter.
type ListRequest struct {
	ToNumber string
	Source   string
	From     *time.Time
	To       *time.Time

	Page     int
	PageSize int
}

type ListResponse struct {
	Rows       []audit.EmergencyCallRecord `json:"rows"`
	Total      int                         `json:"total"`
	Page       int                         `json:"page"`
	PageSize   int                         `json:"page_size"`
	TotalPages int                         `json:"total_pages"`
}

// SummaryRequest bounds the statistics window.
// From defaults to now minus 30 days; To defaults to now. One day is added to To.
type SummaryRequest struct {
	From *time.Time
	To   *time.Time
}

type Summary struct {
	Total         int `json:"total"`
	CallsToday    int `json:"calls_today"`
	CallsLast7    int `json:"calls_last_7_days"`
	WithCoords    int `json:"with_coords"`
	UniqueNumbers int `json:"unique_numbers"`

	// Days has one entry per UTC day from the first row (or the lookback start) through today.
	Days []DayCount `json:"days"`
	// Sources is sorted by count, descending.
	Sources []SourceCount `json:"sources"`

	GeneratedAt time.Time `json:"generated_at"`
}

type DayCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type SourceCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}
