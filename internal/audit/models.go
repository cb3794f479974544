package audit

import (
	"encoding/json"
	"time"
)

// EmergencyCallRecord is an immutable, append-only log of one placed outbound call.
//
// Invariants:
// - Records are never updated or deleted.
// - to_number is always set; every other captured field is best-effort and nullable.
// - created_at is server-assigned.
//
// Storage (Postgres): table emergency_calls, see migrations/.
type EmergencyCallRecord struct {
	ID       string `json:"id" db:"id"`
	ToNumber string `json:"to_number" db:"to_number"`

	// CallID is the identifier assigned by the voice provider.
	CallID *string `json:"call_id" db:"call_id"`
	// Source is the free-text origin tag from request metadata.
	Source *string `json:"source" db:"source"`
	// Coords is the geo-location object from request metadata, stored as jsonb.
	Coords json.RawMessage `json:"coords" db:"coords"`

	IP        *string `json:"ip" db:"ip"`
	UserID    *string `json:"user_id" db:"user_id"`
	UserAgent *string `json:"user_agent" db:"user_agent"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// HasCoords reports whether a non-null geo-location was captured.
func (r EmergencyCallRecord) HasCoords() bool {
	return len(r.Coords) > 0 && string(r.Coords) != "null"
}

// ListFilter selects records for the admin log view.
// Empty strings and nil times mean "no filter".
type ListFilter struct {
	// ToNumber and Source match as case-insensitive substrings.
	ToNumber string
	Source   string
	From     *time.Time
	To       *time.Time

	Limit  int
	Offset int
}

// StringPtr returns nil for empty strings.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
