package tracking

import (
	"backend-carewatch/internal/shared/instant"
)

// Sample is one GPS fix reported from the sitter's device during an
// active session.
type Sample struct {
	ID        string  `json:"id"`
	SessionID string  `json:"session_id"`
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	AccuracyM float64 `json:"accuracy_m,omitempty"`

	RecordedAt instant.Time `json:"recorded_at"`
	CreatedAt  instant.Time `json:"created_at"`
}

// RecordRequest carries a fix as sent by a device. Timestamp is accepted
// in any boundary representation and normalized on ingest.
type RecordRequest struct {
	SessionID string  `json:"session_id"`
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	AccuracyM float64 `json:"accuracy_m"`
	Timestamp any     `json:"timestamp,omitempty"`
}

// PathStats summarizes the recorded track of a session.
type PathStats struct {
	SessionID   string  `json:"session_id"`
	SampleCount int     `json:"sample_count"`
	DistanceM   float64 `json:"distance_m"`
}
