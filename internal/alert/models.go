package alert

import (
	"fmt"

	"backend-carewatch/internal/shared/instant"
)

type Type string

const (
	TypeCryDetection    Type = "cry_detection"
	TypeEmergency       Type = "emergency"
	TypeGPSAnomaly      Type = "gps_anomaly"
	TypeSessionReminder Type = "session_reminder"
)

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

type Status string

const (
	StatusNew          Status = "new"
	StatusViewed       Status = "viewed"
	StatusAcknowledged Status = "acknowledged"
	StatusResolved     Status = "resolved"
)

// statusRank orders the lifecycle. An alert only ever moves to a higher
// rank; it never goes back to a less-handled state.
var statusRank = map[Status]int{
	StatusNew:          0,
	StatusViewed:       1,
	StatusAcknowledged: 2,
	StatusResolved:     3,
}

type InvalidAlertTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidAlertTransitionError) Error() string {
	return fmt.Sprintf("cannot move alert from %s back to %s", e.From, e.To)
}

// ValidateTransition allows any forward move, including skipping straight
// to resolved. Same-status moves are a no-op for the caller, and resolved
// is terminal: anything asked of a resolved alert succeeds without moving it.
func ValidateTransition(from, to Status) error {
	fromRank, ok := statusRank[from]
	if !ok {
		return fmt.Errorf("unknown alert status %q", from)
	}
	toRank, ok := statusRank[to]
	if !ok {
		return fmt.Errorf("unknown alert status %q", to)
	}
	if from == StatusResolved {
		return nil
	}
	if toRank < fromRank {
		return &InvalidAlertTransitionError{From: from, To: to}
	}
	return nil
}

type Alert struct {
	ID         string   `json:"id"`
	SessionID  string   `json:"session_id"`
	ChildID    string   `json:"child_id,omitempty"`
	Type       Type     `json:"type"`
	Severity   Severity `json:"severity"`
	Status     Status   `json:"status"`
	Title      string   `json:"title,omitempty"`
	Message    string   `json:"message,omitempty"`
	Confidence float64  `json:"confidence,omitempty"`

	ViewedAt       instant.Time `json:"viewed_at,omitempty"`
	AcknowledgedAt instant.Time `json:"acknowledged_at,omitempty"`
	ResolvedAt     instant.Time `json:"resolved_at,omitempty"`
	CreatedAt      instant.Time `json:"created_at"`
	UpdatedAt      instant.Time `json:"updated_at"`
}

type EmergencyRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}
