package session

import (
	"fmt"
	"math"
	"time"

	"backend-carewatch/internal/shared/instant"
)

// transitions is the forward-only session graph. There is no path back
// to requested from any later state.
var transitions = map[Status]map[Status]bool{
	StatusRequested: {StatusAccepted: true, StatusCancelled: true},
	StatusAccepted:  {StatusActive: true, StatusCancelled: true},
	StatusActive:    {StatusCompleted: true, StatusCancelled: true},
	StatusCompleted: {},
	StatusCancelled: {},
}

// InvalidTransitionError reports an attempted transition outside the
// graph. The session is left unchanged.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid session transition %s -> %s", e.From, e.To)
}

// ValidateTransition checks the graph. A transition to the current state
// is an idempotent no-op and passes.
func ValidateTransition(from, to Status) error {
	if from == to {
		return nil
	}
	if allowed, ok := transitions[from]; ok && allowed[to] {
		return nil
	}
	return &InvalidTransitionError{From: from, To: to}
}

// SearchDuration is the elapsed wall-clock time since the session was
// requested. createdAt may arrive as epoch millis, an ISO string, or a
// native time value; all three normalize to the same instant.
func SearchDuration(createdAt any, now time.Time) (time.Duration, error) {
	created, err := instant.Parse(createdAt)
	if err != nil {
		return 0, err
	}
	if created.IsZero() || now.Before(created) {
		return 0, nil
	}
	return now.Sub(created), nil
}

// AcceptedDuration is the time between the request and the accept
// transition's effective timestamp.
func AcceptedDuration(createdAt, acceptedAt time.Time) time.Duration {
	if createdAt.IsZero() || acceptedAt.IsZero() || acceptedAt.Before(createdAt) {
		return 0
	}
	return acceptedAt.Sub(createdAt)
}

// ExpectedHours is the declared engagement length: the slot-hour sum when
// discrete slots exist, otherwise the end minus start range. Full
// precision is retained; flooring happens only at display time.
func ExpectedHours(slots []TimeSlot, start, end time.Time) float64 {
	if len(slots) > 0 {
		total := 0.0
		for _, slot := range slots {
			total += slot.DurationHours
		}
		return total
	}
	if start.IsZero() || end.IsZero() || end.Before(start) {
		return 0
	}
	return end.Sub(start).Hours()
}

// DisplayHours floors expected hours to a whole number for rendering.
func DisplayHours(hours float64) int {
	return int(math.Floor(hours))
}
