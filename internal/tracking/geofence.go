package tracking

import (
	"sync"

	"backend-carewatch/internal/shared/geo"
)

type fenceState struct {
	center    geo.Point
	hasCenter bool
	outside   bool
}

// Geofence keeps per-session breach state so that leaving the safe zone
// fires exactly once per excursion. Re-entering the zone re-arms it.
type Geofence struct {
	mu             sync.Mutex
	defaultRadiusM float64
	states         map[string]*fenceState
}

func NewGeofence(defaultRadiusM float64) *Geofence {
	return &Geofence{
		defaultRadiusM: defaultRadiusM,
		states:         make(map[string]*fenceState),
	}
}

// Observe feeds one fix through the fence. When the session carries no
// configured center, the first observed fix becomes it. The returned
// breached flag is set only on the inside-to-outside transition.
func (g *Geofence) Observe(sessionID string, center *geo.Point, radiusM float64, p geo.Point) (distanceM float64, breached bool) {
	if radiusM <= 0 {
		radiusM = g.defaultRadiusM
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	state, ok := g.states[sessionID]
	if !ok {
		state = &fenceState{}
		g.states[sessionID] = state
	}

	if center != nil {
		state.center = *center
		state.hasCenter = true
	} else if !state.hasCenter {
		state.center = p
		state.hasCenter = true
	}

	distanceM = geo.DistanceM(state.center, p)
	outside := distanceM > radiusM
	breached = outside && !state.outside
	state.outside = outside
	return distanceM, breached
}

// Reset drops a session's fence state, for when monitoring ends.
func (g *Geofence) Reset(sessionID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.states, sessionID)
}
