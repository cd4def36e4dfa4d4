package alert

import (
	"context"
	"errors"
	"time"

	"backend-carewatch/internal/stream"
	"backend-carewatch/internal/syncer"

	"github.com/google/uuid"
)

var (
	ErrSessionRequired = errors.New("session_id is required")
	ErrMessageRequired = errors.New("message is required")
)

type Service struct {
	store *Store
	sync  *syncer.Syncer
	hub   *stream.Hub
}

func NewService(store *Store, sync *syncer.Syncer, hub *stream.Hub) *Service {
	return &Service{store: store, sync: sync, hub: hub}
}

// Raise creates a new alert, always in the new state, and pushes it to
// every live watcher of the session.
func (s *Service) Raise(ctx context.Context, a Alert) (Alert, error) {
	if a.SessionID == "" {
		return Alert{}, ErrSessionRequired
	}
	a.ID = uuid.NewString()
	a.Status = StatusNew
	if a.Severity == "" {
		a.Severity = SeverityMedium
	}

	created, err := s.store.Insert(ctx, a)
	if err != nil {
		return Alert{}, err
	}
	if s.hub != nil {
		s.hub.Broadcast(stream.KindAlert, created.SessionID, created)
	}
	return created, nil
}

// RaiseEmergency is the parent-initiated panic path. Emergencies are
// always critical.
func (s *Service) RaiseEmergency(ctx context.Context, sessionID, message string) (Alert, error) {
	if message == "" {
		return Alert{}, ErrMessageRequired
	}
	return s.Raise(ctx, Alert{
		SessionID: sessionID,
		Type:      TypeEmergency,
		Severity:  SeverityCritical,
		Title:     "Emergency",
		Message:   message,
	})
}

func (s *Service) Get(ctx context.Context, id string) (Alert, syncer.Result, error) {
	res, err := s.sync.Fetch(ctx, "alerts", id, false)
	if err != nil {
		return Alert{}, res, err
	}
	return FromFields(res.Fields), res, nil
}

func (s *Service) ListForSession(ctx context.Context, sessionID string, status Status) ([]Alert, error) {
	return s.store.ListForSession(ctx, sessionID, status)
}

func (s *Service) ListForUser(ctx context.Context, userID string) ([]Alert, error) {
	return s.store.ListForUser(ctx, userID)
}

func (s *Service) View(ctx context.Context, id string) (Alert, syncer.Result, error) {
	return s.advance(ctx, id, StatusViewed, "viewed_at")
}

func (s *Service) Acknowledge(ctx context.Context, id string) (Alert, syncer.Result, error) {
	return s.advance(ctx, id, StatusAcknowledged, "acknowledged_at")
}

// Resolve closes an alert from any state.
func (s *Service) Resolve(ctx context.Context, id string) (Alert, syncer.Result, error) {
	return s.advance(ctx, id, StatusResolved, "resolved_at")
}

func (s *Service) advance(ctx context.Context, id string, to Status, stampKey string) (Alert, syncer.Result, error) {
	current, res, err := s.Get(ctx, id)
	if err != nil {
		return Alert{}, res, err
	}
	if current.Status == to || current.Status == StatusResolved {
		return current, res, nil
	}
	if err := ValidateTransition(current.Status, to); err != nil {
		return Alert{}, syncer.Result{}, err
	}

	res, err = s.sync.Update(ctx, "alerts", id, map[string]any{
		"status": string(to),
		stampKey: time.Now().UnixMilli(),
	})
	if err != nil {
		return Alert{}, res, err
	}
	updated := FromFields(res.Fields)
	if s.hub != nil {
		s.hub.Broadcast(stream.KindAlert, updated.SessionID, updated)
	}
	return updated, res, nil
}
