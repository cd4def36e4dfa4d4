package session

import (
	"context"
	"errors"
	"time"

	"backend-carewatch/internal/stream"
	"backend-carewatch/internal/syncer"

	"github.com/google/uuid"
)

var (
	ErrParentOnly     = errors.New("only parents can create sessions")
	ErrParentMismatch = errors.New("cannot create a session for another parent")
	ErrReasonRequired = errors.New("cancellation reason is required")
	ErrBadScope       = errors.New("search_scope must be invite, nearby, city or nationwide")
	ErrBadDistance    = errors.New("max_distance_km is only valid for nearby scope")
)

type Service struct {
	store *Store
	sync  *syncer.Syncer
	hub   *stream.Hub
}

func NewService(store *Store, sync *syncer.Syncer, hub *stream.Hub) *Service {
	return &Service{store: store, sync: sync, hub: hub}
}

func validScope(scope string) bool {
	switch scope {
	case ScopeInvite, ScopeNearby, ScopeCity, ScopeNationwide:
		return true
	}
	return false
}

func (s *Service) Create(ctx context.Context, input Session, callerID, role string) (Session, error) {
	if role != "parent" && role != "admin" {
		return Session{}, ErrParentOnly
	}
	if role == "parent" && input.ParentID != callerID {
		return Session{}, ErrParentMismatch
	}

	if input.SearchScope == "" {
		if input.SitterID != "" {
			input.SearchScope = ScopeInvite
		} else {
			input.SearchScope = ScopeNearby
		}
	}
	if !validScope(input.SearchScope) {
		return Session{}, ErrBadScope
	}
	if input.MaxDistanceKm != 0 && input.SearchScope != ScopeNearby {
		return Session{}, ErrBadDistance
	}

	input.ID = uuid.NewString()
	input.Status = StatusRequested
	input.CancellationReason = ""
	return s.store.Insert(ctx, input)
}

// Get resolves a session through the sync chain, so a backend outage
// still yields the last known value.
func (s *Service) Get(ctx context.Context, id string) (Session, syncer.Result, error) {
	res, err := s.sync.Fetch(ctx, "sessions", id, false)
	if err != nil {
		return Session{}, res, err
	}
	return FromFields(res.Fields), res, nil
}

func (s *Service) List(ctx context.Context, userID, role string, status Status) ([]Session, error) {
	return s.store.List(ctx, userID, role, status)
}

// UpdateFields applies a partial update through the sync chain.
func (s *Service) UpdateFields(ctx context.Context, id string, fields map[string]any) (Session, syncer.Result, error) {
	res, err := s.sync.Update(ctx, "sessions", id, fields)
	if err != nil {
		return Session{}, res, err
	}
	updated := FromFields(res.Fields)
	s.broadcast(updated)
	return updated, res, nil
}

// Accept moves requested -> accepted and records the accepting sitter.
func (s *Service) Accept(ctx context.Context, id, sitterID string) (Session, syncer.Result, error) {
	return s.transition(ctx, id, StatusAccepted, map[string]any{
		"sitter_id":   sitterID,
		"accepted_at": time.Now().UnixMilli(),
	})
}

// Activate moves accepted -> active; monitoring begins and the session is
// tracked for background resync.
func (s *Service) Activate(ctx context.Context, id string) (Session, syncer.Result, error) {
	sess, res, err := s.transition(ctx, id, StatusActive, nil)
	if err == nil {
		s.sync.Track("sessions", id)
	}
	return sess, res, err
}

// Complete moves active -> completed and stamps the actual end time.
func (s *Service) Complete(ctx context.Context, id string) (Session, syncer.Result, error) {
	sess, res, err := s.transition(ctx, id, StatusCompleted, map[string]any{
		"end_time": time.Now().UnixMilli(),
	})
	if err == nil {
		s.sync.Untrack("sessions", id)
	}
	return sess, res, err
}

// Cancel moves any pre-terminal state to cancelled. The reason is
// mandatory and persisted with the session.
func (s *Service) Cancel(ctx context.Context, id, reason string) (Session, syncer.Result, error) {
	if reason == "" {
		return Session{}, syncer.Result{}, ErrReasonRequired
	}
	sess, res, err := s.transition(ctx, id, StatusCancelled, map[string]any{
		"cancellation_reason": reason,
	})
	if err == nil {
		s.sync.Untrack("sessions", id)
	}
	return sess, res, err
}

func (s *Service) transition(ctx context.Context, id string, to Status, extra map[string]any) (Session, syncer.Result, error) {
	current, res, err := s.Get(ctx, id)
	if err != nil {
		return Session{}, res, err
	}
	if current.Status == to {
		return current, res, nil
	}
	if err := ValidateTransition(current.Status, to); err != nil {
		return Session{}, syncer.Result{}, err
	}

	fields := map[string]any{
		"status":     string(to),
		"updated_at": time.Now().UnixMilli(),
	}
	for k, v := range extra {
		fields[k] = v
	}

	res, err = s.sync.Update(ctx, "sessions", id, fields)
	if err != nil {
		return Session{}, res, err
	}
	updated := FromFields(res.Fields)
	s.broadcast(updated)
	return updated, res, nil
}

// Durations reports the derived timing values for a session.
type Durations struct {
	SearchSeconds        float64 `json:"search_seconds"`
	AcceptedSeconds      float64 `json:"accepted_seconds"`
	ExpectedHours        float64 `json:"expected_hours"`
	ExpectedHoursDisplay int     `json:"expected_hours_display"`
}

func (s *Service) Durations(sess Session, now time.Time) Durations {
	search, _ := SearchDuration(sess.CreatedAt.Time, now)
	hours := ExpectedHours(sess.TimeSlots, sess.StartTime.Time, sess.EndTime.Time)
	return Durations{
		SearchSeconds:        search.Seconds(),
		AcceptedSeconds:      AcceptedDuration(sess.CreatedAt.Time, sess.AcceptedAt.Time).Seconds(),
		ExpectedHours:        hours,
		ExpectedHoursDisplay: DisplayHours(hours),
	}
}

func (s *Service) broadcast(sess Session) {
	if s.hub != nil && sess.ID != "" {
		s.hub.Broadcast(stream.KindSession, sess.ID, sess)
	}
}
