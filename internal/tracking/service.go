package tracking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"backend-carewatch/internal/alert"
	"backend-carewatch/internal/auth"
	"backend-carewatch/internal/db"
	"backend-carewatch/internal/session"
	"backend-carewatch/internal/shared/geo"
	"backend-carewatch/internal/shared/instant"
	"backend-carewatch/internal/stream"
	"backend-carewatch/internal/syncer"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var (
	ErrSessionNotActive = errors.New("session is not active")
	ErrGPSDisabled      = errors.New("gps tracking is disabled for this session")
	ErrBadCoordinates   = errors.New("lat must be in [-90,90] and lng in [-180,180]")
	ErrNotAssigned      = errors.New("only the assigned sitter can record fixes")
)

// SessionSource resolves the session a fix belongs to.
type SessionSource interface {
	Get(ctx context.Context, id string) (session.Session, syncer.Result, error)
}

// AlertRaiser creates alerts for geofence breaches.
type AlertRaiser interface {
	Raise(ctx context.Context, a alert.Alert) (alert.Alert, error)
}

type Service struct {
	db       db.Querier
	sessions SessionSource
	alerts   AlertRaiser
	fence    *Geofence
	hub      *stream.Hub
}

func NewService(querier db.Querier, sessions SessionSource, alerts AlertRaiser, fence *Geofence, hub *stream.Hub) *Service {
	return &Service{db: querier, sessions: sessions, alerts: alerts, fence: fence, hub: hub}
}

// Record ingests one fix from the identified caller. The session must be
// active with GPS enabled, and only its assigned sitter (or an admin) may
// append to the track. Each fix is broadcast to live watchers and run
// through the geofence.
func (s *Service) Record(ctx context.Context, req RecordRequest, callerID, callerRole string) (Sample, error) {
	sess, _, err := s.sessions.Get(ctx, req.SessionID)
	if err != nil {
		return Sample{}, err
	}
	if callerRole != auth.RoleAdmin && (sess.SitterID == "" || sess.SitterID != callerID) {
		return Sample{}, ErrNotAssigned
	}
	if sess.Status != session.StatusActive {
		return Sample{}, ErrSessionNotActive
	}
	if !sess.GPSEnabled {
		return Sample{}, ErrGPSDisabled
	}
	if req.Lat < -90 || req.Lat > 90 || req.Lng < -180 || req.Lng > 180 {
		return Sample{}, ErrBadCoordinates
	}

	recordedAt, err := instant.Parse(req.Timestamp)
	if err != nil || recordedAt.IsZero() {
		recordedAt = time.Now()
	}

	sample := Sample{
		ID:         uuid.NewString(),
		SessionID:  req.SessionID,
		Lat:        req.Lat,
		Lng:        req.Lng,
		AccuracyM:  req.AccuracyM,
		RecordedAt: instant.At(recordedAt),
	}

	row := s.db.QueryRow(ctx, `
		INSERT INTO gps_tracking (id, session_id, lat, lng, accuracy_m, recorded_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at
	`, sample.ID, sample.SessionID, sample.Lat, sample.Lng, sample.AccuracyM, recordedAt)
	var createdAt time.Time
	if err := row.Scan(&createdAt); err != nil {
		return Sample{}, err
	}
	sample.CreatedAt = instant.At(createdAt)

	if s.hub != nil {
		s.hub.Broadcast(stream.KindLocation, sample.SessionID, sample)
	}

	s.checkFence(ctx, sess, sample)
	return sample, nil
}

func (s *Service) checkFence(ctx context.Context, sess session.Session, sample Sample) {
	if s.fence == nil {
		return
	}
	var center *geo.Point
	if sess.Lat != 0 || sess.Lng != 0 {
		center = &geo.Point{Lat: sess.Lat, Lng: sess.Lng}
	}
	distanceM, breached := s.fence.Observe(sess.ID, center, sess.GeofenceRadiusM, geo.Point{Lat: sample.Lat, Lng: sample.Lng})
	if !breached || s.alerts == nil {
		return
	}
	_, _ = s.alerts.Raise(ctx, alert.Alert{
		SessionID: sess.ID,
		ChildID:   sess.ChildID,
		Type:      alert.TypeGPSAnomaly,
		Severity:  alert.SeverityHigh,
		Title:     "Geofence violation",
		Message:   fmt.Sprintf("sitter left the safe zone: %.0fm from center", distanceM),
	})
}

const sampleColumns = `id, session_id, lat, lng, COALESCE(accuracy_m,0), recorded_at, created_at`

func scanSample(row pgx.Row) (Sample, error) {
	var sm Sample
	var recordedAt, createdAt time.Time
	err := row.Scan(&sm.ID, &sm.SessionID, &sm.Lat, &sm.Lng, &sm.AccuracyM, &recordedAt, &createdAt)
	if err != nil {
		return Sample{}, err
	}
	sm.RecordedAt = instant.At(recordedAt)
	sm.CreatedAt = instant.At(createdAt)
	return sm, nil
}

// History returns a session's samples in chronological order.
func (s *Service) History(ctx context.Context, sessionID string) ([]Sample, error) {
	rows, err := s.db.Query(ctx, `SELECT `+sampleColumns+` FROM gps_tracking
		WHERE session_id=$1 ORDER BY recorded_at ASC LIMIT 500`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []Sample
	for rows.Next() {
		sm, err := scanSample(rows)
		if err != nil {
			return nil, err
		}
		samples = append(samples, sm)
	}
	return samples, rows.Err()
}

// Latest returns the most recent fix of a session.
func (s *Service) Latest(ctx context.Context, sessionID string) (Sample, error) {
	row := s.db.QueryRow(ctx, `SELECT `+sampleColumns+` FROM gps_tracking
		WHERE session_id=$1 ORDER BY recorded_at DESC LIMIT 1`, sessionID)
	sm, err := scanSample(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Sample{}, syncer.ErrNotFound
	}
	return sm, err
}

// Stats reports the total ground distance covered by the recorded track.
func (s *Service) Stats(ctx context.Context, sessionID string) (PathStats, error) {
	samples, err := s.History(ctx, sessionID)
	if err != nil {
		return PathStats{}, err
	}
	points := make([]geo.Point, len(samples))
	for i, sm := range samples {
		points[i] = geo.Point{Lat: sm.Lat, Lng: sm.Lng}
	}
	return PathStats{
		SessionID:   sessionID,
		SampleCount: len(samples),
		DistanceM:   geo.PathLengthM(points),
	}, nil
}
