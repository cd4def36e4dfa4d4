package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"backend-carewatch/internal/db"
	"backend-carewatch/internal/shared/instant"
	"backend-carewatch/internal/syncer"

	"github.com/jackc/pgx/v5"
)

// Store owns the sessions table. It doubles as the sync layer's direct
// store adapter for the sessions collection.
type Store struct {
	db db.Querier
}

func NewStore(querier db.Querier) *Store {
	return &Store{db: querier}
}

func (st *Store) Collection() string {
	return "sessions"
}

const sessionColumns = `id, parent_id, COALESCE(sitter_id,''), child_id, status,
		start_time, end_time, COALESCE(time_slots,'[]'),
		COALESCE(search_scope,''), COALESCE(max_distance_km,0),
		COALESCE(address,''), COALESCE(lat,0), COALESCE(lng,0), COALESCE(geofence_radius_m,0),
		gps_enabled, cry_enabled, monitoring_enabled,
		COALESCE(hourly_rate,0), COALESCE(total_amount,0), COALESCE(notes,''), COALESCE(cancellation_reason,''),
		accepted_at, created_at, updated_at`

func scanSession(row pgx.Row) (Session, error) {
	var s Session
	var slotsJSON []byte
	var startTime, endTime, acceptedAt *time.Time
	var createdAt, updatedAt time.Time

	err := row.Scan(&s.ID, &s.ParentID, &s.SitterID, &s.ChildID, &s.Status,
		&startTime, &endTime, &slotsJSON,
		&s.SearchScope, &s.MaxDistanceKm,
		&s.Address, &s.Lat, &s.Lng, &s.GeofenceRadiusM,
		&s.GPSEnabled, &s.CryEnabled, &s.MonitoringEnabled,
		&s.HourlyRate, &s.TotalAmount, &s.Notes, &s.CancellationReason,
		&acceptedAt, &createdAt, &updatedAt)
	if err != nil {
		return Session{}, err
	}

	if len(slotsJSON) > 0 {
		_ = json.Unmarshal(slotsJSON, &s.TimeSlots)
	}
	if startTime != nil {
		s.StartTime = instant.At(*startTime)
	}
	if endTime != nil {
		s.EndTime = instant.At(*endTime)
	}
	if acceptedAt != nil {
		s.AcceptedAt = instant.At(*acceptedAt)
	}
	s.CreatedAt = instant.At(createdAt)
	s.UpdatedAt = instant.At(updatedAt)
	return s, nil
}

func (st *Store) Get(ctx context.Context, id string) (Session, error) {
	row := st.db.QueryRow(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id=$1`, id)
	s, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Session{}, syncer.ErrNotFound
	}
	return s, err
}

// List returns a caller's sessions newest-first. Parents see the sessions
// they own, sitters the ones they are assigned to, admins everything.
func (st *Store) List(ctx context.Context, userID, role string, status Status) ([]Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions`
	var conds []string
	var args []any

	switch role {
	case "parent":
		args = append(args, userID)
		conds = append(conds, fmt.Sprintf("parent_id=$%d", len(args)))
	case "sitter":
		args = append(args, userID)
		conds = append(conds, fmt.Sprintf("sitter_id=$%d", len(args)))
	}
	if status != "" {
		args = append(args, string(status))
		conds = append(conds, fmt.Sprintf("status=$%d", len(args)))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC LIMIT 100"

	rows, err := st.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

func (st *Store) Insert(ctx context.Context, s Session) (Session, error) {
	slotsJSON, err := json.Marshal(s.TimeSlots)
	if err != nil {
		return Session{}, err
	}

	row := st.db.QueryRow(ctx, `
		INSERT INTO sessions (id, parent_id, sitter_id, child_id, status, start_time, end_time, time_slots,
			search_scope, max_distance_km, address, lat, lng, geofence_radius_m,
			gps_enabled, cry_enabled, monitoring_enabled, hourly_rate, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
		RETURNING created_at, updated_at
	`, s.ID, s.ParentID, strOrNil(s.SitterID), s.ChildID, s.Status,
		timeOrNil(s.StartTime.Time), timeOrNil(s.EndTime.Time), slotsJSON,
		s.SearchScope, s.MaxDistanceKm, s.Address, s.Lat, s.Lng, s.GeofenceRadiusM,
		s.GPSEnabled, s.CryEnabled, s.MonitoringEnabled, s.HourlyRate, s.Notes)

	var createdAt, updatedAt time.Time
	if err := row.Scan(&createdAt, &updatedAt); err != nil {
		return Session{}, err
	}
	s.CreatedAt = instant.At(createdAt)
	s.UpdatedAt = instant.At(updatedAt)
	return s, nil
}

// updatableColumns maps partial-update field names to columns. Keys
// absent from an update are left untouched, never nulled.
var updatableColumns = []struct {
	key    string
	column string
	isTime bool
}{
	{"status", "status", false},
	{"sitter_id", "sitter_id", false},
	{"start_time", "start_time", true},
	{"end_time", "end_time", true},
	{"accepted_at", "accepted_at", true},
	{"address", "address", false},
	{"lat", "lat", false},
	{"lng", "lng", false},
	{"geofence_radius_m", "geofence_radius_m", false},
	{"gps_enabled", "gps_enabled", false},
	{"cry_enabled", "cry_enabled", false},
	{"monitoring_enabled", "monitoring_enabled", false},
	{"hourly_rate", "hourly_rate", false},
	{"total_amount", "total_amount", false},
	{"notes", "notes", false},
	{"cancellation_reason", "cancellation_reason", false},
}

// Fetch implements the sync adapter read.
func (st *Store) Fetch(ctx context.Context, id string) (map[string]any, error) {
	s, err := st.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return toMap(s)
}

// Update implements the sync adapter partial write.
func (st *Store) Update(ctx context.Context, id string, fields map[string]any) (map[string]any, error) {
	set := []string{"updated_at = now()"}
	args := []any{id}

	for _, col := range updatableColumns {
		v, ok := fields[col.key]
		if !ok {
			continue
		}
		if col.isTime {
			t, err := instant.Parse(v)
			if err != nil {
				return nil, err
			}
			v = timeOrNil(t)
		}
		args = append(args, v)
		set = append(set, fmt.Sprintf("%s = $%d", col.column, len(args)))
	}

	query := "UPDATE sessions SET " + strings.Join(set, ", ") + " WHERE id = $1"
	tag, err := st.db.Exec(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, syncer.ErrNotFound
	}
	return st.Fetch(ctx, id)
}

func toMap(s Session) (map[string]any, error) {
	buf, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	var fields map[string]any
	if err := json.Unmarshal(buf, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

// FromFields rebuilds a session from a sync-layer field map, tolerating
// timestamps in any of the boundary representations.
func FromFields(fields map[string]any) Session {
	buf, err := json.Marshal(fields)
	if err != nil {
		return Session{}
	}
	var s Session
	_ = json.Unmarshal(buf, &s)
	return s
}

func strOrNil(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func timeOrNil(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
