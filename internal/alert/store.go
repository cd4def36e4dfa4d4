package alert

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

// Store owns the alerts table and doubles as the sync layer's direct
// store adapter for the alerts collection.
type Store struct {
	db db.Querier
}

func NewStore(querier db.Querier) *Store {
	return &Store{db: querier}
}

func (st *Store) Collection() string {
	return "alerts"
}

const alertColumns = `id, session_id, COALESCE(child_id,''), type, severity, status,
		COALESCE(title,''), COALESCE(message,''), COALESCE(confidence,0),
		viewed_at, acknowledged_at, resolved_at, created_at, updated_at`

func scanAlert(row pgx.Row) (Alert, error) {
	var a Alert
	var viewedAt, acknowledgedAt, resolvedAt *time.Time
	var createdAt, updatedAt time.Time

	err := row.Scan(&a.ID, &a.SessionID, &a.ChildID, &a.Type, &a.Severity, &a.Status,
		&a.Title, &a.Message, &a.Confidence,
		&viewedAt, &acknowledgedAt, &resolvedAt, &createdAt, &updatedAt)
	if err != nil {
		return Alert{}, err
	}

	if viewedAt != nil {
		a.ViewedAt = instant.At(*viewedAt)
	}
	if acknowledgedAt != nil {
		a.AcknowledgedAt = instant.At(*acknowledgedAt)
	}
	if resolvedAt != nil {
		a.ResolvedAt = instant.At(*resolvedAt)
	}
	a.CreatedAt = instant.At(createdAt)
	a.UpdatedAt = instant.At(updatedAt)
	return a, nil
}

func (st *Store) Get(ctx context.Context, id string) (Alert, error) {
	row := st.db.QueryRow(ctx, `SELECT `+alertColumns+` FROM alerts WHERE id=$1`, id)
	a, err := scanAlert(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Alert{}, syncer.ErrNotFound
	}
	return a, err
}

func (st *Store) Insert(ctx context.Context, a Alert) (Alert, error) {
	row := st.db.QueryRow(ctx, `
		INSERT INTO alerts (id, session_id, child_id, type, severity, status, title, message, confidence)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING created_at, updated_at
	`, a.ID, a.SessionID, a.ChildID, a.Type, a.Severity, a.Status, a.Title, a.Message, a.Confidence)

	var createdAt, updatedAt time.Time
	if err := row.Scan(&createdAt, &updatedAt); err != nil {
		return Alert{}, err
	}
	a.CreatedAt = instant.At(createdAt)
	a.UpdatedAt = instant.At(updatedAt)
	return a, nil
}

// ListForSession returns a session's alerts newest-first.
func (st *Store) ListForSession(ctx context.Context, sessionID string, status Status) ([]Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts WHERE session_id=$1`
	args := []any{sessionID}
	if status != "" {
		args = append(args, string(status))
		query += fmt.Sprintf(" AND status=$%d", len(args))
	}
	query += " ORDER BY created_at DESC LIMIT 100"
	return st.list(ctx, query, args...)
}

// ListForUser returns the alerts of every session a user participates in,
// newest-first.
func (st *Store) ListForUser(ctx context.Context, userID string) ([]Alert, error) {
	query := `SELECT a.id, a.session_id, COALESCE(a.child_id,''), a.type, a.severity, a.status,
		COALESCE(a.title,''), COALESCE(a.message,''), COALESCE(a.confidence,0),
		a.viewed_at, a.acknowledged_at, a.resolved_at, a.created_at, a.updated_at
		FROM alerts a
		JOIN sessions s ON s.id = a.session_id
		WHERE s.parent_id=$1 OR s.sitter_id=$1
		ORDER BY a.created_at DESC LIMIT 100`
	return st.list(ctx, query, userID)
}

func (st *Store) list(ctx context.Context, query string, args ...any) ([]Alert, error) {
	rows, err := st.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var alerts []Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

var updatableColumns = []struct {
	key    string
	column string
	isTime bool
}{
	{"status", "status", false},
	{"title", "title", false},
	{"message", "message", false},
	{"viewed_at", "viewed_at", true},
	{"acknowledged_at", "acknowledged_at", true},
	{"resolved_at", "resolved_at", true},
}

// Fetch implements the sync adapter read.
func (st *Store) Fetch(ctx context.Context, id string) (map[string]any, error) {
	a, err := st.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return toMap(a)
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
			v = t
		}
		args = append(args, v)
		set = append(set, fmt.Sprintf("%s = $%d", col.column, len(args)))
	}

	query := "UPDATE alerts SET " + strings.Join(set, ", ") + " WHERE id = $1"
	tag, err := st.db.Exec(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, syncer.ErrNotFound
	}
	return st.Fetch(ctx, id)
}

func toMap(a Alert) (map[string]any, error) {
	buf, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	var fields map[string]any
	if err := json.Unmarshal(buf, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

// FromFields rebuilds an alert from a sync-layer field map.
func FromFields(fields map[string]any) Alert {
	buf, err := json.Marshal(fields)
	if err != nil {
		return Alert{}
	}
	var a Alert
	_ = json.Unmarshal(buf, &a)
	return a
}
