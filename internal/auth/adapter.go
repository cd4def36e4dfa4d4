package auth

import (
	"context"
	"errors"
	"time"

	"backend-carewatch/internal/db"
	"backend-carewatch/internal/syncer"

	"github.com/jackc/pgx/v5"
)

// UserAdapter exposes user profiles to the sync layer as the users
// collection. Only the mutable profile fields are writable.
type UserAdapter struct {
	db db.Querier
}

func NewUserAdapter(querier db.Querier) *UserAdapter {
	return &UserAdapter{db: querier}
}

func (a *UserAdapter) Collection() string {
	return "users"
}

func (a *UserAdapter) Fetch(ctx context.Context, id string) (map[string]any, error) {
	row := a.db.QueryRow(ctx, `
		SELECT id, email, full_name, role, COALESCE(phone,''), created_at, updated_at
		FROM users WHERE id = $1
	`, id)

	var userID, email, fullName, role, phone string
	var createdAt, updatedAt time.Time
	err := row.Scan(&userID, &email, &fullName, &role, &phone, &createdAt, &updatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, syncer.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"id":         userID,
		"email":      email,
		"full_name":  fullName,
		"role":       role,
		"phone":      phone,
		"created_at": createdAt.UnixMilli(),
		"updated_at": updatedAt.UnixMilli(),
	}, nil
}

func (a *UserAdapter) Update(ctx context.Context, id string, fields map[string]any) (map[string]any, error) {
	fullName, hasName := fields["full_name"]
	phone, hasPhone := fields["phone"]
	if !hasName && !hasPhone {
		return a.Fetch(ctx, id)
	}

	query := `UPDATE users SET updated_at = now()`
	args := []any{id}
	if hasName {
		args = append(args, fullName)
		query += `, full_name = $2`
	}
	if hasPhone {
		args = append(args, phone)
		if hasName {
			query += `, phone = $3`
		} else {
			query += `, phone = $2`
		}
	}
	query += ` WHERE id = $1`

	tag, err := a.db.Exec(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, syncer.ErrNotFound
	}
	return a.Fetch(ctx, id)
}
