package child

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"backend-carewatch/internal/db"
	"backend-carewatch/internal/shared/instant"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var (
	ErrNotFound     = errors.New("child not found")
	ErrNameRequired = errors.New("name is required")
	ErrNotOwner     = errors.New("child belongs to another parent")
)

type Service struct {
	db db.Querier
}

func NewService(querier db.Querier) *Service {
	return &Service{db: querier}
}

const childColumns = `id, parent_id, name, COALESCE(age,0),
		COALESCE(date_of_birth,''), COALESCE(gender,''), COALESCE(photo_url,''),
		COALESCE(child_number,''), COALESCE(parent_number,''), COALESCE(sitter_number,''),
		created_at, updated_at`

func scanChild(row pgx.Row) (Child, error) {
	var c Child
	var createdAt, updatedAt time.Time
	err := row.Scan(&c.ID, &c.ParentID, &c.Name, &c.Age,
		&c.DateOfBirth, &c.Gender, &c.PhotoURL,
		&c.ChildNumber, &c.ParentNumber, &c.SitterNumber,
		&createdAt, &updatedAt)
	if err != nil {
		return Child{}, err
	}
	c.CreatedAt = instant.At(createdAt)
	c.UpdatedAt = instant.At(updatedAt)
	return c, nil
}

func (s *Service) Create(ctx context.Context, input Child, parentID string) (Child, error) {
	if input.Name == "" {
		return Child{}, ErrNameRequired
	}
	input.ID = uuid.NewString()
	input.ParentID = parentID

	row := s.db.QueryRow(ctx, `
		INSERT INTO children (id, parent_id, name, age, date_of_birth, gender, photo_url,
			child_number, parent_number, sitter_number)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING created_at, updated_at
	`, input.ID, input.ParentID, input.Name, input.Age, input.DateOfBirth, input.Gender,
		input.PhotoURL, input.ChildNumber, input.ParentNumber, input.SitterNumber)

	var createdAt, updatedAt time.Time
	if err := row.Scan(&createdAt, &updatedAt); err != nil {
		return Child{}, err
	}
	input.CreatedAt = instant.At(createdAt)
	input.UpdatedAt = instant.At(updatedAt)
	return input, nil
}

func (s *Service) Get(ctx context.Context, id, callerID, role string) (Child, error) {
	row := s.db.QueryRow(ctx, `SELECT `+childColumns+` FROM children WHERE id=$1`, id)
	c, err := scanChild(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Child{}, ErrNotFound
	}
	if err != nil {
		return Child{}, err
	}
	if role != "admin" && c.ParentID != callerID {
		return Child{}, ErrNotOwner
	}
	return c, nil
}

func (s *Service) List(ctx context.Context, parentID string) ([]Child, error) {
	rows, err := s.db.Query(ctx, `SELECT `+childColumns+` FROM children
		WHERE parent_id=$1 ORDER BY created_at ASC`, parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var children []Child
	for rows.Next() {
		c, err := scanChild(rows)
		if err != nil {
			return nil, err
		}
		children = append(children, c)
	}
	return children, rows.Err()
}

var updatableColumns = []struct {
	column string
	value  func(UpdateRequest) any
}{
	{"name", func(r UpdateRequest) any { return deref(r.Name) }},
	{"age", func(r UpdateRequest) any { return deref(r.Age) }},
	{"date_of_birth", func(r UpdateRequest) any { return deref(r.DateOfBirth) }},
	{"gender", func(r UpdateRequest) any { return deref(r.Gender) }},
	{"photo_url", func(r UpdateRequest) any { return deref(r.PhotoURL) }},
	{"child_number", func(r UpdateRequest) any { return deref(r.ChildNumber) }},
	{"parent_number", func(r UpdateRequest) any { return deref(r.ParentNumber) }},
	{"sitter_number", func(r UpdateRequest) any { return deref(r.SitterNumber) }},
}

func deref[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

func (s *Service) Update(ctx context.Context, id, callerID, role string, req UpdateRequest) (Child, error) {
	if _, err := s.Get(ctx, id, callerID, role); err != nil {
		return Child{}, err
	}

	set := []string{"updated_at = now()"}
	args := []any{id}
	for _, col := range updatableColumns {
		v := col.value(req)
		if v == nil {
			continue
		}
		args = append(args, v)
		set = append(set, fmt.Sprintf("%s = $%d", col.column, len(args)))
	}

	query := "UPDATE children SET " + strings.Join(set, ", ") + " WHERE id = $1"
	if _, err := s.db.Exec(ctx, query, args...); err != nil {
		return Child{}, err
	}
	return s.Get(ctx, id, callerID, role)
}

func (s *Service) Delete(ctx context.Context, id, callerID, role string) error {
	if _, err := s.Get(ctx, id, callerID, role); err != nil {
		return err
	}
	_, err := s.db.Exec(ctx, `DELETE FROM children WHERE id=$1`, id)
	return err
}
