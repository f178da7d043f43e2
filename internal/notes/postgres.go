package notes

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"notevault.org/internal/ids"
)

var _ Store = (*PGStore)(nil)

// PGStore implements Store using PostgreSQL.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Create(ctx context.Context, note *Note) error {
	if note.ID == "" {
		note.ID = ids.New()
	}
	row := s.db.QueryRowContext(ctx,
		`insert into notes(id, owner_id, name, description) values($1,$2,$3,$4)
		 returning created_at, updated_at`,
		note.ID, note.OwnerID, note.Name, note.Description)
	return row.Scan(&note.CreatedAt, &note.UpdatedAt)
}

func (s *PGStore) Find(ctx context.Context, id string) (*Note, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, owner_id, name, description, created_at, updated_at from notes where id=$1`, id)
	var note Note
	if err := row.Scan(&note.ID, &note.OwnerID, &note.Name, &note.Description, &note.CreatedAt, &note.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &note, nil
}

func (s *PGStore) List(ctx context.Context, f Filter) ([]*Note, error) {
	query := `select id, owner_id, name, description, created_at, updated_at from notes`
	var (
		where []string
		args  []any
	)
	if f.OwnerID != "" {
		args = append(args, f.OwnerID)
		where = append(where, "owner_id=$"+strconv.Itoa(len(args)))
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		n := strconv.Itoa(len(args))
		where = append(where, "(name ilike $"+n+" or description ilike $"+n+")")
	}
	if len(where) > 0 {
		query += " where " + strings.Join(where, " and ")
	}
	query += " order by created_at asc"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*Note
	for rows.Next() {
		var note Note
		if err := rows.Scan(&note.ID, &note.OwnerID, &note.Name, &note.Description, &note.CreatedAt, &note.UpdatedAt); err != nil {
			return nil, err
		}
		res = append(res, &note)
	}
	return res, rows.Err()
}

func (s *PGStore) Update(ctx context.Context, id string, upd Update) (*Note, error) {
	sets := make([]string, 0, 2)
	args := make([]any, 0, 3)
	if upd.Name != nil {
		args = append(args, *upd.Name)
		sets = append(sets, "name=$"+strconv.Itoa(len(args)))
	}
	if upd.Description != nil {
		args = append(args, *upd.Description)
		sets = append(sets, "description=$"+strconv.Itoa(len(args)))
	}
	if len(sets) == 0 {
		return s.Find(ctx, id)
	}
	sets = append(sets, "updated_at=now()")
	args = append(args, id)
	query := `update notes set ` + strings.Join(sets, ", ") + ` where id=$` + strconv.Itoa(len(args)) +
		` returning id, owner_id, name, description, created_at, updated_at`
	row := s.db.QueryRowContext(ctx, query, args...)
	var note Note
	if err := row.Scan(&note.ID, &note.OwnerID, &note.Name, &note.Description, &note.CreatedAt, &note.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &note, nil
}

func (s *PGStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from notes where id=$1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
