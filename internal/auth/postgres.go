package auth

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"notevault.org/internal/ids"
)

var (
	_ IdentityStore    = (*PGIdentityStore)(nil)
	_ OutstandingStore = (*PGOutstandingStore)(nil)
)

const uniqueViolation = "23505"

// PGIdentityStore implements IdentityStore over PostgreSQL.
type PGIdentityStore struct {
	db *sql.DB
}

func NewPGIdentityStore(db *sql.DB) *PGIdentityStore {
	return &PGIdentityStore{db: db}
}

func (s *PGIdentityStore) Create(ctx context.Context, identity *Identity) error {
	if identity.ID == "" {
		identity.ID = ids.New()
	}
	_, err := s.db.ExecContext(ctx,
		`insert into identities(id, name, email, password_hash, role, active) values($1,$2,$3,$4,$5,$6)`,
		identity.ID, identity.Name, identity.Email, identity.PasswordHash, string(identity.Role), identity.Active,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (s *PGIdentityStore) Find(ctx context.Context, id string) (*Identity, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, name, email, password_hash, role, active, created_at, updated_at from identities where id=$1`, id)
	return scanIdentity(row)
}

func (s *PGIdentityStore) FindByEmail(ctx context.Context, email string) (*Identity, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, name, email, password_hash, role, active, created_at, updated_at from identities where email=$1`, email)
	return scanIdentity(row)
}

func (s *PGIdentityStore) List(ctx context.Context) ([]*Identity, error) {
	rows, err := s.db.QueryContext(ctx,
		`select id, name, email, password_hash, role, active, created_at, updated_at from identities order by created_at asc`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*Identity
	for rows.Next() {
		identity, err := scanIdentity(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, identity)
	}
	return res, rows.Err()
}

func (s *PGIdentityStore) Update(ctx context.Context, id string, upd IdentityUpdate) (*Identity, error) {
	sets := make([]string, 0, 3)
	args := make([]any, 0, 4)
	if upd.Name != nil {
		args = append(args, *upd.Name)
		sets = append(sets, "name=$"+strconv.Itoa(len(args)))
	}
	if upd.Email != nil {
		args = append(args, *upd.Email)
		sets = append(sets, "email=$"+strconv.Itoa(len(args)))
	}
	if upd.Password != nil {
		args = append(args, *upd.Password)
		sets = append(sets, "password_hash=$"+strconv.Itoa(len(args)))
	}
	if len(sets) == 0 {
		return s.Find(ctx, id)
	}
	sets = append(sets, "updated_at=now()")
	args = append(args, id)
	query := `update identities set ` + strings.Join(sets, ", ") + ` where id=$` + strconv.Itoa(len(args)) +
		` returning id, name, email, password_hash, role, active, created_at, updated_at`
	row := s.db.QueryRowContext(ctx, query, args...)
	identity, err := scanIdentity(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrAlreadyExists
		}
		return nil, err
	}
	return identity, nil
}

func (s *PGIdentityStore) UpdateRole(ctx context.Context, id string, role Role) (*Identity, error) {
	row := s.db.QueryRowContext(ctx,
		`update identities set role=$1, updated_at=now() where id=$2
		 returning id, name, email, password_hash, role, active, created_at, updated_at`,
		string(role), id)
	return scanIdentity(row)
}

func (s *PGIdentityStore) Deactivate(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`update identities set active=false, updated_at=now() where id=$1`, id)
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

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIdentity(row rowScanner) (*Identity, error) {
	var (
		identity Identity
		role     string
	)
	err := row.Scan(&identity.ID, &identity.Name, &identity.Email, &identity.PasswordHash,
		&role, &identity.Active, &identity.CreatedAt, &identity.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	identity.Role = Role(role)
	return &identity, nil
}

// PGOutstandingStore implements OutstandingStore over PostgreSQL.
type PGOutstandingStore struct {
	db *sql.DB
}

func NewPGOutstandingStore(db *sql.DB) *PGOutstandingStore {
	return &PGOutstandingStore{db: db}
}

func (s *PGOutstandingStore) Insert(ctx context.Context, tok OutstandingToken) error {
	_, err := s.db.ExecContext(ctx,
		`insert into outstanding_tokens(token_id, subject_id, kind, issued_at, expires_at)
		 values($1,$2,$3,$4,$5) on conflict (token_id) do nothing`,
		tok.TokenID, tok.SubjectID, string(tok.Kind), tok.IssuedAt, tok.ExpiresAt)
	return err
}

func (s *PGOutstandingStore) Find(ctx context.Context, tokenID string) (*OutstandingToken, error) {
	row := s.db.QueryRowContext(ctx,
		`select token_id, subject_id, kind, issued_at, expires_at from outstanding_tokens where token_id=$1`, tokenID)
	var (
		tok  OutstandingToken
		kind string
	)
	if err := row.Scan(&tok.TokenID, &tok.SubjectID, &kind, &tok.IssuedAt, &tok.ExpiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	tok.Kind = TokenKind(kind)
	return &tok, nil
}

func (s *PGOutstandingStore) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`delete from outstanding_tokens where expires_at < $1`, before)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation
	}
	return false
}
