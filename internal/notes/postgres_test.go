package notes

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

var noteColumns = []string{"id", "owner_id", "name", "description", "created_at", "updated_at"}

func TestPGListAppliesFilters(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	store := NewPGStore(db)

	now := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta(`select id, owner_id, name, description, created_at, updated_at from notes where owner_id=$1 and (name ilike $2 or description ilike $2) order by created_at asc`)).
		WithArgs("owner-1", "%groc%").
		WillReturnRows(mock.NewRows(noteColumns).
			AddRow("note-1", "owner-1", "groceries", "milk", now, now))

	list, err := store.List(context.Background(), Filter{OwnerID: "owner-1", Search: "groc"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].Name != "groceries" {
		t.Fatalf("unexpected result: %+v", list)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestPGListUnfiltered(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	store := NewPGStore(db)

	mock.ExpectQuery(regexp.QuoteMeta(`select id, owner_id, name, description, created_at, updated_at from notes order by created_at asc`)).
		WillReturnRows(mock.NewRows(noteColumns))

	if _, err := store.List(context.Background(), Filter{}); err != nil {
		t.Fatalf("list: %v", err)
	}
}

func TestPGFindNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	store := NewPGStore(db)

	mock.ExpectQuery(`select .+ from notes where id=\$1`).
		WithArgs("missing").
		WillReturnRows(mock.NewRows(noteColumns))

	if _, err := store.Find(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestPGDeleteNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	store := NewPGStore(db)

	mock.ExpectExec(regexp.QuoteMeta(`delete from notes where id=$1`)).
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.Delete(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}
