package notes

import (
	"context"
	"errors"
	"testing"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	svc, err := NewService(NewMemoryStore())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestCreateValidation(t *testing.T) {
	svc := newTestService(t)
	if _, err := svc.Create(context.Background(), "", "groceries", ""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("missing owner: got %v", err)
	}
	if _, err := svc.Create(context.Background(), "owner-1", "   ", ""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("blank name: got %v", err)
	}
}

func TestOwnerScoping(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	note, err := svc.Create(ctx, "owner-1", "groceries", "milk, eggs")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.Get(ctx, "owner-1", note.ID); err != nil {
		t.Fatalf("owner get: %v", err)
	}
	// Foreign notes read as missing, so ids cannot be probed.
	if _, err := svc.Get(ctx, "owner-2", note.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign get: got %v, want ErrNotFound", err)
	}
	if _, err := svc.Update(ctx, "owner-2", note.ID, Update{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign update: got %v, want ErrNotFound", err)
	}
	if err := svc.Delete(ctx, "owner-2", note.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign delete: got %v, want ErrNotFound", err)
	}
}

func TestListScopesAndSearches(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	mustCreate := func(owner, name string) {
		t.Helper()
		if _, err := svc.Create(ctx, owner, name, ""); err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
	}
	mustCreate("owner-1", "groceries")
	mustCreate("owner-1", "travel plans")
	mustCreate("owner-2", "groceries too")

	list, err := svc.List(ctx, "owner-1", "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("owner-1 sees %d notes, want 2", len(list))
	}

	list, err = svc.List(ctx, "owner-1", "groc")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(list) != 1 || list[0].Name != "groceries" {
		t.Fatalf("search result = %+v", list)
	}

	all, err := svc.ListAll(ctx, "", "")
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("admin listing sees %d notes, want 3", len(all))
	}
}

func TestUpdateRejectsBlankName(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	note, err := svc.Create(ctx, "owner-1", "groceries", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	blank := "  "
	if _, err := svc.Update(ctx, "owner-1", note.ID, Update{Name: &blank}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("got %v, want ErrInvalidInput", err)
	}
}
