// Package notes is the business collaborator guarded by the auth core. It
// stays deliberately thin: every request reaching it has already passed
// authentication and the role gate.
package notes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrNotFound     = errors.New("notes: not found")
	ErrInvalidInput = errors.New("notes: invalid input")
)

// Note is a user-owned record.
type Note struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Update describes a partial note mutation.
type Update struct {
	Name        *string
	Description *string
}

// Filter narrows listings. OwnerID empty means all owners (admin listings).
type Filter struct {
	OwnerID string
	Search  string
}

// Store is the persistence contract for notes.
type Store interface {
	Create(ctx context.Context, note *Note) error
	Find(ctx context.Context, id string) (*Note, error)
	List(ctx context.Context, f Filter) ([]*Note, error)
	Update(ctx context.Context, id string, upd Update) (*Note, error)
	Delete(ctx context.Context, id string) error
}

// Service validates input and scopes access to the owner. Admin callers use
// the unscoped listing via an empty owner filter.
type Service struct {
	store Store
}

func NewService(store Store) (*Service, error) {
	if store == nil {
		return nil, errors.New("notes store is required")
	}
	return &Service{store: store}, nil
}

func (s *Service) Create(ctx context.Context, ownerID, name, description string) (*Note, error) {
	ownerID = strings.TrimSpace(ownerID)
	name = strings.TrimSpace(name)
	if ownerID == "" {
		return nil, fmt.Errorf("%w: owner is required", ErrInvalidInput)
	}
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	note := &Note{
		OwnerID:     ownerID,
		Name:        name,
		Description: strings.TrimSpace(description),
	}
	if err := s.store.Create(ctx, note); err != nil {
		return nil, err
	}
	return note, nil
}

// Get returns the note only when it belongs to ownerID. A foreign note is
// reported as not found rather than forbidden, so note ids cannot be probed.
func (s *Service) Get(ctx context.Context, ownerID, id string) (*Note, error) {
	note, err := s.store.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if note.OwnerID != ownerID {
		return nil, ErrNotFound
	}
	return note, nil
}

func (s *Service) List(ctx context.Context, ownerID, search string) ([]*Note, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return nil, fmt.Errorf("%w: owner is required", ErrInvalidInput)
	}
	return s.store.List(ctx, Filter{OwnerID: ownerID, Search: strings.TrimSpace(search)})
}

// ListAll is the admin listing across owners.
func (s *Service) ListAll(ctx context.Context, ownerID, search string) ([]*Note, error) {
	return s.store.List(ctx, Filter{OwnerID: strings.TrimSpace(ownerID), Search: strings.TrimSpace(search)})
}

func (s *Service) Update(ctx context.Context, ownerID, id string, upd Update) (*Note, error) {
	if _, err := s.Get(ctx, ownerID, id); err != nil {
		return nil, err
	}
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
		}
		upd.Name = &name
	}
	if upd.Description != nil {
		desc := strings.TrimSpace(*upd.Description)
		upd.Description = &desc
	}
	return s.store.Update(ctx, id, upd)
}

func (s *Service) Delete(ctx context.Context, ownerID, id string) error {
	if _, err := s.Get(ctx, ownerID, id); err != nil {
		return err
	}
	return s.store.Delete(ctx, id)
}
