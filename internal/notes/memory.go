package notes

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"notevault.org/internal/ids"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore is an in-memory Store for tests and local runs.
type MemoryStore struct {
	mu    sync.Mutex
	items map[string]Note
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]Note)}
}

func (s *MemoryStore) Create(_ context.Context, note *Note) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if note.ID == "" {
		note.ID = ids.New()
	}
	now := time.Now().UTC()
	note.CreatedAt = now
	note.UpdatedAt = now
	s.items[note.ID] = *note
	return nil
}

func (s *MemoryStore) Find(_ context.Context, id string) (*Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	note, ok := s.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &note, nil
}

func (s *MemoryStore) List(_ context.Context, f Filter) ([]*Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var res []*Note
	for _, note := range s.items {
		if f.OwnerID != "" && note.OwnerID != f.OwnerID {
			continue
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(note.Name), strings.ToLower(f.Search)) {
			continue
		}
		note := note
		res = append(res, &note)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].CreatedAt.Before(res[j].CreatedAt) })
	return res, nil
}

func (s *MemoryStore) Update(_ context.Context, id string, upd Update) (*Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	note, ok := s.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	if upd.Name != nil {
		note.Name = *upd.Name
	}
	if upd.Description != nil {
		note.Description = *upd.Description
	}
	note.UpdatedAt = time.Now().UTC()
	s.items[id] = note
	return &note, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return ErrNotFound
	}
	delete(s.items, id)
	return nil
}
