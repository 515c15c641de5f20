package sqlpager

import (
	"context"
	"sync"
)

// CursorStore keeps the latest cursor of a scope, e.g. a session key. Writes
// are last-write-wins: a lost or stale cursor only makes the next request fall
// back to offset pagination.
type CursorStore interface {
	// Save replaces the cursor of scope.
	Save(ctx context.Context, scope string, cursor *Cursor) error
	// Load returns the cursor of scope, nil when there is none.
	Load(ctx context.Context, scope string) (*Cursor, error)
	// Clear removes the cursor of scope.
	Clear(ctx context.Context, scope string) error
}

// MemoryStore is an in-process CursorStore.
type MemoryStore struct {
	mu      sync.RWMutex
	cursors map[string]*Cursor
}

var _ CursorStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{cursors: make(map[string]*Cursor)}
}

func (s *MemoryStore) Save(_ context.Context, scope string, cursor *Cursor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cursor == nil {
		delete(s.cursors, scope)
		return nil
	}

	if s.cursors == nil {
		s.cursors = make(map[string]*Cursor)
	}
	s.cursors[scope] = cursor

	return nil
}

func (s *MemoryStore) Load(_ context.Context, scope string) (*Cursor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.cursors[scope], nil
}

func (s *MemoryStore) Clear(_ context.Context, scope string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.cursors, scope)

	return nil
}

// Len returns the number of stored cursors.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.cursors)
}
