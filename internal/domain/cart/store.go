package cart

import (
	"context"
	"sync"
)

// Store persists one serialized cart per cart id. Implementations must
// return an empty line list, not an error, for carts that were never saved.
type Store interface {
	Load(ctx context.Context, cartID string) ([]Line, error)
	Save(ctx context.Context, cartID string, lines []Line) error
	Delete(ctx context.Context, cartID string) error
}

// MemoryStore is an in-process Store used by tests and single-node setups.
type MemoryStore struct {
	mu    sync.RWMutex
	carts map[string][]Line
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{carts: make(map[string][]Line)}
}

// Load returns the saved lines for cartID, or an empty list.
func (s *MemoryStore) Load(_ context.Context, cartID string) ([]Line, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	saved := s.carts[cartID]
	out := make([]Line, len(saved))
	copy(out, saved)
	return out, nil
}

// Save stores a snapshot of lines under cartID.
func (s *MemoryStore) Save(_ context.Context, cartID string, lines []Line) error {
	snapshot := make([]Line, len(lines))
	copy(snapshot, lines)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.carts[cartID] = snapshot
	return nil
}

// Delete removes the cart saved under cartID.
func (s *MemoryStore) Delete(_ context.Context, cartID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, cartID)
	return nil
}
