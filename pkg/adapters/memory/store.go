package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/aretw0/palaver/pkg/domain"
)

// Store implements ports.SnapshotStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]domain.Snapshot
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]domain.Snapshot),
	}
}

// Save stores a copy of the snapshot.
func (s *Store) Save(ctx context.Context, player string, snap *domain.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[player] = *snap
	return nil
}

// Load returns a copy so callers cannot mutate the stored snapshot.
func (s *Store) Load(ctx context.Context, player string) (*domain.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.data[player]
	if !ok {
		return nil, domain.ErrConversationNotFound
	}
	return &snap, nil
}

// Delete removes the snapshot.
func (s *Store) Delete(ctx context.Context, player string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, player)
	return nil
}

// List returns the stored players, sorted.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	players := make([]string, 0, len(s.data))
	for p := range s.data {
		players = append(players, p)
	}
	sort.Strings(players)
	return players, nil
}
