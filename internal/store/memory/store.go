package memory

import (
	"context"
	"sync"

	"taskboard/internal/store"
)

type Store struct {
	mu     sync.RWMutex
	values map[string][]byte
	writes int
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{values: make(map[string][]byte)}
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[key]
	if !ok {
		return nil, store.ErrAbsent
	}
	return append([]byte(nil), v...), nil
}

func (s *Store) Set(ctx context.Context, key string, blob []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = append([]byte(nil), blob...)
	s.writes++
	return nil
}

// Writes counts Set calls.
func (s *Store) Writes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}

func (s *Store) Close() error {
	return nil
}
