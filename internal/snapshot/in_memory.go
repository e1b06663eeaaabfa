package snapshot

import (
	"context"
	"sync"

	carterrors "github.com/abgdnv/bathifarms/internal/errors"
)

var _ Store = (*InMemoryStore)(nil)

type InMemoryStore struct {
	mu    sync.RWMutex
	slots map[string][]byte
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{slots: make(map[string][]byte)}
}

func (s *InMemoryStore) Load(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	payload, ok := s.slots[key]
	if !ok {
		return nil, carterrors.ErrSnapshotNotFound
	}
	return append([]byte(nil), payload...), nil
}

func (s *InMemoryStore) Save(_ context.Context, key string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots[key] = append([]byte(nil), payload...)
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.slots, key)
	return nil
}
