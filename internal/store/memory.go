package store

import (
	"context"
	"sync"
)

// MemoryStore keeps slots in process memory. A positive capacity bounds the
// total payload bytes, the way browser storage enforces a quota.
type MemoryStore struct {
	mu       sync.RWMutex
	slots    map[string][]byte
	size     int
	capacity int
}

func NewMemoryStore(capacity int) *MemoryStore {
	return &MemoryStore{
		slots:    make(map[string][]byte),
		capacity: capacity,
	}
}

func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.slots[key]
	if !ok {
		return nil, ErrSlotNotFound
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (s *MemoryStore) Put(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	newSize := s.size - len(s.slots[key]) + len(data)
	if s.capacity > 0 && newSize > s.capacity {
		return ErrQuotaExceeded
	}

	stored := make([]byte, len(data))
	copy(stored, data)
	s.slots[key] = stored
	s.size = newSize
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.size -= len(s.slots[key])
	delete(s.slots, key)
	return nil
}

// Keys lists the slot names currently held.
func (s *MemoryStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.slots))
	for k := range s.slots {
		keys = append(keys, k)
	}
	return keys
}
