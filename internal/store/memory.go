package store

import (
	"context"
	"sync"
)

// MemoryStore is a concurrency-safe in-memory KV.
type MemoryStore struct {
	mu sync.RWMutex

	// key: namespace, value: key -> value
	data map[string]map[string]string
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]map[string]string),
	}
}

// Get returns the value stored under namespace/key or ErrNotFound.
func (s *MemoryStore) Get(ctx context.Context, namespace, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	ns, ok := s.data[namespace]
	if !ok {
		return "", ErrNotFound
	}
	v, ok := ns[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

// Set overwrites namespace/key. Last write wins.
func (s *MemoryStore) Set(ctx context.Context, namespace, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ns, ok := s.data[namespace]
	if !ok {
		ns = make(map[string]string)
		s.data[namespace] = ns
	}
	ns[key] = value
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}
