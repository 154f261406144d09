package cooldown

import (
	"context"
	"sync"
)

// MemoryStore keeps values in process memory. State does not survive restarts.
type MemoryStore struct {
	mu     sync.Mutex
	values map[string]float64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]float64)}
}

func (m *MemoryStore) Get(_ context.Context, key string) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.values[key], nil
}

func (m *MemoryStore) Set(_ context.Context, key string, value float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MemoryStore) CompareAndSwap(_ context.Context, key string, old, new float64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.values[key] != old {
		return false, nil
	}
	m.values[key] = new
	return true, nil
}

func (m *MemoryStore) Close() error { return nil }
