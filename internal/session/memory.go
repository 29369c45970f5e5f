package session

import (
	"context"
	"sync"
)

// MemoryStore is an in-process Store for tests and single-binary tools.
type MemoryStore struct {
	mu      sync.Mutex
	values  map[string]map[string]string
	flashes map[string][]string
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		values:  make(map[string]map[string]string),
		flashes: make(map[string][]string),
	}
}

func (m *MemoryStore) Get(_ context.Context, sid, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.values[sid][key], nil
}

func (m *MemoryStore) Set(_ context.Context, sid, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.values[sid] == nil {
		m.values[sid] = make(map[string]string)
	}
	m.values[sid][key] = value
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, sid, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values[sid], key)
	return nil
}

func (m *MemoryStore) AddFlash(_ context.Context, sid, msg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flashes[sid] = append(m.flashes[sid], msg)
	return nil
}

func (m *MemoryStore) PopFlashes(_ context.Context, sid string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.flashes[sid]
	delete(m.flashes, sid)
	return out, nil
}

func (m *MemoryStore) Destroy(_ context.Context, sid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, sid)
	delete(m.flashes, sid)
	return nil
}
