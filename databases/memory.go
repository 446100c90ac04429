package databases

import (
	"context"
	"sync"
)

// MemoryStateDatabase keeps state in process. Nothing survives a restart.
type MemoryStateDatabase struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// NewMemoryStateDatabase returns an empty in-process store
func NewMemoryStateDatabase() *MemoryStateDatabase {
	return &MemoryStateDatabase{values: make(map[string][]byte)}
}

func (m *MemoryStateDatabase) Load(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (m *MemoryStateDatabase) Save(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = append([]byte(nil), value...)
	return nil
}
