package storage

import (
	"sync"
)

// Memory is an in-process KV. A quota of zero or less means unlimited.
type Memory struct {
	values map[string][]byte
	size   int64
	quota  int64
	mu     sync.RWMutex
}

func NewMemory(quota int64) *Memory {
	return &Memory{
		values: make(map[string][]byte),
		quota:  quota,
	}
}

func (m *Memory) Get(key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, exists := m.values[key]
	if !exists {
		return nil, ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (m *Memory) Set(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := m.size - int64(len(m.values[key])) + int64(len(value))
	if m.quota > 0 && next > m.quota {
		return ErrQuotaExceeded
	}
	stored := make([]byte, len(value))
	copy(stored, value)
	m.values[key] = stored
	m.size = next
	return nil
}

func (m *Memory) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.size -= int64(len(m.values[key]))
	delete(m.values, key)
	return nil
}

// Size reports the bytes currently held.
func (m *Memory) Size() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.size
}

func (m *Memory) Close() error {
	return nil
}
