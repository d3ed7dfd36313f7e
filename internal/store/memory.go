package store

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryKV is a process-local KV. Values are lost on restart.
type MemoryKV struct {
	mu      sync.RWMutex
	entries map[string]Entry
	now     func() time.Time
}

var _ KV = (*MemoryKV)(nil)

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{entries: make(map[string]Entry), now: time.Now}
}

func (m *MemoryKV) Get(_ context.Context, key string) (Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[key]
	if !ok {
		return Entry{}, fmt.Errorf("%w: key %q", ErrNotFound, key)
	}
	return e, nil
}

func (m *MemoryKV) Put(_ context.Context, key, value string) (Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := Entry{
		Key:       key,
		Value:     value,
		Version:   m.entries[key].Version + 1,
		UpdatedAt: m.now(),
	}
	m.entries[key] = e
	return e, nil
}
