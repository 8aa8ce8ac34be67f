package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// MemoryStore is a thread-safe in-memory Store with per-entry TTL.
// Expired entries are dropped lazily on read.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]memoryEntry

	// now is swappable for expiry tests.
	now func() time.Time
}

type memoryEntry struct {
	value   json.RawMessage
	expires time.Time // zero means no expiry
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]memoryEntry),
		now:  time.Now,
	}
}

// Get retrieves a value by key, dropping it if expired.
func (m *MemoryStore) Get(_ context.Context, key string) (json.RawMessage, bool, error) {
	m.mu.RLock()
	entry, ok := m.data[key]
	m.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if !entry.expires.IsZero() && m.now().After(entry.expires) {
		m.mu.Lock()
		delete(m.data, key)
		m.mu.Unlock()
		return nil, false, nil
	}
	return entry.value, true, nil
}

// Put stores a value with the given TTL. A zero TTL means no expiry.
func (m *MemoryStore) Put(_ context.Context, key string, value json.RawMessage, ttl time.Duration) error {
	entry := memoryEntry{value: value}
	if ttl > 0 {
		entry.expires = m.now().Add(ttl)
	}
	m.mu.Lock()
	m.data[key] = entry
	m.mu.Unlock()
	return nil
}

// Delete removes keys. Missing keys are not an error.
func (m *MemoryStore) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	for _, key := range keys {
		delete(m.data, key)
	}
	m.mu.Unlock()
	return nil
}

// Len returns the number of stored entries, counting expired ones not
// yet collected.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}
