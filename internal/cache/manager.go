// Package cache holds process-local values that expire after a period of idleness.
package cache

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

type item[V any] struct {
	value     V
	expiresAt time.Time
}

// Manager is a mutex-guarded map whose entries expire ttl after they were last
// set or touched. Expired entries are dropped lazily on Get and in bulk by Cleanup.
type Manager[K comparable, V any] struct {
	name string
	ttl  time.Duration
	now  func() time.Time

	mu    sync.Mutex
	items map[K]*item[V]
}

// NewManager creates a cache; name only appears in log lines.
func NewManager[K comparable, V any](name string, ttl time.Duration) *Manager[K, V] {
	return &Manager[K, V]{
		name:  name,
		ttl:   ttl,
		now:   time.Now,
		items: make(map[K]*item[V]),
	}
}

// SetClock replaces the time source, for tests.
func (m *Manager[K, V]) SetClock(now func() time.Time) {
	m.mu.Lock()
	m.now = now
	m.mu.Unlock()
}

// Get returns the live value for key.
func (m *Manager[K, V]) Get(key K) (V, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	it, ok := m.items[key]
	if !ok {
		var zero V
		return zero, false
	}
	if !m.now().Before(it.expiresAt) {
		delete(m.items, key)
		var zero V
		return zero, false
	}
	return it.value, true
}

// Set stores value under key, replacing any previous entry.
func (m *Manager[K, V]) Set(key K, value V) {
	m.mu.Lock()
	m.items[key] = &item[V]{value: value, expiresAt: m.now().Add(m.ttl)}
	m.mu.Unlock()
}

// Touch pushes the expiry of a live entry ttl into the future.
func (m *Manager[K, V]) Touch(key K) {
	m.mu.Lock()
	if it, ok := m.items[key]; ok {
		it.expiresAt = m.now().Add(m.ttl)
	}
	m.mu.Unlock()
}

func (m *Manager[K, V]) Delete(key K) {
	m.mu.Lock()
	delete(m.items, key)
	m.mu.Unlock()
}

// Len counts stored entries, expired or not.
func (m *Manager[K, V]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// Cleanup removes expired entries and returns how many were dropped.
func (m *Manager[K, V]) Cleanup() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for key, it := range m.items {
		if !now.Before(it.expiresAt) {
			delete(m.items, key)
			removed++
		}
	}
	if removed > 0 {
		log.WithFields(log.Fields{"cache": m.name, "evicted": removed}).Debug("expired cache entries removed")
	}
	return removed
}
