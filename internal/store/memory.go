package store

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	// ErrNotFound is returned when a key is absent or has expired.
	ErrNotFound = errors.New("no value stored for key")
)

// KV is the contract the in-memory store and the Redis store satisfy.
// A ttl of zero means the value never expires.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Key builds the namespaced key a plugin setting is stored under,
// e.g. Key("weather-forecast", "SCHEDULES", "alice") = "weather-forecast:SCHEDULES_alice".
func Key(pluginID, name, accountID string) string {
	return pluginID + ":" + name + "_" + accountID
}

type memoryEntry struct {
	value     string
	expiresAt time.Time // zero = never
}

// MemoryStore is a concurrency-safe in-memory implementation of KV.
type MemoryStore struct {
	mu sync.RWMutex

	data map[string]memoryEntry

	// now is swappable for tests.
	now func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]memoryEntry),
		now:  time.Now,
	}
}

// Get returns the value for key, or ErrNotFound if it is missing or expired.
func (s *MemoryStore) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	entry, ok := s.data[key]
	s.mu.RUnlock()

	if !ok {
		return "", ErrNotFound
	}
	if !entry.expiresAt.IsZero() && !s.now().Before(entry.expiresAt) {
		// Expired entries are dropped lazily.
		s.mu.Lock()
		if cur, ok := s.data[key]; ok && cur.expiresAt.Equal(entry.expiresAt) {
			delete(s.data, key)
		}
		s.mu.Unlock()
		return "", ErrNotFound
	}
	return entry.value, nil
}

// Set stores value under key, replacing any previous value.
func (s *MemoryStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	entry := memoryEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = s.now().Add(ttl)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = entry
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// size reports how many entries are held, expired ones included.
func (s *MemoryStore) size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
