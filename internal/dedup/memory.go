package dedup

import (
	"context"
	"sync"
	"time"
)

const cleanupInterval = 10 * time.Minute

// in-process store backed by a map with TTL-on-read plus a background
// sweep so memory stays bounded in a long-running server
type MemoryStore struct {
	mu       sync.RWMutex
	entries  map[string]time.Time
	stopChan chan struct{}
}

// creates a new in-memory store and starts its cleanup goroutine
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{
		entries:  make(map[string]time.Time),
		stopChan: make(chan struct{}),
	}

	go s.cleanupExpiredEntries()

	return s
}

// reports whether key was recorded within the TTL window
func (s *MemoryStore) Seen(_ context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seenAt, exists := s.entries[key]
	if !exists {
		return false, nil
	}

	// entry may still be in the map past its TTL; treat it as absent
	if time.Since(seenAt) >= TTL {
		return false, nil
	}

	return true, nil
}

// remembers key from now for the TTL window
func (s *MemoryStore) Record(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if seenAt, exists := s.entries[key]; exists && time.Since(seenAt) < TTL {
		return nil // keep the first-seen timestamp
	}

	s.entries[key] = time.Now()

	return nil
}

// returns the number of live entries
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.entries)
}

// periodically removes expired entries
func (s *MemoryStore) cleanupExpiredEntries() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.removeExpiredEntries()
		case <-s.stopChan:
			return
		}
	}
}

// removes all expired entries
func (s *MemoryStore) removeExpiredEntries() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for key, seenAt := range s.entries {
		if now.Sub(seenAt) >= TTL {
			delete(s.entries, key)
		}
	}
}

// stops the cleanup goroutine
func (s *MemoryStore) Stop() {
	close(s.stopChan)
}
