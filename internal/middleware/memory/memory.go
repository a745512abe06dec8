// Package memory is an in-memory ttl key-value storage.
package memory

import (
	"sync"
	"time"
)

type entry struct {
	content   []byte
	expiresAt time.Time
}

// Storage ...
type Storage struct {
	mu      sync.Mutex
	entries map[string]entry
}

// NewStorage creates new instance of Storage.
func NewStorage() *Storage {
	return &Storage{
		entries: make(map[string]entry),
	}
}

// Get returns the content stored under key, or nil if absent or expired.
func (s *Storage) Get(key string) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return nil
	}

	if time.Now().After(e.expiresAt) {
		delete(s.entries, key)
		return nil
	}

	return e.content
}

// Set stores content under key for the given duration.
func (s *Storage) Set(key string, content []byte, duration time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = entry{
		content:   content,
		expiresAt: time.Now().Add(duration),
	}
}
