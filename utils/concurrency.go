package utils

import (
	"sync"
	"time"
)

// Throttle enforces a minimum interval between successive calls to Wait.
// Fetches are sequential, so this only spaces requests out.
type Throttle struct {
	mu          sync.Mutex
	interval    time.Duration
	lastRequest time.Time
}

// NewThrottle creates a Throttle with the given minimum interval in milliseconds.
// A zero interval never blocks.
func NewThrottle(intervalMs int) *Throttle {
	return &Throttle{interval: time.Duration(intervalMs) * time.Millisecond}
}

// Wait blocks until at least the configured interval has passed since the previous call.
func (t *Throttle) Wait() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.lastRequest.IsZero() {
		if elapsed := time.Since(t.lastRequest); elapsed < t.interval {
			time.Sleep(t.interval - elapsed)
		}
	}
	t.lastRequest = time.Now()
}

// URLSet is a thread-safe set for tracking visited listing keys.
type URLSet struct {
	mu   sync.RWMutex
	seen map[string]struct{}
}

// NewURLSet creates an empty URLSet.
func NewURLSet() *URLSet {
	return &URLSet{seen: make(map[string]struct{})}
}

// Add returns true if the key was newly added, false if already present.
func (s *URLSet) Add(url string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.seen[url]; exists {
		return false
	}
	s.seen[url] = struct{}{}
	return true
}

// Size returns the number of unique keys tracked.
func (s *URLSet) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.seen)
}
