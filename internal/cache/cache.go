package cache

import (
	"log/slog"
	"time"
)

// Cache is the result-cache contract the engine's consumers depend on.
type Cache[T any] interface {
	// Get retrieves a value; absent or expired keys miss.
	Get(key string) (T, bool)

	// Set stores a value with the cache's default TTL.
	Set(key string, data T)

	// SetWithTTL stores a value with an explicit TTL.
	SetWithTTL(key string, data T, ttl time.Duration)

	// Invalidate removes every key containing the pattern.
	Invalidate(pattern string) int

	// Size returns the current number of items in the cache.
	Size() int
}

// Invalidator is the slice of the cache mutation paths need: they only ever
// drop keys, never read or write them.
type Invalidator interface {
	Invalidate(pattern string) int
}

// MultiInvalidator fans an invalidation out to several caches, so a mutation
// path can drop a user's aggregate and gig-list keys in one call.
type MultiInvalidator []Invalidator

func (m MultiInvalidator) Invalidate(pattern string) int {
	total := 0
	for _, inv := range m {
		total += inv.Invalidate(pattern)
	}
	return total
}

// Cleaner is implemented by caches that support background expiry sweeps.
type Cleaner interface {
	CleanExpired() int
}

// Manager runs periodic expiry cleanup over registered caches. Expired
// entries are also dropped lazily on Get, so the sweep only reclaims memory
// for keys nobody asks for again.
type Manager struct {
	caches      []Cleaner
	stopCleanup chan struct{}
	cleanupDone chan struct{}
}

func NewManager() *Manager {
	return &Manager{
		stopCleanup: make(chan struct{}),
		cleanupDone: make(chan struct{}),
	}
}

// Register adds a cache to the manager's sweep.
func (m *Manager) Register(cache Cleaner) {
	m.caches = append(m.caches, cache)
}

// StartCleanup begins periodic cleanup of all registered caches.
func (m *Manager) StartCleanup(interval time.Duration) {
	go m.cleanup(interval)
}

func (m *Manager) cleanup(interval time.Duration) {
	defer close(m.cleanupDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cleaned := 0
			for _, cache := range m.caches {
				cleaned += cache.CleanExpired()
			}
			if cleaned > 0 {
				slog.Debug("Cache cleanup removed expired entries", "count", cleaned)
			}
		case <-m.stopCleanup:
			return
		}
	}
}

// Stop gracefully stops the cleanup routine.
func (m *Manager) Stop() {
	if m.stopCleanup != nil {
		close(m.stopCleanup)
		<-m.cleanupDone
	}
}
