// Package concurrency guards scan passes against overlapping runs.
package concurrency

import "sync"

// Manager hands out non-blocking per-key run locks. Keys name the subreddit
// being scanned, so two passes over the same subreddit never overlap within a
// process while different subreddits stay independent.
type Manager struct {
	// map[string]chan struct{}; entries are never removed, which is fine for
	// the one subreddit a process scans.
	locks sync.Map
}

// NewManager creates a new concurrency manager
func NewManager() *Manager {
	return &Manager{}
}

// TryAcquire takes the lock for key without blocking. It reports false if the
// lock is already held.
func (m *Manager) TryAcquire(key string) bool {
	actual, _ := m.locks.LoadOrStore(key, make(chan struct{}, 1))
	ch := actual.(chan struct{})

	select {
	case ch <- struct{}{}:
		return true
	default:
		return false
	}
}

// Release frees the lock for key. Releasing an unheld key is a no-op.
func (m *Manager) Release(key string) {
	if actual, ok := m.locks.Load(key); ok {
		select {
		case <-actual.(chan struct{}):
		default:
		}
	}
}
