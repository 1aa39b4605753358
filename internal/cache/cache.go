// Package cache keeps dashboard sessions in a bounded, expiring store and
// sweeps expired entries in the background.
package cache

import (
	"sync"
	"time"

	"expenses/internal/log"
)

// Store is a keyed cache with expiry.
type Store[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	Len() int
}

// Cleaner is anything the Manager can sweep.
type Cleaner interface {
	CleanExpired() int
}

// Manager periodically sweeps every registered cache.
type Manager struct {
	mu      sync.Mutex
	caches  []Cleaner
	logger  *log.Logger
	stop    chan struct{}
	done    chan struct{}
	stopped sync.Once
}

func NewManager(logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.Discard()
	}
	return &Manager{
		logger: logger.WithComponent(log.ComponentSession),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

func (m *Manager) Register(c Cleaner) {
	m.mu.Lock()
	m.caches = append(m.caches, c)
	m.mu.Unlock()
}

// StartCleanup sweeps all caches every interval until Stop is called.
func (m *Manager) StartCleanup(interval time.Duration) {
	go m.run(interval)
}

// Sweep cleans every registered cache once and returns the number of
// entries removed.
func (m *Manager) Sweep() int {
	m.mu.Lock()
	caches := append([]Cleaner(nil), m.caches...)
	m.mu.Unlock()

	removed := 0
	for _, c := range caches {
		removed += c.CleanExpired()
	}
	if removed > 0 {
		m.logger.Debug("Expired sessions removed", log.FieldCount, removed)
	}
	return removed
}

func (m *Manager) run(interval time.Duration) {
	defer close(m.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Sweep()
		case <-m.stop:
			return
		}
	}
}

// Stop ends the cleanup loop. It is safe to call more than once, and before
// StartCleanup.
func (m *Manager) Stop() {
	m.stopped.Do(func() {
		close(m.stop)
	})
}

// Wait blocks until the cleanup loop started by StartCleanup has exited.
func (m *Manager) Wait() {
	<-m.done
}
