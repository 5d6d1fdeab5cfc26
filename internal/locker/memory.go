package locker

import (
	"context"
	"strings"
	"sync"
)

type memoryEntry struct {
	sem     chan struct{}
	waiters int
}

// MemoryLocker is a Locker for a single process. Entries are dropped once
// nobody holds or waits for them.
type MemoryLocker struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{entries: make(map[string]*memoryEntry)}
}

func (m *MemoryLocker) Lock(ctx context.Context, key string) (func(), error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, ErrEmptyKey
	}

	m.mu.Lock()
	e, ok := m.entries[key]
	if !ok {
		e = &memoryEntry{sem: make(chan struct{}, 1)}
		m.entries[key] = e
	}
	e.waiters++
	m.mu.Unlock()

	select {
	case e.sem <- struct{}{}:
	case <-ctx.Done():
		m.leave(key, e)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.sem
			m.leave(key, e)
		})
	}, nil
}

func (m *MemoryLocker) leave(key string, e *memoryEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.waiters--
	if e.waiters == 0 {
		delete(m.entries, key)
	}
}

// size reports how many keys are tracked.
func (m *MemoryLocker) size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
