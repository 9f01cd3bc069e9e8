package store

import (
	"context"
	"sync"
)

// Memory is an in-process Store used by tests and single-node development.
// Change callbacks fire synchronously on the writing goroutine.
type Memory struct {
	mu          sync.RWMutex
	values      map[string][]byte
	subscribers map[string]map[uint64]func()
	nextID      uint64
}

// NewMemory constructs an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		values:      make(map[string][]byte),
		subscribers: make(map[string]map[uint64]func()),
	}
}

// Get implements Store.
func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	value, ok := m.values[key]
	m.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}

	copied := make([]byte, len(value))
	copy(copied, value)
	return copied, nil
}

// Set implements Store.
func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	copied := make([]byte, len(value))
	copy(copied, value)

	m.mu.Lock()
	m.values[key] = copied
	m.mu.Unlock()

	m.notify(key)
	return nil
}

// Delete implements Store.
func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.values, key)
	m.mu.Unlock()

	m.notify(key)
	return nil
}

// Subscribe implements Store.
func (m *Memory) Subscribe(_ context.Context, key string, fn func()) (func(), error) {
	m.mu.Lock()
	if _, ok := m.subscribers[key]; !ok {
		m.subscribers[key] = make(map[uint64]func())
	}
	id := m.nextID
	m.nextID++
	m.subscribers[key][id] = fn
	m.mu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			if subs, ok := m.subscribers[key]; ok {
				delete(subs, id)
				if len(subs) == 0 {
					delete(m.subscribers, key)
				}
			}
		})
	}

	return unsubscribe, nil
}

// notify invokes subscriber callbacks outside the lock so a callback may
// read or write the store without deadlocking.
func (m *Memory) notify(key string) {
	m.mu.RLock()
	callbacks := make([]func(), 0, len(m.subscribers[key]))
	for _, fn := range m.subscribers[key] {
		callbacks = append(callbacks, fn)
	}
	m.mu.RUnlock()

	for _, fn := range callbacks {
		fn()
	}
}
