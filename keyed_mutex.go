package sqlsession

import (
	"sync"
)

// lockEntry is a reference-counted mutex for one cache key.
// When refs drops to zero the entry goes back to the pool.
type lockEntry struct {
	m    sync.Mutex
	refs int32 // goroutines holding or waiting on m
}

// KeyedMutex provides per-key mutual exclusion. It is the default Mutex used
// to keep concurrent statements from filling the same cache entry twice.
// Entries only live while some goroutine holds or waits for the key.
type KeyedMutex struct {
	mu   sync.Mutex            // Protects m
	m    map[string]*lockEntry // Active keys
	pool sync.Pool             // Recycled entries
}

// NewMutex creates an empty KeyedMutex.
func NewMutex() *KeyedMutex {
	return &KeyedMutex{
		m: make(map[string]*lockEntry),
		pool: sync.Pool{
			New: func() any {
				return &lockEntry{}
			},
		},
	}
}

// Lock acquires the mutex for key, blocking while another goroutine holds it.
// It never fails; the error result satisfies Mutex for distributed implementations.
func (k *KeyedMutex) Lock(key string) error {
	k.mu.Lock()
	e, exists := k.m[key]
	if !exists {
		e = k.pool.Get().(*lockEntry)
		k.m[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.m.Lock()
	return nil
}

// Unlock releases the mutex for key. Unlocking a key nobody holds is an error.
func (k *KeyedMutex) Unlock(key string) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	e, exists := k.m[key]
	if !exists {
		return NewError(CodeExecution, "keyed mutex: unlock of unlocked key %q", key)
	}

	e.m.Unlock()
	e.refs--

	if e.refs <= 0 {
		delete(k.m, key)
		e.refs = 0
		k.pool.Put(e)
	}
	return nil
}

// held returns the number of keys currently locked or awaited.
func (k *KeyedMutex) held() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.m)
}
