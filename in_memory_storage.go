package sqlsession

import (
	"errors"
	"sync"
	"time"
)

// ErrNotFound is returned by InMemoryStorage.Get for missing or expired keys.
var ErrNotFound = errors.New("key not found")

// InMemoryStorage provides a thread-safe, size bounded in-memory cache.
// Expired entries are removed lazily on Get and by a periodic sweep.
type InMemoryStorage struct {
	cache    map[string]CacheEntry // The in-memory cache where data is stored.
	mu       sync.RWMutex          // Guards cache and size.
	size     int                   // Bytes currently held by values.
	maxBytes int                   // Upper bound for size; 0 means unbounded.
	stop     chan struct{}
	stopOnce sync.Once
}

// CacheEntry represents a single entry in the cache.
type CacheEntry struct {
	Value     []byte    // The cached value.
	Timestamp time.Time // The expiration time of the entry; zero never expires.
}

// NewInMemoryStorage creates a storage holding at most sizeMB megabytes and
// sweeping expired entries every ttlCheck. Call Stop (or Close) to end the sweeper.
func NewInMemoryStorage(sizeMB int, ttlCheck time.Duration) *InMemoryStorage {
	st := &InMemoryStorage{
		cache:    make(map[string]CacheEntry),
		maxBytes: sizeMB * 1024 * 1024,
		stop:     make(chan struct{}),
	}

	if ttlCheck > 0 {
		go st.sweep(ttlCheck)
	}

	return st
}

func (i *InMemoryStorage) sweep(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			i.cleanUp()
		case <-i.stop:
			return
		}
	}
}

// Get retrieves the value associated with the given key from the cache.
func (i *InMemoryStorage) Get(key string) ([]byte, error) {
	i.mu.RLock()
	entry, ok := i.cache[key]
	i.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}
	if expired(entry, time.Now()) {
		_ = i.Delete(key)
		return nil, ErrNotFound
	}
	return entry.Value, nil
}

// Set stores a key-value pair with an expiration duration. Values that do not
// fit the size bound are rejected; older entries are evicted to make room.
func (i *InMemoryStorage) Set(key string, val []byte, exp time.Duration) error {
	if i.maxBytes > 0 && len(val) > i.maxBytes {
		return errors.New("value exceeds cache size")
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	if old, ok := i.cache[key]; ok {
		i.size -= len(old.Value)
		delete(i.cache, key)
	}
	if i.maxBytes > 0 && i.size+len(val) > i.maxBytes {
		i.evict(len(val))
	}

	entry := CacheEntry{Value: val}
	if exp > 0 {
		entry.Timestamp = time.Now().Add(exp)
	}
	i.cache[key] = entry
	i.size += len(val)

	return nil
}

// evict drops expired entries first, then the entries closest to expiry,
// until need more bytes fit. Caller holds the write lock.
func (i *InMemoryStorage) evict(need int) {
	now := time.Now()
	for key, entry := range i.cache {
		if expired(entry, now) {
			i.size -= len(entry.Value)
			delete(i.cache, key)
		}
	}
	for i.size+need > i.maxBytes && len(i.cache) > 0 {
		var victim string
		var soonest time.Time
		for key, entry := range i.cache {
			if victim == "" || (!entry.Timestamp.IsZero() && (soonest.IsZero() || entry.Timestamp.Before(soonest))) {
				victim, soonest = key, entry.Timestamp
			}
		}
		i.size -= len(i.cache[victim].Value)
		delete(i.cache, victim)
	}
}

// Delete removes a key-value pair from the cache by its key.
func (i *InMemoryStorage) Delete(key string) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if entry, ok := i.cache[key]; ok {
		i.size -= len(entry.Value)
		delete(i.cache, key)
	}
	return nil
}

// Reset clears all entries from the cache.
func (i *InMemoryStorage) Reset() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.cache = make(map[string]CacheEntry)
	i.size = 0
	return nil
}

// Len returns the number of entries currently held.
func (i *InMemoryStorage) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.cache)
}

// Stop ends the background sweeper. It is safe to call more than once.
func (i *InMemoryStorage) Stop() {
	i.stopOnce.Do(func() { close(i.stop) })
}

// Close stops the sweeper and drops all entries.
func (i *InMemoryStorage) Close() error {
	i.Stop()
	return i.Reset()
}

// cleanUp removes all expired entries from the cache.
func (i *InMemoryStorage) cleanUp() {
	i.mu.Lock()
	defer i.mu.Unlock()

	now := time.Now()
	for key, entry := range i.cache {
		if expired(entry, now) {
			i.size -= len(entry.Value)
			delete(i.cache, key)
		}
	}
}

func expired(e CacheEntry, now time.Time) bool {
	return !e.Timestamp.IsZero() && now.After(e.Timestamp)
}
