package sqlsession

import (
	"log/slog"
	"time"
)

// Storage defines the interface for key-value storage with expiration support.
// It backs the optional query result cache.
type Storage interface {
	// Get retrieves a value by its key. Returns an error if key doesn't exist or has expired.
	Get(key string) ([]byte, error)

	// Set stores a key-value pair with optional expiration.
	// If exp is 0, the entry never expires.
	Set(key string, val []byte, exp time.Duration) error

	// Delete removes a key-value pair from storage.
	Delete(key string) error

	// Reset clears all entries from storage.
	Reset() error

	// Close releases any resources held by the storage implementation.
	// The storage should not be used after calling Close.
	Close() error
}

// Mutex defines the interface for key-based mutual exclusion.
// It keeps concurrent connections from filling the same cache entry twice.
type Mutex interface {
	// Lock acquires a lock for the given key. Blocks until the lock is available.
	Lock(key string) error

	// Unlock releases the lock for the given key.
	Unlock(key string) error
}

// Options configures a Connection. All fields are optional; zero values use
// the defaults applied by defaultOptions.
type Options struct {
	// Timeouts, applied only when the caller's context has no deadline.
	ConnectTimeout time.Duration // Open (default: 30s)
	QueryTimeout   time.Duration // Prepare and ExecuteQuery, including reading rows (default: none)

	// Logger receives debug records for the connection lifecycle (default: slog.Default()).
	Logger *slog.Logger

	// Cache configuration
	Cache         Storage       // Custom cache implementation (nil uses the in-memory cache)
	CacheEnabled  bool          // Enable result caching for statements with a cache TTL (default: false)
	CacheSize     int           // Maximum in-memory cache size in megabytes (default: 10)
	CacheTTLCheck time.Duration // Interval for in-memory cache cleanup (default: 5 minutes)

	// Concurrency control for cache fills
	Mutex Mutex // Custom mutex implementation, e.g. for distributed locking (default: KeyedMutex)

	// Serialization of cached results
	Codec Codec // Custom codec (nil uses MessagePack)
}

// defaultOptions merges the first of opts, if any, over the defaults.
func defaultOptions(opts ...Options) Options {
	options := Options{
		ConnectTimeout: 30 * time.Second,
		CacheSize:      10,              // 10 MB default cache size
		CacheTTLCheck:  5 * time.Minute, // Check every 5 minutes
		CacheEnabled:   false,           // Cache disabled by default
	}

	if len(opts) > 0 {
		userOpts := opts[0]

		if userOpts.ConnectTimeout > 0 {
			options.ConnectTimeout = userOpts.ConnectTimeout
		}
		if userOpts.QueryTimeout > 0 {
			options.QueryTimeout = userOpts.QueryTimeout
		}
		if userOpts.CacheSize > 0 {
			options.CacheSize = userOpts.CacheSize
		}
		if userOpts.CacheTTLCheck > 0 {
			options.CacheTTLCheck = userOpts.CacheTTLCheck
		}

		// Direct assignment for interface and boolean fields
		options.Logger = userOpts.Logger
		options.Cache = userOpts.Cache
		options.CacheEnabled = userOpts.CacheEnabled
		options.Mutex = userOpts.Mutex
		options.Codec = userOpts.Codec
	}

	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	if options.Codec == nil {
		options.Codec = MsgpackCodec{}
	}
	if options.Mutex == nil {
		options.Mutex = NewMutex()
	}

	return options
}
