package domain

import (
	"context"
	"time"
)

// Cache defines the interface for caching registration lookups between
// analyses. Supports local LRU (default) or Redis.
type Cache interface {
	// Get retrieves a value from cache.
	// Returns nil, nil if key not found.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in cache with expiration.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from cache.
	Delete(ctx context.Context, key string) error

	// GetRegistration retrieves a cached registration record by domain.
	GetRegistration(ctx context.Context, domain string) (*RegistrationRecord, error)

	// SetRegistration caches a registration record for a domain.
	SetRegistration(ctx context.Context, domain string, rec *RegistrationRecord, ttl time.Duration) error

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// CacheConfig holds configuration for cache initialization.
type CacheConfig struct {
	// Type is the cache type: "memory" or "redis"
	Type string

	// Local LRU cache settings
	LocalMaxSize int

	// TTL applied to cached registration records
	RegistrationTTL time.Duration

	// Redis settings
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}
