package cache

import (
	"fmt"

	"github.com/opensource-security/shrike/internal/domain"
)

// New creates a cache from configuration: local LRU by default, Redis when
// multiple nodes should share registration lookups.
func New(cfg domain.CacheConfig) (domain.Cache, error) {
	switch cfg.Type {
	case "memory":
		return NewLRUCache(cfg.LocalMaxSize), nil

	case "redis":
		return NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)

	default:
		return nil, fmt.Errorf("unsupported cache type: %s", cfg.Type)
	}
}
