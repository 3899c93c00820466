// Package cache stores the outcome of reference lookups so repeated batch
// runs do not hit DOI, arXiv and homepage servers again.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	stderrors "errors"
	"fmt"
	"time"
)

// Cache is implemented by every backend
type Cache interface {
	// Get returns the stored value or an ErrMiss
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value for ttl. A zero ttl uses the backend default and a
	// negative ttl never expires.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	Close() error
}

// Config holds the settings shared by all backends
type Config struct {
	DefaultTTL time.Duration
	Prefix     string
}

// DefaultConfig returns a one-day TTL under the "ufometa:" prefix
func DefaultConfig() Config {
	return Config{
		DefaultTTL: 24 * time.Hour,
		Prefix:     "ufometa:",
	}
}

// ErrMiss is returned when a key is absent or expired
type ErrMiss struct {
	Key string
}

func (e ErrMiss) Error() string {
	return "cache miss: " + e.Key
}

// IsMiss reports whether err is a cache miss
func IsMiss(err error) bool {
	var miss ErrMiss
	return stderrors.As(err, &miss)
}

// ReferenceKey derives the key under which the status of url is stored
func ReferenceKey(url string) string {
	sum := sha256.Sum256([]byte(url))
	return "ref:" + hex.EncodeToString(sum[:])
}

// Options selects and configures a backend
type Options struct {
	Backend string // "memory" or "redis"
	TTL     time.Duration
	Redis   RedisConfig
}

// New builds the backend named by opts.Backend. An empty name means memory.
func New(opts Options) (Cache, error) {
	config := DefaultConfig()
	if opts.TTL != 0 {
		config.DefaultTTL = opts.TTL
	}

	switch opts.Backend {
	case "", "memory":
		return NewMemoryCache(config), nil
	case "redis":
		redisConfig := opts.Redis
		redisConfig.Config = config
		return NewRedisCache(redisConfig)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", opts.Backend)
	}
}
