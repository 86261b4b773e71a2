// Package cache provides the CacheRepository stores: an in-process LRU map
// and a Redis-backed store.
package cache

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/ptzburn/junction25/internal/domain"
)

// Store types
const (
	TypeMemory = "memory"
	TypeRedis  = "redis"
)

// Store is a CacheRepository that owns resources released by Close.
type Store interface {
	domain.CacheRepository
	io.Closer
}

// Options selects and configures a Store
type Options struct {
	Type            string
	RedisURL        string
	MaxEntries      int
	CleanupInterval time.Duration
	Logger          *zap.Logger
}

// New builds the store named by opts.Type.
func New(ctx context.Context, opts Options) (Store, error) {
	switch opts.Type {
	case TypeMemory, "":
		return NewMemoryCache(MemoryOptions{
			MaxEntries:      opts.MaxEntries,
			CleanupInterval: opts.CleanupInterval,
			Logger:          opts.Logger,
		}), nil
	case TypeRedis:
		store, err := NewRedisCache(ctx, opts.RedisURL)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown cache type %q", opts.Type)
	}
}
