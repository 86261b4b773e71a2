package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/ptzburn/junction25/internal/domain"
)

// LookupCache memoizes expensive computations by content key. Values are
// stored as JSON in a CacheRepository; concurrent misses for the same key
// share a single in-flight computation.
type LookupCache[T any] struct {
	store     domain.CacheRepository
	namespace string
	ttl       time.Duration
	group     singleflight.Group
	logger    *zap.Logger
	metrics   Metrics
}

// NewLookupCache creates a cache over store. Keys are prefixed with namespace.
// A zero ttl stores entries without expiry.
func NewLookupCache[T any](store domain.CacheRepository, namespace string, ttl time.Duration, logger *zap.Logger, metrics Metrics) *LookupCache[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LookupCache[T]{
		store:     store,
		namespace: namespace,
		ttl:       ttl,
		logger:    logger.With(zap.String("cache", namespace)),
		metrics:   metricsOrNop(metrics),
	}
}

// GetOrCompute returns the stored value for key, or runs compute and stores
// its result. The boolean is true only when the value came from the store.
// Errors from compute are returned as-is and never cached. Store failures are
// logged and degrade to a plain compute.
//
// compute runs detached from the caller's cancellation so an abandoned
// request still fills the cache for the next identical one.
func (c *LookupCache[T]) GetOrCompute(ctx context.Context, key string, compute func(ctx context.Context) (T, error)) (T, bool, error) {
	fullKey := c.namespace + ":" + key

	if value, ok := c.load(ctx, fullKey); ok {
		return value, true, nil
	}

	res, err, shared := c.group.Do(fullKey, func() (interface{}, error) {
		value, err := compute(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		c.save(context.WithoutCancel(ctx), fullKey, value)
		return value, nil
	})
	if err != nil {
		var zero T
		return zero, false, err
	}
	if shared {
		c.logger.Debug("shared in-flight computation", zap.String("key", fullKey))
	}

	return res.(T), false, nil
}

func (c *LookupCache[T]) load(ctx context.Context, key string) (T, bool) {
	var value T

	data, err := c.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, domain.ErrCacheMiss) {
			c.metrics.CacheLookup(c.namespace, CacheMiss)
		} else {
			c.metrics.CacheLookup(c.namespace, CacheError)
			c.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		}
		return value, false
	}

	if err := json.Unmarshal(data, &value); err != nil {
		c.metrics.CacheLookup(c.namespace, CacheError)
		c.logger.Warn("dropping corrupt cache entry", zap.String("key", key), zap.Error(err))
		if err := c.store.Delete(ctx, key); err != nil {
			c.logger.Warn("cache delete failed", zap.String("key", key), zap.Error(err))
		}
		var zero T
		return zero, false
	}

	c.metrics.CacheLookup(c.namespace, CacheHit)
	return value, true
}

func (c *LookupCache[T]) save(ctx context.Context, key string, value T) {
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Error("cache encode failed", zap.String("key", key), zap.Error(err))
		return
	}
	// Log but don't fail if caching fails
	if err := c.store.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// CacheKey builds a deterministic content digest from request fields.
// Each field is trimmed and has inner whitespace collapsed before hashing.
func CacheKey(fields ...string) string {
	normalized := make([]string, len(fields))
	for i, f := range fields {
		normalized[i] = strings.Join(strings.Fields(f), " ")
	}
	sum := sha256.Sum256([]byte(strings.Join(normalized, ":")))
	return hex.EncodeToString(sum[:])
}

// listField folds a list into a single CacheKey field. Blank entries are
// dropped; order is kept because it reaches the analyzer prompt as-is.
func listField(values []string) string {
	return strings.Join(nonBlank(values), "\x1f")
}
