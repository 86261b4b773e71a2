package domain

import (
	"context"
	"time"
)

// CacheRepository defines the interface for caching serialized results.
// Get returns ErrCacheMiss when the key is absent or expired.
type CacheRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// EmbeddingProvider turns texts into embedding vectors.
// It must return exactly one vector per input text, in input order.
type EmbeddingProvider interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// GenerativeAnalyzer extracts structured dish data from an image and/or text.
type GenerativeAnalyzer interface {
	Analyze(ctx context.Context, input AnalysisInput) (*DishAnalysis, error)
}
