package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ptzburn/junction25/internal/catalog"
	"github.com/ptzburn/junction25/internal/domain"
	"github.com/ptzburn/junction25/internal/vecmath"
)

// DishSearchResult is the outcome of a semantic dish search. NoMatch
// distinguishes an empty result from a failure.
type DishSearchResult struct {
	Matches        []domain.SimilarityMatch[domain.Dish] `json:"matches"`
	NoMatch        bool                                  `json:"noMatch"`
	MarketItems    []domain.MatchedStockItem             `json:"marketItems,omitempty"`
	FallbackReason string                                `json:"fallbackReason,omitempty"`
}

// DishSearchService answers free-text dish queries by embedding similarity.
type DishSearchService struct {
	provider domain.EmbeddingProvider
	dishes   *catalog.Index[domain.Dish]
	fallback *MarketFallback
	logger   *zap.Logger
	metrics  Metrics
}

// NewDishSearchService creates a dish search service. fallback may be nil.
func NewDishSearchService(
	provider domain.EmbeddingProvider,
	dishes *catalog.Index[domain.Dish],
	fallback *MarketFallback,
	logger *zap.Logger,
	metrics Metrics,
) *DishSearchService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DishSearchService{
		provider: provider,
		dishes:   dishes,
		fallback: fallback,
		logger:   logger,
		metrics:  metricsOrNop(metrics),
	}
}

// SearchDishes embeds query with a single provider call and returns up to
// topK dishes scoring at least minScore. When the fallback policy fires the
// result also carries market items.
func (s *DishSearchService) SearchDishes(ctx context.Context, query string, topK int, minScore float64) (*DishSearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", domain.ErrInvalidRequest)
	}
	if s.dishes == nil {
		return nil, domain.ErrCatalogNotLoaded
	}

	vectors, err := s.provider.Embed(ctx, []string{query})
	if err != nil {
		if domain.IsProviderError(err) {
			return nil, err
		}
		return nil, domain.NewProviderError(embeddingProviderName, "embed", err)
	}
	if len(vectors) != 1 {
		return nil, domain.NewProviderError(embeddingProviderName, "embed",
			fmt.Errorf("got %d embeddings for 1 query", len(vectors)))
	}

	start := time.Now()
	matches, err := catalog.Search(s.dishes, vecmath.Normalize(vectors[0]), topK, minScore)
	s.metrics.ObserveSearch(catalog.Dishes, time.Since(start))
	if err != nil {
		return nil, domain.NewProviderError(embeddingProviderName, "embed", err)
	}

	result := &DishSearchResult{
		Matches: matches,
		NoMatch: len(matches) == 0,
	}

	best := 0.0
	if len(matches) > 0 {
		best = float64(matches[0].Score)
	}

	items, reason, err := s.fallback.recommendIfNeeded(ctx, len(matches), best, FallbackContext{Notes: query})
	if err != nil {
		return nil, err
	}
	result.MarketItems = items
	result.FallbackReason = reason

	s.logger.Debug("dish search",
		zap.Int("matches", len(matches)),
		zap.Float64("best_score", best),
		zap.String("fallback", reason),
	)

	return result, nil
}
