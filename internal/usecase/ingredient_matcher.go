package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ptzburn/junction25/internal/catalog"
	"github.com/ptzburn/junction25/internal/domain"
	"github.com/ptzburn/junction25/internal/vecmath"
)

// embeddingProviderName labels provider errors raised by the matchers
const embeddingProviderName = "embedding"

// IngredientMatcher maps ingredient strings to stock items by embedding
// similarity.
type IngredientMatcher struct {
	provider domain.EmbeddingProvider
	stock    *catalog.Index[domain.StockItem]
	logger   *zap.Logger
	metrics  Metrics
}

// NewIngredientMatcher creates a matcher over the stock catalog.
func NewIngredientMatcher(provider domain.EmbeddingProvider, stock *catalog.Index[domain.StockItem], logger *zap.Logger, metrics Metrics) *IngredientMatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IngredientMatcher{
		provider: provider,
		stock:    stock,
		logger:   logger,
		metrics:  metricsOrNop(metrics),
	}
}

// Match embeds all ingredients in one provider call and searches the stock
// catalog for each of them. A stock item matched by several ingredients is
// reported once, with its highest score and the ingredient that produced it,
// at the position of its first appearance.
//
// Blank ingredients are ignored. Any provider failure, including a response
// whose vectors do not line up with the ingredients, fails the whole call
// with a ProviderError.
func (m *IngredientMatcher) Match(ctx context.Context, ingredients []string, topK int, minScore float64) ([]domain.MatchedStockItem, error) {
	queries := make([]string, 0, len(ingredients))
	for _, ing := range ingredients {
		if ing = strings.TrimSpace(ing); ing != "" {
			queries = append(queries, ing)
		}
	}
	if len(queries) == 0 || topK <= 0 || m.stock.Size() == 0 {
		return []domain.MatchedStockItem{}, nil
	}

	vectors, err := m.provider.Embed(ctx, queries)
	if err != nil {
		if domain.IsProviderError(err) {
			return nil, err
		}
		return nil, domain.NewProviderError(embeddingProviderName, "embed", err)
	}
	if len(vectors) != len(queries) {
		return nil, domain.NewProviderError(embeddingProviderName, "embed",
			fmt.Errorf("got %d embeddings for %d ingredients", len(vectors), len(queries)))
	}

	start := time.Now()
	defer func() { m.metrics.ObserveSearch(catalog.Stock, time.Since(start)) }()

	results := make([]domain.MatchedStockItem, 0, len(queries)*topK)
	position := make(map[int]int)

	for i, ingredient := range queries {
		matches, err := catalog.Search(m.stock, vecmath.Normalize(vectors[i]), topK, minScore)
		if err != nil {
			if errors.Is(err, domain.ErrDimensionMismatch) {
				return nil, domain.NewProviderError(embeddingProviderName, "embed", err)
			}
			return nil, fmt.Errorf("search stock for %q: %w", ingredient, err)
		}

		for _, match := range matches {
			item := domain.NewMatchedStockItem(match.Item, float64(match.Score), ingredient)
			if at, seen := position[item.ID]; seen {
				if item.Score > results[at].Score {
					results[at] = item
				}
				continue
			}
			position[item.ID] = len(results)
			results = append(results, item)
		}
	}

	m.logger.Debug("matched ingredients",
		zap.Int("ingredients", len(queries)),
		zap.Int("items", len(results)),
		zap.Int("top_k", topK),
	)

	return results, nil
}
