package usecase

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/ptzburn/junction25/internal/domain"
)

// Fallback trigger reasons
const (
	FallbackReasonNoMatch  = "no_match"
	FallbackReasonLowScore = "low_score"
	FallbackReasonKeyword  = "keyword"
)

// MarketFallbackConfig holds configuration for the market fallback
type MarketFallbackConfig struct {
	TopK           int     // stock matches per keyword
	MinScore       float64 // similarity floor per keyword
	ScoreThreshold float64 // best dish score below this triggers the fallback
	Limit          int     // default number of recommended items
}

// FallbackContext is the query a market recommendation is derived from
type FallbackContext struct {
	Notes       string
	Ingredients []string
}

// MarketFallback recommends plain stock items when dish matching comes up
// empty or the query looks like a grocery request.
type MarketFallback struct {
	matcher      *IngredientMatcher
	preprocessor *QueryPreprocessor
	config       MarketFallbackConfig
	logger       *zap.Logger
	metrics      Metrics
}

// NewMarketFallback creates a market fallback with defaults applied.
func NewMarketFallback(
	matcher *IngredientMatcher,
	preprocessor *QueryPreprocessor,
	config MarketFallbackConfig,
	logger *zap.Logger,
	metrics Metrics,
) *MarketFallback {
	if config.TopK <= 0 {
		config.TopK = 1
	}
	if config.MinScore == 0 {
		config.MinScore = 0.5
	}
	if config.ScoreThreshold == 0 {
		config.ScoreThreshold = 0.15
	}
	if config.Limit <= 0 {
		config.Limit = 5
	}
	if preprocessor == nil {
		preprocessor = NewQueryPreprocessor(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &MarketFallback{
		matcher:      matcher,
		preprocessor: preprocessor,
		config:       config,
		logger:       logger,
		metrics:      metricsOrNop(metrics),
	}
}

// Limit returns the configured default recommendation size.
func (f *MarketFallback) Limit() int { return f.config.Limit }

// ShouldRecommend applies the trigger policy: nothing matched, the best
// match scored below the threshold, or the query text names a market
// keyword. It returns the reason when the fallback should be shown.
func (f *MarketFallback) ShouldRecommend(matched int, bestScore float64, queryText string) (string, bool) {
	switch {
	case matched == 0:
		return FallbackReasonNoMatch, true
	case bestScore < f.config.ScoreThreshold:
		return FallbackReasonLowScore, true
	}

	if kw, ok := f.preprocessor.MarketKeyword(queryText); ok {
		f.logger.Debug("market keyword in query", zap.String("keyword", kw))
		return FallbackReasonKeyword, true
	}
	return "", false
}

// Recommend returns at most limit stock items (at least one slot) for the
// keywords in fc, best score first. It returns an empty list when fc has
// no usable keywords.
func (f *MarketFallback) Recommend(ctx context.Context, fc FallbackContext, limit int) ([]domain.MatchedStockItem, error) {
	keywords := f.preprocessor.Keywords(fc.Notes, fc.Ingredients)
	if len(keywords) == 0 {
		return []domain.MatchedStockItem{}, nil
	}

	items, err := f.matcher.Match(ctx, keywords, f.config.TopK, f.config.MinScore)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(items, func(a, b int) bool {
		return items[a].Score > items[b].Score
	})

	if limit < 1 {
		limit = 1
	}
	if len(items) > limit {
		items = items[:limit]
	}

	return items, nil
}

// recommendIfNeeded runs the trigger policy and, when it fires, the
// recommendation. It is shared by the dish search and order flows.
func (f *MarketFallback) recommendIfNeeded(ctx context.Context, matched int, bestScore float64, fc FallbackContext) ([]domain.MatchedStockItem, string, error) {
	if f == nil {
		return nil, "", nil
	}

	queryText := fc.Notes
	for _, ing := range fc.Ingredients {
		queryText += " " + ing
	}

	reason, ok := f.ShouldRecommend(matched, bestScore, queryText)
	if !ok {
		return nil, "", nil
	}
	f.metrics.FallbackTriggered(reason)

	items, err := f.Recommend(ctx, fc, f.config.Limit)
	if err != nil {
		return nil, reason, err
	}
	return items, reason, nil
}
