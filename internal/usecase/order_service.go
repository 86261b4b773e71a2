package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ptzburn/junction25/internal/catalog"
	"github.com/ptzburn/junction25/internal/domain"
)

// defaultSuggestLimit is how many dishes a suggestion returns by default
const defaultSuggestLimit = 1

// SuggestOrderRequest is a photo and/or text description of what the user
// wants to eat.
type SuggestOrderRequest struct {
	ImageURL    string
	ImageData   []byte
	MimeType    string
	Notes       string
	Ingredients []string
	Limit       int
}

func (r SuggestOrderRequest) hasImage() bool {
	return r.ImageURL != "" || len(r.ImageData) > 0
}

// OrderSuggestion lists the dishes that best fit the request. When the
// fallback policy fires, market items are attached.
type OrderSuggestion struct {
	Analysis       *domain.DishAnalysis      `json:"analysis,omitempty"`
	Dishes         []domain.RankedDish       `json:"dishes"`
	NoMatch        bool                      `json:"noMatch"`
	MarketItems    []domain.MatchedStockItem `json:"marketItems,omitempty"`
	FallbackReason string                    `json:"fallbackReason,omitempty"`
	Cached         bool                      `json:"cached,omitempty"`
}

// OrderService suggests dishes for a photo or a free-text craving.
type OrderService struct {
	analyzer domain.GenerativeAnalyzer
	dishes   *catalog.Index[domain.Dish]
	fallback *MarketFallback
	cache    *LookupCache[domain.DishAnalysis]
	logger   *zap.Logger
	metrics  Metrics
}

// NewOrderService creates an order service. analyzer may be nil when image
// input is not supported; fallback may be nil to disable market items.
func NewOrderService(
	analyzer domain.GenerativeAnalyzer,
	dishes *catalog.Index[domain.Dish],
	fallback *MarketFallback,
	store domain.CacheRepository,
	cacheTTL time.Duration,
	logger *zap.Logger,
	metrics Metrics,
) *OrderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderService{
		analyzer: analyzer,
		dishes:   dishes,
		fallback: fallback,
		cache:    NewLookupCache[domain.DishAnalysis](store, imageNamespace, cacheTTL, logger, metrics),
		logger:   logger,
		metrics:  metricsOrNop(metrics),
	}
}

// SuggestOrder analyzes the image when one is given, merges the extracted
// ingredients with the caller's, and ranks dishes lexically.
func (s *OrderService) SuggestOrder(ctx context.Context, req SuggestOrderRequest) (*OrderSuggestion, error) {
	ingredients := nonBlank(req.Ingredients)
	if !req.hasImage() && len(ingredients) == 0 && strings.TrimSpace(req.Notes) == "" {
		return nil, fmt.Errorf("%w: an image, notes or ingredients are required", domain.ErrInvalidRequest)
	}
	if s.dishes == nil {
		return nil, domain.ErrCatalogNotLoaded
	}

	suggestion := &OrderSuggestion{}

	if req.hasImage() {
		if s.analyzer == nil {
			return nil, fmt.Errorf("%w: image analysis is not configured", domain.ErrInvalidRequest)
		}
		analysis, cached, err := s.analyzeImage(ctx, req)
		if err != nil {
			return nil, err
		}
		suggestion.Analysis = &analysis
		suggestion.Cached = cached
		ingredients = mergeIngredients(ingredients, analysis.Ingredients)
	}

	limit := req.Limit
	if limit <= 0 {
		limit = defaultSuggestLimit
	}

	start := time.Now()
	ranked := RankDishes(s.dishes.Items(), ingredients, req.Notes, limit)
	s.metrics.ObserveSearch(catalog.Dishes, time.Since(start))

	// zero-score dishes share nothing with the query
	dishes := make([]domain.RankedDish, 0, len(ranked))
	for _, r := range ranked {
		if r.MatchScore > 0 {
			dishes = append(dishes, r)
		}
	}
	suggestion.Dishes = dishes
	suggestion.NoMatch = len(dishes) == 0

	best := 0.0
	if len(dishes) > 0 {
		best = float64(dishes[0].MatchScore)
	}

	items, reason, err := s.fallback.recommendIfNeeded(ctx, len(dishes), best, FallbackContext{
		Notes:       req.Notes,
		Ingredients: ingredients,
	})
	if err != nil {
		return nil, err
	}
	suggestion.MarketItems = items
	suggestion.FallbackReason = reason

	s.logger.Info("order suggested",
		zap.Bool("image", req.hasImage()),
		zap.Int("ingredients", len(ingredients)),
		zap.Int("dishes", len(dishes)),
		zap.Float64("best_score", best),
		zap.String("fallback", reason),
	)

	return suggestion, nil
}

func (s *OrderService) analyzeImage(ctx context.Context, req SuggestOrderRequest) (domain.DishAnalysis, bool, error) {
	source := req.ImageURL
	if len(req.ImageData) > 0 {
		sum := sha256.Sum256(req.ImageData)
		source = hex.EncodeToString(sum[:])
	}
	key := CacheKey(source, req.MimeType, req.Notes, listField(req.Ingredients))

	return s.cache.GetOrCompute(ctx, key, func(ctx context.Context) (domain.DishAnalysis, error) {
		analysis, err := s.analyzer.Analyze(ctx, domain.AnalysisInput{
			Description: req.Notes,
			Ingredients: req.Ingredients,
			ImageURL:    req.ImageURL,
			ImageData:   req.ImageData,
			MimeType:    req.MimeType,
		})
		if err != nil {
			return domain.DishAnalysis{}, err
		}
		return *analysis, nil
	})
}

func nonBlank(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// mergeIngredients appends extra to base, skipping case-insensitive duplicates.
func mergeIngredients(base, extra []string) []string {
	seen := make(map[string]bool, len(base)+len(extra))
	out := make([]string, 0, len(base)+len(extra))
	for _, list := range [][]string{base, extra} {
		for _, ing := range nonBlank(list) {
			key := strings.ToLower(ing)
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, ing)
		}
	}
	return out
}
