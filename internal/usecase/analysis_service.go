package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ptzburn/junction25/internal/domain"
)

// Cache namespaces
const (
	analysisNamespace = "analysis"
	imageNamespace    = "image"
)

// AnalysisServiceConfig holds configuration for the analysis service
type AnalysisServiceConfig struct {
	CacheTTL      time.Duration
	StockTopK     int
	StockMinScore float64
}

// AnalyzeDishRequest identifies the dish to analyze
type AnalyzeDishRequest struct {
	DishName    string   `json:"dishName"`
	ImageURL    string   `json:"imageUrl"`
	Description string   `json:"description,omitempty"`
	Ingredients []string `json:"ingredients,omitempty"`
}

// AnalysisResult is the analyzed dish plus the stock items that cover its
// ingredients.
type AnalysisResult struct {
	domain.DishAnalysis
	MatchedStockItems []domain.MatchedStockItem `json:"matchedStockItems"`
	Cached            bool                      `json:"cached,omitempty"`
}

// AnalysisService handles dish analysis with caching.
// Flow: check cache -> analyze -> match ingredients to stock -> cache -> return
type AnalysisService struct {
	analyzer domain.GenerativeAnalyzer
	matcher  *IngredientMatcher
	cache    *LookupCache[AnalysisResult]
	config   AnalysisServiceConfig
	logger   *zap.Logger
}

// NewAnalysisService creates a new analysis service with dependencies
func NewAnalysisService(
	analyzer domain.GenerativeAnalyzer,
	matcher *IngredientMatcher,
	store domain.CacheRepository,
	config AnalysisServiceConfig,
	logger *zap.Logger,
	metrics Metrics,
) *AnalysisService {
	if config.StockTopK <= 0 {
		config.StockTopK = 1
	}
	if config.StockMinScore == 0 {
		config.StockMinScore = 0.75
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &AnalysisService{
		analyzer: analyzer,
		matcher:  matcher,
		cache:    NewLookupCache[AnalysisResult](store, analysisNamespace, config.CacheTTL, logger, metrics),
		config:   config,
		logger:   logger,
	}
}

// AnalyzeDish extracts ingredients, instructions and a price estimate for a
// dish and attaches the best stock item per ingredient. Repeated requests with
// the same dish name, image and hints are served from the cache with Cached set.
func (s *AnalysisService) AnalyzeDish(ctx context.Context, req AnalyzeDishRequest) (*AnalysisResult, error) {
	if strings.TrimSpace(req.DishName) == "" {
		return nil, fmt.Errorf("%w: dishName is required", domain.ErrInvalidRequest)
	}

	key := CacheKey(req.DishName, req.ImageURL, req.Description, listField(req.Ingredients))
	result, cached, err := s.cache.GetOrCompute(ctx, key, func(ctx context.Context) (AnalysisResult, error) {
		return s.analyze(ctx, req)
	})
	if err != nil {
		return nil, err
	}

	result.Cached = cached
	if result.MatchedStockItems == nil {
		result.MatchedStockItems = []domain.MatchedStockItem{}
	}

	s.logger.Info("dish analyzed",
		zap.String("dish", req.DishName),
		zap.Int("ingredients", len(result.Ingredients)),
		zap.Int("stock_items", len(result.MatchedStockItems)),
		zap.Bool("cached", cached),
	)

	return &result, nil
}

func (s *AnalysisService) analyze(ctx context.Context, req AnalyzeDishRequest) (AnalysisResult, error) {
	analysis, err := s.analyzer.Analyze(ctx, domain.AnalysisInput{
		DishName:    req.DishName,
		Description: req.Description,
		Ingredients: req.Ingredients,
		ImageURL:    req.ImageURL,
	})
	if err != nil {
		return AnalysisResult{}, err
	}

	matched, err := s.matcher.Match(ctx, analysis.Ingredients, s.config.StockTopK, s.config.StockMinScore)
	if err != nil {
		return AnalysisResult{}, err
	}

	return AnalysisResult{DishAnalysis: *analysis, MatchedStockItems: matched}, nil
}
