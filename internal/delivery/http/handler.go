package http

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ptzburn/junction25/internal/domain"
	"github.com/ptzburn/junction25/internal/usecase"
)

const noMatchMessage = "no matches, try rephrasing"

// Services are the usecases the handler exposes. Any of them may be nil,
// in which case its endpoints answer 501.
type Services struct {
	Dishes   *usecase.DishSearchService
	Analysis *usecase.AnalysisService
	Orders   *usecase.OrderService
	Stock    *usecase.IngredientMatcher
	Market   *usecase.MarketFallback
}

// Defaults are applied when a request leaves topK or minScore unset
type Defaults struct {
	DishTopK      int
	DishMinScore  float64
	StockTopK     int
	StockMinScore float64
}

// CatalogSizes is reported by the health check
type CatalogSizes struct {
	Dishes int `json:"dishes"`
	Stock  int `json:"stock"`
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	services Services
	defaults Defaults
	catalogs CatalogSizes
	logger   *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(services Services, defaults Defaults, catalogs CatalogSizes, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		services: services,
		defaults: defaults,
		catalogs: catalogs,
		logger:   logger,
	}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"service":  "junction25",
		"version":  "1.0.0",
		"catalogs": h.catalogs,
	})
}

// SearchDishesRequest is the body of POST /dishes/search
type SearchDishesRequest struct {
	Query    string   `json:"query" binding:"required"`
	TopK     *int     `json:"topK" binding:"omitempty,gte=0,lte=50"`
	MinScore *float64 `json:"minScore" binding:"omitempty,gte=-1,lte=1"`
}

// SearchDishes handles semantic dish search requests
func (h *Handler) SearchDishes(c *gin.Context) {
	if h.services.Dishes == nil {
		notConfigured(c, "dish search")
		return
	}

	var req SearchDishesRequest
	if !bindJSON(c, &req) {
		return
	}

	topK := intOr(req.TopK, h.defaults.DishTopK)
	minScore := floatOr(req.MinScore, h.defaults.DishMinScore)

	result, err := h.services.Dishes.SearchDishes(c.Request.Context(), req.Query, topK, minScore)
	if err != nil {
		h.respondError(c, err)
		return
	}

	body := gin.H{
		"matches": result.Matches,
		"noMatch": result.NoMatch,
	}
	addFallback(body, result.MarketItems, result.FallbackReason)
	if result.NoMatch {
		body["message"] = noMatchMessage
	}
	c.JSON(http.StatusOK, body)
}

// AnalyzeDishRequest is the body of POST /dishes/analyze
type AnalyzeDishRequest struct {
	DishName    string   `json:"dishName" binding:"required"`
	ImageURL    string   `json:"imageUrl" binding:"required"`
	Description string   `json:"description"`
	Ingredients []string `json:"ingredients" binding:"max=50"`
}

// AnalyzeDish handles dish analysis requests
func (h *Handler) AnalyzeDish(c *gin.Context) {
	if h.services.Analysis == nil {
		notConfigured(c, "dish analysis")
		return
	}

	var req AnalyzeDishRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.services.Analysis.AnalyzeDish(c.Request.Context(), usecase.AnalyzeDishRequest{
		DishName:    req.DishName,
		ImageURL:    req.ImageURL,
		Description: req.Description,
		Ingredients: req.Ingredients,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// SuggestOrderRequest is the body of POST /orders/suggest. ImageBase64 may
// be raw base64 or a data URI.
type SuggestOrderRequest struct {
	ImageURL    string   `json:"imageUrl" binding:"omitempty,url"`
	ImageBase64 string   `json:"imageBase64"`
	MimeType    string   `json:"mimeType"`
	Notes       string   `json:"notes"`
	Ingredients []string `json:"ingredients"`
	Limit       int      `json:"limit" binding:"gte=0,lte=20"`
}

// SuggestOrder handles photo and text order suggestions
func (h *Handler) SuggestOrder(c *gin.Context) {
	if h.services.Orders == nil {
		notConfigured(c, "order suggestions")
		return
	}

	var req SuggestOrderRequest
	if !bindJSON(c, &req) {
		return
	}

	data, mimeType, err := decodeImage(req.ImageBase64, req.MimeType)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.services.Orders.SuggestOrder(c.Request.Context(), usecase.SuggestOrderRequest{
		ImageURL:    req.ImageURL,
		ImageData:   data,
		MimeType:    mimeType,
		Notes:       req.Notes,
		Ingredients: req.Ingredients,
		Limit:       req.Limit,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	body := gin.H{
		"dishes":  result.Dishes,
		"noMatch": result.NoMatch,
		"cached":  result.Cached,
	}
	if result.Analysis != nil {
		body["analysis"] = result.Analysis
	}
	addFallback(body, result.MarketItems, result.FallbackReason)
	if result.NoMatch {
		body["message"] = noMatchMessage
	}
	c.JSON(http.StatusOK, body)
}

// MatchStockRequest is the body of POST /stock/match
type MatchStockRequest struct {
	Ingredients []string `json:"ingredients" binding:"required,min=1,max=50"`
	TopK        *int     `json:"topK" binding:"omitempty,gte=0,lte=10"`
	MinScore    *float64 `json:"minScore" binding:"omitempty,gte=-1,lte=1"`
}

// MatchStock maps ingredients to stock items
func (h *Handler) MatchStock(c *gin.Context) {
	if h.services.Stock == nil {
		notConfigured(c, "stock matching")
		return
	}

	var req MatchStockRequest
	if !bindJSON(c, &req) {
		return
	}

	topK := intOr(req.TopK, h.defaults.StockTopK)
	minScore := floatOr(req.MinScore, h.defaults.StockMinScore)

	items, err := h.services.Stock.Match(c.Request.Context(), req.Ingredients, topK, minScore)
	if err != nil {
		h.respondError(c, err)
		return
	}

	body := gin.H{"items": items, "noMatch": len(items) == 0}
	if len(items) == 0 {
		body["message"] = noMatchMessage
	}
	c.JSON(http.StatusOK, body)
}

// RecommendMarketRequest is the body of POST /market/recommend
type RecommendMarketRequest struct {
	Notes       string   `json:"notes"`
	Ingredients []string `json:"ingredients"`
	Limit       int      `json:"limit" binding:"gte=0,lte=50"`
}

// RecommendMarket returns market items for free text and ingredients
func (h *Handler) RecommendMarket(c *gin.Context) {
	if h.services.Market == nil {
		notConfigured(c, "market recommendations")
		return
	}

	var req RecommendMarketRequest
	if !bindJSON(c, &req) {
		return
	}
	if strings.TrimSpace(req.Notes) == "" && len(req.Ingredients) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "notes or ingredients are required"})
		return
	}

	limit := req.Limit
	if limit == 0 {
		limit = h.services.Market.Limit()
	}

	items, err := h.services.Market.Recommend(c.Request.Context(), usecase.FallbackContext{
		Notes:       req.Notes,
		Ingredients: req.Ingredients,
	}, limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// respondError maps usecase errors to HTTP responses. Provider failures are
// reported as retryable, never as an empty result.
func (h *Handler) respondError(c *gin.Context, err error) {
	_ = c.Error(err)

	var pe *domain.ProviderError
	switch {
	case errors.As(err, &pe):
		h.logger.Warn("provider failure",
			zap.String("provider", pe.Provider),
			zap.String("operation", pe.Op),
			zap.Error(pe.Err),
		)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":     "upstream service unavailable, try again",
			"retryable": pe.Retryable(),
		})
	case errors.Is(err, domain.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrCatalogNotLoaded):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error(), "retryable": false})
	default:
		h.logger.Error("request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid request: %v", err)})
		return false
	}
	return true
}

func notConfigured(c *gin.Context, feature string) {
	c.JSON(http.StatusNotImplemented, gin.H{"error": feature + " is not configured"})
}

func addFallback(body gin.H, items []domain.MatchedStockItem, reason string) {
	if reason == "" {
		return
	}
	if items == nil {
		items = []domain.MatchedStockItem{}
	}
	body["marketItems"] = items
	body["fallbackReason"] = reason
}

// decodeImage accepts raw base64 or a data:<mime>;base64,<data> URI
func decodeImage(encoded, mimeType string) ([]byte, string, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return nil, mimeType, nil
	}

	if rest, ok := strings.CutPrefix(encoded, "data:"); ok {
		header, payload, found := strings.Cut(rest, ",")
		if !found || !strings.HasSuffix(header, ";base64") {
			return nil, "", errors.New("imageBase64 must be a base64 data URI")
		}
		if mimeType == "" {
			mimeType = strings.TrimSuffix(header, ";base64")
		}
		encoded = payload
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, "", fmt.Errorf("imageBase64 is not valid base64: %w", err)
	}
	if mimeType != "" && !strings.HasPrefix(mimeType, "image/") {
		return nil, "", fmt.Errorf("unsupported mime type %q", mimeType)
	}
	return data, mimeType, nil
}

func intOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}

func floatOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}
