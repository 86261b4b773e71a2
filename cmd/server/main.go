package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/ptzburn/junction25/config"
	"github.com/ptzburn/junction25/internal/catalog"
	httpDelivery "github.com/ptzburn/junction25/internal/delivery/http"
	"github.com/ptzburn/junction25/internal/infrastructure/analyzer"
	"github.com/ptzburn/junction25/internal/infrastructure/cache"
	"github.com/ptzburn/junction25/internal/infrastructure/embedding"
	"github.com/ptzburn/junction25/internal/infrastructure/logging"
	"github.com/ptzburn/junction25/internal/infrastructure/metrics"
	"github.com/ptzburn/junction25/internal/infrastructure/openaicompat"
	"github.com/ptzburn/junction25/internal/usecase"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Server.Environment, cfg.Log.Level)
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting junction25",
		zap.String("environment", cfg.Server.Environment),
		zap.String("port", cfg.Server.Port),
		zap.String("cache_type", cfg.Cache.Type),
		zap.Duration("cache_ttl", cfg.Cache.TTL),
	)

	// Catalogs are immutable for the process lifetime; corrupt fixtures abort startup
	dishes, err := catalog.LoadDishesFile(cfg.Catalog.DishesPath, cfg.Catalog.Dimensions)
	if err != nil {
		return fmt.Errorf("load dishes: %w", err)
	}
	stock, err := catalog.LoadStockFile(cfg.Catalog.StockPath, cfg.Catalog.Dimensions)
	if err != nil {
		return fmt.Errorf("load stock: %w", err)
	}
	logger.Info("catalogs loaded",
		zap.Int("dishes", dishes.Size()),
		zap.Int("stock", stock.Size()),
		zap.Int("dimensions", cfg.Catalog.Dimensions),
	)

	recorder := metrics.NewRecorder()

	store, err := cache.New(ctx, cache.Options{
		Type:            cfg.Cache.Type,
		RedisURL:        cfg.Cache.RedisURL,
		MaxEntries:      cfg.Cache.MaxEntries,
		CleanupInterval: cfg.Cache.CleanupInterval,
		Logger:          logger,
	})
	if err != nil {
		return fmt.Errorf("init cache: %w", err)
	}
	defer store.Close()

	embedder := embedding.NewClient(embedding.Config{
		Config: openaicompat.Config{
			APIKey:        cfg.Embedding.APIKey,
			BaseURL:       cfg.Embedding.BaseURL,
			Timeout:       cfg.Embedding.Timeout,
			RatePerSecond: cfg.Embedding.RatePerSecond,
			Burst:         cfg.Embedding.Burst,
			MaxRetries:    cfg.Embedding.MaxRetries,
		},
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
	}, logger, recorder)

	dishAnalyzer := analyzer.NewClient(analyzer.Config{
		Config: openaicompat.Config{
			APIKey:        cfg.Analyzer.APIKey,
			BaseURL:       cfg.Analyzer.BaseURL,
			Timeout:       cfg.Analyzer.Timeout,
			RatePerSecond: cfg.Analyzer.RatePerSecond,
			Burst:         cfg.Analyzer.Burst,
			MaxRetries:    cfg.Analyzer.MaxRetries,
		},
		Model: cfg.Analyzer.Model,
	}, logger, recorder)

	// Initialize usecase layer
	matcher := usecase.NewIngredientMatcher(embedder, stock, logger, recorder)
	fallback := usecase.NewMarketFallback(
		matcher,
		usecase.NewQueryPreprocessor(cfg.Fallback.Keywords),
		usecase.MarketFallbackConfig{
			TopK:           cfg.Fallback.TopK,
			MinScore:       cfg.Fallback.MinScore,
			ScoreThreshold: cfg.Fallback.ScoreThreshold,
			Limit:          cfg.Fallback.Limit,
		},
		logger,
		recorder,
	)

	services := httpDelivery.Services{
		Dishes: usecase.NewDishSearchService(embedder, dishes, fallback, logger, recorder),
		Analysis: usecase.NewAnalysisService(dishAnalyzer, matcher, store, usecase.AnalysisServiceConfig{
			CacheTTL:      cfg.Cache.TTL,
			StockTopK:     cfg.Matching.StockTopK,
			StockMinScore: cfg.Matching.StockMinScore,
		}, logger, recorder),
		Orders: usecase.NewOrderService(dishAnalyzer, dishes, fallback, store, cfg.Cache.TTL, logger, recorder),
		Stock:  matcher,
		Market: fallback,
	}
	defaults := httpDelivery.Defaults{
		DishTopK:      cfg.Matching.DishTopK,
		DishMinScore:  cfg.Matching.DishMinScore,
		StockTopK:     cfg.Matching.StockTopK,
		StockMinScore: cfg.Matching.StockMinScore,
	}
	sizes := httpDelivery.CatalogSizes{Dishes: dishes.Size(), Stock: stock.Size()}

	handler := httpDelivery.NewHandler(services, defaults, sizes, logger)
	router := httpDelivery.SetupRouter(cfg, handler, recorder.Handler(), logger)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
