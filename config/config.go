package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Analyzer  AnalyzerConfig  `mapstructure:"analyzer"`
	Catalog   CatalogConfig   `mapstructure:"catalog"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Matching  MatchingConfig  `mapstructure:"matching"`
	Fallback  FallbackConfig  `mapstructure:"fallback"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Log       LogConfig       `mapstructure:"log"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	Environment     string        `mapstructure:"environment"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// EmbeddingConfig holds the embedding provider configuration
type EmbeddingConfig struct {
	APIKey        string        `mapstructure:"api_key"`
	BaseURL       string        `mapstructure:"base_url"`
	Model         string        `mapstructure:"model"`
	Dimensions    int           `mapstructure:"dimensions"`
	RatePerSecond float64       `mapstructure:"rate_per_second"`
	Burst         int           `mapstructure:"burst"`
	MaxRetries    int           `mapstructure:"max_retries"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

// AnalyzerConfig holds the generative analyzer configuration.
// An empty API key falls back to the embedding key.
type AnalyzerConfig struct {
	APIKey        string        `mapstructure:"api_key"`
	BaseURL       string        `mapstructure:"base_url"`
	Model         string        `mapstructure:"model"`
	RatePerSecond float64       `mapstructure:"rate_per_second"`
	Burst         int           `mapstructure:"burst"`
	MaxRetries    int           `mapstructure:"max_retries"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

// CatalogConfig points at the static catalog fixtures
type CatalogConfig struct {
	DishesPath string `mapstructure:"dishes_path"`
	StockPath  string `mapstructure:"stock_path"`
	Dimensions int    `mapstructure:"dimensions"`
}

// CacheConfig holds cache-related configuration
type CacheConfig struct {
	Type            string        `mapstructure:"type"` // "memory" or "redis"
	RedisURL        string        `mapstructure:"redis_url"`
	TTL             time.Duration `mapstructure:"ttl"`
	MaxEntries      int           `mapstructure:"max_entries"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// MatchingConfig holds similarity search defaults
type MatchingConfig struct {
	DishTopK      int     `mapstructure:"dish_top_k"`
	DishMinScore  float64 `mapstructure:"dish_min_score"`
	StockTopK     int     `mapstructure:"stock_top_k"`
	StockMinScore float64 `mapstructure:"stock_min_score"`
}

// FallbackConfig tunes the market fallback recommender
type FallbackConfig struct {
	TopK           int      `mapstructure:"top_k"`
	MinScore       float64  `mapstructure:"min_score"`
	ScoreThreshold float64  `mapstructure:"score_threshold"`
	Limit          int      `mapstructure:"limit"`
	Keywords       []string `mapstructure:"keywords"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PerIP int `mapstructure:"per_ip"` // requests per minute, 0 disables
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, err
	}

	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/junction25/")

	// JUNCTION25_EMBEDDING_API_KEY -> embedding.api_key
	v.SetEnvPrefix("JUNCTION25")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if config.Analyzer.APIKey == "" {
		config.Analyzer.APIKey = config.Embedding.APIKey
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// loadEnvFile loads ./.env into the process environment when present.
// Variables that are already set are not overridden.
func loadEnvFile() error {
	if _, err := os.Stat(".env"); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(".env"); err != nil {
		return fmt.Errorf("error loading .env file: %w", err)
	}
	return nil
}

// setDefaults sets default configuration values. Every key gets a default
// so AutomaticEnv can resolve it during Unmarshal.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "10s")

	// Provider defaults (Gemini through its OpenAI-compatible endpoint)
	v.SetDefault("embedding.api_key", "")
	v.SetDefault("embedding.base_url", "https://generativelanguage.googleapis.com/v1beta/openai")
	v.SetDefault("embedding.model", "gemini-embedding-001")
	v.SetDefault("embedding.dimensions", 768)
	v.SetDefault("embedding.rate_per_second", 5)
	v.SetDefault("embedding.burst", 10)
	v.SetDefault("embedding.max_retries", 3)
	v.SetDefault("embedding.timeout", "30s")

	v.SetDefault("analyzer.api_key", "")
	v.SetDefault("analyzer.base_url", "https://generativelanguage.googleapis.com/v1beta/openai")
	v.SetDefault("analyzer.model", "gemini-2.5-flash")
	v.SetDefault("analyzer.rate_per_second", 1)
	v.SetDefault("analyzer.burst", 5)
	v.SetDefault("analyzer.max_retries", 3)
	v.SetDefault("analyzer.timeout", "60s")

	// Catalog defaults
	v.SetDefault("catalog.dishes_path", "data/dishes-with-embeddings.json")
	v.SetDefault("catalog.stock_path", "data/stock-with-embeddings.json")
	v.SetDefault("catalog.dimensions", 768)

	// Cache defaults
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.ttl", "720h") // 30 days
	v.SetDefault("cache.max_entries", 10000)
	v.SetDefault("cache.cleanup_interval", "10m")

	// Matching defaults
	v.SetDefault("matching.dish_top_k", 3)
	v.SetDefault("matching.dish_min_score", 0.7)
	v.SetDefault("matching.stock_top_k", 1)
	v.SetDefault("matching.stock_min_score", 0.75)

	// Market fallback defaults
	v.SetDefault("fallback.top_k", 1)
	v.SetDefault("fallback.min_score", 0.5)
	v.SetDefault("fallback.score_threshold", 0.15)
	v.SetDefault("fallback.limit", 5)
	// no default: unset keeps the built-in list, an explicit empty list disables keyword triggers
	_ = v.BindEnv("fallback.keywords")

	// Rate limit defaults
	v.SetDefault("ratelimit.per_ip", 60)

	v.SetDefault("log.level", "info")
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Embedding.APIKey == "" {
		return fmt.Errorf("embedding API key is required (set JUNCTION25_EMBEDDING_API_KEY)")
	}

	if config.Cache.Type != "memory" && config.Cache.Type != "redis" {
		return fmt.Errorf("cache type must be 'memory' or 'redis', got: %s", config.Cache.Type)
	}

	if config.Cache.Type == "redis" && config.Cache.RedisURL == "" {
		return fmt.Errorf("Redis URL is required when cache type is 'redis'")
	}

	if config.Catalog.Dimensions <= 0 || config.Embedding.Dimensions <= 0 {
		return fmt.Errorf("embedding dimensions must be positive")
	}

	if config.Catalog.Dimensions != config.Embedding.Dimensions {
		return fmt.Errorf("catalog dimensions (%d) must equal embedding dimensions (%d)",
			config.Catalog.Dimensions, config.Embedding.Dimensions)
	}

	for name, score := range map[string]float64{
		"matching.dish_min_score":  config.Matching.DishMinScore,
		"matching.stock_min_score": config.Matching.StockMinScore,
		"fallback.min_score":       config.Fallback.MinScore,
	} {
		if score < -1 || score > 1 {
			return fmt.Errorf("%s must be within [-1, 1], got: %v", name, score)
		}
	}

	if config.Matching.DishTopK < 0 || config.Matching.StockTopK < 0 || config.Fallback.TopK < 0 {
		return fmt.Errorf("top-k values must not be negative")
	}

	if config.Fallback.Limit < 0 {
		return fmt.Errorf("fallback limit must not be negative")
	}

	return nil
}
