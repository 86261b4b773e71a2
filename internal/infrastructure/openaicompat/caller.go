// Package openaicompat holds the transport shared by the OpenAI-compatible
// provider clients: client construction, rate limiting and retries.
package openaicompat

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/ptzburn/junction25/internal/domain"
	"github.com/ptzburn/junction25/internal/infrastructure/metrics"
)

// DefaultBaseURL is Gemini's OpenAI-compatible endpoint
const DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai"

// Config holds the connection and throttling settings of one provider
type Config struct {
	APIKey        string
	BaseURL       string
	Timeout       time.Duration
	RatePerSecond float64
	Burst         int
	MaxRetries    int
}

// NewClient creates a go-openai client pointed at cfg.BaseURL.
func NewClient(cfg Config) *openai.Client {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = cfg.BaseURL
	if clientConfig.BaseURL == "" {
		clientConfig.BaseURL = DefaultBaseURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	clientConfig.HTTPClient = &http.Client{Timeout: timeout}

	return openai.NewClientWithConfig(clientConfig)
}

// Caller runs provider operations under a rate limiter with retries on
// transient failures. Failures come back as *domain.ProviderError.
type Caller struct {
	provider   string
	limiter    *rate.Limiter
	maxRetries int
	backoff    func(attempt int) time.Duration
	logger     *zap.Logger
	recorder   *metrics.Recorder
}

// NewCaller creates a caller for the named provider.
func NewCaller(provider string, cfg Config, logger *zap.Logger, recorder *metrics.Recorder) *Caller {
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	retries := cfg.MaxRetries
	if retries <= 0 {
		retries = 3
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Caller{
		provider:   provider,
		limiter:    rate.NewLimiter(limit, burst),
		maxRetries: retries,
		backoff:    exponentialBackoff,
		logger:     logger.With(zap.String("provider", provider)),
		recorder:   recorder,
	}
}

// SetBackoff replaces the retry delay function.
func (c *Caller) SetBackoff(fn func(attempt int) time.Duration) {
	c.backoff = fn
}

// Do runs fn until it succeeds, fails permanently, or the retry budget is
// spent. fn reports permanent failures by returning a non-retryable error.
func (c *Caller) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	start := time.Now()
	err := c.do(ctx, op, fn)
	c.recorder.ProviderCall(c.provider, op, err, time.Since(start))
	return err
}

func (c *Caller) do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return domain.NewProviderError(c.provider, op, fmt.Errorf("rate limiter: %w", err))
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if !Retryable(err) || attempt == c.maxRetries {
			break
		}

		delay := c.backoff(attempt)
		c.logger.Warn("provider call failed, retrying",
			zap.String("operation", op),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", delay),
			zap.Error(err),
		)

		select {
		case <-ctx.Done():
			return domain.NewProviderError(c.provider, op, ctx.Err())
		case <-time.After(delay):
		}
	}

	var pe *domain.ProviderError
	if errors.As(lastErr, &pe) {
		return lastErr
	}
	return domain.NewProviderError(c.provider, op, lastErr)
}

// exponentialBackoff returns 500ms, 1s, 2s, ... for attempts 1, 2, 3, ...
func exponentialBackoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return time.Duration(500<<(attempt-1)) * time.Millisecond
}

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	return &permanentError{err: err}
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Retryable reports whether a failed call may succeed when repeated: rate
// limiting, server errors and network faults are; client errors, malformed
// responses and cancellation are not.
func Retryable(err error) bool {
	var perm *permanentError
	if errors.As(err, &perm) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return retryableStatus(apiErr.HTTPStatusCode)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return retryableStatus(reqErr.HTTPStatusCode)
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}
