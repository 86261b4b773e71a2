// Package embedding implements domain.EmbeddingProvider against an
// OpenAI-compatible /embeddings endpoint.
package embedding

import (
	"context"
	"fmt"
	"sort"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/ptzburn/junction25/internal/domain"
	"github.com/ptzburn/junction25/internal/infrastructure/metrics"
	"github.com/ptzburn/junction25/internal/infrastructure/openaicompat"
	"github.com/ptzburn/junction25/internal/vecmath"
)

const (
	providerName = "embedding"
	opEmbed      = "embed"

	// DefaultModel is Gemini's text embedding model
	DefaultModel = "gemini-embedding-001"

	// maxBatchSize caps the number of inputs per request
	maxBatchSize = 100
)

// Config configures the embedding client
type Config struct {
	openaicompat.Config
	Model      string
	Dimensions int // expected vector length, 0 accepts whatever the model returns
}

// Client handles communication with the embedding API
type Client struct {
	api        *openai.Client
	caller     *openaicompat.Caller
	model      string
	dimensions int
	logger     *zap.Logger
}

// NewClient creates a new embedding client
func NewClient(cfg Config, logger *zap.Logger, recorder *metrics.Recorder) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	return &Client{
		api:        openaicompat.NewClient(cfg.Config),
		caller:     openaicompat.NewCaller(providerName, cfg.Config, logger, recorder),
		model:      model,
		dimensions: cfg.Dimensions,
		logger:     logger.With(zap.String("component", "embedding")),
	}
}

// Embed returns one unit-length vector per text, in input order.
// Large inputs are split into several requests.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float64, 0, len(texts))
	for start := 0; start < len(texts); start += maxBatchSize {
		end := min(start+maxBatchSize, len(texts))

		batch, err := c.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, batch...)
	}

	c.logger.Debug("embedded texts", zap.Int("count", len(texts)))
	return vectors, nil
}

func (c *Client) embedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	req := openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(c.model),
	}
	if c.dimensions > 0 {
		req.Dimensions = c.dimensions
	}

	var vectors [][]float64
	err := c.caller.Do(ctx, opEmbed, func(ctx context.Context) error {
		resp, err := c.api.CreateEmbeddings(ctx, req)
		if err != nil {
			return err
		}
		vectors, err = c.decode(resp, len(texts))
		if err != nil {
			return openaicompat.Permanent(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return vectors, nil
}

// decode orders the response by input index and checks its shape.
func (c *Client) decode(resp openai.EmbeddingResponse, want int) ([][]float64, error) {
	if len(resp.Data) != want {
		return nil, fmt.Errorf("got %d embeddings for %d inputs", len(resp.Data), want)
	}

	data := make([]openai.Embedding, len(resp.Data))
	copy(data, resp.Data)
	sort.SliceStable(data, func(i, j int) bool { return data[i].Index < data[j].Index })

	vectors := make([][]float64, want)
	for i, item := range data {
		if item.Index != i {
			return nil, fmt.Errorf("embedding index %d out of sequence", item.Index)
		}
		if len(item.Embedding) == 0 {
			return nil, fmt.Errorf("embedding %d is empty", i)
		}
		if c.dimensions > 0 && len(item.Embedding) != c.dimensions {
			return nil, fmt.Errorf("embedding %d: %w: got %d, want %d",
				i, domain.ErrDimensionMismatch, len(item.Embedding), c.dimensions)
		}
		vectors[i] = vecmath.Normalize(vecmath.FromFloat32(item.Embedding))
	}
	return vectors, nil
}
