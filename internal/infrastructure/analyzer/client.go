// Package analyzer implements domain.GenerativeAnalyzer on top of an
// OpenAI-compatible chat completion endpoint with image input.
package analyzer

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/ptzburn/junction25/internal/domain"
	"github.com/ptzburn/junction25/internal/infrastructure/metrics"
	"github.com/ptzburn/junction25/internal/infrastructure/openaicompat"
)

const (
	providerName = "analyzer"
	opAnalyze    = "analyze"

	// DefaultModel is a multimodal model that supports JSON output
	DefaultModel = "gemini-2.5-flash"

	maxIngredients = 8
)

const systemPrompt = `You analyze food. Given a dish name, an optional photo and optional reference data, return ONLY a JSON object with:
- "ingredients": array of strings, at most 8 concise ingredient names needed to cook the dish
- "instructions": array of strings, a step-by-step preparation guide
- "totalPrice": number, estimated total price of the ingredients in USD
- "deliveryETA": string, ISO-8601 delivery estimate 10 to 90 minutes from now
No markdown, no extra text.`

// Config configures the analyzer client
type Config struct {
	openaicompat.Config
	Model string
}

// Client calls the generative model and validates its JSON answer
type Client struct {
	api      *openai.Client
	caller   *openaicompat.Caller
	model    string
	validate *validator.Validate
	logger   *zap.Logger
}

// NewClient creates a new analyzer client
func NewClient(cfg Config, logger *zap.Logger, recorder *metrics.Recorder) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	return &Client{
		api:      openaicompat.NewClient(cfg.Config),
		caller:   openaicompat.NewCaller(providerName, cfg.Config, logger, recorder),
		model:    model,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger.With(zap.String("component", "analyzer")),
	}
}

// Analyze asks the model for the ingredients and preparation of a dish.
func (c *Client) Analyze(ctx context.Context, input domain.AnalysisInput) (*domain.DishAnalysis, error) {
	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			userMessage(input),
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	var analysis *domain.DishAnalysis
	err := c.caller.Do(ctx, opAnalyze, func(ctx context.Context) error {
		resp, err := c.api.CreateChatCompletion(ctx, req)
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			return openaicompat.Permanent(errors.New("response has no choices"))
		}

		analysis, err = c.parse(resp.Choices[0].Message.Content)
		if err != nil {
			return openaicompat.Permanent(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.logger.Debug("dish analyzed",
		zap.String("dish", input.DishName),
		zap.Int("ingredients", len(analysis.Ingredients)),
	)
	return analysis, nil
}

// parse decodes and validates the model answer.
func (c *Client) parse(content string) (*domain.DishAnalysis, error) {
	content = stripCodeFence(content)
	if content == "" {
		return nil, errors.New("empty response")
	}

	var analysis domain.DishAnalysis
	if err := json.Unmarshal([]byte(content), &analysis); err != nil {
		return nil, fmt.Errorf("decode analysis: %w", err)
	}

	ingredients := make([]string, 0, len(analysis.Ingredients))
	for _, ing := range analysis.Ingredients {
		if ing = strings.TrimSpace(ing); ing != "" {
			ingredients = append(ingredients, ing)
		}
	}
	if len(ingredients) > maxIngredients {
		ingredients = ingredients[:maxIngredients]
	}
	analysis.Ingredients = ingredients

	if err := c.validate.Struct(&analysis); err != nil {
		return nil, fmt.Errorf("invalid analysis: %w", err)
	}
	return &analysis, nil
}

func userMessage(input domain.AnalysisInput) openai.ChatCompletionMessage {
	var b strings.Builder
	if input.DishName != "" {
		fmt.Fprintf(&b, "Analyze the dish named %q.", input.DishName)
	} else {
		b.WriteString("Analyze the dish.")
	}
	if input.Description != "" {
		fmt.Fprintf(&b, " Official description: %q.", input.Description)
	}
	if len(input.Ingredients) > 0 {
		fmt.Fprintf(&b, " Listed ingredients (may be incomplete): [%s].", strings.Join(input.Ingredients, ", "))
	}

	imageURL := imageReference(input)
	if imageURL == "" {
		return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: b.String()}
	}

	b.WriteString(" Use the photo as the primary source.")
	return openai.ChatCompletionMessage{
		Role: openai.ChatMessageRoleUser,
		MultiContent: []openai.ChatMessagePart{
			{Type: openai.ChatMessagePartTypeText, Text: b.String()},
			{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL:    imageURL,
					Detail: openai.ImageURLDetailAuto,
				},
			},
		},
	}
}

// imageReference returns the image URL, or the inline bytes as a data URI.
func imageReference(input domain.AnalysisInput) string {
	if len(input.ImageData) > 0 {
		mime := input.MimeType
		if mime == "" {
			mime = http.DetectContentType(input.ImageData)
		}
		return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(input.ImageData)
	}
	return input.ImageURL
}

// stripCodeFence removes a markdown ```json fence some models add despite instructions.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
