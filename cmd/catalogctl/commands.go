package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ptzburn/junction25/config"
	"github.com/ptzburn/junction25/internal/catalog"
	"github.com/ptzburn/junction25/internal/domain"
	"github.com/ptzburn/junction25/internal/infrastructure/embedding"
	"github.com/ptzburn/junction25/internal/infrastructure/logging"
	"github.com/ptzburn/junction25/internal/infrastructure/openaicompat"
	"github.com/ptzburn/junction25/internal/vecmath"
)

const (
	kindDish  = "dish"
	kindStock = "stock"
)

func newValidateCmd() *cobra.Command {
	var dishesPath, stockPath string
	var dimensions int

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Load both catalogs and report their sizes",
		RunE: func(cmd *cobra.Command, args []string) error {
			if dishesPath == "" && stockPath == "" {
				return fmt.Errorf("at least one of --dishes or --stock is required")
			}
			out := cmd.OutOrStdout()

			if dishesPath != "" {
				idx, err := catalog.LoadDishesFile(dishesPath, dimensions)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "dishes: %d entries, %d dimensions\n", idx.Size(), idx.Dimensions())
			}
			if stockPath != "" {
				idx, err := catalog.LoadStockFile(stockPath, dimensions)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "stock: %d entries, %d dimensions\n", idx.Size(), idx.Dimensions())
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dishesPath, "dishes", "", "dishes fixture with embeddings")
	cmd.Flags().StringVar(&stockPath, "stock", "", "stock fixture with embeddings")
	cmd.Flags().IntVar(&dimensions, "dimensions", 0, "expected embedding length (0 infers it from the first record)")
	return cmd
}

func newEmbedCmd() *cobra.Command {
	var inPath, outPath, kind string

	cmd := &cobra.Command{
		Use:   "embed",
		Short: "Generate embeddings for a catalog fixture",
		RunE: func(cmd *cobra.Command, args []string) error {
			if kind != kindDish && kind != kindStock {
				return fmt.Errorf("--kind must be %q or %q, got %q", kindDish, kindStock, kind)
			}

			provider, logger, err := newProvider()
			if err != nil {
				return err
			}
			defer logger.Sync()

			in, err := os.Open(inPath)
			if err != nil {
				return err
			}
			defer in.Close()

			out, err := os.Create(outPath)
			if err != nil {
				return err
			}
			defer out.Close()

			var n int
			if kind == kindDish {
				n, err = embedRecords(cmd.Context(), provider, in, out, catalog.Dishes, true, dishText)
			} else {
				n, err = embedRecords(cmd.Context(), provider, in, out, catalog.Stock, false, stockText)
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d %s records to %s\n", n, kind, outPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&inPath, "in", "", "fixture without embeddings")
	cmd.Flags().StringVar(&outPath, "out", "", "output path")
	cmd.Flags().StringVar(&kind, "kind", kindDish, "record kind: dish or stock")
	_ = cmd.MarkFlagRequired("in")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

func newSearchCmd() *cobra.Command {
	var stockPath, dishesPath string
	var topK int
	var minScore float64

	cmd := &cobra.Command{
		Use:   "search [text]",
		Short: "Embed text and print the closest catalog entries",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if dishesPath == "" && stockPath == "" {
				return fmt.Errorf("one of --dishes or --stock is required")
			}

			provider, logger, err := newProvider()
			if err != nil {
				return err
			}
			defer logger.Sync()

			query := strings.Join(args, " ")
			vectors, err := provider.Embed(cmd.Context(), []string{query})
			if err != nil {
				return err
			}
			vector := vecmath.Normalize(vectors[0])
			out := cmd.OutOrStdout()

			if stockPath != "" {
				idx, err := catalog.LoadStockFile(stockPath, len(vector))
				if err != nil {
					return err
				}
				matches, err := catalog.Search(idx, vector, topK, minScore)
				if err != nil {
					return err
				}
				for _, m := range matches {
					fmt.Fprintf(out, "stock  %.4f  #%d %s (%s)\n", float64(m.Score), m.Item.ID, m.Item.Name, m.Item.Category)
				}
			}
			if dishesPath != "" {
				idx, err := catalog.LoadDishesFile(dishesPath, len(vector))
				if err != nil {
					return err
				}
				matches, err := catalog.Search(idx, vector, topK, minScore)
				if err != nil {
					return err
				}
				for _, m := range matches {
					fmt.Fprintf(out, "dish   %.4f  %s\n", float64(m.Score), m.Item.Name)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&stockPath, "stock", "", "stock fixture with embeddings")
	cmd.Flags().StringVar(&dishesPath, "dishes", "", "dishes fixture with embeddings")
	cmd.Flags().IntVar(&topK, "top-k", 5, "maximum number of matches")
	cmd.Flags().Float64Var(&minScore, "min-score", 0.5, "similarity floor")
	return cmd
}

func newProvider() (domain.EmbeddingProvider, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	logger := logging.New(cfg.Server.Environment, cfg.Log.Level)

	client := embedding.NewClient(embedding.Config{
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
	}, logger, nil)
	return client, logger, nil
}

// embedded is a catalog record with its generated embedding appended
type embedded[T any] struct {
	Record    T
	Embedding []float64
}

func (e embedded[T]) MarshalJSON() ([]byte, error) {
	fields := map[string]any{}
	data, err := json.Marshal(e.Record)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	fields["embedding"] = e.Embedding
	return json.Marshal(fields)
}

// embedRecords reads records from r, embeds text(record) for each with
// batched provider calls and writes the records with embeddings to w.
func embedRecords[T any](
	ctx context.Context,
	provider domain.EmbeddingProvider,
	r io.Reader,
	w io.Writer,
	name string,
	allowEnvelope bool,
	text func(T) string,
) (int, error) {
	records, err := catalog.ReadRecords[T](r, name, allowEnvelope)
	if err != nil {
		return 0, err
	}

	texts := make([]string, len(records))
	for i, rec := range records {
		texts[i] = text(rec)
	}

	vectors, err := provider.Embed(ctx, texts)
	if err != nil {
		return 0, err
	}
	if len(vectors) != len(records) {
		return 0, fmt.Errorf("got %d embeddings for %d records", len(vectors), len(records))
	}

	out := make([]embedded[T], len(records))
	for i, rec := range records {
		out[i] = embedded[T]{Record: rec, Embedding: vecmath.Normalize(vectors[i])}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return 0, fmt.Errorf("write %s records: %w", name, err)
	}
	return len(out), nil
}

func dishText(d domain.Dish) string {
	return fmt.Sprintf("%s. %s. Ingredients: %s", d.Name, d.Description, strings.Join(d.Ingredients, ", "))
}

func stockText(s domain.StockItem) string {
	return s.Name + " (" + s.Category + ")"
}
