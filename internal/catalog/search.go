package catalog

import (
	"fmt"
	"sort"

	"github.com/ptzburn/junction25/internal/domain"
	"github.com/ptzburn/junction25/internal/vecmath"
)

// Search returns at most topK entries whose cosine similarity to query is at
// least minScore, sorted by descending score. Ties keep catalog order.
// An empty index or non-positive topK yields an empty result, not an error.
func Search[T domain.Identifiable](idx *Index[T], query []float64, topK int, minScore float64) ([]domain.SimilarityMatch[T], error) {
	if idx.Size() == 0 || topK <= 0 {
		return []domain.SimilarityMatch[T]{}, nil
	}

	if len(query) != idx.dimensions {
		return nil, fmt.Errorf("%w: query has %d dimensions, catalog %q has %d",
			domain.ErrDimensionMismatch, len(query), idx.name, idx.dimensions)
	}

	matches := make([]domain.SimilarityMatch[T], 0, len(idx.entries))
	for _, entry := range idx.entries {
		score := vecmath.CosineSimilarity(query, entry.Embedding)
		if score < minScore {
			continue
		}
		matches = append(matches, domain.SimilarityMatch[T]{
			Item:  entry.Item,
			Score: domain.Score(score),
		})
	}

	sort.SliceStable(matches, func(a, b int) bool {
		return matches[a].Score > matches[b].Score
	})

	if len(matches) > topK {
		matches = matches[:topK]
	}

	return matches, nil
}
