// Package catalog holds the immutable in-memory embedding indexes for dishes
// and stock items, their fixture loaders, and similarity search over them.
package catalog

import (
	"fmt"

	"github.com/ptzburn/junction25/internal/domain"
)

// Catalog names
const (
	Dishes = "dishes"
	Stock  = "stock"
)

// Index is an immutable, process-lifetime snapshot of catalog entries.
// It is safe for concurrent reads without synchronization.
type Index[T domain.Identifiable] struct {
	name       string
	dimensions int
	entries    []domain.CatalogEntry[T]
}

// NewIndex validates entries and builds an index. When dimensions is 0 it is
// inferred from the first entry. Embeddings are copied so later mutation of
// the input cannot leak into the index.
func NewIndex[T domain.Identifiable](name string, dimensions int, entries []domain.CatalogEntry[T]) (*Index[T], error) {
	if dimensions < 0 {
		return nil, &domain.SchemaError{Catalog: name, Index: -1, Reason: fmt.Sprintf("invalid dimensions %d", dimensions)}
	}
	if dimensions == 0 && len(entries) > 0 {
		dimensions = len(entries[0].Embedding)
	}

	seen := make(map[string]int, len(entries))
	copied := make([]domain.CatalogEntry[T], len(entries))

	for i, entry := range entries {
		if len(entry.Embedding) == 0 {
			return nil, &domain.SchemaError{Catalog: name, Index: i, Field: "embedding", Reason: "missing"}
		}
		if len(entry.Embedding) != dimensions {
			return nil, &domain.SchemaError{
				Catalog: name,
				Index:   i,
				Field:   "embedding",
				Reason:  fmt.Sprintf("length %d, want %d", len(entry.Embedding), dimensions),
			}
		}

		id := entry.Item.CatalogID()
		if prev, dup := seen[id]; dup {
			return nil, &domain.SchemaError{
				Catalog: name,
				Index:   i,
				Field:   "id",
				Reason:  fmt.Sprintf("duplicate id %q (first seen at record %d)", id, prev),
			}
		}
		seen[id] = i

		embedding := make([]float64, len(entry.Embedding))
		copy(embedding, entry.Embedding)
		copied[i] = domain.CatalogEntry[T]{Item: entry.Item, Embedding: embedding}
	}

	return &Index[T]{
		name:       name,
		dimensions: dimensions,
		entries:    copied,
	}, nil
}

// Name returns the catalog name ("dishes", "stock").
func (i *Index[T]) Name() string { return i.name }

// Dimensions returns the fixed embedding length of every entry.
func (i *Index[T]) Dimensions() int { return i.dimensions }

// Size returns the number of entries.
func (i *Index[T]) Size() int {
	if i == nil {
		return 0
	}
	return len(i.entries)
}

// Entries returns the entries in insertion order. The returned slice is a
// copy; the embeddings it references must be treated as read-only.
func (i *Index[T]) Entries() []domain.CatalogEntry[T] {
	out := make([]domain.CatalogEntry[T], len(i.entries))
	copy(out, i.entries)
	return out
}

// Items returns the catalog records without embeddings, in insertion order.
func (i *Index[T]) Items() []T {
	out := make([]T, len(i.entries))
	for idx, entry := range i.entries {
		out[idx] = entry.Item
	}
	return out
}
