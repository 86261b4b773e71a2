package catalog

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ptzburn/junction25/internal/domain"
)

func stockEntry(id int, name string, emb ...float64) domain.CatalogEntry[domain.StockItem] {
	return domain.CatalogEntry[domain.StockItem]{
		Item:      domain.StockItem{ID: id, Name: name, Price: 1, Unit: "pcs", Category: "misc"},
		Embedding: emb,
	}
}

func TestNewIndex(t *testing.T) {
	t.Run("infers dimensions from first entry", func(t *testing.T) {
		idx, err := NewIndex(Stock, 0, []domain.CatalogEntry[domain.StockItem]{
			stockEntry(1, "a", 1, 0),
			stockEntry(2, "b", 0, 1),
		})
		require.NoError(t, err)
		assert.Equal(t, 2, idx.Dimensions())
		assert.Equal(t, 2, idx.Size())
		assert.Equal(t, Stock, idx.Name())
	})

	t.Run("rejects negative dimensions", func(t *testing.T) {
		_, err := NewIndex[domain.StockItem](Stock, -1, nil)
		assert.True(t, domain.IsSchemaError(err))
	})

	t.Run("rejects duplicate ids", func(t *testing.T) {
		_, err := NewIndex(Stock, 2, []domain.CatalogEntry[domain.StockItem]{
			stockEntry(1, "a", 1, 0),
			stockEntry(1, "b", 0, 1),
		})

		var se *domain.SchemaError
		require.True(t, errors.As(err, &se))
		assert.Equal(t, 1, se.Index)
		assert.Equal(t, "id", se.Field)
	})

	t.Run("rejects mixed dimensions", func(t *testing.T) {
		_, err := NewIndex(Stock, 0, []domain.CatalogEntry[domain.StockItem]{
			stockEntry(1, "a", 1, 0),
			stockEntry(2, "b", 0, 1, 0),
		})
		assert.True(t, domain.IsSchemaError(err))
	})

	t.Run("copies embeddings", func(t *testing.T) {
		emb := []float64{1, 0}
		idx, err := NewIndex(Stock, 2, []domain.CatalogEntry[domain.StockItem]{
			{Item: domain.StockItem{ID: 1, Name: "a"}, Embedding: emb},
		})
		require.NoError(t, err)

		emb[0] = 42
		assert.Equal(t, []float64{1, 0}, idx.Entries()[0].Embedding)
	})
}

func TestIndex_NilSize(t *testing.T) {
	var idx *Index[domain.Dish]
	assert.Equal(t, 0, idx.Size())
}

func TestIndex_ItemsKeepOrder(t *testing.T) {
	idx, err := NewIndex(Stock, 1, []domain.CatalogEntry[domain.StockItem]{
		stockEntry(3, "c", 1),
		stockEntry(1, "a", 1),
		stockEntry(2, "b", 1),
	})
	require.NoError(t, err)

	var names []string
	for _, item := range idx.Items() {
		names = append(names, item.Name)
	}
	assert.Equal(t, []string{"c", "a", "b"}, names)
}
