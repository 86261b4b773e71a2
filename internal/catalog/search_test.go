package catalog

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ptzburn/junction25/internal/domain"
)

func TestSearch_Ordering(t *testing.T) {
	idx, err := LoadStockFile("testdata/stock.json", 3)
	require.NoError(t, err)

	// closest to "Tomatoes", then "Fresh Basil"
	query := []float64{0.9, 0.4, 0}

	got, err := Search(idx, query, 3, 0.1)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Tomatoes", got[0].Item.Name)
	assert.Equal(t, "Fresh Basil", got[1].Item.Name)
	assert.Greater(t, float64(got[0].Score), float64(got[1].Score))
}

func TestSearch_Scenarios(t *testing.T) {
	dishes, err := LoadDishesFile("testdata/dishes.json", 3)
	require.NoError(t, err)

	t.Run("single exact hit above threshold", func(t *testing.T) {
		got, err := Search(dishes, []float64{0, 1, 0}, 3, 0.7)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "Salmon Maki", got[0].Item.Name)
		assert.InDelta(t, 1.0, float64(got[0].Score), 1e-9)
	})

	t.Run("nothing above threshold yields empty slice", func(t *testing.T) {
		got, err := Search(dishes, []float64{0, -1, 0}, 3, 0.7)
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("threshold is inclusive", func(t *testing.T) {
		got, err := Search(dishes, []float64{0, 1, 0}, 3, 1)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "Salmon Maki", got[0].Item.Name)
	})

	t.Run("partial similarity passes lower threshold", func(t *testing.T) {
		// cos([1,0,0], [0.6,0,0.8]) is 0.6
		got, err := Search(dishes, []float64{1, 0, 0}, 3, 0.59)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "Classic Burger", got[0].Item.Name)
		assert.Equal(t, "Margherita Pizza", got[1].Item.Name)
	})

	t.Run("topK truncates", func(t *testing.T) {
		got, err := Search(dishes, []float64{1, 1, 1}, 1, -1)
		require.NoError(t, err)
		assert.Len(t, got, 1)
	})

	t.Run("non-positive topK", func(t *testing.T) {
		got, err := Search(dishes, []float64{1, 0, 0}, 0, 0)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("query dimension mismatch", func(t *testing.T) {
		_, err := Search(dishes, []float64{1, 0}, 3, 0)
		assert.True(t, errors.Is(err, domain.ErrDimensionMismatch))
	})
}

func TestSearch_EmptyIndex(t *testing.T) {
	idx, err := NewIndex[domain.Dish](Dishes, 768, nil)
	require.NoError(t, err)

	got, err := Search(idx, []float64{1, 2, 3}, 3, 0.7)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSearch_TiesKeepCatalogOrder(t *testing.T) {
	idx, err := NewIndex(Stock, 2, []domain.CatalogEntry[domain.StockItem]{
		stockEntry(1, "first", 1, 1),
		stockEntry(2, "second", 1, 1),
		stockEntry(3, "third", 1, 1),
	})
	require.NoError(t, err)

	got, err := Search(idx, []float64{2, 1}, 3, 0)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "first", got[0].Item.Name)
	assert.Equal(t, "second", got[1].Item.Name)
	assert.Equal(t, "third", got[2].Item.Name)
}

func TestSearch_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	entries := make([]domain.CatalogEntry[domain.StockItem], 50)
	for i := range entries {
		entries[i] = stockEntry(i+1, "item", rng.Float64()-0.5, rng.Float64()-0.5, rng.Float64()-0.5, rng.Float64()-0.5)
	}
	idx, err := NewIndex(Stock, 4, entries)
	require.NoError(t, err)

	for i := 0; i < 100; i++ {
		query := []float64{rng.Float64() - 0.5, rng.Float64() - 0.5, rng.Float64() - 0.5, rng.Float64() - 0.5}
		topK := rng.Intn(10) + 1
		minScore := rng.Float64()*2 - 1

		got, err := Search(idx, query, topK, minScore)
		require.NoError(t, err)
		require.LessOrEqual(t, len(got), topK)

		for j, m := range got {
			require.GreaterOrEqual(t, float64(m.Score), minScore)
			if j > 0 {
				require.GreaterOrEqual(t, float64(got[j-1].Score), float64(m.Score))
			}
		}

		// never more than what passes the threshold in total
		wide, err := Search(idx, query, len(entries), minScore)
		require.NoError(t, err)
		require.Equal(t, min(topK, len(wide)), len(got))
	}
}
