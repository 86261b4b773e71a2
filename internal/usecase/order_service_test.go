package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ptzburn/junction25/internal/domain"
)

func newOrderFixture(t *testing.T, analyzer *MockAnalyzer) (*OrderService, *MockCacheRepository) {
	t.Helper()

	dishes := dishIndex(t,
		domain.Dish{Name: "Sushi", Description: "fresh rolls", Ingredients: []string{"rice", "nori", "salmon"}},
		domain.Dish{Name: "Burger", Description: "classic burger", Ingredients: []string{"beef", "bun"}},
		domain.Dish{Name: "Margherita Pizza", Description: "wood fired", Ingredients: []string{"tomato", "basil", "mozzarella"}},
	)
	stock := stockIndex(t,
		stockFixture{id: 5, name: "Lager Beer", embedding: unit(3, 0)},
		stockFixture{id: 6, name: "Potato Chips", embedding: unit(3, 1)},
	)
	provider := NewMockEmbeddingProvider(map[string][]float64{
		"beer":  unit(3, 0),
		"chips": unit(3, 1),
	}, unit(3, 2))

	fallback := NewMarketFallback(
		NewIngredientMatcher(provider, stock, nil, nil),
		NewQueryPreprocessor([]string{"beer", "chips"}),
		MarketFallbackConfig{Limit: 3},
		nil, nil,
	)

	store := NewMockCacheRepository()
	var a domain.GenerativeAnalyzer
	if analyzer != nil {
		a = analyzer
	}
	return NewOrderService(a, dishes, fallback, store, time.Hour, nil, nil), store
}

func TestSuggestOrder_TextOnly(t *testing.T) {
	svc, _ := newOrderFixture(t, nil)

	got, err := svc.SuggestOrder(context.Background(), SuggestOrderRequest{Notes: "craving a beef burger"})
	require.NoError(t, err)
	require.Len(t, got.Dishes, 1)
	assert.Equal(t, "Burger", got.Dishes[0].Dish.Name)
	assert.False(t, got.NoMatch)
	assert.Nil(t, got.Analysis)
	assert.Empty(t, got.FallbackReason)
}

func TestSuggestOrder_LimitAndZeroScores(t *testing.T) {
	svc, _ := newOrderFixture(t, nil)

	got, err := svc.SuggestOrder(context.Background(), SuggestOrderRequest{
		Ingredients: []string{"tomato", "beef"},
		Limit:       3,
	})
	require.NoError(t, err)

	// sushi shares nothing with the query and is dropped
	require.Len(t, got.Dishes, 2)
	for _, d := range got.Dishes {
		assert.NotEqual(t, "Sushi", d.Dish.Name)
	}
}

func TestSuggestOrder_Fallback(t *testing.T) {
	t.Run("no dish matched", func(t *testing.T) {
		svc, _ := newOrderFixture(t, nil)

		got, err := svc.SuggestOrder(context.Background(), SuggestOrderRequest{Notes: "some chips"})
		require.NoError(t, err)
		assert.True(t, got.NoMatch)
		assert.Empty(t, got.Dishes)
		assert.Equal(t, FallbackReasonNoMatch, got.FallbackReason)
		require.Len(t, got.MarketItems, 1)
		assert.Equal(t, 6, got.MarketItems[0].ID)
	})

	t.Run("market keyword next to a dish", func(t *testing.T) {
		svc, _ := newOrderFixture(t, nil)

		got, err := svc.SuggestOrder(context.Background(), SuggestOrderRequest{Notes: "burger with beer"})
		require.NoError(t, err)
		require.Len(t, got.Dishes, 1)
		assert.Equal(t, FallbackReasonKeyword, got.FallbackReason)
		require.NotEmpty(t, got.MarketItems)
		assert.Equal(t, 5, got.MarketItems[0].ID)
	})
}

func TestSuggestOrder_Image(t *testing.T) {
	analyzer := &MockAnalyzer{result: &domain.DishAnalysis{Ingredients: []string{"Tomato", "Basil"}}}
	svc, store := newOrderFixture(t, analyzer)

	req := SuggestOrderRequest{ImageData: []byte{0x89, 0x50, 0x4e, 0x47}, MimeType: "image/png"}

	first, err := svc.SuggestOrder(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, first.Analysis)
	require.Len(t, first.Dishes, 1)
	assert.Equal(t, "Margherita Pizza", first.Dishes[0].Dish.Name)
	assert.False(t, first.Cached)

	second, err := svc.SuggestOrder(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, int32(1), analyzer.calls.Load())
	assert.Len(t, store.keys(), 1)

	require.Len(t, analyzer.inputs, 1)
	assert.Equal(t, "image/png", analyzer.inputs[0].MimeType)
}

func TestSuggestOrder_ImageKeyIncludesIngredients(t *testing.T) {
	analyzer := &MockAnalyzer{result: &domain.DishAnalysis{Ingredients: []string{"Tomato"}}}
	svc, store := newOrderFixture(t, analyzer)
	image := []byte{0x89, 0x50, 0x4e, 0x47}

	first, err := svc.SuggestOrder(context.Background(), SuggestOrderRequest{ImageData: image, Ingredients: []string{"beef"}})
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := svc.SuggestOrder(context.Background(), SuggestOrderRequest{ImageData: image, Ingredients: []string{"tofu"}})
	require.NoError(t, err)
	assert.False(t, second.Cached)

	assert.Equal(t, int32(2), analyzer.calls.Load())
	assert.Len(t, store.keys(), 2)
	require.Len(t, analyzer.inputs, 2)
	assert.Equal(t, []string{"tofu"}, analyzer.inputs[1].Ingredients)
}

func TestSuggestOrder_Errors(t *testing.T) {
	t.Run("empty request", func(t *testing.T) {
		svc, _ := newOrderFixture(t, nil)

		_, err := svc.SuggestOrder(context.Background(), SuggestOrderRequest{Ingredients: []string{" "}})
		assert.ErrorIs(t, err, domain.ErrInvalidRequest)
	})

	t.Run("image without analyzer", func(t *testing.T) {
		svc, _ := newOrderFixture(t, nil)

		_, err := svc.SuggestOrder(context.Background(), SuggestOrderRequest{ImageURL: "https://example.com/a.jpg"})
		assert.ErrorIs(t, err, domain.ErrInvalidRequest)
	})

	t.Run("analyzer failure", func(t *testing.T) {
		analyzer := &MockAnalyzer{err: domain.NewProviderError("analyzer", "analyze", errors.New("bad json"))}
		svc, _ := newOrderFixture(t, analyzer)

		got, err := svc.SuggestOrder(context.Background(), SuggestOrderRequest{ImageURL: "https://example.com/a.jpg"})
		assert.Nil(t, got)
		assert.True(t, domain.IsProviderError(err))
	})
}

func TestMergeIngredients(t *testing.T) {
	got := mergeIngredients([]string{"Tomato", " "}, []string{"tomato", "basil", ""})
	assert.Equal(t, []string{"Tomato", "basil"}, got)
}
