package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/ptzburn/junction25/internal/domain"
)

func newAnalysisFixture(t *testing.T, analyzer *MockAnalyzer) (*AnalysisService, *MockEmbeddingProvider, *MockCacheRepository) {
	t.Helper()

	stock := stockIndex(t,
		stockFixture{id: 1, name: "Tomatoes", embedding: unit(4, 0)},
		stockFixture{id: 2, name: "Fresh Basil", embedding: unit(4, 1)},
		stockFixture{id: 3, name: "Mozzarella", embedding: unit(4, 2)},
	)
	provider := NewMockEmbeddingProvider(map[string][]float64{
		"tomato":     blend(4, 0, 0.92),
		"basil":      blend(4, 1, 0.8),
		"mozzarella": blend(4, 2, 0.6), // below the 0.75 floor
	}, unit(4, 3))

	store := NewMockCacheRepository()
	svc := NewAnalysisService(analyzer, NewIngredientMatcher(provider, stock, nil, nil), store, AnalysisServiceConfig{}, nil, nil)
	return svc, provider, store
}

func TestAnalyzeDish_InvalidRequest(t *testing.T) {
	svc, _, _ := newAnalysisFixture(t, &MockAnalyzer{})

	_, err := svc.AnalyzeDish(context.Background(), AnalyzeDishRequest{DishName: "  "})
	if !errors.Is(err, domain.ErrInvalidRequest) {
		t.Errorf("error = %v, want ErrInvalidRequest", err)
	}
}

func TestAnalyzeDish_MatchesStockAndCaches(t *testing.T) {
	analyzer := &MockAnalyzer{result: &domain.DishAnalysis{
		Ingredients:  []string{"tomato", "basil", "mozzarella"},
		Instructions: []string{"bake"},
		TotalPrice:   7.5,
		DeliveryETA:  "30 min",
	}}
	svc, provider, store := newAnalysisFixture(t, analyzer)
	req := AnalyzeDishRequest{DishName: "Margherita", ImageURL: "/dishes/pizza.jpg"}

	first, err := svc.AnalyzeDish(context.Background(), req)
	if err != nil {
		t.Fatalf("AnalyzeDish() error = %v", err)
	}
	if first.Cached {
		t.Error("first result should not be marked cached")
	}
	if len(first.MatchedStockItems) != 2 {
		t.Fatalf("matched %d stock items, want 2", len(first.MatchedStockItems))
	}
	if first.MatchedStockItems[0].ID != 1 || first.MatchedStockItems[0].Ingredient != "tomato" {
		t.Errorf("first match = %+v, want tomatoes for tomato", first.MatchedStockItems[0])
	}
	if first.DeliveryETA != "30 min" || first.TotalPrice != 7.5 {
		t.Errorf("analysis fields lost: %+v", first.DishAnalysis)
	}

	second, err := svc.AnalyzeDish(context.Background(), req)
	if err != nil {
		t.Fatalf("AnalyzeDish() error = %v", err)
	}
	if !second.Cached {
		t.Error("second result should be marked cached")
	}
	if analyzer.calls.Load() != 1 || provider.calls.Load() != 1 {
		t.Errorf("analyzer calls = %d, provider calls = %d, want 1 and 1", analyzer.calls.Load(), provider.calls.Load())
	}
	if len(second.MatchedStockItems) != len(first.MatchedStockItems) {
		t.Errorf("cached result differs: %+v vs %+v", second, first)
	}

	keys := store.keys()
	if len(keys) != 1 || keys[0] != "analysis:"+CacheKey("Margherita", "/dishes/pizza.jpg", "", "") {
		t.Errorf("store keys = %v", keys)
	}
}

func TestAnalyzeDish_DifferentImageIsANewEntry(t *testing.T) {
	analyzer := &MockAnalyzer{result: &domain.DishAnalysis{Ingredients: []string{"tomato"}}}
	svc, _, _ := newAnalysisFixture(t, analyzer)

	for _, img := range []string{"/a.jpg", "/b.jpg"} {
		if _, err := svc.AnalyzeDish(context.Background(), AnalyzeDishRequest{DishName: "Soup", ImageURL: img}); err != nil {
			t.Fatalf("AnalyzeDish() error = %v", err)
		}
	}
	if analyzer.calls.Load() != 2 {
		t.Errorf("analyzer calls = %d, want 2", analyzer.calls.Load())
	}
}

func TestAnalyzeDish_HintsArePartOfTheKey(t *testing.T) {
	analyzer := &MockAnalyzer{result: &domain.DishAnalysis{Ingredients: []string{"tomato"}}}
	svc, _, store := newAnalysisFixture(t, analyzer)
	ctx := context.Background()

	requests := []AnalyzeDishRequest{
		{DishName: "Pasta", ImageURL: "/p.png", Ingredients: []string{"beef"}},
		{DishName: "Pasta", ImageURL: "/p.png", Ingredients: []string{"tofu"}},
		{DishName: "Pasta", ImageURL: "/p.png", Ingredients: []string{"tofu"}, Description: "vegan"},
	}
	for i, req := range requests {
		got, err := svc.AnalyzeDish(ctx, req)
		if err != nil {
			t.Fatalf("AnalyzeDish(%d) error = %v", i, err)
		}
		if got.Cached {
			t.Errorf("request %d served from cache, hints differ from earlier requests", i)
		}
	}
	if analyzer.calls.Load() != 3 {
		t.Errorf("analyzer calls = %d, want 3", analyzer.calls.Load())
	}
	if len(store.keys()) != 3 {
		t.Errorf("store keys = %v, want 3 entries", store.keys())
	}

	// blank hints do not change the key
	again, err := svc.AnalyzeDish(ctx, AnalyzeDishRequest{DishName: "Pasta", ImageURL: "/p.png", Ingredients: []string{" beef ", ""}})
	if err != nil {
		t.Fatalf("AnalyzeDish() error = %v", err)
	}
	if !again.Cached {
		t.Error("same hints with blanks should hit the cache")
	}
}

func TestAnalyzeDish_ProviderFailuresPropagate(t *testing.T) {
	t.Run("analyzer", func(t *testing.T) {
		analyzer := &MockAnalyzer{err: domain.NewProviderError("analyzer", "analyze", errors.New("503"))}
		svc, _, store := newAnalysisFixture(t, analyzer)

		_, err := svc.AnalyzeDish(context.Background(), AnalyzeDishRequest{DishName: "Soup"})
		if !domain.IsProviderError(err) {
			t.Errorf("error = %v, want ProviderError", err)
		}
		if len(store.keys()) != 0 {
			t.Error("failures must not be cached")
		}
	})

	t.Run("embedding", func(t *testing.T) {
		analyzer := &MockAnalyzer{result: &domain.DishAnalysis{Ingredients: []string{"tomato"}}}
		svc, provider, _ := newAnalysisFixture(t, analyzer)
		provider.err = errors.New("quota")

		_, err := svc.AnalyzeDish(context.Background(), AnalyzeDishRequest{DishName: "Soup"})
		if !domain.IsProviderError(err) {
			t.Errorf("error = %v, want ProviderError", err)
		}
	})
}
