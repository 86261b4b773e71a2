package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ptzburn/junction25/internal/catalog"
	"github.com/ptzburn/junction25/internal/domain"
)

type stubProvider struct {
	texts []string
	err   error
}

func (s *stubProvider) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.texts = append(s.texts, texts...)
	out := make([][]float64, len(texts))
	for i := range texts {
		out[i] = []float64{float64(i + 1), 0}
	}
	return out, nil
}

const stockFixture = `[
  {"id": 1, "name": "Tomatoes", "price": 2.49, "unit": "kg", "category": "vegetables"},
  {"id": 2, "name": "Lager Beer", "price": 1.5, "unit": "can", "category": "alcohol"}
]`

func TestEmbedRecords_Stock(t *testing.T) {
	provider := &stubProvider{}
	var out bytes.Buffer

	n, err := embedRecords(context.Background(), provider, strings.NewReader(stockFixture), &out, catalog.Stock, false, stockText)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"Tomatoes (vegetables)", "Lager Beer (alcohol)"}, provider.texts)

	// the output must load as a catalog
	idx, err := catalog.LoadStock(&out, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, idx.Size())
	assert.Equal(t, []float64{1, 0}, idx.Entries()[1].Embedding)
	assert.Equal(t, "Lager Beer", idx.Items()[1].Name)
}

func TestEmbedRecords_Dishes(t *testing.T) {
	fixture := `{"restaurantDishes": [{
		"id": "0b6a1f4e-8f5e-4a51-9d35-6c1f0a2b7e11",
		"restaurantId": "5d2c9a3b-1e7f-4c8d-a6b2-3f9e0d1c4a22",
		"name": "Margherita Pizza",
		"description": "wood fired",
		"price": 11.5,
		"image": "/dishes/pizza.jpg",
		"ingredients": ["tomato", "basil"]
	}]}`

	provider := &stubProvider{}
	var out bytes.Buffer

	n, err := embedRecords(context.Background(), provider, strings.NewReader(fixture), &out, catalog.Dishes, true, dishText)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"Margherita Pizza. wood fired. Ingredients: tomato, basil"}, provider.texts)

	idx, err := catalog.LoadDishes(&out, 2)
	require.NoError(t, err)
	assert.Equal(t, "Margherita Pizza", idx.Items()[0].Name)
}

func TestEmbedRecords_Errors(t *testing.T) {
	t.Run("invalid record", func(t *testing.T) {
		_, err := embedRecords(context.Background(), &stubProvider{}, strings.NewReader(`[{"id": 1}]`), &bytes.Buffer{}, catalog.Stock, false, stockText)
		assert.True(t, domain.IsSchemaError(err), "got %v", err)
	})

	t.Run("provider failure", func(t *testing.T) {
		provider := &stubProvider{err: domain.NewProviderError("embedding", "embed", errors.New("quota"))}
		_, err := embedRecords(context.Background(), provider, strings.NewReader(stockFixture), &bytes.Buffer{}, catalog.Stock, false, stockText)
		assert.True(t, domain.IsProviderError(err))
	})
}

func TestValidateCmd(t *testing.T) {
	t.Run("reports catalog sizes", func(t *testing.T) {
		root := newRootCmd()
		var out bytes.Buffer
		root.SetOut(&out)
		root.SetArgs([]string{
			"validate",
			"--dishes", "../../internal/catalog/testdata/dishes.json",
			"--stock", "../../internal/catalog/testdata/stock.json",
		})

		require.NoError(t, root.Execute())
		assert.Contains(t, out.String(), "dishes: 3 entries, 3 dimensions")
		assert.Contains(t, out.String(), "stock: 3 entries, 3 dimensions")
	})

	t.Run("fails on corrupt fixture", func(t *testing.T) {
		root := newRootCmd()
		root.SetOut(&bytes.Buffer{})
		root.SetArgs([]string{"validate", "--stock", "../../internal/catalog/testdata/stock_bad_dimension.json"})

		err := root.Execute()
		assert.True(t, domain.IsSchemaError(err), "got %v", err)
	})

	t.Run("requires a fixture", func(t *testing.T) {
		root := newRootCmd()
		root.SetOut(&bytes.Buffer{})
		root.SetArgs([]string{"validate"})

		assert.Error(t, root.Execute())
	})
}

func TestEmbedCmd_RejectsUnknownKind(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"embed", "--in", "a.json", "--out", "b.json", "--kind", "drink"})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--kind")
}
