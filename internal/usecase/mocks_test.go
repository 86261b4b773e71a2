package usecase

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ptzburn/junction25/internal/catalog"
	"github.com/ptzburn/junction25/internal/domain"
)

// MockCacheRepository is an in-memory domain.CacheRepository
type MockCacheRepository struct {
	mu       sync.Mutex
	data     map[string][]byte
	getError error
	setError error
	sets     int
}

func NewMockCacheRepository() *MockCacheRepository {
	return &MockCacheRepository{data: make(map[string][]byte)}
}

func (m *MockCacheRepository) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getError != nil {
		return nil, m.getError
	}
	if value, ok := m.data[key]; ok {
		return value, nil
	}
	return nil, domain.ErrCacheMiss
}

func (m *MockCacheRepository) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets++
	if m.setError != nil {
		return m.setError
	}
	m.data[key] = value
	return nil
}

func (m *MockCacheRepository) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *MockCacheRepository) keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.data))
	for k := range m.data {
		out = append(out, k)
	}
	return out
}

// MockEmbeddingProvider returns fixed vectors per (lowercased) text
type MockEmbeddingProvider struct {
	vectors  map[string][]float64
	fallback []float64
	err      error
	truncate int // drop this many vectors from each response
	calls    atomic.Int32
	batches  [][]string
	mu       sync.Mutex
}

func NewMockEmbeddingProvider(vectors map[string][]float64, fallback []float64) *MockEmbeddingProvider {
	return &MockEmbeddingProvider{vectors: vectors, fallback: fallback}
}

func (m *MockEmbeddingProvider) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	m.calls.Add(1)
	m.mu.Lock()
	m.batches = append(m.batches, append([]string(nil), texts...))
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}

	out := make([][]float64, 0, len(texts))
	for _, text := range texts {
		v, ok := m.vectors[strings.ToLower(text)]
		if !ok {
			v = m.fallback
		}
		out = append(out, v)
	}
	if m.truncate > 0 && m.truncate <= len(out) {
		out = out[:len(out)-m.truncate]
	}
	return out, nil
}

// MockAnalyzer returns a fixed analysis
type MockAnalyzer struct {
	result *domain.DishAnalysis
	err    error
	delay  time.Duration
	calls  atomic.Int32
	inputs []domain.AnalysisInput
	mu     sync.Mutex
}

func (m *MockAnalyzer) Analyze(ctx context.Context, input domain.AnalysisInput) (*domain.DishAnalysis, error) {
	m.calls.Add(1)
	m.mu.Lock()
	m.inputs = append(m.inputs, input)
	m.mu.Unlock()

	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	if m.err != nil {
		return nil, m.err
	}
	copied := *m.result
	return &copied, nil
}

// stockIndex builds a stock catalog from (id, name, embedding) triples.
func stockIndex(t *testing.T, items ...stockFixture) *catalog.Index[domain.StockItem] {
	t.Helper()
	entries := make([]domain.CatalogEntry[domain.StockItem], len(items))
	for i, it := range items {
		entries[i] = domain.CatalogEntry[domain.StockItem]{
			Item: domain.StockItem{
				ID:       it.id,
				Name:     it.name,
				Price:    1.5,
				Unit:     "pcs",
				Category: "groceries",
			},
			Embedding: it.embedding,
		}
	}
	idx, err := catalog.NewIndex(catalog.Stock, 0, entries)
	if err != nil {
		t.Fatalf("NewIndex() error = %v", err)
	}
	return idx
}

type stockFixture struct {
	id        int
	name      string
	embedding []float64
}

func dishIndex(t *testing.T, dishes ...domain.Dish) *catalog.Index[domain.Dish] {
	t.Helper()
	entries := make([]domain.CatalogEntry[domain.Dish], len(dishes))
	for i, d := range dishes {
		if d.ID == "" {
			d.ID = fmt.Sprintf("00000000-0000-0000-0000-%012d", i+1)
		}
		entries[i] = domain.CatalogEntry[domain.Dish]{Item: d, Embedding: []float64{float64(i + 1), 1}}
	}
	idx, err := catalog.NewIndex(catalog.Dishes, 2, entries)
	if err != nil {
		t.Fatalf("NewIndex() error = %v", err)
	}
	return idx
}

// unit returns the i-th standard basis vector of length n
func unit(n, i int) []float64 {
	v := make([]float64, n)
	v[i] = 1
	return v
}

// blend returns a vector whose cosine similarity with unit(n, i) is score
// and which is orthogonal to every other basis vector except the last.
func blend(n, i int, score float64) []float64 {
	v := make([]float64, n)
	v[i] = score
	v[n-1] = math.Sqrt(1 - score*score)
	return v
}
