package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ptzburn/junction25/internal/domain"
)

// validate is shared; validator caches struct metadata and is safe for concurrent use
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report JSON field names instead of Go field names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// embeddingField is decoded separately from the record body so one loader
// can serve every catalog record type.
type embeddingField struct {
	Embedding []float64 `json:"embedding"`
}

// dishesEnvelope is the wrapped layout of the dishes fixture
type dishesEnvelope struct {
	RestaurantDishes []json.RawMessage `json:"restaurantDishes"`
}

// LoadDishes parses a dishes fixture. The document is either a JSON array of
// records or an object with a "restaurantDishes" array.
func LoadDishes(r io.Reader, dimensions int) (*Index[domain.Dish], error) {
	raw, err := readRecords(r, Dishes, true)
	if err != nil {
		return nil, err
	}
	return buildIndex[domain.Dish](Dishes, raw, dimensions)
}

// LoadStock parses a stock fixture (a JSON array of records).
func LoadStock(r io.Reader, dimensions int) (*Index[domain.StockItem], error) {
	raw, err := readRecords(r, Stock, false)
	if err != nil {
		return nil, err
	}
	return buildIndex[domain.StockItem](Stock, raw, dimensions)
}

// LoadDishesFile opens path and calls LoadDishes.
func LoadDishesFile(path string, dimensions int) (*Index[domain.Dish], error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dishes catalog: %w", err)
	}
	defer f.Close()
	return LoadDishes(f, dimensions)
}

// LoadStockFile opens path and calls LoadStock.
func LoadStockFile(path string, dimensions int) (*Index[domain.StockItem], error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open stock catalog: %w", err)
	}
	defer f.Close()
	return LoadStock(f, dimensions)
}

// ReadRecords decodes a fixture into typed records without requiring
// embeddings. It is used by tooling that generates the embeddings.
func ReadRecords[T any](r io.Reader, name string, allowEnvelope bool) ([]T, error) {
	raw, err := readRecords(r, name, allowEnvelope)
	if err != nil {
		return nil, err
	}

	records := make([]T, len(raw))
	for i, msg := range raw {
		if err := json.Unmarshal(msg, &records[i]); err != nil {
			return nil, &domain.SchemaError{Catalog: name, Index: i, Reason: err.Error()}
		}
		if err := validateRecord(name, i, &records[i]); err != nil {
			return nil, err
		}
	}
	return records, nil
}

func readRecords(r io.Reader, name string, allowEnvelope bool) ([]json.RawMessage, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s catalog: %w", name, err)
	}

	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, &domain.SchemaError{Catalog: name, Index: -1, Reason: "empty document"}
	}

	var raw []json.RawMessage
	switch {
	case data[0] == '[':
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, &domain.SchemaError{Catalog: name, Index: -1, Reason: err.Error()}
		}
	case data[0] == '{' && allowEnvelope:
		var env dishesEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, &domain.SchemaError{Catalog: name, Index: -1, Reason: err.Error()}
		}
		if env.RestaurantDishes == nil {
			return nil, &domain.SchemaError{Catalog: name, Index: -1, Reason: `missing "restaurantDishes" array`}
		}
		raw = env.RestaurantDishes
	default:
		return nil, &domain.SchemaError{Catalog: name, Index: -1, Reason: "document must be a JSON array of records"}
	}

	return raw, nil
}

func buildIndex[T domain.Identifiable](name string, raw []json.RawMessage, dimensions int) (*Index[T], error) {
	entries := make([]domain.CatalogEntry[T], len(raw))

	for i, msg := range raw {
		var item T
		if err := json.Unmarshal(msg, &item); err != nil {
			return nil, &domain.SchemaError{Catalog: name, Index: i, Reason: err.Error()}
		}
		if err := validateRecord(name, i, &item); err != nil {
			return nil, err
		}

		var emb embeddingField
		if err := json.Unmarshal(msg, &emb); err != nil {
			return nil, &domain.SchemaError{Catalog: name, Index: i, Field: "embedding", Reason: err.Error()}
		}

		entries[i] = domain.CatalogEntry[T]{Item: item, Embedding: emb.Embedding}
	}

	return NewIndex(name, dimensions, entries)
}

func validateRecord(name string, i int, record any) error {
	err := validate.Struct(record)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &domain.SchemaError{
			Catalog: name,
			Index:   i,
			Field:   fe.Field(),
			Reason:  fmt.Sprintf("failed %q validation", fe.Tag()),
		}
	}
	return &domain.SchemaError{Catalog: name, Index: i, Reason: err.Error()}
}
