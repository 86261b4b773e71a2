package domain

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrDimensionMismatch is returned when a query vector does not have the catalog's dimensionality
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrCatalogNotLoaded is returned when an operation needs a catalog that was never loaded
	ErrCatalogNotLoaded = errors.New("catalog not loaded")
)

// SchemaError reports corrupt catalog fixture data. It is fatal at load time.
type SchemaError struct {
	Catalog string
	Index   int // record position, -1 when the whole document is malformed
	Field   string
	Reason  string
}

func (e *SchemaError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("catalog %q: %s", e.Catalog, e.Reason)
	}
	return fmt.Sprintf("catalog %q: record %d: field %q: %s", e.Catalog, e.Index, e.Field, e.Reason)
}

// ProviderError reports a failure of an external collaborator (embedding or
// generative analysis). It must never be turned into an empty result.
type ProviderError struct {
	Provider string
	Op       string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s %s failed: %v", e.Provider, e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Retryable reports whether the caller may retry the operation.
// Only a caller-side cancellation is final.
func (e *ProviderError) Retryable() bool {
	return !errors.Is(e.Err, context.Canceled)
}

// NewProviderError wraps err as a ProviderError.
func NewProviderError(provider, op string, err error) *ProviderError {
	return &ProviderError{Provider: provider, Op: op, Err: err}
}

// IsProviderError reports whether err carries a ProviderError anywhere in its chain.
func IsProviderError(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe)
}

// IsSchemaError reports whether err carries a SchemaError anywhere in its chain.
func IsSchemaError(err error) bool {
	var se *SchemaError
	return errors.As(err, &se)
}
