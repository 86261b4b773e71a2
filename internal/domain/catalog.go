package domain

import "strconv"

// Identifiable is implemented by every record that can live in a catalog.
// CatalogID must be unique within its catalog.
type Identifiable interface {
	CatalogID() string
}

// Dish represents a prepared dish offered by a restaurant
type Dish struct {
	ID             string   `json:"id" validate:"required,uuid"`
	RestaurantID   string   `json:"restaurantId" validate:"required,uuid"`
	RestaurantSlug string   `json:"restaurantSlug,omitempty"`
	Name           string   `json:"name" validate:"required"`
	Description    string   `json:"description" validate:"required"`
	Price          float64  `json:"price" validate:"gt=0"`
	Image          string   `json:"image" validate:"required"`
	Ingredients    []string `json:"ingredients" validate:"min=1"`
}

// CatalogID implements Identifiable.
func (d Dish) CatalogID() string { return d.ID }

// StockItem represents a grocery/market item that can be bought as-is
type StockItem struct {
	ID       int     `json:"id" validate:"gt=0"`
	Name     string  `json:"name" validate:"required"`
	Price    float64 `json:"price" validate:"gt=0"`
	Unit     string  `json:"unit" validate:"required"`
	Category string  `json:"category" validate:"required"`
	Image    string  `json:"image,omitempty"`
}

// CatalogID implements Identifiable.
func (s StockItem) CatalogID() string { return strconv.Itoa(s.ID) }

// CatalogEntry pairs a catalog record with its precomputed embedding.
// Entries are read-only once loaded into an index.
type CatalogEntry[T Identifiable] struct {
	Item      T
	Embedding []float64
}
