package domain

import (
	"math"
	"strconv"
)

// Score is a similarity or ranking score. It is kept at full precision in
// memory and rounded to 4 decimal places when serialized.
type Score float64

// MarshalJSON rounds the score for external presentation.
func (s Score) MarshalJSON() ([]byte, error) {
	rounded := math.Round(float64(s)*1e4) / 1e4
	return strconv.AppendFloat(nil, rounded, 'f', -1, 64), nil
}

// SimilarityMatch is a single catalog hit produced by an embedding search
type SimilarityMatch[T Identifiable] struct {
	Item  T     `json:"item"`
	Score Score `json:"score"`
}

// MatchedStockItem is a stock item matched to one query ingredient
type MatchedStockItem struct {
	ID         int     `json:"id"`
	Name       string  `json:"name"`
	Price      float64 `json:"price"`
	Unit       string  `json:"unit"`
	Category   string  `json:"category"`
	Image      string  `json:"image"`
	Score      Score   `json:"score"`
	Ingredient string  `json:"ingredient,omitempty"` // query token that produced the match
}

// NewMatchedStockItem copies the presentable attributes of a stock item.
func NewMatchedStockItem(item StockItem, score float64, ingredient string) MatchedStockItem {
	return MatchedStockItem{
		ID:         item.ID,
		Name:       item.Name,
		Price:      item.Price,
		Unit:       item.Unit,
		Category:   item.Category,
		Image:      item.Image,
		Score:      Score(score),
		Ingredient: ingredient,
	}
}

// RankedDish is a dish scored by the lexical ranker
type RankedDish struct {
	Dish       Dish  `json:"dish"`
	MatchScore Score `json:"matchScore"`
}

// DishAnalysis is the structured output of the generative analyzer
type DishAnalysis struct {
	Ingredients  []string `json:"ingredients" validate:"min=1,dive,required"`
	Instructions []string `json:"instructions,omitempty"`
	TotalPrice   float64  `json:"totalPrice,omitempty" validate:"gte=0"`
	DeliveryETA  string   `json:"deliveryETA,omitempty"`
}

// AnalysisInput describes what the generative analyzer should look at.
// Either ImageURL or ImageData may be set; both may be empty for text-only analysis.
type AnalysisInput struct {
	DishName    string
	Description string
	Ingredients []string
	ImageURL    string
	ImageData   []byte
	MimeType    string
}
