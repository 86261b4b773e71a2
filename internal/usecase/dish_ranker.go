package usecase

import (
	"sort"

	"github.com/ptzburn/junction25/internal/domain"
)

// directMatchWeight is how much an exact ingredient match counts relative to
// a single overlapping token.
const directMatchWeight = 2.0

// RankDishes scores dishes lexically against the query ingredients and notes.
//
//	score = (directMatches*2 + overlap) / max(1, |queryTokens| + len(queryIngredients))
//
// overlap counts query tokens found in the dish's name, description and
// ingredient tokens; directMatches counts query ingredients equal (after
// normalization) to one of the dish ingredients. Results are sorted by
// descending score, ties keep catalog order, and the list is cut to limit.
func RankDishes(dishes []domain.Dish, queryIngredients []string, notes string, limit int) []domain.RankedDish {
	if limit <= 0 || len(dishes) == 0 {
		return []domain.RankedDish{}
	}

	queryTokens := make(map[string]bool)
	normalizedIngredients := make([]string, 0, len(queryIngredients))
	for _, ing := range queryIngredients {
		n := normalizeText(ing)
		normalizedIngredients = append(normalizedIngredients, n)
		for _, token := range tokenize(n) {
			queryTokens[token] = true
		}
	}
	for _, token := range tokenize(notes) {
		queryTokens[token] = true
	}

	denominator := float64(len(queryTokens) + len(queryIngredients))
	if denominator < 1 {
		denominator = 1
	}

	ranked := make([]domain.RankedDish, len(dishes))
	for i, dish := range dishes {
		dishTokens, dishIngredients := dishVocabulary(dish)

		overlap := 0
		for token := range queryTokens {
			if dishTokens[token] {
				overlap++
			}
		}

		direct := 0
		for _, ing := range normalizedIngredients {
			if ing != "" && dishIngredients[ing] {
				direct++
			}
		}

		ranked[i] = domain.RankedDish{
			Dish:       dish,
			MatchScore: domain.Score((float64(direct)*directMatchWeight + float64(overlap)) / denominator),
		}
	}

	sort.SliceStable(ranked, func(a, b int) bool {
		return ranked[a].MatchScore > ranked[b].MatchScore
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// dishVocabulary returns the token set of a dish (ingredients, name and
// description) and the set of its normalized ingredient strings.
func dishVocabulary(dish domain.Dish) (tokens map[string]bool, ingredients map[string]bool) {
	tokens = make(map[string]bool)
	ingredients = make(map[string]bool, len(dish.Ingredients))

	for _, ing := range dish.Ingredients {
		n := normalizeText(ing)
		if n != "" {
			ingredients[n] = true
		}
		for _, token := range tokenize(n) {
			tokens[token] = true
		}
	}
	for _, token := range tokenize(dish.Name) {
		tokens[token] = true
	}
	for _, token := range tokenize(dish.Description) {
		tokens[token] = true
	}

	return tokens, ingredients
}
