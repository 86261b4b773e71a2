package usecase

import (
	"regexp"
	"strings"
)

// Package-level compiled regex pattern for performance
var nonAlphanumericRegex = regexp.MustCompile(`[^a-z0-9]+`)

// minNoteTokenLength is the shortest note token that is treated as a keyword
const minNoteTokenLength = 3

// DefaultMarketKeywords are query terms that usually ask for packaged market
// goods rather than a prepared dish.
var DefaultMarketKeywords = []string{
	// Beverages
	"drink", "drinks", "water", "soda", "cola", "juice", "coffee", "tea", "milk", "lemonade",
	"energy drink",
	// Alcohol
	"beer", "wine", "cider", "vodka", "whiskey", "gin", "rum", "alcohol", "lager",
	// Snacks
	"snack", "snacks", "chips", "crisps", "candy", "chocolate", "cookies", "nuts", "popcorn",
}

// QueryPreprocessor turns free text into the tokens and keywords used by the
// lexical ranker and the market fallback.
type QueryPreprocessor struct {
	marketKeywords []string
}

// NewQueryPreprocessor creates a preprocessor. A nil keyword list selects
// DefaultMarketKeywords; an empty non-nil list disables keyword sniffing.
func NewQueryPreprocessor(marketKeywords []string) *QueryPreprocessor {
	if marketKeywords == nil {
		marketKeywords = DefaultMarketKeywords
	}

	normalized := make([]string, 0, len(marketKeywords))
	seen := make(map[string]bool, len(marketKeywords))
	for _, kw := range marketKeywords {
		kw = normalizeText(kw)
		if kw == "" || seen[kw] {
			continue
		}
		seen[kw] = true
		normalized = append(normalized, kw)
	}

	return &QueryPreprocessor{marketKeywords: normalized}
}

// Keywords collects the search keywords for a fallback lookup: every
// non-blank ingredient as given, then every note token longer than two
// characters. Duplicates (case-insensitive) are dropped, first one wins.
func (p *QueryPreprocessor) Keywords(notes string, ingredients []string) []string {
	var keywords []string
	seen := make(map[string]bool)

	add := func(kw string) {
		key := strings.ToLower(kw)
		if seen[key] {
			return
		}
		seen[key] = true
		keywords = append(keywords, kw)
	}

	for _, ing := range ingredients {
		ing = strings.TrimSpace(ing)
		if ing == "" {
			continue
		}
		add(ing)
	}

	for _, token := range tokenize(notes) {
		if len(token) < minNoteTokenLength {
			continue
		}
		add(token)
	}

	return keywords
}

// MarketKeyword returns the first configured market keyword found in text.
// Multi-word keywords must appear as a contiguous phrase.
func (p *QueryPreprocessor) MarketKeyword(text string) (string, bool) {
	normalized := normalizeText(text)
	if normalized == "" {
		return "", false
	}

	padded := " " + normalized + " "
	for _, kw := range p.marketKeywords {
		if strings.Contains(padded, " "+kw+" ") {
			return kw, true
		}
	}
	return "", false
}

// normalizeText lowercases s, collapses every run of non-alphanumeric
// characters to a single space and trims the result.
func normalizeText(s string) string {
	return strings.TrimSpace(nonAlphanumericRegex.ReplaceAllString(strings.ToLower(s), " "))
}

// tokenize splits normalized text on whitespace.
func tokenize(s string) []string {
	return strings.Fields(normalizeText(s))
}
