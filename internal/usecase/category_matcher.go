package usecase

import (
	"regexp"
	"strings"

	"github.com/drape/backend/internal/domain"
)

var punctuationRegex = regexp.MustCompile(`[^\w\s]`)

// categorySynonyms folds retailer vocabulary onto one token
var categorySynonyms = map[string]string{
	"tee":      "tshirt",
	"tees":     "tshirt",
	"trouser":  "pants",
	"trousers": "pants",
	"pant":     "pants",
	"sneaker":  "shoes",
	"sneakers": "shoes",
	"footwear": "shoes",
	"denim":    "jeans",
	"denims":   "jeans",
	"frock":    "dress",
	"gown":     "dress",
	"pullover": "sweater",
	"jumper":   "sweater",
}

// matcherStopWords are words that never decide a category
var matcherStopWords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true,
	"of": true, "in": true, "on": true, "for": true, "with": true,
	"men": true, "mens": true, "women": true, "womens": true, "unisex": true,
	"boys": true, "girls": true, "kids": true,
}

// CategoryMatcher decides whether a product belongs to a requested category.
// Every category token must appear in the product's category or name, exactly or within the edit distance.
type CategoryMatcher struct {
	fuzzyEditDistance int
}

// NewCategoryMatcher creates a matcher; a non-positive distance defaults to 1
func NewCategoryMatcher(fuzzyEditDistance int) *CategoryMatcher {
	if fuzzyEditDistance <= 0 {
		fuzzyEditDistance = 1
	}
	return &CategoryMatcher{fuzzyEditDistance: fuzzyEditDistance}
}

// Matches reports whether product fits category. An empty category matches everything.
func (m *CategoryMatcher) Matches(category string, product domain.RealProductResult) bool {
	wanted := tokenize(category)
	if len(wanted) == 0 {
		return true
	}

	have := tokenize(product.Category + " " + product.Name)
	if len(have) == 0 {
		return false
	}

	for _, w := range wanted {
		if !m.containsToken(have, w) {
			return false
		}
	}
	return true
}

func (m *CategoryMatcher) containsToken(tokens []string, want string) bool {
	for _, t := range tokens {
		if t == want || fuzzyTokenMatch(t, want, m.fuzzyEditDistance) {
			return true
		}
	}
	return false
}

// tokenize splits a string into normalized lowercase tokens.
// Hyphens are joined ("t-shirt" -> "tshirt") so retailer spellings line up.
func tokenize(s string) []string {
	s = strings.ReplaceAll(strings.ToLower(s), "-", "")
	words := strings.Fields(punctuationRegex.ReplaceAllString(s, " "))

	tokens := make([]string, 0, len(words))
	for _, word := range words {
		if len(word) <= 1 || matcherStopWords[word] || isNumeric(word) {
			continue
		}
		if syn, ok := categorySynonyms[word]; ok {
			word = syn
		}
		tokens = append(tokens, word)
	}
	return tokens
}

// isNumeric checks if a string contains only digits
func isNumeric(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return len(s) > 0
}

// fuzzyTokenMatch checks if two tokens are similar within the edit distance threshold
func fuzzyTokenMatch(token1, token2 string, threshold int) bool {
	if token1 == token2 {
		return true
	}

	// Only apply fuzzy matching to tokens of 4+ chars to avoid "top"/"tap" style false positives
	if len(token1) < 4 || len(token2) < 4 {
		return false
	}

	lenDiff := len(token1) - len(token2)
	if lenDiff < 0 {
		lenDiff = -lenDiff
	}
	if lenDiff > threshold {
		return false
	}

	return levenshteinDistance(token1, token2) <= threshold
}

// levenshteinDistance calculates the edit distance between two strings
func levenshteinDistance(s1, s2 string) int {
	r1 := []rune(s1)
	r2 := []rune(s2)
	if len(r1) == 0 {
		return len(r2)
	}
	if len(r2) == 0 {
		return len(r1)
	}

	// two rows instead of the full matrix
	prev := make([]int, len(r2)+1)
	curr := make([]int, len(r2)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(r1); i++ {
		curr[0] = i
		for j := 1; j <= len(r2); j++ {
			cost := 0
			if r1[i-1] != r2[j-1] {
				cost = 1
			}
			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}

	return prev[len(r2)]
}
