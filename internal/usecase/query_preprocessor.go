package usecase

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/drape/backend/internal/domain"
	"github.com/rs/zerolog"
)

// QueryPreprocessor cleans free-text shopping queries before they reach the retailers
type QueryPreprocessor struct {
	logger zerolog.Logger
}

// Compiled regex patterns for query preprocessing
var (
	// Matches size patterns like "size M", "size: 32", "XL", "3XL", "uk 8", "32 inch".
	// "size" alone is kept so "plus size dress" stays a plus-size search.
	sizePattern = regexp.MustCompile(`(?i)\bsize\s*[:\-]?\s*(?:\d+|xx?s|s|m|l|xx?l|[2-5]xl|free)\b|\b(?:xxs|xs|xl|xxl|xxxl|[2-5]xl)\b|\buk\s*\d+\b|\b\d+\s*(?:cm|inch(?:es)?)\b`)

	// Matches pack patterns like "pack of 3", "set of 2", "3-pack", "combo"
	packPattern = regexp.MustCompile(`(?i)\b(?:pack|set)\s+of\s+\d+\b|\b\d+\s*-?\s*pack\b|\bcombo\b`)

	// Matches a price qualifier like "under 1000", "below ₹500", "< 999"; group 1 is the amount
	pricePattern = regexp.MustCompile(`(?i)(?:\b(?:under|below|within|upto|up to)|<)\s*(?:rs\.?|₹|inr)?\s*(\d[\d,]*)`)

	multiSpacePattern = regexp.MustCompile(`\s+`)

	orphanPunctuationPattern = regexp.MustCompile(`\s+[,\-;:|/]+\s+|^[\s,\-;:|/]+|[\s,\-;:|/]+$`)
)

// queryNoiseWords are shopping filler terms that narrow nothing down
var queryNoiseWords = map[string]bool{
	"buy": true, "online": true, "shop": true, "shopping": true,
	"best": true, "latest": true, "trendy": true, "stylish": true,
	"offer": true, "offers": true, "sale": true, "discount": true, "deal": true, "deals": true,
	"cheap": true, "branded": true, "fashion": true,
	"india": true, "price": true, "free": true, "delivery": true,
}

// genderTerms lists words that already pin a query to a gender
var genderTerms = map[domain.Gender][]string{
	domain.GenderMen:   {"men", "mens", "man", "male", "boys", "boy", "gents"},
	domain.GenderWomen: {"women", "womens", "woman", "female", "girls", "girl", "ladies"},
}

const maxQueryLength = 100

// NewQueryPreprocessor creates a new query preprocessor
func NewQueryPreprocessor(logger zerolog.Logger) *QueryPreprocessor {
	return &QueryPreprocessor{logger: logger}
}

// PreprocessQuery strips sizes, pack counts, price qualifiers and filler words,
// then prefixes the gender when the query does not already name one.
func (p *QueryPreprocessor) PreprocessQuery(query string, gender domain.Gender) string {
	if strings.TrimSpace(query) == "" {
		return ""
	}

	original := query

	cleaned := sizePattern.ReplaceAllString(query, " ")
	cleaned = packPattern.ReplaceAllString(cleaned, " ")
	cleaned = pricePattern.ReplaceAllString(cleaned, " ")
	cleaned = removeNoiseWords(cleaned)
	cleaned = orphanPunctuationPattern.ReplaceAllString(cleaned, " ")
	cleaned = strings.TrimSpace(multiSpacePattern.ReplaceAllString(cleaned, " "))

	// a query made only of filler is still better than nothing
	if cleaned == "" {
		cleaned = strings.TrimSpace(multiSpacePattern.ReplaceAllString(strings.ToLower(query), " "))
	}

	if terms, ok := genderTerms[gender]; ok && !containsAnyWord(cleaned, terms) {
		cleaned = string(gender) + " " + cleaned
	}

	if len(cleaned) > maxQueryLength {
		cleaned = truncateUTF8(cleaned, maxQueryLength)
		if lastSpace := strings.LastIndex(cleaned, " "); lastSpace > maxQueryLength/2 {
			cleaned = cleaned[:lastSpace]
		}
	}

	p.logger.Debug().Str("input", original).Str("output", cleaned).Msg("preprocessed query")
	return cleaned
}

// PriceCeiling returns the amount of a price qualifier such as "under ₹1,500" in query
func (p *QueryPreprocessor) PriceCeiling(query string) (float64, bool) {
	m := pricePattern.FindStringSubmatch(query)
	if m == nil {
		return 0, false
	}
	amount, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil || amount <= 0 {
		return 0, false
	}
	return amount, true
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// removeNoiseWords lowercases s and drops filler terms
func removeNoiseWords(s string) string {
	words := strings.Fields(strings.ToLower(s))
	kept := make([]string, 0, len(words))
	for _, word := range words {
		if queryNoiseWords[strings.Trim(word, ",.!?;:-'\"")] {
			continue
		}
		kept = append(kept, word)
	}
	return strings.Join(kept, " ")
}

func containsAnyWord(s string, words []string) bool {
	for _, field := range strings.Fields(strings.ToLower(s)) {
		field = strings.Trim(field, ",.!?;:-'\"")
		for _, w := range words {
			if field == w || field == w+"'s" {
				return true
			}
		}
	}
	return false
}
