package retail

import (
	"math"
	"strconv"
	"strings"
)

// DefaultListingPrice is substituted when a search-engine snippet carries no usable price
const DefaultListingPrice = 1999

// ParsePrice extracts a whole-unit price from strings like "₹1,299", "Rs. 599.00" or "1299".
// Strings without digits yield 0.
func ParsePrice(s string) int64 {
	return ParsePriceDefault(s, 0)
}

// ParsePriceDefault is ParsePrice with a caller-chosen value for strings without digits.
// Only the integer part is kept; anything after the first decimal point is dropped.
func ParsePriceDefault(s string, def int64) int64 {
	var b strings.Builder
	started := false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
			started = true
		case r == '.' && started:
			return parseDigits(b.String(), def)
		case r == ',' || r == ' ' || r == '\u00a0':
			// thousands separators
		default:
			if started {
				// "1,299 - 1,599" ranges keep the lower bound
				return parseDigits(b.String(), def)
			}
		}
	}
	return parseDigits(b.String(), def)
}

func parseDigits(digits string, def int64) int64 {
	if digits == "" {
		return def
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || n < 0 {
		// overflow on absurd inputs
		return def
	}
	return n
}

// priceFromFloat converts an upstream numeric amount to a whole-unit price
func priceFromFloat(f float64) int64 {
	if math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return 0
	}
	if f > math.MaxInt64/2 {
		return 0
	}
	return int64(f)
}

// parseRating reads ratings like "4.3", "4.3 out of 5 stars" or "4,3"
func parseRating(s string) *float64 {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return nil
	}
	end := 0
	for end < len(s) && (s[end] == '.' || (s[end] >= '0' && s[end] <= '9')) {
		end++
	}
	f, err := strconv.ParseFloat(s[:end], 64)
	if err != nil || f < 0 || f > 5 {
		return nil
	}
	return &f
}

// parseCount reads review counts like "1,234" or "(2.3k)"
func parseCount(s string) *int {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return nil
	}
	mult := 1.0
	if strings.Contains(s, "k") {
		mult = 1000
	}
	cleaned := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' {
			return r
		}
		return -1
	}, s)
	if cleaned == "" {
		return nil
	}
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return nil
	}
	n := int(math.Round(f * mult))
	return &n
}

func optionalPrice(p int64) *int64 {
	if p <= 0 {
		return nil
	}
	return &p
}

func optionalRating(f float64) *float64 {
	if f <= 0 || f > 5 {
		return nil
	}
	return &f
}

func optionalCount(n int) *int {
	if n <= 0 {
		return nil
	}
	return &n
}
