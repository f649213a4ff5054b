package domain

// OutfitRequest carries everything the suggestion prompt is built from
type OutfitRequest struct {
	BodyType         string   `json:"bodyType" binding:"required"`
	Occasion         string   `json:"occasion" binding:"required"`
	Gender           string   `json:"gender" binding:"required"`
	Budget           string   `json:"budget,omitempty"`
	Season           string   `json:"season,omitempty"`
	ColorPreferences []string `json:"colorPreferences,omitempty"`
}

// OutfitItem is one garment or accessory in a suggested outfit
type OutfitItem struct {
	Category    string   `json:"category"`
	Description string   `json:"description"`
	Color       string   `json:"color"`
	Style       string   `json:"style"`
	SearchTerms []string `json:"searchTerms"`
}

// OutfitSuggestion is built once per generation call and never mutated afterwards
type OutfitSuggestion struct {
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Items       []OutfitItem `json:"items"`
	Colors      []string     `json:"colors"`
	Tips        []string     `json:"tips"`
	Confidence  float64      `json:"confidence"` // always within [0,1]
}

// ShoppableOutfit pairs a suggestion with real products for each of its items
type ShoppableOutfit struct {
	Suggestion *OutfitSuggestion           `json:"suggestion"`
	Products   map[int][]RealProductResult `json:"products"`
}

// ClampConfidence bounds a model-reported confidence to [0,1]
func ClampConfidence(c float64) float64 {
	if c != c { // NaN
		return 0
	}
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
