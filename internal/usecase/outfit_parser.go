package usecase

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"unicode"

	"github.com/drape/backend/internal/domain"
)

const (
	parsedConfidence   = 0.8
	fallbackConfidence = 0.75
	maxFallbackItems   = 6
	maxFallbackTips    = 3
)

var (
	defaultOutfitColors = []string{"navy", "white", "beige"}
	defaultOutfitTip    = "Choose well-fitting pieces and keep accessories simple so the outfit stays balanced."
)

// The model's JSON is decoded with loose field types: a string where a list was asked for,
// or a number sent as a string, must not throw away the rest of the answer.

// looseText accepts strings, numbers, booleans and null; objects and arrays read as empty
type looseText string

func (t *looseText) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*t = ""
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = looseText(s)
	case data[0] == '{' || data[0] == '[':
		*t = ""
	default:
		*t = looseText(data)
	}
	return nil
}

// looseList accepts an array of scalars or a single string
type looseList []string

func (l *looseList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var raw []looseText
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		out := make([]string, 0, len(raw))
		for _, v := range raw {
			out = append(out, string(v))
		}
		*l = out
		return nil
	}

	var single looseText
	if err := json.Unmarshal(data, &single); err != nil {
		return err
	}
	*l = nil
	if strings.TrimSpace(string(single)) != "" {
		*l = looseList{string(single)}
	}
	return nil
}

// looseNumber accepts a number or a numeric string such as "0.9" or "90%".
// Anything else leaves it unset.
type looseNumber struct {
	value float64
	set   bool
}

func (n *looseNumber) UnmarshalJSON(data []byte) error {
	var text looseText
	if err := json.Unmarshal(data, &text); err != nil {
		return err
	}
	raw := strings.TrimSpace(string(text))
	percent := strings.HasSuffix(raw, "%")
	v, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(raw, "%")), 64)
	if err != nil {
		*n = looseNumber{}
		return nil
	}
	if percent {
		v /= 100
	}
	*n = looseNumber{value: v, set: true}
	return nil
}

type modelOutfitItem struct {
	Category    looseText `json:"category"`
	Description looseText `json:"description"`
	Color       looseText `json:"color"`
	Style       looseText `json:"style"`
	SearchTerms looseList `json:"searchTerms"`
}

// looseItems accepts an array of item objects or plain strings, or a single item object
type looseItems []modelOutfitItem

func (items *looseItems) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}
	switch data[0] {
	case '{':
		var item modelOutfitItem
		if err := json.Unmarshal(data, &item); err != nil {
			return err
		}
		*items = looseItems{item}
		return nil
	case '[':
	default:
		*items = nil
		return nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(looseItems, 0, len(raw))
	for _, r := range raw {
		r = bytes.TrimSpace(r)
		if len(r) == 0 {
			continue
		}
		switch r[0] {
		case '{':
			var item modelOutfitItem
			if err := json.Unmarshal(r, &item); err != nil {
				return err
			}
			out = append(out, item)
		case '"':
			var desc looseText
			if err := json.Unmarshal(r, &desc); err != nil {
				return err
			}
			out = append(out, modelOutfitItem{Description: desc})
		}
	}
	*items = out
	return nil
}

type modelOutfitPayload struct {
	Title       looseText   `json:"title"`
	Description looseText   `json:"description"`
	Items       looseItems  `json:"items"`
	Colors      looseList   `json:"colors"`
	Tips        looseList   `json:"tips"`
	Confidence  looseNumber `json:"confidence"`
}

// garmentCategories maps clothing keywords to the item category they belong to
var garmentCategories = map[string]string{
	"shirt": "top", "tshirt": "top", "top": "top", "blouse": "top", "kurta": "top",
	"kurti": "top", "polo": "top", "tank": "top", "crop": "top", "tunic": "top",
	"jeans": "bottom", "trousers": "bottom", "pants": "bottom", "chinos": "bottom",
	"shorts": "bottom", "skirt": "bottom", "leggings": "bottom", "joggers": "bottom", "palazzo": "bottom",
	"dress": "dress", "saree": "dress", "jumpsuit": "dress", "gown": "dress", "lehenga": "dress",
	"jacket": "outerwear", "blazer": "outerwear", "sweater": "outerwear", "hoodie": "outerwear",
	"coat": "outerwear", "cardigan": "outerwear", "shrug": "outerwear",
	"sneakers": "footwear", "shoes": "footwear", "boots": "footwear", "heels": "footwear",
	"sandals": "footwear", "loafers": "footwear", "flats": "footwear",
	"watch": "accessory", "belt": "accessory", "bag": "accessory", "scarf": "accessory",
	"sunglasses": "accessory", "earrings": "accessory", "necklace": "accessory", "cap": "accessory",
}

var colorWords = map[string]bool{
	"black": true, "white": true, "navy": true, "blue": true, "red": true, "green": true,
	"yellow": true, "pink": true, "purple": true, "grey": true, "gray": true, "beige": true,
	"brown": true, "tan": true, "olive": true, "maroon": true, "burgundy": true, "cream": true,
	"khaki": true, "orange": true, "teal": true, "mustard": true, "lavender": true,
	"charcoal": true, "ivory": true, "gold": true, "silver": true, "indigo": true, "peach": true,
}

var styleWords = map[string]bool{
	"casual": true, "formal": true, "business": true, "ethnic": true, "bohemian": true,
	"sporty": true, "streetwear": true, "minimalist": true, "vintage": true, "elegant": true,
	"chic": true, "classic": true, "party": true, "relaxed": true, "smart": true, "festive": true,
}

// tipMarkers flag sentences in free text that read as styling advice
var tipMarkers = []string{"tip", "pair", "opt for", "choose", "accessorize", "avoid", "try ", "layer", "complete the look"}

// parseOutfitResponse turns model output into a suggestion.
// The first {...} span is decoded as JSON; anything else goes through the keyword parser.
func parseOutfitResponse(text string, req domain.OutfitRequest) *domain.OutfitSuggestion {
	if payload, ok := decodeOutfitJSON(text); ok {
		return suggestionFromPayload(payload, req)
	}
	return parseOutfitText(text, req)
}

func decodeOutfitJSON(text string) (modelOutfitPayload, bool) {
	var payload modelOutfitPayload
	span, ok := extractObjectSpan(text)
	if !ok {
		return payload, false
	}
	if err := json.Unmarshal([]byte(span), &payload); err != nil {
		return payload, false
	}
	return payload, true
}

// extractObjectSpan returns the text from the first '{' to the last '}'
func extractObjectSpan(raw string) (string, bool) {
	text := trimCodeFence(raw)
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}

func trimCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```JSON")
	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return strings.TrimSpace(trimmed)
}

func suggestionFromPayload(p modelOutfitPayload, req domain.OutfitRequest) *domain.OutfitSuggestion {
	s := &domain.OutfitSuggestion{
		Title:       coalesce(string(p.Title), titleFromOccasion(req.Occasion)),
		Description: coalesce(string(p.Description), defaultDescription(req)),
		Colors:      normalizeList(p.Colors),
		Tips:        normalizeList(p.Tips),
		Confidence:  parsedConfidence,
	}
	if p.Confidence.set {
		s.Confidence = p.Confidence.value
	}
	if len(s.Colors) == 0 {
		s.Colors = append([]string(nil), defaultOutfitColors...)
	}
	if len(s.Tips) == 0 {
		s.Tips = []string{defaultOutfitTip}
	}

	s.Items = make([]domain.OutfitItem, 0, len(p.Items))
	for _, it := range p.Items {
		item := domain.OutfitItem{
			Category:    strings.TrimSpace(string(it.Category)),
			Description: strings.TrimSpace(string(it.Description)),
			Color:       strings.TrimSpace(string(it.Color)),
			Style:       strings.TrimSpace(string(it.Style)),
			SearchTerms: normalizeList(it.SearchTerms),
		}
		if item.Category == "" && item.Description == "" {
			continue
		}
		if len(item.SearchTerms) == 0 {
			item.SearchTerms = []string{strings.TrimSpace(item.Color + " " + coalesce(item.Description, item.Category))}
		}
		s.Items = append(s.Items, item)
	}

	s.Confidence = domain.ClampConfidence(s.Confidence)
	return s
}

type textWord struct {
	raw   string
	lower string
}

// parseOutfitText assembles a degraded suggestion from clothing, color and style keywords
func parseOutfitText(text string, req domain.OutfitRequest) *domain.OutfitSuggestion {
	words := splitWords(text)

	var colors, styles []string
	seenColor := map[string]bool{}
	seenStyle := map[string]bool{}
	for _, w := range words {
		if colorWords[w.lower] && !seenColor[w.lower] {
			seenColor[w.lower] = true
			colors = append(colors, w.lower)
		}
		if styleWords[w.lower] && !seenStyle[w.lower] {
			seenStyle[w.lower] = true
			styles = append(styles, w.lower)
		}
	}

	var items []domain.OutfitItem
	seenGarment := map[string]bool{}
	for i, w := range words {
		garment := singularGarment(w.lower)
		category, ok := garmentCategories[garment]
		if !ok || seenGarment[garment] || len(items) >= maxFallbackItems {
			continue
		}
		seenGarment[garment] = true

		color, style := "", ""
		for j := i - 1; j >= 0 && j >= i-3; j-- {
			if color == "" && colorWords[words[j].lower] {
				color = words[j].lower
			}
			if style == "" && styleWords[words[j].lower] {
				style = words[j].lower
			}
		}
		if style == "" && len(styles) > 0 {
			style = styles[0]
		}

		items = append(items, domain.OutfitItem{
			Category:    category,
			Description: strings.TrimSpace(color + " " + w.lower),
			Color:       color,
			Style:       style,
			SearchTerms: []string{strings.TrimSpace(strings.Join([]string{color, w.lower}, " "))},
		})
	}

	if len(colors) == 0 {
		colors = append([]string(nil), defaultOutfitColors...)
	}

	tips := extractTips(text)
	if len(tips) == 0 {
		tips = []string{defaultOutfitTip}
	}

	title := titleFromOccasion(req.Occasion)
	if len(styles) > 0 && !strings.Contains(strings.ToLower(req.Occasion), styles[0]) {
		title = capitalizeWords(styles[0]) + " " + title
	}

	return &domain.OutfitSuggestion{
		Title:       title,
		Description: coalesce(firstSentence(text), defaultDescription(req)),
		Items:       items,
		Colors:      colors,
		Tips:        tips,
		Confidence:  domain.ClampConfidence(fallbackConfidence),
	}
}

// splitWords breaks text into words, joining hyphenated garments ("t-shirt" -> "tshirt")
func splitWords(text string) []textWord {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-'
	})
	words := make([]textWord, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, "-")
		if f == "" {
			continue
		}
		words = append(words, textWord{raw: f, lower: strings.ReplaceAll(strings.ToLower(f), "-", "")})
	}
	return words
}

// singularGarment folds simple plurals onto the keyword table ("shirts" -> "shirt").
// Keywords that are plural by nature ("jeans", "shorts") are left alone.
func singularGarment(word string) string {
	if _, ok := garmentCategories[word]; ok {
		return word
	}
	if strings.HasSuffix(word, "es") {
		if _, ok := garmentCategories[word[:len(word)-2]]; ok {
			return word[:len(word)-2]
		}
	}
	if strings.HasSuffix(word, "s") {
		if _, ok := garmentCategories[word[:len(word)-1]]; ok {
			return word[:len(word)-1]
		}
	}
	return word
}

func extractTips(text string) []string {
	var tips []string
	for _, sentence := range splitSentences(text) {
		lower := strings.ToLower(sentence)
		for _, marker := range tipMarkers {
			if strings.Contains(lower, marker) {
				tips = append(tips, sentence)
				break
			}
		}
		if len(tips) >= maxFallbackTips {
			break
		}
	}
	return tips
}

func splitSentences(text string) []string {
	var out []string
	for _, s := range strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?' || r == '\n'
	}) {
		s = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(s), "-*•0123456789) "))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func firstSentence(text string) string {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return ""
	}
	s := sentences[0]
	return truncateUTF8(s, 200)
}

func titleFromOccasion(occasion string) string {
	occasion = strings.TrimSpace(occasion)
	if occasion == "" {
		return "Outfit Suggestion"
	}
	return capitalizeWords(occasion) + " Outfit"
}

func defaultDescription(req domain.OutfitRequest) string {
	return strings.TrimSpace("A " + strings.ToLower(coalesce(req.Occasion, "everyday")) + " look suited to a " +
		strings.ToLower(coalesce(req.BodyType, "balanced")) + " body type.")
}

func capitalizeWords(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(strings.ToLower(w))
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

func normalizeList(values []string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		key := strings.ToLower(v)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	return out
}

func coalesce(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
