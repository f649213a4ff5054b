package retail

import (
	"html"
	"net/url"
	"strings"

	"github.com/drape/backend/internal/domain"
	"github.com/google/uuid"
)

// newID generates an identifier for listings whose source has none
func newID(platform domain.Platform) string {
	return string(platform) + "-" + uuid.NewString()
}

// finalize fills defaults on a mapped listing. Listings without a name or a price are dropped.
func finalize(platform domain.Platform, p domain.RealProductResult) (domain.RealProductResult, bool) {
	p.Name = cleanText(p.Name)
	p.Brand = cleanText(p.Brand)
	if p.Name == "" || p.Price <= 0 {
		return p, false
	}
	p.Platform = platform
	if p.ID == "" {
		p.ID = newID(platform)
	}
	if p.Currency == "" {
		p.Currency = domain.DefaultCurrency
	}
	if p.OriginalPrice != nil && *p.OriginalPrice <= p.Price {
		p.OriginalPrice = nil
	}
	if p.Brand == "" {
		p.Brand = guessBrand(p.Name)
	}
	return p, true
}

// collect finalizes mapped listings up to limit
func collect(platform domain.Platform, limit int, mapped []domain.RealProductResult) []domain.RealProductResult {
	out := make([]domain.RealProductResult, 0, min(len(mapped), limit))
	for _, p := range mapped {
		if len(out) >= limit {
			break
		}
		if fp, ok := finalize(platform, p); ok {
			out = append(out, fp)
		}
	}
	return out
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(html.UnescapeString(s)), " ")
}

// guessBrand takes the first word of a listing title
func guessBrand(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// absoluteURL resolves href against base, returning href unchanged when either is malformed
func absoluteURL(base, href string) string {
	href = strings.TrimSpace(html.UnescapeString(href))
	if href == "" {
		return ""
	}
	b, err := url.Parse(base)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return b.ResolveReference(ref).String()
}

// hostMatches reports whether rawURL belongs to domain or one of its subdomains
func hostMatches(rawURL, domainName string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	return host == domainName || strings.HasSuffix(host, "."+domainName)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func nonEmpty(values ...string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// slugify turns a query into a path segment ("red dress" -> "red-dress")
func slugify(query string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(query)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		default:
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
