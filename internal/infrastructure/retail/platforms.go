package retail

import (
	"time"

	"github.com/drape/backend/internal/domain"
	"github.com/rs/zerolog"
)

// Config holds retailer endpoints and credentials.
// Empty credentials turn the strategies that need them into no-ops.
type Config struct {
	MyntraBaseURL string
	MyntraSiteURL string

	AmazonBaseURL    string
	AmazonSiteURL    string
	AmazonAccessKey  string
	AmazonPartnerTag string

	FlipkartBaseURL     string
	FlipkartSiteURL     string
	FlipkartAffiliateID string
	FlipkartToken       string

	RapidAPIKey  string
	RapidAPIURLs map[domain.Platform][]string

	SerpAPIKey     string
	SerpAPIBaseURL string

	Timeout       time.Duration
	ScrapeTimeout time.Duration
	UserAgent     string

	// RequestsPerMinute is the outbound budget shared by all strategies of one platform
	RequestsPerMinute int
}

// DefaultConfig returns public endpoints with no credentials
func DefaultConfig() Config {
	return Config{
		MyntraBaseURL:     "https://www.myntra.com",
		MyntraSiteURL:     "https://www.myntra.com",
		AmazonBaseURL:     "https://webservices.amazon.in",
		AmazonSiteURL:     "https://www.amazon.in",
		FlipkartBaseURL:   "https://affiliate-api.flipkart.net",
		FlipkartSiteURL:   "https://www.flipkart.com",
		SerpAPIBaseURL:    "https://serpapi.com",
		Timeout:           10 * time.Second,
		ScrapeTimeout:     15 * time.Second,
		RequestsPerMinute: 60,
	}
}

var siteDomains = map[domain.Platform]string{
	domain.PlatformMyntra:   "myntra.com",
	domain.PlatformAmazon:   "amazon.in",
	domain.PlatformFlipkart: "flipkart.com",
}

// NewChains builds the fallback chain of every platform in merge order:
// native API, RapidAPI, SerpAPI, then HTML scrape.
func NewChains(cfg Config, logger zerolog.Logger) []*Chain {
	defaults := DefaultConfig()
	if cfg.MyntraBaseURL == "" {
		cfg.MyntraBaseURL = defaults.MyntraBaseURL
	}
	if cfg.AmazonBaseURL == "" {
		cfg.AmazonBaseURL = defaults.AmazonBaseURL
	}
	if cfg.FlipkartBaseURL == "" {
		cfg.FlipkartBaseURL = defaults.FlipkartBaseURL
	}
	if cfg.MyntraSiteURL == "" {
		cfg.MyntraSiteURL = defaults.MyntraSiteURL
	}
	if cfg.AmazonSiteURL == "" {
		cfg.AmazonSiteURL = defaults.AmazonSiteURL
	}
	if cfg.FlipkartSiteURL == "" {
		cfg.FlipkartSiteURL = defaults.FlipkartSiteURL
	}
	if cfg.SerpAPIBaseURL == "" {
		cfg.SerpAPIBaseURL = defaults.SerpAPIBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}
	if cfg.ScrapeTimeout <= 0 {
		cfg.ScrapeTimeout = defaults.ScrapeTimeout
	}

	chains := make([]*Chain, 0, len(domain.Platforms))
	for _, platform := range domain.Platforms {
		limiter := NewLimiter(cfg.RequestsPerMinute)
		api := NewFetcher(cfg.Timeout, limiter, cfg.UserAgent)
		page := NewFetcher(cfg.ScrapeTimeout, limiter, cfg.UserAgent)

		var native Strategy
		var siteURL string
		var searchURL func(string) string
		var extractor Extractor

		switch platform {
		case domain.PlatformMyntra:
			siteURL = cfg.MyntraSiteURL
			native = NewMyntraNative(api, cfg.MyntraBaseURL)
			searchURL = MyntraSearchURL(siteURL)
			extractor = MyntraExtractor(siteURL)
		case domain.PlatformAmazon:
			siteURL = cfg.AmazonSiteURL
			native = NewAmazonNative(api, cfg.AmazonBaseURL, cfg.AmazonAccessKey, cfg.AmazonPartnerTag)
			searchURL = AmazonSearchURL(siteURL)
			extractor = AmazonExtractor(siteURL)
		case domain.PlatformFlipkart:
			siteURL = cfg.FlipkartSiteURL
			native = NewFlipkartNative(api, cfg.FlipkartBaseURL, cfg.FlipkartAffiliateID, cfg.FlipkartToken)
			searchURL = FlipkartSearchURL(siteURL)
			extractor = FlipkartExtractor(siteURL)
		}

		chains = append(chains, NewChain(platform, logger,
			native,
			NewRapidAPIStrategy(platform, api, cfg.RapidAPIKey, cfg.RapidAPIURLs[platform], siteURL, logger),
			NewSerpAPIStrategy(platform, api, cfg.SerpAPIKey, cfg.SerpAPIBaseURL, siteDomains[platform]),
			NewScrapeStrategy(platform, page, searchURL, extractor),
		))
	}
	return chains
}
