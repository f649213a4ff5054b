package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server        ServerConfig
	Retail        RetailConfig
	OpenAI        OpenAIConfig
	Cloudinary    CloudinaryConfig
	Cache         CacheConfig
	RateLimit     RateLimitConfig
	Database      DatabaseConfig
	Push          PushConfig
	Email         EmailConfig
	Notifications NotificationsConfig
	Dashboard     DashboardConfig
	Log           LogConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// RetailConfig holds retailer and aggregator API configuration.
// Empty keys disable the strategies that need them.
type RetailConfig struct {
	MyntraBaseURL        string        `mapstructure:"myntra_base_url"`
	AmazonBaseURL        string        `mapstructure:"amazon_base_url"`
	AmazonAccessKey      string        `mapstructure:"amazon_access_key"`
	AmazonPartnerTag     string        `mapstructure:"amazon_partner_tag"`
	FlipkartBaseURL      string        `mapstructure:"flipkart_base_url"`
	FlipkartAffiliateID  string        `mapstructure:"flipkart_affiliate_id"`
	FlipkartToken        string        `mapstructure:"flipkart_token"`
	RapidAPIKey          string        `mapstructure:"rapidapi_key"`
	RapidAPIMyntraURLs   []string      `mapstructure:"rapidapi_myntra_urls"`
	RapidAPIAmazonURLs   []string      `mapstructure:"rapidapi_amazon_urls"`
	RapidAPIFlipkartURLs []string      `mapstructure:"rapidapi_flipkart_urls"`
	SerpAPIKey           string        `mapstructure:"serpapi_key"`
	SerpAPIBaseURL       string        `mapstructure:"serpapi_base_url"`
	Timeout              time.Duration `mapstructure:"timeout"`
	ScrapeTimeout        time.Duration `mapstructure:"scrape_timeout"`
	UserAgent            string        `mapstructure:"user_agent"`
}

// OpenAIConfig holds chat-completion configuration
type OpenAIConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	Model   string        `mapstructure:"model"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// CloudinaryConfig holds media host configuration
type CloudinaryConfig struct {
	CloudName string `mapstructure:"cloud_name"`
	APIKey    string `mapstructure:"api_key"`
	APISecret string `mapstructure:"api_secret"`
	Folder    string `mapstructure:"folder"`
	BaseURL   string `mapstructure:"base_url"`
}

// CacheConfig holds cache-related configuration
type CacheConfig struct {
	Type     string        `mapstructure:"type"` // "memory" or "redis"
	RedisURL string        `mapstructure:"redis_url"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PerIP    int `mapstructure:"per_ip"`   // requests per minute per client IP
	Upstream int `mapstructure:"upstream"` // requests per minute per retailer
}

// DatabaseConfig holds Postgres configuration
type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

// PushConfig holds push gateway configuration
type PushConfig struct {
	ServerKey string `mapstructure:"server_key"`
	Endpoint  string `mapstructure:"endpoint"`
}

// EmailConfig holds SMTP configuration
type EmailConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

// NotificationsConfig holds the trending-outfit job configuration
type NotificationsConfig struct {
	TrendingSchedule string   `mapstructure:"trending_schedule"`
	TrendingTopics   []string `mapstructure:"trending_topics"`
}

// DashboardConfig is used by drapectl when polling a running backend
type DashboardConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	Token        string        `mapstructure:"token"`
	UserID       string        `mapstructure:"user_id"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Load loads configuration from a .env file, environment variables and config files
func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/drape/")

	v.SetEnvPrefix("DRAPE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Config file is optional
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// loadEnvFile loads .env from the working directory without overriding
// variables that are already set. A missing file is not an error.
func loadEnvFile() error {
	err := godotenv.Load(".env")
	if err != nil && errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// setDefaults sets default configuration values.
// Every key needs a default so AutomaticEnv can bind it during Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000", "http://localhost:19006"})

	v.SetDefault("retail.myntra_base_url", "https://www.myntra.com")
	v.SetDefault("retail.amazon_base_url", "https://webservices.amazon.in")
	v.SetDefault("retail.amazon_access_key", "")
	v.SetDefault("retail.amazon_partner_tag", "")
	v.SetDefault("retail.flipkart_base_url", "https://affiliate-api.flipkart.net")
	v.SetDefault("retail.flipkart_affiliate_id", "")
	v.SetDefault("retail.flipkart_token", "")
	v.SetDefault("retail.rapidapi_key", "")
	v.SetDefault("retail.rapidapi_myntra_urls", []string{
		"https://myntra-product-search.p.rapidapi.com/search",
		"https://myntra-scraper.p.rapidapi.com/products",
	})
	v.SetDefault("retail.rapidapi_amazon_urls", []string{
		"https://real-time-amazon-data.p.rapidapi.com/search",
		"https://amazon-product-search.p.rapidapi.com/search",
	})
	v.SetDefault("retail.rapidapi_flipkart_urls", []string{
		"https://real-time-flipkart-api.p.rapidapi.com/product-search",
		"https://flipkart-scraper-api.p.rapidapi.com/search",
	})
	v.SetDefault("retail.serpapi_key", "")
	v.SetDefault("retail.serpapi_base_url", "https://serpapi.com")
	v.SetDefault("retail.timeout", "10s")
	v.SetDefault("retail.scrape_timeout", "15s")
	v.SetDefault("retail.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36")

	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("openai.timeout", "30s")

	v.SetDefault("cloudinary.cloud_name", "")
	v.SetDefault("cloudinary.api_key", "")
	v.SetDefault("cloudinary.api_secret", "")
	v.SetDefault("cloudinary.folder", "drape")
	v.SetDefault("cloudinary.base_url", "https://api.cloudinary.com/v1_1")

	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.ttl", "30m")

	v.SetDefault("ratelimit.per_ip", 100)
	v.SetDefault("ratelimit.upstream", 60)

	v.SetDefault("database.url", "")

	v.SetDefault("push.server_key", "")
	v.SetDefault("push.endpoint", "https://fcm.googleapis.com/fcm/send")

	v.SetDefault("email.host", "")
	v.SetDefault("email.port", 587)
	v.SetDefault("email.username", "")
	v.SetDefault("email.password", "")
	v.SetDefault("email.from", "Drape <no-reply@drape.app>")

	v.SetDefault("notifications.trending_schedule", "@every 6h")
	v.SetDefault("notifications.trending_topics", []string{
		"oversized shirts", "wide leg jeans", "co-ord sets", "linen kurtas", "chunky sneakers",
	})

	v.SetDefault("dashboard.base_url", "http://localhost:8080")
	v.SetDefault("dashboard.token", "")
	v.SetDefault("dashboard.user_id", "")
	v.SetDefault("dashboard.poll_interval", "30s")

	v.SetDefault("log.level", "info")
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Cache.Type != "memory" && config.Cache.Type != "redis" {
		return fmt.Errorf("cache type must be 'memory' or 'redis', got: %s", config.Cache.Type)
	}

	if config.Cache.Type == "redis" && config.Cache.RedisURL == "" {
		return fmt.Errorf("Redis URL is required when cache type is 'redis'")
	}

	if config.Retail.Timeout < time.Second || config.Retail.Timeout > time.Minute {
		return fmt.Errorf("retail timeout must be between 1s and 60s, got: %s", config.Retail.Timeout)
	}

	if config.Retail.ScrapeTimeout < time.Second || config.Retail.ScrapeTimeout > time.Minute {
		return fmt.Errorf("retail scrape timeout must be between 1s and 60s, got: %s", config.Retail.ScrapeTimeout)
	}

	if _, err := zerolog.ParseLevel(config.Log.Level); err != nil {
		return fmt.Errorf("invalid log level %q: %w", config.Log.Level, err)
	}

	return nil
}
