package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/drape/backend/config"
	httpDelivery "github.com/drape/backend/internal/delivery/http"
	"github.com/drape/backend/internal/domain"
	"github.com/drape/backend/internal/infrastructure/cache"
	"github.com/drape/backend/internal/infrastructure/cloudinary"
	"github.com/drape/backend/internal/infrastructure/email"
	"github.com/drape/backend/internal/infrastructure/logging"
	"github.com/drape/backend/internal/infrastructure/openai"
	"github.com/drape/backend/internal/infrastructure/postgres"
	"github.com/drape/backend/internal/infrastructure/push"
	"github.com/drape/backend/internal/infrastructure/retail"
	"github.com/drape/backend/internal/usecase"
	"github.com/rs/zerolog"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logging.New(cfg.Server.Environment, cfg.Log.Level)
	logger.Info().
		Str("environment", cfg.Server.Environment).
		Str("port", cfg.Server.Port).
		Str("cache", cfg.Cache.Type).
		Msg("starting drape backend v1.0.0")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("server exited")
	}
	logger.Info().Msg("server stopped")
}

func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	productCache, closeCache, err := newCache(ctx, cfg.Cache)
	if err != nil {
		return err
	}
	defer closeCache()

	// Product search across every retailer's fallback chain
	chains := retail.NewChains(retailConfig(cfg), logger)
	searchers := make([]domain.ProductSearcher, 0, len(chains))
	for _, chain := range chains {
		logger.Info().Str("platform", string(chain.Platform())).Strs("strategies", chain.Strategies()).Msg("retail chain ready")
		searchers = append(searchers, chain)
	}
	productService := usecase.NewProductSearchService(searchers, productCache, usecase.ProductSearchConfig{
		CacheTTL:          cfg.Cache.TTL,
		FuzzyEditDistance: 1,
	}, logger)

	services := httpDelivery.Services{Products: productService}

	if cfg.OpenAI.APIKey != "" {
		llm := openai.NewClient(openai.Config{
			APIKey:  cfg.OpenAI.APIKey,
			Model:   cfg.OpenAI.Model,
			BaseURL: cfg.OpenAI.BaseURL,
			Timeout: cfg.OpenAI.Timeout,
		}, logger)
		services.Outfits = usecase.NewOutfitService(llm, productService, usecase.OutfitServiceConfig{}, logger)
	} else {
		logger.Warn().Msg("OpenAI key not configured, outfit suggestions disabled")
	}

	if uploader := cloudinary.NewUploader(cloudinary.Config{
		CloudName: cfg.Cloudinary.CloudName,
		APIKey:    cfg.Cloudinary.APIKey,
		APISecret: cfg.Cloudinary.APISecret,
		Folder:    cfg.Cloudinary.Folder,
		BaseURL:   cfg.Cloudinary.BaseURL,
	}, logger); uploader != nil {
		services.Media = usecase.NewMediaService(uploader, domain.MaxUploadBytes, logger)
	} else {
		logger.Warn().Msg("Cloudinary credentials not configured, media uploads disabled")
	}

	var trending *usecase.TrendingNotifier
	if cfg.Database.URL != "" {
		pool, err := postgres.NewPool(ctx, cfg.Database.URL)
		if err != nil {
			return err
		}
		defer pool.Close()

		repo := postgres.NewNotificationRepository(pool)
		if err := repo.EnsureSchema(ctx); err != nil {
			return err
		}

		var pushSender domain.PushSender
		if fcm := push.NewFCMSender(cfg.Push.ServerKey, cfg.Push.Endpoint, nil, logger); fcm != nil {
			pushSender = fcm
		}
		var emailSender domain.EmailSender
		smtpSender, err := email.NewSMTPSender(email.Config{
			Host:     cfg.Email.Host,
			Port:     cfg.Email.Port,
			Username: cfg.Email.Username,
			Password: cfg.Email.Password,
			From:     cfg.Email.From,
		}, logger)
		if err != nil {
			return err
		}
		if smtpSender != nil {
			emailSender = smtpSender
		}

		dispatcher := usecase.NewNotificationDispatcher(repo, pushSender, emailSender, logger)
		services.Notifications = dispatcher
		services.Preferences = repo
		services.Dashboard = usecase.NewDashboardService(repo)

		trending = usecase.NewTrendingNotifier(
			repo, dispatcher, productService,
			cfg.Notifications.TrendingTopics, cfg.Notifications.TrendingSchedule,
			logger,
		)
		if err := trending.Start(); err != nil {
			logger.Warn().Err(err).Msg("trending notifications not scheduled")
			trending = nil
		}
	} else {
		logger.Warn().Msg("database not configured, notifications and dashboard disabled")
	}

	handler := httpDelivery.NewHandler(services, logger)
	router := httpDelivery.SetupRouter(cfg, handler, logger)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	}

	if trending != nil {
		trending.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

// newCache returns the product cache and a release func
func newCache(ctx context.Context, cfg config.CacheConfig) (domain.CacheRepository, func(), error) {
	if cfg.Type == "redis" {
		redisCache, err := cache.NewRedisCache(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return redisCache, func() { _ = redisCache.Close() }, nil
	}
	return cache.NewMemoryCache(), func() {}, nil
}

func retailConfig(cfg *config.Config) retail.Config {
	r := cfg.Retail
	return retail.Config{
		MyntraBaseURL:       r.MyntraBaseURL,
		AmazonBaseURL:       r.AmazonBaseURL,
		AmazonAccessKey:     r.AmazonAccessKey,
		AmazonPartnerTag:    r.AmazonPartnerTag,
		FlipkartBaseURL:     r.FlipkartBaseURL,
		FlipkartAffiliateID: r.FlipkartAffiliateID,
		FlipkartToken:       r.FlipkartToken,
		RapidAPIKey:         r.RapidAPIKey,
		RapidAPIURLs: map[domain.Platform][]string{
			domain.PlatformMyntra:   r.RapidAPIMyntraURLs,
			domain.PlatformAmazon:   r.RapidAPIAmazonURLs,
			domain.PlatformFlipkart: r.RapidAPIFlipkartURLs,
		},
		SerpAPIKey:        r.SerpAPIKey,
		SerpAPIBaseURL:    r.SerpAPIBaseURL,
		Timeout:           r.Timeout,
		ScrapeTimeout:     r.ScrapeTimeout,
		UserAgent:         r.UserAgent,
		RequestsPerMinute: cfg.RateLimit.Upstream,
	}
}

func init() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.SetOutput(os.Stdout)
}
