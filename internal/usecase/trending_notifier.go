package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/drape/backend/internal/domain"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// DefaultTrendingSchedule runs the trending job four times a day
const DefaultTrendingSchedule = "@every 6h"

const trendingRunTimeout = 2 * time.Minute

// Dispatcher is the part of NotificationDispatcher the trending job needs
type Dispatcher interface {
	Dispatch(ctx context.Context, req domain.NotificationRequest) (*domain.DispatchReport, error)
}

// TrendingNotifier periodically notifies opted-in users about a trending look.
// Topics rotate round-robin across runs.
type TrendingNotifier struct {
	repo       domain.NotificationRepository
	dispatcher Dispatcher
	products   ProductFinder // optional, attaches a matching product to the notification
	topics     []string
	schedule   string
	cron       *cron.Cron
	logger     zerolog.Logger

	mu   sync.Mutex
	next int
}

// NewTrendingNotifier creates the job. An empty schedule uses DefaultTrendingSchedule.
func NewTrendingNotifier(
	repo domain.NotificationRepository,
	dispatcher Dispatcher,
	products ProductFinder,
	topics []string,
	schedule string,
	logger zerolog.Logger,
) *TrendingNotifier {
	if strings.TrimSpace(schedule) == "" {
		schedule = DefaultTrendingSchedule
	}
	return &TrendingNotifier{
		repo:       repo,
		dispatcher: dispatcher,
		products:   products,
		topics:     normalizeList(topics),
		schedule:   schedule,
		cron:       cron.New(cron.WithChain(cron.Recover(cron.DiscardLogger))),
		logger:     logger,
	}
}

// Start registers the job and starts the scheduler
func (t *TrendingNotifier) Start() error {
	if len(t.topics) == 0 {
		return fmt.Errorf("%w: no trending topics configured", domain.ErrInvalidRequest)
	}

	_, err := t.cron.AddFunc(t.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), trendingRunTimeout)
		defer cancel()
		if _, err := t.RunOnce(ctx); err != nil {
			t.logger.Error().Err(err).Msg("trending notification run failed")
		}
	})
	if err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}

	t.cron.Start()
	t.logger.Info().Str("schedule", t.schedule).Strs("topics", t.topics).Msg("trending notifier started")
	return nil
}

// Stop stops the scheduler and waits for a running job
func (t *TrendingNotifier) Stop() {
	<-t.cron.Stop().Done()
}

// RunOnce notifies every trending subscriber about the next topic.
// A nil report with a nil error means there was nobody to notify.
func (t *TrendingNotifier) RunOnce(ctx context.Context) (*domain.DispatchReport, error) {
	topic, ok := t.nextTopic()
	if !ok {
		return nil, fmt.Errorf("%w: no trending topics configured", domain.ErrInvalidRequest)
	}

	subscribers, err := t.repo.TrendingSubscribers(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading trending subscribers: %w", err)
	}
	if len(subscribers) == 0 {
		t.logger.Debug().Str("topic", topic).Msg("no trending subscribers")
		return nil, nil
	}

	req := domain.NotificationRequest{
		UserIDs: subscribers,
		Type:    domain.NotificationTrendingOutfit,
		Title:   "Trending now: " + capitalizeWords(topic),
		Body:    fmt.Sprintf("Everyone is wearing %s this week. Tap to see looks picked for you.", topic),
		Data:    map[string]string{"topic": topic},
	}
	t.attachProduct(ctx, topic, req.Data)

	report, err := t.dispatcher.Dispatch(ctx, req)
	if err != nil {
		return nil, err
	}
	t.logger.Info().Str("topic", topic).Int("subscribers", len(subscribers)).Int("sent", report.Sent).Msg("trending notification dispatched")
	return report, nil
}

func (t *TrendingNotifier) nextTopic() (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.topics) == 0 {
		return "", false
	}
	topic := t.topics[t.next%len(t.topics)]
	t.next++
	return topic, true
}

func (t *TrendingNotifier) attachProduct(ctx context.Context, topic string, data map[string]string) {
	if t.products == nil {
		return
	}
	products, err := t.products.SearchRealProducts(ctx, topic, domain.ProductSearchOptions{MaxResults: 1, SortBy: domain.SortByRating})
	if err != nil {
		t.logger.Warn().Err(err).Str("topic", topic).Msg("trending product lookup failed")
		return
	}
	if len(products) == 0 {
		return
	}
	data["productUrl"] = products[0].ProductURL
	data["productImage"] = products[0].ImageURL
}
