package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/drape/backend/internal/domain"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// MinPollInterval is the shortest interval the cron scheduler can express
const MinPollInterval = time.Second

// DashboardPoller polls a dashboard source on an interval and republishes updates to subscribers.
// Overlapping ticks are skipped, so a slow request never runs concurrently with the next one.
type DashboardPoller struct {
	source domain.DashboardSource
	logger zerolog.Logger

	mu          sync.Mutex
	subscribers map[int]func(domain.DashboardUpdate)
	nextID      int
	cursor      domain.Cursor
	interval    time.Duration
	cron        *cron.Cron
}

// NewDashboardPoller creates a poller starting from the zero cursor
func NewDashboardPoller(source domain.DashboardSource, logger zerolog.Logger) *DashboardPoller {
	return &DashboardPoller{
		source:      source,
		logger:      logger,
		subscribers: make(map[int]func(domain.DashboardUpdate)),
	}
}

// OnUpdate registers fn for every update with HasUpdates set. The returned func unsubscribes it.
func (p *DashboardPoller) OnUpdate(fn func(domain.DashboardUpdate)) (unsubscribe func()) {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.subscribers[id] = fn
	p.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.subscribers, id)
			p.mu.Unlock()
		})
	}
}

// Poll fetches updates since cursor. When the response has updates, subscribers run synchronously
// in registration order and the response timestamp becomes the returned cursor; otherwise cursor is returned unchanged.
func (p *DashboardPoller) Poll(ctx context.Context, cursor domain.Cursor) (domain.Cursor, *domain.DashboardUpdate, error) {
	update, err := p.source.FetchUpdates(ctx, cursor.Since)
	if err != nil {
		return cursor, nil, err
	}
	if update == nil || !update.HasUpdates {
		return cursor, update, nil
	}

	p.publish(*update)
	return domain.Cursor{Since: update.Timestamp}, update, nil
}

func (p *DashboardPoller) publish(update domain.DashboardUpdate) {
	p.mu.Lock()
	ids := make([]int, 0, len(p.subscribers))
	for id := range p.subscribers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(domain.DashboardUpdate), len(ids))
	for i, id := range ids {
		fns[i] = p.subscribers[id]
	}
	p.mu.Unlock()

	for _, fn := range fns {
		fn(update)
	}
}

// StartPolling polls every interval until StopPolling. Restarting replaces the previous schedule
// but keeps the cursor. Intervals below MinPollInterval are raised to it.
func (p *DashboardPoller) StartPolling(interval time.Duration) {
	if interval < MinPollInterval {
		interval = MinPollInterval
	}
	p.StopPolling()

	c := cron.New(cron.WithChain(cron.Recover(cron.DiscardLogger), cron.SkipIfStillRunning(cron.DiscardLogger)))
	c.Schedule(cron.Every(interval), cron.FuncJob(p.tick))

	p.mu.Lock()
	p.cron = c
	p.interval = interval
	p.mu.Unlock()

	c.Start()
	p.logger.Info().Dur("interval", interval).Msg("dashboard polling started")
}

// StopPolling stops the schedule and waits for an in-flight poll to finish
func (p *DashboardPoller) StopPolling() {
	p.mu.Lock()
	c := p.cron
	p.cron = nil
	p.mu.Unlock()

	if c == nil {
		return
	}
	<-c.Stop().Done()
	p.logger.Info().Msg("dashboard polling stopped")
}

// Cursor returns the cursor the polling loop will use next
func (p *DashboardPoller) Cursor() domain.Cursor {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cursor
}

func (p *DashboardPoller) tick() {
	p.mu.Lock()
	cursor := p.cursor
	timeout := p.interval
	p.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	next, _, err := p.Poll(ctx, cursor)
	if err != nil {
		p.logger.Warn().Err(err).Time("since", cursor.Since).Msg("dashboard poll failed")
		return
	}

	p.mu.Lock()
	p.cursor = next
	p.mu.Unlock()
}
