package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/drape/backend/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoll(t *testing.T) {
	ctx := context.Background()
	t0 := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)

	t.Run("advances the cursor and notifies subscribers in order", func(t *testing.T) {
		source := &MockDashboardSource{updates: []*domain.DashboardUpdate{
			{HasUpdates: true, Timestamp: t0, Notifications: []domain.Notification{{Title: "new look"}}},
		}}
		p := NewDashboardPoller(source, zerolog.Nop())

		var order []string
		p.OnUpdate(func(u domain.DashboardUpdate) { order = append(order, "first:"+u.Notifications[0].Title) })
		p.OnUpdate(func(u domain.DashboardUpdate) { order = append(order, "second") })

		next, update, err := p.Poll(ctx, domain.Cursor{})
		require.NoError(t, err)
		assert.True(t, update.HasUpdates)
		assert.Equal(t, domain.Cursor{Since: t0}, next)
		assert.Equal(t, []string{"first:new look", "second"}, order)
	})

	t.Run("keeps the cursor when nothing changed", func(t *testing.T) {
		source := &MockDashboardSource{updates: []*domain.DashboardUpdate{{HasUpdates: false, Timestamp: t0.Add(time.Hour)}}}
		p := NewDashboardPoller(source, zerolog.Nop())
		called := false
		p.OnUpdate(func(domain.DashboardUpdate) { called = true })

		cursor := domain.Cursor{Since: t0}
		next, _, err := p.Poll(ctx, cursor)
		require.NoError(t, err)
		assert.Equal(t, cursor, next)
		assert.False(t, called)
	})

	t.Run("keeps the cursor on error", func(t *testing.T) {
		source := &MockDashboardSource{err: domain.ErrUnauthorized}
		p := NewDashboardPoller(source, zerolog.Nop())

		cursor := domain.Cursor{Since: t0}
		next, update, err := p.Poll(ctx, cursor)
		assert.True(t, errors.Is(err, domain.ErrUnauthorized))
		assert.Nil(t, update)
		assert.Equal(t, cursor, next)
	})

	t.Run("sends the cursor upstream", func(t *testing.T) {
		source := &MockDashboardSource{}
		p := NewDashboardPoller(source, zerolog.Nop())

		_, _, err := p.Poll(ctx, domain.Cursor{Since: t0})
		require.NoError(t, err)
		assert.Equal(t, []time.Time{t0}, source.since)
	})

	t.Run("unsubscribed handlers are not called", func(t *testing.T) {
		source := &MockDashboardSource{updates: []*domain.DashboardUpdate{{HasUpdates: true, Timestamp: t0}}}
		p := NewDashboardPoller(source, zerolog.Nop())
		calls := 0
		unsubscribe := p.OnUpdate(func(domain.DashboardUpdate) { calls++ })
		unsubscribe()
		unsubscribe()

		_, _, err := p.Poll(ctx, domain.Cursor{})
		require.NoError(t, err)
		assert.Equal(t, 0, calls)
	})
}

func TestStartPolling(t *testing.T) {
	t0 := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)
	source := &MockDashboardSource{updates: []*domain.DashboardUpdate{
		{HasUpdates: true, Timestamp: t0, Notifications: []domain.Notification{{Title: "a"}}},
	}}
	p := NewDashboardPoller(source, zerolog.Nop())

	var mu sync.Mutex
	var received []domain.DashboardUpdate
	p.OnUpdate(func(u domain.DashboardUpdate) {
		mu.Lock()
		received = append(received, u)
		mu.Unlock()
	})

	p.StartPolling(10 * time.Millisecond) // raised to MinPollInterval
	defer p.StopPolling()

	require.Eventually(t, func() bool { return source.Calls() >= 2 }, 5*time.Second, 50*time.Millisecond)
	p.StopPolling()

	mu.Lock()
	assert.Len(t, received, 1)
	mu.Unlock()
	assert.Equal(t, domain.Cursor{Since: t0}, p.Cursor())

	source.mu.Lock()
	assert.Equal(t, t0, source.since[1], "second poll should use the advanced cursor")
	source.mu.Unlock()

	calls := source.Calls()
	time.Sleep(1500 * time.Millisecond)
	assert.Equal(t, calls, source.Calls(), "no polls after StopPolling")
}
