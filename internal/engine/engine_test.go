package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivlev/replaydirector/internal/config"
	"github.com/ivlev/replaydirector/internal/host"
)

type counter struct {
	mu      sync.Mutex
	polls   int
	flushes int
	ticks   int
	pollErr error
}

func (c *counter) Poll(ctx context.Context) (host.PlaybackState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.polls++
	return host.PlaybackState{}, c.pollErr
}

func (c *counter) Flush(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.flushes++
	return nil
}

func (c *counter) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c.mu.Lock()
			c.ticks++
			c.mu.Unlock()
		}
	}
}

func (c *counter) counts() (ticks, polls, flushes int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ticks, c.polls, c.flushes
}

func TestSchedulerRunsAllCadences(t *testing.T) {
	c := &counter{pollErr: errors.New("host down")}
	s := NewScheduler(c, c, config.TickConfig{
		Fast:     time.Millisecond,
		Slow:     2 * time.Millisecond,
		Snapshot: 5 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx)
	}()

	require.Eventually(t, func() bool {
		ticks, polls, flushes := c.counts()
		return ticks > 3 && polls > 1 && flushes > 0
	}, 2*time.Second, time.Millisecond)

	_, _, before := c.counts()
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}

	_, _, after := c.counts()
	assert.Greater(t, after, before, "final flush on shutdown")
}
