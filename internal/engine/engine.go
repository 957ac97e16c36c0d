// Package engine runs the periodic work of a serving director: the fast sync
// tick, the slow playback poll and the snapshot autosave.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ivlev/replaydirector/internal/config"
	"github.com/ivlev/replaydirector/internal/host"
	"github.com/ivlev/replaydirector/internal/logging"
	"github.com/ivlev/replaydirector/internal/renderer"
)

// Director is the part of the sequence manager the scheduler drives.
type Director interface {
	Poll(ctx context.Context) (host.PlaybackState, error)
	Flush(ctx context.Context) error
}

// Ticker drives the renderer every interval until ctx is done.
type Ticker interface {
	Run(ctx context.Context, interval time.Duration) error
}

var _ Ticker = (*renderer.Sync)(nil)

type Scheduler struct {
	director Director
	sync     Ticker
	ticks    config.TickConfig
	logger   *slog.Logger
}

type Option func(*Scheduler)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

func NewScheduler(d Director, sync Ticker, ticks config.TickConfig, opts ...Option) *Scheduler {
	s := &Scheduler{
		director: d,
		sync:     sync,
		ticks:    ticks,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run blocks until ctx is cancelled, then flushes the active sequence one
// last time.
func (s *Scheduler) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.sync.Run(gctx, s.ticks.Fast)
	})

	g.Go(func() error {
		failing := false
		return every(gctx, s.ticks.Slow, func() {
			_, err := s.director.Poll(gctx)
			// log transitions only, the host may be down for a long time
			switch {
			case err != nil && !failing:
				s.logger.Warn("poll playback", "error", err)
				failing = true
			case err == nil && failing:
				s.logger.Info("playback reachable again")
				failing = false
			}
		})
	})

	g.Go(func() error {
		return every(gctx, s.ticks.Snapshot, func() {
			if err := s.director.Flush(gctx); err != nil {
				s.logger.Error("autosave", "error", err)
			}
		})
	})

	err := g.Wait()

	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if ferr := s.director.Flush(flushCtx); ferr != nil {
		s.logger.Error("final flush", "error", ferr)
	}

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func every(ctx context.Context, interval time.Duration, fn func()) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			fn()
		}
	}
}
