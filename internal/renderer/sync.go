// Package renderer pushes sampled sequence values to the render host in step
// with replay playback.
package renderer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ivlev/replaydirector/internal/host"
	"github.com/ivlev/replaydirector/internal/logging"
	"github.com/ivlev/replaydirector/internal/metrics"
	"github.com/ivlev/replaydirector/internal/sequence"
)

// State of the sync loop.
type State int

const (
	Idle State = iota
	Driving
)

func (s State) String() string {
	if s == Driving {
		return "driving"
	}
	return "idle"
}

// Source provides frames to push. Frame reports false when sequencing is
// off or there is no valid active sequence.
type Source interface {
	Sequencing() bool
	Frame(t float64) ([]sequence.Sample, bool)
}

// Result summarizes one tick.
type Result struct {
	State  State
	Time   float64
	Pushed int
	Failed int
}

// Sync samples every track of the active sequence at the current playback
// time and sets the values on the host. Failed sets are logged and retried
// with fresh values on the next tick.
type Sync struct {
	source   Source
	playback host.Playback
	renderer host.Renderer
	timeout  time.Duration
	logger   *slog.Logger
	metrics  *metrics.Metrics

	mu    sync.Mutex
	state State
}

type Option func(*Sync)

// WithTimeout bounds each host call within a tick.
func WithTimeout(d time.Duration) Option {
	return func(s *Sync) {
		s.timeout = d
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Sync) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Sync) {
		s.metrics = m
	}
}

func NewSync(source Source, playback host.Playback, renderer host.Renderer, opts ...Option) *Sync {
	s := &Sync{
		source:   source,
		playback: playback,
		renderer: renderer,
		timeout:  50 * time.Millisecond,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = metrics.New(nil)
	}
	return s
}

func (s *Sync) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Sync) transition(to State) {
	s.mu.Lock()
	from := s.state
	s.state = to
	s.mu.Unlock()
	if from != to {
		s.logger.Info("playback sync", "state", to.String())
	}
}

// Tick runs one sync step. Host failures never abort the loop; they are
// counted in the result.
func (s *Sync) Tick(ctx context.Context) Result {
	if !s.source.Sequencing() {
		s.transition(Idle)
		s.metrics.Ticks.WithLabelValues(Idle.String()).Inc()
		return Result{State: Idle}
	}
	s.transition(Driving)
	s.metrics.Ticks.WithLabelValues(Driving.String()).Inc()
	start := time.Now()
	defer func() {
		s.metrics.TickDuration.Observe(time.Since(start).Seconds())
	}()

	pctx, cancel := context.WithTimeout(ctx, s.timeout)
	st, err := s.playback.State(pctx)
	cancel()
	if err != nil {
		s.logger.Warn("read playback time", "error", err)
		return Result{State: Driving, Failed: 1}
	}

	samples, ok := s.source.Frame(st.Time)
	if !ok {
		// sequencing was switched off since the start of the tick
		s.transition(Idle)
		return Result{State: Idle, Time: st.Time}
	}

	res := Result{State: Driving, Time: st.Time}
	for _, sample := range samples {
		sctx, cancel := context.WithTimeout(ctx, s.timeout)
		err := s.renderer.Set(sctx, sample.Parameter, sample.Value)
		cancel()
		if err != nil {
			res.Failed++
			s.metrics.SetFailures.WithLabelValues(sample.Parameter).Inc()
			s.logger.Warn("set parameter", "parameter", sample.Parameter, "error", err)
			continue
		}
		res.Pushed++
	}
	return res
}

// Run ticks every interval until ctx is done.
func (s *Sync) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}
