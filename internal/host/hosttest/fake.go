// Package hosttest provides an in-memory render host for tests.
package hosttest

import (
	"context"
	"fmt"
	"sync"

	"github.com/ivlev/replaydirector/internal/host"
	"github.com/ivlev/replaydirector/internal/sequence"
)

// Fake is an in-memory host.Host. Set records every successful call in
// order; SetErr injects failures per parameter.
type Fake struct {
	mu sync.Mutex

	Params   map[string]sequence.Value
	Playback host.PlaybackState
	Record   host.Recording
	Sets     []sequence.Sample

	// SetErr, when non-nil, is consulted before every Set.
	SetErr func(parameter string) error
	// StateErr fails State calls.
	StateErr error
	// RecordingPolls is how many RecordingState calls report an active
	// recording before it finishes.
	RecordingPolls int
	polls          int
}

var _ host.Host = (*Fake)(nil)

func New() *Fake {
	return &Fake{
		Params:   make(map[string]sequence.Value),
		Playback: host.PlaybackState{Length: 1800, Speed: 1, Paused: true},
	}
}

func (f *Fake) Get(ctx context.Context, parameter string) (sequence.Value, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.Params[parameter]
	if !ok {
		return sequence.Value{}, fmt.Errorf("no parameter %s", parameter)
	}
	return v, nil
}

func (f *Fake) Set(ctx context.Context, parameter string, v sequence.Value) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SetErr != nil {
		if err := f.SetErr(parameter); err != nil {
			return err
		}
	}
	f.Params[parameter] = v
	f.Sets = append(f.Sets, sequence.Sample{Parameter: parameter, Value: v})
	return nil
}

// Param returns the last value set for parameter.
func (f *Fake) Param(parameter string) (sequence.Value, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.Params[parameter]
	return v, ok
}

// SetCalls returns a copy of the recorded Set calls.
func (f *Fake) SetCalls() []sequence.Sample {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sequence.Sample(nil), f.Sets...)
}

func (f *Fake) SetParam(parameter string, v sequence.Value) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Params[parameter] = v
}

func (f *Fake) SetTime(t float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Playback.Time = t
}

func (f *Fake) State(ctx context.Context) (host.PlaybackState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.StateErr != nil {
		return host.PlaybackState{}, f.StateErr
	}
	return f.Playback, nil
}

func (f *Fake) Play(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Playback.Paused = false
	return nil
}

func (f *Fake) Pause(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Playback.Paused = true
	return nil
}

func (f *Fake) Seek(ctx context.Context, t float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Playback.Time = t
	return nil
}

func (f *Fake) AdjustTime(ctx context.Context, delta float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Playback.Time = max(0, min(f.Playback.Time+delta, f.Playback.Length))
	return nil
}

func (f *Fake) StartRecording(ctx context.Context, r host.Recording) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r.Recording = true
	f.Record = r
	f.polls = 0
	return nil
}

func (f *Fake) StopRecording(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Record.Recording = false
	return nil
}

func (f *Fake) RecordingState(ctx context.Context) (host.Recording, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Record.Recording {
		f.polls++
		if f.polls > f.RecordingPolls {
			f.Record.Recording = false
		}
	}
	return f.Record, nil
}
