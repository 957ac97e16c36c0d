// Package host describes the render host the director drives: the game
// client's render parameters, its replay playback and its recorder.
package host

import (
	"context"
	"errors"

	"github.com/ivlev/replaydirector/internal/sequence"
)

// ErrHostUnreachable marks transient failures talking to the render host.
var ErrHostUnreachable = errors.New("render host unreachable")

// Renderer reads and writes named render parameters. Both calls are
// idempotent.
type Renderer interface {
	Get(ctx context.Context, parameter string) (sequence.Value, error)
	Set(ctx context.Context, parameter string, v sequence.Value) error
}

// PlaybackState is the replay timeline position as reported by the host.
type PlaybackState struct {
	Time    float64 `json:"time"`
	Length  float64 `json:"length"`
	Speed   float64 `json:"speed"`
	Paused  bool    `json:"paused"`
	Seeking bool    `json:"seeking"`
}

type Playback interface {
	State(ctx context.Context) (PlaybackState, error)
	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	Seek(ctx context.Context, t float64) error
	AdjustTime(ctx context.Context, delta float64) error
}

// Recording describes a host-side capture of the replay.
type Recording struct {
	Recording        bool    `json:"recording"`
	Codec            string  `json:"codec"`
	StartTime        float64 `json:"startTime"`
	EndTime          float64 `json:"endTime"`
	CurrentTime      float64 `json:"currentTime,omitempty"`
	FramesPerSecond  int     `json:"framesPerSecond"`
	EnforceFrameRate bool    `json:"enforceFrameRate"`
	Lossless         bool    `json:"lossless"`
	Path             string  `json:"path"`
}

type Recorder interface {
	StartRecording(ctx context.Context, r Recording) error
	StopRecording(ctx context.Context) error
	RecordingState(ctx context.Context) (Recording, error)
}

// Host is everything the director consumes from the game client.
type Host interface {
	Renderer
	Playback
	Recorder
}
