package sequence

import "errors"

var (
	// ErrNoData is returned when sampling a track that has no keyframes.
	// Callers skip the track.
	ErrNoData = errors.New("track has no keyframes")

	// ErrNotFound is returned when no keyframe exists at the requested time.
	ErrNotFound = errors.New("keyframe not found")

	ErrKindMismatch     = errors.New("value kind does not match track")
	ErrInvalidTime      = errors.New("time must be finite and non-negative")
	ErrInvalidBounds    = errors.New("invalid sequence bounds")
	ErrUnknownParameter = errors.New("unknown parameter")

	// ErrCorrupt is returned when a persisted sequence cannot be decoded or
	// fails validation.
	ErrCorrupt = errors.New("corrupt sequence")
)
