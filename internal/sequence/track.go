package sequence

import (
	"fmt"
	"math"
	"sort"
)

// Keyframe anchors a parameter value at a point of the replay timeline.
type Keyframe struct {
	Time  float64
	Value Value
}

// Track holds the keyframes of one parameter ordered by strictly increasing
// time. All keyframes share the track's Kind.
type Track struct {
	Parameter string
	Kind      Kind
	Keyframes []Keyframe
}

func NewTrack(parameter string, kind Kind) *Track {
	return &Track{Parameter: parameter, Kind: kind}
}

func validTime(t float64) bool {
	return t >= 0 && !math.IsInf(t, 0) && !math.IsNaN(t)
}

// search returns the index of the first keyframe with Time >= t.
func (tr *Track) search(t float64) int {
	return sort.Search(len(tr.Keyframes), func(i int) bool {
		return tr.Keyframes[i].Time >= t
	})
}

// Add inserts a keyframe at time t, replacing the value of an existing
// keyframe at exactly that time. The displaced value is returned so the
// insertion can be reverted.
func (tr *Track) Add(t float64, v Value) (prev Value, replaced bool, err error) {
	if !validTime(t) {
		return Value{}, false, fmt.Errorf("%s at %v: %w", tr.Parameter, t, ErrInvalidTime)
	}
	if v.Kind != tr.Kind {
		return Value{}, false, fmt.Errorf("%s: %s value on %s track: %w", tr.Parameter, v.Kind, tr.Kind, ErrKindMismatch)
	}

	i := tr.search(t)
	if i < len(tr.Keyframes) && tr.Keyframes[i].Time == t {
		prev = tr.Keyframes[i].Value
		tr.Keyframes[i].Value = v
		return prev, true, nil
	}

	tr.Keyframes = append(tr.Keyframes, Keyframe{})
	copy(tr.Keyframes[i+1:], tr.Keyframes[i:])
	tr.Keyframes[i] = Keyframe{Time: t, Value: v}
	return Value{}, false, nil
}

// Remove deletes the keyframe at exactly time t.
func (tr *Track) Remove(t float64) (Keyframe, error) {
	i, ok := tr.Index(t)
	if !ok {
		return Keyframe{}, fmt.Errorf("%s at %v: %w", tr.Parameter, t, ErrNotFound)
	}
	kf := tr.Keyframes[i]
	tr.Keyframes = append(tr.Keyframes[:i], tr.Keyframes[i+1:]...)
	return kf, nil
}

// Clear removes every keyframe and returns them in order.
func (tr *Track) Clear() []Keyframe {
	removed := tr.Keyframes
	tr.Keyframes = nil
	return removed
}

// Index returns the position of the keyframe at exactly time t.
func (tr *Track) Index(t float64) (int, bool) {
	i := tr.search(t)
	if i < len(tr.Keyframes) && tr.Keyframes[i].Time == t {
		return i, true
	}
	return 0, false
}

func (tr *Track) Has(t float64) bool {
	_, ok := tr.Index(t)
	return ok
}

// Next returns the first keyframe strictly after t.
func (tr *Track) Next(t float64) (Keyframe, bool) {
	i := sort.Search(len(tr.Keyframes), func(i int) bool {
		return tr.Keyframes[i].Time > t
	})
	if i == len(tr.Keyframes) {
		return Keyframe{}, false
	}
	return tr.Keyframes[i], true
}

// Prev returns the last keyframe strictly before t.
func (tr *Track) Prev(t float64) (Keyframe, bool) {
	i := tr.search(t)
	if i == 0 {
		return Keyframe{}, false
	}
	return tr.Keyframes[i-1], true
}

func (tr *Track) Len() int {
	return len(tr.Keyframes)
}

// Sample evaluates the track at time t.
func (tr *Track) Sample(t float64) (Value, error) {
	return Interpolate(tr.Keyframes, tr.Kind, t)
}

func (tr *Track) Clone() *Track {
	c := &Track{Parameter: tr.Parameter, Kind: tr.Kind}
	if len(tr.Keyframes) > 0 {
		c.Keyframes = make([]Keyframe, len(tr.Keyframes))
		copy(c.Keyframes, tr.Keyframes)
	}
	return c
}

// Equal compares parameter, kind and keyframes. A nil and an empty keyframe
// list are equal.
func (tr *Track) Equal(o *Track) bool {
	if tr.Parameter != o.Parameter || tr.Kind != o.Kind || len(tr.Keyframes) != len(o.Keyframes) {
		return false
	}
	for i := range tr.Keyframes {
		if tr.Keyframes[i] != o.Keyframes[i] {
			return false
		}
	}
	return true
}
