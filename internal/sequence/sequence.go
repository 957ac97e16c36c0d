package sequence

import (
	"fmt"
	"math"
	"sort"
)

// Sequence is a named choreography: parameter tracks plus the time bounds
// they are played over.
type Sequence struct {
	Name      string
	StartTime float64
	EndTime   float64
	Tracks    map[string]*Track
}

// Sample is the evaluated value of one parameter.
type Sample struct {
	Parameter string
	Value     Value
}

func New(name string, start, end float64) *Sequence {
	return &Sequence{
		Name:      name,
		StartTime: start,
		EndTime:   end,
		Tracks:    make(map[string]*Track),
	}
}

func (s *Sequence) Track(parameter string) (*Track, bool) {
	tr, ok := s.Tracks[parameter]
	return tr, ok
}

// EnsureTrack returns the track for parameter, creating an empty one when
// missing. created reports whether a track was added.
func (s *Sequence) EnsureTrack(parameter string, kind Kind) (tr *Track, created bool, err error) {
	if tr, ok := s.Tracks[parameter]; ok {
		if tr.Kind != kind {
			return nil, false, fmt.Errorf("%s is a %s track, got %s: %w", parameter, tr.Kind, kind, ErrKindMismatch)
		}
		return tr, false, nil
	}
	if !kind.Valid() {
		return nil, false, fmt.Errorf("%s: kind %q: %w", parameter, kind, ErrKindMismatch)
	}
	if s.Tracks == nil {
		s.Tracks = make(map[string]*Track)
	}
	tr = NewTrack(parameter, kind)
	s.Tracks[parameter] = tr
	return tr, true, nil
}

func (s *Sequence) RemoveTrack(parameter string) {
	delete(s.Tracks, parameter)
}

// Parameters returns the track names in lexical order.
func (s *Sequence) Parameters() []string {
	names := make([]string, 0, len(s.Tracks))
	for name := range s.Tracks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SetBounds replaces the time bounds.
func (s *Sequence) SetBounds(start, end float64) error {
	if !validTime(start) || math.IsNaN(end) || math.IsInf(end, 0) || end < start {
		return fmt.Errorf("[%v, %v]: %w", start, end, ErrInvalidBounds)
	}
	s.StartTime, s.EndTime = start, end
	return nil
}

// Clamp limits t to [StartTime, EndTime].
func (s *Sequence) Clamp(t float64) float64 {
	return math.Min(math.Max(t, s.StartTime), s.EndTime)
}

func (s *Sequence) KeyframeCount() int {
	n := 0
	for _, tr := range s.Tracks {
		n += tr.Len()
	}
	return n
}

// Evaluate samples every non-empty track at time t, ordered by parameter.
func (s *Sequence) Evaluate(t float64) []Sample {
	samples := make([]Sample, 0, len(s.Tracks))
	for _, name := range s.Parameters() {
		v, err := s.Tracks[name].Sample(t)
		if err != nil {
			continue
		}
		samples = append(samples, Sample{Parameter: name, Value: v})
	}
	return samples
}

// Clone deep-copies the tracks and bounds under a new name.
func (s *Sequence) Clone(name string) *Sequence {
	c := New(name, s.StartTime, s.EndTime)
	for param, tr := range s.Tracks {
		c.Tracks[param] = tr.Clone()
	}
	return c
}

func (s *Sequence) Equal(o *Sequence) bool {
	if s.Name != o.Name || s.StartTime != o.StartTime || s.EndTime != o.EndTime {
		return false
	}
	if len(s.Tracks) != len(o.Tracks) {
		return false
	}
	for param, tr := range s.Tracks {
		other, ok := o.Tracks[param]
		if !ok || !tr.Equal(other) {
			return false
		}
	}
	return true
}
