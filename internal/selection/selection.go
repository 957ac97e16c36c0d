// Package selection tracks which keyframes are selected across the tracks of
// the active sequence.
package selection

import (
	"sort"

	"github.com/ivlev/replaydirector/internal/sequence"
)

// Key identifies one keyframe.
type Key struct {
	Parameter string  `json:"parameter"`
	Time      float64 `json:"time"`
}

// Model is a set of selected keyframes. Every member refers to an existing
// keyframe once Prune has run against the current sequence.
type Model struct {
	keys map[Key]struct{}
}

func New() *Model {
	return &Model{keys: make(map[Key]struct{})}
}

func (m *Model) Select(keys ...Key) {
	for _, k := range keys {
		m.keys[k] = struct{}{}
	}
}

func (m *Model) Clear() {
	m.keys = make(map[Key]struct{})
}

func (m *Model) Contains(k Key) bool {
	_, ok := m.keys[k]
	return ok
}

func (m *Model) Len() int {
	return len(m.keys)
}

// Keys returns the selection ordered by parameter, then time.
func (m *Model) Keys() []Key {
	keys := make([]Key, 0, len(m.keys))
	for k := range m.keys {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Parameter != keys[j].Parameter {
			return keys[i].Parameter < keys[j].Parameter
		}
		return keys[i].Time < keys[j].Time
	})
	return keys
}

// SelectNext moves every selected keyframe to the next keyframe of its
// track. Entries with no successor are dropped.
func (m *Model) SelectNext(s *sequence.Sequence) {
	m.step(s, (*sequence.Track).Next)
}

// SelectPrev moves every selected keyframe to the previous keyframe of its
// track. Entries with no predecessor are dropped.
func (m *Model) SelectPrev(s *sequence.Sequence) {
	m.step(s, (*sequence.Track).Prev)
}

func (m *Model) step(s *sequence.Sequence, move func(*sequence.Track, float64) (sequence.Keyframe, bool)) {
	if len(m.keys) == 0 {
		return
	}
	next := make(map[Key]struct{}, len(m.keys))
	for k := range m.keys {
		tr, ok := s.Track(k.Parameter)
		if !ok {
			continue
		}
		if kf, ok := move(tr, k.Time); ok {
			next[Key{Parameter: k.Parameter, Time: kf.Time}] = struct{}{}
		}
	}
	m.keys = next
}

// SelectAdjacent adds the immediate neighbours of every selected keyframe.
func (m *Model) SelectAdjacent(s *sequence.Sequence) {
	var add []Key
	for k := range m.keys {
		tr, ok := s.Track(k.Parameter)
		if !ok {
			continue
		}
		if kf, ok := tr.Prev(k.Time); ok {
			add = append(add, Key{Parameter: k.Parameter, Time: kf.Time})
		}
		if kf, ok := tr.Next(k.Time); ok {
			add = append(add, Key{Parameter: k.Parameter, Time: kf.Time})
		}
	}
	m.Select(add...)
}

// SelectAll selects every keyframe of every track.
func (m *Model) SelectAll(s *sequence.Sequence) {
	for param, tr := range s.Tracks {
		for _, kf := range tr.Keyframes {
			m.keys[Key{Parameter: param, Time: kf.Time}] = struct{}{}
		}
	}
}

// Prune drops entries whose keyframe no longer exists in s.
func (m *Model) Prune(s *sequence.Sequence) {
	for k := range m.keys {
		tr, ok := s.Track(k.Parameter)
		if !ok || !tr.Has(k.Time) {
			delete(m.keys, k)
		}
	}
}

// SeekTime returns the earliest selected time.
func (m *Model) SeekTime() (float64, bool) {
	if len(m.keys) == 0 {
		return 0, false
	}
	first := true
	var earliest float64
	for k := range m.keys {
		if first || k.Time < earliest {
			earliest, first = k.Time, false
		}
	}
	return earliest, true
}
