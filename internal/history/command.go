package history

import (
	"errors"
	"fmt"

	"github.com/ivlev/replaydirector/internal/sequence"
)

// Command is a reversible mutation of a sequence. Revert must restore the
// exact state observed before the matching Apply.
type Command interface {
	Apply(s *sequence.Sequence) error
	Revert(s *sequence.Sequence) error
	Name() string
}

func track(s *sequence.Sequence, parameter string) (*sequence.Track, error) {
	tr, ok := s.Track(parameter)
	if !ok {
		return nil, fmt.Errorf("track %s: %w", parameter, sequence.ErrNotFound)
	}
	return tr, nil
}

// AddKeyframe inserts or replaces a keyframe, creating the track if needed.
type AddKeyframe struct {
	Parameter string
	Kind      sequence.Kind
	Time      float64
	Value     sequence.Value

	prev     sequence.Value
	replaced bool
	created  bool
}

func (c *AddKeyframe) Name() string { return "add_keyframe" }

func (c *AddKeyframe) Apply(s *sequence.Sequence) error {
	tr, created, err := s.EnsureTrack(c.Parameter, c.Kind)
	if err != nil {
		return err
	}
	prev, replaced, err := tr.Add(c.Time, c.Value)
	if err != nil {
		if created {
			s.RemoveTrack(c.Parameter)
		}
		return err
	}
	c.prev, c.replaced, c.created = prev, replaced, created
	return nil
}

func (c *AddKeyframe) Revert(s *sequence.Sequence) error {
	tr, err := track(s, c.Parameter)
	if err != nil {
		return err
	}
	if c.replaced {
		_, _, err = tr.Add(c.Time, c.prev)
		return err
	}
	if _, err := tr.Remove(c.Time); err != nil {
		return err
	}
	if c.created {
		s.RemoveTrack(c.Parameter)
	}
	return nil
}

// RemoveKeyframe deletes the keyframe at an exact time.
type RemoveKeyframe struct {
	Parameter string
	Time      float64

	removed sequence.Keyframe
}

func (c *RemoveKeyframe) Name() string { return "remove_keyframe" }

func (c *RemoveKeyframe) Apply(s *sequence.Sequence) error {
	tr, err := track(s, c.Parameter)
	if err != nil {
		return err
	}
	kf, err := tr.Remove(c.Time)
	if err != nil {
		return err
	}
	c.removed = kf
	return nil
}

func (c *RemoveKeyframe) Revert(s *sequence.Sequence) error {
	tr, err := track(s, c.Parameter)
	if err != nil {
		return err
	}
	_, _, err = tr.Add(c.removed.Time, c.removed.Value)
	return err
}

// MoveKeyframe retimes a keyframe. A keyframe already at the destination is
// displaced and restored on revert.
type MoveKeyframe struct {
	Parameter string
	From      float64
	To        float64

	moved     sequence.Value
	displaced sequence.Value
	replaced  bool
}

func (c *MoveKeyframe) Name() string { return "move_keyframe" }

func (c *MoveKeyframe) Apply(s *sequence.Sequence) error {
	tr, err := track(s, c.Parameter)
	if err != nil {
		return err
	}
	kf, err := tr.Remove(c.From)
	if err != nil {
		return err
	}
	displaced, replaced, err := tr.Add(c.To, kf.Value)
	if err != nil {
		if _, _, rerr := tr.Add(kf.Time, kf.Value); rerr != nil {
			return errors.Join(err, fmt.Errorf("restore %v: %w", kf.Time, rerr))
		}
		return err
	}
	c.moved, c.displaced, c.replaced = kf.Value, displaced, replaced
	return nil
}

func (c *MoveKeyframe) Revert(s *sequence.Sequence) error {
	tr, err := track(s, c.Parameter)
	if err != nil {
		return err
	}
	if _, err := tr.Remove(c.To); err != nil {
		return err
	}
	if c.replaced {
		if _, _, err := tr.Add(c.To, c.displaced); err != nil {
			return err
		}
	}
	_, _, err = tr.Add(c.From, c.moved)
	return err
}

// ClearTrack removes every keyframe of one track. The track itself stays.
type ClearTrack struct {
	Parameter string

	removed []sequence.Keyframe
}

func (c *ClearTrack) Name() string { return "clear_track" }

func (c *ClearTrack) Apply(s *sequence.Sequence) error {
	tr, err := track(s, c.Parameter)
	if err != nil {
		return err
	}
	c.removed = tr.Clear()
	return nil
}

func (c *ClearTrack) Revert(s *sequence.Sequence) error {
	tr, err := track(s, c.Parameter)
	if err != nil {
		return err
	}
	tr.Keyframes = append([]sequence.Keyframe(nil), c.removed...)
	return nil
}

// SetBounds changes the sequence start and end time.
type SetBounds struct {
	Start float64
	End   float64

	prevStart float64
	prevEnd   float64
}

func (c *SetBounds) Name() string { return "set_bounds" }

func (c *SetBounds) Apply(s *sequence.Sequence) error {
	prevStart, prevEnd := s.StartTime, s.EndTime
	if err := s.SetBounds(c.Start, c.End); err != nil {
		return err
	}
	c.prevStart, c.prevEnd = prevStart, prevEnd
	return nil
}

func (c *SetBounds) Revert(s *sequence.Sequence) error {
	s.StartTime, s.EndTime = c.prevStart, c.prevEnd
	return nil
}

// Batch applies its commands in order as one history entry. If any command
// fails the ones already applied are reverted.
type Batch struct {
	Label    string
	Commands []Command
}

func (b *Batch) Name() string {
	if b.Label != "" {
		return b.Label
	}
	return "batch"
}

func (b *Batch) Apply(s *sequence.Sequence) error {
	for i, c := range b.Commands {
		if err := c.Apply(s); err != nil {
			errs := []error{fmt.Errorf("%s step %d: %w", c.Name(), i, err)}
			for j := i - 1; j >= 0; j-- {
				if rerr := b.Commands[j].Revert(s); rerr != nil {
					errs = append(errs, fmt.Errorf("rollback %s step %d: %w", b.Commands[j].Name(), j, rerr))
				}
			}
			return errors.Join(errs...)
		}
	}
	return nil
}

func (b *Batch) Revert(s *sequence.Sequence) error {
	for i := len(b.Commands) - 1; i >= 0; i-- {
		if err := b.Commands[i].Revert(s); err != nil {
			return fmt.Errorf("revert %s step %d: %w", b.Commands[i].Name(), i, err)
		}
	}
	return nil
}
