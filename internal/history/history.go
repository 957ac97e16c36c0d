package history

import (
	"errors"

	"github.com/ivlev/replaydirector/internal/sequence"
)

// ErrEmptyHistory is returned by Undo and Redo when there is nothing to do.
var ErrEmptyHistory = errors.New("history is empty")

// History is the undo/redo stack of one sequence. Replaying done in order
// from the sequence's initial state reproduces its current state.
type History struct {
	seq    *sequence.Sequence
	done   []Command
	redone []Command
}

func New(seq *sequence.Sequence) *History {
	return &History{seq: seq}
}

func (h *History) Sequence() *sequence.Sequence {
	return h.seq
}

// Execute applies c and records it. A new command discards the redo tail.
// A command that fails to apply leaves both stacks untouched.
func (h *History) Execute(c Command) error {
	if err := c.Apply(h.seq); err != nil {
		return err
	}
	h.done = append(h.done, c)
	h.redone = nil
	return nil
}

func (h *History) Undo() (Command, error) {
	if len(h.done) == 0 {
		return nil, ErrEmptyHistory
	}
	c := h.done[len(h.done)-1]
	if err := c.Revert(h.seq); err != nil {
		return nil, err
	}
	h.done = h.done[:len(h.done)-1]
	h.redone = append(h.redone, c)
	return c, nil
}

func (h *History) Redo() (Command, error) {
	if len(h.redone) == 0 {
		return nil, ErrEmptyHistory
	}
	c := h.redone[len(h.redone)-1]
	if err := c.Apply(h.seq); err != nil {
		return nil, err
	}
	h.redone = h.redone[:len(h.redone)-1]
	h.done = append(h.done, c)
	return c, nil
}

func (h *History) CanUndo() bool { return len(h.done) > 0 }

func (h *History) CanRedo() bool { return len(h.redone) > 0 }

// Depth returns the sizes of the undo and redo stacks.
func (h *History) Depth() (undo, redo int) {
	return len(h.done), len(h.redone)
}
