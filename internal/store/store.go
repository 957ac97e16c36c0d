// Package store persists sequences: one YAML file per sequence in a
// directory, and an optional Redis snapshot mirror.
package store

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/ivlev/replaydirector/internal/sequence"
)

var (
	ErrNotFound      = errors.New("sequence not found")
	ErrDuplicateName = errors.New("sequence name already exists")
	ErrNotADirectory = errors.New("not a directory")
	ErrInvalidName   = errors.New("invalid sequence name")
)

// Ext is the file extension of persisted sequences.
const Ext = ".yaml"

// Entry describes one persisted sequence found while listing a directory.
type Entry struct {
	Name     string
	ModTime  time.Time
	Sequence *sequence.Sequence
	// Err is set when the file could not be loaded. Such entries are
	// reported but never repaired or removed.
	Err error
}

func (e Entry) Corrupt() bool {
	return e.Err != nil
}

// ValidateName rejects names that cannot be used as a file stem.
func ValidateName(name string) error {
	switch {
	case strings.TrimSpace(name) == "",
		name == ".", name == "..",
		strings.HasPrefix(name, "."),
		strings.ContainsAny(name, `/\:*?"<>|`),
		name != filepath.Base(name):
		return fmt.Errorf("%q: %w", name, ErrInvalidName)
	}
	return nil
}
