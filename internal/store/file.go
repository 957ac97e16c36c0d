package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/ivlev/replaydirector/internal/logging"
	"github.com/ivlev/replaydirector/internal/sequence"
)

// FileStore keeps each sequence in <dir>/<name>.yaml.
type FileStore struct {
	dir     string
	workers int
	logger  *slog.Logger
}

type FileOption func(*FileStore)

// WithWorkers bounds how many files List decodes in parallel.
func WithWorkers(n int) FileOption {
	return func(s *FileStore) {
		if n > 0 {
			s.workers = n
		}
	}
}

func WithLogger(logger *slog.Logger) FileOption {
	return func(s *FileStore) {
		s.logger = logger
	}
}

// NewFileStore opens an existing directory.
func NewFileStore(dir string, opts ...FileOption) (*FileStore, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", dir, ErrNotADirectory, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s: %w", dir, ErrNotADirectory)
	}

	s := &FileStore{dir: dir, workers: 4, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *FileStore) Dir() string {
	return s.dir
}

func (s *FileStore) path(name string) string {
	return filepath.Join(s.dir, name+Ext)
}

// Exists reports whether a sequence file with that name is present, valid
// or not.
func (s *FileStore) Exists(name string) (bool, error) {
	if err := ValidateName(name); err != nil {
		return false, err
	}
	_, err := os.Stat(s.path(name))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("failed to stat sequence %s: %w", name, err)
}

// Save writes the sequence atomically: temp file in the same directory,
// fsync, then rename over the destination.
func (s *FileStore) Save(ctx context.Context, seq *sequence.Sequence) error {
	if err := ValidateName(seq.Name); err != nil {
		return err
	}
	data, err := sequence.Marshal(seq)
	if err != nil {
		return fmt.Errorf("failed to marshal sequence %s: %w", seq.Name, err)
	}

	tmp, err := os.CreateTemp(s.dir, "."+seq.Name+"-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path(seq.Name)); err != nil {
		return fmt.Errorf("failed to replace sequence %s: %w", seq.Name, err)
	}
	return nil
}

// Load reads one sequence. The name stored in the file must match the file
// name.
func (s *FileStore) Load(ctx context.Context, name string) (*sequence.Sequence, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read sequence %s: %w", name, err)
	}

	seq, err := sequence.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if seq.Name != name {
		return nil, fmt.Errorf("%s: file holds sequence %q: %w", name, seq.Name, sequence.ErrCorrupt)
	}
	return seq, nil
}

// Delete removes a sequence file. Removing a missing sequence is not an
// error.
func (s *FileStore) Delete(ctx context.Context, name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if err := os.Remove(s.path(name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete sequence %s: %w", name, err)
	}
	return nil
}

// List loads every sequence in the directory, newest first. Files that fail
// to load are returned with Err set and do not stop the others.
func (s *FileStore) List(ctx context.Context) ([]Entry, error) {
	dirEntries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list sequences: %w", err)
	}

	var entries []Entry
	for _, de := range dirEntries {
		name := de.Name()
		if de.IsDir() || filepath.Ext(name) != Ext || strings.HasPrefix(name, ".") {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		entries = append(entries, Entry{Name: strings.TrimSuffix(name, Ext), ModTime: info.ModTime()})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i := range entries {
		i := i // per-iteration copy; go.mod targets go 1.21 (pre-1.22 loop semantics)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			seq, err := s.Load(gctx, entries[i].Name)
			if err != nil {
				entries[i].Err = err
				return nil
			}
			entries[i].Sequence = seq
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, e := range entries {
		if e.Err != nil {
			s.logger.Warn("skipping sequence", "name", e.Name, "error", e.Err)
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].ModTime.Equal(entries[j].ModTime) {
			return entries[i].ModTime.After(entries[j].ModTime)
		}
		return entries[i].Name < entries[j].Name
	})
	return entries, nil
}

// Latest returns the most recently modified sequence that loads cleanly.
func Latest(entries []Entry) (*sequence.Sequence, bool) {
	for _, e := range entries {
		if e.Err == nil && e.Sequence != nil {
			return e.Sequence, true
		}
	}
	return nil, false
}

// IsCorrupt reports whether err came from an unreadable sequence file.
func IsCorrupt(err error) bool {
	return errors.Is(err, sequence.ErrCorrupt)
}
