// Package director owns the active sequence and exposes the commands the
// operator drives it with.
package director

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ivlev/replaydirector/internal/history"
	"github.com/ivlev/replaydirector/internal/host"
	"github.com/ivlev/replaydirector/internal/logging"
	"github.com/ivlev/replaydirector/internal/metrics"
	"github.com/ivlev/replaydirector/internal/selection"
	"github.com/ivlev/replaydirector/internal/sequence"
	"github.com/ivlev/replaydirector/internal/store"
)

// ErrNoActiveSequence is returned by commands that need an active sequence
// when the directory holds none.
var ErrNoActiveSequence = errors.New("no active sequence")

// Mirror receives a copy of every flushed sequence and can hand it back.
type Mirror interface {
	Save(ctx context.Context, seq *sequence.Sequence) error
	Load(ctx context.Context, name string) (*sequence.Sequence, error)
	List(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, name string) error
}

// ErrNoMirror is returned by mirror operations when none is configured.
var ErrNoMirror = errors.New("no sequence mirror configured")

// Manager owns the active sequence with its history and selection. All
// command execution and sampling is serialized by one mutex; host calls are
// made outside it.
type Manager struct {
	mu sync.Mutex

	store         *store.FileStore
	host          host.Host
	mirror        Mirror
	logger        *slog.Logger
	metrics       *metrics.Metrics
	defaultLength float64
	hostTimeout   time.Duration

	active     *sequence.Sequence
	history    *history.History
	selection  *selection.Model
	dirty      bool
	sequencing bool
	playback   host.PlaybackState
}

type Option func(*Manager)

func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Manager) {
		m.metrics = mt
	}
}

func WithMirror(mirror Mirror) Option {
	return func(m *Manager) {
		m.mirror = mirror
	}
}

// WithDefaultLength sets the end time of newly created sequences.
func WithDefaultLength(seconds float64) Option {
	return func(m *Manager) {
		m.defaultLength = seconds
	}
}

// WithHostTimeout bounds each host round trip made by a command.
func WithHostTimeout(d time.Duration) Option {
	return func(m *Manager) {
		m.hostTimeout = d
	}
}

// NewManager enumerates dir and activates its most recently modified valid
// sequence, if any.
func NewManager(ctx context.Context, dir string, h host.Host, opts ...Option) (*Manager, error) {
	m := &Manager{
		host:          h,
		logger:        logging.NewNop(),
		defaultLength: 30,
		hostTimeout:   2 * time.Second,
		selection:     selection.New(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.metrics == nil {
		m.metrics = metrics.New(nil)
	}
	if err := m.SwitchDirectory(ctx, dir); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manager) hostContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, m.hostTimeout)
}

// activate must be called with mu held. Sequencing is switched off: the
// new sequence has its own bounds and playback is only clamped into them
// when sequencing is enabled again.
func (m *Manager) activate(seq *sequence.Sequence) {
	if m.sequencing {
		m.logger.Info("sequencing disabled, active sequence changed")
	}
	m.active = seq
	m.selection = selection.New()
	m.dirty = false
	m.sequencing = false
	if seq == nil {
		m.history = nil
		m.metrics.Keyframes.Set(0)
		return
	}
	m.history = history.New(seq)
	m.metrics.Keyframes.Set(float64(seq.KeyframeCount()))
	m.logger.Info("sequence activated", "name", seq.Name, "dir", m.store.Dir())
}

// flushLocked writes unsaved edits of the active sequence.
func (m *Manager) flushLocked(ctx context.Context) error {
	if m.active == nil || !m.dirty {
		return nil
	}
	if err := m.store.Save(ctx, m.active); err != nil {
		return err
	}
	m.dirty = false
	if m.mirror != nil {
		if err := m.mirror.Save(ctx, m.active); err != nil {
			m.logger.Warn("sequence mirror failed", "name", m.active.Name, "error", err)
		}
	}
	return nil
}

func (m *Manager) checkAvailable(name string) error {
	if err := store.ValidateName(name); err != nil {
		return err
	}
	exists, err := m.store.Exists(name)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%s: %w", name, store.ErrDuplicateName)
	}
	return nil
}

// Create makes a new empty sequence active. The previous one is flushed.
func (m *Manager) Create(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	err := m.create(ctx, name, func() *sequence.Sequence {
		return sequence.New(name, 0, m.defaultLength)
	})
	m.metrics.Command("create", err)
	return err
}

// Copy saves a deep copy of the active sequence under name and makes it
// active with an empty history.
func (m *Manager) Copy(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active == nil {
		m.metrics.Command("copy", ErrNoActiveSequence)
		return ErrNoActiveSequence
	}
	src := m.active
	err := m.create(ctx, name, func() *sequence.Sequence {
		return src.Clone(name)
	})
	m.metrics.Command("copy", err)
	return err
}

func (m *Manager) create(ctx context.Context, name string, build func() *sequence.Sequence) error {
	if err := m.checkAvailable(name); err != nil {
		return err
	}
	if err := m.flushLocked(ctx); err != nil {
		return fmt.Errorf("flush %s: %w", m.active.Name, err)
	}
	seq := build()
	if err := m.store.Save(ctx, seq); err != nil {
		return err
	}
	m.activate(seq)
	return nil
}

// Switch flushes the active sequence and activates the named one.
func (m *Manager) Switch(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active != nil && m.active.Name == name {
		return nil
	}
	seq, err := m.store.Load(ctx, name)
	if err != nil {
		return err
	}
	if err := m.flushLocked(ctx); err != nil {
		return fmt.Errorf("flush %s: %w", m.active.Name, err)
	}
	m.activate(seq)
	return nil
}

// SwitchDirectory re-enumerates sequences from path. Unsaved edits of the
// active sequence are discarded; callers flush first if they want them.
func (m *Manager) SwitchDirectory(ctx context.Context, path string) error {
	fs, err := store.NewFileStore(path, store.WithLogger(m.logger))
	if err != nil {
		return err
	}
	entries, err := fs.List(ctx)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.store = fs
	latest, _ := store.Latest(entries)
	m.activate(latest)
	if latest == nil {
		m.logger.Info("no sequences in directory", "dir", path)
	}
	return nil
}

// Delete removes a persisted sequence and its mirrored copy. Deleting the
// active sequence activates the most recent remaining one.
func (m *Manager) Delete(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	exists, err := m.store.Exists(name)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%s: %w", name, store.ErrNotFound)
	}
	if err := m.store.Delete(ctx, name); err != nil {
		return err
	}
	if m.mirror != nil {
		if err := m.mirror.Delete(ctx, name); err != nil {
			m.logger.Warn("sequence mirror delete failed", "name", name, "error", err)
		}
	}
	m.logger.Info("sequence deleted", "name", name)

	if m.active == nil || m.active.Name != name {
		return nil
	}
	entries, err := m.store.List(ctx)
	if err != nil {
		m.activate(nil)
		return err
	}
	latest, _ := store.Latest(entries)
	m.activate(latest)
	return nil
}

// MirrorList returns the names held by the mirror, newest first.
func (m *Manager) MirrorList(ctx context.Context) ([]string, error) {
	if m.mirror == nil {
		return nil, ErrNoMirror
	}
	return m.mirror.List(ctx)
}

// Restore copies a mirrored sequence into the current directory and makes
// it active. A local sequence of the same name is never overwritten.
func (m *Manager) Restore(ctx context.Context, name string) error {
	if m.mirror == nil {
		return ErrNoMirror
	}
	seq, err := m.mirror.Load(ctx, name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	err = m.create(ctx, name, func() *sequence.Sequence {
		return seq
	})
	m.metrics.Command("restore", err)
	return err
}

// List enumerates the current directory.
func (m *Manager) List(ctx context.Context) ([]store.Entry, error) {
	m.mu.Lock()
	fs := m.store
	m.mu.Unlock()
	return fs.List(ctx)
}

// SetSequencing toggles whether the sync loop drives the host. Enabling it
// clamps the playback time into the sequence bounds.
func (m *Manager) SetSequencing(ctx context.Context, enabled bool) error {
	if !enabled {
		m.mu.Lock()
		was := m.sequencing
		m.sequencing = false
		m.mu.Unlock()
		if was {
			m.logger.Info("sequencing disabled")
		}
		return nil
	}

	m.mu.Lock()
	seq := m.active
	var start, end float64
	if seq != nil {
		start, end = seq.StartTime, seq.EndTime
	}
	m.mu.Unlock()
	if seq == nil {
		return ErrNoActiveSequence
	}

	hctx, cancel := m.hostContext(ctx)
	defer cancel()
	st, err := m.host.State(hctx)
	if err != nil {
		return fmt.Errorf("read playback: %w", err)
	}
	clamped := min(max(st.Time, start), end)
	if clamped != st.Time {
		if err := m.host.Seek(hctx, clamped); err != nil {
			return fmt.Errorf("clamp playback: %w", err)
		}
		st.Time = clamped
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active != seq {
		return fmt.Errorf("active sequence changed while enabling sequencing")
	}
	m.sequencing = true
	m.playback = st
	m.logger.Info("sequencing enabled", "name", seq.Name, "time", clamped)
	return nil
}

func (m *Manager) Sequencing() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sequencing
}

// Frame samples the active sequence at t. It reports false when sequencing
// is off or nothing is active.
func (m *Manager) Frame(t float64) ([]sequence.Sample, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.sequencing || m.active == nil {
		return nil, false
	}
	return m.active.Evaluate(t), true
}

// executeLocked runs c through the history of the active sequence.
func (m *Manager) executeLocked(action string, c history.Command) error {
	if m.active == nil {
		m.metrics.Command(action, ErrNoActiveSequence)
		return ErrNoActiveSequence
	}
	err := m.history.Execute(c)
	m.metrics.Command(action, err)
	if err != nil {
		return err
	}
	m.changed()
	return nil
}

func (m *Manager) changed() {
	m.dirty = true
	m.selection.Prune(m.active)
	m.metrics.Keyframes.Set(float64(m.active.KeyframeCount()))
}

// AddKeyframe captures the host's current value of parameter at the current
// playback time.
func (m *Manager) AddKeyframe(ctx context.Context, parameter string) error {
	if _, err := sequence.ParameterKind(parameter); err != nil {
		return err
	}
	m.mu.Lock()
	active := m.active != nil
	m.mu.Unlock()
	if !active {
		return ErrNoActiveSequence
	}

	hctx, cancel := m.hostContext(ctx)
	defer cancel()
	st, err := m.host.State(hctx)
	if err != nil {
		return fmt.Errorf("read playback: %w", err)
	}
	v, err := m.host.Get(hctx, parameter)
	if err != nil {
		return fmt.Errorf("read %s: %w", parameter, err)
	}
	return m.AddKeyframeAt(parameter, st.Time, v)
}

// AddKeyframeAt inserts v at time t, replacing any keyframe already there.
func (m *Manager) AddKeyframeAt(parameter string, t float64, v sequence.Value) error {
	if kind, err := sequence.ParameterKind(parameter); err == nil && kind != v.Kind {
		return fmt.Errorf("%s takes %s values: %w", parameter, kind, sequence.ErrKindMismatch)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.executeLocked("add_keyframe", &history.AddKeyframe{
		Parameter: parameter,
		Kind:      v.Kind,
		Time:      t,
		Value:     v,
	})
}

// DeleteSelected removes every selected keyframe as one undoable step and
// clears the selection.
func (m *Manager) DeleteSelected() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	keys := m.selection.Keys()
	if len(keys) == 0 {
		return nil
	}
	batch := &history.Batch{Label: "delete_selected"}
	for _, k := range keys {
		batch.Commands = append(batch.Commands, &history.RemoveKeyframe{Parameter: k.Parameter, Time: k.Time})
	}
	if err := m.executeLocked("delete_selected", batch); err != nil {
		return err
	}
	m.selection.Clear()
	return nil
}

// ClearKeyframes empties every track as one undoable step.
func (m *Manager) ClearKeyframes() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active == nil {
		return ErrNoActiveSequence
	}
	batch := &history.Batch{Label: "clear_keyframes"}
	for _, param := range m.active.Parameters() {
		if m.active.Tracks[param].Len() > 0 {
			batch.Commands = append(batch.Commands, &history.ClearTrack{Parameter: param})
		}
	}
	if len(batch.Commands) == 0 {
		return nil
	}
	if err := m.executeLocked("clear_keyframes", batch); err != nil {
		return err
	}
	m.selection.Clear()
	return nil
}

// MoveKeyframe retimes one keyframe, carrying its selection along.
func (m *Manager) MoveKeyframe(parameter string, from, to float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	wasSelected := m.selection.Contains(selection.Key{Parameter: parameter, Time: from})
	err := m.executeLocked("move_keyframe", &history.MoveKeyframe{Parameter: parameter, From: from, To: to})
	if err != nil {
		return err
	}
	if wasSelected {
		m.selection.Select(selection.Key{Parameter: parameter, Time: to})
	}
	return nil
}

func (m *Manager) SetBounds(start, end float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.executeLocked("set_bounds", &history.SetBounds{Start: start, End: end})
}

func (m *Manager) Undo() error {
	return m.step("undo", (*history.History).Undo)
}

func (m *Manager) Redo() error {
	return m.step("redo", (*history.History).Redo)
}

func (m *Manager) step(action string, fn func(*history.History) (history.Command, error)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active == nil {
		m.metrics.Command(action, ErrNoActiveSequence)
		return ErrNoActiveSequence
	}
	c, err := fn(m.history)
	m.metrics.Command(action, err)
	if err != nil {
		return err
	}
	m.changed()
	m.logger.Debug("history step", "action", action, "command", c.Name())
	return nil
}

func (m *Manager) SelectNext() error {
	return m.selectWith((*selection.Model).SelectNext)
}

func (m *Manager) SelectPrev() error {
	return m.selectWith((*selection.Model).SelectPrev)
}

func (m *Manager) SelectAdjacent() error {
	return m.selectWith((*selection.Model).SelectAdjacent)
}

func (m *Manager) SelectAll() error {
	return m.selectWith((*selection.Model).SelectAll)
}

func (m *Manager) selectWith(fn func(*selection.Model, *sequence.Sequence)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return ErrNoActiveSequence
	}
	fn(m.selection, m.active)
	return nil
}

// Select adds keys to the selection. Keys without a keyframe are ignored.
func (m *Manager) Select(keys ...selection.Key) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return ErrNoActiveSequence
	}
	m.selection.Select(keys...)
	m.selection.Prune(m.active)
	return nil
}

func (m *Manager) ClearSelection() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.selection.Clear()
}

func (m *Manager) Selection() []selection.Key {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.selection.Keys()
}

// SeekSelected moves playback to the earliest selected keyframe. It reports
// false when the selection is empty.
func (m *Manager) SeekSelected(ctx context.Context) (float64, bool, error) {
	m.mu.Lock()
	t, ok := m.selection.SeekTime()
	m.mu.Unlock()
	if !ok {
		return 0, false, nil
	}

	hctx, cancel := m.hostContext(ctx)
	defer cancel()
	if err := m.host.Seek(hctx, t); err != nil {
		return 0, false, err
	}
	return t, true, nil
}

// PlaySequence enables sequencing and plays from the sequence start.
func (m *Manager) PlaySequence(ctx context.Context) error {
	if err := m.SetSequencing(ctx, true); err != nil {
		return err
	}
	start, _, err := m.Bounds()
	if err != nil {
		return err
	}

	hctx, cancel := m.hostContext(ctx)
	defer cancel()
	if err := m.host.Seek(hctx, start); err != nil {
		return err
	}
	return m.host.Play(hctx)
}

// TogglePlayback pauses a playing replay and resumes a paused one.
func (m *Manager) TogglePlayback(ctx context.Context) error {
	hctx, cancel := m.hostContext(ctx)
	defer cancel()
	st, err := m.host.State(hctx)
	if err != nil {
		return err
	}
	if st.Paused {
		return m.host.Play(hctx)
	}
	return m.host.Pause(hctx)
}

// ScaleParameter multiplies the host's current value of a float parameter
// by factor. The change goes straight to the host and is not keyframed.
func (m *Manager) ScaleParameter(ctx context.Context, parameter string, factor float64) error {
	hctx, cancel := m.hostContext(ctx)
	defer cancel()
	v, err := m.host.Get(hctx, parameter)
	if err != nil {
		return fmt.Errorf("read %s: %w", parameter, err)
	}
	if v.Kind != sequence.KindFloat {
		return fmt.Errorf("%s is a %s parameter: %w", parameter, v.Kind, sequence.ErrKindMismatch)
	}
	scaled := sequence.FloatValue(v.Float * factor)
	if err := m.host.Set(hctx, parameter, scaled); err != nil {
		return fmt.Errorf("set %s: %w", parameter, err)
	}
	m.logger.Debug("parameter scaled", "parameter", parameter, "from", v.Float, "to", scaled.Float)
	return nil
}

func (m *Manager) AdjustTime(ctx context.Context, delta float64) error {
	hctx, cancel := m.hostContext(ctx)
	defer cancel()
	return m.host.AdjustTime(hctx, delta)
}

// Bounds returns the time bounds of the active sequence.
func (m *Manager) Bounds() (start, end float64, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return 0, 0, ErrNoActiveSequence
	}
	return m.active.StartTime, m.active.EndTime, nil
}

// Snapshot returns a deep copy of the active sequence.
func (m *Manager) Snapshot() (*sequence.Sequence, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return nil, ErrNoActiveSequence
	}
	return m.active.Clone(m.active.Name), nil
}

// Flush saves unsaved edits of the active sequence.
func (m *Manager) Flush(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.flushLocked(ctx)
}

// CheckActive disables sequencing when the active sequence's file has been
// removed behind our back.
func (m *Manager) CheckActive(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil || !m.sequencing {
		return
	}
	exists, err := m.store.Exists(m.active.Name)
	if err != nil || exists {
		return
	}
	m.sequencing = false
	m.logger.Warn("active sequence file removed, sequencing disabled", "name", m.active.Name)
}

// Poll refreshes the cached playback state and validates the active
// sequence.
func (m *Manager) Poll(ctx context.Context) (host.PlaybackState, error) {
	hctx, cancel := m.hostContext(ctx)
	defer cancel()
	st, err := m.host.State(hctx)
	if err == nil {
		m.mu.Lock()
		m.playback = st
		m.mu.Unlock()
	}
	m.CheckActive(ctx)
	return st, err
}

// Status summarizes the manager for display.
type Status struct {
	Directory  string             `json:"directory"`
	Active     string             `json:"active,omitempty"`
	StartTime  float64            `json:"startTime"`
	EndTime    float64            `json:"endTime"`
	Sequencing bool               `json:"sequencing"`
	Dirty      bool               `json:"dirty"`
	Keyframes  int                `json:"keyframes"`
	Selected   int                `json:"selected"`
	Undo       int                `json:"undo"`
	Redo       int                `json:"redo"`
	Playback   host.PlaybackState `json:"playback"`
}

func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := Status{
		Directory:  m.store.Dir(),
		Sequencing: m.sequencing,
		Dirty:      m.dirty,
		Selected:   m.selection.Len(),
		Playback:   m.playback,
	}
	if m.active != nil {
		st.Active = m.active.Name
		st.StartTime, st.EndTime = m.active.StartTime, m.active.EndTime
		st.Keyframes = m.active.KeyframeCount()
		st.Undo, st.Redo = m.history.Depth()
	}
	return st
}
