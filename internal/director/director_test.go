package director

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivlev/replaydirector/internal/history"
	"github.com/ivlev/replaydirector/internal/host/hosttest"
	"github.com/ivlev/replaydirector/internal/metrics"
	"github.com/ivlev/replaydirector/internal/selection"
	"github.com/ivlev/replaydirector/internal/sequence"
	"github.com/ivlev/replaydirector/internal/store"
)

func setupManager(t *testing.T, opts ...Option) (*Manager, *hosttest.Fake, string) {
	t.Helper()
	dir := t.TempDir()
	fake := hosttest.New()
	m, err := NewManager(context.Background(), dir, fake, opts...)
	require.NoError(t, err)
	return m, fake, dir
}

func addFOV(t *testing.T, m *Manager, times ...float64) {
	t.Helper()
	for _, at := range times {
		require.NoError(t, m.AddKeyframeAt("fieldOfView", at, sequence.FloatValue(50+at)))
	}
}

func TestEmptyDirectoryHasNoActiveSequence(t *testing.T) {
	m, _, _ := setupManager(t)
	ctx := context.Background()

	assert.ErrorIs(t, m.AddKeyframe(ctx, "fieldOfView"), ErrNoActiveSequence)
	assert.ErrorIs(t, m.Undo(), ErrNoActiveSequence)
	assert.ErrorIs(t, m.SetSequencing(ctx, true), ErrNoActiveSequence)
	assert.ErrorIs(t, m.Copy(ctx, "x"), ErrNoActiveSequence)
	assert.Empty(t, m.Status().Active)
}

func TestCreateDuplicateName(t *testing.T) {
	m, _, dir := setupManager(t)
	ctx := context.Background()

	require.NoError(t, m.Create(ctx, "intro"))
	addFOV(t, m, 1, 2)
	require.NoError(t, m.Flush(ctx))
	before, err := os.ReadFile(filepath.Join(dir, "intro.yaml"))
	require.NoError(t, err)

	err = m.Create(ctx, "intro")
	assert.ErrorIs(t, err, store.ErrDuplicateName)

	snap, err := m.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, "intro", snap.Name)
	assert.Equal(t, 2, snap.KeyframeCount())

	after, err := os.ReadFile(filepath.Join(dir, "intro.yaml"))
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestCreateFlushesPrevious(t *testing.T) {
	m, _, dir := setupManager(t)
	ctx := context.Background()

	require.NoError(t, m.Create(ctx, "intro"))
	addFOV(t, m, 3)
	require.NoError(t, m.Create(ctx, "outro"))

	fs, err := store.NewFileStore(dir)
	require.NoError(t, err)
	intro, err := fs.Load(ctx, "intro")
	require.NoError(t, err)
	assert.Equal(t, 1, intro.KeyframeCount())

	st := m.Status()
	assert.Equal(t, "outro", st.Active)
	assert.Equal(t, 30.0, st.EndTime)
	assert.Zero(t, st.Undo)
}

func TestDeleteSelectedThenUndo(t *testing.T) {
	m, _, _ := setupManager(t)
	require.NoError(t, m.Create(context.Background(), "intro"))
	addFOV(t, m, 1, 2, 3, 4)
	before, err := m.Snapshot()
	require.NoError(t, err)

	require.NoError(t, m.Select(
		selection.Key{Parameter: "fieldOfView", Time: 1},
		selection.Key{Parameter: "fieldOfView", Time: 2},
		selection.Key{Parameter: "fieldOfView", Time: 4},
	))
	require.NoError(t, m.DeleteSelected())
	assert.Empty(t, m.Selection())

	snap, _ := m.Snapshot()
	assert.Equal(t, 1, snap.KeyframeCount())

	require.NoError(t, m.Undo())
	snap, _ = m.Snapshot()
	assert.True(t, before.Equal(snap))
}

func TestCopyStartsWithEmptyHistory(t *testing.T) {
	m, _, _ := setupManager(t)
	ctx := context.Background()

	require.NoError(t, m.Create(ctx, "intro"))
	addFOV(t, m, 1, 5)
	require.NoError(t, m.SetBounds(1, 12))
	original, _ := m.Snapshot()

	assert.ErrorIs(t, m.Copy(ctx, "intro"), store.ErrDuplicateName)
	require.NoError(t, m.Copy(ctx, "intro-alt"))

	copied, _ := m.Snapshot()
	assert.Equal(t, "intro-alt", copied.Name)
	assert.True(t, original.Clone("intro-alt").Equal(copied))
	assert.ErrorIs(t, m.Undo(), history.ErrEmptyHistory)

	entries, err := m.List(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestSwitchDirectory(t *testing.T) {
	m, _, _ := setupManager(t)
	ctx := context.Background()
	require.NoError(t, m.Create(ctx, "intro"))
	addFOV(t, m, 1)

	other := t.TempDir()
	fs, err := store.NewFileStore(other)
	require.NoError(t, err)
	old := sequence.New("old", 0, 10)
	require.NoError(t, fs.Save(ctx, old))
	require.NoError(t, fs.Save(ctx, sequence.New("fresh", 0, 20)))
	require.NoError(t, os.WriteFile(filepath.Join(other, "junk.yaml"), []byte("{{{"), 0644))
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(other, "old.yaml"), past, past))

	assert.ErrorIs(t, m.SwitchDirectory(ctx, filepath.Join(other, "missing")), store.ErrNotADirectory)
	assert.Equal(t, "intro", m.Status().Active)

	require.NoError(t, m.SwitchDirectory(ctx, other))
	st := m.Status()
	assert.Equal(t, "fresh", st.Active)
	assert.Equal(t, other, st.Directory)

	require.NoError(t, m.Switch(ctx, "old"))
	assert.Equal(t, "old", m.Status().Active)
	assert.ErrorIs(t, m.Switch(ctx, "junk"), sequence.ErrCorrupt)
	assert.Equal(t, "old", m.Status().Active)
}

func TestSwitchDirectoryDiscardsUnsavedEdits(t *testing.T) {
	m, _, dir := setupManager(t)
	ctx := context.Background()
	require.NoError(t, m.Create(ctx, "intro"))
	addFOV(t, m, 1)

	require.NoError(t, m.SwitchDirectory(ctx, dir))
	snap, err := m.Snapshot()
	require.NoError(t, err)
	assert.Zero(t, snap.KeyframeCount())
}

func TestSetSequencingClampsPlayback(t *testing.T) {
	m, fake, _ := setupManager(t)
	ctx := context.Background()
	require.NoError(t, m.Create(ctx, "intro"))
	require.NoError(t, m.SetBounds(5, 20))
	addFOV(t, m, 5, 20)

	fake.SetTime(100)
	require.NoError(t, m.SetSequencing(ctx, true))
	assert.True(t, m.Sequencing())

	st, _ := fake.State(ctx)
	assert.Equal(t, 20.0, st.Time)

	samples, ok := m.Frame(12.5)
	require.True(t, ok)
	assert.Equal(t, []sequence.Sample{{Parameter: "fieldOfView", Value: sequence.FloatValue(62.5)}}, samples)

	require.NoError(t, m.SetSequencing(ctx, false))
	_, ok = m.Frame(12.5)
	assert.False(t, ok)
}

func TestAddKeyframeCapturesHostValue(t *testing.T) {
	m, fake, _ := setupManager(t)
	ctx := context.Background()
	require.NoError(t, m.Create(ctx, "intro"))

	fake.Params["cameraPosition"] = sequence.VectorValue(1, 2, 3)
	fake.SetTime(4.5)
	require.NoError(t, m.AddKeyframe(ctx, "cameraPosition"))

	snap, _ := m.Snapshot()
	tr, ok := snap.Track("cameraPosition")
	require.True(t, ok)
	assert.Equal(t, []sequence.Keyframe{{Time: 4.5, Value: sequence.VectorValue(1, 2, 3)}}, tr.Keyframes)

	assert.ErrorIs(t, m.AddKeyframe(ctx, "cameraZoom"), sequence.ErrUnknownParameter)
	assert.ErrorIs(t, m.AddKeyframeAt("fieldOfView", 1, sequence.BoolValue(true)), sequence.ErrKindMismatch)
}

func TestUndoPrunesSelection(t *testing.T) {
	m, _, _ := setupManager(t)
	require.NoError(t, m.Create(context.Background(), "intro"))
	addFOV(t, m, 1, 2)

	require.NoError(t, m.SelectAll())
	assert.Len(t, m.Selection(), 2)

	require.NoError(t, m.Undo())
	assert.Equal(t, []selection.Key{{Parameter: "fieldOfView", Time: 1}}, m.Selection())

	require.NoError(t, m.Redo())
	assert.Len(t, m.Selection(), 1)
}

func TestMoveKeyframeKeepsSelection(t *testing.T) {
	m, _, _ := setupManager(t)
	require.NoError(t, m.Create(context.Background(), "intro"))
	addFOV(t, m, 1, 2)
	require.NoError(t, m.Select(selection.Key{Parameter: "fieldOfView", Time: 1}))

	require.NoError(t, m.MoveKeyframe("fieldOfView", 1, 7))
	assert.Equal(t, []selection.Key{{Parameter: "fieldOfView", Time: 7}}, m.Selection())

	assert.ErrorIs(t, m.MoveKeyframe("fieldOfView", 1, 3), sequence.ErrNotFound)
}

func TestClearKeyframes(t *testing.T) {
	m, _, _ := setupManager(t)
	require.NoError(t, m.Create(context.Background(), "intro"))
	addFOV(t, m, 1, 2)
	require.NoError(t, m.AddKeyframeAt("depthFogEnabled", 0, sequence.BoolValue(true)))

	require.NoError(t, m.ClearKeyframes())
	assert.Zero(t, m.Status().Keyframes)

	require.NoError(t, m.Undo())
	assert.Equal(t, 3, m.Status().Keyframes)
}

func TestSeekSelected(t *testing.T) {
	m, fake, _ := setupManager(t)
	ctx := context.Background()
	require.NoError(t, m.Create(ctx, "intro"))
	addFOV(t, m, 3, 8)

	_, ok, err := m.SeekSelected(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, m.SelectAll())
	at, ok, err := m.SeekSelected(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 3.0, at)

	st, _ := fake.State(ctx)
	assert.Equal(t, 3.0, st.Time)
}

func TestCheckActiveDisablesSequencing(t *testing.T) {
	m, _, dir := setupManager(t)
	ctx := context.Background()
	require.NoError(t, m.Create(ctx, "intro"))
	require.NoError(t, m.SetSequencing(ctx, true))

	m.CheckActive(ctx)
	assert.True(t, m.Sequencing())

	require.NoError(t, os.Remove(filepath.Join(dir, "intro.yaml")))
	_, err := m.Poll(ctx)
	require.NoError(t, err)
	assert.False(t, m.Sequencing())
}

func setupMirror(t *testing.T) *store.RedisMirror {
	t.Helper()
	mr := miniredis.RunT(t)
	mirror := store.NewRedisMirrorFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { mirror.Close() })
	return mirror
}

func TestFlushMirrorsAndCountsCommands(t *testing.T) {
	mirror := setupMirror(t)
	mt := metrics.New(prometheus.NewRegistry())
	m, _, _ := setupManager(t, WithMirror(mirror), WithMetrics(mt))
	ctx := context.Background()

	require.NoError(t, m.Create(ctx, "intro"))
	require.NoError(t, m.Flush(ctx))
	names, err := m.MirrorList(ctx)
	require.NoError(t, err)
	assert.Empty(t, names, "nothing to flush")

	addFOV(t, m, 1)
	assert.True(t, m.Status().Dirty)
	require.NoError(t, m.Flush(ctx))
	names, err = m.MirrorList(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"intro"}, names)
	assert.False(t, m.Status().Dirty)

	assert.Equal(t, 1.0, testutil.ToFloat64(mt.Commands.WithLabelValues("add_keyframe", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(mt.Keyframes))
}

func TestMirrorRequiresConfiguration(t *testing.T) {
	m, _, _ := setupManager(t)
	ctx := context.Background()

	_, err := m.MirrorList(ctx)
	assert.ErrorIs(t, err, ErrNoMirror)
	assert.ErrorIs(t, m.Restore(ctx, "intro"), ErrNoMirror)
}

func TestRestoreFromMirror(t *testing.T) {
	mirror := setupMirror(t)
	m, _, dir := setupManager(t, WithMirror(mirror))
	ctx := context.Background()

	require.NoError(t, m.Create(ctx, "intro"))
	addFOV(t, m, 1, 2)
	require.NoError(t, m.Flush(ctx))

	assert.ErrorIs(t, m.Restore(ctx, "intro"), store.ErrDuplicateName, "local copy wins")
	assert.ErrorIs(t, m.Restore(ctx, "outro"), store.ErrNotFound)

	require.NoError(t, m.Create(ctx, "other"))
	require.NoError(t, os.Remove(filepath.Join(dir, "intro.yaml")))
	require.NoError(t, m.Restore(ctx, "intro"))
	assert.FileExists(t, filepath.Join(dir, "intro.yaml"))
	assert.Equal(t, "intro", m.Status().Active)

	seq, err := m.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, 2, seq.KeyframeCount())
}

func TestDeleteSequence(t *testing.T) {
	mirror := setupMirror(t)
	m, _, dir := setupManager(t, WithMirror(mirror))
	ctx := context.Background()

	require.NoError(t, m.Create(ctx, "a"))
	addFOV(t, m, 1)
	require.NoError(t, m.Create(ctx, "b"))

	require.NoError(t, m.Delete(ctx, "a"))
	assert.NoFileExists(t, filepath.Join(dir, "a.yaml"))
	assert.Equal(t, "b", m.Status().Active, "deleting another sequence keeps the active one")
	names, err := m.MirrorList(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)

	require.NoError(t, m.Delete(ctx, "b"))
	assert.Empty(t, m.Status().Active)
	assert.ErrorIs(t, m.AddKeyframe(ctx, "fieldOfView"), ErrNoActiveSequence)

	assert.ErrorIs(t, m.Delete(ctx, "b"), store.ErrNotFound)
}

func TestDeleteActiveFallsBackToLatest(t *testing.T) {
	m, _, _ := setupManager(t)
	ctx := context.Background()

	require.NoError(t, m.Create(ctx, "a"))
	require.NoError(t, m.Create(ctx, "b"))
	require.NoError(t, m.Delete(ctx, "b"))
	assert.Equal(t, "a", m.Status().Active)
}

func TestActivateDisablesSequencing(t *testing.T) {
	m, _, dir := setupManager(t)
	ctx := context.Background()
	require.NoError(t, m.Create(ctx, "a"))

	steps := []struct {
		name string
		fn   func() error
	}{
		{"create", func() error { return m.Create(ctx, "b") }},
		{"copy", func() error { return m.Copy(ctx, "c") }},
		{"switch", func() error { return m.Switch(ctx, "a") }},
		{"switch directory", func() error { return m.SwitchDirectory(ctx, dir) }},
	}
	for _, step := range steps {
		require.NoError(t, m.SetSequencing(ctx, true))
		require.True(t, m.Sequencing())
		require.NoError(t, step.fn(), step.name)
		assert.False(t, m.Sequencing(), step.name)
	}
}
