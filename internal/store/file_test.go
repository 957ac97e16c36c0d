package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivlev/replaydirector/internal/sequence"
)

func sample(name string) *sequence.Sequence {
	s := sequence.New(name, 1, 20)
	fov, _, _ := s.EnsureTrack("fieldOfView", sequence.KindFloat)
	_, _, _ = fov.Add(1, sequence.FloatValue(60))
	_, _, _ = fov.Add(5, sequence.FloatValue(75))
	rot, _, _ := s.EnsureTrack("cameraRotation", sequence.KindRotation)
	_, _, _ = rot.Add(2, sequence.RotationValue(350, 10, 0))
	return s
}

func TestFileStoreSaveLoad(t *testing.T) {
	ctx := context.Background()
	fs, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	want := sample("intro")
	require.NoError(t, fs.Save(ctx, want))

	ok, err := fs.Exists("intro")
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := fs.Load(ctx, "intro")
	require.NoError(t, err)
	assert.True(t, want.Equal(got))

	// overwrite in place
	_, _, _ = want.Tracks["fieldOfView"].Add(9, sequence.FloatValue(30))
	require.NoError(t, fs.Save(ctx, want))
	got, err = fs.Load(ctx, "intro")
	require.NoError(t, err)
	assert.Equal(t, 3, got.Tracks["fieldOfView"].Len())

	files, err := os.ReadDir(fs.Dir())
	require.NoError(t, err)
	assert.Len(t, files, 1, "temp files must not linger")
}

func TestFileStoreErrors(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	_, err := NewFileStore(filepath.Join(dir, "missing"))
	assert.ErrorIs(t, err, ErrNotADirectory)

	file := filepath.Join(dir, "plain.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))
	_, err = NewFileStore(file)
	assert.ErrorIs(t, err, ErrNotADirectory)

	fs, err := NewFileStore(dir)
	require.NoError(t, err)

	_, err = fs.Load(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	for _, name := range []string{"", "..", "a/b", ".hidden"} {
		assert.ErrorIs(t, fs.Save(ctx, sequence.New(name, 0, 1)), ErrInvalidName, "name %q", name)
	}

	require.NoError(t, fs.Delete(ctx, "nope"))
}

func TestFileStoreListSkipsCorrupt(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	fs, err := NewFileStore(dir, WithWorkers(2))
	require.NoError(t, err)

	require.NoError(t, fs.Save(ctx, sample("older")))
	require.NoError(t, fs.Save(ctx, sample("newer")))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("name: broken\nstartTime: [\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "renamed.yaml"), mustMarshal(t, sample("other")), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644))

	now := time.Now()
	require.NoError(t, os.Chtimes(filepath.Join(dir, "older.yaml"), now.Add(-time.Hour), now.Add(-time.Hour)))
	require.NoError(t, os.Chtimes(filepath.Join(dir, "newer.yaml"), now.Add(-time.Minute), now.Add(-time.Minute)))
	require.NoError(t, os.Chtimes(filepath.Join(dir, "broken.yaml"), now, now))

	entries, err := fs.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 4)

	byName := map[string]Entry{}
	for _, e := range entries {
		byName[e.Name] = e
	}
	assert.True(t, byName["broken"].Corrupt())
	assert.ErrorIs(t, byName["broken"].Err, sequence.ErrCorrupt)
	assert.True(t, byName["renamed"].Corrupt())
	assert.False(t, byName["older"].Corrupt())

	latest, ok := Latest(entries)
	require.True(t, ok)
	assert.Equal(t, "newer", latest.Name)

	// corrupt files are left alone
	_, err = os.Stat(filepath.Join(dir, "broken.yaml"))
	assert.NoError(t, err)
}

func mustMarshal(t *testing.T, s *sequence.Sequence) []byte {
	t.Helper()
	data, err := sequence.Marshal(s)
	require.NoError(t, err)
	return data
}
