package host

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivlev/replaydirector/internal/sequence"
)

// mockHost serves the subset of the replay API the client uses.
type mockHost struct {
	mu        sync.Mutex
	render    map[string]any
	playback  map[string]any
	recording map[string]any
	posts     []map[string]any
}

func setupTest(t *testing.T) (*Client, *mockHost) {
	t.Helper()
	m := &mockHost{
		render: map[string]any{
			"fieldOfView":     60.0,
			"cameraPosition":  map[string]any{"x": 1.0, "y": 2.0, "z": 3.0},
			"depthFogColor":   map[string]any{"r": 1.0, "g": 0.5, "b": 0.0, "a": 1.0},
			"depthFogEnabled": true,
			"skyboxPath":      "sky.dds",
			"sunDirection":    map[string]any{"x": 1.0},
			"cameraMoveSpeed": 500.0,
		},
		playback:  map[string]any{"time": 12.5, "length": 100.0, "speed": 1.0, "paused": true, "seeking": false},
		recording: map[string]any{"recording": false},
	}

	r := chi.NewRouter()
	serve := func(state map[string]any) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			m.mu.Lock()
			defer m.mu.Unlock()
			if r.Method == http.MethodPost {
				var body map[string]any
				if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
					http.Error(w, err.Error(), http.StatusBadRequest)
					return
				}
				m.posts = append(m.posts, body)
				for k, v := range body {
					state[k] = v
				}
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(state)
		}
	}
	r.Get(renderPath, serve(m.render))
	r.Post(renderPath, serve(m.render))
	r.Get(playbackPath, serve(m.playback))
	r.Post(playbackPath, serve(m.playback))
	r.Get(recordingPath, serve(m.recording))
	r.Post(recordingPath, serve(m.recording))
	r.Get("/broken", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusServiceUnavailable)
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return NewClient(srv.URL, WithTimeout(time.Second)), m
}

func TestClientGet(t *testing.T) {
	c, _ := setupTest(t)
	ctx := context.Background()

	tests := []struct {
		parameter string
		want      sequence.Value
	}{
		{"fieldOfView", sequence.FloatValue(60)},
		{"cameraPosition", sequence.VectorValue(1, 2, 3)},
		{"depthFogColor", sequence.ColorValue(1, 0.5, 0, 1)},
		{"depthFogEnabled", sequence.BoolValue(true)},
		{"skyboxPath", sequence.PathValue("sky.dds")},
		{"playbackSpeed", sequence.FloatValue(1)},
	}
	for _, tt := range tests {
		t.Run(tt.parameter, func(t *testing.T) {
			got, err := c.Get(ctx, tt.parameter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := c.Get(ctx, "sunDirection")
	assert.ErrorContains(t, err, "missing components")

	_, err = c.Get(ctx, "nearClip")
	assert.Error(t, err)

	_, err = c.Get(ctx, "zoom")
	assert.ErrorIs(t, err, sequence.ErrUnknownParameter)
}

func TestClientSetRoutesParameters(t *testing.T) {
	c, m := setupTest(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "cameraRotation", sequence.RotationValue(10, 20, 30)))
	require.NoError(t, c.Set(ctx, "playbackSpeed", sequence.FloatValue(0.5)))

	m.mu.Lock()
	defer m.mu.Unlock()
	assert.Equal(t, map[string]any{"x": 10.0, "y": 20.0, "z": 30.0}, m.render["cameraRotation"])
	assert.Equal(t, 0.5, m.playback["speed"])
}

func TestClientPlayback(t *testing.T) {
	c, m := setupTest(t)
	ctx := context.Background()

	st, err := c.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, PlaybackState{Time: 12.5, Length: 100, Speed: 1, Paused: true}, st)

	require.NoError(t, c.Play(ctx))
	require.NoError(t, c.AdjustTime(ctx, 200))

	st, err = c.State(ctx)
	require.NoError(t, err)
	assert.False(t, st.Paused)
	assert.Equal(t, 100.0, st.Time)

	require.NoError(t, c.AdjustTime(ctx, -500))
	st, _ = c.State(ctx)
	assert.Equal(t, 0.0, st.Time)

	m.mu.Lock()
	assert.Len(t, m.posts, 3)
	m.mu.Unlock()
}

func TestClientRecording(t *testing.T) {
	c, _ := setupTest(t)
	ctx := context.Background()

	require.NoError(t, c.StartRecording(ctx, Recording{Codec: "png", StartTime: 1, EndTime: 5, FramesPerSecond: 60, Path: "/tmp/out"}))
	rec, err := c.RecordingState(ctx)
	require.NoError(t, err)
	assert.True(t, rec.Recording)
	assert.Equal(t, "png", rec.Codec)
	assert.Equal(t, 60, rec.FramesPerSecond)

	require.NoError(t, c.StopRecording(ctx))
	rec, err = c.RecordingState(ctx)
	require.NoError(t, err)
	assert.False(t, rec.Recording)
}

func TestClientUnreachable(t *testing.T) {
	c, _ := setupTest(t)
	ctx := context.Background()

	err := c.do(ctx, http.MethodGet, "/broken", nil, nil)
	assert.ErrorIs(t, err, ErrHostUnreachable)

	dead := NewClient("http://127.0.0.1:1", WithTimeout(100*time.Millisecond))
	err = dead.Set(ctx, "fieldOfView", sequence.FloatValue(1))
	assert.ErrorIs(t, err, ErrHostUnreachable)
}

func TestClientGetRenderSetting(t *testing.T) {
	c, _ := setupTest(t)
	ctx := context.Background()

	v, err := c.Get(ctx, "cameraMoveSpeed")
	require.NoError(t, err)
	assert.Equal(t, sequence.FloatValue(500), v)

	_, err = c.Get(ctx, "cameraWobble")
	assert.ErrorIs(t, err, sequence.ErrUnknownParameter)
}
