package director

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivlev/replaydirector/internal/sequence"
)

func TestBindingsCoverCatalogParameters(t *testing.T) {
	bound := map[string]bool{}
	for _, name := range Bindings() {
		req, ok := Binding(name)
		require.True(t, ok)
		if req.Action == ActionAddKeyframe {
			_, err := sequence.ParameterKind(req.Parameter)
			assert.NoError(t, err, name)
			bound[req.Parameter] = true
		}
	}
	assert.True(t, bound["fieldOfView"])
	assert.True(t, bound["cameraRotation"])

	_, ok := Binding("sequence_explode")
	assert.False(t, ok)
}

func TestDispatch(t *testing.T) {
	m, fake, _ := setupManager(t)
	ctx := context.Background()

	req, _ := Binding("sequence_new")
	req.Name = "intro"
	require.NoError(t, m.Dispatch(ctx, req))

	fake.Params["fieldOfView"] = sequence.FloatValue(45)
	fake.SetTime(2)
	req, _ = Binding("kf_fov")
	require.NoError(t, m.Dispatch(ctx, req))
	assert.Equal(t, 1, m.Status().Keyframes)

	req, _ = Binding("sequence_undo")
	require.NoError(t, m.Dispatch(ctx, req))
	assert.Equal(t, 0, m.Status().Keyframes)

	req, _ = Binding("sequence_apply")
	require.NoError(t, m.Dispatch(ctx, req))
	assert.True(t, m.Sequencing())
	require.NoError(t, m.Dispatch(ctx, req))
	assert.False(t, m.Sequencing())

	req, _ = Binding("time_plus_30")
	require.NoError(t, m.Dispatch(ctx, req))
	st, _ := fake.State(ctx)
	assert.Equal(t, 32.0, st.Time)

	req, _ = Binding("play_pause")
	require.NoError(t, m.Dispatch(ctx, req))
	st, _ = fake.State(ctx)
	assert.False(t, st.Paused)

	assert.Error(t, m.Dispatch(ctx, Request{Action: Action(99)}))
	assert.Equal(t, "undo", ActionUndo.String())
}

func TestDispatchScaleParameter(t *testing.T) {
	m, fake, _ := setupManager(t)
	ctx := context.Background()

	tests := []struct {
		binding   string
		parameter string
		start     float64
		want      float64
	}{
		{"camera_fov_up", "fieldOfView", 60, 63},
		{"camera_fov_down", "fieldOfView", 60, 57},
		{"render_dof_near_up", "depthOfFieldNear", 100, 105},
		{"render_dof_mid_down", "depthOfFieldMid", 200, 190},
		{"render_dof_far_up", "depthOfFieldFar", 1000, 1050},
		{"camera_move_speed_up", "cameraMoveSpeed", 500, 600},
		{"camera_move_speed_down", "cameraMoveSpeed", 500, 400},
		{"camera_look_speed_up", "cameraLookSpeed", 10, 11},
		{"camera_look_speed_down", "cameraLookSpeed", 10, 9},
	}
	for _, tt := range tests {
		t.Run(tt.binding, func(t *testing.T) {
			fake.SetParam(tt.parameter, sequence.FloatValue(tt.start))
			req, ok := Binding(tt.binding)
			require.True(t, ok)
			assert.Equal(t, ActionScaleParameter, req.Action)

			require.NoError(t, m.Dispatch(ctx, req))
			v, _ := fake.Param(tt.parameter)
			assert.InDelta(t, tt.want, v.Float, 1e-9)
		})
	}
}

func TestScaleParameterErrors(t *testing.T) {
	m, fake, _ := setupManager(t)
	ctx := context.Background()

	assert.Error(t, m.ScaleParameter(ctx, "fieldOfView", 1.05), "host has no value")

	fake.SetParam("depthFogEnabled", sequence.BoolValue(true))
	assert.ErrorIs(t, m.ScaleParameter(ctx, "depthFogEnabled", 1.05), sequence.ErrKindMismatch)
	v, _ := fake.Param("depthFogEnabled")
	assert.True(t, v.Bool)
}
