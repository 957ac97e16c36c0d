package director

import (
	"context"
	"fmt"
	"sort"
)

// Action enumerates the operator commands.
type Action int

const (
	ActionAddKeyframe Action = iota + 1
	ActionDeleteSelected
	ActionSelectNext
	ActionSelectPrev
	ActionSelectAdjacent
	ActionSelectAll
	ActionSeekSelected
	ActionClearKeyframes
	ActionUndo
	ActionRedo
	ActionCreate
	ActionCopy
	ActionSetSequencing
	ActionToggleSequencing
	ActionSetDirectory
	ActionPlaySequence
	ActionTogglePlayback
	ActionAdjustTime
	ActionScaleParameter
)

var actionNames = map[Action]string{
	ActionAddKeyframe:      "add_keyframe",
	ActionDeleteSelected:   "delete_selected",
	ActionSelectNext:       "select_next",
	ActionSelectPrev:       "select_prev",
	ActionSelectAdjacent:   "select_adjacent",
	ActionSelectAll:        "select_all",
	ActionSeekSelected:     "seek_selected",
	ActionClearKeyframes:   "clear_keyframes",
	ActionUndo:             "undo",
	ActionRedo:             "redo",
	ActionCreate:           "create",
	ActionCopy:             "copy",
	ActionSetSequencing:    "set_sequencing",
	ActionToggleSequencing: "toggle_sequencing",
	ActionSetDirectory:     "set_directory",
	ActionPlaySequence:     "play_sequence",
	ActionTogglePlayback:   "toggle_playback",
	ActionAdjustTime:       "adjust_time",
	ActionScaleParameter:   "scale_parameter",
}

func (a Action) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return fmt.Sprintf("action(%d)", int(a))
}

// Request is one command with its arguments. Only the fields the action
// uses are read.
type Request struct {
	Action    Action
	Parameter string
	Name      string
	Path      string
	Enabled   bool
	Delta     float64
	Factor    float64
}

// Key binding names mapped to requests. Create and copy bindings need a
// Name filled in by the caller.
var bindings = map[string]Request{
	"play_pause":       {Action: ActionTogglePlayback},
	"sequence_play":    {Action: ActionPlaySequence},
	"sequence_apply":   {Action: ActionToggleSequencing},
	"sequence_new":     {Action: ActionCreate},
	"sequence_copy":    {Action: ActionCopy},
	"sequence_clear":   {Action: ActionClearKeyframes},
	"sequence_del_kf":  {Action: ActionDeleteSelected},
	"sequence_next_kf": {Action: ActionSelectNext},
	"sequence_prev_kf": {Action: ActionSelectPrev},
	"sequence_adj_kf":  {Action: ActionSelectAdjacent},
	"sequence_all_kf":  {Action: ActionSelectAll},
	"sequence_seek_kf": {Action: ActionSeekSelected},
	"sequence_undo":    {Action: ActionUndo},
	"sequence_redo":    {Action: ActionRedo},

	"time_minus_120": {Action: ActionAdjustTime, Delta: -120},
	"time_minus_60":  {Action: ActionAdjustTime, Delta: -60},
	"time_minus_30":  {Action: ActionAdjustTime, Delta: -30},
	"time_minus_10":  {Action: ActionAdjustTime, Delta: -10},
	"time_minus_5":   {Action: ActionAdjustTime, Delta: -5},
	"time_plus_5":    {Action: ActionAdjustTime, Delta: 5},
	"time_plus_10":   {Action: ActionAdjustTime, Delta: 10},
	"time_plus_30":   {Action: ActionAdjustTime, Delta: 30},
	"time_plus_60":   {Action: ActionAdjustTime, Delta: 60},
	"time_plus_120":  {Action: ActionAdjustTime, Delta: 120},

	"camera_fov_up":          {Action: ActionScaleParameter, Parameter: "fieldOfView", Factor: 1.05},
	"camera_fov_down":        {Action: ActionScaleParameter, Parameter: "fieldOfView", Factor: 0.95},
	"render_dof_near_up":     {Action: ActionScaleParameter, Parameter: "depthOfFieldNear", Factor: 1.05},
	"render_dof_near_down":   {Action: ActionScaleParameter, Parameter: "depthOfFieldNear", Factor: 0.95},
	"render_dof_mid_up":      {Action: ActionScaleParameter, Parameter: "depthOfFieldMid", Factor: 1.05},
	"render_dof_mid_down":    {Action: ActionScaleParameter, Parameter: "depthOfFieldMid", Factor: 0.95},
	"render_dof_far_up":      {Action: ActionScaleParameter, Parameter: "depthOfFieldFar", Factor: 1.05},
	"render_dof_far_down":    {Action: ActionScaleParameter, Parameter: "depthOfFieldFar", Factor: 0.95},
	"camera_move_speed_up":   {Action: ActionScaleParameter, Parameter: "cameraMoveSpeed", Factor: 1.2},
	"camera_move_speed_down": {Action: ActionScaleParameter, Parameter: "cameraMoveSpeed", Factor: 0.8},
	"camera_look_speed_up":   {Action: ActionScaleParameter, Parameter: "cameraLookSpeed", Factor: 1.1},
	"camera_look_speed_down": {Action: ActionScaleParameter, Parameter: "cameraLookSpeed", Factor: 0.9},

	"kf_position":             {Action: ActionAddKeyframe, Parameter: "cameraPosition"},
	"kf_rotation":             {Action: ActionAddKeyframe, Parameter: "cameraRotation"},
	"kf_speed":                {Action: ActionAddKeyframe, Parameter: "playbackSpeed"},
	"kf_fov":                  {Action: ActionAddKeyframe, Parameter: "fieldOfView"},
	"kf_near_clip":            {Action: ActionAddKeyframe, Parameter: "nearClip"},
	"kf_far_clip":             {Action: ActionAddKeyframe, Parameter: "farClip"},
	"kf_nav_grid":             {Action: ActionAddKeyframe, Parameter: "navGridOffset"},
	"kf_sky_rotation":         {Action: ActionAddKeyframe, Parameter: "skyboxRotation"},
	"kf_sky_radius":           {Action: ActionAddKeyframe, Parameter: "skyboxRadius"},
	"kf_sky_offset":           {Action: ActionAddKeyframe, Parameter: "skyboxOffset"},
	"kf_sun_direction":        {Action: ActionAddKeyframe, Parameter: "sunDirection"},
	"kf_depth_fog_enable":     {Action: ActionAddKeyframe, Parameter: "depthFogEnabled"},
	"kf_depth_fog_start":      {Action: ActionAddKeyframe, Parameter: "depthFogStart"},
	"kf_depth_fog_end":        {Action: ActionAddKeyframe, Parameter: "depthFogEnd"},
	"kf_depth_fog_intensity":  {Action: ActionAddKeyframe, Parameter: "depthFogIntensity"},
	"kf_depth_fog_color":      {Action: ActionAddKeyframe, Parameter: "depthFogColor"},
	"kf_height_fog_enable":    {Action: ActionAddKeyframe, Parameter: "heightFogEnabled"},
	"kf_height_fog_start":     {Action: ActionAddKeyframe, Parameter: "heightFogStart"},
	"kf_height_fog_end":       {Action: ActionAddKeyframe, Parameter: "heightFogEnd"},
	"kf_height_fog_intensity": {Action: ActionAddKeyframe, Parameter: "heightFogIntensity"},
	"kf_height_fog_color":     {Action: ActionAddKeyframe, Parameter: "heightFogColor"},
	"kf_dof_enabled":          {Action: ActionAddKeyframe, Parameter: "depthOfFieldEnabled"},
	"kf_dof_circle":           {Action: ActionAddKeyframe, Parameter: "depthOfFieldCircle"},
	"kf_dof_width":            {Action: ActionAddKeyframe, Parameter: "depthOfFieldWidth"},
	"kf_dof_near":             {Action: ActionAddKeyframe, Parameter: "depthOfFieldNear"},
	"kf_dof_mid":              {Action: ActionAddKeyframe, Parameter: "depthOfFieldMid"},
	"kf_dof_far":              {Action: ActionAddKeyframe, Parameter: "depthOfFieldFar"},
}

// Binding looks up the request bound to a key binding name.
func Binding(name string) (Request, bool) {
	req, ok := bindings[name]
	return req, ok
}

// Bindings lists the known binding names.
func Bindings() []string {
	names := make([]string, 0, len(bindings))
	for name := range bindings {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dispatch executes req against the manager.
func (m *Manager) Dispatch(ctx context.Context, req Request) error {
	switch req.Action {
	case ActionAddKeyframe:
		return m.AddKeyframe(ctx, req.Parameter)
	case ActionDeleteSelected:
		return m.DeleteSelected()
	case ActionSelectNext:
		return m.SelectNext()
	case ActionSelectPrev:
		return m.SelectPrev()
	case ActionSelectAdjacent:
		return m.SelectAdjacent()
	case ActionSelectAll:
		return m.SelectAll()
	case ActionSeekSelected:
		_, _, err := m.SeekSelected(ctx)
		return err
	case ActionClearKeyframes:
		return m.ClearKeyframes()
	case ActionUndo:
		return m.Undo()
	case ActionRedo:
		return m.Redo()
	case ActionCreate:
		return m.Create(ctx, req.Name)
	case ActionCopy:
		return m.Copy(ctx, req.Name)
	case ActionSetSequencing:
		return m.SetSequencing(ctx, req.Enabled)
	case ActionToggleSequencing:
		return m.SetSequencing(ctx, !m.Sequencing())
	case ActionSetDirectory:
		return m.SwitchDirectory(ctx, req.Path)
	case ActionPlaySequence:
		return m.PlaySequence(ctx)
	case ActionTogglePlayback:
		return m.TogglePlayback(ctx)
	case ActionAdjustTime:
		return m.AdjustTime(ctx, req.Delta)
	case ActionScaleParameter:
		return m.ScaleParameter(ctx, req.Parameter, req.Factor)
	}
	return fmt.Errorf("unknown action %v", req.Action)
}
