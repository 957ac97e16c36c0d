package sequence

import (
	"fmt"
	"math"
	"sort"
)

// Interpolate evaluates keyframes, sorted by strictly increasing time, at
// time t. Times outside the keyframe range clamp to the first or last value.
// The result depends only on its arguments.
func Interpolate(keyframes []Keyframe, kind Kind, t float64) (Value, error) {
	if len(keyframes) == 0 {
		return Value{}, ErrNoData
	}
	if math.IsNaN(t) {
		return Value{}, fmt.Errorf("sample at NaN: %w", ErrInvalidTime)
	}

	first, last := keyframes[0], keyframes[len(keyframes)-1]
	if t <= first.Time {
		return first.Value, nil
	}
	if t >= last.Time {
		return last.Value, nil
	}

	// Bounding pair a.Time <= t < b.Time.
	i := sort.Search(len(keyframes), func(i int) bool {
		return keyframes[i].Time > t
	})
	a, b := keyframes[i-1], keyframes[i]
	ratio := (t - a.Time) / (b.Time - a.Time)

	return blend(kind, a.Value, b.Value, ratio), nil
}

func blend(kind Kind, a, b Value, ratio float64) Value {
	if ratio == 0 {
		return a
	}

	switch kind {
	case KindFloat:
		return FloatValue(lerp(a.Float, b.Float, ratio))
	case KindVector:
		return VectorValue(
			lerp(a.Vector.X, b.Vector.X, ratio),
			lerp(a.Vector.Y, b.Vector.Y, ratio),
			lerp(a.Vector.Z, b.Vector.Z, ratio),
		)
	case KindRotation:
		return RotationValue(
			lerpAngle(a.Vector.X, b.Vector.X, ratio),
			lerpAngle(a.Vector.Y, b.Vector.Y, ratio),
			lerpAngle(a.Vector.Z, b.Vector.Z, ratio),
		)
	case KindColor:
		return ColorValue(
			lerp(a.Color.R, b.Color.R, ratio),
			lerp(a.Color.G, b.Color.G, ratio),
			lerp(a.Color.B, b.Color.B, ratio),
			lerp(a.Color.A, b.Color.A, ratio),
		)
	default:
		// bool and path hold until the next keyframe
		return a
	}
}

// lerp performs linear interpolation between a and b
func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// lerpAngle interpolates degrees along the shorter arc. The delta is taken in
// (-180, 180] and the result is normalized into [0, 360).
func lerpAngle(a, b, t float64) float64 {
	delta := math.Mod(b-a, 360)
	if delta > 180 {
		delta -= 360
	} else if delta <= -180 {
		delta += 360
	}
	angle := math.Mod(a+delta*t, 360)
	if angle < 0 {
		angle += 360
	}
	return angle
}
