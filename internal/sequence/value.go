package sequence

import "fmt"

// Kind tags the variant held by a Value.
type Kind string

const (
	KindBool     Kind = "bool"
	KindFloat    Kind = "float"
	KindVector   Kind = "vector"
	KindRotation Kind = "rotation"
	KindColor    Kind = "color"
	KindPath     Kind = "path"
)

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindBool, KindFloat, KindVector, KindRotation, KindColor, KindPath:
		return true
	}
	return false
}

// Vector is a 3-component vector. Rotations use it with components in degrees.
type Vector struct {
	X float64 `yaml:"x" json:"x"`
	Y float64 `yaml:"y" json:"y"`
	Z float64 `yaml:"z" json:"z"`
}

// Color is an RGBA color with components in [0, 1].
type Color struct {
	R float64 `yaml:"r" json:"r"`
	G float64 `yaml:"g" json:"g"`
	B float64 `yaml:"b" json:"b"`
	A float64 `yaml:"a" json:"a"`
}

// Value is a tagged union over the parameter types a track can hold.
// Only the field selected by Kind is meaningful; the constructors leave the
// others zeroed so Values compare with ==.
type Value struct {
	Kind   Kind
	Bool   bool
	Float  float64
	Vector Vector
	Color  Color
	Path   string
}

func BoolValue(b bool) Value { return Value{Kind: KindBool, Bool: b} }

func FloatValue(f float64) Value { return Value{Kind: KindFloat, Float: f} }

func PathValue(p string) Value { return Value{Kind: KindPath, Path: p} }

func VectorValue(x, y, z float64) Value {
	return Value{Kind: KindVector, Vector: Vector{X: x, Y: y, Z: z}}
}

func RotationValue(x, y, z float64) Value {
	return Value{Kind: KindRotation, Vector: Vector{X: x, Y: y, Z: z}}
}

func ColorValue(r, g, b, a float64) Value {
	return Value{Kind: KindColor, Color: Color{R: r, G: g, B: b, A: a}}
}

// Interface returns the plain Go representation used on the wire to the
// render host: bool, float64, string or a component map.
func (v Value) Interface() any {
	switch v.Kind {
	case KindBool:
		return v.Bool
	case KindFloat:
		return v.Float
	case KindVector, KindRotation:
		return map[string]float64{"x": v.Vector.X, "y": v.Vector.Y, "z": v.Vector.Z}
	case KindColor:
		return map[string]float64{"r": v.Color.R, "g": v.Color.G, "b": v.Color.B, "a": v.Color.A}
	case KindPath:
		return v.Path
	}
	return nil
}

func (v Value) String() string {
	switch v.Kind {
	case KindBool:
		return fmt.Sprintf("%t", v.Bool)
	case KindFloat:
		return fmt.Sprintf("%g", v.Float)
	case KindVector, KindRotation:
		return fmt.Sprintf("(%g, %g, %g)", v.Vector.X, v.Vector.Y, v.Vector.Z)
	case KindColor:
		return fmt.Sprintf("rgba(%g, %g, %g, %g)", v.Color.R, v.Color.G, v.Color.B, v.Color.A)
	case KindPath:
		return v.Path
	}
	return "<invalid>"
}
