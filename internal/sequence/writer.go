package sequence

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// On-disk layout of a sequence file.
type fileSequence struct {
	Name      string      `yaml:"name"`
	StartTime float64     `yaml:"startTime"`
	EndTime   float64     `yaml:"endTime"`
	Tracks    []fileTrack `yaml:"tracks"`
}

type fileTrack struct {
	Parameter string         `yaml:"parameter"`
	Type      Kind           `yaml:"type"`
	Keyframes []fileKeyframe `yaml:"keyframes"`
}

type fileKeyframe struct {
	Time  float64   `yaml:"time"`
	Value yaml.Node `yaml:"value"`
}

// Marshal encodes a sequence as YAML. Tracks are written in parameter order
// and keyframes in time order.
func Marshal(s *Sequence) ([]byte, error) {
	out := fileSequence{
		Name:      s.Name,
		StartTime: s.StartTime,
		EndTime:   s.EndTime,
		Tracks:    make([]fileTrack, 0, len(s.Tracks)),
	}
	for _, param := range s.Parameters() {
		tr := s.Tracks[param]
		ft := fileTrack{
			Parameter: tr.Parameter,
			Type:      tr.Kind,
			Keyframes: make([]fileKeyframe, len(tr.Keyframes)),
		}
		for i, kf := range tr.Keyframes {
			ft.Keyframes[i].Time = kf.Time
			if err := ft.Keyframes[i].Value.Encode(encodeValue(kf.Value)); err != nil {
				return nil, fmt.Errorf("encode %s at %v: %w", param, kf.Time, err)
			}
		}
		out.Tracks = append(out.Tracks, ft)
	}
	return yaml.Marshal(&out)
}

// Unmarshal decodes and validates a sequence file. Any failure wraps
// ErrCorrupt.
func Unmarshal(data []byte) (*Sequence, error) {
	var in fileSequence
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&in); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty document: %w", ErrCorrupt)
		}
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	if in.Name == "" {
		return nil, fmt.Errorf("missing name: %w", ErrCorrupt)
	}
	s := New(in.Name, 0, 0)
	if err := s.SetBounds(in.StartTime, in.EndTime); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	for _, ft := range in.Tracks {
		if ft.Parameter == "" {
			return nil, fmt.Errorf("track without parameter: %w", ErrCorrupt)
		}
		if _, dup := s.Tracks[ft.Parameter]; dup {
			return nil, fmt.Errorf("duplicate track %s: %w", ft.Parameter, ErrCorrupt)
		}
		if !ft.Type.Valid() {
			return nil, fmt.Errorf("track %s has type %q: %w", ft.Parameter, ft.Type, ErrCorrupt)
		}

		tr := NewTrack(ft.Parameter, ft.Type)
		for i, fk := range ft.Keyframes {
			if !validTime(fk.Time) || (i > 0 && fk.Time <= ft.Keyframes[i-1].Time) {
				return nil, fmt.Errorf("track %s: keyframe %d at %v out of order: %w", ft.Parameter, i, fk.Time, ErrCorrupt)
			}
			v, err := decodeValue(ft.Type, &fk.Value)
			if err != nil {
				return nil, fmt.Errorf("track %s: keyframe %d: %w: %v", ft.Parameter, i, ErrCorrupt, err)
			}
			tr.Keyframes = append(tr.Keyframes, Keyframe{Time: fk.Time, Value: v})
		}
		s.Tracks[ft.Parameter] = tr
	}
	return s, nil
}

func encodeValue(v Value) any {
	switch v.Kind {
	case KindVector, KindRotation:
		return v.Vector
	case KindColor:
		return v.Color
	}
	return v.Interface()
}

func decodeValue(kind Kind, node *yaml.Node) (Value, error) {
	if node.Kind == 0 {
		return Value{}, errors.New("missing value")
	}
	switch kind {
	case KindBool:
		var b bool
		err := node.Decode(&b)
		return BoolValue(b), err
	case KindFloat:
		var f float64
		err := node.Decode(&f)
		return FloatValue(f), err
	case KindVector, KindRotation:
		if node.Kind != yaml.MappingNode {
			return Value{}, fmt.Errorf("%s value must be a mapping", kind)
		}
		var vec Vector
		err := node.Decode(&vec)
		return Value{Kind: kind, Vector: vec}, err
	case KindColor:
		if node.Kind != yaml.MappingNode {
			return Value{}, errors.New("color value must be a mapping")
		}
		var c Color
		err := node.Decode(&c)
		return Value{Kind: KindColor, Color: c}, err
	case KindPath:
		if node.Kind != yaml.ScalarNode {
			return Value{}, errors.New("path value must be a scalar")
		}
		var p string
		err := node.Decode(&p)
		return PathValue(p), err
	}
	return Value{}, fmt.Errorf("unknown kind %q", kind)
}
