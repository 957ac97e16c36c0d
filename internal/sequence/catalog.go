package sequence

import (
	"fmt"
	"sort"
)

// Parameters the render host exposes for keyframing.
var catalog = map[string]Kind{
	"cameraPosition":      KindVector,
	"cameraRotation":      KindRotation,
	"playbackSpeed":       KindFloat,
	"fieldOfView":         KindFloat,
	"nearClip":            KindFloat,
	"farClip":             KindFloat,
	"navGridOffset":       KindFloat,
	"skyboxRotation":      KindFloat,
	"skyboxRadius":        KindFloat,
	"skyboxOffset":        KindFloat,
	"skyboxPath":          KindPath,
	"sunDirection":        KindVector,
	"depthFogEnabled":     KindBool,
	"depthFogStart":       KindFloat,
	"depthFogEnd":         KindFloat,
	"depthFogIntensity":   KindFloat,
	"depthFogColor":       KindColor,
	"heightFogEnabled":    KindBool,
	"heightFogStart":      KindFloat,
	"heightFogEnd":        KindFloat,
	"heightFogIntensity":  KindFloat,
	"heightFogColor":      KindColor,
	"depthOfFieldEnabled": KindBool,
	"depthOfFieldDebug":   KindBool,
	"depthOfFieldCircle":  KindFloat,
	"depthOfFieldWidth":   KindFloat,
	"depthOfFieldNear":    KindFloat,
	"depthOfFieldMid":     KindFloat,
	"depthOfFieldFar":     KindFloat,
}

// ParameterKind returns the value kind of a known parameter.
func ParameterKind(parameter string) (Kind, error) {
	kind, ok := catalog[parameter]
	if !ok {
		return "", fmt.Errorf("%q: %w", parameter, ErrUnknownParameter)
	}
	return kind, nil
}

// Catalog lists the known parameter names in lexical order.
func Catalog() []string {
	names := make([]string, 0, len(catalog))
	for name := range catalog {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
