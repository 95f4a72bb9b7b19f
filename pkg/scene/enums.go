package scene

import (
	"fmt"
	"strings"
)

// LightType is the light model of a Light record.
type LightType uint8

const (
	LightPoint LightType = iota
	LightSun
	LightSpot
	LightArea
)

var lightTypes = []string{"point", "sun", "spot", "area"}

func (t LightType) String() string { return enumString(lightTypes, int(t), "LightType") }

// UnmarshalText parses "point", "sun", "spot" or "area" (case-insensitive).
func (t *LightType) UnmarshalText(b []byte) error {
	return parseEnum(lightTypes, string(b), "light type", (*uint8)(t))
}

// CameraType is the projection of the scene camera.
type CameraType uint8

const (
	CameraPerspective CameraType = iota
	CameraOrthographic
	CameraPanoramic
)

var cameraTypes = []string{"perspective", "orthographic", "panoramic"}

func (t CameraType) String() string { return enumString(cameraTypes, int(t), "CameraType") }

// UnmarshalText parses a camera type name.
func (t *CameraType) UnmarshalText(b []byte) error {
	return parseEnum(cameraTypes, string(b), "camera type", (*uint8)(t))
}

// Renderer selects the server-side renderer.
type Renderer uint8

const (
	RendererSciVis Renderer = iota
	RendererPathTracer
)

var renderers = []string{"scivis", "pathtracer"}

func (r Renderer) String() string { return enumString(renderers, int(r), "Renderer") }

// UnmarshalText parses "scivis" or "pathtracer".
func (r *Renderer) UnmarshalText(b []byte) error {
	return parseEnum(renderers, string(b), "renderer", (*uint8)(r))
}

// MarshalText returns the renderer name.
func (r Renderer) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

// PluginType is the kind of data a plugin-enabled mesh generates on the
// server.
type PluginType uint8

const (
	PluginGeometry PluginType = iota
	PluginVolume
	PluginScene
)

var pluginTypes = []string{"geometry", "volume", "scene"}

func (t PluginType) String() string { return enumString(pluginTypes, int(t), "PluginType") }

// UnmarshalText parses "geometry", "volume" or "scene".
func (t *PluginType) UnmarshalText(b []byte) error {
	return parseEnum(pluginTypes, string(b), "plugin type", (*uint8)(t))
}

// VolumeUsage says how an object presents a volume plugin's data.
type VolumeUsage uint8

const (
	UsageVolume VolumeUsage = iota
	UsageIsosurfaces
	UsageSlices
)

var volumeUsages = []string{"volume", "isosurfaces", "slices"}

func (u VolumeUsage) String() string { return enumString(volumeUsages, int(u), "VolumeUsage") }

// UnmarshalText parses "volume", "isosurfaces" or "slices".
func (u *VolumeUsage) UnmarshalText(b []byte) error {
	return parseEnum(volumeUsages, string(b), "volume usage", (*uint8)(u))
}

func enumString(names []string, i int, typ string) string {
	if i >= 0 && i < len(names) {
		return names[i]
	}
	return fmt.Sprintf("%s(%d)", typ, i)
}

func parseEnum(names []string, s, what string, dst *uint8) error {
	for i, n := range names {
		if strings.EqualFold(n, s) {
			*dst = uint8(i)
			return nil
		}
	}
	return fmt.Errorf("scene: unknown %s %q", what, s)
}
