// Package scene defines the records a scene graph provider hands to the
// exporter.
//
// Type tags (light, camera, renderer, plugin and volume usage) are closed
// enumerations parsed once when data enters through a Provider.
package scene

// Properties are free-form custom properties. Keys starting with an
// underscore address the element's own fields; all others are opaque
// parameters.
type Properties map[string]any

// Object is one entry of the scene's object list. The variants are *Light,
// *MeshObject and *CameraObject.
type Object interface {
	ObjectName() string
	object()
}

// Light is a light source.
type Light struct {
	Name      string    `yaml:"name"`
	LightName string    `yaml:"light_name"`
	Type      LightType `yaml:"type"`
	Transform Matrix    `yaml:"transform"`

	Color     Vec3    `yaml:"color"`
	Intensity float32 `yaml:"intensity"`
	Visible   bool    `yaml:"visible"`

	AngularDiameter float32 `yaml:"angular_diameter"` // sun, degrees
	SpotSize        float32 `yaml:"spot_size"`        // spot, full angle in degrees
	SpotBlend       float32 `yaml:"spot_blend"`       // spot, [0,1]
	Radius          float32 `yaml:"radius"`           // point and spot
	SizeX           float32 `yaml:"size_x"`           // area
	SizeY           float32 `yaml:"size_y"`           // area

	Properties Properties `yaml:"properties,omitempty"`
}

func (l *Light) ObjectName() string { return l.Name }
func (*Light) object()              {}

// Position returns the light's world position.
func (l *Light) Position() Vec3 {
	return l.Transform.Translation()
}

// Direction returns the world direction the light points at (local -Z).
func (l *Light) Direction() Vec3 {
	return l.Transform.TransformVector(Vec3{0, 0, -1})
}

// OpeningAngle returns the full spot cone angle in degrees.
func (l *Light) OpeningAngle() float32 { return l.SpotSize }

// PenumbraAngle returns the spot penumbra in degrees.
func (l *Light) PenumbraAngle() float32 { return 0.5 * l.SpotBlend * l.SpotSize }

// AreaCorner returns the world position of an area light's corner and the
// two world-space edge vectors spanning it.
func (l *Light) AreaCorner() (corner, edge1, edge2 Vec3) {
	local := Vec3{-0.5 * l.SizeX, -0.5 * l.SizeY, 0}
	corner = l.Transform.TransformPoint(local)
	e1 := l.Transform.TransformPoint(Vec3{local[0], local[1] + l.SizeY, 0})
	e2 := l.Transform.TransformPoint(Vec3{local[0] + l.SizeX, local[1], 0})
	for i := 0; i < 3; i++ {
		edge1[i] = e1[i] - corner[i]
		edge2[i] = e2[i] - corner[i]
	}
	return corner, edge1, edge2
}

// MeshObject is an object instancing a mesh-data block.
type MeshObject struct {
	Name string
	Mesh *Mesh
	// Transform is object-to-world; Local is relative to Parent.
	Transform Matrix
	Local     Matrix
	Parent    string
	Hidden    bool

	// Override enables server-specific behavior for this object, which
	// is required for plugin-enabled mesh data to be used as such.
	Override    bool
	VolumeUsage VolumeUsage

	// Materials are the object's material slots; nil entries are empty
	// slots.
	Materials  []*Material
	Properties Properties
}

func (o *MeshObject) ObjectName() string { return o.Name }
func (*MeshObject) object()              {}

// Material returns the first non-empty material slot.
func (o *MeshObject) Material() *Material {
	for _, m := range o.Materials {
		if m != nil {
			return m
		}
	}
	return nil
}

// SlicesVolume reports whether the object presents a volume plugin as
// slices, making its mesh children slicing planes.
func (o *MeshObject) SlicesVolume() bool {
	return o.Override && o.Mesh.PluginEnabled() &&
		o.Mesh.Plugin.Type == PluginVolume && o.VolumeUsage == UsageSlices
}

// CameraObject is a camera in the object list. The active camera is taken
// from Settings; camera objects produce no object messages.
type CameraObject struct {
	Name string
}

func (c *CameraObject) ObjectName() string { return c.Name }
func (*CameraObject) object()              {}
