package scene

// Face is one polygon of a mesh. Vertices index Mesh.Vertices.
type Face struct {
	Vertices []uint32 `yaml:"vertices"`
	Smooth   bool     `yaml:"smooth"`
	// Colors holds one RGB color per face corner (loop) when the mesh
	// has a color layer.
	Colors []Vec3 `yaml:"colors,omitempty"`
}

// Plugin marks mesh data whose content is generated server-side.
type Plugin struct {
	Type       PluginType     `yaml:"type"`
	Name       string         `yaml:"name"`
	Parameters map[string]any `yaml:"parameters,omitempty"`
}

// Mesh is a named mesh-data block. Several objects may reference the same
// Mesh; it is sent once per session.
type Mesh struct {
	Name     string `yaml:"name"`
	Vertices []Vec3 `yaml:"vertices"`
	// Normals holds one normal per vertex. Used only when a face is
	// smooth shaded.
	Normals []Vec3 `yaml:"normals,omitempty"`
	Faces   []Face `yaml:"faces"`

	Plugin     *Plugin    `yaml:"plugin,omitempty"`
	Properties Properties `yaml:"properties,omitempty"`
}

// PluginEnabled reports whether the mesh is a plugin instance.
func (m *Mesh) PluginEnabled() bool {
	return m != nil && m.Plugin != nil
}

// HasColors reports whether any face carries a color layer.
func (m *Mesh) HasColors() bool {
	for i := range m.Faces {
		if len(m.Faces[i].Colors) > 0 {
			return true
		}
	}
	return false
}

// Triangle is one triangle of a triangulated mesh. Loops index the
// originating face corners, for per-corner attributes.
type Triangle struct {
	Vertices [3]uint32
	Face     int
	Loops    [3]int
	Smooth   bool
}

// Triangulate fan-triangulates every face with at least three corners.
func (m *Mesh) Triangulate() []Triangle {
	var tris []Triangle
	for fi := range m.Faces {
		f := &m.Faces[fi]
		for k := 1; k+1 < len(f.Vertices); k++ {
			tris = append(tris, Triangle{
				Vertices: [3]uint32{f.Vertices[0], f.Vertices[k], f.Vertices[k+1]},
				Face:     fi,
				Loops:    [3]int{0, k, k + 1},
				Smooth:   f.Smooth,
			})
		}
	}
	return tris
}
