package protocol

// MeshFlags declares which optional raw blocks follow a MeshData header.
type MeshFlags uint32

const (
	MeshNormals      MeshFlags = 1
	MeshVertexColors MeshFlags = 2
)

// Has returns true if the flags contain the specified flag.
func (f MeshFlags) Has(flag MeshFlags) bool {
	return f&flag != 0
}

// MeshData follows an UPDATE_BLENDER_MESH header. Unless either count is
// zero it is followed by, in order: positions (3 floats per vertex),
// normals if MeshNormals (3 floats per vertex), colors if MeshVertexColors
// (4 floats per vertex) and indices (3 uint32 per triangle).
type MeshData struct {
	NumVertices  uint32
	NumTriangles uint32
	Flags        MeshFlags
}

func (m *MeshData) EncodeTo(e *Encoder) {
	e.Uint32(1, m.NumVertices)
	e.Uint32(2, m.NumTriangles)
	e.Uint32(3, uint32(m.Flags))
}

func (m *MeshData) DecodeFrom(d *Decoder) error {
	*m = MeshData{}
	return d.Fields(func(f Field) error {
		switch f.Num {
		case 1:
			m.NumVertices = f.Uint32()
		case 2:
			m.NumTriangles = f.Uint32()
		case 3:
			m.Flags = MeshFlags(f.Uint32())
		}
		return nil
	})
}

// Empty reports whether no raw blocks follow the header.
func (m *MeshData) Empty() bool {
	return m.NumVertices == 0 || m.NumTriangles == 0
}

// PayloadSize returns the number of raw bytes that follow the header.
func (m *MeshData) PayloadSize() int {
	if m.Empty() {
		return 0
	}
	nv, nt := int(m.NumVertices), int(m.NumTriangles)
	n := nv * 3
	if m.Flags.Has(MeshNormals) {
		n += nv * 3
	}
	if m.Flags.Has(MeshVertexColors) {
		n += nv * 4
	}
	n += nt * 3
	return n * ElementSize
}
