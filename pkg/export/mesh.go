package export

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/RaphaelK12/blospray/pkg/cache"
	"github.com/RaphaelK12/blospray/pkg/protocol"
	"github.com/RaphaelK12/blospray/pkg/scene"
)

// ExportMesh sends a raw mesh-data block under its own name unless it was
// already sent this session. Positions are transformed by transform; a
// zero matrix means identity.
func (x *Exporter) ExportMesh(m *scene.Mesh, transform scene.Matrix) error {
	return x.exportMeshAs(m.Name, m, transform)
}

// exportMeshAs sends m as the mesh-data block called name. The block is
// marked sent only after every raw block has been written.
func (x *Exporter) exportMeshAs(name string, m *scene.Mesh, transform scene.Matrix) error {
	if x.cache.AlreadySent(cache.MeshData, name) {
		x.report.MeshesReused++
		return nil
	}

	tris := m.Triangulate()
	hdr := &protocol.MeshData{
		NumVertices:  uint32(len(m.Vertices)),
		NumTriangles: uint32(len(tris)),
	}
	for _, t := range tris {
		if t.Smooth {
			// The flag covers the whole block; mixed smooth and flat
			// faces are all sent with vertex normals.
			hdr.Flags |= protocol.MeshNormals
			break
		}
	}
	if m.HasColors() {
		hdr.Flags |= protocol.MeshVertexColors
	}

	if err := x.send(protocol.UpdateMesh(name), hdr); err != nil {
		return err
	}
	if hdr.Empty() {
		x.cache.MarkSent(cache.MeshData, name)
		x.report.MeshesSent++
		x.logger.Debug("empty mesh", "name", name)
		return nil
	}

	identity := transform.IsZero() || transform == scene.Identity()
	mat := transform.Mat4()

	nv := len(m.Vertices)
	pos := protocol.NewFloat32Block(nv, 3)
	for i, v := range m.Vertices {
		if !identity {
			v = scene.Vec3(mat.Mul4x1(mgl32.Vec4{v[0], v[1], v[2], 1}).Vec3())
		}
		pos.Set(i, 0, v[0])
		pos.Set(i, 1, v[1])
		pos.Set(i, 2, v[2])
	}
	blocks := []protocol.Block{pos}

	if hdr.Flags.Has(protocol.MeshNormals) {
		normals := m.Normals
		if len(normals) != nv {
			normals = vertexNormals(m.Vertices, tris)
		}
		nb := protocol.NewFloat32Block(nv, 3)
		for i, n := range normals {
			v := mgl32.Vec3(n)
			if !identity {
				v = mat.Mul4x1(v.Vec4(0)).Vec3()
				if v.Len() > 0 {
					v = v.Normalize()
				}
			}
			nb.Set(i, 0, v[0])
			nb.Set(i, 1, v[1])
			nb.Set(i, 2, v[2])
		}
		blocks = append(blocks, nb)
	}

	if hdr.Flags.Has(protocol.MeshVertexColors) {
		blocks = append(blocks, vertexColors(m, tris))
	}

	idx := protocol.NewUint32Block(len(tris), 3)
	for i, t := range tris {
		idx.Set(i, 0, t.Vertices[0])
		idx.Set(i, 1, t.Vertices[1])
		idx.Set(i, 2, t.Vertices[2])
	}
	blocks = append(blocks, idx)

	for _, b := range blocks {
		if err := x.t.WriteRaw(b); err != nil {
			return err
		}
	}

	x.cache.MarkSent(cache.MeshData, name)
	x.report.MeshesSent++
	x.logger.Debug("mesh sent", "name", name, "vertices", hdr.NumVertices, "triangles", hdr.NumTriangles, "flags", uint32(hdr.Flags))
	return nil
}

// vertexColors scatters per-corner colors to vertices. Alpha is forced to
// 1. A vertex shared by differently colored corners keeps the color of the
// last triangle written.
func vertexColors(m *scene.Mesh, tris []scene.Triangle) *protocol.Float32Block {
	b := protocol.NewFloat32Block(len(m.Vertices), 4)
	for _, t := range tris {
		colors := m.Faces[t.Face].Colors
		if len(colors) == 0 {
			continue
		}
		for k := 0; k < 3; k++ {
			v, c := int(t.Vertices[k]), colors[t.Loops[k]]
			b.Set(v, 0, c[0])
			b.Set(v, 1, c[1])
			b.Set(v, 2, c[2])
			b.Set(v, 3, 1)
		}
	}
	return b
}

// vertexNormals computes area-weighted vertex normals for meshes that
// declare smooth faces without supplying normals.
func vertexNormals(verts []scene.Vec3, tris []scene.Triangle) []scene.Vec3 {
	acc := make([]mgl32.Vec3, len(verts))
	for _, t := range tris {
		a := mgl32.Vec3(verts[t.Vertices[0]])
		b := mgl32.Vec3(verts[t.Vertices[1]])
		c := mgl32.Vec3(verts[t.Vertices[2]])
		n := b.Sub(a).Cross(c.Sub(a))
		for _, v := range t.Vertices {
			acc[v] = acc[v].Add(n)
		}
	}
	out := make([]scene.Vec3, len(verts))
	for i, n := range acc {
		if n.Len() > 0 {
			n = n.Normalize()
		}
		out[i] = scene.Vec3(n)
	}
	return out
}
