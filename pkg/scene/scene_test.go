package scene

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestMatrixRowMajor(t *testing.T) {
	m := FromMat4(mgl32.Translate3D(1, 2, 3))
	if got := m.Translation(); got != (Vec3{1, 2, 3}) {
		t.Errorf("Translation() = %v", got)
	}
	if m[3] != 1 || m[7] != 2 || m[11] != 3 {
		t.Errorf("translation not in the last column: %v", m)
	}
	if got := m.TransformPoint(Vec3{1, 1, 1}); got != (Vec3{2, 3, 4}) {
		t.Errorf("TransformPoint() = %v", got)
	}
	if got := m.TransformVector(Vec3{1, 1, 1}); got != (Vec3{1, 1, 1}) {
		t.Errorf("TransformVector() = %v", got)
	}
}

func TestMatrixMul(t *testing.T) {
	a := FromMat4(mgl32.Translate3D(1, 0, 0))
	b := FromMat4(mgl32.Scale3D(2, 2, 2))

	// Scale first, then translate.
	if p := a.Mul(b).TransformPoint(Vec3{1, 1, 1}); p != (Vec3{3, 2, 2}) {
		t.Errorf("a*b applied to (1,1,1) = %v, want (3,2,2)", p)
	}
	if Identity().Mul(Identity()) != Identity() {
		t.Error("I*I != I")
	}
}

func TestLightGeometry(t *testing.T) {
	l := &Light{
		Type:      LightArea,
		Transform: FromMat4(mgl32.Translate3D(0, 0, 5)),
		SizeX:     2,
		SizeY:     4,
	}
	corner, e1, e2 := l.AreaCorner()
	tests := []struct {
		name      string
		got, want Vec3
	}{
		{"corner", corner, Vec3{-1, -2, 5}},
		{"edge1", e1, Vec3{0, 4, 0}},
		{"edge2", e2, Vec3{2, 0, 0}},
		{"position", l.Position(), Vec3{0, 0, 5}},
		{"direction", l.Direction(), Vec3{0, 0, -1}},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}

	spot := &Light{Type: LightSpot, SpotSize: 60, SpotBlend: 0.5}
	if spot.OpeningAngle() != 60 || spot.PenumbraAngle() != 15 {
		t.Errorf("spot angles = %v, %v; want 60, 15", spot.OpeningAngle(), spot.PenumbraAngle())
	}
}

func TestTriangulate(t *testing.T) {
	m := &Mesh{
		Vertices: []Vec3{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}, {2, 0, 0}},
		Faces: []Face{
			{Vertices: []uint32{0, 1, 2, 3}, Smooth: true},
			{Vertices: []uint32{1, 4, 2}},
			{Vertices: []uint32{0, 1}},
		},
	}
	tris := m.Triangulate()
	if len(tris) != 3 {
		t.Fatalf("got %d triangles, want 3", len(tris))
	}
	if tris[0].Vertices != [3]uint32{0, 1, 2} || tris[1].Vertices != [3]uint32{0, 2, 3} {
		t.Errorf("quad fan = %v, %v", tris[0].Vertices, tris[1].Vertices)
	}
	if tris[1].Loops != [3]int{0, 2, 3} {
		t.Errorf("loops = %v", tris[1].Loops)
	}
	if !tris[1].Smooth {
		t.Error("smooth flag lost")
	}
	if tris[2].Face != 1 {
		t.Errorf("degenerate face not skipped: %+v", tris[2])
	}
	if m.HasColors() {
		t.Error("HasColors() = true without colors")
	}
}

func TestEnumText(t *testing.T) {
	var r Renderer
	if err := r.UnmarshalText([]byte("SciVis")); err != nil || r != RendererSciVis {
		t.Errorf("UnmarshalText(SciVis) = %v, %v", r, err)
	}
	b, err := RendererPathTracer.MarshalText()
	if err != nil || string(b) != "pathtracer" {
		t.Errorf("MarshalText() = %q, %v", b, err)
	}

	var u VolumeUsage
	if err := u.UnmarshalText([]byte("points")); err == nil {
		t.Error("unknown volume usage accepted")
	}
	if got := LightType(9).String(); got != "LightType(9)" {
		t.Errorf("LightType(9).String() = %q", got)
	}
}

func TestMaterialOutput(t *testing.T) {
	tests := []struct {
		name  string
		nodes []Node
	}{
		{"none", nil},
		{"two", []Node{{Name: "a", Kind: NodeOutput}, {Name: "b", Kind: NodeOutput}}},
	}
	for _, tt := range tests {
		m := &Material{Name: "m", UseNodes: true, Nodes: tt.nodes}
		if _, err := m.Output(); err == nil {
			t.Errorf("%s: Output() succeeded", tt.name)
		}
	}
}
