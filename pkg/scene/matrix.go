package scene

import "github.com/go-gl/mathgl/mgl32"

// Vec3 is a point, direction or RGB color.
type Vec3 [3]float32

// Vec4 is an RGBA color.
type Vec4 [4]float32

// Matrix is a 4x4 transform stored row-major, translation in the last
// column. mgl32 stores column-major, so conversions transpose.
type Matrix [16]float32

// Identity returns the identity transform.
func Identity() Matrix {
	return FromMat4(mgl32.Ident4())
}

// FromMat4 converts an mgl32 matrix.
func FromMat4(a mgl32.Mat4) Matrix {
	return Matrix(a.Transpose())
}

// Mat4 returns m as an mgl32 matrix.
func (m Matrix) Mat4() mgl32.Mat4 {
	return mgl32.Mat4(m).Transpose()
}

// IsZero reports whether every element is zero, i.e. the transform was
// never set.
func (m Matrix) IsZero() bool {
	return m == Matrix{}
}

// Mul returns m × n.
func (m Matrix) Mul(n Matrix) Matrix {
	return FromMat4(m.Mat4().Mul4(n.Mat4()))
}

// TransformPoint applies m to a point.
func (m Matrix) TransformPoint(p Vec3) Vec3 {
	v := m.Mat4().Mul4x1(mgl32.Vec4{p[0], p[1], p[2], 1})
	return Vec3{v[0], v[1], v[2]}
}

// TransformVector applies m to a direction, ignoring translation.
func (m Matrix) TransformVector(d Vec3) Vec3 {
	v := m.Mat4().Mul4x1(mgl32.Vec4{d[0], d[1], d[2], 0})
	return Vec3{v[0], v[1], v[2]}
}

// Translation returns the last column.
func (m Matrix) Translation() Vec3 {
	return Vec3{m[3], m[7], m[11]}
}

// Slice returns the 16 values in row-major order.
func (m Matrix) Slice() []float32 {
	s := make([]float32, 16)
	copy(s, m[:])
	return s
}

// orIdentity replaces an unset transform with the identity.
func (m Matrix) orIdentity() Matrix {
	if m.IsZero() {
		return Identity()
	}
	return m
}
