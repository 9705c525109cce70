// Package attitude implements the direction cosine matrix used to carry the
// simulated vehicle's orientation. Rows a, b, c map body-frame vectors into
// the NED earth frame; Euler angles follow the aerospace 3-2-1 convention.
package attitude

import (
	"math"

	"github.com/sailsitl/sailsim/pkg/core"
)

// Matrix3 is a 3x3 rotation matrix stored by rows.
type Matrix3 struct {
	A, B, C core.Vector3
}

// Identity returns the identity rotation.
func Identity() Matrix3 {
	return Matrix3{
		A: core.Vector3{X: 1},
		B: core.Vector3{Y: 1},
		C: core.Vector3{Z: 1},
	}
}

// FromEuler builds a rotation from roll, pitch and yaw in radians.
func FromEuler(roll, pitch, yaw float64) Matrix3 {
	cp, sp := math.Cos(pitch), math.Sin(pitch)
	cr, sr := math.Cos(roll), math.Sin(roll)
	cy, sy := math.Cos(yaw), math.Sin(yaw)

	return Matrix3{
		A: core.Vector3{
			X: cp * cy,
			Y: sr*sp*cy - cr*sy,
			Z: cr*sp*cy + sr*sy,
		},
		B: core.Vector3{
			X: cp * sy,
			Y: sr*sp*sy + cr*cy,
			Z: cr*sp*sy - sr*cy,
		},
		C: core.Vector3{
			X: -sp,
			Y: sr * cp,
			Z: cr * cp,
		},
	}
}

// ToEuler returns roll, pitch and yaw in radians.
func (m Matrix3) ToEuler() (roll, pitch, yaw float64) {
	pitch = -safeAsin(m.C.X)
	roll = math.Atan2(m.C.Y, m.C.Z)
	yaw = math.Atan2(m.B.X, m.A.X)
	return roll, pitch, yaw
}

// Euler is ToEuler packed into a core.Attitude.
func (m Matrix3) Euler() core.Attitude {
	r, p, y := m.ToEuler()
	return core.Attitude{Roll: r, Pitch: p, Yaw: y}
}

// MulVec returns m·v, mapping a body-frame vector into the earth frame.
func (m Matrix3) MulVec(v core.Vector3) core.Vector3 {
	return core.Vector3{
		X: m.A.Dot(v),
		Y: m.B.Dot(v),
		Z: m.C.Dot(v),
	}
}

// Transposed returns the inverse rotation.
func (m Matrix3) Transposed() Matrix3 {
	return Matrix3{
		A: core.Vector3{X: m.A.X, Y: m.B.X, Z: m.C.X},
		B: core.Vector3{X: m.A.Y, Y: m.B.Y, Z: m.C.Y},
		C: core.Vector3{X: m.A.Z, Y: m.B.Z, Z: m.C.Z},
	}
}

// Rotate applies a small body-frame rotation g (radians) to the matrix.
// The result drifts from orthonormal; call Normalize afterwards.
func (m *Matrix3) Rotate(g core.Vector3) {
	m.A = m.A.Add(rowDelta(m.A, g))
	m.B = m.B.Add(rowDelta(m.B, g))
	m.C = m.C.Add(rowDelta(m.C, g))
}

func rowDelta(r, g core.Vector3) core.Vector3 {
	return core.Vector3{
		X: r.Y*g.Z - r.Z*g.Y,
		Y: r.Z*g.X - r.X*g.Z,
		Z: r.X*g.Y - r.Y*g.X,
	}
}

// Normalize re-orthonormalizes the matrix, splitting the error between the
// first two rows and rebuilding the third from their cross product.
func (m *Matrix3) Normalize() {
	e := m.A.Dot(m.B)
	t0 := m.A.Sub(m.B.Scale(0.5 * e))
	t1 := m.B.Sub(m.A.Scale(0.5 * e))
	t2 := t0.Cross(t1)

	m.A = t0.Scale(1 / t0.Length())
	m.B = t1.Scale(1 / t1.Length())
	m.C = t2.Scale(1 / t2.Length())
}

func safeAsin(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	if v >= 1 {
		return math.Pi / 2
	}
	if v <= -1 {
		return -math.Pi / 2
	}
	return math.Asin(v)
}
