/*
DESCRIPTION
  transform.go provides the small affine-transform math (Vec3, Mat4,
  rotation-order-aware Euler composition) used to evaluate the scene
  graph's transform chains. It is hand-rolled rather than built on
  gonum/mat: these are small, fixed-size 4x4 transforms evaluated in a
  tight per-marker-per-frame loop, the same reason the teacher's
  codec/h264dec package hand-rolls its bit/block math instead of
  reaching for a general-purpose numeric library.

AUTHORS
  The mmsolver Authors.
*/

package scenegraph

import "math"

// Vec3 is a 3D vector/point.
type Vec3 struct{ X, Y, Z float64 }

// RotateOrder is the Euler rotation order used to compose a
// TransformNode's rotation attributes into a matrix.
type RotateOrder uint8

// Supported rotation orders.
const (
	RotateXYZ RotateOrder = iota
	RotateYZX
	RotateZXY
	RotateXZY
	RotateYXZ
	RotateZYX
)

// Mat4 is a 4x4 row-major matrix.
type Mat4 [16]float64

// Identity4 returns the 4x4 identity matrix.
func Identity4() Mat4 {
	return Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// Mul returns a*b.
func (a Mat4) Mul(b Mat4) Mat4 {
	var out Mat4
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			var sum float64
			for k := 0; k < 4; k++ {
				sum += a[r*4+k] * b[k*4+c]
			}
			out[r*4+c] = sum
		}
	}
	return out
}

// MulPoint transforms a point (w=1) by m.
func (m Mat4) MulPoint(v Vec3) Vec3 {
	x := m[0]*v.X + m[1]*v.Y + m[2]*v.Z + m[3]
	y := m[4]*v.X + m[5]*v.Y + m[6]*v.Z + m[7]
	z := m[8]*v.X + m[9]*v.Y + m[10]*v.Z + m[11]
	w := m[12]*v.X + m[13]*v.Y + m[14]*v.Z + m[15]
	if w != 0 && w != 1 {
		x, y, z = x/w, y/w, z/w
	}
	return Vec3{x, y, z}
}

// Translation returns a translation matrix.
func Translation(t Vec3) Mat4 {
	m := Identity4()
	m[3], m[7], m[11] = t.X, t.Y, t.Z
	return m
}

// Scaling returns a scale matrix.
func Scaling(s Vec3) Mat4 {
	m := Identity4()
	m[0], m[5], m[10] = s.X, s.Y, s.Z
	return m
}

func rotX(rad float64) Mat4 {
	c, s := math.Cos(rad), math.Sin(rad)
	return Mat4{
		1, 0, 0, 0,
		0, c, -s, 0,
		0, s, c, 0,
		0, 0, 0, 1,
	}
}

func rotY(rad float64) Mat4 {
	c, s := math.Cos(rad), math.Sin(rad)
	return Mat4{
		c, 0, s, 0,
		0, 1, 0, 0,
		-s, 0, c, 0,
		0, 0, 0, 1,
	}
}

func rotZ(rad float64) Mat4 {
	c, s := math.Cos(rad), math.Sin(rad)
	return Mat4{
		c, -s, 0, 0,
		s, c, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// Rotation composes Euler angles (in degrees) in the given order into
// a single rotation matrix. mmSolver, like Maya, composes rotations
// so that the first axis in the order name is applied first (it sits
// innermost, rightmost, in the matrix product).
func Rotation(rx, ry, rz float64, order RotateOrder) Mat4 {
	x := rotX(rx * math.Pi / 180)
	y := rotY(ry * math.Pi / 180)
	z := rotZ(rz * math.Pi / 180)
	switch order {
	case RotateXYZ:
		return z.Mul(y).Mul(x)
	case RotateYZX:
		return x.Mul(z).Mul(y)
	case RotateZXY:
		return y.Mul(x).Mul(z)
	case RotateXZY:
		return y.Mul(z).Mul(x)
	case RotateYXZ:
		return z.Mul(x).Mul(y)
	case RotateZYX:
		return x.Mul(y).Mul(z)
	default:
		return z.Mul(y).Mul(x)
	}
}

// Compose builds a TRS matrix: translate(t) * rotate(r, order) *
// scale(s).
func Compose(t Vec3, r Vec3, order RotateOrder, s Vec3) Mat4 {
	return Translation(t).Mul(Rotation(r.X, r.Y, r.Z, order)).Mul(Scaling(s))
}

// Invert returns the inverse of an affine (rotation+translation,
// optionally scaled) transform matrix via Gauss-Jordan elimination.
// Camera world matrices are always invertible in a valid scene; a
// singular input returns the identity and ok=false.
func (m Mat4) Invert() (Mat4, bool) {
	var a [4][8]float64
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			a[r][c] = m[r*4+c]
		}
		a[r][4+r] = 1
	}
	for col := 0; col < 4; col++ {
		piv := col
		best := math.Abs(a[col][col])
		for r := col + 1; r < 4; r++ {
			if v := math.Abs(a[r][col]); v > best {
				piv, best = r, v
			}
		}
		if best < 1e-15 {
			return Identity4(), false
		}
		a[col], a[piv] = a[piv], a[col]
		pv := a[col][col]
		for c := 0; c < 8; c++ {
			a[col][c] /= pv
		}
		for r := 0; r < 4; r++ {
			if r == col {
				continue
			}
			f := a[r][col]
			if f == 0 {
				continue
			}
			for c := 0; c < 8; c++ {
				a[r][c] -= f * a[col][c]
			}
		}
	}
	var out Mat4
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			out[r*4+c] = a[r][4+c]
		}
	}
	return out, true
}
