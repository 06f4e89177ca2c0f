package math

// Mat4 is a 4x4 affine matrix in column-major order, the layout bone
// palettes are exported in. Element (row r, column c) is m[c*4+r].
type Mat4 [16]float32

// Mat4Identity returns the identity matrix.
func Mat4Identity() Mat4 {
	return Mat4{0: 1, 5: 1, 10: 1, 15: 1}
}

// Mat4Translation returns a matrix translating by v.
func Mat4Translation(v Vec3) Mat4 {
	m := Mat4Identity()
	m[12], m[13], m[14] = v.X, v.Y, v.Z
	return m
}

// Mat4Scaling returns a matrix scaling each axis by v.
func Mat4Scaling(v Vec3) Mat4 {
	return Mat4{0: v.X, 5: v.Y, 10: v.Z, 15: 1}
}

// Mul returns m * other.
func (m Mat4) Mul(other Mat4) Mat4 {
	var out Mat4
	for c := 0; c < 4; c++ {
		for r := 0; r < 4; r++ {
			var sum float32
			for k := 0; k < 4; k++ {
				sum += m[k*4+r] * other[c*4+k]
			}
			out[c*4+r] = sum
		}
	}
	return out
}

// MulPoint transforms a point. The bottom row is assumed to be (0 0 0 1).
func (m Mat4) MulPoint(p Vec3) Vec3 {
	return m.MulVector(p).Add(m.Translation())
}

// MulVector transforms a direction, ignoring translation.
func (m Mat4) MulVector(v Vec3) Vec3 {
	return Vec3{
		m[0]*v.X + m[4]*v.Y + m[8]*v.Z,
		m[1]*v.X + m[5]*v.Y + m[9]*v.Z,
		m[2]*v.X + m[6]*v.Y + m[10]*v.Z,
	}
}

// Translation returns the translation column.
func (m Mat4) Translation() Vec3 {
	return Vec3{m[12], m[13], m[14]}
}

// InverseAffine inverts the upper 3x3 block and the translation.
// A singular block yields the identity.
func (m Mat4) InverseAffine() Mat4 {
	a, b, c := m[0], m[4], m[8]
	d, e, f := m[1], m[5], m[9]
	g, h, i := m[2], m[6], m[10]

	A := e*i - f*h
	B := f*g - d*i
	C := d*h - e*g
	det := a*A + b*B + c*C
	if det == 0 {
		return Mat4Identity()
	}
	inv := 1 / det

	var out Mat4
	out[0], out[4], out[8] = A*inv, (c*h-b*i)*inv, (b*f-c*e)*inv
	out[1], out[5], out[9] = B*inv, (a*i-c*g)*inv, (c*d-a*f)*inv
	out[2], out[6], out[10] = C*inv, (b*g-a*h)*inv, (a*e-b*d)*inv
	out[15] = 1

	t := out.MulVector(m.Translation()).Scale(-1)
	out[12], out[13], out[14] = t.X, t.Y, t.Z
	return out
}
