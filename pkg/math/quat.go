package math

import "math"

// Quat is a rotation quaternion. W is the scalar part.
type Quat struct {
	X, Y, Z, W float32
}

// QuatIdentity returns the identity rotation.
func QuatIdentity() Quat {
	return Quat{W: 1}
}

// QuatFromAxisAngle rotates angle radians about a unit axis.
func QuatFromAxisAngle(axis Vec3, angle float32) Quat {
	sin, cos := math.Sincos(float64(angle) / 2)
	v := axis.Scale(float32(sin))
	return Quat{X: v.X, Y: v.Y, Z: v.Z, W: float32(cos)}
}

func (q Quat) scale(s float32) Quat {
	return Quat{X: q.X * s, Y: q.Y * s, Z: q.Z * s, W: q.W * s}
}

func (q Quat) add(other Quat) Quat {
	return Quat{X: q.X + other.X, Y: q.Y + other.Y, Z: q.Z + other.Z, W: q.W + other.W}
}

// Normalize returns q scaled to unit length. Near-zero quaternions become
// the identity.
func (q Quat) Normalize() Quat {
	length := float32(math.Sqrt(float64(q.Dot(q))))
	if length < 0.0001 {
		return QuatIdentity()
	}
	return q.scale(1 / length)
}

// Dot returns the four-component dot product.
func (q Quat) Dot(other Quat) float32 {
	return q.X*other.X + q.Y*other.Y + q.Z*other.Z + q.W*other.W
}

// Slerp interpolates along the shorter arc from q (t=0) to other (t=1).
func (q Quat) Slerp(other Quat, t float32) Quat {
	cos := q.Dot(other)
	if cos < 0 {
		other, cos = other.scale(-1), -cos
	}
	// Nearly parallel: the arc is a line.
	if cos > 0.9995 {
		return q.scale(1 - t).add(other.scale(t)).Normalize()
	}

	theta := math.Acos(float64(cos))
	sin := math.Sin(theta)
	w0 := float32(math.Sin((1-float64(t))*theta) / sin)
	w1 := float32(math.Sin(float64(t)*theta) / sin)
	return q.scale(w0).add(other.scale(w1))
}

// Lerp blends the components along the shorter arc and renormalizes.
func (q Quat) Lerp(other Quat, t float32) Quat {
	if q.Dot(other) < 0 {
		other = other.scale(-1)
	}
	return q.scale(1 - t).add(other.scale(t)).Normalize()
}

// Mul returns q * other: other is applied first.
func (q Quat) Mul(other Quat) Quat {
	return Quat{
		X: q.W*other.X + q.X*other.W + q.Y*other.Z - q.Z*other.Y,
		Y: q.W*other.Y - q.X*other.Z + q.Y*other.W + q.Z*other.X,
		Z: q.W*other.Z + q.X*other.Y - q.Y*other.X + q.Z*other.W,
		W: q.W*other.W - q.X*other.X - q.Y*other.Y - q.Z*other.Z,
	}
}

// ToMat4 returns the rotation matrix of q. Its columns are the rotated
// basis vectors.
func (q Quat) ToMat4() Mat4 {
	q = q.Normalize()
	x := q.Rotate(Vec3{X: 1})
	y := q.Rotate(Vec3{Y: 1})
	z := q.Rotate(Vec3{Z: 1})
	return Mat4{
		x.X, x.Y, x.Z, 0,
		y.X, y.Y, y.Z, 0,
		z.X, z.Y, z.Z, 0,
		0, 0, 0, 1,
	}
}

// Conjugate returns the conjugate quaternion.
func (q Quat) Conjugate() Quat {
	return Quat{X: -q.X, Y: -q.Y, Z: -q.Z, W: q.W}
}

// Inverse returns the multiplicative inverse.
// For unit quaternions this equals the conjugate.
func (q Quat) Inverse() Quat {
	lenSq := q.Dot(q)
	if lenSq < 1e-12 {
		return QuatIdentity()
	}
	inv := 1 / lenSq
	return Quat{X: -q.X * inv, Y: -q.Y * inv, Z: -q.Z * inv, W: q.W * inv}
}

// Rotate rotates v by q. q is assumed to be normalized.
func (q Quat) Rotate(v Vec3) Vec3 {
	u := Vec3{q.X, q.Y, q.Z}
	t := u.Cross(v).Scale(2)
	return v.Add(t.Scale(q.W)).Add(u.Cross(t))
}

// AngleTo returns the smallest angle in radians between q and other.
func (q Quat) AngleTo(other Quat) float32 {
	d := float64(q.Normalize().Dot(other.Normalize()))
	d = math.Abs(d)
	if d > 1 {
		d = 1
	}
	return float32(2 * math.Acos(d))
}

// QuatFromEulerXYZ builds a rotation that applies x, then y, then z
// (radians, extrinsic axes).
func QuatFromEulerXYZ(x, y, z float32) Quat {
	qx := QuatFromAxisAngle(Vec3{1, 0, 0}, x)
	qy := QuatFromAxisAngle(Vec3{0, 1, 0}, y)
	qz := QuatFromAxisAngle(Vec3{0, 0, 1}, z)
	return qz.Mul(qy).Mul(qx)
}

// EulerXYZ is the inverse of QuatFromEulerXYZ.
func (q Quat) EulerXYZ() Vec3 {
	q = q.Normalize()
	r10 := 2 * (q.X*q.Y + q.Z*q.W)
	r00 := 1 - 2*(q.Y*q.Y+q.Z*q.Z)
	r20 := 2 * (q.X*q.Z - q.Y*q.W)
	r21 := 2 * (q.Y*q.Z + q.X*q.W)
	r22 := 1 - 2*(q.X*q.X+q.Y*q.Y)

	sy := -r20
	if sy > 1 {
		sy = 1
	} else if sy < -1 {
		sy = -1
	}
	return Vec3{
		X: float32(math.Atan2(float64(r21), float64(r22))),
		Y: float32(math.Asin(float64(sy))),
		Z: float32(math.Atan2(float64(r10), float64(r00))),
	}
}
