package math

// Transform is a translation, rotation and scale triple.
// Applied to a point in the order scale, rotate, translate.
type Transform struct {
	Translation Vec3
	Rotation    Quat
	Scale       Vec3
}

// TransformIdentity returns the identity transform.
func TransformIdentity() Transform {
	return Transform{Rotation: QuatIdentity(), Scale: Vec3{1, 1, 1}}
}

// NewTransform builds a unit-scale transform.
func NewTransform(translation Vec3, rotation Quat) Transform {
	return Transform{Translation: translation, Rotation: rotation, Scale: Vec3{1, 1, 1}}
}

// Mul returns t * child, i.e. child expressed in t's space brought into
// t's parent space.
func (t Transform) Mul(child Transform) Transform {
	return Transform{
		Translation: t.TransformPosition(child.Translation),
		Rotation:    t.Rotation.Mul(child.Rotation).Normalize(),
		Scale:       t.Scale.Mul(child.Scale),
	}
}

// Inverse returns the inverse transform. Exact for uniform scale.
func (t Transform) Inverse() Transform {
	invScale := Vec3{safeInv(t.Scale.X), safeInv(t.Scale.Y), safeInv(t.Scale.Z)}
	invRot := t.Rotation.Inverse()
	return Transform{
		Translation: invRot.Rotate(t.Translation.Scale(-1)).Mul(invScale),
		Rotation:    invRot,
		Scale:       invScale,
	}
}

// Relative returns other expressed in t's space: inverse(t) * other.
func (t Transform) Relative(other Transform) Transform {
	return t.Inverse().Mul(other)
}

// TransformPosition applies the full transform to a point.
func (t Transform) TransformPosition(p Vec3) Vec3 {
	return t.Rotation.Rotate(p.Mul(t.Scale)).Add(t.Translation)
}

// TransformVector applies rotation and scale to a direction.
func (t Transform) TransformVector(v Vec3) Vec3 {
	return t.Rotation.Rotate(v.Mul(t.Scale))
}

// Lerp blends translation and scale linearly and rotation spherically.
func (t Transform) Lerp(other Transform, alpha float32) Transform {
	return Transform{
		Translation: t.Translation.Lerp(other.Translation, alpha),
		Rotation:    t.Rotation.Slerp(other.Rotation, alpha),
		Scale:       t.Scale.Lerp(other.Scale, alpha),
	}
}

// ToMat4 converts the transform into a column-major matrix.
func (t Transform) ToMat4() Mat4 {
	return Mat4Translation(t.Translation).
		Mul(t.Rotation.ToMat4()).
		Mul(Mat4Scaling(t.Scale))
}

func safeInv(v float32) float32 {
	if v == 0 {
		return 0
	}
	return 1 / v
}
