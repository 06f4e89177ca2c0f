package math

import (
	"math"
	"testing"
)

func TestTransformMulInverse(t *testing.T) {
	a := Transform{
		Translation: Vec3{1, 2, 3},
		Rotation:    QuatFromAxisAngle(Vec3{0, 1, 0}, 0.8),
		Scale:       Vec3{2, 2, 2},
	}
	b := NewTransform(Vec3{-4, 0.5, 1}, QuatFromAxisAngle(Vec3{1, 0, 0}, -0.3))

	rel := a.Relative(a.Mul(b))
	if rel.Translation.Distance(b.Translation) > 0.0001 {
		t.Errorf("Relative translation: got %v, want %v", rel.Translation, b.Translation)
	}
	if rel.Rotation.AngleTo(b.Rotation) > 0.0001 {
		t.Errorf("Relative rotation: got %+v, want %+v", rel.Rotation, b.Rotation)
	}
}

func TestTransformPosition(t *testing.T) {
	tr := NewTransform(Vec3{10, 0, 0}, QuatFromAxisAngle(Vec3{0, 1, 0}, float32(math.Pi/2)))
	got := tr.TransformPosition(Vec3{1, 0, 0})
	want := Vec3{10, 0, -1}
	if got.Distance(want) > 0.0001 {
		t.Errorf("TransformPosition: got %v, want %v", got, want)
	}
}

func TestTransformIdentity(t *testing.T) {
	id := TransformIdentity()
	p := Vec3{3, -1, 2}
	if got := id.TransformPosition(p); got.Distance(p) > 0.00001 {
		t.Errorf("identity moved point: %v", got)
	}
}
