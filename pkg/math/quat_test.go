package math

import (
	"math"
	"testing"
)

func quatNear(a, b Quat, tolerance float32) bool {
	return a.AngleTo(b) <= tolerance
}

func TestQuatNormalize(t *testing.T) {
	tests := []struct {
		name string
		q    Quat
		want Quat
	}{
		{"unit stays", QuatIdentity(), QuatIdentity()},
		{"scaled", Quat{W: 3}, QuatIdentity()},
		{"degenerate", Quat{}, QuatIdentity()},
		{"mixed", Quat{X: 1, Y: 2, Z: 3, W: 4}, Quat{X: 0.182574, Y: 0.365148, Z: 0.547723, W: 0.730297}},
	}
	for _, tt := range tests {
		got := tt.q.Normalize()
		if abs(got.X-tt.want.X)+abs(got.Y-tt.want.Y)+abs(got.Z-tt.want.Z)+abs(got.W-tt.want.W) > 1e-5 {
			t.Errorf("%s: Normalize = %+v, want %+v", tt.name, got, tt.want)
		}
	}
}

func TestQuatInterpolation(t *testing.T) {
	from := QuatIdentity()
	to := QuatFromAxisAngle(Vec3{Y: 1}, math.Pi/2)

	for _, tc := range []struct {
		name string
		fn   func(Quat, float32) Quat
	}{
		{"slerp", from.Slerp},
		{"lerp", from.Lerp},
	} {
		if got := tc.fn(to, 0); !quatNear(got, from, 1e-4) {
			t.Errorf("%s(0) = %+v, want start", tc.name, got)
		}
		if got := tc.fn(to, 1); !quatNear(got, to, 1e-4) {
			t.Errorf("%s(1) = %+v, want end", tc.name, got)
		}
		// The halfway point of a symmetric blend is 45 degrees.
		half := QuatFromAxisAngle(Vec3{Y: 1}, math.Pi/4)
		if got := tc.fn(to, 0.5); !quatNear(got, half, 1e-3) {
			t.Errorf("%s(0.5) = %+v, want %+v", tc.name, got, half)
		}
	}

	// A negated target is the same rotation; both blends take the short arc.
	negated := to.scale(-1)
	if got := from.Slerp(negated, 0.5); got.AngleTo(from) > math.Pi/4+1e-3 {
		t.Errorf("slerp took the long arc: %+v", got)
	}
	if got := from.Lerp(negated, 0.5); got.AngleTo(from) > math.Pi/4+1e-3 {
		t.Errorf("lerp took the long arc: %+v", got)
	}
}

func TestQuatToMat4(t *testing.T) {
	if m := QuatIdentity().ToMat4(); !matNear(m, Mat4Identity()) {
		t.Errorf("identity quat matrix = %v", m)
	}

	q := QuatFromEulerXYZ(0.3, -1.1, 0.8)
	m := q.ToMat4()
	for _, v := range []Vec3{{X: 1}, {Y: 1}, {Z: 1}, {X: 0.5, Y: -2, Z: 3}} {
		if got, want := m.MulVector(v), q.Rotate(v); got.Distance(want) > 1e-4 {
			t.Errorf("matrix rotates %v to %v, quat to %v", v, got, want)
		}
	}
}

func TestQuatFromAxisAngle(t *testing.T) {
	q := QuatFromAxisAngle(Vec3{Y: 1}, math.Pi/2)
	want := Quat{Y: float32(math.Sin(math.Pi / 4)), W: float32(math.Cos(math.Pi / 4))}
	if abs(q.Y-want.Y) > 1e-6 || abs(q.W-want.W) > 1e-6 || q.X != 0 || q.Z != 0 {
		t.Errorf("QuatFromAxisAngle = %+v, want %+v", q, want)
	}
}

func TestQuatRotate(t *testing.T) {
	q := QuatFromAxisAngle(Vec3{X: 0, Y: 1, Z: 0}, float32(math.Pi/2))
	got := q.Rotate(Vec3{X: 1})
	want := Vec3{Z: -1}
	if got.Distance(want) > 0.0001 {
		t.Errorf("Rotate: got %v, want %v", got, want)
	}
}

func TestQuatInverse(t *testing.T) {
	q := QuatFromAxisAngle(Vec3{X: 1, Y: 1, Z: 0}.Normalize(), 0.7)
	r := q.Inverse().Mul(q)
	if math.Abs(float64(r.W-1)) > 0.0001 || math.Abs(float64(r.X)) > 0.0001 {
		t.Errorf("inverse(q)*q should be identity, got %+v", r)
	}
}

func TestEulerRoundTrip(t *testing.T) {
	tests := []Vec3{
		{X: 0.3, Y: -0.2, Z: 0.1},
		{X: -1.2, Y: 0.5, Z: 2.0},
		{X: 0, Y: 0, Z: 0},
	}
	for _, e := range tests {
		got := QuatFromEulerXYZ(e.X, e.Y, e.Z).EulerXYZ()
		if got.Distance(e) > 0.0005 {
			t.Errorf("euler round trip: got %v, want %v", got, e)
		}
	}
}

func TestAngleTo(t *testing.T) {
	a := QuatIdentity()
	b := QuatFromAxisAngle(Vec3{Z: 1}, 0.5)
	if got := a.AngleTo(b); math.Abs(float64(got-0.5)) > 0.001 {
		t.Errorf("AngleTo: got %v, want 0.5", got)
	}
}
