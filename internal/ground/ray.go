package ground

import (
	gomath "math"

	"github.com/Faultbox/midgard-rig/pkg/math"
)

// Ray is a half line with a normalized direction.
type Ray struct {
	Origin    math.Vec3
	Direction math.Vec3
}

// Down returns a ray pointing straight down from (x, y, z).
func Down(x, y, z float32) Ray {
	return Ray{Origin: math.Vec3{X: x, Y: y, Z: z}, Direction: math.Vec3{Y: -1}}
}

// At returns the point at distance t along the ray.
func (r Ray) At(t float32) math.Vec3 {
	return r.Origin.Add(r.Direction.Scale(t))
}

// AABB is an axis-aligned box.
type AABB struct {
	Min math.Vec3
	Max math.Vec3
}

// NewAABB creates a box from two corners in any order.
func NewAABB(a, b [3]float32) AABB {
	box := AABB{
		Min: math.Vec3{X: a[0], Y: a[1], Z: a[2]},
		Max: math.Vec3{X: b[0], Y: b[1], Z: b[2]},
	}
	if box.Min.X > box.Max.X {
		box.Min.X, box.Max.X = box.Max.X, box.Min.X
	}
	if box.Min.Y > box.Max.Y {
		box.Min.Y, box.Max.Y = box.Max.Y, box.Min.Y
	}
	if box.Min.Z > box.Max.Z {
		box.Min.Z, box.Max.Z = box.Max.Z, box.Min.Z
	}
	return box
}

// Intersect tests the ray against the box with the slab method and returns
// the entry distance, or the exit distance when the ray starts inside.
func (r Ray) Intersect(box AABB) (t float32, hit bool) {
	tmin := float32(-gomath.MaxFloat32)
	tmax := float32(gomath.MaxFloat32)

	origin := [3]float32{r.Origin.X, r.Origin.Y, r.Origin.Z}
	dir := [3]float32{r.Direction.X, r.Direction.Y, r.Direction.Z}
	lo := [3]float32{box.Min.X, box.Min.Y, box.Min.Z}
	hi := [3]float32{box.Max.X, box.Max.Y, box.Max.Z}

	for axis := 0; axis < 3; axis++ {
		if dir[axis] == 0 {
			if origin[axis] < lo[axis] || origin[axis] > hi[axis] {
				return 0, false
			}
			continue
		}
		t1 := (lo[axis] - origin[axis]) / dir[axis]
		t2 := (hi[axis] - origin[axis]) / dir[axis]
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		if t1 > tmin {
			tmin = t1
		}
		if t2 < tmax {
			tmax = t2
		}
	}

	if tmax < tmin || tmax < 0 {
		return 0, false
	}
	if tmin < 0 {
		return tmax, true
	}
	return tmin, true
}
