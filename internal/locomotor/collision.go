package locomotor

import (
	gomath "math"

	"github.com/Faultbox/midgard-rig/pkg/math"
)

const (
	// maxFootCollisionPasses caps the relaxation over all pairs. Clustered
	// feet need a pass count that grows with the number of feet.
	maxFootCollisionPasses = 256
	// footCollisionSlop is added to every separation so a resolved pair
	// stays resolved when later pairs move one of its feet.
	footCollisionSlop = 1e-4
)

// collideFeet pushes overlapping airborne and landing feet apart on the
// ground plane. Planted feet neither move nor block.
func (l *Locomotor) collideFeet(step StepSettings) {
	var active []*Foot
	for _, f := range l.feet {
		if f.isCollidable() {
			active = append(active, f)
		}
	}
	if len(active) < 2 {
		return
	}

	scale := max(step.FootCollisionGlobalScale, 0)
	right := l.bodyCurrent.Rotation.Rotate(math.Vec3{X: 1}).Flat().Normalize()
	if right.LengthSquared() == 0 {
		right = math.Vec3{X: 1}
	}

	for pass := 0; pass < maxFootCollisionPasses; pass++ {
		moved := false
		for i := 0; i < len(active); i++ {
			for j := i + 1; j < len(active); j++ {
				if separateFeet(active[i], active[j], scale, right) {
					moved = true
				}
			}
		}
		if !moved {
			break
		}
	}
}

// separateFeet resolves overlap between a and b by moving each half the
// penetration depth plus slop. Reports whether anything moved.
func separateFeet(a, b *Foot, scale float32, right math.Vec3) bool {
	minDist := (a.Settings.CollisionRadius + b.Settings.CollisionRadius) * scale
	if minDist <= 0 {
		return false
	}
	delta := b.collisionCenter().Sub(a.collisionCenter()).Flat()
	dist := delta.Length()
	if dist >= minDist {
		return false
	}

	axis := right
	if dist > 1e-6 {
		axis = delta.Scale(1 / dist)
	}
	push := axis.Scale((minDist + footCollisionSlop - dist) / 2)
	a.TargetCurrent.Translation = a.TargetCurrent.Translation.Sub(push)
	b.TargetCurrent.Translation = b.TargetCurrent.Translation.Add(push)
	return true
}

// groundFeet builds each foot's output pose from its step path pose. With
// a probe, heights follow the ground and the foot tilts toward the surface
// normal; without one the path height is kept and the ground is flat.
func (l *Locomotor) groundFeet(probe GroundProbe, step StepSettings) {
	for _, f := range l.feet {
		flat := f.TargetCurrent
		groundY := flat.Translation.Y - f.InitialLocal.Translation.Y
		normal := math.Up

		if probe != nil {
			at := f.collisionCenter()
			if hit, ok := probe.Probe(at.X, at.Z); ok {
				groundY = hit.Height
				if n := hit.Normal.Normalize(); n.LengthSquared() > 0 {
					normal = n
				}
				flat.Translation.Y = groundY + f.InitialLocal.Translation.Y
			}
		}
		f.GroundNormal = normal

		f.GroundWorld = flat
		f.GroundWorld.Translation.Y = groundY

		rotation := flat.Rotation
		if normal != math.Up {
			pitch, roll := surfaceTilt(flat.Rotation, normal)
			tilt := math.QuatFromEulerXYZ(pitch*step.OrientFootToGroundPitch, 0, roll*step.OrientFootToGroundRoll)
			rotation = rotation.Mul(tilt)
		}
		if f.HeelPeel != 0 {
			rotation = rotation.Mul(math.QuatFromAxisAngle(math.Vec3{X: 1}, f.HeelPeel))
		}

		f.CurrentWorld = math.Transform{
			Translation: flat.Translation.Add(math.Vec3{Y: f.Lift}),
			Rotation:    rotation.Normalize(),
			Scale:       flat.Scale,
		}
	}
}

// surfaceTilt returns the pitch (about local X) and roll (about local Z)
// that align the local up axis of frame with normal.
func surfaceTilt(frame math.Quat, normal math.Vec3) (pitch, roll float32) {
	nl := frame.Inverse().Rotate(normal)
	pitch = float32(gomath.Atan2(float64(nl.Z), float64(nl.Y)))
	roll = float32(gomath.Atan2(float64(-nl.X), float64(nl.Y)))
	return pitch, roll
}
