package locomotor

import (
	gomath "math"

	"github.com/Faultbox/midgard-rig/pkg/math"
)

// updatePelvis moves the pelvis toward its rest pose on the body, shifted
// toward the feet, leaning into the motion and bobbing with each step.
func (l *Locomotor) updatePelvis(mv MovementSettings, ps PelvisSettings, dt float32) {
	base := l.bodyCurrent.Mul(l.pelvisOffset)

	var center, restCenter, normalSum math.Vec3
	var arc float32
	for _, f := range l.feet {
		center = center.Add(f.TargetCurrent.Translation)
		restCenter = restCenter.Add(l.bodyCurrent.TransformPosition(f.InitialLocal.Translation))
		normalSum = normalSum.Add(f.GroundNormal)
		if f.State == Airborne {
			arc = max(arc, float32(gomath.Sin(gomath.Pi*float64(f.AirAlpha))))
		}
	}
	inv := 1 / float32(len(l.feet))
	shift := center.Sub(restCenter).Scale(inv)
	l.feetShift = math.DampVec3(l.feetShift, shift, ps.FeetDampingHalfLife, dt)

	leadTarget := l.moveDir.Scale(mv.speedNorm(l.speed) * ps.LeadAmount)
	l.lead = math.DampVec3(l.lead, leadTarget, ps.LeadDampingHalfLife, dt)

	bob := l.bobSpring.Update(-ps.BobOffset*arc, ps.BobStiffness, ps.BobDamping, dt)

	target := base.Translation.
		Add(l.feetShift.Scale(ps.BlendToFeet)).
		Add(l.lead).
		Add(math.Vec3{Y: bob})

	rotation := base.Rotation
	if normal := normalSum.Normalize(); normal.LengthSquared() > 0 && normal != math.Up {
		pitch, roll := surfaceTilt(l.bodyCurrent.Rotation, normal)
		tilt := math.QuatFromEulerXYZ(pitch*ps.OrientToGroundPitch, 0, roll*ps.OrientToGroundRoll)
		// Tilt about the body's axes, then apply the rest rotation.
		worldTilt := l.bodyCurrent.Rotation.Mul(tilt).Mul(l.bodyCurrent.Rotation.Inverse())
		rotation = worldTilt.Mul(base.Rotation).Normalize()
	}

	l.pelvisTarget = math.Transform{Translation: target, Rotation: rotation, Scale: base.Scale}

	l.pelvisCurrent.Translation = l.pelvisSpring.Update(target, ps.PositionStiffness, 1, dt)
	l.pelvisCurrent.Rotation = math.DampQuat(l.pelvisCurrent.Rotation, rotation, ps.RotationDampingHalfLife, dt)
	l.pelvisCurrent.Scale = base.Scale
}
