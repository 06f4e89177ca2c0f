package locomotor

import (
	"github.com/Faultbox/midgard-rig/pkg/math"
)

// FootState is the contact state of a foot.
type FootState int

const (
	Planted FootState = iota
	Airborne
)

// String returns the state name.
func (s FootState) String() string {
	switch s {
	case Planted:
		return "planted"
	case Airborne:
		return "airborne"
	default:
		return "unknown"
	}
}

// Foot is one simulated foot. Poses are world space unless noted.
type Foot struct {
	Settings FootSettings

	// SetIndex and IndexInSet locate the foot in its set.
	SetIndex   int
	IndexInSet int

	// InitialLocal is the foot's rest pose relative to the body.
	InitialLocal math.Transform

	// CurrentWorld is the final output pose: grounded, lifted, oriented.
	CurrentWorld math.Transform
	// GroundWorld is the flat projection of the foot onto the ground.
	GroundWorld math.Transform
	// TargetCurrent is the flat pose along the step path this tick.
	TargetCurrent  math.Transform
	TargetPrevious math.Transform
	// TargetFinal is where the current or next step lands.
	TargetFinal math.Transform
	// PlantedWorld is the flat pose the foot last stood on.
	PlantedWorld math.Transform

	State        FootState
	Phase        float32
	AirAlpha     float32
	LiftPhase    float32
	Lift         float32
	HeelPeel     float32
	GroundNormal math.Vec3

	// Landing is set on the tick the foot touches down.
	Landing bool
}

// FootSet is a group of feet sharing a stride, evenly spaced in phase.
type FootSet struct {
	PhaseOffset float32
	Feet        []*Foot
}

// collisionCenter returns the foot's collision centre on the step path.
func (f *Foot) collisionCenter() math.Vec3 {
	return f.TargetCurrent.TransformPosition(f.Settings.LocalOffset)
}

// needsStep reports whether the planted pose is far enough from the
// final target to warrant a step.
func (f *Foot) needsStep(step StepSettings) bool {
	dist := f.PlantedWorld.Translation.Flat().Distance(f.TargetFinal.Translation.Flat())
	if dist > step.MinStepDistance {
		return true
	}
	angle := f.PlantedWorld.Rotation.AngleTo(f.TargetFinal.Rotation)
	return angle > math.DegToRad(step.MinStepAngle)
}

// isCollidable reports whether the foot takes part in foot collision.
func (f *Foot) isCollidable() bool {
	return f.State == Airborne || f.Landing
}
