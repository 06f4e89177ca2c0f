// Package locomotor simulates procedural footsteps for a multi-legged
// character following a moving root goal.
//
// The simulation owns a global stride phase. Each foot set spreads its feet
// evenly over the stride; a foot lifts when its local phase enters the air
// window and its planted pose is stale, then lands on a target predicted
// from the body's motion. The pelvis follows the body and the feet with
// damped secondary motion.
package locomotor

import (
	gomath "math"

	"github.com/Faultbox/midgard-rig/pkg/math"
)

// Locomotor is the simulation state for one character. It is not safe for
// concurrent use; give each character its own instance.
type Locomotor struct {
	phase float32
	speed float32

	bodyCurrent math.Transform
	bodyTarget  math.Transform
	moveDir     math.Vec3

	pelvisCurrent math.Transform
	pelvisTarget  math.Transform
	// pelvisOffset is the pelvis relative to the root goal at reset.
	pelvisOffset math.Transform

	pelvisSpring math.SpringVec3
	bobSpring    math.Spring
	lead         math.Vec3
	feetShift    math.Vec3

	sets []FootSet
	feet []*Foot
}

// New returns a locomotor reset at the origin.
func New() *Locomotor {
	l := &Locomotor{}
	l.Reset(math.TransformIdentity(), math.TransformIdentity())
	return l
}

// Reset returns the simulation to rest. The body is placed on the goal and
// the pelvis at initialPelvisWorld; all foot sets are removed.
func (l *Locomotor) Reset(initialRootGoalWorld, initialPelvisWorld math.Transform) {
	l.phase = 0
	l.speed = 0
	l.bodyCurrent = initialRootGoalWorld
	l.bodyTarget = initialRootGoalWorld
	l.moveDir = math.Vec3{}
	l.pelvisCurrent = initialPelvisWorld
	l.pelvisTarget = initialPelvisWorld
	l.pelvisOffset = initialRootGoalWorld.Relative(initialPelvisWorld)
	l.pelvisSpring.Reset(initialPelvisWorld.Translation)
	l.bobSpring.Reset(0)
	l.lead = math.Vec3{}
	l.feetShift = math.Vec3{}
	l.sets = nil
	l.feet = nil
}

// AddFootSet adds an empty foot set and returns its index.
func (l *Locomotor) AddFootSet(phaseOffset float32) int {
	l.sets = append(l.sets, FootSet{PhaseOffset: math.Wrap01(phaseOffset)})
	return len(l.sets) - 1
}

// AddFootToSet adds a foot at its initial world pose. Out of range set
// indices are ignored.
func (l *Locomotor) AddFootToSet(setIndex int, initialWorldFootTransform math.Transform, settings FootSettings) {
	if setIndex < 0 || setIndex >= len(l.sets) {
		return
	}
	set := &l.sets[setIndex]
	foot := &Foot{
		Settings:       settings,
		SetIndex:       setIndex,
		IndexInSet:     len(set.Feet),
		InitialLocal:   l.bodyCurrent.Relative(initialWorldFootTransform),
		CurrentWorld:   initialWorldFootTransform,
		GroundWorld:    initialWorldFootTransform,
		TargetCurrent:  initialWorldFootTransform,
		TargetPrevious: initialWorldFootTransform,
		TargetFinal:    initialWorldFootTransform,
		PlantedWorld:   initialWorldFootTransform,
		State:          Planted,
		GroundNormal:   math.Up,
	}
	set.Feet = append(set.Feet, foot)
	l.feet = append(l.feet, foot)

	n := float32(len(set.Feet))
	for i, f := range set.Feet {
		f.Phase = math.Wrap01(l.phase + set.PhaseOffset + float32(i)/n)
	}
}

// RunSimulation advances the simulation by one tick. It does nothing until
// at least one foot has been added.
func (l *Locomotor) RunSimulation(in InputSettings) {
	if !l.HasFeet() {
		return
	}
	dt := in.DeltaTime
	if dt < 0 || !math.IsFinite(dt) {
		dt = 0
	}

	l.phase = math.Wrap01(l.phase + dt*in.Movement.phaseSpeed(l.speed))

	l.updateBody(in.RootGoalWorld, in.Movement, dt)
	l.updateFeet(in.Movement, in.Step)
	if in.Step.EnableFootCollision {
		l.collideFeet(in.Step)
	}
	for _, f := range l.feet {
		if f.Landing {
			f.PlantedWorld = f.TargetCurrent
		}
	}
	var ground GroundProbe
	if in.Step.EnableGroundCollision {
		ground = in.Ground
	}
	l.groundFeet(ground, in.Step)
	l.updatePelvis(in.Movement, in.Pelvis, dt)
}

// updateBody moves the body toward the goal at the simulated speed.
func (l *Locomotor) updateBody(goal math.Transform, mv MovementSettings, dt float32) {
	l.bodyTarget = goal

	toGoal := goal.Translation.Sub(l.bodyCurrent.Translation).Flat()
	dist := toGoal.Length()

	var desired float32
	if dist > mv.StopDistance {
		if mv.GoalCatchUpTime > 0 {
			desired = math.Clamp(dist/mv.GoalCatchUpTime, mv.SpeedMin, mv.SpeedMax)
		} else {
			desired = mv.SpeedMax
		}
	}
	if desired > l.speed {
		l.speed = min(desired, l.speed+mv.Acceleration*dt)
	} else {
		l.speed = max(desired, l.speed-mv.Deceleration*dt)
	}
	l.speed = math.Clamp(l.speed, 0, max(mv.SpeedMax, 0))

	if dist > 1e-6 {
		l.moveDir = toGoal.Scale(1 / dist)
		step := min(l.speed*dt, dist)
		l.bodyCurrent.Translation = l.bodyCurrent.Translation.Add(l.moveDir.Scale(step))
	}
	l.bodyCurrent.Translation.Y = goal.Translation.Y
	l.bodyCurrent.Rotation = math.DampQuat(l.bodyCurrent.Rotation, goal.Rotation, mv.RotationDampingHalfLife, dt)
	l.bodyCurrent.Scale = goal.Scale
}

// projectedBody predicts where the body will be ahead seconds from now,
// never past the goal.
func (l *Locomotor) projectedBody(ahead float32) math.Transform {
	toGoal := l.bodyTarget.Translation.Sub(l.bodyCurrent.Translation).Flat()
	reach := min(l.speed*max(ahead, 0), toGoal.Length())
	projected := l.bodyTarget
	projected.Translation = l.bodyCurrent.Translation.Add(l.moveDir.Scale(reach))
	projected.Translation.Y = l.bodyTarget.Translation.Y
	return projected
}

// updateFeet advances every foot's step state machine along its local phase.
func (l *Locomotor) updateFeet(mv MovementSettings, step StepSettings) {
	speedNorm := mv.speedNorm(l.speed)
	window := step.airWindow(speedNorm)
	phaseSpeed := mv.phaseSpeed(l.speed)

	for si := range l.sets {
		set := &l.sets[si]
		n := float32(len(set.Feet))
		for i, f := range set.Feet {
			p := math.Wrap01(l.phase + set.PhaseOffset + float32(i)/n)
			wrapped := p < f.Phase
			f.Phase = p
			f.Landing = false
			f.TargetPrevious = f.TargetCurrent

			var ahead float32
			if phaseSpeed > 0 {
				// Time until the middle of the next stance.
				ahead = (max(window-p, 0) + (1-window)/2) / phaseSpeed
			}
			f.TargetFinal = l.projectedBody(ahead).Mul(f.InitialLocal)

			switch f.State {
			case Planted:
				f.AirAlpha = 0
				f.Lift = 0
				f.HeelPeel = 0
				f.TargetCurrent = f.PlantedWorld
				if p < window && window-p > 1e-4 && f.needsStep(step) {
					f.State = Airborne
					f.LiftPhase = p
					f.PlantedWorld = f.TargetCurrent
					l.moveAirborne(f, p, window, step)
				}
			case Airborne:
				if wrapped || p >= window {
					f.State = Planted
					f.Landing = true
					f.AirAlpha = 0
					f.Lift = 0
					f.HeelPeel = 0
					f.TargetCurrent = f.TargetFinal
				} else {
					l.moveAirborne(f, p, window, step)
				}
			}
		}
	}
}

// moveAirborne places an airborne foot along its step arc.
func (l *Locomotor) moveAirborne(f *Foot, p, window float32, step StepSettings) {
	span := window - f.LiftPhase
	alpha := float32(1)
	if span > 0 {
		alpha = math.Clamp((p-f.LiftPhase)/span, 0, 1)
	}
	eased := math.EaseInOut(alpha, step.StepEaseIn, step.StepEaseOut)
	arc := float32(gomath.Sin(gomath.Pi * float64(alpha)))

	f.AirAlpha = alpha
	f.TargetCurrent = f.PlantedWorld.Lerp(f.TargetFinal, eased)
	f.Lift = step.StepHeight * arc
	f.HeelPeel = math.DegToRad(f.Settings.MaxHeelPeel) * arc
}

// Phase returns the global stride phase in [0,1).
func (l *Locomotor) Phase() float32 { return l.phase }

// Speed returns the current body speed.
func (l *Locomotor) Speed() float32 { return l.speed }

// HasFeet reports whether any foot has been added.
func (l *Locomotor) HasFeet() bool { return len(l.feet) > 0 }

// Feet returns all feet in the order they were added.
func (l *Locomotor) Feet() []*Foot { return l.feet }

// FootSets returns the foot sets.
func (l *Locomotor) FootSets() []FootSet { return l.sets }

// BodyCurrent returns the simulated body transform.
func (l *Locomotor) BodyCurrent() math.Transform { return l.bodyCurrent }

// BodyTarget returns the root goal from the last tick.
func (l *Locomotor) BodyTarget() math.Transform { return l.bodyTarget }

// PelvisCurrent returns the simulated pelvis transform.
func (l *Locomotor) PelvisCurrent() math.Transform { return l.pelvisCurrent }

// PelvisTarget returns the pose the pelvis is being pulled toward.
func (l *Locomotor) PelvisTarget() math.Transform { return l.pelvisTarget }
