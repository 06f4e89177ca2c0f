package sim

import (
	"github.com/Faultbox/midgard-rig/internal/config"
	"github.com/Faultbox/midgard-rig/internal/locomotor"
	"github.com/Faultbox/midgard-rig/internal/rig"
	"github.com/Faultbox/midgard-rig/internal/rigunit"
)

// Character is one simulated rig. All of its state is private to it, so
// distinct characters can step in parallel.
type Character struct {
	ID    int
	Rig   *rig.Hierarchy
	Route *Route

	Locomotion *rigunit.LocomotorUnit
	// Face is optional; nil skips rig logic evaluation.
	Face *rigunit.RigLogicUnit
	// Clip drives the face curves and driver bones when set.
	Clip *rig.Clip

	time  float32
	steps int
}

// Step advances the character by dt: route, locomotion, then the face.
func (c *Character) Step(dt float32, settings config.LocomotorConfig, ground locomotor.GroundProbe) {
	goal := c.Route.Update(dt, ground)

	c.Locomotion.Execute(c.Rig, locomotor.InputSettings{
		DeltaTime:     dt,
		RootGoalWorld: goal,
		Movement:      settings.Movement,
		Step:          settings.Step,
		Pelvis:        settings.Pelvis,
		Ground:        ground,
	})
	for _, f := range c.Locomotion.Locomotor().Feet() {
		if f.Landing {
			c.steps++
		}
	}

	if c.Clip != nil {
		c.Clip.Apply(c.Rig, c.time)
	}
	if c.Face != nil {
		c.Face.Execute(c.Rig)
	}
	if dt > 0 {
		c.time += dt
	}
}

// Steps returns the number of foot landings so far.
func (c *Character) Steps() int { return c.steps }

// Time returns the simulated time in seconds.
func (c *Character) Time() float32 { return c.time }

// Airborne returns the number of feet currently in the air.
func (c *Character) Airborne() int {
	loco := c.Locomotion.Locomotor()
	if loco == nil {
		return 0
	}
	n := 0
	for _, f := range loco.Feet() {
		if f.State == locomotor.Airborne {
			n++
		}
	}
	return n
}
