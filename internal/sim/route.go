// Package sim steps a crowd of rigged characters walking routes over a
// ground scene, one locomotor and one rig logic evaluator per character.
package sim

import (
	gomath "math"

	"github.com/Faultbox/midgard-rig/internal/locomotor"
	"github.com/Faultbox/midgard-rig/pkg/math"
)

// ArrivalThreshold is the distance at which a waypoint counts as reached.
const ArrivalThreshold = 0.05

// Route moves a root goal through waypoints at a constant speed. The goal
// faces its direction of travel and rides the ground height when a probe
// is given.
type Route struct {
	Waypoints []math.Vec3
	Speed     float32
	Loop      bool

	index int
	goal  math.Transform
	done  bool
}

// NewRoute starts a route at start.
func NewRoute(start math.Transform, waypoints []math.Vec3, speed float32, loop bool) *Route {
	r := &Route{Waypoints: waypoints, Speed: speed, Loop: loop, goal: start}
	r.done = len(waypoints) == 0
	if !r.done {
		r.face(waypoints[0].Sub(start.Translation))
	}
	return r
}

// Goal returns the current root goal.
func (r *Route) Goal() math.Transform { return r.goal }

// Done reports whether a non-looping route reached its last waypoint.
func (r *Route) Done() bool { return r.done }

// Index returns the waypoint the goal is heading to.
func (r *Route) Index() int { return r.index }

// Update advances the goal by Speed*dt along the route and returns it.
// Distance left over at a waypoint carries on to the next one.
func (r *Route) Update(dt float32, ground locomotor.GroundProbe) math.Transform {
	if r.done || dt <= 0 || !math.IsFinite(dt) {
		return r.goal
	}

	budget := r.Speed * dt
	// At most one lap per update.
	for hops := 0; budget > 0 && !r.done && hops <= len(r.Waypoints); hops++ {
		target := r.Waypoints[r.index]
		delta := target.Sub(r.goal.Translation).Flat()
		dist := delta.Length()

		if dist <= ArrivalThreshold || dist <= budget {
			r.goal.Translation.X = target.X
			r.goal.Translation.Z = target.Z
			budget -= dist
			r.advance()
			continue
		}

		dir := delta.Scale(1 / dist)
		r.goal.Translation = r.goal.Translation.Add(dir.Scale(budget))
		r.face(dir)
		budget = 0
	}

	if ground != nil {
		if hit, ok := ground.Probe(r.goal.Translation.X, r.goal.Translation.Z); ok {
			r.goal.Translation.Y = hit.Height
		}
	}
	return r.goal
}

func (r *Route) advance() {
	r.index++
	if r.index < len(r.Waypoints) {
		return
	}
	if r.Loop {
		r.index = 0
		return
	}
	r.index = len(r.Waypoints) - 1
	r.done = true
}

// face turns the goal toward a planar direction. +Z is forward.
func (r *Route) face(dir math.Vec3) {
	dir = dir.Flat()
	if dir.LengthSquared() < 1e-12 {
		return
	}
	yaw := float32(gomath.Atan2(float64(dir.X), float64(dir.Z)))
	r.goal.Rotation = math.QuatFromAxisAngle(math.Up, yaw)
}
