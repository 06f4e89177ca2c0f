package math

import "math"

// DampAlpha returns the blend factor that covers the share of the remaining
// distance implied by halfLife over dt: 1 - 0.5^(dt/halfLife).
// A non-positive halfLife snaps (returns 1); a non-positive dt returns 0.
func DampAlpha(halfLife, dt float32) float32 {
	if dt <= 0 || !IsFinite(dt) {
		return 0
	}
	if halfLife <= 0 {
		return 1
	}
	return float32(1 - math.Pow(0.5, float64(dt/halfLife)))
}

// DampFloat moves current toward target using half-life damping.
func DampFloat(current, target, halfLife, dt float32) float32 {
	return Lerp(current, target, DampAlpha(halfLife, dt))
}

// DampVec3 moves current toward target using half-life damping.
func DampVec3(current, target Vec3, halfLife, dt float32) Vec3 {
	return current.Lerp(target, DampAlpha(halfLife, dt))
}

// DampQuat rotates current toward target using half-life damping.
func DampQuat(current, target Quat, halfLife, dt float32) Quat {
	return current.Slerp(target, DampAlpha(halfLife, dt)).Normalize()
}

// Spring is a scalar second-order spring. Stiffness is k in 1/s^2,
// DampingRatio is zeta (1 = critically damped).
type Spring struct {
	Value    float32
	Velocity float32
}

// Update advances the spring toward target by dt seconds. The step is the
// exact solution of the spring equation, so any finite dt and stiffness
// stay stable. A negative damping ratio is treated as zero.
func (s *Spring) Update(target, stiffness, dampingRatio, dt float32) float32 {
	if dt <= 0 || !IsFinite(dt) {
		return s.Value
	}
	if stiffness <= 0 || !IsFinite(stiffness) {
		s.Value = target
		s.Velocity = 0
		return s.Value
	}

	t := float64(dt)
	w := math.Sqrt(float64(stiffness))
	zeta := max(float64(dampingRatio), 0)
	if !IsFinite(dampingRatio) {
		zeta = 1
	}
	y0 := float64(s.Value - target)
	v0 := float64(s.Velocity)

	var y, v float64
	switch {
	case math.Abs(zeta-1) < 1e-4:
		e := math.Exp(-w * t)
		b := v0 + w*y0
		y = (y0 + b*t) * e
		v = (v0 - w*t*b) * e
	case zeta < 1:
		a := zeta * w
		wd := w * math.Sqrt(1-zeta*zeta)
		e := math.Exp(-a * t)
		sin, cos := math.Sincos(wd * t)
		y = e * (y0*cos + (v0+a*y0)/wd*sin)
		v = e * (v0*cos - (a*v0+w*w*y0)/wd*sin)
	default:
		root := math.Sqrt(zeta*zeta - 1)
		r1 := -w * (zeta - root)
		r2 := -w * (zeta + root)
		c1 := (v0 - r2*y0) / (r1 - r2)
		c2 := y0 - c1
		e1, e2 := math.Exp(r1*t), math.Exp(r2*t)
		y = c1*e1 + c2*e2
		v = r1*c1*e1 + r2*c2*e2
	}

	s.Value = target + float32(y)
	s.Velocity = float32(v)
	return s.Value
}

// Reset places the spring at rest on value.
func (s *Spring) Reset(value float32) {
	s.Value = value
	s.Velocity = 0
}

// SpringVec3 is Spring applied per component.
type SpringVec3 struct {
	Value    Vec3
	Velocity Vec3
}

// Update advances the spring toward target by dt seconds.
func (s *SpringVec3) Update(target Vec3, stiffness, dampingRatio, dt float32) Vec3 {
	x := Spring{s.Value.X, s.Velocity.X}
	y := Spring{s.Value.Y, s.Velocity.Y}
	z := Spring{s.Value.Z, s.Velocity.Z}
	x.Update(target.X, stiffness, dampingRatio, dt)
	y.Update(target.Y, stiffness, dampingRatio, dt)
	z.Update(target.Z, stiffness, dampingRatio, dt)
	s.Value = Vec3{x.Value, y.Value, z.Value}
	s.Velocity = Vec3{x.Velocity, y.Velocity, z.Velocity}
	return s.Value
}

// Reset places the spring at rest on value.
func (s *SpringVec3) Reset(value Vec3) {
	s.Value = value
	s.Velocity = Vec3{}
}
