package math

import "math"

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Lerp linearly interpolates between a and b.
func Lerp(a, b, t float32) float32 {
	return a + t*(b-a)
}

// Wrap01 wraps v into [0, 1). Non-finite input maps to 0.
func Wrap01(v float32) float32 {
	f := float64(v)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	r := float32(f - math.Floor(f))
	// Rounding to float32 can land exactly on 1.
	if r >= 1 || r < 0 {
		return 0
	}
	return r
}

// DegToRad converts degrees to radians.
func DegToRad(deg float32) float32 {
	return deg * math.Pi / 180
}

// RadToDeg converts radians to degrees.
func RadToDeg(rad float32) float32 {
	return rad * 180 / math.Pi
}

// EaseInOut maps t in [0,1] through a cubic curve. easeIn and easeOut in
// [0,1] flatten the start and end; 0/0 is linear, 1/1 is smoothstep.
func EaseInOut(t, easeIn, easeOut float32) float32 {
	t = Clamp(t, 0, 1)
	c1 := (1 - Clamp(easeIn, 0, 1)) / 3
	c2 := 1 - (1-Clamp(easeOut, 0, 1))/3
	u := 1 - t
	return 3*u*u*t*c1 + 3*u*t*t*c2 + t*t*t
}

// IsFinite reports whether v is neither NaN nor infinite.
func IsFinite(v float32) bool {
	f := float64(v)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
