package math

import (
	"math"
	"testing"
)

func TestDampAlpha(t *testing.T) {
	tests := []struct {
		name     string
		halfLife float32
		dt       float32
		want     float32
	}{
		{"one half-life", 0.2, 0.2, 0.5},
		{"two half-lives", 0.2, 0.4, 0.75},
		{"zero dt", 0.2, 0, 0},
		{"negative dt", 0.2, -1, 0},
		{"snap", 0, 0.016, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DampAlpha(tt.halfLife, tt.dt)
			if math.Abs(float64(got-tt.want)) > 0.0001 {
				t.Errorf("DampAlpha(%v, %v) = %v, want %v", tt.halfLife, tt.dt, got, tt.want)
			}
		})
	}
}

func TestDampFrameRateIndependent(t *testing.T) {
	// Two ticks of dt must equal one tick of 2*dt.
	a := DampFloat(0, 10, 0.3, 0.1)
	a = DampFloat(a, 10, 0.3, 0.1)
	b := DampFloat(0, 10, 0.3, 0.2)
	if math.Abs(float64(a-b)) > 0.0001 {
		t.Errorf("split ticks %v, single tick %v", a, b)
	}
}

func TestSpringCriticalNoOvershoot(t *testing.T) {
	var s Spring
	for i := 0; i < 300; i++ {
		v := s.Update(1, 100, 1, 1.0/60)
		if v > 1.0001 {
			t.Fatalf("critically damped spring overshot at step %d: %v", i, v)
		}
	}
	if math.Abs(float64(s.Value-1)) > 0.001 {
		t.Errorf("spring did not settle: %v", s.Value)
	}
}

func TestSpringExtremeInputs(t *testing.T) {
	tests := []struct {
		name         string
		stiffness    float32
		dampingRatio float32
		dt           float32
	}{
		{"huge step", 200, 1, 1e6},
		{"huge step underdamped", 200, 0.5, 1e6},
		{"huge step overdamped", 200, 3, 1e6},
		{"stiff", 1e6, 1, 0.1},
		{"stiff at frame rate", 1e6, 1, 1.0 / 30},
		{"stiff overdamped", 1e6, 2, 1.0 / 30},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s Spring
			v := s.Update(1, tt.stiffness, tt.dampingRatio, tt.dt)
			if !IsFinite(v) || !IsFinite(s.Velocity) {
				t.Fatalf("Update returned %v with velocity %v", v, s.Velocity)
			}
			if tt.dampingRatio >= 1 && (v < 0 || v > 1.0001) {
				t.Errorf("Update = %v, want within [0, 1]", v)
			}
			if tt.dt > 1 && math.Abs(float64(v-1)) > 0.001 {
				t.Errorf("Update = %v, want settled at 1", v)
			}
		})
	}
}

func TestSpringStepIndependent(t *testing.T) {
	// Ten small ticks land where one large tick does.
	var a, b Spring
	for i := 0; i < 10; i++ {
		a.Update(1, 80, 0.7, 0.01)
	}
	b.Update(1, 80, 0.7, 0.1)
	if math.Abs(float64(a.Value-b.Value)) > 0.0001 || math.Abs(float64(a.Velocity-b.Velocity)) > 0.001 {
		t.Errorf("split ticks (%v, %v), single tick (%v, %v)", a.Value, a.Velocity, b.Value, b.Velocity)
	}
}

func TestSpringVec3Settles(t *testing.T) {
	var s SpringVec3
	target := Vec3{1, -2, 3}
	for i := 0; i < 600; i++ {
		s.Update(target, 50, 1, 1.0/60)
	}
	if s.Value.Distance(target) > 0.001 {
		t.Errorf("SpringVec3 did not settle: %v", s.Value)
	}
}

func TestWrap01(t *testing.T) {
	tests := []struct {
		in, want float32
	}{
		{0, 0},
		{0.25, 0.25},
		{1, 0},
		{1.5, 0.5},
		{-0.25, 0.75},
		{float32(math.NaN()), 0},
	}
	for _, tt := range tests {
		got := Wrap01(tt.in)
		if math.Abs(float64(got-tt.want)) > 0.00001 {
			t.Errorf("Wrap01(%v) = %v, want %v", tt.in, got, tt.want)
		}
		if got < 0 || got >= 1 {
			t.Errorf("Wrap01(%v) = %v out of range", tt.in, got)
		}
	}
	if got := Wrap01(-1e-9); got < 0 || got >= 1 {
		t.Errorf("Wrap01 tiny negative out of range: %v", got)
	}
}

func TestEaseInOut(t *testing.T) {
	if got := EaseInOut(0.3, 0, 0); math.Abs(float64(got-0.3)) > 0.0001 {
		t.Errorf("zero easing should be linear, got %v", got)
	}
	smooth := 3*0.3*0.3 - 2*0.3*0.3*0.3
	if got := EaseInOut(0.3, 1, 1); math.Abs(float64(got)-smooth) > 0.0001 {
		t.Errorf("full easing should be smoothstep %v, got %v", smooth, got)
	}
	prev := float32(0)
	for i := 1; i <= 100; i++ {
		v := EaseInOut(float32(i)/100, 0.7, 0.2)
		if v < prev {
			t.Fatalf("EaseInOut not monotone at %d", i)
		}
		prev = v
	}
	if EaseInOut(1, 0.5, 0.5) != 1 || EaseInOut(0, 0.5, 0.5) != 0 {
		t.Error("EaseInOut endpoints should be 0 and 1")
	}
}
