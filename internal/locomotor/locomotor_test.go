package locomotor

import (
	gomath "math"
	"testing"

	"github.com/Faultbox/midgard-rig/pkg/math"
)

const eps = 1e-4

func near(a, b, tolerance float32) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d <= tolerance
}

// newBiped returns a locomotor with two feet in one set, standing at the origin.
func newBiped() *Locomotor {
	l := New()
	l.Reset(math.TransformIdentity(), math.NewTransform(math.Vec3{Y: 1}, math.QuatIdentity()))
	set := l.AddFootSet(0)
	l.AddFootToSet(set, math.NewTransform(math.Vec3{X: -0.1, Y: 0.1}, math.QuatIdentity()), DefaultFootSettings())
	l.AddFootToSet(set, math.NewTransform(math.Vec3{X: 0.1, Y: 0.1}, math.QuatIdentity()), DefaultFootSettings())
	return l
}

func defaultInput(goal math.Transform, dt float32) InputSettings {
	return InputSettings{
		DeltaTime:     dt,
		RootGoalWorld: goal,
		Movement:      DefaultMovementSettings(),
		Step:          DefaultStepSettings(),
		Pelvis:        DefaultPelvisSettings(),
	}
}

func TestPhaseAdvancesAndWraps(t *testing.T) {
	l := newBiped()
	in := defaultInput(math.TransformIdentity(), 0.5)
	in.Movement.PhaseSpeedMin = 1
	in.Movement.PhaseSpeedMax = 1

	l.RunSimulation(in)
	if !near(l.Phase(), 0.5, eps) {
		t.Fatalf("phase after first tick = %f, want 0.5", l.Phase())
	}
	l.RunSimulation(in)
	if !near(l.Phase(), 0, eps) {
		t.Errorf("phase after wrap = %f, want 0", l.Phase())
	}
}

func TestPhaseStaysInRange(t *testing.T) {
	deltas := []float32{
		1.0 / 60, 0.3, 2.7, 0, -1, float32(gomath.NaN()), float32(gomath.Inf(1)), 1000,
	}
	l := newBiped()
	goal := math.NewTransform(math.Vec3{Z: 5}, math.QuatIdentity())
	for i, dt := range deltas {
		l.RunSimulation(defaultInput(goal, dt))
		if p := l.Phase(); p < 0 || p >= 1 {
			t.Errorf("tick %d (dt=%v): phase %f out of [0,1)", i, dt, p)
		}
		if s := l.Speed(); s < 0 || s > DefaultMovementSettings().SpeedMax {
			t.Errorf("tick %d (dt=%v): speed %f out of range", i, dt, s)
		}
	}
}

func TestStationaryGoalKeepsFeetPlanted(t *testing.T) {
	l := newBiped()
	initial := make([]math.Vec3, 0, 2)
	for _, f := range l.Feet() {
		initial = append(initial, f.CurrentWorld.Translation)
	}

	in := defaultInput(math.TransformIdentity(), 1.0/60)
	for i := 0; i < 120; i++ {
		l.RunSimulation(in)
		for j, f := range l.Feet() {
			if f.State != Planted {
				t.Fatalf("tick %d: foot %d is %s, want planted", i, j, f.State)
			}
		}
	}

	if l.Speed() != 0 {
		t.Errorf("speed = %f, want 0", l.Speed())
	}
	for j, f := range l.Feet() {
		if d := f.CurrentWorld.Translation.Distance(initial[j]); d > eps {
			t.Errorf("foot %d drifted by %f", j, d)
		}
	}
	if d := l.PelvisCurrent().Translation.Distance(math.Vec3{Y: 1}); d > 1e-3 {
		t.Errorf("pelvis drifted by %f", d)
	}
}

func TestSpeedApproachesMaxAndClamps(t *testing.T) {
	l := newBiped()
	mv := DefaultMovementSettings()
	goal := math.NewTransform(math.Vec3{Z: 100}, math.QuatIdentity())

	prev := float32(0)
	for i := 0; i < 300; i++ {
		l.RunSimulation(defaultInput(goal, 1.0/60))
		s := l.Speed()
		if s < 0 || s > mv.SpeedMax {
			t.Fatalf("tick %d: speed %f outside [0, %f]", i, s, mv.SpeedMax)
		}
		if s-prev > mv.Acceleration/60+eps {
			t.Fatalf("tick %d: speed jumped %f -> %f", i, prev, s)
		}
		prev = s
	}
	if !near(l.Speed(), mv.SpeedMax, eps) {
		t.Errorf("speed = %f, want %f", l.Speed(), mv.SpeedMax)
	}
	if l.BodyCurrent().Translation.Z <= 0 {
		t.Error("body did not move toward goal")
	}
}

func TestBodyStopsAtGoal(t *testing.T) {
	l := newBiped()
	goal := math.NewTransform(math.Vec3{X: 1, Z: 1}, math.QuatIdentity())
	for i := 0; i < 600; i++ {
		l.RunSimulation(defaultInput(goal, 1.0/60))
		toGoal := goal.Translation.Sub(l.BodyCurrent().Translation).Flat()
		if toGoal.Dot(math.Vec3{X: 1, Z: 1}) < -eps {
			t.Fatalf("tick %d: body overshot goal", i)
		}
	}
	if d := l.BodyCurrent().Translation.Distance(goal.Translation); d > 0.05 {
		t.Errorf("body is %f from goal", d)
	}
	if l.Speed() != 0 {
		t.Errorf("speed = %f after arriving, want 0", l.Speed())
	}
}

func TestFootPhasesEvenlySpaced(t *testing.T) {
	l := New()
	set := l.AddFootSet(0.1)
	for i := 0; i < 4; i++ {
		l.AddFootToSet(set, math.NewTransform(math.Vec3{X: float32(i)}, math.QuatIdentity()), DefaultFootSettings())
	}

	in := defaultInput(math.TransformIdentity(), 0.37)
	for tick := 0; tick < 5; tick++ {
		l.RunSimulation(in)
		feet := l.FootSets()[set].Feet
		for i := 1; i < len(feet); i++ {
			gap := math.Wrap01(feet[i].Phase - feet[i-1].Phase)
			if !near(gap, 0.25, eps) {
				t.Errorf("tick %d: phase gap between foot %d and %d = %f, want 0.25", tick, i-1, i, gap)
			}
		}
		if want := math.Wrap01(l.Phase() + 0.1); !near(feet[0].Phase, want, eps) {
			t.Errorf("tick %d: first foot phase %f, want %f", tick, feet[0].Phase, want)
		}
	}
}

func TestAddFootSetWrapsOffset(t *testing.T) {
	tests := []struct {
		offset float32
		want   float32
	}{
		{0, 0},
		{0.5, 0.5},
		{1.25, 0.25},
		{-0.25, 0.75},
		{1, 0},
	}
	for _, tt := range tests {
		l := New()
		idx := l.AddFootSet(tt.offset)
		if got := l.FootSets()[idx].PhaseOffset; !near(got, tt.want, eps) {
			t.Errorf("AddFootSet(%f) offset = %f, want %f", tt.offset, got, tt.want)
		}
	}
}

func TestAddFootToSetOutOfRange(t *testing.T) {
	l := New()
	l.AddFootSet(0)
	l.AddFootToSet(-1, math.TransformIdentity(), DefaultFootSettings())
	l.AddFootToSet(1, math.TransformIdentity(), DefaultFootSettings())
	if l.HasFeet() {
		t.Error("out of range set index added a foot")
	}
}

func TestRunSimulationWithoutFeetIsNoop(t *testing.T) {
	l := New()
	l.AddFootSet(0)
	goal := math.NewTransform(math.Vec3{Z: 3}, math.QuatIdentity())
	l.RunSimulation(defaultInput(goal, 0.5))
	if l.Phase() != 0 || l.Speed() != 0 {
		t.Errorf("phase=%f speed=%f, want untouched", l.Phase(), l.Speed())
	}
	if l.BodyCurrent().Translation != (math.Vec3{}) {
		t.Error("body moved without feet")
	}
}

func TestResetIdempotent(t *testing.T) {
	goal := math.NewTransform(math.Vec3{X: 2, Z: 3}, math.QuatFromAxisAngle(math.Up, 0.5))
	pelvis := math.NewTransform(math.Vec3{X: 2, Y: 1, Z: 3}, math.QuatIdentity())

	l := newBiped()
	for i := 0; i < 30; i++ {
		l.RunSimulation(defaultInput(math.NewTransform(math.Vec3{Z: 4}, math.QuatIdentity()), 1.0/30))
	}

	l.Reset(goal, pelvis)
	once, err := l.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	l.Reset(goal, pelvis)
	twice, err := l.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	if once.Phase != 0 || once.Speed != 0 {
		t.Errorf("reset left phase=%f speed=%f", once.Phase, once.Speed)
	}
	if len(once.Feet) != 0 || l.HasFeet() {
		t.Error("reset kept feet")
	}
	if once.BodyCurrent != twice.BodyCurrent || once.PelvisCurrent != twice.PelvisCurrent ||
		once.BodyTarget != twice.BodyTarget || once.PelvisTarget != twice.PelvisTarget {
		t.Error("second reset changed state")
	}
	if once.BodyCurrent != goal || once.PelvisCurrent != pelvis {
		t.Error("reset did not place body and pelvis")
	}
}

func TestWalkingAlternatesFeet(t *testing.T) {
	l := newBiped()
	goal := math.NewTransform(math.Vec3{}, math.QuatIdentity())

	airborneTicks := 0
	landings := 0
	for i := 0; i < 240; i++ {
		goal.Translation.Z += 1.2 / 60
		l.RunSimulation(defaultInput(goal, 1.0/60))

		up := 0
		for _, f := range l.Feet() {
			if f.State == Airborne {
				up++
				if f.AirAlpha < 0 || f.AirAlpha > 1 {
					t.Fatalf("tick %d: air alpha %f out of range", i, f.AirAlpha)
				}
			}
			if f.Landing {
				landings++
			}
		}
		if up == 2 {
			t.Fatalf("tick %d: both feet airborne", i)
		}
		if up > 0 {
			airborneTicks++
		}
	}

	if airborneTicks == 0 {
		t.Error("no foot ever lifted while walking")
	}
	if landings < 4 {
		t.Errorf("landings = %d, want at least 4", landings)
	}
	for j, f := range l.Feet() {
		if f.CurrentWorld.Translation.Z < 1 {
			t.Errorf("foot %d stayed behind at z=%f", j, f.CurrentWorld.Translation.Z)
		}
	}
	if l.PelvisCurrent().Translation.Z < 1 {
		t.Errorf("pelvis stayed behind at z=%f", l.PelvisCurrent().Translation.Z)
	}
}

func TestFootCollisionSeparatesAirborneFeet(t *testing.T) {
	tests := []struct {
		name string
		a, b math.Vec3
	}{
		{"overlapping", math.Vec3{X: -0.02}, math.Vec3{X: 0.03, Z: 0.01}},
		{"coincident", math.Vec3{Z: 0.5}, math.Vec3{Z: 0.5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := New()
			settings := FootSettings{CollisionRadius: 0.1}
			a := &Foot{Settings: settings, State: Airborne, TargetCurrent: math.NewTransform(tt.a, math.QuatIdentity())}
			b := &Foot{Settings: settings, State: Planted, Landing: true, TargetCurrent: math.NewTransform(tt.b, math.QuatIdentity())}
			l.feet = []*Foot{a, b}

			step := DefaultStepSettings()
			step.FootCollisionGlobalScale = 1.5
			l.collideFeet(step)

			d := a.TargetCurrent.Translation.Flat().Distance(b.TargetCurrent.Translation.Flat())
			if want := float32(0.3); d < want-eps {
				t.Errorf("feet %f apart, want at least %f", d, want)
			}
			if tt.a == tt.b && a.TargetCurrent.Translation.X >= b.TargetCurrent.Translation.X {
				t.Error("coincident feet not separated along the right axis")
			}
		})
	}
}

func TestPelvisStaysFiniteOnExtremeSettings(t *testing.T) {
	tests := []struct {
		name      string
		dt        float32
		stiffness float32
	}{
		{"stiff pelvis", 1.0 / 30, 1e6},
		{"huge delta time", 1e6, 200},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newBiped()
			goal := math.NewTransform(math.Vec3{Z: 0.5}, math.QuatIdentity())
			in := defaultInput(goal, tt.dt)
			in.Pelvis.PositionStiffness = tt.stiffness
			in.Pelvis.BobStiffness = tt.stiffness
			for i := 0; i < 10; i++ {
				l.RunSimulation(in)
			}
			p := l.PelvisCurrent().Translation
			if !math.IsFinite(p.X) || !math.IsFinite(p.Y) || !math.IsFinite(p.Z) {
				t.Errorf("pelvis = %+v, want finite", p)
			}
		})
	}
}

func TestFootCollisionSeparatesClusters(t *testing.T) {
	tests := []struct {
		name    string
		count   int
		spacing float32
	}{
		{"three in a row", 3, 0.01},
		{"four in a row", 4, 0.01},
		{"five in a row", 5, 0.01},
		{"six in a row", 6, 0.01},
		{"six coincident", 6, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := New()
			settings := FootSettings{CollisionRadius: 0.1}
			for i := 0; i < tt.count; i++ {
				at := math.Vec3{X: float32(i) * tt.spacing}
				l.feet = append(l.feet, &Foot{Settings: settings, State: Airborne, TargetCurrent: math.NewTransform(at, math.QuatIdentity())})
			}

			l.collideFeet(DefaultStepSettings())

			for i := 0; i < len(l.feet); i++ {
				for j := i + 1; j < len(l.feet); j++ {
					a := l.feet[i].TargetCurrent.Translation.Flat()
					b := l.feet[j].TargetCurrent.Translation.Flat()
					if d := a.Distance(b); d < 0.2-eps {
						t.Errorf("feet %d and %d are %f apart, want at least 0.2", i, j, d)
					}
				}
			}
		})
	}
}

func TestFootCollisionIgnoresPlantedFeet(t *testing.T) {
	l := New()
	settings := FootSettings{CollisionRadius: 0.1}
	a := &Foot{Settings: settings, State: Airborne, TargetCurrent: math.TransformIdentity()}
	b := &Foot{Settings: settings, State: Planted, TargetCurrent: math.TransformIdentity()}
	l.feet = []*Foot{a, b}
	l.collideFeet(DefaultStepSettings())
	if a.TargetCurrent.Translation != (math.Vec3{}) || b.TargetCurrent.Translation != (math.Vec3{}) {
		t.Error("planted foot took part in collision")
	}
}

type planeProbe struct {
	height float32
	normal math.Vec3
}

func (p planeProbe) Probe(x, z float32) (GroundHit, bool) {
	return GroundHit{Height: p.height, Normal: p.normal}, true
}

func TestGroundProbeLiftsFeet(t *testing.T) {
	l := newBiped()
	in := defaultInput(math.TransformIdentity(), 1.0/60)
	in.Ground = planeProbe{height: 0.5, normal: math.Up}
	l.RunSimulation(in)

	for j, f := range l.Feet() {
		if !near(f.GroundWorld.Translation.Y, 0.5, eps) {
			t.Errorf("foot %d ground height = %f, want 0.5", j, f.GroundWorld.Translation.Y)
		}
		if !near(f.CurrentWorld.Translation.Y, 0.6, eps) {
			t.Errorf("foot %d height = %f, want 0.6", j, f.CurrentWorld.Translation.Y)
		}
	}

	in.Step.EnableGroundCollision = false
	l.RunSimulation(in)
	for j, f := range l.Feet() {
		if !near(f.CurrentWorld.Translation.Y, 0.1, eps) {
			t.Errorf("foot %d height with ground disabled = %f, want 0.1", j, f.CurrentWorld.Translation.Y)
		}
	}
}

func TestSlopeTiltsFootToeUp(t *testing.T) {
	slope := float64(0.3)
	probe := planeProbe{normal: math.Vec3{Y: float32(gomath.Cos(slope)), Z: -float32(gomath.Sin(slope))}}

	tests := []struct {
		name    string
		orient  float32
		wantMin float32
		wantMax float32
	}{
		{"full", 1, float32(gomath.Sin(slope)) - 1e-3, float32(gomath.Sin(slope)) + 1e-3},
		{"off", 0, -eps, eps},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newBiped()
			in := defaultInput(math.TransformIdentity(), 1.0/60)
			in.Ground = probe
			in.Step.OrientFootToGroundPitch = tt.orient
			l.RunSimulation(in)

			forward := l.Feet()[0].CurrentWorld.Rotation.Rotate(math.Vec3{Z: 1})
			if forward.Y < tt.wantMin || forward.Y > tt.wantMax {
				t.Errorf("forward.Y = %f, want in [%f, %f]", forward.Y, tt.wantMin, tt.wantMax)
			}
		})
	}
}

func TestSnapshotIsDetached(t *testing.T) {
	l := newBiped()
	goal := math.NewTransform(math.Vec3{Z: 2}, math.QuatIdentity())
	l.RunSimulation(defaultInput(goal, 1.0/60))

	snap, err := l.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(snap.Feet) != 2 || len(snap.SetOffsets) != 1 {
		t.Fatalf("snapshot has %d feet and %d sets", len(snap.Feet), len(snap.SetOffsets))
	}
	if snap.Feet[0] == l.Feet()[0] {
		t.Fatal("snapshot shares foot pointers with the live state")
	}

	before := snap.Feet[0].CurrentWorld
	phase := snap.Phase
	for i := 0; i < 60; i++ {
		l.RunSimulation(defaultInput(goal, 1.0/60))
	}
	if snap.Feet[0].CurrentWorld != before || snap.Phase != phase {
		t.Error("snapshot changed after later ticks")
	}

	snap.Feet[0].State = Planted
	snap.Feet[1].State = Airborne
	if got := snap.AirborneCount(); got != 1 {
		t.Errorf("AirborneCount = %d, want 1", got)
	}
	snap.Feet[1].CurrentWorld.Translation.X = 99
	if l.Feet()[1].CurrentWorld.Translation.X == 99 {
		t.Error("editing snapshot changed live state")
	}
}

func TestEaseAndLiftShape(t *testing.T) {
	l := New()
	f := &Foot{
		Settings:     FootSettings{MaxHeelPeel: 30},
		PlantedWorld: math.TransformIdentity(),
		TargetFinal:  math.NewTransform(math.Vec3{Z: 1}, math.QuatIdentity()),
	}
	step := DefaultStepSettings()

	l.moveAirborne(f, 0.2, 0.4, step)
	if !near(f.AirAlpha, 0.5, eps) {
		t.Errorf("air alpha = %f, want 0.5", f.AirAlpha)
	}
	if !near(f.Lift, step.StepHeight, eps) {
		t.Errorf("lift at mid step = %f, want %f", f.Lift, step.StepHeight)
	}
	if !near(f.TargetCurrent.Translation.Z, 0.5, eps) {
		t.Errorf("mid step z = %f, want 0.5", f.TargetCurrent.Translation.Z)
	}
	if !near(f.HeelPeel, math.DegToRad(30), eps) {
		t.Errorf("heel peel = %f, want %f", f.HeelPeel, math.DegToRad(30))
	}

	l.moveAirborne(f, 0, 0.4, step)
	if f.Lift != 0 || f.TargetCurrent.Translation.Z != 0 {
		t.Errorf("lift-off pose moved: lift=%f z=%f", f.Lift, f.TargetCurrent.Translation.Z)
	}
}
