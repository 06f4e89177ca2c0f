package sim

import (
	"context"
	"errors"
	gomath "math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Faultbox/midgard-rig/internal/config"
	"github.com/Faultbox/midgard-rig/internal/ground"
	"github.com/Faultbox/midgard-rig/internal/locomotor"
	"github.com/Faultbox/midgard-rig/internal/riglogic"
	"github.com/Faultbox/midgard-rig/pkg/formats"
	"github.com/Faultbox/midgard-rig/pkg/math"
)

func near(a, b, tolerance float32) bool {
	return gomath.Abs(float64(a-b)) <= float64(tolerance)
}

type flatProbe float32

func (p flatProbe) Probe(x, z float32) (locomotor.GroundHit, bool) {
	return locomotor.GroundHit{Height: float32(p), Normal: math.Up}, true
}

func TestRouteMovesAtSpeed(t *testing.T) {
	r := NewRoute(math.TransformIdentity(), []math.Vec3{{Z: 1}}, 1, false)

	goal := r.Update(0.5, nil)
	if !near(goal.Translation.Z, 0.5, 1e-5) {
		t.Errorf("z = %f, want 0.5", goal.Translation.Z)
	}
	if goal.Rotation.AngleTo(math.QuatIdentity()) > 1e-4 {
		t.Errorf("rotation = %+v, want facing +Z", goal.Rotation)
	}
	if r.Done() {
		t.Error("route done halfway")
	}

	goal = r.Update(0.6, nil)
	if !near(goal.Translation.Z, 1, 1e-5) || !r.Done() {
		t.Errorf("z = %f done = %v, want arrival", goal.Translation.Z, r.Done())
	}

	if again := r.Update(1, nil); again != goal {
		t.Error("finished route kept moving")
	}
}

func TestRouteCarriesDistanceAcrossWaypoints(t *testing.T) {
	r := NewRoute(math.TransformIdentity(), []math.Vec3{{Z: 1}, {X: 1, Z: 1}}, 1, false)
	goal := r.Update(1.5, nil)

	want := math.Vec3{X: 0.5, Z: 1}
	if goal.Translation.Distance(want) > 1e-5 {
		t.Errorf("goal = %+v, want %+v", goal.Translation, want)
	}
	facing := math.QuatFromAxisAngle(math.Up, gomath.Pi/2)
	if goal.Rotation.AngleTo(facing) > 1e-4 {
		t.Errorf("rotation = %+v, want facing +X", goal.Rotation)
	}
	if r.Index() != 1 {
		t.Errorf("index = %d, want 1", r.Index())
	}
}

func TestRouteLoopsAndRidesGround(t *testing.T) {
	r := NewRoute(math.TransformIdentity(), []math.Vec3{{Z: 1}, {}}, 1, true)
	for i := 0; i < 30; i++ {
		r.Update(0.1, flatProbe(0.3))
	}
	if r.Done() {
		t.Error("looping route finished")
	}
	if y := r.Goal().Translation.Y; !near(y, 0.3, 1e-6) {
		t.Errorf("goal y = %f, want ground 0.3", y)
	}
}

func TestRouteIgnoresBadDeltaTime(t *testing.T) {
	r := NewRoute(math.TransformIdentity(), []math.Vec3{{Z: 1}}, 1, false)
	for _, dt := range []float32{0, -1, float32(gomath.NaN()), float32(gomath.Inf(1))} {
		if g := r.Update(dt, nil); g.Translation != (math.Vec3{}) {
			t.Errorf("dt %f moved the goal to %+v", dt, g.Translation)
		}
	}
	// Coincident waypoints must not spin forever.
	loop := NewRoute(math.TransformIdentity(), []math.Vec3{{}, {}}, 1, true)
	loop.Update(1, nil)
}

func testConfig(characters, workers int) *config.Config {
	cfg := config.Default()
	cfg.Simulation.Characters = characters
	cfg.Simulation.Workers = workers
	cfg.Simulation.RouteLength = 4
	cfg.Ground.Width = 16
	cfg.Ground.Depth = 16
	cfg.Ground.Amplitude = 0
	return cfg
}

func TestCrowdWalksAcross(t *testing.T) {
	cfg := testConfig(3, 2)
	crowd, err := NewCrowd(cfg, ground.NewScene(cfg.Ground), nil, nil)
	if err != nil {
		t.Fatalf("NewCrowd: %v", err)
	}

	summary, err := crowd.Run(context.Background(), 600, cfg.Simulation.DeltaTime, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Frames != 600 || crowd.Frame() != 600 {
		t.Errorf("frames = %d/%d, want 600", summary.Frames, crowd.Frame())
	}
	if summary.Arrived != 3 {
		t.Errorf("arrived = %d, want 3", summary.Arrived)
	}
	if summary.MaxAirborne != 1 {
		t.Errorf("max airborne = %d, want 1 for bipeds", summary.MaxAirborne)
	}

	for _, c := range crowd.Characters {
		if c.Steps() < 4 {
			t.Errorf("character %d took %d steps", c.ID, c.Steps())
		}
		root := c.Rig.Global(c.Rig.BoneIndex("root")).Translation
		if !near(root.Z, 2, 0.1) {
			t.Errorf("character %d root z = %f, want 2", c.ID, root.Z)
		}
	}
}

func TestCrowdDeterministicAcrossWorkers(t *testing.T) {
	run := func(workers int) []math.Vec3 {
		cfg := testConfig(4, workers)
		crowd, err := NewCrowd(cfg, ground.NewScene(cfg.Ground), nil, nil)
		if err != nil {
			t.Fatalf("NewCrowd: %v", err)
		}
		for i := 0; i < 120; i++ {
			crowd.Step(cfg.Simulation.DeltaTime)
		}
		var feet []math.Vec3
		for _, c := range crowd.Characters {
			for _, name := range []string{"foot_l", "foot_r"} {
				feet = append(feet, c.Rig.Global(c.Rig.BoneIndex(name)).Translation)
			}
		}
		return feet
	}

	serial, parallel := run(1), run(4)
	for i := range serial {
		if serial[i] != parallel[i] {
			t.Errorf("foot %d: serial %+v != parallel %+v", i, serial[i], parallel[i])
		}
	}
}

func crowdModel(t *testing.T) *riglogic.BehaviorModel {
	t.Helper()
	m, err := riglogic.NewBehaviorModel(&formats.BHV{
		Name:        "talk",
		LODCount:    1,
		RawControls: []string{"jaw_open"},
		Joints: []formats.BHVJoint{
			{Name: "jaw", Translation: [3]float32{0, -0.05, 0.05}, Rotation: [4]float32{0, 0, 0, 1}, Scale: [3]float32{1, 1, 1}},
		},
		JointGroups: []formats.BHVJointGroup{
			{Inputs: []int{0}, Outputs: []int{3}, LODRows: []int{1}, Values: []float32{25}},
		},
		BlendShapes: []formats.BHVBlendShape{{Name: "jaw_open_bs", Input: 0}},
	})
	if err != nil {
		t.Fatalf("NewBehaviorModel: %v", err)
	}
	return m
}

func TestCrowdEvaluatesFaces(t *testing.T) {
	cfg := testConfig(2, 2)
	crowd, err := NewCrowd(cfg, ground.NewScene(cfg.Ground), nil, crowdModel(t))
	if err != nil {
		t.Fatalf("NewCrowd: %v", err)
	}
	for i := 0; i < 20; i++ {
		crowd.Step(cfg.Simulation.DeltaTime)
	}

	for _, c := range crowd.Characters {
		jawOpen := c.Rig.Curve(c.Rig.CurveIndex("jaw_open"))
		shape := c.Rig.Curve(c.Rig.CurveIndex("jaw_open_bs"))
		if jawOpen == 0 {
			t.Errorf("character %d: talk clip did not drive jaw_open", c.ID)
		}
		if !near(shape, jawOpen, 1e-6) {
			t.Errorf("character %d: jaw_open_bs = %f, want %f", c.ID, shape, jawOpen)
		}
		jaw := c.Rig.Local(c.Rig.BoneIndex("jaw")).Rotation
		want := math.QuatFromAxisAngle(math.Vec3{X: 1}, math.DegToRad(25*jawOpen))
		if jaw.AngleTo(want) > 1e-3 {
			t.Errorf("character %d: jaw rotation = %+v, want %+v", c.ID, jaw, want)
		}
	}
	if crowd.Characters[0].Face.Evaluator().Model() != crowd.Characters[1].Face.Evaluator().Model() {
		t.Error("characters do not share the behavior model")
	}
}

func TestRecorder(t *testing.T) {
	cfg := testConfig(2, 2)
	crowd, err := NewCrowd(cfg, ground.NewScene(cfg.Ground), nil, nil)
	if err != nil {
		t.Fatalf("NewCrowd: %v", err)
	}
	rec := NewRecorder(10)
	if _, err := crowd.Run(context.Background(), 50, cfg.Simulation.DeltaTime, rec); err != nil {
		t.Fatalf("Run: %v", err)
	}

	records := rec.Records()
	if len(records) != 10 || rec.Len() != 10 {
		t.Fatalf("records = %d, want 10", len(records))
	}
	if records[0].Frame != 10 || records[9].Frame != 50 {
		t.Errorf("frames %d..%d, want 10..50", records[0].Frame, records[9].Frame)
	}
	if len(records[0].Snapshot.Feet) != 2 {
		t.Errorf("snapshot feet = %d, want 2", len(records[0].Snapshot.Feet))
	}

	path := filepath.Join(t.TempDir(), "out", "recording.yaml")
	if err := rec.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "frame: 50") {
		t.Error("recording does not contain frame 50")
	}
}

func TestRecorderDisabled(t *testing.T) {
	rec := NewRecorder(0)
	if err := rec.Capture(10, nil); err != nil || rec.Len() != 0 {
		t.Errorf("disabled recorder captured: err=%v len=%d", err, rec.Len())
	}
}

func TestRunCancelled(t *testing.T) {
	cfg := testConfig(1, 1)
	crowd, err := NewCrowd(cfg, ground.NewScene(cfg.Ground), nil, nil)
	if err != nil {
		t.Fatalf("NewCrowd: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := crowd.Run(ctx, 100, cfg.Simulation.DeltaTime, nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if summary.Frames != 0 {
		t.Errorf("frames = %d, want 0", summary.Frames)
	}
}
