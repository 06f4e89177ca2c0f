package sim

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-rig/internal/config"
	"github.com/Faultbox/midgard-rig/internal/ground"
	"github.com/Faultbox/midgard-rig/internal/locomotor"
	"github.com/Faultbox/midgard-rig/internal/logger"
	"github.com/Faultbox/midgard-rig/internal/rig"
	"github.com/Faultbox/midgard-rig/internal/riglogic"
	"github.com/Faultbox/midgard-rig/internal/rigunit"
	"github.com/Faultbox/midgard-rig/pkg/math"
)

// Walk grid limits used when planning routes.
const (
	MaxWalkSlope = 35   // degrees
	MaxWalkStep  = 0.25 // world units
)

// Crowd steps many characters per frame on a worker pool. The ground and
// the behavior model are shared read-only.
type Crowd struct {
	Characters []*Character
	Workers    int
	Ground     locomotor.GroundProbe
	Settings   config.LocomotorConfig

	frame     int
	processed atomic.Int64
}

// Summary describes a finished run.
type Summary struct {
	Frames      int
	Characters  int
	Arrived     int
	Steps       int
	MaxAirborne int
	Elapsed     time.Duration
}

// NewCrowd places cfg.Simulation.Characters bipeds on a start line and
// plans a route across the scene for each. model may be nil.
func NewCrowd(cfg *config.Config, scene *ground.Scene, skeleton *rig.SkeletonDef, model *riglogic.BehaviorModel) (*Crowd, error) {
	if skeleton == nil {
		skeleton = rig.BipedDef()
	}
	sc := cfg.Simulation
	grid := scene.WalkGrid(MaxWalkSlope, MaxWalkStep)
	var finder *PathFinder
	if grid != nil {
		finder = NewPathFinder(grid, grid.CellsX, grid.CellsZ)
	}

	c := &Crowd{
		Workers:  sc.Workers,
		Ground:   scene,
		Settings: cfg.Locomotor,
	}
	rootBone := ""
	if len(skeleton.Bones) > 0 {
		rootBone = skeleton.Bones[0].Name
	}

	for i := 0; i < sc.Characters; i++ {
		h, err := skeleton.Build()
		if err != nil {
			return nil, fmt.Errorf("character %d: %w", i, err)
		}

		x := (float32(i) - float32(sc.Characters-1)/2) * sc.Spacing
		from := math.Vec3{X: x, Z: -sc.RouteLength / 2}
		to := math.Vec3{X: x, Z: sc.RouteLength / 2}
		if hit, ok := scene.Probe(from.X, from.Z); ok {
			from.Y = hit.Height
		}

		waypoints := planRoute(grid, finder, from, to)
		start := math.NewTransform(from, math.QuatIdentity())
		route := NewRoute(start, waypoints, sc.WalkSpeed, false)
		if root := h.BoneIndex(rootBone); root != rig.IndexNone {
			h.SetGlobal(root, route.Goal())
		}

		ch := &Character{
			ID:         i,
			Rig:        h,
			Route:      route,
			Locomotion: rigunit.NewLocomotorUnit(skeleton.Locomotion, rootBone, cfg.Locomotor.Foot),
			time:       float32(i) * 0.37,
		}
		if model != nil {
			ch.Face = rigunit.NewRigLogicUnit(model, cfg.Rig.LOD)
			ch.Clip = rig.TalkClip()
		}
		c.Characters = append(c.Characters, ch)
	}

	logger.Info("crowd ready",
		zap.Int("characters", len(c.Characters)),
		zap.Int("workers", c.Workers),
		zap.Bool("rigLogic", model != nil))
	return c, nil
}

// planRoute finds a walkable path from one point to another, falling back
// to a straight line when the grid is missing or has no path.
func planRoute(grid *ground.WalkGrid, finder *PathFinder, from, to math.Vec3) []math.Vec3 {
	straight := []math.Vec3{to}
	if grid == nil {
		return straight
	}
	sx, sz := grid.CellOf(from.XZ())
	gx, gz := grid.CellOf(to.XZ())
	path := finder.FindPath(sx, sz, gx, gz)
	if len(path) < 2 {
		logger.Debug("no walkable path, walking straight",
			zap.Float32("x", from.X))
		return straight
	}

	waypoints := make([]math.Vec3, 0, len(path))
	for _, cell := range path[1:] {
		center := grid.CellCenter(cell[0], cell[1])
		waypoints = append(waypoints, center.Lift(grid.Height(cell[0], cell[1])))
	}
	waypoints[len(waypoints)-1] = to
	return waypoints
}

// Frame returns the number of frames stepped.
func (c *Crowd) Frame() int { return c.frame }

// Step advances every character by dt.
func (c *Crowd) Step(dt float32) {
	workers := c.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(c.Characters) {
		workers = len(c.Characters)
	}

	jobs := make(chan int, workers*2)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				c.Characters[idx].Step(dt, c.Settings, c.Ground)
				c.processed.Add(1)
			}
		}()
	}
	for i := range c.Characters {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	c.frame++
}

// Run steps frames frames, capturing snapshots into rec when it is not
// nil. It stops early when ctx is cancelled.
func (c *Crowd) Run(ctx context.Context, frames int, dt float32, rec *Recorder) (Summary, error) {
	start := time.Now()
	summary := Summary{Characters: len(c.Characters)}

	done := make(chan struct{})
	defer close(done)
	go c.reportProgress(done, start)

	for f := 0; f < frames; f++ {
		select {
		case <-ctx.Done():
			summary.Elapsed = time.Since(start)
			return summary, ctx.Err()
		default:
		}

		c.Step(dt)
		summary.Frames++
		for _, ch := range c.Characters {
			summary.MaxAirborne = max(summary.MaxAirborne, ch.Airborne())
		}
		if rec != nil {
			if err := rec.Capture(c.frame, c.Characters); err != nil {
				return summary, err
			}
		}
	}

	for _, ch := range c.Characters {
		summary.Steps += ch.Steps()
		if ch.Route.Done() {
			summary.Arrived++
		}
	}
	summary.Elapsed = time.Since(start)
	return summary, nil
}

func (c *Crowd) reportProgress(done <-chan struct{}, start time.Time) {
	log := logger.Named("crowd")
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			p := c.processed.Load()
			if p == 0 {
				continue
			}
			rate := float64(p) / time.Since(start).Seconds()
			log.Info("simulating",
				zap.Int64("characterSteps", p),
				zap.Float64("stepsPerSecond", rate))
		}
	}
}
