// Package main is the entry point for the crowd locomotion simulator.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-rig/internal/assets"
	"github.com/Faultbox/midgard-rig/internal/config"
	"github.com/Faultbox/midgard-rig/internal/ground"
	"github.com/Faultbox/midgard-rig/internal/logger"
	"github.com/Faultbox/midgard-rig/internal/rig"
	"github.com/Faultbox/midgard-rig/internal/riglogic"
	"github.com/Faultbox/midgard-rig/internal/sim"
)

func main() {
	// Parse CLI flags first
	config.ParseFlags()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("=== Midgard Rig Simulator ===")
	logger.Sugar.Debugf("Config: %+v", cfg)

	if err := run(cfg); err != nil {
		logger.Error("simulation failed", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
	logger.Info("simulation finished normally")
}

func run(cfg *config.Config) error {
	var model *riglogic.BehaviorModel
	if cfg.Rig.Model != "" {
		models := assets.NewManager()
		for _, dir := range cfg.Rig.ModelDirs {
			if err := models.AddDir(dir); err != nil {
				logger.Warn("skipping model dir", zap.String("dir", dir), zap.Error(err))
			}
		}
		defer models.Close()

		m, err := models.Model(cfg.Rig.Model)
		if err != nil {
			return fmt.Errorf("loading behavior model: %w", err)
		}
		model = m
	}

	var skeleton *rig.SkeletonDef
	if cfg.Rig.Skeleton != "" {
		def, err := rig.LoadSkeleton(cfg.Rig.Skeleton)
		if err != nil {
			return err
		}
		skeleton = def
	}

	scene, err := ground.LoadScene(cfg.Ground)
	if err != nil {
		return err
	}
	logger.Info("scene ready",
		zap.String("file", cfg.Ground.File),
		zap.Int("cellsX", scene.Terrain.CellsX),
		zap.Int("cellsZ", scene.Terrain.CellsZ),
		zap.Int("platforms", len(scene.Platforms)))

	crowd, err := sim.NewCrowd(cfg, scene, skeleton, model)
	if err != nil {
		return fmt.Errorf("creating crowd: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var rec *sim.Recorder
	if cfg.Simulation.RecordEvery > 0 {
		rec = sim.NewRecorder(cfg.Simulation.RecordEvery)
	}

	summary, err := crowd.Run(ctx, cfg.Simulation.Frames, cfg.Simulation.DeltaTime, rec)
	switch {
	case errors.Is(err, context.Canceled):
		logger.Warn("simulation interrupted", zap.Int("frame", crowd.Frame()))
	case err != nil:
		return err
	}

	if rec != nil && rec.Len() > 0 {
		if err := rec.Save(cfg.Simulation.RecordFile); err != nil {
			return err
		}
		logger.Info("recording saved",
			zap.String("path", cfg.Simulation.RecordFile),
			zap.Int("records", rec.Len()))
	}

	logger.Info("summary",
		zap.Int("frames", summary.Frames),
		zap.Int("characters", summary.Characters),
		zap.Int("arrived", summary.Arrived),
		zap.Int("steps", summary.Steps),
		zap.Int("maxAirborne", summary.MaxAirborne),
		zap.Duration("elapsed", summary.Elapsed))
	return nil
}
