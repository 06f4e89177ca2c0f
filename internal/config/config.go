// Package config handles simulator configuration loading and management.
package config

import (
	"fmt"

	"go.uber.org/multierr"

	"github.com/Faultbox/midgard-rig/internal/locomotor"
)

// Config holds all simulator settings.
type Config struct {
	Simulation SimulationConfig `yaml:"simulation"`
	Locomotor  LocomotorConfig  `yaml:"locomotor"`
	Rig        RigConfig        `yaml:"rig"`
	Ground     GroundConfig     `yaml:"ground"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// SimulationConfig holds the frame loop and crowd settings.
type SimulationConfig struct {
	DeltaTime  float32 `yaml:"delta_time"`
	Frames     int     `yaml:"frames"`
	Workers    int     `yaml:"workers"`
	Characters int     `yaml:"characters"`

	// Spacing is the distance between characters on the start line.
	Spacing     float32 `yaml:"spacing"`
	WalkSpeed   float32 `yaml:"walk_speed"`
	RouteLength float32 `yaml:"route_length"`

	// RecordEvery stores a snapshot every N frames; 0 disables recording.
	RecordEvery int    `yaml:"record_every"`
	RecordFile  string `yaml:"record_file"`
}

// LocomotorConfig holds the tuning passed to every locomotor tick.
type LocomotorConfig struct {
	Movement locomotor.MovementSettings `yaml:"movement"`
	Step     locomotor.StepSettings     `yaml:"step"`
	Pelvis   locomotor.PelvisSettings   `yaml:"pelvis"`
	Foot     locomotor.FootSettings     `yaml:"foot"`
}

// RigConfig holds behavior model settings.
type RigConfig struct {
	ModelDirs []string `yaml:"model_dirs"` // Directories searched for behavior models
	Model     string   `yaml:"model"`      // Model name; empty disables rig evaluation
	LOD       int      `yaml:"lod"`
	Skeleton  string   `yaml:"skeleton"`   // Optional skeleton definition file
}

// GroundConfig describes the terrain the crowd walks on. File, when set,
// names a GRD ground table that replaces the generated hills.
type GroundConfig struct {
	File      string  `yaml:"file"`
	Width     int     `yaml:"width"`
	Depth     int     `yaml:"depth"`
	CellSize  float32 `yaml:"cell_size"`
	Amplitude float32 `yaml:"amplitude"`

	// Wavelength of the generated rolling hills in world units.
	Wavelength float32          `yaml:"wavelength"`
	Platforms  []PlatformConfig `yaml:"platforms"`
}

// PlatformConfig is an axis-aligned box placed on the ground.
type PlatformConfig struct {
	Min [3]float32 `yaml:"min"`
	Max [3]float32 `yaml:"max"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Simulation: SimulationConfig{
			DeltaTime:   1.0 / 60.0,
			Frames:      600,
			Workers:     4,
			Characters:  8,
			Spacing:     1.5,
			WalkSpeed:   1.2,
			RouteLength: 20,
			RecordEvery: 0,
			RecordFile:  "recording.yaml",
		},
		Locomotor: LocomotorConfig{
			Movement: locomotor.DefaultMovementSettings(),
			Step:     locomotor.DefaultStepSettings(),
			Pelvis:   locomotor.DefaultPelvisSettings(),
			Foot:     locomotor.DefaultFootSettings(),
		},
		Rig: RigConfig{
			ModelDirs: []string{"models"},
			Model:     "",
			LOD:       0,
		},
		Ground: GroundConfig{
			Width:      64,
			Depth:      64,
			CellSize:   1,
			Amplitude:  0.3,
			Wavelength: 12,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Validate reports every setting that would make the simulation misbehave.
func (c *Config) Validate() error {
	var err error
	if c.Simulation.DeltaTime <= 0 {
		err = multierr.Append(err, fmt.Errorf("simulation.delta_time must be positive, got %v", c.Simulation.DeltaTime))
	}
	if c.Simulation.Frames < 0 {
		err = multierr.Append(err, fmt.Errorf("simulation.frames must not be negative, got %d", c.Simulation.Frames))
	}
	if c.Simulation.Workers < 1 {
		err = multierr.Append(err, fmt.Errorf("simulation.workers must be at least 1, got %d", c.Simulation.Workers))
	}
	if c.Simulation.Characters < 0 {
		err = multierr.Append(err, fmt.Errorf("simulation.characters must not be negative, got %d", c.Simulation.Characters))
	}
	mv := c.Locomotor.Movement
	if mv.SpeedMin < 0 || mv.SpeedMax < mv.SpeedMin {
		err = multierr.Append(err, fmt.Errorf("locomotor.movement speed range [%v, %v] is invalid", mv.SpeedMin, mv.SpeedMax))
	}
	if c.Rig.LOD < 0 {
		err = multierr.Append(err, fmt.Errorf("rig.lod must not be negative, got %d", c.Rig.LOD))
	}
	if c.Ground.Width < 2 || c.Ground.Depth < 2 {
		err = multierr.Append(err, fmt.Errorf("ground must be at least 2x2 samples, got %dx%d", c.Ground.Width, c.Ground.Depth))
	}
	if c.Ground.CellSize <= 0 {
		err = multierr.Append(err, fmt.Errorf("ground.cell_size must be positive, got %v", c.Ground.CellSize))
	}
	return err
}
