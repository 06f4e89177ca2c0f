package config

import "flag"

var (
	flagConfig     = flag.String("config", "", "Path to config file")
	flagDebug      = flag.Bool("debug", false, "Enable debug logging")
	flagModel      = flag.String("model", "", "Behavior model name")
	flagLOD        = flag.Int("lod", -1, "Behavior model level of detail")
	flagFrames     = flag.Int("frames", 0, "Number of frames to simulate")
	flagCharacters = flag.Int("characters", 0, "Number of characters in the crowd")
	flagWorkers    = flag.Int("workers", 0, "Number of worker goroutines")
	flagLogFile    = flag.String("log-file", "", "Write JSON logs to this file")
	flagRecord     = flag.Int("record", 0, "Record a snapshot every N frames")
	flagGround     = flag.String("ground", "", "Load terrain from a GRD ground table")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagModel != "" {
		cfg.Rig.Model = *flagModel
	}
	if *flagLOD >= 0 {
		cfg.Rig.LOD = *flagLOD
	}
	if *flagFrames > 0 {
		cfg.Simulation.Frames = *flagFrames
	}
	if *flagCharacters > 0 {
		cfg.Simulation.Characters = *flagCharacters
	}
	if *flagWorkers > 0 {
		cfg.Simulation.Workers = *flagWorkers
	}
	if *flagRecord > 0 {
		cfg.Simulation.RecordEvery = *flagRecord
	}
	if *flagGround != "" {
		cfg.Ground.File = *flagGround
	}
	if *flagLogFile != "" {
		cfg.Logging.LogFile = *flagLogFile
	}
}
