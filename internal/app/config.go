package app

import "fmt"

// Config holds everything an App instance needs to run.
type Config struct {
	// GridPath is a .hcl file or a directory of .hcl files.
	GridPath string
	// CheckpointPath enables checkpoint persistence when non-empty.
	CheckpointPath string
	// CheckpointEvery is the number of finished tasks between periodic
	// checkpoint saves.
	CheckpointEvery int
	// SkipLoad starts the run fresh even when a checkpoint file exists.
	SkipLoad bool
	// LogFormat is "text" or "json".
	LogFormat string
	// LogLevel is "debug", "info", "warn" or "error".
	LogLevel string
}

// NewConfig validates a Config and fills in defaults.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.GridPath == "" {
		return nil, fmt.Errorf("grid path is required")
	}
	if cfg.CheckpointEvery <= 0 {
		cfg.CheckpointEvery = 10
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "json"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	return &cfg, nil
}
