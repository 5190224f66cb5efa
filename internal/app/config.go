package app

import (
	"errors"
	"fmt"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	FlowPath  string // flow file, or a directory of flow files for validate
	Workspace string // defaults to the flow file's directory

	LogFormat   string
	LogLevel    string
	Output      string // yaml or json
	WorkerCount int
}

func NewConfig(cfg Config) (*Config, error) {
	if cfg.FlowPath == "" {
		return nil, errors.New("FlowPath is a required configuration field and cannot be empty")
	}
	if cfg.Output == "" {
		cfg.Output = "yaml"
	}
	if cfg.Output != "yaml" && cfg.Output != "json" {
		return nil, fmt.Errorf("invalid output %q: must be 'yaml' or 'json'", cfg.Output)
	}
	if cfg.WorkerCount <= 0 {
		return nil, fmt.Errorf("invalid worker count %d: must be positive", cfg.WorkerCount)
	}
	return &cfg, nil
}
