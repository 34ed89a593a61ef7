package app

import (
	"errors"
	"fmt"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	GridPath string // pipeline file or directory of .hcl files

	// Root, Budget and Targets override the pipeline's settings when set.
	Root    string
	Budget  int
	Targets []string
	DryRun  bool

	LogFormat       string
	LogLevel        string
	HealthcheckPort int
	// ReportPath, when set, receives the run report as JSON.
	ReportPath string
	Color      bool
}

// NewConfig validates cfg and returns a copy of it.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.GridPath == "" {
		return nil, errors.New("GridPath is a required configuration field and cannot be empty")
	}
	if cfg.Budget < 0 {
		return nil, fmt.Errorf("budget must be positive, got %d", cfg.Budget)
	}
	if cfg.HealthcheckPort < 0 || cfg.HealthcheckPort > 65535 {
		return nil, fmt.Errorf("invalid healthcheck port %d", cfg.HealthcheckPort)
	}
	return &cfg, nil
}
