package app

import (
	"errors"

	"github.com/vk/slotflow/internal/config"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	// PipelinePaths are .hcl files or directories containing them.
	PipelinePaths []string
	Settings      config.Settings
	// Explicit names the settings given on the command line. They take
	// precedence over a pipeline's settings block.
	Explicit map[string]bool
}

// NewConfig checks the fields that must be present before loading.
// Settings are validated after the pipeline's own settings are applied.
func NewConfig(cfg Config) (*Config, error) {
	if len(cfg.PipelinePaths) == 0 {
		return nil, errors.New("a pipeline path is required")
	}
	return &cfg, nil
}
