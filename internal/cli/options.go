package cli

import (
	"fmt"

	"github.com/aretw0/cueline/internal/config"
)

// ServeOptions contains all the configuration for the serve and mcp commands.
type ServeOptions struct {
	ShowPath   string
	ConfigPath string
	// Overrides are flat config keys set from flags, applied over the config file.
	Overrides map[string]any

	Headless bool   // never start the TUI
	Input    string // "", "json" or "text": read commands from stdin
	Watch    bool   // hot reload the show on change
	RunID    string
	Resume   bool
	NoBanner bool

	// MCP transport: "stdio" or "sse".
	Transport string
	SSEAddr   string
}

// loadConfig reads the config file and applies flag overrides.
func loadConfig(opts ServeOptions) (config.Config, error) {
	path := opts.ConfigPath
	if path == "" {
		path = config.DefaultPath
	}
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}
	if err := cfg.Apply(opts.Overrides); err != nil {
		return cfg, fmt.Errorf("invalid flags: %w", err)
	}
	return cfg, nil
}
