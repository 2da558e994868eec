package main

import (
	"fmt"

	"github.com/nudgeproject/nudge/pkg/nudge/config"
	"github.com/nudgeproject/nudge/pkg/nudge/logging"
)

// initLogging wires the configured logging section into the global logger.
// A non-empty consoleLevel mirrors records at or above that level to
// stderr; empty keeps logging file-only.
func initLogging(cfg *config.Config, consoleLevel string) error {
	logCfg, err := cfg.Logging.Runtime(consoleLevel)
	if err != nil {
		return fmt.Errorf("invalid logging configuration: %w", err)
	}
	if err := logging.Init(logCfg); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	return nil
}
