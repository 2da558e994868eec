package main

import (
	"strings"
	"time"

	"github.com/nudgeproject/nudge/pkg/nudge/config"
	"github.com/spf13/cobra"
)

// Flag variables shared by the run, ps and follow commands.
var (
	// Controller overrides (run)
	intervalFlag time.Duration
	alphaFlag    int64
	gammaFlag    int64
	epsilonFlag  int64
	stepFlag     int
	seedFlag     int64
	excludeFlag  string

	// Listing flags (ps)
	limitFlag int

	// Event filters (follow)
	actionsFlag string
)

// registerControllerFlags adds the learning parameter overrides to a command.
func registerControllerFlags(cmd *cobra.Command) {
	cmd.Flags().DurationVar(&intervalFlag, "interval", config.DefaultInterval, "Pause between scan cycles")
	cmd.Flags().Int64Var(&alphaFlag, "alpha", config.DefaultAlpha, "Learning rate in permille (0-1000)")
	cmd.Flags().Int64Var(&gammaFlag, "gamma", config.DefaultGamma, "Discount factor in permille (0-1000)")
	cmd.Flags().Int64Var(&epsilonFlag, "epsilon", config.DefaultEpsilon, "Exploration probability in permille (0-1000)")
	cmd.Flags().IntVar(&stepFlag, "step", config.DefaultStep, "Niceness points per adjustment")
	cmd.Flags().Int64Var(&seedFlag, "seed", 0, "Exploration seed (0 uses OS entropy)")
	cmd.Flags().StringVar(&excludeFlag, "exclude", "", "Comma-separated process names to leave alone")
}

// applyControllerFlags overlays explicitly set CLI flags onto the loaded
// configuration. Flags left at their defaults do not override the file.
func applyControllerFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("interval") {
		cfg.Controller.Interval = intervalFlag
	}
	if cmd.Flags().Changed("alpha") {
		cfg.Controller.Alpha = alphaFlag
	}
	if cmd.Flags().Changed("gamma") {
		cfg.Controller.Gamma = gammaFlag
	}
	if cmd.Flags().Changed("epsilon") {
		cfg.Controller.Epsilon = epsilonFlag
	}
	if cmd.Flags().Changed("step") {
		cfg.Controller.Step = stepFlag
	}
	if cmd.Flags().Changed("seed") {
		cfg.Controller.Seed = seedFlag
	}
	if cmd.Flags().Changed("exclude") {
		cfg.Controller.Exclude = parseCommaSeparated(excludeFlag)
	}
}

// parseCommaSeparated splits a comma-separated string and trims whitespace.
func parseCommaSeparated(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
