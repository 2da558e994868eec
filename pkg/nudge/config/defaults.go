// Package config provides configuration management for the nudge controller
// and daemon.
package config

import "time"

// Default configuration values for nudge.
const (
	// DefaultAlpha is the default learning rate in permille.
	DefaultAlpha = 200

	// DefaultGamma is the default discount factor in permille.
	DefaultGamma = 900

	// DefaultEpsilon is the default exploration probability in permille.
	DefaultEpsilon = 200

	// DefaultInterval is the default pause between scan cycles.
	DefaultInterval = time.Second

	// DefaultStep is how many niceness points one adjustment moves.
	DefaultStep = 5
)
