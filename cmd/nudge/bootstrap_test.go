package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nudgeproject/nudge/pkg/nudge/config"
	"github.com/nudgeproject/nudge/pkg/nudge/logging"
)

func TestInitLogging(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "nudge.log")

	cfg := &config.Config{}
	cfg.Logging.Level = "info"
	cfg.Logging.Path = logPath
	cfg.Logging.Rotation = config.RotationConfig{MaxSize: "10MB", MaxAge: 30, MaxBackups: 5}
	cfg.Logging.Components = map[string]string{"controller": "debug"}

	if err := initLogging(cfg, ""); err != nil {
		t.Fatalf("initLogging() error = %v", err)
	}
	defer logging.Close()

	logger := logging.Get("controller")
	if logger == nil {
		t.Fatal("expected a logger after init")
	}
	logger.Info("test entry")

	if _, err := os.Stat(logPath); err != nil {
		t.Errorf("expected log file at %s: %v", logPath, err)
	}
}

func TestInitLoggingConsoleLevel(t *testing.T) {
	cfg := &config.Config{}
	cfg.Logging.Level = "info"
	cfg.Logging.Path = filepath.Join(t.TempDir(), "nudge.log")

	if err := initLogging(cfg, "debug"); err != nil {
		t.Fatalf("initLogging() error = %v", err)
	}
	defer logging.Close()
}

func TestInitLoggingBadRotation(t *testing.T) {
	cfg := &config.Config{}
	cfg.Logging.Level = "info"
	cfg.Logging.Path = filepath.Join(t.TempDir(), "nudge.log")
	cfg.Logging.Rotation.MaxSize = "not-a-size"

	if err := initLogging(cfg, ""); err == nil {
		t.Error("expected error for invalid rotation size")
	}
}

func TestInitLoggingBadLevel(t *testing.T) {
	cfg := &config.Config{}
	cfg.Logging.Level = "shouty"
	cfg.Logging.Path = filepath.Join(t.TempDir(), "nudge.log")

	if err := initLogging(cfg, ""); err == nil {
		t.Error("expected error for invalid log level")
	}
}
