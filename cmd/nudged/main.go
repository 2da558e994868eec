// Command nudged is the background daemon: it runs the niceness controller
// and serves the control socket the nudge CLI talks to.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nudgeproject/nudge/pkg/daemon"
	"github.com/nudgeproject/nudge/pkg/nudge/config"
	"github.com/nudgeproject/nudge/pkg/nudge/controller"
	"github.com/nudgeproject/nudge/pkg/nudge/logging"
	"github.com/nudgeproject/nudge/pkg/nudge/procs"
)

func main() {
	// The daemon takes no arguments so it behaves the same however it is
	// started; configuration comes from the standard file locations and
	// NUDGE_ environment variables.
	cfg, err := config.Load("")
	if err != nil {
		fatal(err)
	}
	if err := cfg.Validate(); err != nil {
		fatal(err)
	}

	logCfg, err := cfg.Logging.Runtime("")
	if err != nil {
		fatal(err)
	}
	if err := logging.Init(logCfg); err != nil {
		fatal(err)
	}
	defer logging.Close()

	if err := run(cfg); err != nil {
		logging.Get("daemon").Error("nudged failed", "error", err)
		fatal(err)
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "nudged: %v\n", err)
	os.Exit(1)
}

func run(cfg *config.Config) error {
	logger := logging.Get("daemon")

	dataDir := config.DataDir()
	socketPath := cfg.Daemon.SocketPath
	if socketPath == "" {
		socketPath = config.DefaultSocketPath()
	}
	pidPath := cfg.Daemon.PIDPath
	if pidPath == "" {
		pidPath = config.DefaultPIDPath()
	}
	statusPath := daemon.StatusPath(dataDir)

	// Clean up leftovers from a crashed daemon; refuse to double start.
	if err := daemon.RecoverFromStaleDaemon(pidPath, socketPath, dataDir); err != nil {
		return err
	}

	if err := config.EnsureDataDir(); err != nil {
		return err
	}
	if err := daemon.WritePIDFile(pidPath); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}
	defer func() {
		if err := daemon.RemovePIDFile(pidPath); err != nil {
			logger.Warn("failed to remove PID file", "error", err)
		}
	}()

	src, err := procs.New()
	if err != nil {
		_ = daemon.WriteStatusError(statusPath, err)
		return fmt.Errorf("process accounting unavailable: %w", err)
	}

	// The service fans controller events out to follow subscribers, so the
	// controller is wired to notify it on every applied adjustment.
	var svc *daemon.Service
	ctrl := controller.New(cfg.Controller.Runtime(), src, controller.WithNotify(func(ev controller.Event) {
		svc.NotifyEvent(ev)
	}))
	svc = daemon.NewService(ctrl)
	defer svc.Close()

	srv, err := daemon.NewServer(daemon.Config{SocketPath: socketPath, DataDir: dataDir}, svc)
	if err != nil {
		_ = daemon.WriteStatusError(statusPath, err)
		return fmt.Errorf("failed to create server: %w", err)
	}

	if err := ctrl.Start(context.Background()); err != nil {
		_ = daemon.WriteStatusError(statusPath, err)
		_ = srv.Close()
		return fmt.Errorf("controller failed to start: %w", err)
	}
	defer ctrl.Stop()

	// Signal readiness to clients polling for startup.
	if err := daemon.WriteStatusReady(statusPath); err != nil {
		logger.Warn("failed to write status file", "error", err)
	}
	defer func() {
		if err := daemon.RemoveStatus(statusPath); err != nil {
			logger.Warn("failed to remove status file", "error", err)
		}
	}()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("nudged started", "socket", socketPath, "pid", os.Getpid())

	select {
	case sig := <-sigChan:
		logger.Info("signal received, shutting down", "signal", sig.String())
	case <-svc.ShutdownRequested():
		logger.Info("shutdown requested over control socket")
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}

	if err := srv.Close(); err != nil {
		logger.Warn("error during shutdown", "error", err)
	}
	return nil
}
