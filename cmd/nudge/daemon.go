package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/nudgeproject/nudge/pkg/client"
	"github.com/nudgeproject/nudge/pkg/nudge/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Manage the nudged daemon",
	Long: `Manage the nudged daemon that adjusts process priorities in the background.

The daemon samples per-process CPU time on a fixed interval and learns
which niceness adjustments keep heavy processes out of the way.`,
}

var daemonStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the nudged daemon",
	Long:  `Start the nudged daemon in the background.`,
	RunE:  runDaemonStart,
}

var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the nudged daemon",
	Long:  `Stop the nudged daemon gracefully.`,
	RunE:  runDaemonStop,
}

var daemonRestartCmd = &cobra.Command{
	Use:   "restart",
	Short: "Restart the nudged daemon",
	Long:  `Stop and start the nudged daemon.`,
	RunE:  runDaemonRestart,
}

var daemonStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon status",
	Long:  `Show the current status of the nudged daemon.`,
	RunE:  runDaemonStatus,
}

func init() {
	rootCmd.AddCommand(daemonCmd)
	daemonCmd.AddCommand(daemonStartCmd)
	daemonCmd.AddCommand(daemonStopCmd)
	daemonCmd.AddCommand(daemonRestartCmd)
	daemonCmd.AddCommand(daemonStatusCmd)
}

// daemonPaths resolves the daemon's binary, socket and PID paths from
// configuration, with the --socket flag taking precedence.
func daemonPaths() client.DaemonPaths {
	paths := client.DaemonPaths{}

	cfg, err := config.Load(cfgFile)
	if err == nil {
		paths.Binary = cfg.Daemon.BinaryPath
		paths.Socket = cfg.Daemon.SocketPath
		paths.PID = cfg.Daemon.PIDPath
	}

	if s := viper.GetString("socket"); s != "" {
		paths.Socket = s
	}
	if paths.Socket == "" {
		paths.Socket = client.DefaultSocketPath()
	}
	if paths.PID == "" {
		paths.PID = client.DefaultPIDPath()
	}
	return paths
}

// ensureDaemon starts the daemon when auto-start is enabled; otherwise it
// only checks that one is already running.
func ensureDaemon(paths client.DaemonPaths) error {
	if client.IsDaemonRunning(paths.PID) {
		return nil
	}

	cfg, err := config.Load(cfgFile)
	if err == nil && !cfg.Daemon.AutoStart {
		return errors.New("daemon is not running (start with: nudge daemon start)")
	}

	printVerbose("daemon not running, starting it...")
	return client.StartDaemon(paths)
}

func runDaemonStart(_ *cobra.Command, _ []string) error {
	printVerbose("starting daemon...")
	if err := client.StartDaemon(daemonPaths()); err != nil {
		printVerbose("start failed: %v", err)
		return err
	}
	printVerbose("daemon started successfully")
	printInfo("Daemon started")
	return nil
}

func runDaemonStop(_ *cobra.Command, _ []string) error {
	paths := daemonPaths()

	printVerbose("checking PID file: %s", paths.PID)
	printVerbose("socket path: %s", paths.Socket)

	// Check if running
	if !client.IsDaemonRunning(paths.PID) {
		printVerbose("daemon not running (PID check failed)")
		return errors.New("daemon is not running")
	}
	printVerbose("daemon is running")

	// Connect and send shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	printVerbose("connecting to daemon...")
	daemonClient, err := client.ConnectWithContext(ctx, paths.Socket)
	if err != nil {
		return fmt.Errorf("failed to connect to daemon: %w", err)
	}
	defer daemonClient.Close()
	printVerbose("connected, sending shutdown request...")

	if err := daemonClient.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to stop daemon: %w", err)
	}
	printVerbose("shutdown request sent, waiting for daemon to stop...")

	// Wait for the daemon to stop
	for i := range 20 {
		time.Sleep(250 * time.Millisecond)
		if !client.IsDaemonRunning(paths.PID) {
			printVerbose("daemon stopped after %d checks", i+1)
			printInfo("Daemon stopped")
			return nil
		}
		printVerbose("still running (check %d/20)", i+1)
	}

	return errors.New("daemon did not stop in time")
}

func runDaemonRestart(cmd *cobra.Command, args []string) error {
	paths := daemonPaths()

	// Stop if running
	if client.IsDaemonRunning(paths.PID) {
		if err := runDaemonStop(cmd, args); err != nil {
			return fmt.Errorf("failed to stop daemon: %w", err)
		}
	}

	// Start daemon
	if err := runDaemonStart(cmd, args); err != nil {
		return fmt.Errorf("failed to start daemon: %w", err)
	}

	return nil
}

func runDaemonStatus(_ *cobra.Command, _ []string) error {
	paths := daemonPaths()

	// Check if running
	if !client.IsDaemonRunning(paths.PID) {
		printInfo("Daemon status: not running")
		return nil
	}

	// Connect and get status
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	daemonClient, err := client.ConnectWithContext(ctx, paths.Socket)
	if err != nil {
		printInfo("Daemon status: running (but not responding)")
		return nil
	}
	defer daemonClient.Close()

	status, err := daemonClient.Status(ctx)
	if err != nil {
		return fmt.Errorf("failed to get daemon status: %w", err)
	}

	printInfo("Daemon status: running")
	printInfo("  Uptime: %s", formatDuration(time.Duration(status.UptimeSeconds)*time.Second))
	printInfo("  Memory: %s", humanize.Bytes(uint64(status.MemoryBytes)))
	printInfo("  Cycles: %d", status.Cycles)
	printInfo("  Tracked: %d processes", status.Tracked)
	printInfo("  Applied: %d nice changes (%d failed)", status.Applied, status.Failed)
	printInfo("  Reaped: %d exited processes", status.Reaped)
	printInfo("  Learning: alpha=%d gamma=%d epsilon=%d step=%d interval=%s",
		status.Alpha, status.Gamma, status.Epsilon, status.Step,
		time.Duration(status.IntervalMS)*time.Millisecond)

	return nil
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	if d < 24*time.Hour {
		return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
	}
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	return fmt.Sprintf("%dd %dh", days, hours)
}
