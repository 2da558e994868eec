package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/nudgeproject/nudge/pkg/nudge/config"
	"github.com/nudgeproject/nudge/pkg/nudge/controller"
	"github.com/nudgeproject/nudge/pkg/nudge/logging"
	"github.com/nudgeproject/nudge/pkg/nudge/procs"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the controller in the foreground",
	Long: `Run the niceness controller in the foreground, printing each
adjustment as it is applied. Useful for watching the learner work or
for running under a process supervisor instead of the daemon.

Press Ctrl+C to stop.`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
	registerControllerFlags(runCmd)
}

func runRun(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	applyControllerFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	consoleLevel := "info"
	if getQuiet() {
		consoleLevel = "error"
	}
	if getVerbose() {
		consoleLevel = "debug"
	}
	if err := initLogging(cfg, consoleLevel); err != nil {
		return err
	}
	defer logging.Close()

	src, err := procs.New()
	if err != nil {
		return fmt.Errorf("process accounting unavailable: %w", err)
	}

	ctrl := controller.New(cfg.Controller.Runtime(), src, controller.WithNotify(printEvent))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := ctrl.Start(ctx); err != nil {
		return fmt.Errorf("failed to start controller: %w", err)
	}
	printVerbose("controller started, scanning every %s", cfg.Controller.Interval)

	<-ctx.Done()
	printVerbose("signal received, stopping controller...")
	ctrl.Stop()

	stats := ctrl.Stats()
	printInfo("Stopped after %d cycles: %d nice changes applied, %d failed, %d processes reaped",
		stats.Cycles, stats.Applied, stats.Failed, stats.Reaped)
	return nil
}

// printEvent writes one applied adjustment to stdout as it happens.
func printEvent(ev controller.Event) {
	if getQuiet() {
		return
	}
	fmt.Printf("%s %s[%d] %s %d -> %d\n",
		ev.Time.Format("15:04:05"), ev.Name, ev.PID, ev.Action, ev.OldNice, ev.NewNice)
}
