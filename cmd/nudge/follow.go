package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nudgeproject/nudge/pkg/client"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var followCmd = &cobra.Command{
	Use:   "follow [name-glob...]",
	Short: "Stream niceness adjustments as they happen",
	Long: `Stream every niceness adjustment the daemon applies, optionally
filtered by process name glob and by action.

Examples:
  nudge follow                    # every adjustment
  nudge follow 'post*' nginx      # only matching process names
  nudge follow --actions lower    # only nice-lowering adjustments
  nudge follow -o jsonl           # machine-readable stream

Press Ctrl+C to stop.`,
	RunE: runFollow,
}

func init() {
	rootCmd.AddCommand(followCmd)
	followCmd.Flags().StringVar(&actionsFlag, "actions", "", "Comma-separated actions to show (lower, raise)")
}

func runFollow(_ *cobra.Command, args []string) error {
	paths := daemonPaths()
	if err := ensureDaemon(paths); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	daemonClient, err := client.ConnectWithContext(ctx, paths.Socket)
	if err != nil {
		return fmt.Errorf("failed to connect to daemon: %w", err)
	}
	defer daemonClient.Close()

	events, err := daemonClient.Follow(ctx, args, parseCommaSeparated(actionsFlag))
	if err != nil {
		return fmt.Errorf("failed to follow events: %w", err)
	}

	outFormat := viper.GetString("output")
	jsonl := outFormat == "jsonl" || outFormat == "json"
	enc := json.NewEncoder(os.Stdout)

	for ev := range events {
		if jsonl {
			if err := enc.Encode(ev); err != nil {
				return err
			}
			continue
		}
		fmt.Printf("%s %s[%d] %s %d -> %d\n",
			ev.Time.Format("15:04:05"), ev.Name, ev.PID, ev.Action, ev.OldNice, ev.NewNice)
	}

	// The stream only ends when we are interrupted or the daemon goes away.
	if ctx.Err() == nil {
		return errors.New("event stream closed by daemon")
	}
	return nil
}
