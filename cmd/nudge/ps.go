package main

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/nudgeproject/nudge/pkg/client"
	"github.com/nudgeproject/nudge/pkg/daemon/protocol"
	"github.com/nudgeproject/nudge/pkg/nudge/output"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var psCmd = &cobra.Command{
	Use:   "ps",
	Short: "List controlled processes",
	Long: `List the processes the daemon currently tracks, sorted by CPU time
consumed over the last cycle.

Starts the daemon first if it is not running, unless daemon.auto_start
is disabled in the configuration.`,
	Args: cobra.NoArgs,
	RunE: runPS,
}

func init() {
	rootCmd.AddCommand(psCmd)
	psCmd.Flags().IntVar(&limitFlag, "limit", 0, "Maximum number of processes to show (0 shows all)")
}

func runPS(_ *cobra.Command, _ []string) error {
	formatter, err := resolveFormatter()
	if err != nil {
		return err
	}

	paths := daemonPaths()
	if err := ensureDaemon(paths); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	daemonClient, err := client.ConnectWithContext(ctx, paths.Socket)
	if err != nil {
		return fmt.Errorf("failed to connect to daemon: %w", err)
	}
	defer daemonClient.Close()

	status, err := daemonClient.Status(ctx)
	if err != nil {
		return fmt.Errorf("failed to get daemon status: %w", err)
	}

	snap, err := daemonClient.Processes(ctx, limitFlag)
	if err != nil {
		return fmt.Errorf("failed to list processes: %w", err)
	}

	result := convertToOutputResult(status, snap)

	var buf bytes.Buffer
	if err := formatter.Format(&buf, result); err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	fmt.Print(buf.String())

	return nil
}

// resolveFormatter picks the output formatter from the --output flag,
// handling the template format's required --template argument.
func resolveFormatter() (output.Formatter, error) {
	outFormat := viper.GetString("output")
	if outFormat == "" {
		outFormat = "pretty"
	}

	if outFormat == "template" {
		tmplStr := viper.GetString("template")
		if tmplStr == "" {
			return nil, fmt.Errorf("--template is required when using -o template")
		}
		return output.NewTemplateFormatter(tmplStr), nil
	}

	formatter, err := output.Get(outFormat)
	if err != nil {
		return nil, fmt.Errorf("unknown output format %q: available formats are %v", outFormat, output.Available())
	}
	return formatter, nil
}

// convertToOutputResult maps daemon protocol types onto the output model.
func convertToOutputResult(status *protocol.Status, snap *protocol.Snapshot) *output.Result {
	result := &output.Result{
		Processes: make([]output.ProcessInfo, 0, len(snap.Processes)),
		Stats: output.ControllerStats{
			Cycles:  status.Cycles,
			Applied: status.Applied,
			Failed:  status.Failed,
			Reaped:  status.Reaped,
			Uptime:  time.Duration(status.UptimeSeconds) * time.Second,
		},
		Interval: time.Duration(status.IntervalMS) * time.Millisecond,
		DaemonUp: status.Running,
		Tracked:  snap.Tracked,
	}

	for _, p := range snap.Processes {
		result.Processes = append(result.Processes, output.ProcessInfo{
			PID:        p.PID,
			Name:       p.Name,
			Nice:       p.Nice,
			State:      p.State,
			LastAction: p.LastAction,
			DeltaNS:    p.DeltaNS,
			Delta:      time.Duration(p.DeltaNS).Round(10 * time.Microsecond).String(),
		})
	}

	if !status.Running {
		result.Warnings = append(result.Warnings, "controller is not running")
	}

	return result
}
