package main

import (
	"errors"
	"os"

	"github.com/nudgeproject/nudge/cmd/nudge/tui"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var topCmd = &cobra.Command{
	Use:   "top",
	Short: "Watch controlled processes in a live view",
	Long: `Show a live-updating table of the processes under control, their
load states, current niceness and the adjustments being applied.

This is also what plain 'nudge' runs. Keys: q quits, r refreshes.`,
	Args: cobra.NoArgs,
	RunE: runTop,
}

func init() {
	rootCmd.AddCommand(topCmd)
}

func runTop(_ *cobra.Command, _ []string) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New("the live view needs a terminal (try: nudge ps)")
	}

	paths := daemonPaths()
	if err := ensureDaemon(paths); err != nil {
		return err
	}

	return tui.Run(tui.Options{Socket: paths.Socket})
}
