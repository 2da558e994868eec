package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nudgeproject/nudge/pkg/nudge/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "nudge",
		Short: "Adaptive process niceness controller",
		Long: `Nudge watches every process's CPU consumption and continuously adjusts
process niceness with a small per-process reinforcement learner.

The controller usually runs inside the nudged daemon; the CLI talks to it
over a Unix socket. Use 'nudge run' to run the controller in the foreground
instead.

Examples:
  nudge                      # Live view of tracked processes (TUI)
  nudge ps                   # One-shot listing of tracked processes
  nudge ps -o json           # Same, as JSON
  nudge follow 'post*'       # Stream niceness changes for matching names
  nudge run --interval 2s    # Run the controller in the foreground
  nudge daemon status        # Show daemon status
  nudge config show          # Show configuration`,
		Args: cobra.NoArgs,
		RunE: runTop,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.config/nudge/config.yaml)")
	rootCmd.PersistentFlags().StringP("output", "o", "", "output format (pretty, plain, json, jsonl, yaml, tsv, csv, markdown, pids, template)")
	rootCmd.PersistentFlags().String("template", "", "Go template for -o template")
	rootCmd.PersistentFlags().String("socket", "", "daemon socket path override")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "minimal output")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "debug output")

	// Bind flags to viper
	_ = viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output"))
	_ = viper.BindPFlag("template", rootCmd.PersistentFlags().Lookup("template"))
	_ = viper.BindPFlag("socket", rootCmd.PersistentFlags().Lookup("socket"))
	_ = viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// initConfig reads in config file and environment variables.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Set config name and type
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")

		// Add config paths in order of precedence
		if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
			viper.AddConfigPath(filepath.Join(xdgConfigHome, "nudge"))
		}

		homeDir, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(homeDir, ".config", "nudge"))
		}
	}

	// Set environment variable prefix and enable auto env binding
	viper.SetEnvPrefix("NUDGE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	// Set defaults from config package
	viper.SetDefault("controller.alpha", config.DefaultAlpha)
	viper.SetDefault("controller.gamma", config.DefaultGamma)
	viper.SetDefault("controller.epsilon", config.DefaultEpsilon)
	viper.SetDefault("controller.interval", config.DefaultInterval)
	viper.SetDefault("controller.step", config.DefaultStep)
	viper.SetDefault("output", "pretty")

	// Read config file (ignore if not found)
	_ = viper.ReadInConfig()
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// getVerbose returns true if verbose mode is enabled.
func getVerbose() bool {
	return viper.GetBool("verbose")
}

// getQuiet returns true if quiet mode is enabled.
func getQuiet() bool {
	return viper.GetBool("quiet")
}

// printVerbose prints a message if verbose mode is enabled.
func printVerbose(format string, args ...interface{}) {
	if getVerbose() && !getQuiet() {
		fmt.Fprintf(os.Stderr, "[DEBUG] "+format+"\n", args...)
	}
}

// printInfo prints a message if quiet mode is not enabled.
func printInfo(format string, args ...interface{}) {
	if !getQuiet() {
		fmt.Printf(format+"\n", args...)
	}
}

// printError prints an error message to stderr.
func printError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}
