package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/nudgeproject/nudge/pkg/nudge/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `Manage nudge configuration settings.

Configuration is loaded from:
  1. $XDG_CONFIG_HOME/nudge/config.yaml (if set)
  2. ~/.config/nudge/config.yaml

Environment variables can override config file settings using the NUDGE_ prefix:
  NUDGE_CONTROLLER_EPSILON=50
  NUDGE_CONTROLLER_INTERVAL=2s
  NUDGE_CONTROLLER_EXCLUDE=init,systemd`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long: `Display the current configuration settings from all sources.

With -o yaml the effective configuration is printed as a config file.`,
	RunE: runConfigShow,
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit configuration file",
	Long: `Open the configuration file in your default editor.

The editor is determined by:
  1. $VISUAL environment variable
  2. $EDITOR environment variable
  3. Falls back to 'vi'

If the config file doesn't exist, a default one will be created first.`,
	RunE: runConfigEdit,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create default configuration file",
	Long:  `Create a default configuration file if one doesn't exist.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show configuration file path",
	Long:  `Display the path to the configuration file.`,
	RunE:  runConfigPath,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEditCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}

// runConfigShow displays the current configuration.
func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		printError("Failed to load configuration: %v", err)
		// Show defaults anyway
		cfg = &config.Config{
			Controller: config.ControllerConfig{
				Alpha:    config.DefaultAlpha,
				Gamma:    config.DefaultGamma,
				Epsilon:  config.DefaultEpsilon,
				Interval: config.DefaultInterval,
				Step:     config.DefaultStep,
			},
		}
		cfg.Logging.Level = "info"
		cfg.Daemon.AutoStart = true
	}

	// Machine-readable dump
	if outFormat := viper.GetString("output"); outFormat == "yaml" || outFormat == "json" {
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to marshal configuration: %w", err)
		}
		fmt.Print(string(data))
		return nil
	}

	// Show config file being used
	if configFile := viper.ConfigFileUsed(); configFile != "" {
		fmt.Printf("Config file: %s\n\n", configFile)
	} else {
		fmt.Println("Config file: (using defaults, no file found)")
		fmt.Println()
	}

	// Display configuration
	fmt.Println("Current Configuration:")
	fmt.Println("----------------------")
	fmt.Printf("controller.alpha:       %d\n", cfg.Controller.Alpha)
	fmt.Printf("controller.gamma:       %d\n", cfg.Controller.Gamma)
	fmt.Printf("controller.epsilon:     %d\n", cfg.Controller.Epsilon)
	fmt.Printf("controller.interval:    %s\n", cfg.Controller.Interval)
	fmt.Printf("controller.step:        %d\n", cfg.Controller.Step)
	fmt.Printf("controller.seed:        %d\n", cfg.Controller.Seed)
	fmt.Printf("controller.exclude:     %v\n", cfg.Controller.Exclude)
	fmt.Printf("logging.level:          %s\n", cfg.Logging.Level)
	fmt.Printf("logging.path:           %s\n", cfg.Logging.Path)
	fmt.Printf("logging.rotation:       %s, %d days, %d backups\n",
		cfg.Logging.Rotation.MaxSize, cfg.Logging.Rotation.MaxAge, cfg.Logging.Rotation.MaxBackups)
	fmt.Printf("daemon.auto_start:      %t\n", cfg.Daemon.AutoStart)
	fmt.Printf("daemon.socket_path:     %s\n", cfg.Daemon.SocketPath)
	fmt.Printf("daemon.pid_path:        %s\n", cfg.Daemon.PIDPath)

	// Show any environment overrides
	fmt.Println("\nEnvironment Overrides:")
	fmt.Println("----------------------")
	envVars := []string{
		"NUDGE_CONTROLLER_ALPHA",
		"NUDGE_CONTROLLER_GAMMA",
		"NUDGE_CONTROLLER_EPSILON",
		"NUDGE_CONTROLLER_INTERVAL",
		"NUDGE_CONTROLLER_STEP",
		"NUDGE_CONTROLLER_SEED",
		"NUDGE_CONTROLLER_EXCLUDE",
		"NUDGE_LOGGING_LEVEL",
		"NUDGE_LOGGING_PATH",
		"NUDGE_DAEMON_AUTO_START",
		"NUDGE_DAEMON_SOCKET_PATH",
		"NUDGE_DAEMON_PID_PATH",
	}

	anyOverrides := false
	for _, name := range envVars {
		if val := os.Getenv(name); val != "" {
			fmt.Printf("%s=%s\n", name, val)
			anyOverrides = true
		}
	}
	if !anyOverrides {
		fmt.Println("(none)")
	}

	return nil
}

// runConfigEdit opens the config file in an editor.
func runConfigEdit(cmd *cobra.Command, args []string) error {
	// Ensure config file exists
	if err := config.WriteDefault(); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	// Get config file path
	configDir, err := config.ConfigDir()
	if err != nil {
		return fmt.Errorf("failed to get config directory: %w", err)
	}
	configPath := filepath.Join(configDir, "config.yaml")

	// Determine editor
	editor := os.Getenv("VISUAL")
	if editor == "" {
		editor = os.Getenv("EDITOR")
	}
	if editor == "" {
		editor = "vi"
	}

	printVerbose("Opening %s with %s", configPath, editor)

	// Open editor
	editorCmd := exec.Command(editor, configPath)
	editorCmd.Stdin = os.Stdin
	editorCmd.Stdout = os.Stdout
	editorCmd.Stderr = os.Stderr

	if err := editorCmd.Run(); err != nil {
		return fmt.Errorf("editor command failed: %w", err)
	}

	return nil
}

// runConfigInit creates a default config file.
func runConfigInit(cmd *cobra.Command, args []string) error {
	configDir, err := config.ConfigDir()
	if err != nil {
		return fmt.Errorf("failed to get config directory: %w", err)
	}
	configPath := filepath.Join(configDir, "config.yaml")

	// Check if config already exists
	if _, err := os.Stat(configPath); err == nil {
		printInfo("Config file already exists: %s", configPath)
		printInfo("Use 'nudge config edit' to modify it.")
		return nil
	}

	// Create default config
	if err := config.WriteDefault(); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	printInfo("Created default config file: %s", configPath)
	return nil
}

// runConfigPath shows the config file path.
func runConfigPath(cmd *cobra.Command, args []string) error {
	configDir, err := config.ConfigDir()
	if err != nil {
		return fmt.Errorf("failed to get config directory: %w", err)
	}
	configPath := filepath.Join(configDir, "config.yaml")

	fmt.Println(configPath)

	// Show if file exists
	if _, err := os.Stat(configPath); err == nil {
		printVerbose("File exists")
	} else if os.IsNotExist(err) {
		printVerbose("File does not exist (will use defaults)")
	}

	return nil
}
