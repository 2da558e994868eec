package main

import (
	"testing"
	"time"

	"github.com/nudgeproject/nudge/pkg/nudge/config"
	"github.com/spf13/cobra"
)

// fileConfig returns a config as if loaded from a file, with every value
// different from the flag defaults.
func fileConfig() *config.Config {
	return &config.Config{
		Controller: config.ControllerConfig{
			Alpha:    100,
			Gamma:    800,
			Epsilon:  50,
			Interval: 3 * time.Second,
			Step:     2,
			Seed:     7,
			Exclude:  []string{"systemd"},
		},
	}
}

func TestApplyControllerFlags(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want config.ControllerConfig
	}{
		{
			name: "no flags keeps file values",
			args: nil,
			want: config.ControllerConfig{
				Alpha: 100, Gamma: 800, Epsilon: 50,
				Interval: 3 * time.Second, Step: 2, Seed: 7,
				Exclude: []string{"systemd"},
			},
		},
		{
			name: "explicit flags override file values",
			args: []string{"--alpha", "500", "--interval", "250ms", "--exclude", "init, sshd"},
			want: config.ControllerConfig{
				Alpha: 500, Gamma: 800, Epsilon: 50,
				Interval: 250 * time.Millisecond, Step: 2, Seed: 7,
				Exclude: []string{"init", "sshd"},
			},
		},
		{
			name: "flag set to its default still overrides",
			args: []string{"--step", "5"},
			want: config.ControllerConfig{
				Alpha: 100, Gamma: 800, Epsilon: 50,
				Interval: 3 * time.Second, Step: 5, Seed: 7,
				Exclude: []string{"systemd"},
			},
		},
		{
			name: "empty exclude clears the file list",
			args: []string{"--exclude", ""},
			want: config.ControllerConfig{
				Alpha: 100, Gamma: 800, Epsilon: 50,
				Interval: 3 * time.Second, Step: 2, Seed: 7,
				Exclude: nil,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := &cobra.Command{Use: "test"}
			registerControllerFlags(cmd)
			if err := cmd.Flags().Parse(tt.args); err != nil {
				t.Fatalf("Parse() error = %v", err)
			}

			cfg := fileConfig()
			applyControllerFlags(cmd, cfg)

			got := cfg.Controller
			if got.Alpha != tt.want.Alpha {
				t.Errorf("Alpha = %d, want %d", got.Alpha, tt.want.Alpha)
			}
			if got.Gamma != tt.want.Gamma {
				t.Errorf("Gamma = %d, want %d", got.Gamma, tt.want.Gamma)
			}
			if got.Epsilon != tt.want.Epsilon {
				t.Errorf("Epsilon = %d, want %d", got.Epsilon, tt.want.Epsilon)
			}
			if got.Interval != tt.want.Interval {
				t.Errorf("Interval = %s, want %s", got.Interval, tt.want.Interval)
			}
			if got.Step != tt.want.Step {
				t.Errorf("Step = %d, want %d", got.Step, tt.want.Step)
			}
			if got.Seed != tt.want.Seed {
				t.Errorf("Seed = %d, want %d", got.Seed, tt.want.Seed)
			}
			if len(got.Exclude) != len(tt.want.Exclude) {
				t.Fatalf("Exclude = %v, want %v", got.Exclude, tt.want.Exclude)
			}
			for i, v := range got.Exclude {
				if v != tt.want.Exclude[i] {
					t.Errorf("Exclude[%d] = %q, want %q", i, v, tt.want.Exclude[i])
				}
			}
		})
	}
}

func TestParseCommaSeparated(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "multiple names",
			input: "ffmpeg,nginx,postgres",
			want:  []string{"ffmpeg", "nginx", "postgres"},
		},
		{
			name:  "single name",
			input: "ffmpeg",
			want:  []string{"ffmpeg"},
		},
		{
			name:  "with spaces",
			input: "init, systemd , sshd",
			want:  []string{"init", "systemd", "sshd"},
		},
		{
			name:  "empty",
			input: "",
			want:  nil,
		},
		{
			name:  "only commas",
			input: ",,",
			want:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseCommaSeparated(tt.input)
			if len(got) != len(tt.want) {
				t.Errorf("parseCommaSeparated() = %v, want %v", got, tt.want)
				return
			}
			for i, v := range got {
				if v != tt.want[i] {
					t.Errorf("parseCommaSeparated()[%d] = %q, want %q", i, v, tt.want[i])
				}
			}
		})
	}
}
