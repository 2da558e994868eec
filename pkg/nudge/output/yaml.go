package output

import (
	"bytes"

	"gopkg.in/yaml.v3"
)

// yamlOutput represents the full YAML output structure.
type yamlOutput struct {
	Processes []yamlProcess `yaml:"processes"`
	Stats     yamlStats     `yaml:"stats"`
	Meta      yamlMeta      `yaml:"meta"`
}

// yamlProcess represents a controlled process in YAML output.
type yamlProcess struct {
	PID        int32  `yaml:"pid"`
	Name       string `yaml:"name,omitempty"`
	Nice       int    `yaml:"nice"`
	State      string `yaml:"state"`
	LastAction string `yaml:"last_action"`
	DeltaNS    uint64 `yaml:"delta_ns"`
	Delta      string `yaml:"delta,omitempty"`
}

// yamlStats represents controller statistics in YAML output.
type yamlStats struct {
	Cycles  uint64 `yaml:"cycles"`
	Applied uint64 `yaml:"applied"`
	Failed  uint64 `yaml:"failed"`
	Reaped  uint64 `yaml:"reaped"`
	Uptime  string `yaml:"uptime,omitempty"`
}

// yamlMeta represents metadata in YAML output.
type yamlMeta struct {
	Interval     string   `yaml:"interval,omitempty"`
	DaemonUp     bool     `yaml:"daemon_up"`
	Tracked      int      `yaml:"tracked"`
	TotalDeltaNS uint64   `yaml:"total_delta_ns"`
	Warnings     []string `yaml:"warnings,omitempty"`
}

// YAMLFormatter formats output as YAML.
// It produces the same structure as JSONFormatter but in YAML format.
type YAMLFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *YAMLFormatter) Format(w *bytes.Buffer, r *Result) error {
	output := f.buildOutput(r)

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(output); err != nil {
		return err
	}
	return encoder.Close()
}

// buildOutput converts Result to the YAML output structure.
func (f *YAMLFormatter) buildOutput(r *Result) yamlOutput {
	processes := make([]yamlProcess, len(r.Processes))
	for i, p := range r.Processes {
		processes[i] = yamlProcess{
			PID:        p.PID,
			Name:       p.Name,
			Nice:       p.Nice,
			State:      p.State,
			LastAction: p.LastAction,
			DeltaNS:    p.DeltaNS,
			Delta:      p.Delta,
		}
	}

	stats := yamlStats{
		Cycles:  r.Stats.Cycles,
		Applied: r.Stats.Applied,
		Failed:  r.Stats.Failed,
		Reaped:  r.Stats.Reaped,
		Uptime:  formatDurationString(r.Stats.Uptime),
	}

	meta := yamlMeta{
		Interval:     formatDurationString(r.Interval),
		DaemonUp:     r.DaemonUp,
		Tracked:      r.Tracked,
		TotalDeltaNS: r.TotalDeltaNS(),
		Warnings:     r.Warnings,
	}

	return yamlOutput{
		Processes: processes,
		Stats:     stats,
		Meta:      meta,
	}
}

func init() {
	Register("yaml", func() Formatter {
		return &YAMLFormatter{}
	})
}

// Ensure YAMLFormatter implements Formatter.
var _ Formatter = (*YAMLFormatter)(nil)
