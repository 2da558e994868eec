package output

import (
	"bytes"
	"encoding/json"
	"time"
)

// jsonOutput represents the full JSON output structure.
type jsonOutput struct {
	Processes []jsonProcess `json:"processes"`
	Stats     jsonStats     `json:"stats"`
	Meta      jsonMeta      `json:"meta"`
}

// jsonProcess represents a controlled process in JSON output.
type jsonProcess struct {
	PID        int32  `json:"pid"`
	Name       string `json:"name,omitempty"`
	Nice       int    `json:"nice"`
	State      string `json:"state"`
	LastAction string `json:"last_action"`
	DeltaNS    uint64 `json:"delta_ns"`
	Delta      string `json:"delta,omitempty"`
}

// jsonStats represents controller statistics in JSON output.
type jsonStats struct {
	Cycles  uint64 `json:"cycles"`
	Applied uint64 `json:"applied"`
	Failed  uint64 `json:"failed"`
	Reaped  uint64 `json:"reaped"`
	Uptime  string `json:"uptime,omitempty"`
}

// jsonMeta represents metadata in JSON output.
type jsonMeta struct {
	Interval     string   `json:"interval,omitempty"`
	DaemonUp     bool     `json:"daemon_up"`
	Tracked      int      `json:"tracked"`
	TotalDeltaNS uint64   `json:"total_delta_ns"`
	Warnings     []string `json:"warnings,omitempty"`
}

// JSONFormatter formats output as a single indented JSON object.
// It produces a complete JSON document with processes, stats, and meta
// sections.
type JSONFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *JSONFormatter) Format(w *bytes.Buffer, r *Result) error {
	output := f.buildOutput(r)

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}

// buildOutput converts Result to the JSON output structure.
func (f *JSONFormatter) buildOutput(r *Result) jsonOutput {
	processes := make([]jsonProcess, len(r.Processes))
	for i, p := range r.Processes {
		processes[i] = jsonProcess{
			PID:        p.PID,
			Name:       p.Name,
			Nice:       p.Nice,
			State:      p.State,
			LastAction: p.LastAction,
			DeltaNS:    p.DeltaNS,
			Delta:      p.Delta,
		}
	}

	stats := jsonStats{
		Cycles:  r.Stats.Cycles,
		Applied: r.Stats.Applied,
		Failed:  r.Stats.Failed,
		Reaped:  r.Stats.Reaped,
		Uptime:  formatDurationString(r.Stats.Uptime),
	}

	meta := jsonMeta{
		Interval:     formatDurationString(r.Interval),
		DaemonUp:     r.DaemonUp,
		Tracked:      r.Tracked,
		TotalDeltaNS: r.TotalDeltaNS(),
		Warnings:     r.Warnings,
	}

	return jsonOutput{
		Processes: processes,
		Stats:     stats,
		Meta:      meta,
	}
}

// formatDurationString formats a duration as a string for JSON output.
func formatDurationString(d time.Duration) string {
	if d == 0 {
		return ""
	}
	return d.String()
}

func init() {
	Register("json", func() Formatter {
		return &JSONFormatter{}
	})
}

// Ensure JSONFormatter implements Formatter.
var _ Formatter = (*JSONFormatter)(nil)

// JSONLFormatter formats output as newline-delimited JSON (one object per line).
// Each process is written as a compact JSON object on its own line.
// This format is suitable for streaming processing with tools like jq.
type JSONLFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *JSONLFormatter) Format(w *bytes.Buffer, r *Result) error {
	for _, p := range r.Processes {
		jp := jsonProcess{
			PID:        p.PID,
			Name:       p.Name,
			Nice:       p.Nice,
			State:      p.State,
			LastAction: p.LastAction,
			DeltaNS:    p.DeltaNS,
			Delta:      p.Delta,
		}

		data, err := json.Marshal(jp)
		if err != nil {
			return err
		}
		w.Write(data)
		w.WriteByte('\n')
	}
	return nil
}

func init() {
	Register("jsonl", func() Formatter {
		return &JSONLFormatter{}
	})
}

// Ensure JSONLFormatter implements Formatter.
var _ Formatter = (*JSONLFormatter)(nil)
