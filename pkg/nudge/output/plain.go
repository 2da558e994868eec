package output

import (
	"bytes"
	"strconv"
	"text/tabwriter"
)

// PlainFormatter formats output as a simple tab-separated table.
// It produces plain text output suitable for scripting and piping.
// No colors or styling are applied.
type PlainFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PlainFormatter) Format(w *bytes.Buffer, r *Result) error {
	// Use tabwriter for aligned columns
	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)

	// Write header
	_, err := tw.Write([]byte("PID\tNAME\tNICE\tCPU\tSTATE\tACTION\n"))
	if err != nil {
		return err
	}

	// Write data rows
	for _, p := range r.Processes {
		row := strconv.Itoa(int(p.PID)) + "\t" +
			p.Name + "\t" +
			strconv.Itoa(p.Nice) + "\t" +
			p.Delta + "\t" +
			p.State + "\t" +
			p.LastAction + "\n"
		if _, err := tw.Write([]byte(row)); err != nil {
			return err
		}
	}

	// Flush tabwriter to buffer
	return tw.Flush()
}

func init() {
	Register("plain", func() Formatter {
		return &PlainFormatter{}
	})
}

// Ensure PlainFormatter implements Formatter.
var _ Formatter = (*PlainFormatter)(nil)
