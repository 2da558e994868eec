package output

import (
	"bytes"
	"strconv"
)

// PIDsFormatter formats output as one PID per line.
// It produces a simple list of PIDs suitable for piping to other tools
// (e.g., xargs renice). Only the PIDs are output, without any metadata.
type PIDsFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PIDsFormatter) Format(w *bytes.Buffer, r *Result) error {
	for _, p := range r.Processes {
		w.WriteString(strconv.Itoa(int(p.PID)))
		w.WriteByte('\n')
	}
	return nil
}

func init() {
	Register("pids", func() Formatter {
		return &PIDsFormatter{}
	})
}

// Ensure PIDsFormatter implements Formatter.
var _ Formatter = (*PIDsFormatter)(nil)
