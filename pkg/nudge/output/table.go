package output

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
)

// tableRow flattens a process into the columns shared by the tabular
// formatters.
func tableRow(p ProcessInfo) []string {
	return []string{
		strconv.Itoa(int(p.PID)),
		p.Name,
		strconv.Itoa(p.Nice),
		p.Delta,
		p.State,
		p.LastAction,
	}
}

// tableHeader is the column header row shared by the tabular formatters.
var tableHeader = []string{"PID", "NAME", "NICE", "CPU", "STATE", "ACTION"}

// TSVFormatter formats output as tab-separated values.
// It produces a simple table with a header row followed by data rows.
type TSVFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *TSVFormatter) Format(w *bytes.Buffer, r *Result) error {
	// Write header
	w.WriteString(strings.Join(tableHeader, "\t"))
	w.WriteByte('\n')

	// Write data rows
	for _, p := range r.Processes {
		w.WriteString(strings.Join(tableRow(p), "\t"))
		w.WriteByte('\n')
	}

	return nil
}

func init() {
	Register("tsv", func() Formatter {
		return &TSVFormatter{}
	})
}

// Ensure TSVFormatter implements Formatter.
var _ Formatter = (*TSVFormatter)(nil)

// CSVFormatter formats output as comma-separated values with proper quoting.
// It uses encoding/csv for RFC 4180 compliant output.
type CSVFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *CSVFormatter) Format(w *bytes.Buffer, r *Result) error {
	writer := csv.NewWriter(w)

	// Write header
	if err := writer.Write(tableHeader); err != nil {
		return err
	}

	// Write data rows
	for _, p := range r.Processes {
		if err := writer.Write(tableRow(p)); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func init() {
	Register("csv", func() Formatter {
		return &CSVFormatter{}
	})
}

// Ensure CSVFormatter implements Formatter.
var _ Formatter = (*CSVFormatter)(nil)

// MarkdownFormatter formats output as a GitHub-flavored Markdown table.
// It produces a table with header, separator, and data rows using | delimiters.
type MarkdownFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *MarkdownFormatter) Format(w *bytes.Buffer, r *Result) error {
	// Write header
	w.WriteString("| " + strings.Join(tableHeader, " | ") + " |\n")

	// Write separator
	w.WriteString("|" + strings.Repeat("------|", len(tableHeader)) + "\n")

	// Write data rows
	for _, p := range r.Processes {
		cells := tableRow(p)
		for i, cell := range cells {
			// Escape pipes in process names
			cells[i] = escapeMarkdownPipe(cell)
		}
		fmt.Fprintf(w, "| %s |\n", strings.Join(cells, " | "))
	}

	return nil
}

// escapeMarkdownPipe escapes pipe characters in a string for Markdown tables.
func escapeMarkdownPipe(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func init() {
	Register("markdown", func() Formatter {
		return &MarkdownFormatter{}
	})
}

// Ensure MarkdownFormatter implements Formatter.
var _ Formatter = (*MarkdownFormatter)(nil)
