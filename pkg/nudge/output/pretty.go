package output

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// PrettyFormatter formats output with colors and styling using lipgloss.
// It produces a visually appealing output suitable for terminal display.
type PrettyFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PrettyFormatter) Format(w *bytes.Buffer, r *Result) error {
	// Build header
	header := f.formatHeader(r)
	w.WriteString(header)
	w.WriteString("\n")

	// Build process table
	table := f.formatTable(r)
	w.WriteString(table)

	// Build footer
	footer := f.formatFooter(r)
	w.WriteString(footer)

	// Add warnings if any
	if len(r.Warnings) > 0 {
		warnings := f.formatWarnings(r.Warnings)
		w.WriteString("\n")
		w.WriteString(warnings)
	}

	return nil
}

// formatHeader builds the header box with controller metadata.
func (f *PrettyFormatter) formatHeader(r *Result) string {
	var parts []string

	parts = append(parts, f.formatDaemonStatus(r.DaemonUp))

	cycleLabel := LabelStyle.Render("Cycle:")
	cycleValue := ValueStyle.Render(fmt.Sprintf("%d", r.Stats.Cycles))
	parts = append(parts, fmt.Sprintf("%s %s", cycleLabel, cycleValue))

	if r.Stats.Uptime > 0 {
		uptimeLabel := LabelStyle.Render("Uptime:")
		uptimeValue := ValueStyle.Render(formatDuration(r.Stats.Uptime))
		parts = append(parts, fmt.Sprintf("%s %s", uptimeLabel, uptimeValue))
	}

	if r.Interval > 0 {
		intervalLabel := LabelStyle.Render("Interval:")
		intervalValue := MutedStyle.Render(r.Interval.String())
		parts = append(parts, fmt.Sprintf("%s %s", intervalLabel, intervalValue))
	}

	content := strings.Join(parts, "  ")
	return HeaderBox.Render(content)
}

// formatDaemonStatus returns a styled string indicating daemon status.
func (f *PrettyFormatter) formatDaemonStatus(daemonUp bool) string {
	if !daemonUp {
		return MutedStyle.Render("daemon: off")
	}
	return LabelStyle.Render("daemon: ") + SuccessStyle.Render("up")
}

// formatTable builds the process table.
func (f *PrettyFormatter) formatTable(r *Result) string {
	if len(r.Processes) == 0 {
		return MutedStyle.Render("  No processes tracked yet\n")
	}

	var sb strings.Builder

	// Column widths for alignment
	nameWidth := 4
	deltaWidth := 8
	for _, p := range r.Processes {
		if len(p.Name) > nameWidth {
			nameWidth = len(p.Name)
		}
		if len(p.Delta) > deltaWidth {
			deltaWidth = len(p.Delta)
		}
	}

	// Column headers
	sb.WriteString(fmt.Sprintf("  %s  %s  %s  %s  %s  %s\n",
		TableHeaderStyle.Render(padLeft("PID", 7)),
		TableHeaderStyle.Render(padRight("NAME", nameWidth)),
		TableHeaderStyle.Render(padLeft("NICE", 4)),
		TableHeaderStyle.Render(padLeft("CPU", deltaWidth)),
		TableHeaderStyle.Render(padRight("STATE", 5)),
		TableHeaderStyle.Render("ACTION")))

	// Process rows
	for _, p := range r.Processes {
		sb.WriteString(fmt.Sprintf("  %s  %s  %s  %s  %s  %s\n",
			ValueStyle.Render(padLeft(fmt.Sprintf("%d", p.PID), 7)),
			NameStyle.Render(padRight(p.Name, nameWidth)),
			f.renderNice(p.Nice),
			DeltaStyle.Render(padLeft(p.Delta, deltaWidth)),
			StateStyle(p.State).Render(padRight(p.State, 5)),
			f.renderAction(p.LastAction)))
	}

	return sb.String()
}

// renderNice colors niceness by favor: boosted processes stand out.
func (f *PrettyFormatter) renderNice(nice int) string {
	s := padLeft(fmt.Sprintf("%d", nice), 4)
	if nice < 0 {
		return SuccessStyle.Render(s)
	}
	if nice > 0 {
		return WarningStyle.Render(s)
	}
	return ValueStyle.Render(s)
}

// renderAction colors the last chosen adjustment.
func (f *PrettyFormatter) renderAction(action string) string {
	switch action {
	case "lower":
		return SuccessStyle.Render(action)
	case "raise":
		return WarningStyle.Render(action)
	default:
		return MutedStyle.Render(action)
	}
}

// formatFooter builds the footer box with summary information.
func (f *PrettyFormatter) formatFooter(r *Result) string {
	var parts []string

	trackedLabel := LabelStyle.Render("Tracked:")
	trackedValue := ValueStyle.Render(fmt.Sprintf("%d", r.Tracked))
	parts = append(parts, fmt.Sprintf("%s %s", trackedLabel, trackedValue))

	cpuLabel := LabelStyle.Render("CPU:")
	cpuValue := DeltaStyle.Render(time.Duration(r.TotalDeltaNS()).Round(100 * time.Microsecond).String())
	parts = append(parts, fmt.Sprintf("%s %s", cpuLabel, cpuValue))

	adjustedLabel := LabelStyle.Render("Adjusted:")
	adjustedValue := ValueStyle.Render(fmt.Sprintf("%d", r.Stats.Applied))
	parts = append(parts, fmt.Sprintf("%s %s", adjustedLabel, adjustedValue))

	if r.Stats.Failed > 0 {
		failedLabel := LabelStyle.Render("Failed:")
		failedValue := ErrorStyle.Render(fmt.Sprintf("%d", r.Stats.Failed))
		parts = append(parts, fmt.Sprintf("%s %s", failedLabel, failedValue))
	}

	// Hints
	hint := MutedStyle.Render("Use -o plain for unformatted output")
	parts = append(parts, hint)

	content := strings.Join(parts, "  ")
	return FooterBox.Render(content)
}

// formatWarnings builds a warning block.
func (f *PrettyFormatter) formatWarnings(warnings []string) string {
	var sb strings.Builder

	titleStyle := WarningStyle.Bold(true)
	sb.WriteString(titleStyle.Render("Warnings:"))
	sb.WriteString("\n")

	for _, warning := range warnings {
		sb.WriteString(WarningStyle.Render("  " + warning))
		sb.WriteString("\n")
	}

	return sb.String()
}

// padLeft pads a string with spaces on the left to achieve the desired width.
func padLeft(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat(" ", width-len(s)) + s
}

// padRight pads a string with spaces on the right to achieve the desired width.
func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

// formatDuration formats a time.Duration as a human-friendly string.
func formatDuration(d time.Duration) string {
	sec := d.Seconds()
	if sec < 1 {
		return fmt.Sprintf("%.0fms", sec*1000)
	}
	if sec < 60 {
		return fmt.Sprintf("%.1fs", sec)
	}
	minutes := int(sec) / 60
	seconds := int(sec) % 60
	if minutes < 60 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	hours := minutes / 60
	minutes = minutes % 60
	return fmt.Sprintf("%dh %dm", hours, minutes)
}

func init() {
	Register("pretty", func() Formatter {
		return &PrettyFormatter{}
	})
}

// Ensure PrettyFormatter implements Formatter.
var _ Formatter = (*PrettyFormatter)(nil)

// For IDE auto-complete, verify lipgloss is accessible.
var _ = lipgloss.NewStyle()
