package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/nudgeproject/nudge/pkg/client"
	"github.com/nudgeproject/nudge/pkg/daemon/protocol"
)

// AppState represents the current state of the application.
type AppState int

const (
	StateLoading AppState = iota
	StateLive
)

// maxRecentEvents bounds the adjustment log shown under the process table.
const maxRecentEvents = 6

// Options configures the TUI application.
type Options struct {
	Socket string
}

// Model is the main Bubble Tea model for the nudge live view.
type Model struct {
	state   AppState
	options Options

	client *client.Client
	events <-chan protocol.Event

	// Last poll results
	status  *protocol.Status
	snap    *protocol.Snapshot
	recent  []protocol.Event
	pollErr error

	// Loading state
	spinner spinner.Model

	// Cursor and scroll position
	cursor int
	offset int

	// Window dimensions
	width  int
	height int
}

// NewModel creates a new TUI model with the given options, a connected
// polling client, and an event stream from a follow subscription.
func NewModel(opts Options, poller *client.Client, events <-chan protocol.Event) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(primaryColor)

	return Model{
		state:   StateLoading,
		options: opts,
		client:  poller,
		events:  events,
		spinner: s,
		width:   80,
		height:  24,
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.poll(),
		m.listenForEvents(),
	)
}

// tickMsg triggers the next status poll.
type tickMsg struct{}

// statusMsg carries one poll's results.
type statusMsg struct {
	status *protocol.Status
	snap   *protocol.Snapshot
	err    error
}

// eventMsg is one streamed niceness adjustment.
type eventMsg protocol.Event

// tickPoll returns a command that schedules the next poll.
func (m Model) tickPoll() tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

// poll fetches the daemon status and process snapshot.
func (m Model) poll() tea.Cmd {
	c := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()

		status, err := c.Status(ctx)
		if err != nil {
			return statusMsg{err: err}
		}
		snap, err := c.Processes(ctx, 0)
		if err != nil {
			return statusMsg{err: err}
		}
		return statusMsg{status: status, snap: snap}
	}
}

// listenForEvents returns a command that waits for the next streamed event.
func (m Model) listenForEvents() tea.Cmd {
	events := m.events
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			// Stream closed, stop listening
			return nil
		}
		return eventMsg(ev)
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tickMsg:
		return m, m.poll()

	case statusMsg:
		if msg.err != nil {
			m.pollErr = msg.err
			return m, m.tickPoll()
		}
		m.pollErr = nil
		m.status = msg.status
		m.snap = msg.snap
		m.state = StateLive
		if n := len(m.snap.Processes); m.cursor >= n && n > 0 {
			m.cursor = n - 1
		}
		m.ensureVisible()
		return m, m.tickPoll()

	case eventMsg:
		m.recent = append(m.recent, protocol.Event(msg))
		if len(m.recent) > maxRecentEvents {
			m.recent = m.recent[len(m.recent)-maxRecentEvents:]
		}
		return m, m.listenForEvents()

	case spinner.TickMsg:
		if m.state == StateLoading {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	return m, nil
}

// handleKey handles keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q", "esc":
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
			m.ensureVisible()
		}

	case "down", "j":
		if m.snap != nil && m.cursor < len(m.snap.Processes)-1 {
			m.cursor++
			m.ensureVisible()
		}

	case "home", "g":
		m.cursor = 0
		m.offset = 0

	case "end", "G":
		if m.snap != nil && len(m.snap.Processes) > 0 {
			m.cursor = len(m.snap.Processes) - 1
			m.ensureVisible()
		}

	case "pgup":
		m.cursor -= m.visibleRows()
		if m.cursor < 0 {
			m.cursor = 0
		}
		m.ensureVisible()

	case "pgdown":
		if m.snap != nil {
			m.cursor += m.visibleRows()
			if m.cursor >= len(m.snap.Processes) {
				m.cursor = len(m.snap.Processes) - 1
			}
			m.ensureVisible()
		}

	case "r":
		return m, m.poll()
	}

	return m, nil
}

// View renders the current state.
func (m Model) View() string {
	switch m.state {
	case StateLoading:
		return m.renderLoading()
	case StateLive:
		return m.renderLive()
	}
	return ""
}

// renderLoading renders the view shown before the first poll answers.
func (m Model) renderLoading() string {
	contentWidth := m.width - 4

	var b strings.Builder
	b.WriteString(titleStyle.Render("  nudge"))
	b.WriteString("\n")
	b.WriteString(renderDivider(contentWidth))
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("  %s Waiting for the daemon...", m.spinner.View()))
	b.WriteString("\n\n")

	if m.pollErr != nil {
		b.WriteString(errorTextStyle.Render("  " + m.pollErr.Error()))
		b.WriteString("\n\n")
	}

	b.WriteString(center(keyStyle.Render("[q]")+" "+keyDescStyle.Render("Quit"), contentWidth))
	b.WriteString("\n")

	return outerBoxStyle.Width(m.width - 2).Render(b.String())
}

// renderLive renders the process table with stats and recent adjustments.
func (m Model) renderLive() string {
	contentWidth := m.width - 4
	if contentWidth < 60 {
		contentWidth = 60
	}

	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(renderDivider(contentWidth))
	b.WriteString("\n")

	b.WriteString(m.renderHelpBar())
	b.WriteString("\n")
	b.WriteString(renderDivider(contentWidth))
	b.WriteString("\n")

	b.WriteString(m.renderProcessList(contentWidth))

	b.WriteString(renderDivider(contentWidth))
	b.WriteString("\n")
	b.WriteString(m.renderEvents(contentWidth))
	b.WriteString(renderDivider(contentWidth))
	b.WriteString("\n")
	b.WriteString(m.renderFooter(contentWidth))

	return outerBoxStyle.Width(m.width - 2).Render(b.String())
}

// renderHeader renders the title line.
func (m Model) renderHeader() string {
	title := fmt.Sprintf("  nudge - %d processes under control, cycle %d",
		m.snap.Tracked, m.snap.Cycle)
	if m.pollErr != nil {
		return titleStyle.Render(title) + "  " + errorTextStyle.Render("(poll failed: "+m.pollErr.Error()+")")
	}
	return titleStyle.Render(title)
}

// renderHelpBar renders the help bar with key hints.
func (m Model) renderHelpBar() string {
	hints := []struct {
		key  string
		desc string
	}{
		{"↑↓", "Navigate"},
		{"r", "Refresh"},
		{"q", "Quit"},
	}

	var parts []string
	for _, h := range hints {
		parts = append(parts, keyStyle.Render("["+h.key+"]")+" "+keyDescStyle.Render(h.desc))
	}

	return "  " + strings.Join(parts, "  ")
}

// renderProcessList renders the scrollable process table.
func (m Model) renderProcessList(width int) string {
	var b strings.Builder

	if len(m.snap.Processes) == 0 {
		b.WriteString("\n")
		b.WriteString(center(mutedTextStyle.Render("No processes tracked yet, first cycle pending."), width))
		b.WriteString("\n\n")
		return b.String()
	}

	nameWidth := width - 44
	if nameWidth < 12 {
		nameWidth = 12
	}

	header := fmt.Sprintf("    %s  %s  %s  %s  %s  %s",
		padLeft("PID", 7),
		padRight("NAME", nameWidth),
		padLeft("NICE", 4),
		padRight("STATE", 5),
		padRight("LAST", 5),
		padLeft("CPU/CYCLE", 10))
	b.WriteString(columnHeaderStyle.Render(header))
	b.WriteString("\n")

	visibleRows := m.visibleRows()
	rendered := 0
	for i := m.offset; i < m.offset+visibleRows && i < len(m.snap.Processes); i++ {
		b.WriteString(m.renderProcessRow(m.snap.Processes[i], i == m.cursor, nameWidth))
		b.WriteString("\n")
		rendered++
	}
	for rendered < visibleRows {
		b.WriteString("\n")
		rendered++
	}

	return b.String()
}

// renderProcessRow renders a single process line.
func (m Model) renderProcessRow(p protocol.Process, isCursor bool, nameWidth int) string {
	var cursor string
	if isCursor {
		cursor = cursorStyle.Render(">")
	} else {
		cursor = " "
	}

	delta := deltaStyle.Render(padLeft(formatDelta(p.DeltaNS), 10))
	state := stateStyle(p.State).Render(padRight(p.State, 5))

	line := fmt.Sprintf("  %s %s  %s  %s  %s  %s  %s",
		cursor,
		padLeft(fmt.Sprintf("%d", p.PID), 7),
		padRight(truncateName(p.Name, nameWidth), nameWidth),
		padLeft(fmt.Sprintf("%d", p.Nice), 4),
		state,
		padRight(p.LastAction, 5),
		delta)

	if isCursor {
		return selectedItemStyle.Render(line)
	}
	return normalItemStyle.Render(line)
}

// renderEvents renders the recent adjustments log.
func (m Model) renderEvents(width int) string {
	var b strings.Builder
	b.WriteString(mutedTextStyle.Render("  Recent adjustments"))
	b.WriteString("\n")

	if len(m.recent) == 0 {
		b.WriteString(mutedTextStyle.Render("    none yet"))
		b.WriteString("\n")
	}
	for _, ev := range m.recent {
		line := fmt.Sprintf("    %s %s[%d] %s %d -> %d",
			ev.Time.Format("15:04:05"), truncateName(ev.Name, 20), ev.PID,
			ev.Action, ev.OldNice, ev.NewNice)
		b.WriteString(mutedTextStyle.Render(line))
		b.WriteString("\n")
	}

	// Keep the section height stable as events arrive
	for i := len(m.recent); i < maxRecentEvents; i++ {
		b.WriteString("\n")
	}

	return b.String()
}

// renderFooter renders the lifetime counters and daemon vitals.
func (m Model) renderFooter(width int) string {
	s := m.status

	left := "  " +
		statsLabelStyle.Render("applied ") + statsValueStyle.Render(fmt.Sprintf("%d", s.Applied)) + "  " +
		statsLabelStyle.Render("failed ") + statsValueStyle.Render(fmt.Sprintf("%d", s.Failed)) + "  " +
		statsLabelStyle.Render("reaped ") + statsValueStyle.Render(fmt.Sprintf("%d", s.Reaped))

	right := mutedTextStyle.Render(fmt.Sprintf("up %s  %s",
		formatUptime(s.UptimeSeconds), humanize.Bytes(uint64(s.MemoryBytes))))

	spacing := width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if spacing < 1 {
		spacing = 1
	}

	return left + strings.Repeat(" ", spacing) + right
}

// visibleRows returns the number of process rows that fit the window.
func (m Model) visibleRows() int {
	// Account for header, help bar, dividers, column header, the event
	// log, footer and the box border.
	available := m.height - 15 - maxRecentEvents
	if available < 5 {
		available = 5
	}
	return available
}

// ensureVisible adjusts offset to keep the cursor on screen.
func (m *Model) ensureVisible() {
	visibleRows := m.visibleRows()

	if m.cursor < m.offset {
		m.offset = m.cursor
	} else if m.cursor >= m.offset+visibleRows {
		m.offset = m.cursor - visibleRows + 1
	}

	if m.offset < 0 {
		m.offset = 0
	}
}

// formatDelta renders a per-cycle CPU time in nanoseconds compactly.
func formatDelta(deltaNS uint64) string {
	return time.Duration(deltaNS).Round(10 * time.Microsecond).String()
}

// formatUptime renders seconds of uptime in a human-readable way.
func formatUptime(seconds int64) string {
	d := time.Duration(seconds) * time.Second
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	if d < 24*time.Hour {
		return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
	}
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	return fmt.Sprintf("%dd %dh", days, hours)
}

// Run starts the TUI application. It opens two daemon connections: one for
// polling and one dedicated to the follow event stream.
func Run(opts Options) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	poller, err := client.Connect(opts.Socket)
	if err != nil {
		return fmt.Errorf("failed to connect to daemon: %w", err)
	}
	defer poller.Close()

	follower, err := client.Connect(opts.Socket)
	if err != nil {
		return fmt.Errorf("failed to connect to daemon: %w", err)
	}
	defer follower.Close()

	events, err := follower.Follow(ctx, nil, nil)
	if err != nil {
		return fmt.Errorf("failed to follow events: %w", err)
	}

	model := NewModel(opts, poller, events)

	p := tea.NewProgram(model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	_, err = p.Run()
	return err
}
