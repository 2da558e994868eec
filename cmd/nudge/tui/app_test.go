package tui

import (
	"fmt"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/nudgeproject/nudge/pkg/daemon/protocol"
)

func testStatus() *protocol.Status {
	return &protocol.Status{
		Running:       true,
		PID:           4242,
		UptimeSeconds: 3700,
		MemoryBytes:   12 << 20,
		Cycles:        880,
		Applied:       31,
		Failed:        2,
		Reaped:        5,
		Tracked:       3,
		Alpha:         200,
		Gamma:         900,
		Epsilon:       50,
		Step:          5,
		IntervalMS:    1000,
	}
}

func testSnapshot() *protocol.Snapshot {
	return &protocol.Snapshot{
		Cycle:   880,
		At:      time.Now(),
		Tracked: 3,
		Processes: []protocol.Process{
			{PID: 100, Name: "ffmpeg", Nice: -5, State: "high", LastAction: "lower", DeltaNS: 60_000_000},
			{PID: 200, Name: "postgres", Nice: 0, State: "med", LastAction: "hold", DeltaNS: 2_000_000},
			{PID: 300, Name: "kworker/0:1", Nice: 0, State: "low", LastAction: "hold", DeltaNS: 400_000},
		},
	}
}

// liveModel returns a model that has already received its first poll.
func liveModel(t *testing.T) Model {
	t.Helper()
	m := NewModel(Options{}, nil, nil)
	updated, _ := m.Update(statusMsg{status: testStatus(), snap: testSnapshot()})
	model, ok := updated.(Model)
	if !ok {
		t.Fatalf("Update returned %T, want Model", updated)
	}
	return model
}

func keyRune(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func TestModelStartsLoading(t *testing.T) {
	m := NewModel(Options{}, nil, nil)
	if m.state != StateLoading {
		t.Errorf("state = %d, want StateLoading", m.state)
	}

	view := m.View()
	if !strings.Contains(view, "Waiting for the daemon") {
		t.Errorf("loading view should mention waiting, got:\n%s", view)
	}
}

func TestModelStatusMsgGoesLive(t *testing.T) {
	m := liveModel(t)

	if m.state != StateLive {
		t.Fatalf("state = %d, want StateLive", m.state)
	}

	view := m.View()
	for _, want := range []string{"ffmpeg", "postgres", "3 processes", "cycle 880"} {
		if !strings.Contains(view, want) {
			t.Errorf("live view missing %q", want)
		}
	}
}

func TestModelPollErrorKeepsLastData(t *testing.T) {
	m := liveModel(t)

	updated, _ := m.Update(statusMsg{err: fmt.Errorf("connection reset")})
	m = updated.(Model)

	if m.state != StateLive {
		t.Errorf("a failed poll should not leave the live state")
	}
	if m.snap == nil || len(m.snap.Processes) != 3 {
		t.Errorf("a failed poll should keep the last snapshot")
	}
	if !strings.Contains(m.View(), "poll failed") {
		t.Errorf("live view should surface the poll error")
	}
}

func TestModelCursorMovement(t *testing.T) {
	m := liveModel(t)

	updated, _ := m.Update(keyRune('j'))
	m = updated.(Model)
	updated, _ = m.Update(keyRune('j'))
	m = updated.(Model)
	if m.cursor != 2 {
		t.Errorf("cursor = %d after two downs, want 2", m.cursor)
	}

	// Clamped at the last row
	updated, _ = m.Update(keyRune('j'))
	m = updated.(Model)
	if m.cursor != 2 {
		t.Errorf("cursor = %d, want 2 (clamped)", m.cursor)
	}

	updated, _ = m.Update(keyRune('k'))
	m = updated.(Model)
	if m.cursor != 1 {
		t.Errorf("cursor = %d after up, want 1", m.cursor)
	}

	updated, _ = m.Update(keyRune('G'))
	m = updated.(Model)
	if m.cursor != 2 {
		t.Errorf("cursor = %d after G, want 2", m.cursor)
	}

	updated, _ = m.Update(keyRune('g'))
	m = updated.(Model)
	if m.cursor != 0 {
		t.Errorf("cursor = %d after g, want 0", m.cursor)
	}
}

func TestModelCursorClampsWhenSnapshotShrinks(t *testing.T) {
	m := liveModel(t)

	updated, _ := m.Update(keyRune('G'))
	m = updated.(Model)

	shrunk := &protocol.Snapshot{
		Cycle:     881,
		Tracked:   1,
		Processes: testSnapshot().Processes[:1],
	}
	updated, _ = m.Update(statusMsg{status: testStatus(), snap: shrunk})
	m = updated.(Model)

	if m.cursor != 0 {
		t.Errorf("cursor = %d after snapshot shrank to 1 row, want 0", m.cursor)
	}
}

func TestModelEventLogKeepsRecent(t *testing.T) {
	m := liveModel(t)

	for i := 0; i < maxRecentEvents+3; i++ {
		ev := eventMsg(protocol.Event{
			Time:    time.Now(),
			PID:     int32(100 + i),
			Name:    fmt.Sprintf("proc%d", i),
			Action:  "lower",
			OldNice: 0,
			NewNice: -5,
		})
		updated, _ := m.Update(ev)
		m = updated.(Model)
	}

	if len(m.recent) != maxRecentEvents {
		t.Fatalf("recent length = %d, want %d", len(m.recent), maxRecentEvents)
	}
	newest := m.recent[len(m.recent)-1]
	if newest.Name != fmt.Sprintf("proc%d", maxRecentEvents+2) {
		t.Errorf("newest event = %s, want the last one sent", newest.Name)
	}

	if !strings.Contains(m.View(), newest.Name) {
		t.Errorf("live view should show the newest adjustment")
	}
}

func TestModelQuitKeys(t *testing.T) {
	for _, key := range []string{"q", "esc", "ctrl+c"} {
		var msg tea.KeyMsg
		switch key {
		case "q":
			msg = keyRune('q')
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		case "ctrl+c":
			msg = tea.KeyMsg{Type: tea.KeyCtrlC}
		}

		m := liveModel(t)
		_, cmd := m.Update(msg)
		if cmd == nil {
			t.Fatalf("key %q should quit", key)
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Errorf("key %q returned %T, want tea.QuitMsg", key, cmd())
		}
	}
}

func TestFormatDelta(t *testing.T) {
	tests := []struct {
		deltaNS  uint64
		expected string
	}{
		{0, "0s"},
		{400_000, "400µs"},
		{2_000_000, "2ms"},
		{60_000_000, "60ms"},
		{1_500_000_000, "1.5s"},
	}

	for _, tt := range tests {
		if got := formatDelta(tt.deltaNS); got != tt.expected {
			t.Errorf("formatDelta(%d) = %q, want %q", tt.deltaNS, got, tt.expected)
		}
	}
}

func TestFormatUptime(t *testing.T) {
	tests := []struct {
		seconds  int64
		expected string
	}{
		{45, "45s"},
		{90, "1m 30s"},
		{3700, "1h 1m"},
		{200000, "2d 7h"},
	}

	for _, tt := range tests {
		if got := formatUptime(tt.seconds); got != tt.expected {
			t.Errorf("formatUptime(%d) = %q, want %q", tt.seconds, got, tt.expected)
		}
	}
}
