package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONFormatter_Format_BasicOutput(t *testing.T) {
	formatter := &JSONFormatter{}
	var buf bytes.Buffer

	result := &Result{
		Processes: []ProcessInfo{
			{PID: 31337, Name: "ffmpeg", Nice: 10, State: "high", LastAction: "raise", DeltaNS: 48_200_000, Delta: "48.2ms"},
			{PID: 1200, Name: "postgres", Nice: -5, State: "med", LastAction: "lower", DeltaNS: 3_100_000, Delta: "3.1ms"},
		},
		Stats: ControllerStats{
			Cycles:  1042,
			Applied: 3120,
			Failed:  2,
			Uptime:  17 * time.Minute,
		},
		Interval: time.Second,
		DaemonUp: true,
		Tracked:  2,
	}

	err := formatter.Format(&buf, result)
	require.NoError(t, err)

	// Should be valid JSON
	var parsed map[string]interface{}
	err = json.Unmarshal(buf.Bytes(), &parsed)
	require.NoError(t, err)

	// Should have processes, stats, and meta sections
	assert.Contains(t, parsed, "processes")
	assert.Contains(t, parsed, "stats")
	assert.Contains(t, parsed, "meta")

	// Verify processes
	processes := parsed["processes"].([]interface{})
	assert.Len(t, processes, 2)

	p1 := processes[0].(map[string]interface{})
	assert.Equal(t, float64(31337), p1["pid"])
	assert.Equal(t, "ffmpeg", p1["name"])
	assert.Equal(t, "raise", p1["last_action"])

	// Verify meta
	meta := parsed["meta"].(map[string]interface{})
	assert.Equal(t, true, meta["daemon_up"])
	assert.Equal(t, float64(51_300_000), meta["total_delta_ns"])
}

func TestJSONFormatter_Format_EmptyResult(t *testing.T) {
	formatter := &JSONFormatter{}
	var buf bytes.Buffer

	result := &Result{
		Processes: []ProcessInfo{},
		Stats:     ControllerStats{Cycles: 1},
	}

	err := formatter.Format(&buf, result)
	require.NoError(t, err)

	var parsed map[string]interface{}
	err = json.Unmarshal(buf.Bytes(), &parsed)
	require.NoError(t, err)

	processes := parsed["processes"].([]interface{})
	assert.Len(t, processes, 0)
}

func TestJSONFormatter_Format_ValidJSON(t *testing.T) {
	formatter := &JSONFormatter{}
	var buf bytes.Buffer

	result := &Result{
		Processes: []ProcessInfo{
			{PID: 1, Name: "name\"with\"quotes", DeltaNS: 1024},
			{PID: 2, Name: "name\nwith\nnewlines", DeltaNS: 2048},
		},
		Tracked: 2,
	}

	err := formatter.Format(&buf, result)
	require.NoError(t, err)

	// Should be valid JSON even with special characters
	var parsed map[string]interface{}
	err = json.Unmarshal(buf.Bytes(), &parsed)
	require.NoError(t, err)
}

func TestJSONFormatter_Format_Indented(t *testing.T) {
	formatter := &JSONFormatter{}
	var buf bytes.Buffer

	result := &Result{
		Processes: []ProcessInfo{
			{PID: 42, Name: "sleepy", Nice: 19},
		},
		Tracked: 1,
	}

	err := formatter.Format(&buf, result)
	require.NoError(t, err)

	// Indented output has multiple lines
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Greater(t, len(lines), 3)
}

func TestJSONLFormatter_Format_OneObjectPerLine(t *testing.T) {
	formatter := &JSONLFormatter{}
	var buf bytes.Buffer

	result := &Result{
		Processes: []ProcessInfo{
			{PID: 1, Name: "a", DeltaNS: 100},
			{PID: 2, Name: "b", DeltaNS: 200},
			{PID: 3, Name: "c", DeltaNS: 300},
		},
	}

	err := formatter.Format(&buf, result)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)

	// Each line is a standalone JSON object
	for _, line := range lines {
		var parsed map[string]interface{}
		err := json.Unmarshal([]byte(line), &parsed)
		require.NoError(t, err)
		assert.Contains(t, parsed, "pid")
	}
}

func TestJSONLFormatter_Format_EmptyResult(t *testing.T) {
	formatter := &JSONLFormatter{}
	var buf bytes.Buffer

	err := formatter.Format(&buf, &Result{})
	require.NoError(t, err)
	assert.Empty(t, buf.String())
}
