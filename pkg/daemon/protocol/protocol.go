// Package protocol defines the wire types exchanged between the nudged
// daemon and its clients over the control socket.
//
// The protocol is newline-delimited JSON. A client writes one Request per
// line; the daemon answers with one Response per line. The follow operation
// is the exception: after acknowledging the subscription, the daemon keeps
// the connection open and writes one Response per niceness-change event
// until the client disconnects.
package protocol

import "time"

// Operation names for Request.Op.
const (
	// OpStatus requests daemon health and controller counters.
	OpStatus = "status"

	// OpProcesses requests the most recent controller snapshot.
	OpProcesses = "processes"

	// OpFollow subscribes to the stream of applied niceness changes.
	OpFollow = "follow"

	// OpShutdown asks the daemon to shut down gracefully.
	OpShutdown = "shutdown"
)

// Request is one client command.
type Request struct {
	// Op selects the operation.
	Op string `json:"op"`

	// Limit caps the number of process rows returned by OpProcesses.
	// Zero means no cap.
	Limit int `json:"limit,omitempty"`

	// Names filters OpFollow events by process name glob patterns.
	// Empty means all processes.
	Names []string `json:"names,omitempty"`

	// Actions filters OpFollow events by action (lower, raise).
	// Empty means all actions.
	Actions []string `json:"actions,omitempty"`
}

// Response is one daemon reply. Exactly one of the payload fields is set
// on success, depending on the operation.
type Response struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`

	Status   *Status   `json:"status,omitempty"`
	Snapshot *Snapshot `json:"snapshot,omitempty"`
	Event    *Event    `json:"event,omitempty"`
}

// Status reports daemon health and the controller's lifetime counters.
type Status struct {
	Running       bool  `json:"running"`
	PID           int   `json:"pid"`
	UptimeSeconds int64 `json:"uptime_seconds"`
	MemoryBytes   int64 `json:"memory_bytes"`

	Cycles  uint64 `json:"cycles"`
	Applied uint64 `json:"applied"`
	Failed  uint64 `json:"failed"`
	Reaped  uint64 `json:"reaped"`
	Tracked int    `json:"tracked"`

	// Controller parameters, echoed for status display.
	Alpha      int64 `json:"alpha"`
	Gamma      int64 `json:"gamma"`
	Epsilon    int64 `json:"epsilon"`
	Step       int   `json:"step"`
	IntervalMS int64 `json:"interval_ms"`
}

// Process is one controlled process in a snapshot.
type Process struct {
	PID        int32  `json:"pid"`
	Name       string `json:"name"`
	Nice       int    `json:"nice"`
	State      string `json:"state"`
	LastAction string `json:"last_action"`
	DeltaNS    uint64 `json:"delta_ns"`
}

// Snapshot is the view published by the controller's most recent cycle.
type Snapshot struct {
	Cycle     uint64    `json:"cycle"`
	At        time.Time `json:"at"`
	Tracked   int       `json:"tracked"`
	Processes []Process `json:"processes"`
}

// Event is one applied niceness change.
type Event struct {
	Time    time.Time `json:"time"`
	PID     int32     `json:"pid"`
	Name    string    `json:"name"`
	Action  string    `json:"action"`
	OldNice int       `json:"old_nice"`
	NewNice int       `json:"new_nice"`
}
