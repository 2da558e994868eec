// Package procs is the process accounting port: it enumerates live processes
// with their cumulative CPU time and adjusts their niceness. The control
// loop depends only on the Source interface, which keeps the kernel-facing
// surface down to the two operations the controller actually needs.
package procs

import (
	"context"
	"errors"
)

// ErrUnsupported reports that process accounting is unavailable on this
// platform.
var ErrUnsupported = errors.New("process accounting requires linux")

// Proc is one process as observed in a snapshot.
type Proc struct {
	// PID is the process identifier.
	PID int32 `json:"pid"`

	// Name is the short command name.
	Name string `json:"name"`

	// Zombie reports that the process has exited but not been reaped.
	Zombie bool `json:"zombie,omitempty"`

	// Runtime is the cumulative CPU time consumed by the process across
	// all CPUs, in nanoseconds. It only grows for a given process.
	Runtime uint64 `json:"runtime_ns"`

	// Nice is the current niceness, in [-20, 19].
	Nice int `json:"nice"`
}

// Source observes and adjusts processes.
type Source interface {
	// Snapshot enumerates the processes alive right now. Processes that
	// vanish while being read are silently omitted; an error means the
	// enumeration itself failed and the snapshot is unusable.
	Snapshot(ctx context.Context) ([]Proc, error)

	// SetNice sets the niceness of one process. It fails when the process
	// is gone or the caller lacks the privilege to apply the value.
	SetNice(pid int32, nice int) error
}
