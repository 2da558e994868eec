// Package tracker maintains the per-process learning records observed by the
// control loop. Records are created lazily the first time a PID is seen and
// reaped once the process stops appearing in accounting snapshots.
package tracker

import (
	"sync"

	"github.com/nudgeproject/nudge/pkg/nudge/policy"
)

// Record is the retained learning state for one process.
//
// Fields other than PID are written only by the control loop goroutine. The
// tracker's lock guards the PID map itself, not record contents; concurrent
// readers get their view through the controller's published snapshots
// instead of reaching into records.
type Record struct {
	// PID identifies the process. It is fixed at creation.
	PID int32

	// PrevRuntime is the cumulative CPU time observed at the previous
	// cycle, in nanoseconds. Zero means the process has not been sampled
	// yet and the next cycle only seeds the baseline.
	PrevRuntime uint64

	// PrevState and PrevAction are the pair chosen one cycle ago, rewarded
	// by the delta measured this cycle.
	PrevState  policy.State
	PrevAction policy.Action

	// Q is the process's learned action-value table.
	Q policy.Table

	// Cycle is the scan cycle that last observed the process alive. Sweep
	// removes records whose stamp falls behind.
	Cycle uint64
}

// Tracker is the set of records for all currently observed processes.
type Tracker struct {
	mu      sync.Mutex
	records map[int32]*Record
}

// New returns an empty tracker.
func New() *Tracker {
	return &Tracker{records: make(map[int32]*Record)}
}

// Lookup returns the record for pid if one exists.
func (t *Tracker) Lookup(pid int32) (*Record, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.records[pid]
	return rec, ok
}

// GetOrCreate returns the record for pid, creating it if the PID has not
// been seen. A fresh record starts with a zero table, no runtime baseline,
// and a neutral previous pair so its first update targets (low, hold).
func (t *Tracker) GetOrCreate(pid int32) (*Record, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if rec, ok := t.records[pid]; ok {
		return rec, false
	}
	rec := &Record{
		PID:        pid,
		PrevState:  policy.StateLow,
		PrevAction: policy.ActionHold,
	}
	t.records[pid] = rec
	return rec, true
}

// Remove drops the record for pid, if any. A later GetOrCreate for the same
// PID starts from scratch.
func (t *Tracker) Remove(pid int32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.records, pid)
}

// Sweep removes every record whose Cycle stamp is older than cycle and
// returns how many were dropped. The control loop stamps each record it
// touches, so a stale stamp means the process exited or turned zombie since
// the previous pass.
func (t *Tracker) Sweep(cycle uint64) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	removed := 0
	for pid, rec := range t.records {
		if rec.Cycle != cycle {
			delete(t.records, pid)
			removed++
		}
	}
	return removed
}

// Clear drops all records.
func (t *Tracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.records = make(map[int32]*Record)
}

// Len reports how many processes are currently tracked.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.records)
}
