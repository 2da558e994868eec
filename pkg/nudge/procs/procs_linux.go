//go:build linux

package procs

import (
	"context"
	"fmt"
	"slices"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/process"
	"golang.org/x/sys/unix"
)

// System reads process accounting from procfs and adjusts priorities through
// the setpriority syscall.
type System struct{}

// New returns the host accounting source.
func New() (*System, error) {
	return &System{}, nil
}

// Snapshot enumerates all live processes. Processes that disappear between
// enumeration and field reads are skipped; zombies are reported with the
// Zombie flag set so the caller can ignore them.
func (s *System) Snapshot(ctx context.Context) ([]Proc, error) {
	list, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("enumerate processes: %w", err)
	}

	out := make([]Proc, 0, len(list))
	for _, p := range list {
		pr, err := observe(ctx, p)
		if err != nil {
			// Gone mid-read. The next snapshot settles it.
			continue
		}
		out = append(out, pr)
	}
	return out, nil
}

// SetNice applies a niceness value to one process.
func (s *System) SetNice(pid int32, nice int) error {
	if err := unix.Setpriority(unix.PRIO_PROCESS, int(pid), nice); err != nil {
		return fmt.Errorf("setpriority pid %d to %d: %w", pid, nice, err)
	}
	return nil
}

func observe(ctx context.Context, p *process.Process) (Proc, error) {
	name, err := p.NameWithContext(ctx)
	if err != nil {
		return Proc{}, err
	}
	status, err := p.StatusWithContext(ctx)
	if err != nil {
		return Proc{}, err
	}
	times, err := p.TimesWithContext(ctx)
	if err != nil {
		return Proc{}, err
	}
	nice, err := p.NiceWithContext(ctx)
	if err != nil {
		return Proc{}, err
	}
	return Proc{
		PID:     p.Pid,
		Name:    name,
		Zombie:  slices.Contains(status, process.Zombie),
		Runtime: runtimeNS(times),
		Nice:    int(nice),
	}, nil
}

// runtimeNS converts the user plus system CPU seconds reported by procfs
// into nanoseconds.
func runtimeNS(t *cpu.TimesStat) uint64 {
	return uint64((t.User + t.System) * 1e9)
}
