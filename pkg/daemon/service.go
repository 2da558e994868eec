// Package daemon implements the nudged control daemon: the controller's
// host process, its Unix-socket control server, and the PID and status
// file plumbing around daemon startup.
package daemon

import (
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/nudgeproject/nudge/pkg/daemon/broadcaster"
	"github.com/nudgeproject/nudge/pkg/daemon/protocol"
	"github.com/nudgeproject/nudge/pkg/nudge/controller"
)

// Service answers control-socket requests from the running controller's
// state. It also fans applied niceness changes out to follow subscribers.
type Service struct {
	ctrl        *controller.Controller
	broadcaster *broadcaster.Broadcaster
	startTime   time.Time

	shutdownOnce sync.Once
	shutdown     chan struct{}
}

// NewService creates a control service over a controller.
func NewService(ctrl *controller.Controller) *Service {
	return &Service{
		ctrl:        ctrl,
		broadcaster: broadcaster.New(),
		startTime:   time.Now(),
		shutdown:    make(chan struct{}),
	}
}

// NotifyEvent publishes one applied niceness change to follow subscribers.
// Wire it to the controller with controller.WithNotify(svc.NotifyEvent).
func (s *Service) NotifyEvent(ev controller.Event) {
	s.broadcaster.Publish(broadcaster.Event{
		Time:    ev.Time,
		PID:     ev.PID,
		Name:    ev.Name,
		Action:  ev.Action,
		OldNice: ev.OldNice,
		NewNice: ev.NewNice,
	})
}

// Status returns daemon health and controller counters.
func (s *Service) Status() *protocol.Status {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	stats := s.ctrl.Stats()
	cfg := s.ctrl.Config()
	snap := s.ctrl.Snapshot()

	return &protocol.Status{
		Running:       stats.Running,
		PID:           os.Getpid(),
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		MemoryBytes:   int64(mem.Alloc),
		Cycles:        stats.Cycles,
		Applied:       stats.Applied,
		Failed:        stats.Failed,
		Reaped:        stats.Reaped,
		Tracked:       snap.Tracked,
		Alpha:         cfg.Alpha,
		Gamma:         cfg.Gamma,
		Epsilon:       cfg.Epsilon,
		Step:          cfg.Step,
		IntervalMS:    cfg.Interval.Milliseconds(),
	}
}

// Processes returns the controller's most recent snapshot, capped to limit
// rows when limit is positive.
func (s *Service) Processes(limit int) *protocol.Snapshot {
	snap := s.ctrl.Snapshot()

	rows := snap.Processes
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}

	processes := make([]protocol.Process, len(rows))
	for i, p := range rows {
		processes[i] = protocol.Process{
			PID:        p.PID,
			Name:       p.Name,
			Nice:       p.Nice,
			State:      p.State,
			LastAction: p.LastAction,
			DeltaNS:    p.DeltaNS,
		}
	}

	return &protocol.Snapshot{
		Cycle:     snap.Cycle,
		At:        snap.At,
		Tracked:   snap.Tracked,
		Processes: processes,
	}
}

// Follow subscribes to the stream of applied niceness changes. The caller
// must Unfollow the subscriber when done.
func (s *Service) Follow(names, actions []string) *broadcaster.Subscriber {
	return s.broadcaster.Subscribe(names, actions)
}

// Unfollow removes a follow subscription.
func (s *Service) Unfollow(id string) {
	s.broadcaster.Unsubscribe(id)
}

// Shutdown signals the daemon main loop to exit. Safe to call more than
// once.
func (s *Service) Shutdown() {
	s.shutdownOnce.Do(func() { close(s.shutdown) })
}

// ShutdownRequested returns a channel closed once a shutdown has been
// requested.
func (s *Service) ShutdownRequested() <-chan struct{} {
	return s.shutdown
}

// Close releases the service's resources, ending every follow stream.
func (s *Service) Close() {
	s.broadcaster.Close()
}
