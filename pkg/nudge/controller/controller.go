// Package controller runs the sampling loop that learns per-process niceness
// adjustments. Each cycle it snapshots the live processes, feeds their CPU
// runtime deltas through the policy, applies the chosen adjustments, and
// rewards the choices made one cycle earlier.
package controller

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nudgeproject/nudge/pkg/nudge/logging"
	"github.com/nudgeproject/nudge/pkg/nudge/policy"
	"github.com/nudgeproject/nudge/pkg/nudge/procs"
	"github.com/nudgeproject/nudge/pkg/nudge/tracker"
)

// ErrAlreadyRunning is returned by Start when the control loop is active.
var ErrAlreadyRunning = errors.New("controller already running")

// Config holds the learning and sampling parameters. Values are fixed for
// the lifetime of a controller; validation happens in the config package
// before a controller is built.
type Config struct {
	// Alpha is the learning rate in permille.
	Alpha int64 `json:"alpha"`

	// Gamma is the discount factor in permille.
	Gamma int64 `json:"gamma"`

	// Epsilon is the exploration probability in permille.
	Epsilon int64 `json:"epsilon"`

	// Interval is the pause between scan cycles. The effective period is
	// the interval plus however long the scan itself takes.
	Interval time.Duration `json:"interval"`

	// Step is how many niceness points one adjustment moves.
	Step int `json:"step"`

	// Seed seeds the exploration randomness. Zero draws a seed from the
	// OS entropy pool; any other value gives reproducible runs.
	Seed int64 `json:"seed,omitempty"`

	// Exclude lists process names the controller must never touch.
	Exclude []string `json:"exclude,omitempty"`
}

// Event describes one applied niceness change.
type Event struct {
	Time    time.Time `json:"time"`
	PID     int32     `json:"pid"`
	Name    string    `json:"name"`
	Action  string    `json:"action"`
	OldNice int       `json:"old_nice"`
	NewNice int       `json:"new_nice"`
}

// ProcessStatus is one process's row in a published snapshot.
type ProcessStatus struct {
	PID        int32  `json:"pid"`
	Name       string `json:"name"`
	Nice       int    `json:"nice"`
	State      string `json:"state"`
	LastAction string `json:"last_action"`
	DeltaNS    uint64 `json:"delta_ns"`
}

// Snapshot is the immutable view of the most recent completed cycle. The
// controller publishes a fresh snapshot after every scan; readers never see
// a cycle in progress.
type Snapshot struct {
	Cycle     uint64          `json:"cycle"`
	At        time.Time       `json:"at"`
	Tracked   int             `json:"tracked"`
	Processes []ProcessStatus `json:"processes"`
}

// Stats are the controller's lifetime counters.
type Stats struct {
	Running   bool      `json:"running"`
	StartedAt time.Time `json:"started_at"`
	Cycles    uint64    `json:"cycles"`
	Applied   uint64    `json:"applied"`
	Failed    uint64    `json:"failed"`
	Reaped    uint64    `json:"reaped"`
}

// Option configures a Controller.
type Option func(*Controller)

// WithNotify registers a callback invoked for every applied niceness change.
// The callback runs on the scan goroutine and must not block.
func WithNotify(fn func(Event)) Option {
	return func(c *Controller) { c.notify = fn }
}

// Controller owns the scan goroutine and the learning state behind it.
type Controller struct {
	cfg     Config
	src     procs.Source
	track   *tracker.Tracker
	rng     *rand.Rand
	weakRNG bool
	exclude map[string]struct{}
	notify  func(Event)
	logger  *logging.Logger

	snap    atomic.Pointer[Snapshot]
	cycles  atomic.Uint64
	applied atomic.Uint64
	failed  atomic.Uint64
	reaped  atomic.Uint64

	running   atomic.Bool
	startedAt time.Time
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// New builds a controller over the given accounting source. The controller
// is inert until Start.
func New(cfg Config, src procs.Source, opts ...Option) *Controller {
	c := &Controller{
		cfg:     cfg,
		src:     src,
		track:   tracker.New(),
		exclude: make(map[string]struct{}, len(cfg.Exclude)),
		logger:  logging.Get("controller"),
	}
	c.rng, c.weakRNG = policy.NewRand(cfg.Seed)
	for _, name := range cfg.Exclude {
		c.exclude[name] = struct{}{}
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start probes the accounting source once and then launches the scan
// goroutine. A failed probe means the platform cannot be observed and
// nothing is started. The given context bounds only the probe; the loop
// itself runs until Stop.
func (c *Controller) Start(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	if _, err := c.src.Snapshot(ctx); err != nil {
		c.running.Store(false)
		return fmt.Errorf("probing process accounting: %w", err)
	}

	if c.weakRNG {
		c.logger.Warn("entropy pool unavailable, exploration seeded from clock")
	}

	c.startedAt = time.Now()
	runCtx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel

	c.logger.Info("controller started",
		"alpha", c.cfg.Alpha,
		"gamma", c.cfg.Gamma,
		"epsilon", c.cfg.Epsilon,
		"interval", c.cfg.Interval,
		"step", c.cfg.Step)
	if len(c.cfg.Exclude) > 0 {
		c.logger.Info("excluding processes by name", "names", c.cfg.Exclude)
	}

	c.wg.Add(1)
	go c.run(runCtx)
	return nil
}

// Stop halts the scan goroutine, waiting out any scan in progress, and
// drops all learned records. It is safe to call more than once.
func (c *Controller) Stop() {
	if !c.running.CompareAndSwap(true, false) {
		return
	}
	c.cancel()
	c.wg.Wait()

	dropped := c.track.Len()
	c.track.Clear()
	c.logger.Info("controller stopped", "cycles", c.cycles.Load(), "records_dropped", dropped)
}

// Running reports whether the scan goroutine is active.
func (c *Controller) Running() bool {
	return c.running.Load()
}

// Config returns the parameters the controller was built with.
func (c *Controller) Config() Config {
	return c.cfg
}

// Snapshot returns the view published by the most recent completed cycle.
// Before the first cycle completes it returns an empty snapshot.
func (c *Controller) Snapshot() *Snapshot {
	if s := c.snap.Load(); s != nil {
		return s
	}
	return &Snapshot{}
}

// Stats returns the lifetime counters.
func (c *Controller) Stats() Stats {
	return Stats{
		Running:   c.running.Load(),
		StartedAt: c.startedAt,
		Cycles:    c.cycles.Load(),
		Applied:   c.applied.Load(),
		Failed:    c.failed.Load(),
		Reaped:    c.reaped.Load(),
	}
}

// run alternates full scans with interruptible sleeps. The scan itself is
// never cancelled mid-pass; stopping waits for the pass to finish.
func (c *Controller) run(ctx context.Context) {
	defer c.wg.Done()

	for {
		c.scan(ctx)

		select {
		case <-ctx.Done():
			return
		case <-time.After(c.cfg.Interval):
		}
	}
}
