package controller

import (
	"context"
	"sort"
	"time"

	"github.com/nudgeproject/nudge/pkg/nudge/policy"
	"github.com/nudgeproject/nudge/pkg/nudge/procs"
)

// scan runs one full control cycle: sample every live process, adjust its
// niceness, and settle the reward for the previous cycle's choice. At the
// end it reaps records of processes that stopped showing up and publishes
// the cycle's snapshot.
func (c *Controller) scan(ctx context.Context) {
	list, err := c.src.Snapshot(ctx)
	if err != nil {
		// Enumeration itself failed; leave all records as they were and
		// try again next cycle.
		c.logger.Warn("process snapshot failed, skipping cycle", "error", err)
		return
	}

	cycle := c.cycles.Add(1)
	view := make([]ProcessStatus, 0, len(list))

	for _, p := range list {
		if p.Zombie {
			continue
		}
		if _, skip := c.exclude[p.Name]; skip {
			continue
		}

		rec, _ := c.track.GetOrCreate(p.PID)
		rec.Cycle = cycle

		if rec.PrevRuntime == 0 {
			// First sighting: seed the baseline, decide nothing yet.
			rec.PrevRuntime = p.Runtime
			continue
		}

		delta := policy.Delta(rec.PrevRuntime, p.Runtime)
		state := policy.ClassifyDelta(delta)
		action := policy.Choose(c.rng, &rec.Q, state, c.cfg.Epsilon)
		nice := c.apply(p, action)

		// The delta measured now is the consequence of whatever was chosen
		// one cycle ago, so the reward lands on the previous pair.
		reward := policy.Reward(delta)
		rec.Q.Update(rec.PrevState, rec.PrevAction, reward, state, c.cfg.Alpha, c.cfg.Gamma)

		rec.PrevState = state
		rec.PrevAction = action
		rec.PrevRuntime = p.Runtime

		view = append(view, ProcessStatus{
			PID:        p.PID,
			Name:       p.Name,
			Nice:       nice,
			State:      state.String(),
			LastAction: action.String(),
			DeltaNS:    delta,
		})
	}

	if n := c.track.Sweep(cycle); n > 0 {
		c.reaped.Add(uint64(n))
		c.logger.Debug("reaped exited processes", "count", n)
	}

	// Heaviest consumers first, PID as tie-break, so status listings are
	// stable between cycles.
	sort.Slice(view, func(i, j int) bool {
		if view[i].DeltaNS != view[j].DeltaNS {
			return view[i].DeltaNS > view[j].DeltaNS
		}
		return view[i].PID < view[j].PID
	})

	c.snap.Store(&Snapshot{
		Cycle:     cycle,
		At:        time.Now(),
		Tracked:   c.track.Len(),
		Processes: view,
	})
}

// apply carries out the chosen action on one process and returns the
// niceness in effect afterwards. Failures are counted and logged but never
// interrupt the cycle; the learning update proceeds with the attempted
// action either way.
func (c *Controller) apply(p procs.Proc, action policy.Action) int {
	next := policy.NextNice(p.Nice, action, c.cfg.Step)
	if next == p.Nice {
		return p.Nice
	}

	if err := c.src.SetNice(p.PID, next); err != nil {
		c.failed.Add(1)
		c.logger.Debug("nice change failed", "pid", p.PID, "name", p.Name, "error", err)
		return p.Nice
	}

	c.applied.Add(1)
	c.logger.Info("nice adjusted",
		"pid", p.PID,
		"name", p.Name,
		"action", action.String(),
		"old", p.Nice,
		"new", next)

	if c.notify != nil {
		c.notify(Event{
			Time:    time.Now(),
			PID:     p.PID,
			Name:    p.Name,
			Action:  action.String(),
			OldNice: p.Nice,
			NewNice: next,
		})
	}
	return next
}
