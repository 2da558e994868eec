// Package policy implements the tabular Q-learning policy that drives
// niceness adjustments. It discretizes per-interval CPU runtime deltas into
// load states and selects one of three niceness actions with an
// epsilon-greedy rule. All arithmetic is integer; learning parameters are
// expressed in parts per thousand so the policy never touches floating point.
package policy

// State is the discretized CPU load of a process over one sampling interval.
type State int

// Load states, ordered from idle to busy.
const (
	// StateLow marks a process that consumed under MedThresholdNS of CPU.
	StateLow State = iota

	// StateMed marks a process between MedThresholdNS and HighThresholdNS.
	StateMed

	// StateHigh marks a process at or above HighThresholdNS.
	StateHigh
)

// NumStates is the number of discrete load states.
const NumStates = 3

// String returns the short name of the state.
func (s State) String() string {
	switch s {
	case StateLow:
		return "low"
	case StateMed:
		return "med"
	case StateHigh:
		return "high"
	default:
		return "unknown"
	}
}

// Action is one niceness adjustment a process can receive each interval.
type Action int

// Actions, in preference order for greedy tie-breaking: when several actions
// share the best value, the lowest-numbered one wins.
const (
	// ActionLowerNice subtracts the step from niceness, raising priority.
	ActionLowerNice Action = iota

	// ActionRaiseNice adds the step to niceness, lowering priority.
	ActionRaiseNice

	// ActionHold leaves niceness unchanged.
	ActionHold
)

// NumActions is the number of actions available in every state.
const NumActions = 3

// String returns the short name of the action.
func (a Action) String() string {
	switch a {
	case ActionLowerNice:
		return "lower"
	case ActionRaiseNice:
		return "raise"
	case ActionHold:
		return "hold"
	default:
		return "unknown"
	}
}

// Delta thresholds separating the load states, in nanoseconds of CPU time
// consumed during one sampling interval. These are fixed characteristics of
// the state space, not tunables.
const (
	// MedThresholdNS is the smallest delta classified as StateMed.
	MedThresholdNS uint64 = 1_000_000

	// HighThresholdNS is the smallest delta classified as StateHigh.
	HighThresholdNS uint64 = 50_000_000
)

// Permille is the fixed-point scale for the learning parameters. Alpha,
// gamma and epsilon all range over [0, Permille].
const Permille int64 = 1000

// nsPerMilli converts nanosecond deltas to whole milliseconds for rewards.
const nsPerMilli uint64 = 1_000_000

// Niceness bounds as enforced by the kernel.
const (
	NiceMin = -20
	NiceMax = 19
)

// ClassifyDelta maps a runtime delta to its load state.
func ClassifyDelta(deltaNS uint64) State {
	switch {
	case deltaNS < MedThresholdNS:
		return StateLow
	case deltaNS < HighThresholdNS:
		return StateMed
	default:
		return StateHigh
	}
}

// Reward scores one interval of CPU consumption. The reward is the delta in
// whole milliseconds, negated, so heavier consumption scores lower. Deltas
// under one millisecond truncate to zero.
func Reward(deltaNS uint64) int64 {
	return -int64(deltaNS / nsPerMilli)
}

// Delta returns the growth of a cumulative runtime counter between two
// samples. A counter that moved backwards (PID reuse, or an accounting
// reset) yields zero rather than underflowing.
func Delta(prev, cur uint64) uint64 {
	if cur < prev {
		return 0
	}
	return cur - prev
}

// NextNice returns the niceness that results from applying the action to the
// current value: moved by step for ActionLowerNice and ActionRaiseNice,
// unchanged for ActionHold, and clamped to [NiceMin, NiceMax].
func NextNice(cur int, a Action, step int) int {
	n := cur
	switch a {
	case ActionLowerNice:
		n = cur - step
	case ActionRaiseNice:
		n = cur + step
	}
	if n < NiceMin {
		n = NiceMin
	}
	if n > NiceMax {
		n = NiceMax
	}
	return n
}
