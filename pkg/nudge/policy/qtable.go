package policy

import "math/rand"

// Table holds the learned action values for one process, indexed by state
// and action. Values are scaled by Permille and start at zero; they are not
// clamped, so int64 provides the headroom for long runs.
type Table [NumStates][NumActions]int64

// Best returns the highest-valued action in the given state. Ties resolve to
// the lowest-numbered action, so a fresh all-zero table always yields
// ActionLowerNice.
func (t *Table) Best(s State) Action {
	best := Action(0)
	for a := Action(1); a < NumActions; a++ {
		if t[s][a] > t[s][best] {
			best = a
		}
	}
	return best
}

// BestValue returns the value of the highest-valued action in the state.
func (t *Table) BestValue(s State) int64 {
	best := t[s][0]
	for _, q := range t[s][1:] {
		if q > best {
			best = q
		}
	}
	return best
}

// Update applies one temporal-difference step for the (s, a) pair observed
// one interval ago, given the reward earned since and the state the process
// moved to:
//
//	q[s][a] += alpha * (reward + gamma*max(q[next])/1000 - q[s][a]) / 1000
//
// Alpha and gamma are permille values. Integer division truncates toward
// zero, so errors smaller than the alpha scaling leave the value unchanged.
func (t *Table) Update(s State, a Action, reward int64, next State, alpha, gamma int64) {
	tdErr := reward + gamma*t.BestValue(next)/Permille - t[s][a]
	t[s][a] += alpha * tdErr / Permille
}

// Choose picks the next action for a process in state s. With probability
// epsilon/1000 it explores uniformly at random; otherwise it exploits the
// table greedily via Best.
func Choose(rng *rand.Rand, t *Table, s State, epsilon int64) Action {
	if rng.Int63n(Permille) < epsilon {
		return Action(rng.Int63n(NumActions))
	}
	return t.Best(s)
}
