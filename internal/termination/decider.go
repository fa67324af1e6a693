// Package termination decides, each turn, whether a simulated conversation
// ends and how. Exit is deliberately probabilistic: identical trajectories
// should not all end at one canonical turn, because variance across plausible
// conversation lengths is what stresses the evaluator.
package termination

import (
	"math/rand"

	"github.com/voxpop-labs/voxpop/internal/emotion"
	"github.com/voxpop-labs/voxpop/internal/persona"
)

// Decision is the outcome of one termination check. ExitProbabilities lists
// the base probability of every category that fired this turn, whether or
// not it was selected, for the run log.
type Decision struct {
	Exit              bool               `json:"exit"`
	Reason            string             `json:"reason,omitempty"`
	GenerateMessage   bool               `json:"generateMessage"`
	Probability       float64            `json:"probability"`
	ExitProbabilities map[string]float64 `json:"exitProbabilities,omitempty"`
}

// Decider draws exit decisions from an injected random source so seeded test
// scenarios reproduce. Each run gets its own Decider; it is not safe for
// concurrent use.
type Decider struct {
	rng *rand.Rand
}

func NewDecider(rng *rand.Rand) *Decider {
	return &Decider{rng: rng}
}

// Decide evaluates the termination model for one turn. The automaton is
// absorbing: once a terminal decision is returned the run stops, and the
// check is otherwise memoryless, re-evaluated fresh from the current state.
//
// Before minTurns the answer is always "continue" and no randomness is
// consumed. At or past maxTurns the answer is always max_turns with no
// parting message, which bounds every run. In between, all five categories
// are evaluated independently; each firing category contributes its base
// probability to a cumulative walk over a single uniform draw, in the fixed
// order satisfied, frustrated, bored, disconnected, ghosted.
func (d *Decider) Decide(state *emotion.State, turn int, def *persona.Definition) Decision {
	if turn < def.Termination.MinTurns {
		return Decision{Exit: false}
	}
	if turn >= def.Termination.MaxTurns {
		return Decision{
			Exit:        true,
			Reason:      persona.ExitMaxTurns,
			Probability: 1.0,
		}
	}

	fired := make(map[string]float64)
	for _, cat := range persona.ExitCategories {
		th := def.ExitThresholds[cat]
		if categoryFires(cat, th, state.Factors, turn) {
			fired[cat] = *th.Probability
		}
	}
	if len(fired) == 0 {
		return Decision{Exit: false}
	}

	r := d.rng.Float64()
	cumulative := 0.0
	for _, cat := range persona.ExitCategories {
		p, ok := fired[cat]
		if !ok {
			continue
		}
		cumulative += p
		if cumulative > r {
			return Decision{
				Exit:              true,
				Reason:            cat,
				GenerateMessage:   d.rng.Float64() < def.ExitBehavior[cat],
				Probability:       p,
				ExitProbabilities: fired,
			}
		}
	}

	return Decision{Exit: false, ExitProbabilities: fired}
}

// categoryFires applies a category's condition set. Satisfied and frustrated
// are "high" categories, firing when every listed factor is at or above its
// threshold; bored, disconnected and ghosted are "low" categories, firing
// when every listed factor is below. Ghosted is additionally gated by its
// own minimum turn.
func categoryFires(cat string, th persona.ExitThreshold, f emotion.Factors, turn int) bool {
	if cat == persona.ExitGhosted && turn < *th.MinTurn {
		return false
	}

	high := cat == persona.ExitSatisfied || cat == persona.ExitFrustrated
	for factor, threshold := range th.Conditions {
		v := f[factor]
		if high && v < threshold {
			return false
		}
		if !high && v >= threshold {
			return false
		}
	}
	return true
}
