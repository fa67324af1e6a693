package emotion

import (
	"github.com/voxpop-labs/voxpop/internal/persona"
	"github.com/voxpop-labs/voxpop/internal/reaction"
)

// Update applies one turn's reaction to a state and returns the new state.
// Pure and deterministic: identical inputs always produce identical output,
// and the input state is never mutated. All randomness in the engine lives in
// the termination decider.
//
// Per factor: deltas from the reaction keys and the unconditional decay are
// summed into a raw new value, which is then blended against the old value by
// the class inertia and clamped to [0,1]:
//
//	blended = old*inertia + (old+deltas)*(1-inertia)
//
// Frustration uses the negative coefficient, the other seven the positive
// one, so frustration's persistence is tunable independently of positive
// affect.
func Update(s *State, r reaction.Reaction, def *persona.Definition, turn int) *State {
	next := s.clone()

	// 1. Sum reaction deltas. A false flag resolves to its negated key; keys
	// with no configured vector contribute nothing.
	raw := make(Factors, len(persona.FactorNames))
	for _, f := range persona.FactorNames {
		raw[f] = 0
	}
	for _, flag := range r.Flags() {
		key := reaction.Key(flag.Name, flag.Value)
		for f, d := range def.ReactionWeights[key] {
			raw[f] += d
		}
	}

	// 2. Unconditional per-turn decay.
	for f, d := range def.DecayRates {
		raw[f] += d
	}

	// 3-4. Inertia blend, then clamp.
	for _, f := range persona.FactorNames {
		old := s.Factors[f]
		inertia := *def.EmotionalInertia.Positive
		if persona.IsNegativeFactor(f) {
			inertia = *def.EmotionalInertia.Negative
		}
		rawNew := old + raw[f]
		next.Factors[f] = clamp(old*inertia + rawNew*(1-inertia))
	}

	// 5. Positivity bookkeeping.
	if r.Positive() {
		next.TurnsSincePositive = 0
	} else {
		next.TurnsSincePositive++
	}

	// 6. Audit trail. Never read by simulation logic.
	next.History = append(next.History, TurnRecord{
		Turn:     turn,
		Reaction: r,
		Pre:      s.Factors.Clone(),
		Post:     next.Factors.Clone(),
		Deltas:   raw,
	})

	return next
}
