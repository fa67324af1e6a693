package persona

import (
	"fmt"
	"strings"
)

// ValidationError aggregates every problem found in a definition so persona
// authors can fix a broken file in one pass. It is always persona-identified.
type ValidationError struct {
	PersonaID string
	Problems  []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("persona %q: %d problem(s):\n  - %s",
		e.PersonaID, len(e.Problems), strings.Join(e.Problems, "\n  - "))
}

// Validate checks that a definition is structurally complete. It never
// short-circuits: every missing or malformed field is collected and returned
// in a single *ValidationError. A definition that fails validation must never
// reach a simulation; silently defaulting a persona would invalidate the
// test it drives.
func Validate(def *Definition) error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if def.PersonaID == "" {
		add("personaId is required")
	}
	if def.DisplayName == "" {
		add("displayName is required")
	}

	// All eight emotional defaults, each in [0,1].
	if def.EmotionalDefaults == nil {
		add("emotionalDefaults is required")
	} else {
		for _, f := range FactorNames {
			v, ok := def.EmotionalDefaults[f]
			if !ok {
				add("emotionalDefaults[%s] is missing", f)
				continue
			}
			if v < 0 || v > 1 {
				add("emotionalDefaults[%s] = %g is outside [0,1]", f, v)
			}
		}
		for f := range def.EmotionalDefaults {
			if !knownFactor(f) {
				add("emotionalDefaults[%s] is not a known factor", f)
			}
		}
	}

	// Both inertia coefficients.
	checkCoeff := func(name string, v *float64) {
		if v == nil {
			add("emotionalInertia.%s is missing", name)
		} else if *v < 0 || *v > 1 {
			add("emotionalInertia.%s = %g is outside [0,1]", name, *v)
		}
	}
	checkCoeff("positive", def.EmotionalInertia.Positive)
	checkCoeff("negative", def.EmotionalInertia.Negative)

	// A delta vector for every required reaction key, and no vectors that
	// touch unknown factors.
	if def.ReactionWeights == nil {
		add("reactionWeights is required")
	} else {
		for _, key := range RequiredReactionKeys {
			if _, ok := def.ReactionWeights[key]; !ok {
				add("reactionWeights[%s] is missing", key)
			}
		}
		for key, deltas := range def.ReactionWeights {
			for f := range deltas {
				if !knownFactor(f) {
					add("reactionWeights[%s] references unknown factor %q", key, f)
				}
			}
		}
	}

	// Decay for engagement and novelty at minimum.
	if def.DecayRates == nil {
		add("decayRates is required")
	} else {
		for _, f := range []string{FactorEngagement, FactorNovelty} {
			if _, ok := def.DecayRates[f]; !ok {
				add("decayRates[%s] is missing", f)
			}
		}
		for f := range def.DecayRates {
			if !knownFactor(f) {
				add("decayRates[%s] is not a known factor", f)
			}
		}
	}

	// All five exit categories, each with conditions and a probability.
	if def.ExitThresholds == nil {
		add("exitThresholds is required")
	} else {
		for _, cat := range ExitCategories {
			th, ok := def.ExitThresholds[cat]
			if !ok {
				add("exitThresholds[%s] is missing", cat)
				continue
			}
			if len(th.Conditions) == 0 {
				add("exitThresholds[%s].conditions is empty", cat)
			}
			for f := range th.Conditions {
				if !knownFactor(f) {
					add("exitThresholds[%s].conditions references unknown factor %q", cat, f)
				}
			}
			if th.Probability == nil {
				add("exitThresholds[%s].probability is missing", cat)
			} else if *th.Probability < 0 || *th.Probability > 1 {
				add("exitThresholds[%s].probability = %g is outside [0,1]", cat, *th.Probability)
			}
			if cat == ExitGhosted && th.MinTurn == nil {
				add("exitThresholds[ghosted].minTurn is missing")
			}
		}
	}

	// A message probability for every category.
	if def.ExitBehavior == nil {
		add("exitBehavior is required")
	} else {
		for _, cat := range ExitCategories {
			p, ok := def.ExitBehavior[cat]
			if !ok {
				add("exitBehavior[%s] is missing", cat)
			} else if p < 0 || p > 1 {
				add("exitBehavior[%s] = %g is outside [0,1]", cat, p)
			}
		}
	}

	// Turn bounds.
	if def.Termination.MinTurns <= 0 {
		add("termination.minTurns must be a positive integer, got %d", def.Termination.MinTurns)
	}
	if def.Termination.MaxTurns <= 0 {
		add("termination.maxTurns must be a positive integer, got %d", def.Termination.MaxTurns)
	}
	if def.Termination.MinTurns > 0 && def.Termination.MaxTurns > 0 &&
		def.Termination.MinTurns > def.Termination.MaxTurns {
		add("termination.minTurns (%d) exceeds maxTurns (%d)",
			def.Termination.MinTurns, def.Termination.MaxTurns)
	}

	// Narrative fields the prompt builder embeds.
	if def.Objectives.Goal == "" {
		add("objectives.goal is required")
	}
	if len(def.Objectives.MustAnswer) == 0 {
		add("objectives.mustAnswer needs at least one question")
	}
	if def.ConversationStyle == "" {
		add("conversationStyle is required")
	}
	if def.Opening.FirstMessage == "" {
		add("opening.firstMessage is required")
	}

	if len(problems) > 0 {
		return &ValidationError{PersonaID: def.PersonaID, Problems: problems}
	}
	return nil
}

func knownFactor(name string) bool {
	for _, f := range FactorNames {
		if f == name {
			return true
		}
	}
	return false
}
