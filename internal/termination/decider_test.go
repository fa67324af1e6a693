package termination

import (
	"math/rand"
	"testing"

	"github.com/voxpop-labs/voxpop/internal/emotion"
	"github.com/voxpop-labs/voxpop/internal/persona"
)

func fptr(v float64) *float64 { return &v }
func iptr(v int) *int         { return &v }

// deciderDefinition builds a definition whose thresholds tests adjust.
func deciderDefinition() *persona.Definition {
	defaults := map[string]float64{}
	for _, f := range persona.FactorNames {
		defaults[f] = 0.5
	}
	weights := map[string]map[string]float64{}
	for _, key := range persona.RequiredReactionKeys {
		weights[key] = map[string]float64{}
	}

	return &persona.Definition{
		PersonaID:         "decider-test",
		DisplayName:       "Decider Test",
		EmotionalDefaults: defaults,
		EmotionalInertia:  persona.Inertia{Positive: fptr(0.5), Negative: fptr(0.5)},
		ReactionWeights:   weights,
		DecayRates:        map[string]float64{persona.FactorEngagement: 0, persona.FactorNovelty: 0},
		ExitThresholds: map[string]persona.ExitThreshold{
			persona.ExitSatisfied:    {Conditions: map[string]float64{persona.FactorQuestionsAnswered: 0.8, persona.FactorGoalProgress: 0.7}, Probability: fptr(0.6)},
			persona.ExitFrustrated:   {Conditions: map[string]float64{persona.FactorFrustration: 0.7}, Probability: fptr(0.5)},
			persona.ExitBored:        {Conditions: map[string]float64{persona.FactorEngagement: 0.3, persona.FactorNovelty: 0.2}, Probability: fptr(0.4)},
			persona.ExitDisconnected: {Conditions: map[string]float64{persona.FactorConnection: 0.2, persona.FactorFeltHeard: 0.3}, Probability: fptr(0.4)},
			persona.ExitGhosted:      {Conditions: map[string]float64{persona.FactorEngagement: 0.25, persona.FactorTrust: 0.3}, Probability: fptr(0.3), MinTurn: iptr(6)},
		},
		ExitBehavior: map[string]float64{
			persona.ExitSatisfied:    0.9,
			persona.ExitFrustrated:   0.6,
			persona.ExitBored:        0.4,
			persona.ExitDisconnected: 0.3,
			persona.ExitGhosted:      0.0,
		},
		Termination: persona.Termination{MinTurns: 3, MaxTurns: 10},
		Objectives: persona.Objectives{
			Goal:       "get answers",
			MustAnswer: []string{"does it work"},
		},
		ConversationStyle: "plain",
		Opening:           persona.Opening{FirstMessage: "hello"},
	}
}

func stateWith(t *testing.T, def *persona.Definition, overrides map[string]float64) *emotion.State {
	t.Helper()
	s, err := emotion.NewState(def)
	if err != nil {
		t.Fatalf("state init: %v", err)
	}
	for f, v := range overrides {
		s.Factors[f] = v
	}
	return s
}

func newDecider(seed int64) *Decider {
	return NewDecider(rand.New(rand.NewSource(seed)))
}

// Even a fully satisfied state cannot exit before minTurns.
func TestDecide_NoExitBeforeMinTurns(t *testing.T) {
	def := deciderDefinition()
	s := stateWith(t, def, map[string]float64{
		persona.FactorQuestionsAnswered: 1,
		persona.FactorGoalProgress:      1,
	})

	for seed := int64(0); seed < 20; seed++ {
		d := newDecider(seed)
		for turn := 1; turn < def.Termination.MinTurns; turn++ {
			dec := d.Decide(s, turn, def)
			if dec.Exit {
				t.Fatalf("seed %d turn %d: exited before minTurns: %+v", seed, turn, dec)
			}
		}
	}
}

// At and past maxTurns the decision is always max_turns with no message.
func TestDecide_MaxTurnsForcesExit(t *testing.T) {
	def := deciderDefinition()
	s := stateWith(t, def, nil)

	for _, turn := range []int{10, 11, 50} {
		dec := newDecider(1).Decide(s, turn, def)
		if !dec.Exit {
			t.Fatalf("turn %d: expected exit", turn)
		}
		if dec.Reason != persona.ExitMaxTurns {
			t.Errorf("turn %d: expected max_turns, got %q", turn, dec.Reason)
		}
		if dec.GenerateMessage {
			t.Errorf("turn %d: max_turns must not generate a message", turn)
		}
		if dec.Probability != 1.0 {
			t.Errorf("turn %d: expected probability 1.0, got %g", turn, dec.Probability)
		}
	}
}

func TestDecide_NoCandidates_Continues(t *testing.T) {
	def := deciderDefinition()
	s := stateWith(t, def, nil) // all factors 0.5: nothing fires

	dec := newDecider(1).Decide(s, 5, def)
	if dec.Exit {
		t.Fatalf("expected continue, got %+v", dec)
	}
}

func TestDecide_SatisfiedRequiresAllConditions(t *testing.T) {
	def := deciderDefinition()
	// questionsAnswered meets its threshold, goalProgress does not.
	s := stateWith(t, def, map[string]float64{
		persona.FactorQuestionsAnswered: 0.9,
		persona.FactorGoalProgress:      0.5,
	})

	for seed := int64(0); seed < 50; seed++ {
		dec := newDecider(seed).Decide(s, 5, def)
		if dec.Exit && dec.Reason == persona.ExitSatisfied {
			t.Fatalf("seed %d: satisfied fired with an unmet condition", seed)
		}
	}
}

// Threshold comparisons are >= for satisfied: exactly-at-threshold fires.
func TestDecide_SatisfiedAtExactThreshold(t *testing.T) {
	def := deciderDefinition()
	def.ExitThresholds[persona.ExitSatisfied] = persona.ExitThreshold{
		Conditions:  map[string]float64{persona.FactorQuestionsAnswered: 0.8},
		Probability: fptr(1.0),
	}
	s := stateWith(t, def, map[string]float64{persona.FactorQuestionsAnswered: 0.8})

	dec := newDecider(1).Decide(s, 5, def)
	if !dec.Exit || dec.Reason != persona.ExitSatisfied {
		t.Fatalf("expected satisfied exit at exact threshold, got %+v", dec)
	}
}

// Bored uses strict <: exactly-at-threshold does not fire.
func TestDecide_BoredBelowThresholdOnly(t *testing.T) {
	def := deciderDefinition()
	def.ExitThresholds[persona.ExitBored] = persona.ExitThreshold{
		Conditions:  map[string]float64{persona.FactorEngagement: 0.3},
		Probability: fptr(1.0),
	}

	at := stateWith(t, def, map[string]float64{persona.FactorEngagement: 0.3})
	dec := newDecider(1).Decide(at, 5, def)
	if dec.Exit {
		t.Fatalf("engagement at threshold must not count as bored, got %+v", dec)
	}

	below := stateWith(t, def, map[string]float64{persona.FactorEngagement: 0.29})
	dec = newDecider(1).Decide(below, 5, def)
	if !dec.Exit || dec.Reason != persona.ExitBored {
		t.Fatalf("expected bored exit below threshold, got %+v", dec)
	}
}

func TestDecide_GhostedGatedByMinTurn(t *testing.T) {
	def := deciderDefinition()
	def.ExitThresholds[persona.ExitGhosted] = persona.ExitThreshold{
		Conditions:  map[string]float64{persona.FactorEngagement: 0.25, persona.FactorTrust: 0.3},
		Probability: fptr(1.0),
		MinTurn:     iptr(6),
	}
	s := stateWith(t, def, map[string]float64{
		persona.FactorEngagement: 0.1,
		persona.FactorTrust:      0.1,
	})

	for seed := int64(0); seed < 50; seed++ {
		dec := newDecider(seed).Decide(s, 5, def)
		if dec.Exit && dec.Reason == persona.ExitGhosted {
			t.Fatalf("seed %d: ghosted fired before its minTurn", seed)
		}
	}

	dec := newDecider(1).Decide(s, 6, def)
	if !dec.Exit || dec.Reason != persona.ExitGhosted {
		t.Fatalf("expected ghosted at its minTurn, got %+v", dec)
	}
	if dec.GenerateMessage {
		t.Error("ghosted with messageProbability 0 must not generate a message")
	}
}

// With two candidates firing, the cumulative walk selects per the fixed
// category order: a draw under the first candidate's mass picks it, a draw
// between the two masses picks the second.
func TestDecide_CumulativeWalkOrder(t *testing.T) {
	def := deciderDefinition()
	def.ExitThresholds[persona.ExitFrustrated] = persona.ExitThreshold{
		Conditions:  map[string]float64{persona.FactorFrustration: 0.7},
		Probability: fptr(0.5),
	}
	def.ExitThresholds[persona.ExitBored] = persona.ExitThreshold{
		Conditions:  map[string]float64{persona.FactorEngagement: 0.3},
		Probability: fptr(0.5),
	}
	s := stateWith(t, def, map[string]float64{
		persona.FactorFrustration: 0.9,
		persona.FactorEngagement:  0.1,
	})

	sawFrustrated, sawBored := false, false
	for seed := int64(0); seed < 200; seed++ {
		dec := newDecider(seed).Decide(s, 5, def)
		if !dec.Exit {
			t.Fatalf("seed %d: combined mass 1.0 must always exit", seed)
		}
		if len(dec.ExitProbabilities) != 2 {
			t.Fatalf("seed %d: expected 2 firing categories, got %v", seed, dec.ExitProbabilities)
		}
		switch dec.Reason {
		case persona.ExitFrustrated:
			sawFrustrated = true
		case persona.ExitBored:
			sawBored = true
		default:
			t.Fatalf("seed %d: unexpected reason %q", seed, dec.Reason)
		}
	}
	if !sawFrustrated || !sawBored {
		t.Errorf("expected both categories selected across seeds (frustrated=%v bored=%v)", sawFrustrated, sawBored)
	}
}

// A deterministic check of the walk itself: with the first draw fixed, the
// category picked must be the first one whose cumulative mass exceeds it.
func TestDecide_WalkIsDeterministicGivenDraw(t *testing.T) {
	def := deciderDefinition()
	def.ExitThresholds[persona.ExitFrustrated] = persona.ExitThreshold{
		Conditions:  map[string]float64{persona.FactorFrustration: 0.7},
		Probability: fptr(0.5),
	}
	def.ExitThresholds[persona.ExitBored] = persona.ExitThreshold{
		Conditions:  map[string]float64{persona.FactorEngagement: 0.3},
		Probability: fptr(0.5),
	}
	s := stateWith(t, def, map[string]float64{
		persona.FactorFrustration: 0.9,
		persona.FactorEngagement:  0.1,
	})

	for seed := int64(0); seed < 100; seed++ {
		draw := rand.New(rand.NewSource(seed)).Float64()
		dec := newDecider(seed).Decide(s, 5, def)

		want := persona.ExitFrustrated
		if draw >= 0.5 {
			want = persona.ExitBored
		}
		if dec.Reason != want {
			t.Fatalf("seed %d (draw %g): expected %q, got %q", seed, draw, want, dec.Reason)
		}
	}
}

// Candidate mass below the draw leaves the run continuing.
func TestDecide_LowMassCanContinue(t *testing.T) {
	def := deciderDefinition()
	def.ExitThresholds[persona.ExitBored] = persona.ExitThreshold{
		Conditions:  map[string]float64{persona.FactorEngagement: 0.3},
		Probability: fptr(0.05),
	}
	s := stateWith(t, def, map[string]float64{persona.FactorEngagement: 0.1})

	continued := false
	for seed := int64(0); seed < 100; seed++ {
		dec := newDecider(seed).Decide(s, 5, def)
		if !dec.Exit {
			continued = true
			if dec.ExitProbabilities[persona.ExitBored] != 0.05 {
				t.Errorf("continue decision should still report firing categories, got %v", dec.ExitProbabilities)
			}
			break
		}
	}
	if !continued {
		t.Error("expected at least one continuing decision at probability 0.05")
	}
}

func TestDecide_GenerateMessageUsesExitBehavior(t *testing.T) {
	def := deciderDefinition()
	def.ExitThresholds[persona.ExitSatisfied] = persona.ExitThreshold{
		Conditions:  map[string]float64{persona.FactorQuestionsAnswered: 0.8},
		Probability: fptr(1.0),
	}
	s := stateWith(t, def, map[string]float64{persona.FactorQuestionsAnswered: 1})

	def.ExitBehavior[persona.ExitSatisfied] = 1.0
	dec := newDecider(1).Decide(s, 5, def)
	if !dec.GenerateMessage {
		t.Error("messageProbability 1 must always generate a message")
	}

	def.ExitBehavior[persona.ExitSatisfied] = 0.0
	dec = newDecider(1).Decide(s, 5, def)
	if dec.GenerateMessage {
		t.Error("messageProbability 0 must never generate a message")
	}
}

// Same seed, same state, same turn: identical decision.
func TestDecide_SeededReproducibility(t *testing.T) {
	def := deciderDefinition()
	s := stateWith(t, def, map[string]float64{
		persona.FactorFrustration: 0.9,
		persona.FactorEngagement:  0.1,
	})

	for seed := int64(0); seed < 20; seed++ {
		a := newDecider(seed).Decide(s, 5, def)
		b := newDecider(seed).Decide(s, 5, def)
		if a.Exit != b.Exit || a.Reason != b.Reason || a.GenerateMessage != b.GenerateMessage {
			t.Fatalf("seed %d: decisions differ: %+v vs %+v", seed, a, b)
		}
	}
}
