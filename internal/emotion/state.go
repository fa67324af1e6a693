package emotion

import (
	"github.com/voxpop-labs/voxpop/internal/persona"
	"github.com/voxpop-labs/voxpop/internal/reaction"
)

// Factors is a snapshot of the eight continuous factors, each in [0,1].
type Factors map[string]float64

// Clone returns an independent copy.
func (f Factors) Clone() Factors {
	out := make(Factors, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// TurnRecord is one entry in the per-run audit trail: the reaction that drove
// an update plus the state on either side of it and the raw (pre-blend,
// pre-clamp) deltas. Simulation logic never reads these; they exist for
// reporting and post-hoc analysis only.
type TurnRecord struct {
	Turn     int               `json:"turn"`
	Reaction reaction.Reaction `json:"reaction"`
	Pre      Factors           `json:"pre"`
	Post     Factors           `json:"post"`
	Deltas   Factors           `json:"deltas"`
}

// State is the live emotional state of one running conversation. Exactly one
// run owns a State; it is mutated only by taking the value Update returns.
type State struct {
	Factors Factors `json:"factors"`

	// MustAnswerCovered holds the objective questions the evaluator's
	// replies have addressed so far (by the containment heuristic).
	MustAnswerCovered []string `json:"mustAnswerCovered"`

	// TurnsSincePositive counts turns since the question was last addressed
	// or new information last arrived.
	TurnsSincePositive int `json:"turnsSincePositive"`

	History []TurnRecord `json:"history"`
}

// NewState validates the definition and seeds a fresh state from its
// emotional defaults. Validation failures propagate unchanged: an incomplete
// persona must never start simulating.
func NewState(def *persona.Definition) (*State, error) {
	if err := persona.Validate(def); err != nil {
		return nil, err
	}

	factors := make(Factors, len(persona.FactorNames))
	for _, f := range persona.FactorNames {
		factors[f] = def.EmotionalDefaults[f]
	}
	return &State{Factors: factors}, nil
}

// clone deep-copies a state so Update can stay non-mutating.
func (s *State) clone() *State {
	out := &State{
		Factors:            s.Factors.Clone(),
		TurnsSincePositive: s.TurnsSincePositive,
	}
	if s.MustAnswerCovered != nil {
		out.MustAnswerCovered = append([]string(nil), s.MustAnswerCovered...)
	}
	if s.History != nil {
		out.History = append([]TurnRecord(nil), s.History...)
	}
	return out
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
