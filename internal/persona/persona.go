package persona

// Factor names for the eight continuous emotional factors. Every factor is
// kept in [0,1] for the life of a run. Frustration is the only factor in the
// negative class; it gets its own inertia coefficient.
const (
	FactorQuestionsAnswered = "questionsAnswered"
	FactorFeltHeard         = "feltHeard"
	FactorTrust             = "trust"
	FactorEngagement        = "engagement"
	FactorFrustration       = "frustration"
	FactorConnection        = "connection"
	FactorGoalProgress      = "goalProgress"
	FactorNovelty           = "novelty"
)

// FactorNames lists all eight factors in canonical order. Iteration over
// factors anywhere in the engine uses this slice, never map order.
var FactorNames = []string{
	FactorQuestionsAnswered,
	FactorFeltHeard,
	FactorTrust,
	FactorEngagement,
	FactorFrustration,
	FactorConnection,
	FactorGoalProgress,
	FactorNovelty,
}

// Exit categories. MaxTurns is the unconditional bound; the other five are
// probabilistic and configured per persona.
const (
	ExitSatisfied    = "satisfied"
	ExitFrustrated   = "frustrated"
	ExitBored        = "bored"
	ExitDisconnected = "disconnected"
	ExitGhosted      = "ghosted"
	ExitMaxTurns     = "max_turns"
)

// ExitCategories lists the five probabilistic categories in the order the
// termination decider walks them. The cumulative-probability walk depends on
// this order, so it is fixed here and nowhere else.
var ExitCategories = []string{
	ExitSatisfied,
	ExitFrustrated,
	ExitBored,
	ExitDisconnected,
	ExitGhosted,
}

// RequiredReactionKeys are the reactionWeights entries every persona must
// define. Keys prefixed with "!" fire when the flag is reported false.
// Negated forms of theyFeltGenuine, theyDeflected and thisWasNewInformation
// carry no weight by convention, so they are not required.
var RequiredReactionKeys = []string{
	"theyAddressedMyQuestion",
	"!theyAddressedMyQuestion",
	"theyUnderstoodMe",
	"!theyUnderstoodMe",
	"theyFeltGenuine",
	"theyDeflected",
	"theyRepeated",
	"!theyRepeated",
	"thisWasNewInformation",
	"iWantToContinue",
	"!iWantToContinue",
}

// Definition is the declarative configuration for one behavioral archetype.
// Loaded once per batch, validated up front, and treated as immutable for the
// rest of the run.
type Definition struct {
	PersonaID   string `yaml:"personaId"`
	DisplayName string `yaml:"displayName"`

	// EmotionalDefaults seeds each of the eight factors at run start.
	EmotionalDefaults map[string]float64 `yaml:"emotionalDefaults"`

	// EmotionalInertia holds the two smoothing coefficients in [0,1].
	// 1 means a factor never moves; 0 means it takes the raw new value.
	EmotionalInertia Inertia `yaml:"emotionalInertia"`

	// ReactionWeights maps a reaction key (flag name, or "!"+name for the
	// flag reported false) to a partial per-factor delta vector.
	ReactionWeights map[string]map[string]float64 `yaml:"reactionWeights"`

	// DecayRates are unconditional per-turn drifts, applied every update
	// regardless of reaction. Must cover engagement and novelty at minimum.
	DecayRates map[string]float64 `yaml:"decayRates"`

	// ExitThresholds configures the five probabilistic exit categories.
	ExitThresholds map[string]ExitThreshold `yaml:"exitThresholds"`

	// ExitBehavior is, per category, the probability that a parting message
	// is generated when that category fires.
	ExitBehavior map[string]float64 `yaml:"exitBehavior"`

	Termination Termination `yaml:"termination"`
	Objectives  Objectives  `yaml:"objectives"`

	// Narrative fields consumed only by the prompt builder.
	ConversationStyle string   `yaml:"conversationStyle"`
	Constraints       []string `yaml:"constraints"`
	Demographics      string   `yaml:"demographics"`
	Values            []string `yaml:"values"`
	Behavioral        string   `yaml:"behavioral"`
	Opening           Opening  `yaml:"opening"`
}

// Inertia holds the smoothing coefficients for the two factor classes.
// Pointers so the validator can tell a missing coefficient from 0.
type Inertia struct {
	Positive *float64 `yaml:"positive"`
	Negative *float64 `yaml:"negative"`
}

// ExitThreshold is the condition set and base probability for one category.
// Conditions map factor name to threshold; the comparison direction is fixed
// per category (satisfied/frustrated fire at or above, the rest below).
type ExitThreshold struct {
	Conditions  map[string]float64 `yaml:"conditions"`
	Probability *float64           `yaml:"probability"`

	// MinTurn gates ghosted only: ghosting cannot fire before this turn.
	MinTurn *int `yaml:"minTurn,omitempty"`
}

// Termination bounds every run: no exit before MinTurns, forced exit at
// MaxTurns.
type Termination struct {
	MinTurns int `yaml:"minTurns"`
	MaxTurns int `yaml:"maxTurns"`
}

// Objectives describe what the persona is trying to get out of the
// conversation. MustAnswer questions feed both the prompt builder and the
// questionsAnswered coverage bookkeeping.
type Objectives struct {
	Goal       string   `yaml:"goal"`
	MustAnswer []string `yaml:"mustAnswer"`
}

type Opening struct {
	FirstMessage string `yaml:"firstMessage"`
}

// IsNegativeFactor reports whether a factor uses the negative inertia
// coefficient. Frustration is the only member of the negative class.
func IsNegativeFactor(name string) bool {
	return name == FactorFrustration
}
