package reaction

// Reaction is the per-turn set of boolean signals the generation model
// reports about how the persona perceived the evaluator's latest reply.
// The set is closed: the parser rejects anything outside these seven flags.
type Reaction struct {
	TheyAddressedMyQuestion bool `json:"theyAddressedMyQuestion"`
	TheyUnderstoodMe        bool `json:"theyUnderstoodMe"`
	TheyFeltGenuine         bool `json:"theyFeltGenuine"`
	TheyDeflected           bool `json:"theyDeflected"`
	TheyRepeated            bool `json:"theyRepeated"`
	ThisWasNewInformation   bool `json:"thisWasNewInformation"`
	IWantToContinue         bool `json:"iWantToContinue"`
}

// FlagNames lists the seven flags in canonical order.
var FlagNames = []string{
	"theyAddressedMyQuestion",
	"theyUnderstoodMe",
	"theyFeltGenuine",
	"theyDeflected",
	"theyRepeated",
	"thisWasNewInformation",
	"iWantToContinue",
}

// Flags returns the reaction as ordered (name, value) pairs, in FlagNames
// order, for deterministic iteration by the state updater.
func (r Reaction) Flags() []Flag {
	return []Flag{
		{"theyAddressedMyQuestion", r.TheyAddressedMyQuestion},
		{"theyUnderstoodMe", r.TheyUnderstoodMe},
		{"theyFeltGenuine", r.TheyFeltGenuine},
		{"theyDeflected", r.TheyDeflected},
		{"theyRepeated", r.TheyRepeated},
		{"thisWasNewInformation", r.ThisWasNewInformation},
		{"iWantToContinue", r.IWantToContinue},
	}
}

type Flag struct {
	Name  string
	Value bool
}

// Key resolves a flag to its reactionWeights lookup key: the flag name when
// reported true, the negated form when reported false.
func Key(name string, value bool) string {
	if value {
		return name
	}
	return "!" + name
}

// Positive reports whether this reaction resets the turnsSincePositive
// counter: the question was addressed or new information arrived.
func (r Reaction) Positive() bool {
	return r.TheyAddressedMyQuestion || r.ThisWasNewInformation
}
