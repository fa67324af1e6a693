package emotion

import (
	"strings"

	"github.com/voxpop-labs/voxpop/internal/persona"
)

// Describe renders a qualitative, prompt-ready description of the current
// factors. The generation model steers the persona's voice from this text, so
// it stays plain language rather than numbers.
func Describe(f Factors) string {
	var parts []string

	switch {
	case f[persona.FactorFrustration] >= 0.7:
		parts = append(parts, "You are very frustrated with how this conversation is going.")
	case f[persona.FactorFrustration] >= 0.4:
		parts = append(parts, "You are getting noticeably frustrated.")
	}

	switch {
	case f[persona.FactorTrust] >= 0.7:
		parts = append(parts, "You trust the person you are talking to.")
	case f[persona.FactorTrust] < 0.3:
		parts = append(parts, "You do not trust the person you are talking to.")
	}

	switch {
	case f[persona.FactorEngagement] >= 0.7:
		parts = append(parts, "You are fully engaged and interested.")
	case f[persona.FactorEngagement] < 0.3:
		parts = append(parts, "You are losing interest and your replies are getting shorter.")
	}

	if f[persona.FactorFeltHeard] < 0.3 {
		parts = append(parts, "You feel like you are not being heard.")
	}
	if f[persona.FactorConnection] >= 0.7 {
		parts = append(parts, "You feel a genuine connection forming.")
	} else if f[persona.FactorConnection] < 0.2 {
		parts = append(parts, "You feel no personal connection at all.")
	}

	switch {
	case f[persona.FactorGoalProgress] >= 0.7:
		parts = append(parts, "You feel close to getting what you came for.")
	case f[persona.FactorGoalProgress] < 0.2:
		parts = append(parts, "You feel no closer to what you came for than when you started.")
	}

	if f[persona.FactorNovelty] < 0.3 {
		parts = append(parts, "The conversation feels repetitive to you.")
	}

	if len(parts) == 0 {
		parts = append(parts, "You feel neutral, neither enthusiastic nor put off.")
	}
	return strings.Join(parts, " ")
}
