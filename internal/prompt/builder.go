// Package prompt renders personas, transcripts and emotional state into
// instructions for the generation capability. It is pure text assembly; it
// never calls the network.
package prompt

import (
	"fmt"
	"strings"

	"github.com/voxpop-labs/voxpop/internal/conversation"
	"github.com/voxpop-labs/voxpop/internal/emotion"
	"github.com/voxpop-labs/voxpop/internal/persona"
)

// System returns the fixed system prompt for in-conversation turns.
func System() string { return systemPrompt }

// PartingSystem returns the system prompt for parting-message generation.
func PartingSystem() string { return partingSystemPrompt }

// Build renders the user prompt for one turn: who the persona is, what they
// want and have not yet gotten answered, how they currently feel, and the
// transcript ending with the evaluator's latest reply.
func Build(def *persona.Definition, history conversation.History, state *emotion.State) string {
	var b strings.Builder

	writeCharacterSheet(&b, def)

	b.WriteString("## What you still need answered\n\n")
	uncovered := Uncovered(def, history)
	if len(uncovered) == 0 {
		b.WriteString("All of your questions have been addressed.\n\n")
	} else {
		for _, q := range uncovered {
			fmt.Fprintf(&b, "- %s\n", q)
		}
		b.WriteString("\n")
	}

	b.WriteString("## How you feel right now\n\n")
	b.WriteString(emotion.Describe(state.Factors))
	b.WriteString("\n\n")

	writeTranscript(&b, def, history)

	b.WriteString("Reply as this person to the latest message, and report your reaction flags.\n")
	return b.String()
}

// BuildParting renders the prompt for a goodbye line once a run has decided
// to exit with a message.
func BuildParting(def *persona.Definition, history conversation.History, state *emotion.State, reason string) string {
	var b strings.Builder

	writeCharacterSheet(&b, def)

	b.WriteString("## How you feel right now\n\n")
	b.WriteString(emotion.Describe(state.Factors))
	fmt.Fprintf(&b, "\n\nYou are ending the conversation because you are %s.\n\n", reasonPhrase(reason))

	writeTranscript(&b, def, history)

	b.WriteString("Write this person's final message.\n")
	return b.String()
}

// Uncovered returns the mustAnswer questions not yet addressed in any
// evaluator reply, by case-insensitive substring containment. Only the
// evaluator's side counts: a persona restating its own question must not mark
// it answered. Deliberately naive beyond that: a rephrased answer will not
// register, and that false-negative behavior is part of the tuned model.
// Upgrading this to semantic matching would shift exit-threshold behavior
// everywhere.
func Uncovered(def *persona.Definition, history conversation.History) []string {
	var joined strings.Builder
	for _, m := range history.EvaluatorTurns() {
		joined.WriteString(strings.ToLower(m.Text))
		joined.WriteByte('\n')
	}
	transcript := joined.String()

	var out []string
	for _, q := range def.Objectives.MustAnswer {
		if !strings.Contains(transcript, strings.ToLower(q)) {
			out = append(out, q)
		}
	}
	return out
}

// Covered is the complement of Uncovered, used for state bookkeeping.
func Covered(def *persona.Definition, history conversation.History) []string {
	uncovered := make(map[string]bool)
	for _, q := range Uncovered(def, history) {
		uncovered[q] = true
	}
	var out []string
	for _, q := range def.Objectives.MustAnswer {
		if !uncovered[q] {
			out = append(out, q)
		}
	}
	return out
}

func writeCharacterSheet(b *strings.Builder, def *persona.Definition) {
	fmt.Fprintf(b, "## Who you are\n\nYou are %s.\n", def.DisplayName)
	if def.Demographics != "" {
		fmt.Fprintf(b, "%s\n", def.Demographics)
	}
	fmt.Fprintf(b, "\nYour goal in this conversation: %s\n\n", def.Objectives.Goal)

	fmt.Fprintf(b, "How you talk: %s\n", def.ConversationStyle)
	if def.Behavioral != "" {
		fmt.Fprintf(b, "How you behave: %s\n", def.Behavioral)
	}
	if len(def.Values) > 0 {
		fmt.Fprintf(b, "What you care about: %s\n", strings.Join(def.Values, "; "))
	}
	if len(def.Constraints) > 0 {
		b.WriteString("Hard rules you never break:\n")
		for _, c := range def.Constraints {
			fmt.Fprintf(b, "- %s\n", c)
		}
	}
	b.WriteString("\n")
}

func writeTranscript(b *strings.Builder, def *persona.Definition, history conversation.History) {
	b.WriteString("## The conversation so far\n\n")
	for _, m := range history {
		label := "Them"
		if m.Speaker == conversation.SpeakerPersona {
			label = def.DisplayName
		}
		fmt.Fprintf(b, "%s: %s\n", label, m.Text)
	}
	b.WriteString("\n")
}

func reasonPhrase(reason string) string {
	switch reason {
	case persona.ExitSatisfied:
		return "satisfied with what you got"
	case persona.ExitFrustrated:
		return "too frustrated to keep going"
	case persona.ExitBored:
		return "bored and out of interest"
	case persona.ExitDisconnected:
		return "feeling no connection to them"
	case persona.ExitGhosted:
		return "done and just drifting away"
	default:
		return "ready to stop"
	}
}
