// Package conversation holds the transcript types shared by the prompt
// builder, the evaluator client and the run loop.
package conversation

// Speaker identifies which side of the conversation produced a message.
type Speaker string

const (
	SpeakerPersona   Speaker = "persona"
	SpeakerEvaluator Speaker = "evaluator"
)

// Message is one transcript entry.
type Message struct {
	Speaker Speaker `json:"speaker"`
	Text    string  `json:"text"`
}

// History is the ordered transcript of one run.
type History []Message

// Append returns a new history with msg added. The engine treats histories
// as values; a turn never mutates the slice a previous turn handed out.
func (h History) Append(speaker Speaker, text string) History {
	next := make(History, len(h), len(h)+1)
	copy(next, h)
	return append(next, Message{Speaker: speaker, Text: text})
}

// EvaluatorTurns returns only the evaluator's messages, in order.
func (h History) EvaluatorTurns() []Message {
	var out []Message
	for _, m := range h {
		if m.Speaker == SpeakerEvaluator {
			out = append(out, m)
		}
	}
	return out
}
