// Package runner sequences the per-turn simulation loop: evaluator call,
// prompt build, generation call, reaction parse, state update, termination
// check. One Runner serves many runs; each run owns its state exclusively.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/voxpop-labs/voxpop/internal/conversation"
	"github.com/voxpop-labs/voxpop/internal/emotion"
	"github.com/voxpop-labs/voxpop/internal/evaluator"
	"github.com/voxpop-labs/voxpop/internal/persona"
	"github.com/voxpop-labs/voxpop/internal/prompt"
	"github.com/voxpop-labs/voxpop/internal/reaction"
	"github.com/voxpop-labs/voxpop/internal/termination"
)

// Failure reasons for runs that did not reach a genuine exit. Reported apart
// from exit reasons so aggregate statistics stay honest.
const (
	FailParseError   = "parse_error"
	FailNetworkError = "network_error"
	FailCanceled     = "canceled"
)

// parseRetryBudget is the number of extra generation attempts after a
// malformed payload. Fixed globally; unlimited retries waste inference cost
// and fabricating a reaction would corrupt the simulation.
const parseRetryBudget = 1

// networkAttempts bounds exponential-backoff retries per network call.
const networkAttempts = 3

// errMalformedOutput marks a generation that came back over the wire fine but
// never yielded a parseable payload. Transport errors stay unwrapped so the
// two report under distinct failure reasons.
var errMalformedOutput = errors.New("malformed generation output")

const (
	turnMaxTokens    = 1024
	partingMaxTokens = 256
)

// Evaluator is the dialogue system under test.
type Evaluator interface {
	Respond(ctx context.Context, personaID string, history conversation.History) (*evaluator.Response, error)
}

// Generator is the text-generation capability that voices the persona.
type Generator interface {
	Generate(ctx context.Context, system, prompt string, maxTokens int) (string, error)
}

// TurnLog is the reporting record for one completed turn.
type TurnLog struct {
	Turn           int                  `json:"turn"`
	EvaluatorReply string               `json:"evaluator_reply"`
	Evaluation     evaluator.Evaluation `json:"evaluation"`
	PersonaMessage string               `json:"persona_message"`
	Reaction       reaction.Reaction    `json:"reaction"`
	Pre            emotion.Factors      `json:"pre"`
	Post           emotion.Factors      `json:"post"`
	Deltas         emotion.Factors      `json:"deltas"`
	Decision       termination.Decision `json:"decision"`
}

// RunResult is the immutable artifact of one run.
type RunResult struct {
	RunID             uuid.UUID       `json:"run_id"`
	BatchID           uuid.UUID       `json:"batch_id"`
	PersonaID         string          `json:"persona_id"`
	RunNumber         int             `json:"run_number"`
	ExitReason        string          `json:"exit_reason,omitempty"`
	Failed            bool            `json:"failed"`
	FailReason        string          `json:"fail_reason,omitempty"`
	PartingMessage    string          `json:"parting_message,omitempty"`
	FinalFactors      emotion.Factors `json:"final_factors,omitempty"`
	MustAnswerCovered []string        `json:"must_answer_covered,omitempty"`
	Turns             []TurnLog       `json:"turns"`
	StartedAt         time.Time       `json:"started_at"`
	FinishedAt        time.Time       `json:"finished_at"`
}

// Runner holds the per-batch collaborators. NewRand seeds each run's decider;
// it defaults to time-seeded randomness and is overridden in tests.
type Runner struct {
	Evaluator Evaluator
	Generator Generator
	Logger    *slog.Logger

	// NewRand returns the random source for one run's termination decider.
	NewRand func() *rand.Rand

	// BackoffBase is the first retry delay for failed network calls.
	BackoffBase time.Duration
}

func New(ev Evaluator, gen Generator, logger *slog.Logger) *Runner {
	return &Runner{
		Evaluator: ev,
		Generator: gen,
		Logger:    logger,
		NewRand: func() *rand.Rand {
			return rand.New(rand.NewSource(time.Now().UnixNano()))
		},
		BackoffBase: 500 * time.Millisecond,
	}
}

// RunConversation simulates one complete conversation. The returned error is
// reserved for setup problems (an invalid persona); transport and parse
// failures inside the loop produce a Failed result instead, so the batch can
// keep going and report them apart from genuine exits.
func (r *Runner) RunConversation(ctx context.Context, def *persona.Definition, batchID uuid.UUID, runNumber int) (*RunResult, error) {
	state, err := emotion.NewState(def)
	if err != nil {
		return nil, fmt.Errorf("init state: %w", err)
	}

	res := &RunResult{
		RunID:     uuid.New(),
		BatchID:   batchID,
		PersonaID: def.PersonaID,
		RunNumber: runNumber,
		StartedAt: time.Now().UTC(),
	}
	decider := termination.NewDecider(r.NewRand())
	history := conversation.History{}.Append(conversation.SpeakerPersona, def.Opening.FirstMessage)

	r.Logger.Info("run starting", "run_id", res.RunID, "persona", def.PersonaID, "run", runNumber)

	for turn := 1; ; turn++ {
		if ctx.Err() != nil {
			return r.fail(res, state, FailCanceled, ctx.Err()), nil
		}

		evalResp, err := r.callEvaluator(ctx, def.PersonaID, history)
		if err != nil {
			return r.fail(res, state, failReason(ctx, FailNetworkError), err), nil
		}
		history = history.Append(conversation.SpeakerEvaluator, evalResp.Reply)

		parsed, err := r.generateTurn(ctx, def, history, state)
		if err != nil {
			reason := FailNetworkError
			if errors.Is(err, errMalformedOutput) {
				reason = FailParseError
			}
			return r.fail(res, state, failReason(ctx, reason), err), nil
		}
		history = history.Append(conversation.SpeakerPersona, parsed.Message)

		state = emotion.Update(state, parsed.Reaction, def, turn)
		state.MustAnswerCovered = prompt.Covered(def, history)

		decision := decider.Decide(state, turn, def)

		last := state.History[len(state.History)-1]
		res.Turns = append(res.Turns, TurnLog{
			Turn:           turn,
			EvaluatorReply: evalResp.Reply,
			Evaluation:     evalResp.Evaluation,
			PersonaMessage: parsed.Message,
			Reaction:       parsed.Reaction,
			Pre:            last.Pre,
			Post:           last.Post,
			Deltas:         last.Deltas,
			Decision:       decision,
		})

		if !decision.Exit {
			continue
		}

		res.ExitReason = decision.Reason
		if decision.GenerateMessage {
			parting, err := r.generateParting(ctx, def, history, state, decision.Reason)
			if err != nil {
				// The run already has a terminal decision; a lost goodbye
				// line is not worth failing it over.
				r.Logger.Warn("parting message generation failed", "run_id", res.RunID, "error", err)
			} else {
				res.PartingMessage = parting
			}
		}
		break
	}

	res.FinalFactors = state.Factors.Clone()
	res.MustAnswerCovered = state.MustAnswerCovered
	res.FinishedAt = time.Now().UTC()

	r.Logger.Info("run finished",
		"run_id", res.RunID,
		"persona", def.PersonaID,
		"exit_reason", res.ExitReason,
		"turns", len(res.Turns),
	)
	return res, nil
}

// generateTurn calls the generator and parses its output, retrying once on a
// malformed payload before giving up.
func (r *Runner) generateTurn(ctx context.Context, def *persona.Definition, history conversation.History, state *emotion.State) (*reaction.Parsed, error) {
	userPrompt := prompt.Build(def, history, state)

	var lastErr error
	for attempt := 0; attempt <= parseRetryBudget; attempt++ {
		raw, err := r.withRetry(ctx, func() (string, error) {
			return r.Generator.Generate(ctx, prompt.System(), userPrompt, turnMaxTokens)
		})
		if err != nil {
			return nil, err
		}

		parsed, err := reaction.Parse(raw)
		if err == nil {
			return parsed, nil
		}
		lastErr = err
		r.Logger.Warn("unparseable generation output", "persona", def.PersonaID, "attempt", attempt+1, "error", err)
	}
	return nil, fmt.Errorf("parse retries exhausted: %w: %w", errMalformedOutput, lastErr)
}

func (r *Runner) generateParting(ctx context.Context, def *persona.Definition, history conversation.History, state *emotion.State, reason string) (string, error) {
	return r.withRetry(ctx, func() (string, error) {
		return r.Generator.Generate(ctx, prompt.PartingSystem(), prompt.BuildParting(def, history, state, reason), partingMaxTokens)
	})
}

func (r *Runner) callEvaluator(ctx context.Context, personaID string, history conversation.History) (*evaluator.Response, error) {
	var resp *evaluator.Response
	_, err := r.withRetry(ctx, func() (string, error) {
		var err error
		resp, err = r.Evaluator.Respond(ctx, personaID, history)
		return "", err
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// withRetry runs fn with bounded exponential backoff.
func (r *Runner) withRetry(ctx context.Context, fn func() (string, error)) (string, error) {
	delay := r.BackoffBase
	var lastErr error
	for attempt := 1; attempt <= networkAttempts; attempt++ {
		out, err := fn()
		if err == nil {
			return out, nil
		}
		lastErr = err
		if attempt == networkAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return "", lastErr
}

func (r *Runner) fail(res *RunResult, state *emotion.State, reason string, err error) *RunResult {
	res.Failed = true
	res.FailReason = reason
	res.FinalFactors = state.Factors.Clone()
	res.MustAnswerCovered = state.MustAnswerCovered
	res.FinishedAt = time.Now().UTC()
	r.Logger.Error("run failed", "run_id", res.RunID, "persona", res.PersonaID, "reason", reason, "error", err)
	return res
}

// failReason maps an error to a failure reason, preferring cancellation when
// the context is already dead.
func failReason(ctx context.Context, fallback string) string {
	if ctx.Err() != nil {
		return FailCanceled
	}
	return fallback
}
