package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/voxpop-labs/voxpop/internal/runner"
)

// InsertRun writes one completed run and its turn log in a single
// transaction. Tables: runs, run_turns.
func (s *Store) InsertRun(ctx context.Context, res *runner.RunResult) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	finalState, err := json.Marshal(res.FinalFactors)
	if err != nil {
		return fmt.Errorf("marshal final state: %w", err)
	}
	covered, err := json.Marshal(res.MustAnswerCovered)
	if err != nil {
		return fmt.Errorf("marshal covered questions: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO runs (id, batch_id, persona_id, run_number, exit_reason, failed, fail_reason,
			parting_message, final_state, must_answer_covered, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		res.RunID, res.BatchID, res.PersonaID, res.RunNumber, res.ExitReason, res.Failed,
		res.FailReason, res.PartingMessage, finalState, covered, res.StartedAt, res.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, t := range res.Turns {
		reactionJSON, err := json.Marshal(t.Reaction)
		if err != nil {
			return fmt.Errorf("marshal reaction: %w", err)
		}
		pre, err := json.Marshal(t.Pre)
		if err != nil {
			return fmt.Errorf("marshal pre state: %w", err)
		}
		post, err := json.Marshal(t.Post)
		if err != nil {
			return fmt.Errorf("marshal post state: %w", err)
		}
		deltas, err := json.Marshal(t.Deltas)
		if err != nil {
			return fmt.Errorf("marshal deltas: %w", err)
		}
		criteria, err := json.Marshal(t.Evaluation.Criteria)
		if err != nil {
			return fmt.Errorf("marshal criteria: %w", err)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO run_turns (id, run_id, turn, evaluator_reply, persona_message,
				fitness, classification, criteria, floor_passed,
				reaction, pre_state, post_state, deltas)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
			uuid.New(), res.RunID, t.Turn, t.EvaluatorReply, t.PersonaMessage,
			t.Evaluation.Fitness, t.Evaluation.Classification, criteria, t.Evaluation.FloorPassed,
			reactionJSON, pre, post, deltas,
		)
		if err != nil {
			return fmt.Errorf("insert turn %d: %w", t.Turn, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ExitReasonCounts returns the exit-reason histogram for one batch,
// excluding failed runs.
func (s *Store) ExitReasonCounts(ctx context.Context, batchID uuid.UUID) (map[string]int, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT exit_reason, count(*) FROM runs
		WHERE batch_id = $1 AND NOT failed
		GROUP BY exit_reason`,
		batchID,
	)
	if err != nil {
		return nil, fmt.Errorf("query exit reasons: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var reason string
		var n int
		if err := rows.Scan(&reason, &n); err != nil {
			return nil, fmt.Errorf("scan exit reason: %w", err)
		}
		out[reason] = n
	}
	return out, rows.Err()
}
