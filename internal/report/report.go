// Package report writes run artifacts and aggregates batch statistics.
// Failed runs are counted separately from genuine exits everywhere; folding
// them together would make the exit-reason distribution lie.
package report

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/voxpop-labs/voxpop/internal/emotion"
	"github.com/voxpop-labs/voxpop/internal/persona"
	"github.com/voxpop-labs/voxpop/internal/runner"
)

// Writer appends one JSON line per run to a results file.
type Writer struct {
	f   *os.File
	enc *json.Encoder
}

func NewWriter(path string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open results file: %w", err)
	}
	return &Writer{f: f, enc: json.NewEncoder(f)}, nil
}

func (w *Writer) Write(res *runner.RunResult) error {
	if err := w.enc.Encode(res); err != nil {
		return fmt.Errorf("write run %s: %w", res.RunID, err)
	}
	return nil
}

func (w *Writer) Close() error {
	return w.f.Close()
}

// Summary aggregates one batch.
type Summary struct {
	Runs             int                `json:"runs"`
	Succeeded        int                `json:"succeeded"`
	Failed           int                `json:"failed"`
	ExitReasons      map[string]int     `json:"exit_reasons"`
	FailReasons      map[string]int     `json:"fail_reasons"`
	MeanTurns        float64            `json:"mean_turns"`
	MeanFinalFactors map[string]float64 `json:"mean_final_factors"`
}

// Summarize computes the batch summary. Exit-reason statistics, mean turn
// counts and mean final factors are computed over succeeded runs only.
func Summarize(runs []*runner.RunResult) Summary {
	s := Summary{
		ExitReasons: make(map[string]int),
		FailReasons: make(map[string]int),
	}

	factorSums := make(emotion.Factors)
	totalTurns := 0
	for _, res := range runs {
		s.Runs++
		if res.Failed {
			s.Failed++
			s.FailReasons[res.FailReason]++
			continue
		}
		s.Succeeded++
		s.ExitReasons[res.ExitReason]++
		totalTurns += len(res.Turns)
		for f, v := range res.FinalFactors {
			factorSums[f] += v
		}
	}

	if s.Succeeded > 0 {
		s.MeanTurns = float64(totalTurns) / float64(s.Succeeded)
		s.MeanFinalFactors = make(map[string]float64, len(persona.FactorNames))
		for _, f := range persona.FactorNames {
			s.MeanFinalFactors[f] = factorSums[f] / float64(s.Succeeded)
		}
	}
	return s
}
