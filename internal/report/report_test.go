package report

import (
	"bufio"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"github.com/voxpop-labs/voxpop/internal/emotion"
	"github.com/voxpop-labs/voxpop/internal/persona"
	"github.com/voxpop-labs/voxpop/internal/runner"
)

func factorsAt(v float64) emotion.Factors {
	f := make(emotion.Factors)
	for _, name := range persona.FactorNames {
		f[name] = v
	}
	return f
}

func TestSummarize_SeparatesFailuresFromExits(t *testing.T) {
	runs := []*runner.RunResult{
		{ExitReason: "satisfied", FinalFactors: factorsAt(0.8), Turns: make([]runner.TurnLog, 4)},
		{ExitReason: "satisfied", FinalFactors: factorsAt(0.6), Turns: make([]runner.TurnLog, 6)},
		{ExitReason: "max_turns", FinalFactors: factorsAt(0.4), Turns: make([]runner.TurnLog, 10)},
		{Failed: true, FailReason: "parse_error"},
		{Failed: true, FailReason: "network_error"},
	}

	s := Summarize(runs)

	if s.Runs != 5 || s.Succeeded != 3 || s.Failed != 2 {
		t.Fatalf("unexpected counts: %+v", s)
	}
	if s.ExitReasons["satisfied"] != 2 || s.ExitReasons["max_turns"] != 1 {
		t.Errorf("unexpected exit reasons: %v", s.ExitReasons)
	}
	if _, ok := s.ExitReasons["parse_error"]; ok {
		t.Error("failures leaked into exit reasons")
	}
	if s.FailReasons["parse_error"] != 1 || s.FailReasons["network_error"] != 1 {
		t.Errorf("unexpected fail reasons: %v", s.FailReasons)
	}

	// Means are over succeeded runs only.
	if math.Abs(s.MeanTurns-20.0/3.0) > 1e-9 {
		t.Errorf("expected mean turns 20/3, got %g", s.MeanTurns)
	}
	want := (0.8 + 0.6 + 0.4) / 3
	if math.Abs(s.MeanFinalFactors[persona.FactorTrust]-want) > 1e-9 {
		t.Errorf("expected mean trust %g, got %g", want, s.MeanFinalFactors[persona.FactorTrust])
	}
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil)
	if s.Runs != 0 || s.MeanTurns != 0 {
		t.Errorf("unexpected summary for empty batch: %+v", s)
	}
	if s.MeanFinalFactors != nil {
		t.Error("no means expected with zero succeeded runs")
	}
}

func TestWriter_AppendsJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.jsonl")
	w, err := NewWriter(path)
	if err != nil {
		t.Fatalf("open writer: %v", err)
	}

	for i := 1; i <= 2; i++ {
		res := &runner.RunResult{
			RunID:      uuid.New(),
			BatchID:    uuid.New(),
			PersonaID:  "price-hunter",
			RunNumber:  i,
			ExitReason: "bored",
		}
		if err := w.Write(res); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	var lines int
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines++
		var res runner.RunResult
		if err := json.Unmarshal(scanner.Bytes(), &res); err != nil {
			t.Fatalf("line %d is not valid JSON: %v", lines, err)
		}
		if res.PersonaID != "price-hunter" || res.ExitReason != "bored" {
			t.Errorf("line %d round trip mismatch: %+v", lines, res)
		}
	}
	if lines != 2 {
		t.Errorf("expected 2 lines, got %d", lines)
	}
}
