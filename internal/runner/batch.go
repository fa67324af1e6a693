package runner

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/voxpop-labs/voxpop/internal/persona"
)

// Progress is a point-in-time snapshot of a running batch, served by the
// status API.
type Progress struct {
	BatchID     uuid.UUID      `json:"batch_id"`
	Total       int            `json:"total"`
	Completed   int            `json:"completed"`
	Failed      int            `json:"failed"`
	ExitReasons map[string]int `json:"exit_reasons"`
	FailReasons map[string]int `json:"fail_reasons"`
}

// BatchResult is everything a finished batch produced.
type BatchResult struct {
	BatchID uuid.UUID
	Runs    []*RunResult
}

// Batch runs every persona runsPerPersona times at the given concurrency.
// Runs share no mutable state: each owns its emotional state and decider, so
// the only coordination is the job feed and the progress counters. onRun, if
// non-nil, is invoked for every finished run, one at a time, from the calling
// goroutine.
func (r *Runner) Batch(ctx context.Context, defs []*persona.Definition, runsPerPersona, concurrency int, progress *ProgressTracker, onRun func(*RunResult)) *BatchResult {
	if concurrency < 1 {
		concurrency = 1
	}

	batchID := uuid.New()
	type job struct {
		def       *persona.Definition
		runNumber int
	}

	jobs := make(chan job)
	results := make(chan *RunResult)

	var wg sync.WaitGroup
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				res, err := r.RunConversation(ctx, j.def, batchID, j.runNumber)
				if err != nil {
					// Personas are validated at load time; reaching this
					// means a definition slipped through, so surface it as
					// a failed run rather than dropping it silently.
					r.Logger.Error("run setup failed", "persona", j.def.PersonaID, "error", err)
					res = &RunResult{
						RunID:      uuid.New(),
						BatchID:    batchID,
						PersonaID:  j.def.PersonaID,
						RunNumber:  j.runNumber,
						Failed:     true,
						FailReason: "invalid_persona",
					}
				}
				results <- res
			}
		}()
	}

	total := len(defs) * runsPerPersona
	if progress != nil {
		progress.start(batchID, total)
	}

	go func() {
		defer close(jobs)
		for _, def := range defs {
			for n := 1; n <= runsPerPersona; n++ {
				select {
				case jobs <- job{def: def, runNumber: n}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	out := &BatchResult{BatchID: batchID}
	for res := range results {
		if progress != nil {
			progress.record(res)
		}
		if onRun != nil {
			onRun(res)
		}
		out.Runs = append(out.Runs, res)
	}

	sort.Slice(out.Runs, func(i, j int) bool {
		if out.Runs[i].PersonaID != out.Runs[j].PersonaID {
			return out.Runs[i].PersonaID < out.Runs[j].PersonaID
		}
		return out.Runs[i].RunNumber < out.Runs[j].RunNumber
	})
	return out
}

// ProgressTracker accumulates batch counters behind a mutex for the API.
type ProgressTracker struct {
	mu   sync.Mutex
	snap Progress
}

func NewProgressTracker() *ProgressTracker {
	return &ProgressTracker{snap: Progress{
		ExitReasons: make(map[string]int),
		FailReasons: make(map[string]int),
	}}
}

func (p *ProgressTracker) start(batchID uuid.UUID, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snap.BatchID = batchID
	p.snap.Total = total
}

func (p *ProgressTracker) record(res *RunResult) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snap.Completed++
	if res.Failed {
		p.snap.Failed++
		p.snap.FailReasons[res.FailReason]++
		return
	}
	p.snap.ExitReasons[res.ExitReason]++
}

// Snapshot returns a copy safe to serialize concurrently with a batch.
func (p *ProgressTracker) Snapshot() Progress {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := p.snap
	out.ExitReasons = make(map[string]int, len(p.snap.ExitReasons))
	for k, v := range p.snap.ExitReasons {
		out.ExitReasons[k] = v
	}
	out.FailReasons = make(map[string]int, len(p.snap.FailReasons))
	for k, v := range p.snap.FailReasons {
		out.FailReasons[k] = v
	}
	return out
}
