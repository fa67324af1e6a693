// Package events publishes run lifecycle events to NATS so downstream
// dashboards and regression gates can react to batches without polling the
// database.
package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/voxpop-labs/voxpop/internal/runner"
)

// Subjects for run lifecycle events.
const (
	SubjectRunCompleted   = "voxpop.run.completed"
	SubjectRunFailed      = "voxpop.run.failed"
	SubjectBatchCompleted = "voxpop.batch.completed"
)

// RunEvent is the payload for per-run subjects.
type RunEvent struct {
	RunID      string `json:"run_id"`
	BatchID    string `json:"batch_id"`
	PersonaID  string `json:"persona_id"`
	RunNumber  int    `json:"run_number"`
	ExitReason string `json:"exit_reason,omitempty"`
	FailReason string `json:"fail_reason,omitempty"`
	Turns      int    `json:"turns"`
}

// BatchEvent is the payload for SubjectBatchCompleted.
type BatchEvent struct {
	BatchID     string         `json:"batch_id"`
	Runs        int            `json:"runs"`
	Failed      int            `json:"failed"`
	ExitReasons map[string]int `json:"exit_reasons"`
}

type Publisher struct {
	conn   *nats.Conn
	logger *slog.Logger
}

func NewPublisher(url, token string, logger *slog.Logger) (*Publisher, error) {
	opts := []nats.Option{
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return &Publisher{conn: nc, logger: logger}, nil
}

// RunEventFrom maps a run result to its event payload and subject.
func RunEventFrom(res *runner.RunResult) (string, RunEvent) {
	subject := SubjectRunCompleted
	if res.Failed {
		subject = SubjectRunFailed
	}
	return subject, RunEvent{
		RunID:      res.RunID.String(),
		BatchID:    res.BatchID.String(),
		PersonaID:  res.PersonaID,
		RunNumber:  res.RunNumber,
		ExitReason: res.ExitReason,
		FailReason: res.FailReason,
		Turns:      len(res.Turns),
	}
}

// PublishRun emits the completed/failed event for one run.
func (p *Publisher) PublishRun(res *runner.RunResult) error {
	subject, evt := RunEventFrom(res)
	return p.publish(subject, evt)
}

// PublishBatch emits the batch summary event.
func (p *Publisher) PublishBatch(evt BatchEvent) error {
	return p.publish(SubjectBatchCompleted, evt)
}

func (p *Publisher) publish(subject string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return p.conn.Publish(subject, payload)
}

func (p *Publisher) Close() {
	p.conn.Close()
}
