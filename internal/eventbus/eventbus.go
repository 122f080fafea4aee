// Copyright 2025 James Ross

// Package eventbus is the optional job-lifecycle event fan-out
// described in SPEC_FULL.md §3.2. It is pure observability: nothing
// subscribes back into the admission or dispatch path, so a bus
// outage never affects correctness, only the optional status-watch
// endpoint (internal/httpapi) that reads from it. The TUI
// (internal/tui) polls the job API and does not use the bus.
package eventbus

import (
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/jamesross/wasm-job-sandbox/internal/domain"
)

// Event is published once per status transition made by the
// dispatcher's execution task (Running, then Finished or Failed). No
// event is published for Queued, nor for a job the dispatcher rejects
// before execution.
type Event struct {
	JobID    string `json:"job_id"`
	TenantID string `json:"tenant_id"`
	Status   string `json:"status"`
	Message  string `json:"message,omitempty"`
}

// Bus publishes Events onto subject jobs.<tenant_id>.<job_id>. A nil
// *Bus is valid and every method becomes a no-op, so callers do not
// need to branch on whether the event bus is enabled in config.
type Bus struct {
	conn *nats.Conn
	log  *zap.Logger
}

// Connect dials url and returns a ready Bus. Returns an error if the
// broker cannot be reached; callers should treat that as fatal only
// when the event bus is explicitly enabled in config.
func Connect(url string, log *zap.Logger) (*Bus, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("connect to nats at %s: %w", url, err)
	}
	return &Bus{conn: conn, log: log}, nil
}

// Publish emits one lifecycle event for job. Errors are logged, not
// returned: a failed publish must never affect the registry write
// that triggered it.
func (b *Bus) Publish(job domain.Job) {
	if b == nil || b.conn == nil {
		return
	}
	subject := fmt.Sprintf("jobs.%s.%s", job.TenantID, job.ID.String())
	evt := Event{
		JobID:    job.ID.String(),
		TenantID: job.TenantID,
		Status:   job.Status.Kind.String(),
		Message:  job.Status.Message,
	}
	data, err := json.Marshal(evt)
	if err != nil {
		b.log.Warn("eventbus: marshal event failed", zap.Error(err))
		return
	}
	if err := b.conn.Publish(subject, data); err != nil {
		b.log.Warn("eventbus: publish failed", zap.String("subject", subject), zap.Error(err))
	}
}

// Subscribe registers handler for every event on subject pattern
// "jobs.<tenant_id>.<job_id>", used by the status-watch endpoint to
// follow a single job to its terminal state.
func (b *Bus) Subscribe(subject string, handler func(Event)) (*nats.Subscription, error) {
	if b == nil || b.conn == nil {
		return nil, fmt.Errorf("eventbus: not connected")
	}
	return b.conn.Subscribe(subject, func(msg *nats.Msg) {
		var evt Event
		if err := json.Unmarshal(msg.Data, &evt); err != nil {
			b.log.Warn("eventbus: unmarshal event failed", zap.Error(err))
			return
		}
		handler(evt)
	})
}

// Close drains and closes the underlying connection.
func (b *Bus) Close() {
	if b == nil || b.conn == nil {
		return
	}
	b.conn.Close()
}
