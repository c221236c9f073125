package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/antigravity-dev/marketing-orchestrator/internal/model"
)

// NATSAdapter publishes tasks to a core NATS subject and fans them back in
// on a queue-group subscription, so multiple worker processes share the
// backlog without double-processing a job. No pack example shows bare
// nats.go core pub/sub, so this follows the library's own documented
// client/subscribe idiom directly (justified in the grounding ledger).
type NATSAdapter struct {
	conn    *nats.Conn
	subject string
	sub     *nats.Subscription
	jobs    chan model.Task
}

// NewNATSAdapter connects to url and subscribes subject as a queue
// subscriber in group "orchestrator-workers".
func NewNATSAdapter(url, subject string) (*NATSAdapter, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("queue: connect nats: %w", err)
	}

	a := &NATSAdapter{conn: conn, subject: subject, jobs: make(chan model.Task, 64)}

	sub, err := conn.QueueSubscribe(subject, "orchestrator-workers", a.onMessage)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("queue: subscribe %q: %w", subject, err)
	}
	a.sub = sub
	return a, nil
}

func (a *NATSAdapter) onMessage(msg *nats.Msg) {
	var t model.Task
	if err := json.Unmarshal(msg.Data, &t); err != nil {
		return // malformed message; drop rather than crash the worker loop
	}
	a.jobs <- t
}

func (a *NATSAdapter) Publish(ctx context.Context, t model.Task) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("queue: marshal task %q: %w", t.ID, err)
	}
	if err := a.conn.Publish(a.subject, data); err != nil {
		return fmt.Errorf("queue: publish task %q: %w", t.ID, err)
	}
	return nil
}

func (a *NATSAdapter) Jobs() <-chan model.Task {
	return a.jobs
}

func (a *NATSAdapter) Close() error {
	if a.sub != nil {
		_ = a.sub.Unsubscribe()
	}
	a.conn.Close()
	close(a.jobs)
	return nil
}
