// Package queuestate implements the queue-state publisher (C7): on every
// added/executing/completed event it fans a snapshot out to local
// subscriber callbacks and, if a NATS publisher is configured, to a
// subject external dashboards can subscribe to without polling the admin
// HTTP surface.
package queuestate

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"go.triggerstore.dev/internal/common/metrics"
	"go.triggerstore.dev/internal/queue"
	"go.triggerstore.dev/internal/triggerstore"
)

// EventKind distinguishes the three queue-state events.
type EventKind string

const (
	EventAdded      EventKind = "added"
	EventExecuting  EventKind = "executing"
	EventCompleted  EventKind = "completed"
)

// Subject is the NATS subject prefix queue-state events publish under;
// the event kind is appended (e.g. "queuestate.executing").
const Subject = "queuestate"

// Handler receives a queue-state snapshot for one event kind.
type Handler func(ctx context.Context, kind EventKind, qs triggerstore.QueueStateContext)

// wireEvent is the JSON shape published to NATS, independent of the
// in-process triggerstore.QueueStateContext so the wire format doesn't
// silently change if internal fields are renamed.
type wireEvent struct {
	Kind               EventKind                    `json:"kind"`
	ThreadCount        int                          `json:"thread_count"`
	WaitingCount       int64                        `json:"waiting_count"`
	BlockedCount       int64                        `json:"blocked_count"`
	TotalCount         int64                        `json:"total_count"`
	CurrentlyExecuting []triggerstore.ExecutingEntry `json:"currently_executing"`
}

// Publisher implements triggerstore.QueueStatePublisher. NATS is
// optional: a nil publisher means events only reach local handlers.
type Publisher struct {
	mu       sync.RWMutex
	handlers []Handler
	nats     queue.Publisher
	log      *slog.Logger
}

// New creates a publisher. natsPublisher may be nil to disable NATS
// fan-out (local handlers still fire).
func New(natsPublisher queue.Publisher) *Publisher {
	return &Publisher{
		nats: natsPublisher,
		log:  slog.Default().With("component", "queuestate"),
	}
}

// Subscribe registers a local callback invoked on every event.
func (p *Publisher) Subscribe(h Handler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers = append(p.handlers, h)
}

func (p *Publisher) PublishAdded(ctx context.Context, qs triggerstore.QueueStateContext) {
	p.publish(ctx, EventAdded, qs)
}

func (p *Publisher) PublishExecuting(ctx context.Context, qs triggerstore.QueueStateContext) {
	p.publish(ctx, EventExecuting, qs)
}

func (p *Publisher) PublishCompleted(ctx context.Context, qs triggerstore.QueueStateContext) {
	p.publish(ctx, EventCompleted, qs)
}

// publish invokes local handlers synchronously, then fans out to NATS if
// configured. Every failure is logged and swallowed: observability must
// never fail scheduling.
func (p *Publisher) publish(ctx context.Context, kind EventKind, qs triggerstore.QueueStateContext) {
	p.mu.RLock()
	handlers := make([]Handler, len(p.handlers))
	copy(handlers, p.handlers)
	p.mu.RUnlock()

	for _, h := range handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					p.log.Error("queue-state handler panicked", "event", kind, "panic", r)
				}
			}()
			h(ctx, kind, qs)
		}()
	}

	if p.nats == nil {
		return
	}

	data, err := json.Marshal(wireEvent{
		Kind:               kind,
		ThreadCount:        qs.ThreadCount,
		WaitingCount:       qs.WaitingCount,
		BlockedCount:       qs.BlockedCount,
		TotalCount:         qs.TotalCount,
		CurrentlyExecuting: qs.CurrentlyExecuting,
	})
	if err != nil {
		p.log.Warn("queue-state: marshal event failed", "event", kind, "error", err)
		metrics.QueuePublishErrors.WithLabelValues("nats").Inc()
		return
	}

	if err := p.nats.Publish(ctx, Subject+"."+string(kind), data); err != nil {
		p.log.Warn("queue-state: publish to nats failed", "event", kind, "error", err)
		metrics.QueuePublishErrors.WithLabelValues("nats").Inc()
	}
}
