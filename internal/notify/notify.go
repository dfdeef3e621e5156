// Package notify delivers committed moderation events to observers outside
// the transaction that produced them.
package notify

import (
	"context"
	"log/slog"
	"sync"

	"qamod/internal/moderation"
)

// Handler consumes one event on the dispatcher's goroutine.
type Handler func(ctx context.Context, e moderation.Event)

// Dispatcher queues events and hands them to a handler on a background
// goroutine so Notify never blocks the request path. When the queue is full
// the event is dropped and logged.
type Dispatcher struct {
	handler Handler
	queue   chan moderation.Event
	logger  *slog.Logger

	wg       sync.WaitGroup
	stopOnce sync.Once
	mu       sync.RWMutex
	closed   bool
}

// NewDispatcher creates a dispatcher with the given queue size. A nil handler
// logs each event.
func NewDispatcher(handler Handler, size int, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "notify")
	if handler == nil {
		handler = LogHandler(logger)
	}
	if size <= 0 {
		size = 256
	}
	return &Dispatcher{
		handler: handler,
		queue:   make(chan moderation.Event, size),
		logger:  logger,
	}
}

// Start runs the delivery loop until Stop is called.
func (d *Dispatcher) Start() {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for e := range d.queue {
			d.deliver(e)
		}
	}()
}

func (d *Dispatcher) deliver(e moderation.Event) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("notification handler panicked", "kind", e.Kind, "panic", r)
		}
	}()
	d.handler(context.Background(), e)
}

// Notify enqueues an event without blocking.
func (d *Dispatcher) Notify(_ context.Context, e moderation.Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}
	select {
	case d.queue <- e:
	default:
		d.logger.Warn("notification queue full, dropping event", "kind", e.Kind)
	}
}

// Stop stops accepting events and waits for queued ones to be delivered.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		close(d.queue)
		d.mu.Unlock()
	})
	d.wg.Wait()
}

// LogHandler returns a handler that writes each event as a structured log line.
func LogHandler(logger *slog.Logger) Handler {
	return func(_ context.Context, e moderation.Event) {
		attrs := []any{"kind", e.Kind, "voters", len(e.Voters)}
		if e.Question != nil {
			attrs = append(attrs, "question_id", e.Question.ID, "status", e.Question.Status)
			if e.Question.CloseReasonCode != nil {
				attrs = append(attrs, "reason_code", *e.Question.CloseReasonCode)
			}
		}
		if e.Item != nil {
			attrs = append(attrs,
				"item_id", e.Item.ID,
				"review_type", e.Item.ReviewType,
				"outcome", e.Item.Status,
			)
		}
		if e.Hammer {
			attrs = append(attrs, "hammer", true)
		}
		logger.Info("moderation event", attrs...)
	}
}

// Fanout forwards each event to every notifier in order.
type Fanout []moderation.Notifier

// Notify implements moderation.Notifier.
func (f Fanout) Notify(ctx context.Context, e moderation.Event) {
	for _, n := range f {
		if n != nil {
			n.Notify(ctx, e)
		}
	}
}
