package memory

import (
	"context"
	"log/slog"
	"sync"

	"staybook/internal/app/outbox"
	"staybook/internal/app/uow"
)

// Outbox stages records on the memory unit found in ctx; the unit hands them
// to its relay once committed. Without a unit, records go to Fallback.
type Outbox struct {
	Fallback *Relay
}

func NewOutbox(fallback *Relay) *Outbox {
	return &Outbox{Fallback: fallback}
}

func (o *Outbox) Add(ctx context.Context, record outbox.EventRecord) error {
	if unit, ok := uow.FromContext(ctx); ok {
		if mu, ok := unit.(*Unit); ok {
			mu.stage(record)
			return nil
		}
	}
	if o.Fallback != nil {
		o.Fallback.Enqueue(record)
	}
	return nil
}

func (o *Outbox) Flush(ctx context.Context) error {
	if unit, ok := uow.FromContext(ctx); ok {
		if mu, ok := unit.(*Unit); ok {
			mu.flush()
		}
	}
	return nil
}

// Relay delivers committed records to a handler in process, in commit order.
type Relay struct {
	Handler outbox.EventHandler
	Logger  *slog.Logger

	mu    sync.Mutex
	queue []outbox.EventRecord
	wake  chan struct{}
	once  sync.Once
}

func NewRelay(handler outbox.EventHandler, logger *slog.Logger) *Relay {
	r := &Relay{Handler: handler, Logger: logger}
	r.init()
	return r
}

func (r *Relay) init() {
	r.once.Do(func() { r.wake = make(chan struct{}, 1) })
}

// Enqueue never blocks.
func (r *Relay) Enqueue(records ...outbox.EventRecord) {
	r.init()
	r.mu.Lock()
	r.queue = append(r.queue, records...)
	r.mu.Unlock()
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// Pending returns the number of undelivered records.
func (r *Relay) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.queue)
}

// Deliver hands every queued record to the handler and returns how many it
// processed. Handler errors are logged; the record is not retried.
func (r *Relay) Deliver(ctx context.Context) int {
	r.mu.Lock()
	batch := r.queue
	r.queue = nil
	r.mu.Unlock()
	for _, rec := range batch {
		if r.Handler == nil {
			continue
		}
		if err := r.Handler.HandleEvent(ctx, rec); err != nil {
			r.logger().Warn("event handler failed", "event", rec.Name, "event_id", rec.ID, "error", err)
		}
	}
	return len(batch)
}

// Run delivers records as they arrive until ctx is done.
func (r *Relay) Run(ctx context.Context) error {
	r.init()
	for {
		select {
		case <-ctx.Done():
			r.Deliver(context.WithoutCancel(ctx))
			return nil
		case <-r.wake:
			r.Deliver(ctx)
		}
	}
}

func (r *Relay) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

var _ outbox.Outbox = (*Outbox)(nil)
