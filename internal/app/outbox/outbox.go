package outbox

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"staybook/internal/domain/shared/events"
)

type EventRecord struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Payload    []byte            `json:"payload"`
	OccurredAt time.Time         `json:"occurred_at"`
	Aggregate  string            `json:"aggregate"`
	Headers    map[string]string `json:"headers,omitempty"`
}

// Outbox stages records inside the current unit of work. Flush is called
// once the command succeeded.
type Outbox interface {
	Add(ctx context.Context, record EventRecord) error
	Flush(ctx context.Context) error
}

// EventHandler consumes delivered records.
type EventHandler interface {
	HandleEvent(ctx context.Context, record EventRecord) error
}

type EventEncoder interface {
	Encode(ev events.DomainEvent) (EventRecord, error)
}

type JSONEventEncoder struct {
	IDGenerator func() string
}

func (e JSONEventEncoder) Encode(ev events.DomainEvent) (EventRecord, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return EventRecord{}, err
	}
	idGen := e.IDGenerator
	if idGen == nil {
		idGen = uuid.NewString
	}
	return EventRecord{
		ID:         idGen(),
		Name:       ev.EventName(),
		Payload:    payload,
		OccurredAt: ev.OccurredAt().UTC(),
		Aggregate:  ev.AggregateID(),
		Headers:    map[string]string{},
	}, nil
}

func RecordDomainEvents(ctx context.Context, box Outbox, encoder EventEncoder, evs []events.DomainEvent) error {
	if box == nil || len(evs) == 0 {
		return nil
	}
	if encoder == nil {
		encoder = JSONEventEncoder{}
	}
	for _, ev := range evs {
		rec, err := encoder.Encode(ev)
		if err != nil {
			return err
		}
		if err := box.Add(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

// Source is an aggregate with pending domain events.
type Source interface {
	Drain() []events.DomainEvent
}

// Stage drains every source and records its events.
func Stage(ctx context.Context, box Outbox, encoder EventEncoder, sources ...Source) error {
	var all []events.DomainEvent
	for _, s := range sources {
		if s == nil {
			continue
		}
		all = append(all, s.Drain()...)
	}
	return RecordDomainEvents(ctx, box, encoder, all)
}
