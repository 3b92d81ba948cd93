package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	appoutbox "staybook/internal/app/outbox"
)

var (
	ErrWorkerNotConfigured = errors.New("outbox: worker missing dependencies")
	ErrNotCloudEvent       = errors.New("outbox: message is not a staybook cloud event")
)

type Producer interface {
	Publish(ctx context.Context, topic string, key string, payload []byte, headers map[string]string) error
}

// ClaimStore is the part of Store the worker drives.
type ClaimStore interface {
	Claim(ctx context.Context, workerID string) (*EventDocument, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error
	MarkDead(ctx context.Context, id string, errMsg string) error
}

type Metrics interface {
	OutboxRecord(outcome string)
}

type Worker struct {
	Store       ClaimStore
	Producer    Producer
	Interval    time.Duration
	TopicPrefix string
	Source      string
	ID          string
	Backoff     []time.Duration
	// MaxAttempts parks a record after this many failed publishes; zero
	// retries forever.
	MaxAttempts int
	BatchSize   int
	Metrics     Metrics
	Logger      *slog.Logger
}

func (w *Worker) Run(ctx context.Context) error {
	if w.Store == nil || w.Producer == nil {
		return ErrWorkerNotConfigured
	}
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	ticker := time.NewTicker(w.interval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := w.Drain(ctx); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				w.logger().Error("outbox claim failed", "worker", w.ID, "error", err)
			}
		}
	}
}

// Drain publishes due records until none is left or the batch is full.
func (w *Worker) Drain(ctx context.Context) (int, error) {
	published := 0
	for i := 0; i < w.batchSize(); i++ {
		done, err := w.processOnce(ctx)
		if err != nil {
			return published, err
		}
		if !done {
			return published, nil
		}
		published++
	}
	return published, nil
}

func (w *Worker) processOnce(ctx context.Context) (bool, error) {
	doc, err := w.Store.Claim(ctx, w.workerID())
	if err != nil || doc == nil {
		return false, err
	}
	topic := TopicFor(w.TopicPrefix, doc.Name)
	payload, headers, err := w.formatPayload(doc)
	if err != nil {
		w.fail(ctx, doc, err)
		return true, nil
	}
	if err := w.Producer.Publish(ctx, topic, doc.Aggregate, payload, headers); err != nil {
		w.fail(ctx, doc, err)
		return true, nil
	}
	if err := w.Store.MarkSent(ctx, doc.ID); err != nil {
		return true, err
	}
	w.observe("published")
	return true, nil
}

func (w *Worker) fail(ctx context.Context, doc *EventDocument, cause error) {
	log := w.logger().With("event_id", doc.ID, "event", doc.Name, "attempts", doc.Attempts+1)
	if w.MaxAttempts > 0 && doc.Attempts+1 >= w.MaxAttempts {
		log.Error("outbox record dead-lettered", "error", cause)
		if err := w.Store.MarkDead(ctx, doc.ID, cause.Error()); err != nil {
			log.Error("outbox mark dead failed", "error", err)
		}
		w.observe("dead")
		return
	}
	log.Warn("outbox publish failed", "error", cause)
	if err := w.Store.MarkFailed(ctx, doc.ID, w.nextRetry(doc.Attempts), cause.Error()); err != nil {
		log.Error("outbox mark failed failed", "error", err)
	}
	w.observe("retry")
}

// CloudEvent is the envelope published for every outbox record.
type CloudEvent struct {
	SpecVersion     string          `json:"specversion"`
	ID              string          `json:"id"`
	Type            string          `json:"type"`
	Source          string          `json:"source"`
	Subject         string          `json:"subject,omitempty"`
	Time            time.Time       `json:"time"`
	DataContentType string          `json:"datacontenttype"`
	TraceParent     string          `json:"traceparent,omitempty"`
	Data            json.RawMessage `json:"data"`
}

const eventTypeSuffix = ".v1"

func (w *Worker) formatPayload(doc *EventDocument) ([]byte, map[string]string, error) {
	if doc.Headers == nil {
		doc.Headers = map[string]string{}
	}
	if !json.Valid(doc.Payload) {
		return nil, nil, fmt.Errorf("outbox: record %s has invalid JSON payload", doc.ID)
	}
	evt := CloudEvent{
		SpecVersion:     "1.0",
		ID:              doc.ID,
		Type:            doc.Name + eventTypeSuffix,
		Source:          w.source(),
		Subject:         doc.Aggregate,
		Time:            doc.OccurredAt,
		DataContentType: "application/json",
		TraceParent:     doc.Headers["traceparent"],
		Data:            doc.Payload,
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return nil, nil, err
	}
	headers := map[string]string{
		"content-type": "application/cloudevents+json",
	}
	for k, v := range doc.Headers {
		headers[k] = v
	}
	return payload, headers, nil
}

// DecodeCloudEvent turns a published envelope back into the outbox record
// it was built from.
func DecodeCloudEvent(payload []byte) (appoutbox.EventRecord, error) {
	var evt CloudEvent
	if err := json.Unmarshal(payload, &evt); err != nil {
		return appoutbox.EventRecord{}, fmt.Errorf("%w: %w", ErrNotCloudEvent, err)
	}
	if evt.ID == "" || !strings.HasSuffix(evt.Type, eventTypeSuffix) {
		return appoutbox.EventRecord{}, ErrNotCloudEvent
	}
	headers := map[string]string{}
	if evt.TraceParent != "" {
		headers["traceparent"] = evt.TraceParent
	}
	return appoutbox.EventRecord{
		ID:         evt.ID,
		Name:       strings.TrimSuffix(evt.Type, eventTypeSuffix),
		Payload:    []byte(evt.Data),
		OccurredAt: evt.Time.UTC(),
		Aggregate:  evt.Subject,
		Headers:    headers,
	}, nil
}

// LocalProducer delivers envelopes to an in-process handler. It stands in
// for the broker when none is configured. Like the Kafka consumer it
// acknowledges a record once handed over: handler failures are logged, not
// redelivered, so side effects that already ran are not repeated.
type LocalProducer struct {
	Handler appoutbox.EventHandler
	Logger  *slog.Logger
}

func (p LocalProducer) Publish(ctx context.Context, topic string, key string, payload []byte, headers map[string]string) error {
	if p.Handler == nil {
		return ErrWorkerNotConfigured
	}
	rec, err := DecodeCloudEvent(payload)
	if err != nil {
		return err
	}
	if err := p.Handler.HandleEvent(ctx, rec); err != nil {
		logger := p.Logger
		if logger == nil {
			logger = slog.Default()
		}
		logger.Warn("event handler failed, record acknowledged", "event_id", rec.ID, "event", rec.Name, "topic", topic, "error", err)
	}
	return nil
}

// TopicFor maps an event name to its topic: "reservation.confirmed" is
// published to "<prefix>reservation.events.v1".
func TopicFor(prefix, name string) string {
	base := name
	if idx := strings.IndexRune(name, '.'); idx > 0 {
		base = name[:idx]
	}
	return prefix + base + ".events" + eventTypeSuffix
}

func (w *Worker) workerID() string {
	if w.ID != "" {
		return w.ID
	}
	return uuid.NewString()
}

func (w *Worker) interval() time.Duration {
	if w.Interval <= 0 {
		return 500 * time.Millisecond
	}
	return w.Interval
}

func (w *Worker) batchSize() int {
	if w.BatchSize <= 0 {
		return 100
	}
	return w.BatchSize
}

func (w *Worker) nextRetry(attempts int) time.Time {
	if attempts < len(w.Backoff) {
		return time.Now().Add(w.Backoff[attempts])
	}
	if len(w.Backoff) > 0 {
		return time.Now().Add(w.Backoff[len(w.Backoff)-1])
	}
	return time.Now().Add(5 * time.Second)
}

func (w *Worker) source() string {
	if w.Source != "" {
		return w.Source
	}
	return "app://staybook"
}

func (w *Worker) observe(outcome string) {
	if w.Metrics != nil {
		w.Metrics.OutboxRecord(outcome)
	}
}

func (w *Worker) logger() *slog.Logger {
	if w.Logger == nil {
		return slog.Default()
	}
	return w.Logger
}
