package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appoutbox "staybook/internal/app/outbox"
)

func TestProducerPublishesWithHeaders(t *testing.T) {
	sp := mocks.NewSyncProducer(t, nil)
	sp.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		if msg.Topic != "reservation.events.v1" {
			return errors.New("unexpected topic " + msg.Topic)
		}
		key, _ := msg.Key.Encode()
		if string(key) != "res-1" {
			return errors.New("unexpected key")
		}
		if len(msg.Headers) != 1 || string(msg.Headers[0].Key) != "content-type" {
			return errors.New("missing content-type header")
		}
		return nil
	})
	p := NewProducerFrom(sp)

	err := p.Publish(context.Background(), "reservation.events.v1", "res-1", []byte(`{}`), map[string]string{"content-type": "application/cloudevents+json"})
	require.NoError(t, err)
	require.NoError(t, p.Close())
}

func TestProducerHonoursCancelledContext(t *testing.T) {
	p := NewProducerFrom(mocks.NewSyncProducer(t, nil))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.Publish(ctx, "t", "k", nil, nil), context.Canceled)
}

type memoryInbox struct {
	mu   sync.Mutex
	seen map[string]bool
}

func (m *memoryInbox) Seen(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seen == nil {
		m.seen = map[string]bool{}
	}
	if m.seen[id] {
		return true, nil
	}
	m.seen[id] = true
	return false, nil
}

type recordingHandler struct {
	records []appoutbox.EventRecord
	err     error
}

func (r *recordingHandler) HandleEvent(ctx context.Context, rec appoutbox.EventRecord) error {
	r.records = append(r.records, rec)
	return r.err
}

func cloudEvent(t *testing.T, id string) []byte {
	t.Helper()
	payload, err := json.Marshal(map[string]any{
		"specversion":     "1.0",
		"id":              id,
		"type":            "reservation.confirmed.v1",
		"source":          "app://staybook",
		"subject":         "res-1",
		"time":            time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		"datacontenttype": "application/json",
		"data":            map[string]string{"reservation_id": "res-1"},
	})
	require.NoError(t, err)
	return payload
}

func TestEventsHandlerDedupesRedeliveries(t *testing.T) {
	handler := &recordingHandler{}
	h := EventsHandler{Inbox: &memoryInbox{}, Handler: handler}
	msg := &sarama.ConsumerMessage{Topic: "reservation.events.v1", Value: cloudEvent(t, "evt-1")}

	require.NoError(t, h.Handle(context.Background(), msg))
	require.NoError(t, h.Handle(context.Background(), msg))

	require.Len(t, handler.records, 1)
	assert.Equal(t, "reservation.confirmed", handler.records[0].Name)
	assert.Equal(t, "res-1", handler.records[0].Aggregate)
}

func TestEventsHandlerAcknowledgesPoisonAndFailures(t *testing.T) {
	handler := &recordingHandler{err: errors.New("smtp down")}
	h := EventsHandler{Handler: handler}

	assert.NoError(t, h.Handle(context.Background(), &sarama.ConsumerMessage{Value: []byte("nope")}))
	assert.NoError(t, h.Handle(context.Background(), &sarama.ConsumerMessage{Value: cloudEvent(t, "evt-2")}))
	assert.Len(t, handler.records, 1)
}

func TestEventsHandlerValidate(t *testing.T) {
	assert.ErrorIs(t, EventsHandler{}.Validate(), ErrNoHandler)
}
