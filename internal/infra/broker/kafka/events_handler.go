package kafka

import (
	"context"
	"errors"
	"log/slog"

	"github.com/IBM/sarama"

	appoutbox "staybook/internal/app/outbox"
	infraoutbox "staybook/internal/infra/outbox"
)

// Deduper records handled event ids.
type Deduper interface {
	Seen(ctx context.Context, eventID string) (bool, error)
}

// EventsHandler decodes outbox cloud events and hands each one, once, to
// Handler.
type EventsHandler struct {
	Inbox   Deduper
	Handler appoutbox.EventHandler
	Logger  *slog.Logger
}

func (h EventsHandler) Handle(ctx context.Context, msg *sarama.ConsumerMessage) error {
	record, err := infraoutbox.DecodeCloudEvent(msg.Value)
	if err != nil {
		// poison messages are acknowledged so they do not block the partition
		h.logger().Warn("skipping undecodable message", "topic", msg.Topic, "offset", msg.Offset, "error", err)
		return nil
	}
	if h.Inbox != nil {
		seen, err := h.Inbox.Seen(ctx, record.ID)
		if err != nil {
			return err
		}
		if seen {
			h.logger().Debug("duplicate event ignored", "event_id", record.ID, "event", record.Name)
			return nil
		}
	}
	if err := h.Handler.HandleEvent(ctx, record); err != nil {
		// side effects are best effort; the failure was already counted
		h.logger().Error("event side effects failed", "event_id", record.ID, "event", record.Name, "error", err)
	}
	return nil
}

func (h EventsHandler) logger() *slog.Logger {
	if h.Logger == nil {
		return slog.Default()
	}
	return h.Logger
}

var ErrNoHandler = errors.New("kafka: events handler missing")

// Validate checks the handler is wired.
func (h EventsHandler) Validate() error {
	if h.Handler == nil {
		return ErrNoHandler
	}
	return nil
}
