package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"staybook/internal/app/outbox"
	"staybook/internal/app/policies"
	"staybook/internal/domain/listings"
	"staybook/internal/domain/reservation"
	"staybook/internal/domain/rewards"
)

// Metrics counts side-effect outcomes. Kind is one of "email", "points" or
// "receipt".
type Metrics interface {
	SideEffectFailed(kind string)
	PointsAwarded(points int64)
}

// Dispatcher runs the best-effort side effects of committed reservation
// events. A failure is logged and counted and never undoes the reservation;
// the returned error joins every failure of the record.
type Dispatcher struct {
	Notifier policies.Notifier
	Rewards  rewards.Store
	Archive  policies.ReceiptArchive
	Metrics  Metrics
	Logger   *slog.Logger
}

// Receipt is the document emailed to the guest and archived.
type Receipt struct {
	reservation.Snapshot
	PaymentID string `json:"payment_id"`
	IssuedAt  string `json:"issued_at"`
}

func (d *Dispatcher) HandleEvent(ctx context.Context, rec outbox.EventRecord) error {
	switch rec.Name {
	case reservation.EventConfirmed:
		var ev reservation.ReservationConfirmed
		if err := json.Unmarshal(rec.Payload, &ev); err != nil {
			return fmt.Errorf("notify: decode %s: %w", rec.Name, err)
		}
		return d.confirmed(ctx, ev)
	case reservation.EventCancelled:
		var ev reservation.ReservationCancelled
		if err := json.Unmarshal(rec.Payload, &ev); err != nil {
			return fmt.Errorf("notify: decode %s: %w", rec.Name, err)
		}
		return d.cancelled(ctx, ev)
	default:
		return nil
	}
}

func (d *Dispatcher) confirmed(ctx context.Context, ev reservation.ReservationConfirmed) error {
	variant, err := listings.VariantFor(listings.Category(ev.Category))
	if err != nil {
		return fmt.Errorf("notify: reservation %s: %w", ev.ReservationID, err)
	}
	receipt := Receipt{Snapshot: ev.Snapshot, PaymentID: ev.PaymentID, IssuedAt: ev.At.UTC().Format("2006-01-02T15:04:05Z")}

	var errs []error
	if err := d.email(ctx, variant.ReceiptTemplate(), ev.GuestEmail, receipt); err != nil {
		errs = append(errs, d.fail("email", ev.ReservationID, err))
	}
	if variant.AwardsPoints() {
		if err := d.award(ctx, ev); err != nil {
			errs = append(errs, d.fail("points", ev.ReservationID, err))
		}
	}
	if err := d.archive(ctx, receipt); err != nil {
		errs = append(errs, d.fail("receipt", ev.ReservationID, err))
	}
	return errors.Join(errs...)
}

func (d *Dispatcher) cancelled(ctx context.Context, ev reservation.ReservationCancelled) error {
	variant, err := listings.VariantFor(listings.Category(ev.Category))
	if err != nil {
		return fmt.Errorf("notify: reservation %s: %w", ev.ReservationID, err)
	}
	data := struct {
		reservation.Snapshot
		Reason string `json:"reason,omitempty"`
	}{ev.Snapshot, ev.Reason}
	if err := d.email(ctx, variant.CancellationTemplate(), ev.GuestEmail, data); err != nil {
		return d.fail("email", ev.ReservationID, err)
	}
	return nil
}

func (d *Dispatcher) email(ctx context.Context, template, to string, data any) error {
	if d.Notifier == nil {
		return nil
	}
	if strings.TrimSpace(to) == "" {
		d.logger().Warn("notification skipped, guest has no email", "template", template)
		return nil
	}
	return d.Notifier.Send(ctx, policies.Notification{Template: template, To: to, Data: data})
}

func (d *Dispatcher) award(ctx context.Context, ev reservation.ReservationConfirmed) error {
	if d.Rewards == nil {
		return nil
	}
	total, err := d.Rewards.Award(ctx, listings.HostID(ev.HostID), rewards.PointsPerBooking, ev.ReservationID)
	if err != nil {
		return err
	}
	if d.Metrics != nil {
		d.Metrics.PointsAwarded(rewards.PointsPerBooking)
	}
	d.logger().Info("points awarded", "host_id", ev.HostID, "reservation_id", ev.ReservationID, "total", total)
	return nil
}

func (d *Dispatcher) archive(ctx context.Context, receipt Receipt) error {
	if d.Archive == nil {
		return nil
	}
	body, err := json.MarshalIndent(receipt, "", "  ")
	if err != nil {
		return err
	}
	location, err := d.Archive.PutReceipt(ctx, "receipts/"+receipt.ReservationID+".json", body)
	if err != nil {
		return err
	}
	d.logger().Debug("receipt archived", "reservation_id", receipt.ReservationID, "location", location)
	return nil
}

func (d *Dispatcher) fail(kind, reservationID string, err error) error {
	if d.Metrics != nil {
		d.Metrics.SideEffectFailed(kind)
	}
	d.logger().Error("side effect failed", "kind", kind, "reservation_id", reservationID, "error", err)
	return fmt.Errorf("notify: %s for %s: %w", kind, reservationID, err)
}

func (d *Dispatcher) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

var _ outbox.EventHandler = (*Dispatcher)(nil)
