package reservations

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"staybook/internal/app/auth"
	"staybook/internal/app/commands"
	"staybook/internal/app/dto"
	"staybook/internal/app/handlers/support"
	"staybook/internal/app/outbox"
	"staybook/internal/app/policies"
	"staybook/internal/app/uow"
	domainavailability "staybook/internal/domain/availability"
	domainlistings "staybook/internal/domain/listings"
	"staybook/internal/domain/reservation"
)

const (
	requestCancellationKey = "reservations.request_cancellation"
	resolveCancellationKey = "reservations.resolve_cancellation"
)

type RequestCancellationCommand struct {
	ReservationID string
	GuestID       string
	Reason        string
}

func (c RequestCancellationCommand) Key() string { return requestCancellationKey }

func (c RequestCancellationCommand) RequiredRoles() []auth.Role {
	return []auth.Role{auth.RoleGuest}
}

func (c RequestCancellationCommand) Validate() error {
	if strings.TrimSpace(c.ReservationID) == "" {
		return ErrReservationRequired
	}
	if strings.TrimSpace(c.GuestID) == "" {
		return ErrIdentityRequired
	}
	return nil
}

type RequestCancellationHandler struct {
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
	Clock   policies.Clock
	Metrics Metrics
	Logger  *slog.Logger
}

func (h *RequestCancellationHandler) Handle(ctx context.Context, cmd RequestCancellationCommand) (dto.Reservation, error) {
	unit, err := support.RequireUnit(ctx)
	if err != nil {
		return dto.Reservation{}, err
	}
	res, err := unit.Reservations().ByID(ctx, reservation.ReservationID(cmd.ReservationID))
	if err != nil {
		return dto.Reservation{}, err
	}
	if err := res.RequestCancellation(reservation.GuestID(cmd.GuestID), cmd.Reason, policies.Now(h.Clock)); err != nil {
		return dto.Reservation{}, err
	}
	if err := unit.Reservations().Save(ctx, res); err != nil {
		return dto.Reservation{}, err
	}
	if err := outbox.Stage(ctx, h.Outbox, h.Encoder, res); err != nil {
		return dto.Reservation{}, err
	}
	metricsOrNoop(h.Metrics).StatusChanged(string(res.Status))
	loggerOrDefault(h.Logger).Info("cancellation requested", "reservation_id", res.ID, "guest_id", res.GuestID)
	return dto.MapReservation(res), nil
}

// ResolveCancellationCommand is the host's answer to a cancellation request.
type ResolveCancellationCommand struct {
	ReservationID string
	HostID        string
	Approve       bool
}

func (c ResolveCancellationCommand) Key() string { return resolveCancellationKey }

func (c ResolveCancellationCommand) RequiredRoles() []auth.Role {
	return []auth.Role{auth.RoleHost}
}

func (c ResolveCancellationCommand) Validate() error {
	if strings.TrimSpace(c.ReservationID) == "" {
		return ErrReservationRequired
	}
	if strings.TrimSpace(c.HostID) == "" {
		return ErrIdentityRequired
	}
	return nil
}

type ResolveCancellationHandler struct {
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
	Clock   policies.Clock
	Metrics Metrics
	Logger  *slog.Logger
}

func (h *ResolveCancellationHandler) Handle(ctx context.Context, cmd ResolveCancellationCommand) (dto.Reservation, error) {
	unit, err := support.RequireUnit(ctx)
	if err != nil {
		return dto.Reservation{}, err
	}
	res, err := unit.Reservations().ByID(ctx, reservation.ReservationID(cmd.ReservationID))
	if err != nil {
		return dto.Reservation{}, err
	}
	host := domainlistings.HostID(cmd.HostID)
	now := policies.Now(h.Clock)
	if !cmd.Approve {
		if err := res.DeclineCancellation(host, now); err != nil {
			return dto.Reservation{}, err
		}
		return h.persist(ctx, unit, res, nil)
	}

	if err := res.ApproveCancellation(host, now); err != nil {
		return dto.Reservation{}, err
	}
	calendar, err := unit.Calendars().Calendar(ctx, res.ListingID)
	if err != nil {
		return dto.Reservation{}, err
	}
	switch err := calendar.Release(string(res.ID), now); {
	case errors.Is(err, domainavailability.ErrRangeNotFound):
		// reservations seeded before the calendar existed have no block
		calendar = nil
	case err != nil:
		return dto.Reservation{}, err
	default:
		if err := unit.Calendars().Save(ctx, calendar); err != nil {
			return dto.Reservation{}, err
		}
	}
	return h.persist(ctx, unit, res, calendar)
}

func (h *ResolveCancellationHandler) persist(ctx context.Context, unit uow.UnitOfWork, res *reservation.Reservation, calendar *domainavailability.Calendar) (dto.Reservation, error) {
	if err := unit.Reservations().Save(ctx, res); err != nil {
		return dto.Reservation{}, err
	}
	sources := []outbox.Source{res}
	if calendar != nil {
		sources = append(sources, calendar)
	}
	if err := outbox.Stage(ctx, h.Outbox, h.Encoder, sources...); err != nil {
		return dto.Reservation{}, err
	}
	metricsOrNoop(h.Metrics).StatusChanged(string(res.Status))
	loggerOrDefault(h.Logger).Info("cancellation resolved", "reservation_id", res.ID, "status", res.Status)
	return dto.MapReservation(res), nil
}

var (
	_ commands.Handler[RequestCancellationCommand, dto.Reservation] = (*RequestCancellationHandler)(nil)
	_ commands.Handler[ResolveCancellationCommand, dto.Reservation] = (*ResolveCancellationHandler)(nil)
)
