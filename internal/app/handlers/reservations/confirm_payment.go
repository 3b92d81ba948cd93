package reservations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

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
	"staybook/internal/domain/wallet"
)

const confirmPaymentKey = "reservations.confirm_payment"

// Capture is the payment provider's answer to a checkout.
type Capture struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

var rejectedCaptureStatuses = map[string]struct{}{
	"FAILED":   {},
	"DECLINED": {},
	"VOIDED":   {},
	"DENIED":   {},
}

// CaptureAccepted reports whether a provider status may back a reservation.
func CaptureAccepted(status string) bool {
	status = strings.ToUpper(strings.TrimSpace(status))
	if status == "" {
		return false
	}
	_, rejected := rejectedCaptureStatuses[status]
	return !rejected
}

// ConfirmPaymentCommand turns a successful capture into a confirmed
// reservation. The guest and capture id form the idempotency key: a retried
// callback gets the reservation created by the first one.
type ConfirmPaymentCommand struct {
	ListingID  string
	GuestID    string
	GuestName  string
	GuestEmail string
	CheckIn    time.Time
	CheckOut   time.Time
	Guests     int
	PromoCode  string
	Capture    Capture
}

func (c ConfirmPaymentCommand) Key() string { return confirmPaymentKey }

func (c ConfirmPaymentCommand) IdempotencyKey() string {
	if strings.TrimSpace(c.Capture.ID) == "" {
		return ""
	}
	return "capture:" + strings.TrimSpace(c.GuestID) + ":" + strings.TrimSpace(c.Capture.ID)
}

func (c ConfirmPaymentCommand) ResultPrototype() any { return &dto.Reservation{} }

func (c ConfirmPaymentCommand) RequiredRoles() []auth.Role {
	return []auth.Role{auth.RoleGuest, auth.RoleSystem}
}

func (c ConfirmPaymentCommand) Validate() error {
	if strings.TrimSpace(c.Capture.ID) == "" || strings.TrimSpace(c.Capture.Status) == "" {
		return ErrCaptureMissing
	}
	if !CaptureAccepted(c.Capture.Status) {
		return ErrCaptureNotAccepted
	}
	if strings.TrimSpace(c.ListingID) == "" {
		return ErrListingRequired
	}
	if strings.TrimSpace(c.GuestID) == "" {
		return ErrIdentityRequired
	}
	if c.Guests < 1 {
		return ErrInvalidGuests
	}
	if c.CheckIn.IsZero() {
		return ErrCheckInRequired
	}
	return nil
}

type ConfirmPaymentHandler struct {
	// Verifier, when set, re-reads the capture status from the provider.
	Verifier policies.CaptureVerifier
	Holds    reservation.HoldStore
	Outbox   outbox.Outbox
	Encoder  outbox.EventEncoder
	Policy   domainavailability.OccupancyPolicy
	Clock    policies.Clock
	NewID    func() string
	Metrics  Metrics
	Logger   *slog.Logger
}

func (h *ConfirmPaymentHandler) Handle(ctx context.Context, cmd ConfirmPaymentCommand) (dto.Reservation, error) {
	out, err := h.confirm(ctx, cmd)
	if err == nil {
		return out, nil
	}
	if errors.Is(err, ErrCaptureNotAccepted) || errors.Is(err, ErrCaptureMissing) || errors.Is(err, ErrCaptureClaimed) {
		return dto.Reservation{}, err
	}
	loggerOrDefault(h.Logger).Error("captured payment not reconciled",
		"capture_id", cmd.Capture.ID,
		"listing_id", cmd.ListingID,
		"guest_id", cmd.GuestID,
		"error", err,
	)
	return dto.Reservation{}, fmt.Errorf("%w: %w", ErrCaptureUnreconciled, err)
}

func (h *ConfirmPaymentHandler) confirm(ctx context.Context, cmd ConfirmPaymentCommand) (dto.Reservation, error) {
	unit, err := support.RequireUnit(ctx)
	if err != nil {
		return dto.Reservation{}, err
	}
	captureID := strings.TrimSpace(cmd.Capture.ID)

	existing, err := unit.Reservations().ByPaymentID(ctx, captureID)
	switch {
	case err == nil:
		if existing.GuestID != reservation.GuestID(cmd.GuestID) {
			return dto.Reservation{}, ErrCaptureClaimed
		}
		return dto.MapReservation(existing), nil
	case !errors.Is(err, reservation.ErrNotFound):
		return dto.Reservation{}, err
	}

	status := strings.ToUpper(strings.TrimSpace(cmd.Capture.Status))
	if h.Verifier != nil {
		if status, err = h.Verifier.CaptureStatus(ctx, captureID); err != nil {
			return dto.Reservation{}, err
		}
		if !CaptureAccepted(status) {
			return dto.Reservation{}, ErrCaptureNotAccepted
		}
	}

	now := policies.Now(h.Clock)
	dr, err := requestedRange(cmd.CheckIn, cmd.CheckOut, now)
	if err != nil {
		return dto.Reservation{}, err
	}
	listing, err := unit.Listings().ByID(ctx, domainlistings.ListingID(cmd.ListingID))
	if err != nil {
		return dto.Reservation{}, err
	}
	quote, err := priceStay(listing, dr, cmd.Guests, cmd.PromoCode)
	if err != nil {
		return dto.Reservation{}, err
	}

	guest := reservation.GuestID(cmd.GuestID)
	holds, err := support.LoadActiveHolds(ctx, h.Holds, listing.ID, now)
	if err != nil {
		loggerOrDefault(h.Logger).Warn("holds unavailable during confirmation", "listing_id", listing.ID, "error", err)
		holds = nil
	}
	blocked, err := support.BlockedDates(ctx, unit, listing, holds, guest, h.Policy)
	if err != nil {
		return dto.Reservation{}, err
	}
	if !domainavailability.RangeAvailable(blocked, dr) {
		metricsOrNoop(h.Metrics).OverbookingPrevented()
		return dto.Reservation{}, ErrDatesUnavailable
	}

	calendar, err := unit.Calendars().Calendar(ctx, listing.ID)
	if err != nil {
		return dto.Reservation{}, err
	}
	id := reservation.ReservationID(h.newID())
	if err := calendar.Reserve(dr, string(id), now); err != nil {
		if errors.Is(err, domainavailability.ErrOverlappingRange) {
			metricsOrNoop(h.Metrics).OverbookingPrevented()
			return dto.Reservation{}, ErrDatesUnavailable
		}
		return dto.Reservation{}, err
	}

	res, err := reservation.NewConfirmed(reservation.ConfirmParams{
		ID:              id,
		Listing:         listing,
		GuestID:         guest,
		Guest:           reservation.Contact{Name: strings.TrimSpace(cmd.GuestName), Email: strings.TrimSpace(cmd.GuestEmail)},
		Range:           dr,
		Guests:          cmd.Guests,
		Subtotal:        quote.Subtotal,
		Discount:        quote.Discount,
		DiscountPercent: quote.DiscountPercent,
		Total:           quote.Total,
		Payment:         reservation.Payment{ID: captureID, Status: status},
		Now:             now,
	})
	if err != nil {
		return dto.Reservation{}, err
	}
	if err := unit.Calendars().Save(ctx, calendar); err != nil {
		return dto.Reservation{}, err
	}
	if err := unit.Reservations().Save(ctx, res); err != nil {
		return dto.Reservation{}, err
	}

	if quote.Total.IsPositive() {
		credit, err := wallet.NewBookingCredit(wallet.EntryID(h.newID()), listing.Host, string(res.ID), quote.Total, now)
		if err != nil {
			return dto.Reservation{}, err
		}
		if err := unit.Ledger().Append(ctx, credit); err != nil {
			return dto.Reservation{}, err
		}
	}

	if h.Holds != nil {
		uow.AfterCommit(ctx, func(ctx context.Context) {
			if err := h.Holds.Release(ctx, listing.ID, guest); err != nil {
				loggerOrDefault(h.Logger).Warn("hold release failed", "listing_id", listing.ID, "guest_id", guest, "error", err)
			}
		})
	}

	if err := outbox.Stage(ctx, h.Outbox, h.Encoder, res, calendar); err != nil {
		return dto.Reservation{}, err
	}

	metricsOrNoop(h.Metrics).ReservationConfirmed(string(res.Category))
	loggerOrDefault(h.Logger).Info("reservation confirmed",
		"reservation_id", res.ID,
		"listing_id", res.ListingID,
		"capture_id", captureID,
		"range", dr.String(),
		"total", res.Total.Amount,
	)
	return dto.MapReservation(res), nil
}

func (h *ConfirmPaymentHandler) newID() string {
	if h.NewID != nil {
		return h.NewID()
	}
	return uuid.NewString()
}

var _ commands.Handler[ConfirmPaymentCommand, dto.Reservation] = (*ConfirmPaymentHandler)(nil)
