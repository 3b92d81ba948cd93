package reservations

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"staybook/internal/app/auth"
	"staybook/internal/app/commands"
	"staybook/internal/app/dto"
	"staybook/internal/app/handlers/support"
	"staybook/internal/app/policies"
	domainavailability "staybook/internal/domain/availability"
	domainlistings "staybook/internal/domain/listings"
	"staybook/internal/domain/reservation"
	"staybook/internal/domain/shared/daterange"
)

const placeHoldKey = "reservations.place_hold"

// PlaceHoldCommand keeps the selected dates for the guest while checkout runs
// and returns the price the guest is about to pay.
type PlaceHoldCommand struct {
	ListingID string
	GuestID   string
	CheckIn   time.Time
	CheckOut  time.Time
	Guests    int
	PromoCode string
}

func (c PlaceHoldCommand) Key() string { return placeHoldKey }

func (c PlaceHoldCommand) RequiredRoles() []auth.Role { return []auth.Role{auth.RoleGuest} }

func (c PlaceHoldCommand) Validate() error {
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

type PlaceHoldHandler struct {
	Holds  reservation.HoldStore
	TTL    time.Duration
	Policy domainavailability.OccupancyPolicy
	Clock  policies.Clock
	Logger *slog.Logger
}

func (h *PlaceHoldHandler) Handle(ctx context.Context, cmd PlaceHoldCommand) (dto.Hold, error) {
	if h.Holds == nil {
		return dto.Hold{}, ErrHoldsDisabled
	}
	unit, err := support.RequireUnit(ctx)
	if err != nil {
		return dto.Hold{}, err
	}
	now := policies.Now(h.Clock)
	dr, err := requestedRange(cmd.CheckIn, cmd.CheckOut, now)
	if err != nil {
		return dto.Hold{}, err
	}
	listing, err := unit.Listings().ByID(ctx, domainlistings.ListingID(cmd.ListingID))
	if err != nil {
		return dto.Hold{}, err
	}
	quote, err := priceStay(listing, dr, cmd.Guests, cmd.PromoCode)
	if err != nil {
		return dto.Hold{}, err
	}
	guest := reservation.GuestID(cmd.GuestID)
	holds, err := h.Holds.ActiveForListing(ctx, listing.ID, now)
	if err != nil {
		return dto.Hold{}, err
	}
	blocked, err := support.BlockedDates(ctx, unit, listing, holds, guest, h.Policy)
	if err != nil {
		return dto.Hold{}, err
	}
	if !domainavailability.RangeAvailable(blocked, dr) {
		return dto.Hold{}, ErrDatesUnavailable
	}
	ttl := h.TTL
	if ttl <= 0 {
		ttl = reservation.DefaultHoldTTL
	}
	hold, err := reservation.NewHold(listing.ID, guest, dr, ttl, now)
	if err != nil {
		return dto.Hold{}, err
	}
	if err := h.Holds.Put(ctx, hold); err != nil {
		return dto.Hold{}, err
	}
	loggerOrDefault(h.Logger).Info("checkout hold placed", "listing_id", listing.ID, "guest_id", guest, "range", dr.String(), "expires_at", hold.ExpiresAt)
	return dto.Hold{
		ListingID: string(hold.ListingID),
		CheckIn:   hold.Range.CheckIn.Format(daterange.DayLayout),
		CheckOut:  hold.Range.CheckOut.Format(daterange.DayLayout),
		ExpiresAt: hold.ExpiresAt,
		Quote:     dto.MapQuote(string(listing.ID), dr, cmd.Guests, quote),
	}, nil
}

// requestedRange builds the stay range; a missing check-out means a
// single-day booking.
func requestedRange(checkIn, checkOut, now time.Time) (daterange.DateRange, error) {
	if checkIn.IsZero() {
		return daterange.DateRange{}, ErrCheckInRequired
	}
	if checkOut.IsZero() {
		checkOut = checkIn
	}
	dr, err := daterange.New(checkIn, checkOut)
	if err != nil {
		return daterange.DateRange{}, err
	}
	if dr.CheckIn.Before(daterange.Day(now)) {
		return daterange.DateRange{}, ErrCheckInPast
	}
	return dr, nil
}

var _ commands.Handler[PlaceHoldCommand, dto.Hold] = (*PlaceHoldHandler)(nil)
