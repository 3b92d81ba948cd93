package reservations

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"staybook/internal/app/dto"
	"staybook/internal/app/handlers/support"
	"staybook/internal/app/policies"
	"staybook/internal/app/queries"
	"staybook/internal/app/uow"
	domainavailability "staybook/internal/domain/availability"
	domainlistings "staybook/internal/domain/listings"
	"staybook/internal/domain/pricing"
	"staybook/internal/domain/reservation"
	"staybook/internal/domain/shared/daterange"
)

const getQuoteKey = "reservations.quote"

// GetQuoteQuery prices a stay before the guest is sent to the payment
// provider. Every error a confirmation could raise from its input surfaces
// here first.
type GetQuoteQuery struct {
	ListingID string
	// GuestID, when set, keeps the guest's own hold from marking the dates taken.
	GuestID   string
	CheckIn   time.Time
	CheckOut  time.Time
	Guests    int
	PromoCode string
}

func (q GetQuoteQuery) Key() string { return getQuoteKey }

func (q GetQuoteQuery) Validate() error {
	if strings.TrimSpace(q.ListingID) == "" {
		return ErrListingRequired
	}
	if q.Guests < 1 {
		return ErrInvalidGuests
	}
	if q.CheckIn.IsZero() {
		return ErrCheckInRequired
	}
	return nil
}

type GetQuoteHandler struct {
	UoWFactory uow.UoWFactory
	Holds      reservation.HoldStore
	Policy     domainavailability.OccupancyPolicy
	Clock      policies.Clock
	Logger     *slog.Logger
}

func (h *GetQuoteHandler) Handle(ctx context.Context, q GetQuoteQuery) (dto.Quote, error) {
	unit, execCtx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Quote{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}

	now := policies.Now(h.Clock)
	dr, err := requestedRange(q.CheckIn, q.CheckOut, now)
	if err != nil {
		return dto.Quote{}, err
	}
	listing, err := unit.Listings().ByID(execCtx, domainlistings.ListingID(q.ListingID))
	if err != nil {
		return dto.Quote{}, err
	}
	quote, err := priceStay(listing, dr, q.Guests, q.PromoCode)
	if err != nil {
		return dto.Quote{}, err
	}

	holds, err := support.LoadActiveHolds(execCtx, h.Holds, listing.ID, now)
	if err != nil {
		loggerOrDefault(h.Logger).Warn("holds unavailable, quote computed without them", "listing_id", listing.ID, "error", err)
		holds = nil
	}
	blocked, err := support.BlockedDates(execCtx, unit, listing, holds, reservation.GuestID(q.GuestID), h.Policy)
	if err != nil {
		return dto.Quote{}, err
	}
	out := dto.MapQuote(string(listing.ID), dr, q.Guests, quote)
	out.Available = domainavailability.RangeAvailable(blocked, dr)
	return out, nil
}

// priceStay runs the checks that depend on the listing and prices the stay.
// Holds, quotes and confirmations share it so a guest learns about a bad
// promo code or party size before paying.
func priceStay(listing *domainlistings.Listing, dr daterange.DateRange, guests int, promoCode string) (pricing.Quote, error) {
	if err := listing.Bookable(); err != nil {
		return pricing.Quote{}, err
	}
	if guests < 1 {
		return pricing.Quote{}, ErrInvalidGuests
	}
	if guests > listing.GuestsLimit {
		return pricing.Quote{}, ErrGuestsLimit
	}
	return pricing.QuoteFor(listing, dr, promoCode)
}

var _ queries.Handler[GetQuoteQuery, dto.Quote] = (*GetQuoteHandler)(nil)
