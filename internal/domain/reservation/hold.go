package reservation

import (
	"context"
	"errors"
	"time"

	"staybook/internal/domain/availability"
	"staybook/internal/domain/listings"
	"staybook/internal/domain/shared/daterange"
)

var (
	ErrHoldNotFound = errors.New("reservation: hold not found")
	ErrHoldTTL      = errors.New("reservation: hold ttl must be positive")
)

// DefaultHoldTTL is how long a checkout hold keeps dates off the calendar.
const DefaultHoldTTL = 15 * time.Minute

// Hold reserves dates for one guest while the payment is being captured.
type Hold struct {
	ListingID listings.ListingID  `json:"listing_id"`
	GuestID   GuestID             `json:"guest_id"`
	Range     daterange.DateRange `json:"range"`
	CreatedAt time.Time           `json:"created_at"`
	ExpiresAt time.Time           `json:"expires_at"`
}

// HoldStore keeps at most one hold per listing and guest. Expired holds are
// never returned.
type HoldStore interface {
	Put(ctx context.Context, hold Hold) error
	ActiveForListing(ctx context.Context, listingID listings.ListingID, now time.Time) ([]Hold, error)
	Release(ctx context.Context, listingID listings.ListingID, guestID GuestID) error
}

func NewHold(listingID listings.ListingID, guestID GuestID, dr daterange.DateRange, ttl time.Duration, now time.Time) (Hold, error) {
	if guestID == "" {
		return Hold{}, ErrGuestRequired
	}
	if listingID == "" {
		return Hold{}, listings.ErrIDRequired
	}
	if ttl <= 0 {
		return Hold{}, ErrHoldTTL
	}
	if err := dr.Validate(); err != nil {
		return Hold{}, err
	}
	now = now.UTC()
	return Hold{ListingID: listingID, GuestID: guestID, Range: dr, CreatedAt: now, ExpiresAt: now.Add(ttl)}, nil
}

func (h Hold) Active(now time.Time) bool {
	return now.Before(h.ExpiresAt)
}

func (h Hold) Key() string {
	return string(h.ListingID) + ":" + string(h.GuestID)
}

func (h Hold) Occupancy() availability.Occupancy {
	return availability.Occupancy{
		Reference: "hold:" + h.Key(),
		Status:    HoldStatus,
		CheckIn:   h.Range.CheckIn,
		CheckOut:  h.Range.CheckOut,
	}
}

// HoldOccupancies skips the holds owned by guest so a guest's own hold never
// blocks their own checkout.
func HoldOccupancies(holds []Hold, except GuestID) []availability.Occupancy {
	out := make([]availability.Occupancy, 0, len(holds))
	for _, h := range holds {
		if except != "" && h.GuestID == except {
			continue
		}
		out = append(out, h.Occupancy())
	}
	return out
}
