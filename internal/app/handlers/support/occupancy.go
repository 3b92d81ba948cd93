package support

import (
	"context"
	"time"

	"staybook/internal/app/uow"
	"staybook/internal/domain/availability"
	"staybook/internal/domain/listings"
	"staybook/internal/domain/reservation"
)

// LoadActiveHolds returns the live holds for a listing; a nil store means
// holds are disabled.
func LoadActiveHolds(ctx context.Context, store reservation.HoldStore, id listings.ListingID, now time.Time) ([]reservation.Hold, error) {
	if store == nil {
		return nil, nil
	}
	return store.ActiveForListing(ctx, id, now)
}

// BlockedDates derives the unavailable days of a listing from its stored
// reservations, its explicit blocked dates and the holds of other guests. A
// zero policy means reservation.DefaultOccupancy.
func BlockedDates(ctx context.Context, unit uow.UnitOfWork, listing *listings.Listing, holds []reservation.Hold, except reservation.GuestID, policy availability.OccupancyPolicy) (availability.BlockedSet, error) {
	if policy.IsZero() {
		policy = reservation.DefaultOccupancy
	}
	items, err := unit.Reservations().ListByListing(ctx, listing.ID)
	if err != nil {
		return availability.BlockedSet{}, err
	}
	occ := reservation.Occupancies(items)
	occ = append(occ, reservation.HoldOccupancies(holds, except)...)
	return availability.ComputeBlockedDates(occ, listing.BlockedDates, policy), nil
}
