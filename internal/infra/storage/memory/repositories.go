package memory

import (
	"context"
	"errors"
	"sort"

	"staybook/internal/app/uow"
	domainavailability "staybook/internal/domain/availability"
	domainlistings "staybook/internal/domain/listings"
	domainreservation "staybook/internal/domain/reservation"
	domainwallet "staybook/internal/domain/wallet"
)

// ErrReadOnlyUnit is returned when a read-only unit tries to write.
var ErrReadOnlyUnit = errors.New("memory: unit of work is read-only")

// ListingRepository reads and writes listings of the unit's store.
type ListingRepository struct {
	unit *Unit
}

func (r ListingRepository) ByID(ctx context.Context, id domainlistings.ListingID) (*domainlistings.Listing, error) {
	listing, ok := r.unit.store.listings[id]
	if !ok {
		return nil, domainlistings.ErrNotFound
	}
	return cloneListing(listing), nil
}

func (r ListingRepository) Save(ctx context.Context, listing *domainlistings.Listing) error {
	if err := r.unit.writable(); err != nil {
		return err
	}
	current, ok := r.unit.store.listings[listing.ID]
	if ok && current.Version != listing.Version {
		return uow.ErrConcurrentUpdate
	}
	listing.Version++
	r.unit.store.listings[listing.ID] = cloneListing(listing)
	return nil
}

func (r ListingRepository) ListByHost(ctx context.Context, host domainlistings.HostID) ([]*domainlistings.Listing, error) {
	out := make([]*domainlistings.Listing, 0)
	for _, l := range r.unit.store.listings {
		if l.Host == host {
			out = append(out, cloneListing(l))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// CalendarRepository stores one occupancy calendar per listing.
type CalendarRepository struct {
	unit *Unit
}

// Calendar returns a copy of the stored calendar, or a fresh one at version 0.
func (r CalendarRepository) Calendar(ctx context.Context, id domainlistings.ListingID) (*domainavailability.Calendar, error) {
	if cal, ok := r.unit.store.calendars[id]; ok {
		return cloneCalendar(cal), nil
	}
	return domainavailability.NewCalendar(id), nil
}

func (r CalendarRepository) Save(ctx context.Context, calendar *domainavailability.Calendar) error {
	if err := r.unit.writable(); err != nil {
		return err
	}
	var current int64
	if cal, ok := r.unit.store.calendars[calendar.ListingID]; ok {
		current = cal.Version
	}
	if current != calendar.Version {
		return uow.ErrConcurrentUpdate
	}
	calendar.Version++
	r.unit.store.calendars[calendar.ListingID] = cloneCalendar(calendar)
	return nil
}

type ReservationRepository struct {
	unit *Unit
}

func (r ReservationRepository) ByID(ctx context.Context, id domainreservation.ReservationID) (*domainreservation.Reservation, error) {
	res, ok := r.unit.store.reservations[id]
	if !ok {
		return nil, domainreservation.ErrNotFound
	}
	return cloneReservation(res), nil
}

func (r ReservationRepository) ByPaymentID(ctx context.Context, paymentID string) (*domainreservation.Reservation, error) {
	for _, res := range r.unit.store.reservations {
		if paymentID != "" && res.Payment.ID == paymentID {
			return cloneReservation(res), nil
		}
	}
	return nil, domainreservation.ErrNotFound
}

// Save applies the version guard and keeps payment ids unique, the same
// constraints the document store enforces with indexes.
func (r ReservationRepository) Save(ctx context.Context, res *domainreservation.Reservation) error {
	if err := r.unit.writable(); err != nil {
		return err
	}
	current, ok := r.unit.store.reservations[res.ID]
	if ok && current.Version != res.Version {
		return uow.ErrConcurrentUpdate
	}
	if !ok {
		for _, other := range r.unit.store.reservations {
			if res.Payment.ID != "" && other.Payment.ID == res.Payment.ID {
				return uow.ErrConcurrentUpdate
			}
		}
	}
	res.Version++
	r.unit.store.reservations[res.ID] = cloneReservation(res)
	return nil
}

func (r ReservationRepository) ListByListing(ctx context.Context, listingID domainlistings.ListingID) ([]*domainreservation.Reservation, error) {
	return r.filter(func(res *domainreservation.Reservation) bool { return res.ListingID == listingID }), nil
}

func (r ReservationRepository) ListByGuest(ctx context.Context, guestID domainreservation.GuestID) ([]*domainreservation.Reservation, error) {
	return r.filter(func(res *domainreservation.Reservation) bool { return res.GuestID == guestID }), nil
}

func (r ReservationRepository) ListByHost(ctx context.Context, hostID domainlistings.HostID, status domainreservation.Status) ([]*domainreservation.Reservation, error) {
	return r.filter(func(res *domainreservation.Reservation) bool {
		return res.HostID == hostID && (status == "" || res.Status == status)
	}), nil
}

func (r ReservationRepository) ListByStatus(ctx context.Context, status domainreservation.Status) ([]*domainreservation.Reservation, error) {
	return r.filter(func(res *domainreservation.Reservation) bool { return res.Status == status }), nil
}

func (r ReservationRepository) filter(keep func(*domainreservation.Reservation) bool) []*domainreservation.Reservation {
	out := make([]*domainreservation.Reservation, 0)
	for _, res := range r.unit.store.reservations {
		if keep(res) {
			out = append(out, cloneReservation(res))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Ledger is append-only; (kind, reference) is unique.
type Ledger struct {
	unit *Unit
}

func (l Ledger) Append(ctx context.Context, entry domainwallet.Entry) error {
	if err := l.unit.writable(); err != nil {
		return err
	}
	for _, e := range l.unit.store.entries {
		if e.Kind == entry.Kind && e.Reference == entry.Reference {
			return domainwallet.ErrDuplicateEntry
		}
	}
	l.unit.store.entries = append(l.unit.store.entries, entry)
	return nil
}

func (l Ledger) Entries(ctx context.Context, host domainlistings.HostID) ([]domainwallet.Entry, error) {
	out := make([]domainwallet.Entry, 0)
	for _, e := range l.unit.store.entries {
		if e.HostID == host {
			out = append(out, e)
		}
	}
	return out, nil
}

type CashoutRepository struct {
	unit *Unit
}

func (r CashoutRepository) ByID(ctx context.Context, id domainwallet.CashoutID) (*domainwallet.Cashout, error) {
	c, ok := r.unit.store.cashouts[id]
	if !ok {
		return nil, domainwallet.ErrCashoutNotFound
	}
	return cloneCashout(c), nil
}

func (r CashoutRepository) Save(ctx context.Context, cashout *domainwallet.Cashout) error {
	if err := r.unit.writable(); err != nil {
		return err
	}
	current, ok := r.unit.store.cashouts[cashout.ID]
	if ok && current.Version != cashout.Version {
		return uow.ErrConcurrentUpdate
	}
	cashout.Version++
	r.unit.store.cashouts[cashout.ID] = cloneCashout(cashout)
	return nil
}

func (r CashoutRepository) ListByHost(ctx context.Context, host domainlistings.HostID) ([]*domainwallet.Cashout, error) {
	out := make([]*domainwallet.Cashout, 0)
	for _, c := range r.unit.store.cashouts {
		if c.HostID == host {
			out = append(out, cloneCashout(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RequestedAt.Before(out[j].RequestedAt) })
	return out, nil
}

// LockWallet only counts here: a write unit already holds the store lock.
func (r CashoutRepository) LockWallet(ctx context.Context, host domainlistings.HostID) error {
	if err := r.unit.writable(); err != nil {
		return err
	}
	r.unit.store.wallets[host]++
	return nil
}

var (
	_ domainlistings.Repository      = ListingRepository{}
	_ domainavailability.Repository  = CalendarRepository{}
	_ domainreservation.Repository   = ReservationRepository{}
	_ domainwallet.Ledger            = Ledger{}
	_ domainwallet.CashoutRepository = CashoutRepository{}
)
