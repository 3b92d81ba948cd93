package memory

import (
	"sync"

	domainavailability "staybook/internal/domain/availability"
	domainlistings "staybook/internal/domain/listings"
	domainreservation "staybook/internal/domain/reservation"
	"staybook/internal/domain/shared/events"
	domainwallet "staybook/internal/domain/wallet"
)

// Store is the shared in-memory state behind every unit of work. A write unit
// holds the lock until it commits or rolls back, so units never interleave.
type Store struct {
	mu           sync.RWMutex
	listings     map[domainlistings.ListingID]*domainlistings.Listing
	calendars    map[domainlistings.ListingID]*domainavailability.Calendar
	reservations map[domainreservation.ReservationID]*domainreservation.Reservation
	entries      []domainwallet.Entry
	cashouts     map[domainwallet.CashoutID]*domainwallet.Cashout
	wallets      map[domainlistings.HostID]int64
}

func NewStore() *Store {
	return &Store{
		listings:     make(map[domainlistings.ListingID]*domainlistings.Listing),
		calendars:    make(map[domainlistings.ListingID]*domainavailability.Calendar),
		reservations: make(map[domainreservation.ReservationID]*domainreservation.Reservation),
		cashouts:     make(map[domainwallet.CashoutID]*domainwallet.Cashout),
		wallets:      make(map[domainlistings.HostID]int64),
	}
}

// PutListing seeds a listing outside any unit of work.
func (s *Store) PutListing(l *domainlistings.Listing) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listings[l.ID] = cloneListing(l)
}

// PutReservation seeds a reservation outside any unit of work. No calendar
// block is created for it.
func (s *Store) PutReservation(r *domainreservation.Reservation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reservations[r.ID] = cloneReservation(r)
}

// snapshot is a shallow copy of the maps. Stored values are never mutated in
// place, so restoring the maps restores the state.
type snapshot struct {
	listings     map[domainlistings.ListingID]*domainlistings.Listing
	calendars    map[domainlistings.ListingID]*domainavailability.Calendar
	reservations map[domainreservation.ReservationID]*domainreservation.Reservation
	entries      int
	cashouts     map[domainwallet.CashoutID]*domainwallet.Cashout
	wallets      map[domainlistings.HostID]int64
}

func (s *Store) snapshot() snapshot {
	return snapshot{
		listings:     copyMap(s.listings),
		calendars:    copyMap(s.calendars),
		reservations: copyMap(s.reservations),
		entries:      len(s.entries),
		cashouts:     copyMap(s.cashouts),
		wallets:      copyMap(s.wallets),
	}
}

func (s *Store) restore(snap snapshot) {
	s.listings = snap.listings
	s.calendars = snap.calendars
	s.reservations = snap.reservations
	s.entries = s.entries[:snap.entries]
	s.cashouts = snap.cashouts
	s.wallets = snap.wallets
}

func copyMap[K comparable, V any](in map[K]V) map[K]V {
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func cloneListing(l *domainlistings.Listing) *domainlistings.Listing {
	c := *l
	c.EventRecorder = events.EventRecorder{}
	c.BlockedDates = append(c.BlockedDates[:0:0], l.BlockedDates...)
	return &c
}

func cloneCalendar(cal *domainavailability.Calendar) *domainavailability.Calendar {
	c := *cal
	c.EventRecorder = events.EventRecorder{}
	c.Blocks = append(c.Blocks[:0:0], cal.Blocks...)
	return &c
}

func cloneReservation(r *domainreservation.Reservation) *domainreservation.Reservation {
	c := *r
	c.EventRecorder = events.EventRecorder{}
	return &c
}

func cloneCashout(co *domainwallet.Cashout) *domainwallet.Cashout {
	c := *co
	return &c
}
