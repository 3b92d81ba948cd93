package memory

import (
	"context"
	"errors"
	"sync"

	"staybook/internal/app/outbox"
	"staybook/internal/app/uow"
	domainavailability "staybook/internal/domain/availability"
	domainlistings "staybook/internal/domain/listings"
	domainreservation "staybook/internal/domain/reservation"
	domainwallet "staybook/internal/domain/wallet"
)

// ErrFactoryMisconfigured indicates a missing store.
var ErrFactoryMisconfigured = errors.New("memory: unit of work factory misconfigured")

// Factory opens units over a shared Store. Committed outbox records go to
// Relay when one is set.
type Factory struct {
	Store *Store
	Relay *Relay
}

// Begin locks the store for the lifetime of the unit: exclusively for write
// units, shared for read-only ones.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.Store == nil {
		return nil, ErrFactoryMisconfigured
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	u := &Unit{store: f.Store, relay: f.Relay, readOnly: opts.ReadOnly}
	if opts.ReadOnly {
		f.Store.mu.RLock()
		return u, nil
	}
	f.Store.mu.Lock()
	u.snap = f.Store.snapshot()
	return u, nil
}

// Unit is a uow.UnitOfWork backed by the in-memory store.
type Unit struct {
	store    *Store
	relay    *Relay
	readOnly bool
	snap     snapshot

	mu      sync.Mutex
	done    bool
	staged  []outbox.EventRecord
	flushed []outbox.EventRecord
}

func (u *Unit) Listings() domainlistings.Repository {
	return ListingRepository{unit: u}
}

func (u *Unit) Calendars() domainavailability.Repository {
	return CalendarRepository{unit: u}
}

func (u *Unit) Reservations() domainreservation.Repository {
	return ReservationRepository{unit: u}
}

func (u *Unit) Ledger() domainwallet.Ledger {
	return Ledger{unit: u}
}

func (u *Unit) Cashouts() domainwallet.CashoutRepository {
	return CashoutRepository{unit: u}
}

func (u *Unit) Commit(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.done {
		return nil
	}
	u.done = true
	records := u.flushed
	u.staged, u.flushed = nil, nil
	u.unlock()
	if u.relay != nil && len(records) > 0 {
		u.relay.Enqueue(records...)
	}
	return nil
}

// Rollback restores the state captured by Begin and drops staged records.
func (u *Unit) Rollback(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.done {
		return nil
	}
	u.done = true
	if !u.readOnly {
		u.store.restore(u.snap)
	}
	u.staged, u.flushed = nil, nil
	u.unlock()
	return nil
}

func (u *Unit) unlock() {
	if u.readOnly {
		u.store.mu.RUnlock()
		return
	}
	u.store.mu.Unlock()
}

func (u *Unit) writable() error {
	if u.readOnly {
		return ErrReadOnlyUnit
	}
	return nil
}

func (u *Unit) stage(rec outbox.EventRecord) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.staged = append(u.staged, rec)
}

func (u *Unit) flush() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.flushed = append(u.flushed, u.staged...)
	u.staged = nil
}

var _ uow.UoWFactory = Factory{}
