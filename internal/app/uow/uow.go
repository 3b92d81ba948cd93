package uow

import (
	"context"
	"errors"

	"staybook/internal/domain/availability"
	"staybook/internal/domain/listings"
	"staybook/internal/domain/reservation"
	"staybook/internal/domain/wallet"
)

// ErrConcurrentUpdate is returned by repositories when a versioned save lost
// the race against another writer.
var ErrConcurrentUpdate = errors.New("uow: concurrent update detected")

// UnitOfWork coordinates repositories inside a transaction boundary.
type UnitOfWork interface {
	Listings() listings.Repository
	Calendars() availability.Repository
	Reservations() reservation.Repository
	Ledger() wallet.Ledger
	Cashouts() wallet.CashoutRepository

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

type UoWFactory interface {
	Begin(ctx context.Context, opts TxOptions) (UnitOfWork, error)
}

type TxOptions struct {
	ReadOnly bool
}

// ContextInjector is implemented by units that carry a driver session the
// repositories must find in the context.
type ContextInjector interface {
	InjectContext(ctx context.Context) context.Context
}
