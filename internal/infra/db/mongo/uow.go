package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"

	"staybook/internal/app/uow"
	domainavailability "staybook/internal/domain/availability"
	domainlistings "staybook/internal/domain/listings"
	domainreservation "staybook/internal/domain/reservation"
	domainwallet "staybook/internal/domain/wallet"
)

// Factory wires Mongo transactions into the generic UnitOfWork interface.
type Factory struct {
	DB *mongo.Database
}

var ErrUnitOfWorkNotConfigured = errors.New("mongo: unit of work factory missing database")

// Begin starts a MongoDB session. Write units also start a transaction so the
// calendar, reservation, ledger and outbox writes commit together.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.DB == nil {
		return nil, ErrUnitOfWorkNotConfigured
	}
	session, err := f.DB.Client().StartSession()
	if err != nil {
		return nil, err
	}
	unit := &Unit{db: f.DB, session: session, readOnly: opts.ReadOnly}
	if opts.ReadOnly {
		return unit, nil
	}
	txnOpts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(f.DB.WriteConcern())
	if err := session.StartTransaction(txnOpts); err != nil {
		session.EndSession(ctx)
		return nil, err
	}
	return unit, nil
}

type Unit struct {
	db       *mongo.Database
	session  mongo.Session
	readOnly bool
}

func (u *Unit) Listings() domainlistings.Repository {
	return NewListingRepository(u.db)
}

func (u *Unit) Calendars() domainavailability.Repository {
	return NewCalendarRepository(u.db)
}

func (u *Unit) Reservations() domainreservation.Repository {
	return NewReservationRepository(u.db)
}

func (u *Unit) Ledger() domainwallet.Ledger {
	return NewLedger(u.db)
}

func (u *Unit) Cashouts() domainwallet.CashoutRepository {
	return NewCashoutRepository(u.db)
}

func (u *Unit) Commit(ctx context.Context) error {
	defer u.session.EndSession(ctx)
	if u.readOnly {
		return nil
	}
	if err := u.session.CommitTransaction(ctx); err != nil {
		if isConflict(err) {
			return uow.ErrConcurrentUpdate
		}
		return err
	}
	return nil
}

func (u *Unit) Rollback(ctx context.Context) error {
	defer u.session.EndSession(ctx)
	if u.readOnly {
		return nil
	}
	return u.session.AbortTransaction(ctx)
}

// InjectContext ensures Mongo session is available in context for downstream repos.
func (u *Unit) InjectContext(ctx context.Context) context.Context {
	return mongo.NewSessionContext(ctx, u.session)
}

var (
	_ uow.UoWFactory      = Factory{}
	_ uow.ContextInjector = (*Unit)(nil)
)
