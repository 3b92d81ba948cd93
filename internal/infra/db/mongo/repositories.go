package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"staybook/internal/app/uow"
	domainavailability "staybook/internal/domain/availability"
	domainlistings "staybook/internal/domain/listings"
	domainreservation "staybook/internal/domain/reservation"
	domainwallet "staybook/internal/domain/wallet"
)

// saveVersioned upserts doc under a version guard: the write matches only the
// stored version the caller loaded, and an upsert against a newer stored copy
// collides on _id.
func saveVersioned(ctx context.Context, col *mongo.Collection, id string, version int64, doc any) error {
	filter := bson.M{"_id": id, "version": version}
	res, err := col.ReplaceOne(ctx, filter, doc, options.Replace().SetUpsert(true))
	if err != nil {
		if isConflict(err) {
			return uow.ErrConcurrentUpdate
		}
		return err
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return uow.ErrConcurrentUpdate
	}
	return nil
}

type ListingRepository struct {
	col *mongo.Collection
}

func NewListingRepository(db *mongo.Database) *ListingRepository {
	return &ListingRepository{col: db.Collection(colListings)}
}

func (r *ListingRepository) ByID(ctx context.Context, id domainlistings.ListingID) (*domainlistings.Listing, error) {
	var doc listingDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainlistings.ErrNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *ListingRepository) Save(ctx context.Context, l *domainlistings.Listing) error {
	doc := newListingDocument(l)
	doc.Version = l.Version + 1
	if err := saveVersioned(ctx, r.col, doc.ID, l.Version, doc); err != nil {
		return err
	}
	l.Version = doc.Version
	return nil
}

func (r *ListingRepository) ListByHost(ctx context.Context, host domainlistings.HostID) ([]*domainlistings.Listing, error) {
	cur, err := r.col.Find(ctx, bson.M{"host_id": string(host)}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var docs []listingDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]*domainlistings.Listing, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toAggregate())
	}
	return out, nil
}

// CalendarRepository keeps one occupancy document per listing; its version
// is the per-listing counter every reservation write increments.
type CalendarRepository struct {
	col *mongo.Collection
}

func NewCalendarRepository(db *mongo.Database) *CalendarRepository {
	return &CalendarRepository{col: db.Collection(colCalendars)}
}

func (r *CalendarRepository) Calendar(ctx context.Context, id domainlistings.ListingID) (*domainavailability.Calendar, error) {
	var doc calendarDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domainavailability.NewCalendar(id), nil
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *CalendarRepository) Save(ctx context.Context, cal *domainavailability.Calendar) error {
	doc := newCalendarDocument(cal)
	doc.Version = cal.Version + 1
	if err := saveVersioned(ctx, r.col, doc.ID, cal.Version, doc); err != nil {
		return err
	}
	cal.Version = doc.Version
	return nil
}

type ReservationRepository struct {
	col *mongo.Collection
}

func NewReservationRepository(db *mongo.Database) *ReservationRepository {
	return &ReservationRepository{col: db.Collection(colReservations)}
}

func (r *ReservationRepository) ByID(ctx context.Context, id domainreservation.ReservationID) (*domainreservation.Reservation, error) {
	return r.findOne(ctx, bson.M{"_id": string(id)})
}

func (r *ReservationRepository) ByPaymentID(ctx context.Context, paymentID string) (*domainreservation.Reservation, error) {
	if paymentID == "" {
		return nil, domainreservation.ErrNotFound
	}
	return r.findOne(ctx, bson.M{"payment.id": paymentID})
}

// Save relies on the unique payment.id index to refuse a second reservation
// for the same capture.
func (r *ReservationRepository) Save(ctx context.Context, res *domainreservation.Reservation) error {
	doc := newReservationDocument(res)
	doc.Version = res.Version + 1
	if err := saveVersioned(ctx, r.col, doc.ID, res.Version, doc); err != nil {
		return err
	}
	res.Version = doc.Version
	return nil
}

func (r *ReservationRepository) ListByListing(ctx context.Context, listingID domainlistings.ListingID) ([]*domainreservation.Reservation, error) {
	return r.find(ctx, bson.M{"listing_id": string(listingID)})
}

func (r *ReservationRepository) ListByGuest(ctx context.Context, guestID domainreservation.GuestID) ([]*domainreservation.Reservation, error) {
	return r.find(ctx, bson.M{"guest_id": string(guestID)})
}

func (r *ReservationRepository) ListByHost(ctx context.Context, hostID domainlistings.HostID, status domainreservation.Status) ([]*domainreservation.Reservation, error) {
	filter := bson.M{"host_id": string(hostID)}
	if status != "" {
		filter["status"] = string(status)
	}
	return r.find(ctx, filter)
}

func (r *ReservationRepository) ListByStatus(ctx context.Context, status domainreservation.Status) ([]*domainreservation.Reservation, error) {
	return r.find(ctx, bson.M{"status": string(status)})
}

func (r *ReservationRepository) findOne(ctx context.Context, filter bson.M) (*domainreservation.Reservation, error) {
	var doc reservationDocument
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainreservation.ErrNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *ReservationRepository) find(ctx context.Context, filter bson.M) ([]*domainreservation.Reservation, error) {
	cur, err := r.col.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var docs []reservationDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]*domainreservation.Reservation, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toAggregate())
	}
	return out, nil
}

// Ledger appends entries; the (kind, reference) index rejects replays.
type Ledger struct {
	col *mongo.Collection
}

func NewLedger(db *mongo.Database) *Ledger {
	return &Ledger{col: db.Collection(colLedger)}
}

func (l *Ledger) Append(ctx context.Context, entry domainwallet.Entry) error {
	_, err := l.col.InsertOne(ctx, newEntryDocument(entry))
	if mongo.IsDuplicateKeyError(err) {
		return domainwallet.ErrDuplicateEntry
	}
	return err
}

func (l *Ledger) Entries(ctx context.Context, host domainlistings.HostID) ([]domainwallet.Entry, error) {
	cur, err := l.col.Find(ctx, bson.M{"host_id": string(host)}, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var docs []entryDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]domainwallet.Entry, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toEntry())
	}
	return out, nil
}

type CashoutRepository struct {
	col     *mongo.Collection
	wallets *mongo.Collection
}

func NewCashoutRepository(db *mongo.Database) *CashoutRepository {
	return &CashoutRepository{col: db.Collection(colCashouts), wallets: db.Collection(colWallets)}
}

func (r *CashoutRepository) ByID(ctx context.Context, id domainwallet.CashoutID) (*domainwallet.Cashout, error) {
	var doc cashoutDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainwallet.ErrCashoutNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *CashoutRepository) Save(ctx context.Context, c *domainwallet.Cashout) error {
	doc := newCashoutDocument(c)
	doc.Version = c.Version + 1
	if err := saveVersioned(ctx, r.col, doc.ID, c.Version, doc); err != nil {
		return err
	}
	c.Version = doc.Version
	return nil
}

func (r *CashoutRepository) ListByHost(ctx context.Context, host domainlistings.HostID) ([]*domainwallet.Cashout, error) {
	cur, err := r.col.Find(ctx, bson.M{"host_id": string(host)}, options.Find().SetSort(bson.D{{Key: "requested_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var docs []cashoutDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]*domainwallet.Cashout, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toAggregate())
	}
	return out, nil
}

// LockWallet writes the host's wallet document under the same version guard
// as the aggregates. A second transaction that read the balance meanwhile
// conflicts on this document and aborts.
func (r *CashoutRepository) LockWallet(ctx context.Context, host domainlistings.HostID) error {
	var doc walletDocument
	err := r.wallets.FindOne(ctx, bson.M{"_id": string(host)}).Decode(&doc)
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		return err
	}
	return saveVersioned(ctx, r.wallets, string(host), doc.Version, walletDocument{ID: string(host), Version: doc.Version + 1})
}

var (
	_ domainlistings.Repository      = (*ListingRepository)(nil)
	_ domainavailability.Repository  = (*CalendarRepository)(nil)
	_ domainreservation.Repository   = (*ReservationRepository)(nil)
	_ domainwallet.Ledger            = (*Ledger)(nil)
	_ domainwallet.CashoutRepository = (*CashoutRepository)(nil)
)
