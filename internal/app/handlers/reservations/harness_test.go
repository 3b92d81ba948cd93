package reservations

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"staybook/internal/app/auth"
	"staybook/internal/app/commands"
	"staybook/internal/app/dto"
	"staybook/internal/app/middleware"
	"staybook/internal/app/outbox"
	"staybook/internal/app/policies"
	"staybook/internal/app/queries"
	"staybook/internal/app/uow"
	domainlistings "staybook/internal/domain/listings"
	"staybook/internal/domain/reservation"
	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/money"
	"staybook/internal/domain/wallet"
	"staybook/internal/infra/storage/memory"
)

var testNow = time.Date(2031, 1, 1, 10, 0, 0, 0, time.UTC)

type recordingHandler struct {
	mu      sync.Mutex
	records []outbox.EventRecord
}

func (h *recordingHandler) HandleEvent(ctx context.Context, rec outbox.EventRecord) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, rec)
	return nil
}

func (h *recordingHandler) names() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, 0, len(h.records))
	for _, r := range h.records {
		out = append(out, r.Name)
	}
	return out
}

type harness struct {
	t       *testing.T
	store   *memory.Store
	factory memory.Factory
	relay   *memory.Relay
	events  *recordingHandler
	holds   *memory.HoldStore
	clock   *policies.FixedClock
	bus     commands.Bus
	queries queries.Bus
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		t:      t,
		store:  memory.NewStore(),
		events: &recordingHandler{},
		holds:  memory.NewHoldStore(),
		clock:  &policies.FixedClock{At: testNow},
	}
	h.relay = memory.NewRelay(h.events, nil)
	h.factory = memory.Factory{Store: h.store, Relay: h.relay}
	box := memory.NewOutbox(h.relay)
	policy := reservation.DefaultOccupancy
	clock := clockFunc(func() time.Time { return h.clock.At })

	raw := commands.NewInMemoryBus()
	commands.Register[PlaceHoldCommand, dto.Hold](raw, &PlaceHoldHandler{Holds: h.holds, Policy: policy, Clock: clock})
	commands.Register[ConfirmPaymentCommand, dto.Reservation](raw, &ConfirmPaymentHandler{
		Holds:  h.holds,
		Outbox: box,
		Policy: policy,
		Clock:  clock,
	})
	commands.Register[RequestCancellationCommand, dto.Reservation](raw, &RequestCancellationHandler{Outbox: box, Clock: clock})
	commands.Register[ResolveCancellationCommand, dto.Reservation](raw, &ResolveCancellationHandler{Outbox: box, Clock: clock})
	commands.Register[ReconcileExpiredCommand, dto.ReconcileResult](raw, &ReconcileExpiredHandler{Outbox: box, Clock: clock})
	h.bus = middleware.ChainCommands(raw,
		middleware.Authorization(auth.Authorizer{}),
		middleware.Idempotency(memory.NewIdempotencyStore(), nil),
		middleware.Validation(middleware.SelfValidator{}),
		middleware.Transaction(h.factory, nil),
		middleware.OutboxFlush(box),
	)

	rawQueries := queries.NewInMemoryBus()
	queries.Register[ListGuestReservationsQuery, dto.ReservationCollection](rawQueries, &ListGuestReservationsHandler{UoWFactory: h.factory})
	queries.Register[ListHostReservationsQuery, dto.ReservationCollection](rawQueries, &ListHostReservationsHandler{UoWFactory: h.factory})
	queries.Register[GetQuoteQuery, dto.Quote](rawQueries, &GetQuoteHandler{UoWFactory: h.factory, Holds: h.holds, Clock: clock})
	h.queries = middleware.ChainQueries(rawQueries,
		middleware.QueryAuthorization(auth.Authorizer{}),
		middleware.QueryValidation(middleware.SelfValidator{}),
	)
	return h
}

type clockFunc func() time.Time

func (f clockFunc) Now() time.Time { return f() }

func (h *harness) seedListing(id string, category domainlistings.Category) *domainlistings.Listing {
	h.t.Helper()
	l, err := domainlistings.NewListing(domainlistings.CreateParams{
		ID:              domainlistings.ListingID(id),
		Host:            "host-1",
		HostName:        "Rosa",
		Title:           "Cabin " + id,
		Category:        category,
		Price:           money.Must(1000, "PHP"),
		PromoCode:       "SAVE10",
		DiscountPercent: 10,
		GuestsLimit:     4,
		Now:             testNow,
	})
	require.NoError(h.t, err)
	require.NoError(h.t, l.Activate("host-1", testNow))
	h.store.PutListing(l)
	return l
}

func as(id string, roles ...auth.Role) context.Context {
	return auth.WithPrincipal(context.Background(), auth.Principal{ID: id, Roles: roles})
}

func day(t *testing.T, raw string) time.Time {
	t.Helper()
	d, err := daterange.ParseDay(raw)
	require.NoError(t, err)
	return d
}

func (h *harness) confirm(guest, capture, listing, checkIn, checkOut string) (dto.Reservation, error) {
	h.t.Helper()
	cmd := ConfirmPaymentCommand{
		ListingID:  listing,
		GuestID:    guest,
		GuestName:  "Guest " + guest,
		GuestEmail: guest + "@example.com",
		CheckIn:    day(h.t, checkIn),
		Guests:     2,
		Capture:    Capture{ID: capture, Status: "COMPLETED"},
	}
	if checkOut != "" {
		cmd.CheckOut = day(h.t, checkOut)
	}
	return commands.Dispatch[ConfirmPaymentCommand, dto.Reservation](as(guest, auth.RoleGuest), h.bus, cmd)
}

func (h *harness) readUnit() (uow.UnitOfWork, func()) {
	h.t.Helper()
	unit, err := h.factory.Begin(context.Background(), uow.TxOptions{ReadOnly: true})
	require.NoError(h.t, err)
	return unit, func() { _ = unit.Rollback(context.Background()) }
}

func (h *harness) ledger(host domainlistings.HostID) []wallet.Entry {
	h.t.Helper()
	unit, done := h.readUnit()
	defer done()
	entries, err := unit.Ledger().Entries(context.Background(), host)
	require.NoError(h.t, err)
	return entries
}

func (h *harness) reservations(listing domainlistings.ListingID) []*reservation.Reservation {
	h.t.Helper()
	unit, done := h.readUnit()
	defer done()
	items, err := unit.Reservations().ListByListing(context.Background(), listing)
	require.NoError(h.t, err)
	return items
}
