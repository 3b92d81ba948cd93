package reservations

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staybook/internal/app/auth"
	"staybook/internal/app/commands"
	"staybook/internal/app/dto"
	"staybook/internal/app/queries"
	domainlistings "staybook/internal/domain/listings"
	"staybook/internal/domain/reservation"
	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/money"
	"staybook/internal/domain/wallet"
)

func TestConfirmPaymentCreatesReservationAndCredit(t *testing.T) {
	h := newHarness(t)
	h.seedListing("lst-1", domainlistings.CategoryHomes)

	cmd := ConfirmPaymentCommand{
		ListingID:  "lst-1",
		GuestID:    "guest-1",
		GuestName:  "Ana",
		GuestEmail: "ana@example.com",
		CheckIn:    day(t, "2031-01-05"),
		CheckOut:   day(t, "2031-01-07"),
		Guests:     2,
		PromoCode:  "save10",
		Capture:    Capture{ID: "cap-1", Status: "COMPLETED"},
	}
	res, err := commands.Dispatch[ConfirmPaymentCommand, dto.Reservation](as("guest-1", auth.RoleGuest), h.bus, cmd)
	require.NoError(t, err)

	assert.Equal(t, string(reservation.StatusConfirmed), res.Status)
	assert.Equal(t, int64(3000), res.Subtotal.Amount)
	assert.Equal(t, int64(300), res.Discount.Amount)
	assert.Equal(t, int64(2700), res.Total.Amount)
	assert.Equal(t, "cap-1", res.PaymentID)

	entries := h.ledger("host-1")
	require.Len(t, entries, 1)
	assert.Equal(t, wallet.KindBookingCredit, entries[0].Kind)
	assert.Equal(t, int64(2700), entries[0].Amount.Amount)
	assert.Equal(t, res.ID, entries[0].Reference)

	h.relay.Deliver(context.Background())
	assert.Contains(t, h.events.names(), reservation.EventConfirmed)
	assert.Contains(t, h.events.names(), "calendar.blocked")
}

func TestConfirmPaymentRetryReturnsSameReservation(t *testing.T) {
	h := newHarness(t)
	h.seedListing("lst-1", domainlistings.CategoryHomes)

	first, err := h.confirm("guest-1", "cap-1", "lst-1", "2031-01-05", "2031-01-07")
	require.NoError(t, err)
	second, err := h.confirm("guest-1", "cap-1", "lst-1", "2031-01-05", "2031-01-07")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, h.reservations("lst-1"), 1)
	assert.Len(t, h.ledger("host-1"), 1)
}

func TestConfirmPaymentRejectsOverlap(t *testing.T) {
	h := newHarness(t)
	h.seedListing("lst-1", domainlistings.CategoryHomes)

	_, err := h.confirm("guest-1", "cap-1", "lst-1", "2031-01-05", "2031-01-07")
	require.NoError(t, err)

	_, err = h.confirm("guest-2", "cap-2", "lst-1", "2031-01-07", "2031-01-09")
	assert.ErrorIs(t, err, ErrDatesUnavailable)
	assert.ErrorIs(t, err, ErrCaptureUnreconciled)

	_, err = h.confirm("guest-2", "cap-3", "lst-1", "2031-01-08", "2031-01-09")
	assert.NoError(t, err)
	assert.Len(t, h.ledger("host-1"), 2)
}

func TestConfirmPaymentValidation(t *testing.T) {
	h := newHarness(t)
	h.seedListing("lst-1", domainlistings.CategoryHomes)
	h.seedListing("exp-1", domainlistings.CategoryExperiences)
	base := ConfirmPaymentCommand{
		ListingID: "lst-1",
		GuestID:   "guest-1",
		CheckIn:   day(t, "2031-01-05"),
		CheckOut:  day(t, "2031-01-06"),
		Guests:    1,
		Capture:   Capture{ID: "cap-x", Status: "COMPLETED"},
	}

	tests := []struct {
		name   string
		mutate func(c *ConfirmPaymentCommand)
		want   error
	}{
		{"failed capture", func(c *ConfirmPaymentCommand) { c.Capture.Status = "FAILED" }, ErrCaptureNotAccepted},
		{"declined capture lowercase", func(c *ConfirmPaymentCommand) { c.Capture.Status = "declined" }, ErrCaptureNotAccepted},
		{"missing capture", func(c *ConfirmPaymentCommand) { c.Capture = Capture{} }, ErrCaptureMissing},
		{"zero guests", func(c *ConfirmPaymentCommand) { c.Guests = 0 }, ErrInvalidGuests},
		{"too many guests", func(c *ConfirmPaymentCommand) { c.Guests = 5 }, ErrGuestsLimit},
		{"check-in in the past", func(c *ConfirmPaymentCommand) {
			c.CheckIn = day(t, "2030-12-30")
		}, ErrCheckInPast},
		{"inverted range", func(c *ConfirmPaymentCommand) {
			c.CheckIn, c.CheckOut = c.CheckOut, c.CheckIn
		}, daterange.ErrInvalidRange},
		{"wrong promo", func(c *ConfirmPaymentCommand) { c.PromoCode = "NOPE" }, domainlistings.ErrPromoCodeMismatch},
		{"experience with a range", func(c *ConfirmPaymentCommand) { c.ListingID = "exp-1" }, domainlistings.ErrDateShape},
		{"unknown listing", func(c *ConfirmPaymentCommand) { c.ListingID = "missing" }, domainlistings.ErrNotFound},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := base
			cmd.Capture.ID = fmt.Sprintf("cap-%d", i)
			tt.mutate(&cmd)
			_, err := commands.Dispatch[ConfirmPaymentCommand, dto.Reservation](as("guest-1", auth.RoleGuest), h.bus, cmd)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Empty(t, h.ledger("host-1"))
}

func TestConfirmPaymentRequiresGuestRole(t *testing.T) {
	h := newHarness(t)
	h.seedListing("lst-1", domainlistings.CategoryHomes)

	cmd := ConfirmPaymentCommand{ListingID: "lst-1", GuestID: "g", CheckIn: day(t, "2031-01-05"), Guests: 1, Capture: Capture{ID: "c", Status: "COMPLETED"}}
	_, err := commands.Dispatch[ConfirmPaymentCommand, dto.Reservation](as("host-1", auth.RoleHost), h.bus, cmd)
	assert.ErrorIs(t, err, auth.ErrForbidden)
	_, err = commands.Dispatch[ConfirmPaymentCommand, dto.Reservation](context.Background(), h.bus, cmd)
	assert.ErrorIs(t, err, auth.ErrUnauthenticated)
}

func TestSingleDayCategories(t *testing.T) {
	h := newHarness(t)
	h.seedListing("exp-1", domainlistings.CategoryExperiences)

	res, err := h.confirm("guest-1", "cap-1", "exp-1", "2031-01-05", "")
	require.NoError(t, err)
	assert.Equal(t, res.CheckIn, res.CheckOut)
	assert.Equal(t, int64(1000), res.Total.Amount)

	_, err = h.confirm("guest-2", "cap-2", "exp-1", "2031-01-05", "")
	assert.ErrorIs(t, err, ErrDatesUnavailable)
}

func TestHoldsBlockOtherGuestsOnly(t *testing.T) {
	h := newHarness(t)
	h.seedListing("lst-1", domainlistings.CategoryHomes)

	hold, err := commands.Dispatch[PlaceHoldCommand, dto.Hold](as("guest-1", auth.RoleGuest), h.bus, PlaceHoldCommand{
		ListingID: "lst-1",
		GuestID:   "guest-1",
		CheckIn:   day(t, "2031-01-05"),
		CheckOut:  day(t, "2031-01-07"),
		Guests:    2,
	})
	require.NoError(t, err)
	assert.True(t, testNow.Add(reservation.DefaultHoldTTL).Equal(hold.ExpiresAt))

	_, err = h.confirm("guest-2", "cap-2", "lst-1", "2031-01-06", "2031-01-08")
	assert.ErrorIs(t, err, ErrDatesUnavailable)

	_, err = h.confirm("guest-1", "cap-1", "lst-1", "2031-01-05", "2031-01-07")
	require.NoError(t, err)

	active, err := h.holds.ActiveForListing(context.Background(), "lst-1", testNow)
	require.NoError(t, err)
	assert.Empty(t, active, "confirmation releases the guest's hold")
}

func TestExpiredHoldDoesNotBlock(t *testing.T) {
	h := newHarness(t)
	h.seedListing("lst-1", domainlistings.CategoryHomes)

	_, err := commands.Dispatch[PlaceHoldCommand, dto.Hold](as("guest-1", auth.RoleGuest), h.bus, PlaceHoldCommand{
		ListingID: "lst-1",
		GuestID:   "guest-1",
		CheckIn:   day(t, "2031-01-05"),
		CheckOut:  day(t, "2031-01-07"),
		Guests:    2,
	})
	require.NoError(t, err)

	h.clock.At = testNow.Add(reservation.DefaultHoldTTL + time.Second)
	_, err = h.confirm("guest-2", "cap-2", "lst-1", "2031-01-05", "2031-01-07")
	assert.NoError(t, err)
}

func TestConcurrentConfirmationsBookOnce(t *testing.T) {
	h := newHarness(t)
	h.seedListing("lst-1", domainlistings.CategoryHomes)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			guest := fmt.Sprintf("guest-%d", i)
			cmd := ConfirmPaymentCommand{
				ListingID: "lst-1",
				GuestID:   guest,
				CheckIn:   time.Date(2031, 2, 1, 0, 0, 0, 0, time.UTC),
				CheckOut:  time.Date(2031, 2, 3, 0, 0, 0, 0, time.UTC),
				Guests:    1,
				Capture:   Capture{ID: fmt.Sprintf("cap-%d", i), Status: "COMPLETED"},
			}
			_, err := commands.Dispatch[ConfirmPaymentCommand, dto.Reservation](as(guest, auth.RoleGuest), h.bus, cmd)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrDatesUnavailable):
				conflicts++
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, 9, conflicts)
	assert.Len(t, h.reservations("lst-1"), 1)
	assert.Len(t, h.ledger("host-1"), 1)
}

func TestCancellationFlow(t *testing.T) {
	h := newHarness(t)
	h.seedListing("lst-1", domainlistings.CategoryHomes)
	res, err := h.confirm("guest-1", "cap-1", "lst-1", "2031-01-05", "2031-01-07")
	require.NoError(t, err)

	guestCtx := as("guest-1", auth.RoleGuest)
	requested, err := commands.Dispatch[RequestCancellationCommand, dto.Reservation](guestCtx, h.bus, RequestCancellationCommand{
		ReservationID: res.ID,
		GuestID:       "guest-1",
		Reason:        "plans changed",
	})
	require.NoError(t, err)
	assert.Equal(t, string(reservation.StatusCancellationRequested), requested.Status)

	_, err = commands.Dispatch[RequestCancellationCommand, dto.Reservation](guestCtx, h.bus, RequestCancellationCommand{
		ReservationID: res.ID,
		GuestID:       "guest-1",
	})
	assert.ErrorIs(t, err, reservation.ErrInvalidTransition)

	_, err = commands.Dispatch[ResolveCancellationCommand, dto.Reservation](as("host-2", auth.RoleHost), h.bus, ResolveCancellationCommand{
		ReservationID: res.ID,
		HostID:        "host-2",
		Approve:       true,
	})
	assert.ErrorIs(t, err, reservation.ErrNotHost)

	// still occupied while the request is pending
	_, err = h.confirm("guest-2", "cap-2", "lst-1", "2031-01-05", "2031-01-06")
	assert.ErrorIs(t, err, ErrDatesUnavailable)

	cancelled, err := commands.Dispatch[ResolveCancellationCommand, dto.Reservation](as("host-1", auth.RoleHost), h.bus, ResolveCancellationCommand{
		ReservationID: res.ID,
		HostID:        "host-1",
		Approve:       true,
	})
	require.NoError(t, err)
	assert.Equal(t, string(reservation.StatusCancelled), cancelled.Status)

	_, err = h.confirm("guest-2", "cap-3", "lst-1", "2031-01-05", "2031-01-06")
	assert.NoError(t, err, "cancelled dates are bookable again")

	// cancellation never refunds or debits the host
	assert.Len(t, h.ledger("host-1"), 2)
}

func TestDeclineCancellationRestoresConfirmed(t *testing.T) {
	h := newHarness(t)
	h.seedListing("lst-1", domainlistings.CategoryHomes)
	res, err := h.confirm("guest-1", "cap-1", "lst-1", "2031-01-05", "2031-01-07")
	require.NoError(t, err)

	_, err = commands.Dispatch[RequestCancellationCommand, dto.Reservation](as("guest-1", auth.RoleGuest), h.bus, RequestCancellationCommand{ReservationID: res.ID, GuestID: "guest-1"})
	require.NoError(t, err)
	declined, err := commands.Dispatch[ResolveCancellationCommand, dto.Reservation](as("host-1", auth.RoleHost), h.bus, ResolveCancellationCommand{ReservationID: res.ID, HostID: "host-1"})
	require.NoError(t, err)
	assert.Equal(t, string(reservation.StatusConfirmed), declined.Status)
	assert.Empty(t, declined.CancelReason)
}

func TestReconcileExpiredCompletesPastStays(t *testing.T) {
	h := newHarness(t)
	l := h.seedListing("lst-1", domainlistings.CategoryHomes)
	past, err := daterange.New(day(t, "2030-12-20"), day(t, "2030-12-22"))
	require.NoError(t, err)
	seeded, err := reservation.NewConfirmed(reservation.ConfirmParams{
		ID:      "res-past",
		Listing: l,
		GuestID: "guest-1",
		Range:   past,
		Guests:  1,
		Total:   money.Must(2000, "PHP"),
		Payment: reservation.Payment{ID: "cap-past", Status: "COMPLETED"},
		Now:     day(t, "2030-12-01"),
	})
	require.NoError(t, err)
	h.store.PutReservation(seeded)
	_, err = h.confirm("guest-2", "cap-future", "lst-1", "2031-01-05", "2031-01-07")
	require.NoError(t, err)

	system := auth.WithPrincipal(context.Background(), auth.System())
	result, err := commands.Dispatch[ReconcileExpiredCommand, dto.ReconcileResult](system, h.bus, ReconcileExpiredCommand{})
	require.NoError(t, err)
	assert.Equal(t, []string{"res-past"}, result.Completed)

	again, err := commands.Dispatch[ReconcileExpiredCommand, dto.ReconcileResult](system, h.bus, ReconcileExpiredCommand{})
	require.NoError(t, err)
	assert.Empty(t, again.Completed)

	_, err = commands.Dispatch[ReconcileExpiredCommand, dto.ReconcileResult](as("guest-1", auth.RoleGuest), h.bus, ReconcileExpiredCommand{})
	assert.ErrorIs(t, err, auth.ErrForbidden)
}

func TestListQueries(t *testing.T) {
	h := newHarness(t)
	h.seedListing("lst-1", domainlistings.CategoryHomes)
	first, err := h.confirm("guest-1", "cap-1", "lst-1", "2031-01-10", "2031-01-12")
	require.NoError(t, err)
	_, err = h.confirm("guest-2", "cap-2", "lst-1", "2031-01-05", "2031-01-07")
	require.NoError(t, err)
	_, err = commands.Dispatch[RequestCancellationCommand, dto.Reservation](as("guest-1", auth.RoleGuest), h.bus, RequestCancellationCommand{ReservationID: first.ID, GuestID: "guest-1"})
	require.NoError(t, err)

	mine, err := queries.Ask[ListGuestReservationsQuery, dto.ReservationCollection](as("guest-1", auth.RoleGuest), h.queries, ListGuestReservationsQuery{GuestID: "guest-1"})
	require.NoError(t, err)
	require.Len(t, mine.Items, 1)
	assert.Equal(t, first.ID, mine.Items[0].ID)

	hostCtx := as("host-1", auth.RoleHost)
	all, err := queries.Ask[ListHostReservationsQuery, dto.ReservationCollection](hostCtx, h.queries, ListHostReservationsQuery{HostID: "host-1", Status: "all"})
	require.NoError(t, err)
	require.Len(t, all.Items, 2)
	assert.Equal(t, "2031-01-05", all.Items[0].CheckIn)

	pending, err := queries.Ask[ListHostReservationsQuery, dto.ReservationCollection](hostCtx, h.queries, ListHostReservationsQuery{HostID: "host-1", Status: "cancellation_requested"})
	require.NoError(t, err)
	require.Len(t, pending.Items, 1)
	assert.Equal(t, first.ID, pending.Items[0].ID)

	_, err = queries.Ask[ListHostReservationsQuery, dto.ReservationCollection](hostCtx, h.queries, ListHostReservationsQuery{HostID: "host-1", Status: "bogus"})
	assert.ErrorIs(t, err, ErrInvalidStatusFilter)
}

func TestQuotePricesStayBeforeCapture(t *testing.T) {
	h := newHarness(t)
	h.seedListing("lst-1", domainlistings.CategoryHomes)

	q := GetQuoteQuery{
		ListingID: "lst-1",
		CheckIn:   day(t, "2031-01-05"),
		CheckOut:  day(t, "2031-01-07"),
		Guests:    2,
		PromoCode: "save10",
	}
	quote, err := queries.Ask[GetQuoteQuery, dto.Quote](context.Background(), h.queries, q)
	require.NoError(t, err)
	assert.Equal(t, 2, quote.Units)
	assert.Equal(t, int64(3000), quote.Subtotal.Amount)
	assert.Equal(t, int64(300), quote.Discount.Amount)
	assert.Equal(t, int64(2700), quote.Total.Amount)
	assert.True(t, quote.Available)

	hold, err := commands.Dispatch[PlaceHoldCommand, dto.Hold](as("guest-1", auth.RoleGuest), h.bus, PlaceHoldCommand{
		ListingID: "lst-1",
		GuestID:   "guest-1",
		CheckIn:   q.CheckIn,
		CheckOut:  q.CheckOut,
		Guests:    2,
		PromoCode: "SAVE10",
	})
	require.NoError(t, err)
	assert.Equal(t, quote.Total, hold.Quote.Total)

	res, err := commands.Dispatch[ConfirmPaymentCommand, dto.Reservation](as("guest-1", auth.RoleGuest), h.bus, ConfirmPaymentCommand{
		ListingID: "lst-1",
		GuestID:   "guest-1",
		CheckIn:   q.CheckIn,
		CheckOut:  q.CheckOut,
		Guests:    2,
		PromoCode: "save10",
		Capture:   Capture{ID: "cap-1", Status: "COMPLETED"},
	})
	require.NoError(t, err)
	assert.Equal(t, quote.Total, res.Total)

	q.GuestID = "guest-2"
	taken, err := queries.Ask[GetQuoteQuery, dto.Quote](context.Background(), h.queries, q)
	require.NoError(t, err)
	assert.False(t, taken.Available)
}

func TestCheckoutValidationRunsBeforeCaptureAndWritesNothing(t *testing.T) {
	h := newHarness(t)
	h.seedListing("lst-1", domainlistings.CategoryHomes)
	h.seedListing("exp-1", domainlistings.CategoryExperiences)
	draft, err := domainlistings.NewListing(domainlistings.CreateParams{
		ID:          "draft-1",
		Host:        "host-1",
		Title:       "Not yet live",
		Category:    domainlistings.CategoryHomes,
		Price:       money.Must(1000, "PHP"),
		GuestsLimit: 2,
		Now:         testNow,
	})
	require.NoError(t, err)
	h.store.PutListing(draft)

	type checkout struct {
		listing   string
		checkIn   string
		checkOut  string
		guests    int
		promoCode string
	}
	base := checkout{listing: "lst-1", checkIn: "2031-01-05", checkOut: "2031-01-06", guests: 2}

	tests := []struct {
		name   string
		mutate func(c *checkout)
		want   error
	}{
		{"wrong promo", func(c *checkout) { c.promoCode = "NOPE" }, domainlistings.ErrPromoCodeMismatch},
		{"zero guests", func(c *checkout) { c.guests = 0 }, ErrInvalidGuests},
		{"too many guests", func(c *checkout) { c.guests = 5 }, ErrGuestsLimit},
		{"experience with a range", func(c *checkout) { c.listing = "exp-1" }, domainlistings.ErrDateShape},
		{"homes without a night", func(c *checkout) { c.checkOut = c.checkIn }, domainlistings.ErrDateShape},
		{"check-in in the past", func(c *checkout) { c.checkIn = "2030-12-30" }, ErrCheckInPast},
		{"inactive listing", func(c *checkout) { c.listing = "draft-1" }, domainlistings.ErrListingNotBookable},
		{"unknown listing", func(c *checkout) { c.listing = "missing" }, domainlistings.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base
			tt.mutate(&c)

			_, err := queries.Ask[GetQuoteQuery, dto.Quote](context.Background(), h.queries, GetQuoteQuery{
				ListingID: c.listing,
				CheckIn:   day(t, c.checkIn),
				CheckOut:  day(t, c.checkOut),
				Guests:    c.guests,
				PromoCode: c.promoCode,
			})
			assert.ErrorIs(t, err, tt.want)

			_, err = commands.Dispatch[PlaceHoldCommand, dto.Hold](as("guest-1", auth.RoleGuest), h.bus, PlaceHoldCommand{
				ListingID: c.listing,
				GuestID:   "guest-1",
				CheckIn:   day(t, c.checkIn),
				CheckOut:  day(t, c.checkOut),
				Guests:    c.guests,
				PromoCode: c.promoCode,
			})
			assert.ErrorIs(t, err, tt.want)
		})
	}

	for _, id := range []domainlistings.ListingID{"lst-1", "exp-1", "draft-1"} {
		active, err := h.holds.ActiveForListing(context.Background(), id, testNow)
		require.NoError(t, err)
		assert.Empty(t, active, id)
		assert.Empty(t, h.reservations(id), id)
	}
	assert.Empty(t, h.ledger("host-1"))
}

func TestConfirmPaymentHidesCaptureOfAnotherGuest(t *testing.T) {
	h := newHarness(t)
	h.seedListing("lst-1", domainlistings.CategoryHomes)

	first, err := h.confirm("guest-1", "cap-1", "lst-1", "2031-01-05", "2031-01-07")
	require.NoError(t, err)

	_, err = h.confirm("guest-2", "cap-1", "lst-1", "2031-01-05", "2031-01-07")
	assert.ErrorIs(t, err, reservation.ErrNotFound)
	assert.NotErrorIs(t, err, ErrCaptureUnreconciled)

	again, err := h.confirm("guest-1", "cap-1", "lst-1", "2031-01-05", "2031-01-07")
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.Len(t, h.reservations("lst-1"), 1)
}
