package availability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staybook/internal/app/policies"
	domainlistings "staybook/internal/domain/listings"
	"staybook/internal/domain/reservation"
	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/money"
	"staybook/internal/infra/storage/memory"
)

var calendarNow = time.Date(2031, 1, 1, 9, 0, 0, 0, time.UTC)

func day(t *testing.T, raw string) time.Time {
	t.Helper()
	d, err := daterange.ParseDay(raw)
	require.NoError(t, err)
	return d
}

func seedListing(t *testing.T, store *memory.Store, category domainlistings.Category, blocked ...time.Time) *domainlistings.Listing {
	t.Helper()
	l, err := domainlistings.NewListing(domainlistings.CreateParams{
		ID:           "lst-1",
		Host:         "host-1",
		Title:        "Lake cabin",
		Category:     category,
		Price:        money.Must(1000, "PHP"),
		GuestsLimit:  4,
		BlockedDates: blocked,
		Now:          calendarNow,
	})
	require.NoError(t, err)
	require.NoError(t, l.Activate("host-1", calendarNow))
	store.PutListing(l)
	return l
}

func newHandler(store *memory.Store) *GetCalendarHandler {
	return &GetCalendarHandler{
		UoWFactory: memory.Factory{Store: store},
		Clock:      policies.FixedClock{At: calendarNow},
	}
}

func TestCalendarDefaultRangeIsBookable(t *testing.T) {
	store := memory.NewStore()
	seedListing(t, store, domainlistings.CategoryHomes, day(t, "2031-01-01"), day(t, "2031-01-02"), day(t, "2031-01-04"))

	got, err := newHandler(store).Handle(context.Background(), GetCalendarQuery{ListingID: "lst-1"})
	require.NoError(t, err)

	assert.Equal(t, []string{"2031-01-01", "2031-01-02", "2031-01-04"}, got.BlockedDates)
	assert.Equal(t, "2031-01-05", got.DefaultCheckIn)
	assert.Equal(t, "2031-01-06", got.DefaultCheckOut)
}

func TestCalendarSingleDayCategoryTakesFirstOpenDay(t *testing.T) {
	store := memory.NewStore()
	seedListing(t, store, domainlistings.CategoryExperiences, day(t, "2031-01-01"), day(t, "2031-01-02"), day(t, "2031-01-04"))

	got, err := newHandler(store).Handle(context.Background(), GetCalendarQuery{ListingID: "lst-1"})
	require.NoError(t, err)

	assert.Equal(t, "2031-01-03", got.DefaultCheckIn)
	assert.Equal(t, "2031-01-03", got.DefaultCheckOut)
}

func TestCalendarWithoutPolicyUsesDefaultOccupancy(t *testing.T) {
	store := memory.NewStore()
	listing := seedListing(t, store, domainlistings.CategoryHomes)
	stay, err := daterange.New(day(t, "2031-01-01"), day(t, "2031-01-03"))
	require.NoError(t, err)
	res, err := reservation.NewConfirmed(reservation.ConfirmParams{
		ID:       "res-1",
		Listing:  listing,
		GuestID:  "guest-1",
		Range:    stay,
		Guests:   2,
		Subtotal: money.Must(2000, "PHP"),
		Total:    money.Must(2000, "PHP"),
		Payment:  reservation.Payment{ID: "cap-1", Status: "COMPLETED"},
		Now:      calendarNow,
	})
	require.NoError(t, err)
	store.PutReservation(res)

	got, err := newHandler(store).Handle(context.Background(), GetCalendarQuery{ListingID: "lst-1"})
	require.NoError(t, err)

	assert.Equal(t, []string{"2031-01-01", "2031-01-02", "2031-01-03"}, got.BlockedDates)
	assert.Equal(t, "2031-01-04", got.DefaultCheckIn)
}
