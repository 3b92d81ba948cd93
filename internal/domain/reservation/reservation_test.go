package reservation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staybook/internal/domain/availability"
	"staybook/internal/domain/listings"
	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/money"
)

func mustDay(t *testing.T, raw string) time.Time {
	t.Helper()
	d, err := daterange.ParseDay(raw)
	require.NoError(t, err)
	return d
}

func confirmed(t *testing.T, id string, checkIn, checkOut string) *Reservation {
	t.Helper()
	listing := &listings.Listing{ID: "lst-1", Host: "host-1", Title: "Cabin", Category: listings.CategoryHomes}
	dr, err := daterange.New(mustDay(t, checkIn), mustDay(t, checkOut))
	require.NoError(t, err)
	r, err := NewConfirmed(ConfirmParams{
		ID:      ReservationID(id),
		Listing: listing,
		GuestID: "guest-1",
		Guest:   Contact{Name: "Ana", Email: "ana@example.com"},
		Range:   dr,
		Guests:  2,
		Total:   money.Must(2700, "PHP"),
		Payment: Payment{ID: "cap-" + id, Status: "COMPLETED"},
		Now:     mustDay(t, "2024-01-01"),
	})
	require.NoError(t, err)
	return r
}

func TestTransitionTable(t *testing.T) {
	tests := []struct {
		name    string
		from    Status
		to      Status
		actor   Actor
		wantErr error
	}{
		{"created by capture", "", StatusConfirmed, ActorSystem, nil},
		{"guest requests cancellation", StatusConfirmed, StatusCancellationRequested, ActorGuest, nil},
		{"host approves", StatusCancellationRequested, StatusCancelled, ActorHost, nil},
		{"host declines", StatusCancellationRequested, StatusConfirmed, ActorHost, nil},
		{"system completes", StatusConfirmed, StatusCompleted, ActorSystem, nil},
		{"duplicate request", StatusCancellationRequested, StatusCancellationRequested, ActorGuest, ErrInvalidTransition},
		{"resurrect cancelled", StatusCancelled, StatusConfirmed, ActorHost, ErrInvalidTransition},
		{"reopen completed", StatusCompleted, StatusConfirmed, ActorSystem, ErrInvalidTransition},
		{"guest cannot approve", StatusCancellationRequested, StatusCancelled, ActorGuest, ErrActorNotAllowed},
		{"host cannot complete", StatusConfirmed, StatusCompleted, ActorHost, ErrActorNotAllowed},
		{"admin is not in the table", StatusConfirmed, StatusCancellationRequested, ActorAdmin, ErrActorNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CanTransition(tt.from, tt.to, tt.actor)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestNewConfirmedRequiresCapture(t *testing.T) {
	listing := &listings.Listing{ID: "lst-1", Host: "host-1"}
	dr, _ := daterange.Single(mustDay(t, "2024-01-05"))

	_, err := NewConfirmed(ConfirmParams{ID: "r1", Listing: listing, GuestID: "g", Range: dr, Guests: 1})
	assert.ErrorIs(t, err, ErrPaymentRequired)

	_, err = NewConfirmed(ConfirmParams{ID: "r1", Listing: listing, GuestID: "g", Range: dr, Payment: Payment{ID: "c", Status: "COMPLETED"}})
	assert.ErrorIs(t, err, ErrInvalidGuests)
}

func TestNewConfirmedRecordsEvent(t *testing.T) {
	r := confirmed(t, "r1", "2024-01-05", "2024-01-07")

	assert.Equal(t, StatusConfirmed, r.Status)
	require.Len(t, r.PendingEvents(), 1)
	evt, ok := r.PendingEvents()[0].(ReservationConfirmed)
	require.True(t, ok)
	assert.Equal(t, "cap-r1", evt.PaymentID)
	assert.Equal(t, "2024-01-05", evt.CheckIn)
	assert.Equal(t, int64(2700), evt.TotalAmount)
	assert.Equal(t, "homes", evt.Category)
}

func TestCancellationFlow(t *testing.T) {
	now := mustDay(t, "2024-01-02")

	r := confirmed(t, "r1", "2024-01-05", "2024-01-07")
	assert.ErrorIs(t, r.RequestCancellation("guest-2", "", now), ErrNotGuest)
	require.NoError(t, r.RequestCancellation("guest-1", "plans changed", now))
	assert.Equal(t, StatusCancellationRequested, r.Status)
	assert.ErrorIs(t, r.RequestCancellation("guest-1", "again", now), ErrInvalidTransition)

	assert.ErrorIs(t, r.ApproveCancellation("host-2", now), ErrNotHost)
	require.NoError(t, r.ApproveCancellation("host-1", now))
	assert.Equal(t, StatusCancelled, r.Status)
	assert.ErrorIs(t, r.DeclineCancellation("host-1", now), ErrInvalidTransition)
	assert.ErrorIs(t, r.RequestCancellation("guest-1", "", now), ErrInvalidTransition)

	declined := confirmed(t, "r2", "2024-01-05", "2024-01-07")
	require.NoError(t, declined.RequestCancellation("guest-1", "", now))
	require.NoError(t, declined.DeclineCancellation("host-1", now))
	assert.Equal(t, StatusConfirmed, declined.Status)
	assert.Empty(t, declined.CancelReason)
}

func TestCompleteOnlyAfterCheckout(t *testing.T) {
	r := confirmed(t, "r1", "2024-01-05", "2024-01-07")

	assert.ErrorIs(t, r.Complete(time.Date(2024, 1, 7, 23, 0, 0, 0, time.UTC)), ErrNotCheckedOut)
	require.NoError(t, r.Complete(time.Date(2024, 1, 8, 0, 1, 0, 0, time.UTC)))
	assert.Equal(t, StatusCompleted, r.Status)
	assert.ErrorIs(t, r.Complete(time.Date(2024, 1, 9, 0, 0, 0, 0, time.UTC)), ErrInvalidTransition)
}

func TestReconcileExpired(t *testing.T) {
	now := mustDay(t, "2024-01-10")
	past := confirmed(t, "past", "2024-01-05", "2024-01-07")
	future := confirmed(t, "future", "2024-01-12", "2024-01-14")
	pending := confirmed(t, "pending", "2024-01-02", "2024-01-03")
	require.NoError(t, pending.RequestCancellation("guest-1", "", mustDay(t, "2024-01-01")))
	items := []*Reservation{past, future, pending, nil}

	changed := ReconcileExpired(items, now)
	require.Len(t, changed, 1)
	assert.Equal(t, ReservationID("past"), changed[0].ID)
	assert.Equal(t, StatusCompleted, past.Status)
	assert.Equal(t, StatusConfirmed, future.Status)
	assert.Equal(t, StatusCancellationRequested, pending.Status)

	assert.Empty(t, ReconcileExpired(items, now))
}

func TestOccupancyFollowsPolicy(t *testing.T) {
	now := mustDay(t, "2024-01-02")
	kept := confirmed(t, "kept", "2024-01-05", "2024-01-06")
	cancelled := confirmed(t, "gone", "2024-01-10", "2024-01-11")
	require.NoError(t, cancelled.RequestCancellation("guest-1", "", now))
	require.NoError(t, cancelled.ApproveCancellation("host-1", now))

	set := availability.ComputeBlockedDates(Occupancies([]*Reservation{kept, cancelled}), nil, DefaultOccupancy)

	assert.True(t, set.Contains(mustDay(t, "2024-01-05")))
	assert.True(t, set.Contains(mustDay(t, "2024-01-06")))
	assert.False(t, set.Contains(mustDay(t, "2024-01-10")))
}

func TestHolds(t *testing.T) {
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	dr, _ := daterange.New(mustDay(t, "2024-01-05"), mustDay(t, "2024-01-06"))

	_, err := NewHold("lst-1", "guest-1", dr, 0, now)
	assert.ErrorIs(t, err, ErrHoldTTL)

	mine, err := NewHold("lst-1", "guest-1", dr, DefaultHoldTTL, now)
	require.NoError(t, err)
	theirs, err := NewHold("lst-1", "guest-2", dr, DefaultHoldTTL, now)
	require.NoError(t, err)

	assert.True(t, mine.Active(now.Add(14*time.Minute)))
	assert.False(t, mine.Active(now.Add(15*time.Minute)))

	occ := HoldOccupancies([]Hold{mine, theirs}, "guest-1")
	require.Len(t, occ, 1)
	assert.Equal(t, HoldStatus, occ[0].Status)
	assert.True(t, DefaultOccupancy.Occupies(occ[0].Status))
}
