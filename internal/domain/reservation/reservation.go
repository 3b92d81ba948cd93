package reservation

import (
	"context"
	"errors"
	"strings"
	"time"

	"staybook/internal/domain/availability"
	"staybook/internal/domain/listings"
	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/events"
	"staybook/internal/domain/shared/money"
)

var (
	ErrNotFound        = errors.New("reservation: not found")
	ErrIDRequired      = errors.New("reservation: id is required")
	ErrGuestRequired   = errors.New("reservation: guest is required")
	ErrInvalidGuests   = errors.New("reservation: guests count must be positive")
	ErrPaymentRequired = errors.New("reservation: payment id and status are required")
	ErrNotGuest        = errors.New("reservation: reservation belongs to another guest")
	ErrNotHost         = errors.New("reservation: reservation belongs to another host")
	ErrNotCheckedOut   = errors.New("reservation: check-out date has not passed")
	ErrTotalRequired   = errors.New("reservation: total must not be negative")
)

type ReservationID string
type GuestID string

// Payment is what the provider returned on capture.
type Payment struct {
	ID     string
	Status string
}

// Contact is the guest data the notifications need.
type Contact struct {
	Name  string
	Email string
}

type Reservation struct {
	ID              ReservationID
	ListingID       listings.ListingID
	ListingTitle    string
	Category        listings.Category
	HostID          listings.HostID
	HostName        string
	GuestID         GuestID
	Guest           Contact
	Range           daterange.DateRange
	Guests          int
	Subtotal        money.Money
	Discount        money.Money
	DiscountPercent int
	Total           money.Money
	Payment         Payment
	Status          Status
	CancelReason    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	Version         int64
	events.EventRecorder
}

type Repository interface {
	ByID(ctx context.Context, id ReservationID) (*Reservation, error)
	ByPaymentID(ctx context.Context, paymentID string) (*Reservation, error)
	// Save inserts or updates using the Version as a compare-and-swap guard.
	Save(ctx context.Context, r *Reservation) error
	ListByListing(ctx context.Context, listingID listings.ListingID) ([]*Reservation, error)
	ListByGuest(ctx context.Context, guestID GuestID) ([]*Reservation, error)
	// ListByHost filters by status unless status is empty.
	ListByHost(ctx context.Context, hostID listings.HostID, status Status) ([]*Reservation, error)
	ListByStatus(ctx context.Context, status Status) ([]*Reservation, error)
}

type ConfirmParams struct {
	ID              ReservationID
	Listing         *listings.Listing
	GuestID         GuestID
	Guest           Contact
	Range           daterange.DateRange
	Guests          int
	Subtotal        money.Money
	Discount        money.Money
	DiscountPercent int
	Total           money.Money
	Payment         Payment
	Now             time.Time
}

// NewConfirmed creates a reservation straight into Confirmed after a capture.
func NewConfirmed(params ConfirmParams) (*Reservation, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return nil, ErrIDRequired
	}
	if strings.TrimSpace(string(params.GuestID)) == "" {
		return nil, ErrGuestRequired
	}
	if params.Listing == nil {
		return nil, listings.ErrNotFound
	}
	if params.Guests <= 0 {
		return nil, ErrInvalidGuests
	}
	if strings.TrimSpace(params.Payment.ID) == "" || strings.TrimSpace(params.Payment.Status) == "" {
		return nil, ErrPaymentRequired
	}
	if params.Total.Amount < 0 {
		return nil, ErrTotalRequired
	}
	if err := params.Range.Validate(); err != nil {
		return nil, err
	}
	if err := CanTransition("", StatusConfirmed, ActorSystem); err != nil {
		return nil, err
	}
	now := params.Now.UTC()
	l := params.Listing
	r := &Reservation{
		ID:              params.ID,
		ListingID:       l.ID,
		ListingTitle:    l.Title,
		Category:        l.Category,
		HostID:          l.Host,
		HostName:        l.HostName,
		GuestID:         params.GuestID,
		Guest:           params.Guest,
		Range:           params.Range,
		Guests:          params.Guests,
		Subtotal:        params.Subtotal,
		Discount:        params.Discount,
		DiscountPercent: params.DiscountPercent,
		Total:           params.Total,
		Payment:         params.Payment,
		Status:          StatusConfirmed,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	r.Record(ReservationConfirmed{Snapshot: r.snapshot(), PaymentID: r.Payment.ID, At: now})
	return r, nil
}

// RequestCancellation is the guest asking to cancel a confirmed stay.
func (r *Reservation) RequestCancellation(guest GuestID, reason string, now time.Time) error {
	if guest == "" || r.GuestID != guest {
		return ErrNotGuest
	}
	if err := r.transition(StatusCancellationRequested, ActorGuest, now); err != nil {
		return err
	}
	r.CancelReason = strings.TrimSpace(reason)
	r.Record(CancellationRequested{ReservationID: r.ID, HostID: r.HostID, Reason: r.CancelReason, At: r.UpdatedAt})
	return nil
}

// ApproveCancellation cancels the reservation. It never refunds or touches
// the host wallet.
func (r *Reservation) ApproveCancellation(host listings.HostID, now time.Time) error {
	if host == "" || r.HostID != host {
		return ErrNotHost
	}
	if err := r.transition(StatusCancelled, ActorHost, now); err != nil {
		return err
	}
	r.Record(ReservationCancelled{Snapshot: r.snapshot(), Reason: r.CancelReason, At: r.UpdatedAt})
	return nil
}

func (r *Reservation) DeclineCancellation(host listings.HostID, now time.Time) error {
	if host == "" || r.HostID != host {
		return ErrNotHost
	}
	if err := r.transition(StatusConfirmed, ActorHost, now); err != nil {
		return err
	}
	r.CancelReason = ""
	r.Record(CancellationDeclined{ReservationID: r.ID, GuestID: r.GuestID, At: r.UpdatedAt})
	return nil
}

// Complete marks a confirmed stay as finished once its check-out day is over.
func (r *Reservation) Complete(now time.Time) error {
	if !r.CheckedOut(now) {
		return ErrNotCheckedOut
	}
	if err := r.transition(StatusCompleted, ActorSystem, now); err != nil {
		return err
	}
	r.Record(ReservationCompleted{ReservationID: r.ID, ListingID: r.ListingID, HostID: r.HostID, At: r.UpdatedAt})
	return nil
}

// CheckedOut reports whether the check-out day lies strictly before now's day.
func (r *Reservation) CheckedOut(now time.Time) bool {
	if r.Range.CheckOut.IsZero() {
		return false
	}
	return daterange.Day(r.Range.CheckOut).Before(daterange.Day(now))
}

func (r *Reservation) Occupancy() availability.Occupancy {
	return availability.Occupancy{
		Reference: string(r.ID),
		Status:    string(r.Status),
		CheckIn:   r.Range.CheckIn,
		CheckOut:  r.Range.CheckOut,
	}
}

func (r *Reservation) transition(to Status, actor Actor, now time.Time) error {
	if err := CanTransition(r.Status, to, actor); err != nil {
		return err
	}
	r.Status = to
	if now.IsZero() {
		now = time.Now()
	}
	r.UpdatedAt = now.UTC()
	return nil
}

func (r *Reservation) snapshot() Snapshot {
	return Snapshot{
		ReservationID: string(r.ID),
		ListingID:     string(r.ListingID),
		ListingTitle:  r.ListingTitle,
		Category:      string(r.Category),
		HostID:        string(r.HostID),
		HostName:      r.HostName,
		GuestID:       string(r.GuestID),
		GuestName:     r.Guest.Name,
		GuestEmail:    r.Guest.Email,
		CheckIn:       r.Range.CheckIn.Format(daterange.DayLayout),
		CheckOut:      r.Range.CheckOut.Format(daterange.DayLayout),
		Guests:        r.Guests,
		TotalAmount:   r.Total.Amount,
		Currency:      r.Total.Currency,
	}
}

// Occupancies converts reservations for the availability calculator.
func Occupancies(items []*Reservation) []availability.Occupancy {
	out := make([]availability.Occupancy, 0, len(items))
	for _, r := range items {
		if r == nil {
			continue
		}
		out = append(out, r.Occupancy())
	}
	return out
}

// ReconcileExpired moves every confirmed reservation whose check-out day has
// passed to Completed and returns the ones it changed. Running it again over
// the same slice changes nothing.
func ReconcileExpired(items []*Reservation, now time.Time) []*Reservation {
	var changed []*Reservation
	for _, r := range items {
		if r == nil || r.Status != StatusConfirmed || !r.CheckedOut(now) {
			continue
		}
		if err := r.Complete(now); err != nil {
			continue
		}
		changed = append(changed, r)
	}
	return changed
}
