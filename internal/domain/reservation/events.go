package reservation

import (
	"time"

	"staybook/internal/domain/listings"
)

const (
	EventConfirmed             = "reservation.confirmed"
	EventCancellationRequested = "reservation.cancellation_requested"
	EventCancelled             = "reservation.cancelled"
	EventCancellationDeclined  = "reservation.cancellation_declined"
	EventCompleted             = "reservation.completed"
)

// Snapshot carries the reservation fields notifications are rendered from.
type Snapshot struct {
	ReservationID string `json:"reservation_id"`
	ListingID     string `json:"listing_id"`
	ListingTitle  string `json:"listing_title"`
	Category      string `json:"category"`
	HostID        string `json:"host_id"`
	HostName      string `json:"host_name,omitempty"`
	GuestID       string `json:"guest_id"`
	GuestName     string `json:"guest_name,omitempty"`
	GuestEmail    string `json:"guest_email,omitempty"`
	CheckIn       string `json:"check_in"`
	CheckOut      string `json:"check_out"`
	Guests        int    `json:"guests"`
	TotalAmount   int64  `json:"total_amount"`
	Currency      string `json:"currency"`
}

type ReservationConfirmed struct {
	Snapshot
	PaymentID string    `json:"payment_id"`
	At        time.Time `json:"at"`
}

func (e ReservationConfirmed) EventName() string     { return EventConfirmed }
func (e ReservationConfirmed) AggregateID() string   { return e.ReservationID }
func (e ReservationConfirmed) OccurredAt() time.Time { return e.At }

type CancellationRequested struct {
	ReservationID ReservationID   `json:"reservation_id"`
	HostID        listings.HostID `json:"host_id"`
	Reason        string          `json:"reason,omitempty"`
	At            time.Time       `json:"at"`
}

func (e CancellationRequested) EventName() string     { return EventCancellationRequested }
func (e CancellationRequested) AggregateID() string   { return string(e.ReservationID) }
func (e CancellationRequested) OccurredAt() time.Time { return e.At }

type ReservationCancelled struct {
	Snapshot
	Reason string    `json:"reason,omitempty"`
	At     time.Time `json:"at"`
}

func (e ReservationCancelled) EventName() string     { return EventCancelled }
func (e ReservationCancelled) AggregateID() string   { return e.ReservationID }
func (e ReservationCancelled) OccurredAt() time.Time { return e.At }

type CancellationDeclined struct {
	ReservationID ReservationID `json:"reservation_id"`
	GuestID       GuestID       `json:"guest_id"`
	At            time.Time     `json:"at"`
}

func (e CancellationDeclined) EventName() string     { return EventCancellationDeclined }
func (e CancellationDeclined) AggregateID() string   { return string(e.ReservationID) }
func (e CancellationDeclined) OccurredAt() time.Time { return e.At }

type ReservationCompleted struct {
	ReservationID ReservationID      `json:"reservation_id"`
	ListingID     listings.ListingID `json:"listing_id"`
	HostID        listings.HostID    `json:"host_id"`
	At            time.Time          `json:"at"`
}

func (e ReservationCompleted) EventName() string     { return EventCompleted }
func (e ReservationCompleted) AggregateID() string   { return string(e.ReservationID) }
func (e ReservationCompleted) OccurredAt() time.Time { return e.At }
