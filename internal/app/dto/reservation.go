package dto

import (
	"time"

	"staybook/internal/domain/reservation"
	"staybook/internal/domain/shared/daterange"
)

type Reservation struct {
	ID              string    `json:"id"`
	ListingID       string    `json:"listing_id"`
	ListingTitle    string    `json:"listing_title"`
	Category        string    `json:"category"`
	HostID          string    `json:"host_id"`
	GuestID         string    `json:"guest_id"`
	CheckIn         string    `json:"check_in"`
	CheckOut        string    `json:"check_out"`
	Guests          int       `json:"guests"`
	Subtotal        MoneyDTO  `json:"subtotal"`
	DiscountPercent int       `json:"discount_percent"`
	Discount        MoneyDTO  `json:"discount"`
	Total           MoneyDTO  `json:"total"`
	PaymentID       string    `json:"payment_id"`
	PaymentStatus   string    `json:"payment_status"`
	Status          string    `json:"status"`
	CancelReason    string    `json:"cancel_reason,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type ReservationCollection struct {
	Items []Reservation `json:"items"`
}

type ReconcileResult struct {
	Completed []string `json:"completed"`
	Failed    []string `json:"failed,omitempty"`
}

func MapReservation(r *reservation.Reservation) Reservation {
	if r == nil {
		return Reservation{}
	}
	return Reservation{
		ID:              string(r.ID),
		ListingID:       string(r.ListingID),
		ListingTitle:    r.ListingTitle,
		Category:        string(r.Category),
		HostID:          string(r.HostID),
		GuestID:         string(r.GuestID),
		CheckIn:         r.Range.CheckIn.Format(daterange.DayLayout),
		CheckOut:        r.Range.CheckOut.Format(daterange.DayLayout),
		Guests:          r.Guests,
		Subtotal:        MapMoney(r.Subtotal),
		DiscountPercent: r.DiscountPercent,
		Discount:        MapMoney(r.Discount),
		Total:           MapMoney(r.Total),
		PaymentID:       r.Payment.ID,
		PaymentStatus:   r.Payment.Status,
		Status:          string(r.Status),
		CancelReason:    r.CancelReason,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

func MapReservations(items []*reservation.Reservation) ReservationCollection {
	out := make([]Reservation, 0, len(items))
	for _, r := range items {
		out = append(out, MapReservation(r))
	}
	return ReservationCollection{Items: out}
}
