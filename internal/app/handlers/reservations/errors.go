package reservations

import (
	"errors"
	"fmt"
	"log/slog"

	"staybook/internal/domain/reservation"
)

var (
	ErrDatesUnavailable    = errors.New("reservations: selected dates are unavailable")
	ErrCaptureMissing      = errors.New("reservations: capture id and status are required")
	ErrCaptureNotAccepted  = errors.New("reservations: payment capture was not successful")
	ErrCaptureUnreconciled = errors.New("reservations: payment captured but reservation not recorded")
	ErrCheckInPast         = errors.New("reservations: check-in date is in the past")
	ErrCheckInRequired     = errors.New("reservations: check-in date is required")
	ErrGuestsLimit         = errors.New("reservations: guest count exceeds the listing limit")
	ErrInvalidGuests       = errors.New("reservations: guest count must be at least 1")
	ErrIdentityRequired    = errors.New("reservations: caller identity is required")
	ErrReservationRequired = errors.New("reservations: reservation id is required")
	ErrListingRequired     = errors.New("reservations: listing id is required")
	ErrInvalidStatusFilter = errors.New("reservations: unknown status filter")
	ErrHoldsDisabled       = errors.New("reservations: checkout holds are disabled")
)

// ErrCaptureClaimed hides a reservation paid by another guest behind not-found.
var ErrCaptureClaimed = fmt.Errorf("reservations: capture belongs to another guest: %w", reservation.ErrNotFound)

// Metrics is the subset of service metrics the reservation use cases report.
type Metrics interface {
	ReservationConfirmed(category string)
	OverbookingPrevented()
	StatusChanged(to string)
}

type noopMetrics struct{}

func (noopMetrics) ReservationConfirmed(string) {}
func (noopMetrics) OverbookingPrevented()       {}
func (noopMetrics) StatusChanged(string)        {}

func metricsOrNoop(m Metrics) Metrics {
	if m == nil {
		return noopMetrics{}
	}
	return m
}

func loggerOrDefault(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}
