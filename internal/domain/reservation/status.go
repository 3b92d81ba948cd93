package reservation

import (
	"errors"

	"staybook/internal/domain/availability"
)

var (
	ErrInvalidTransition = errors.New("reservation: invalid status transition")
	ErrActorNotAllowed   = errors.New("reservation: actor may not perform this transition")
)

type Status string

const (
	StatusPending               Status = "PENDING"
	StatusConfirmed             Status = "CONFIRMED"
	StatusCompleted             Status = "COMPLETED"
	StatusCancelled             Status = "CANCELLED"
	StatusCancellationRequested Status = "CANCELLATION_REQUESTED"
)

func ParseStatus(raw string) (Status, bool) {
	switch s := Status(raw); s {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled, StatusCancellationRequested:
		return s, true
	default:
		return "", false
	}
}

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

type Actor string

const (
	ActorGuest  Actor = "guest"
	ActorHost   Actor = "host"
	ActorSystem Actor = "system"
	ActorAdmin  Actor = "admin"
)

type transition struct {
	from Status
	to   Status
}

// transitions maps every legal status change to the only actor allowed to
// perform it. The empty from-status is creation.
var transitions = map[transition]Actor{
	{"", StatusConfirmed}:                          ActorSystem,
	{StatusPending, StatusConfirmed}:               ActorSystem,
	{StatusConfirmed, StatusCancellationRequested}: ActorGuest,
	{StatusCancellationRequested, StatusCancelled}: ActorHost,
	{StatusCancellationRequested, StatusConfirmed}: ActorHost,
	{StatusConfirmed, StatusCompleted}:             ActorSystem,
}

// CanTransition checks the transition table.
func CanTransition(from, to Status, actor Actor) error {
	allowed, ok := transitions[transition{from: from, to: to}]
	if !ok {
		return ErrInvalidTransition
	}
	if allowed != actor {
		return ErrActorNotAllowed
	}
	return nil
}

// HoldStatus is the occupancy status reported for checkout holds.
const HoldStatus = "HOLD"

// DefaultOccupancy treats confirmed, completed and pending-cancellation
// reservations as occupying, along with live checkout holds.
var DefaultOccupancy = availability.NewOccupancyPolicy(
	string(StatusConfirmed),
	string(StatusCompleted),
	string(StatusCancellationRequested),
	HoldStatus,
)
