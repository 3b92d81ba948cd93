package reservations

import (
	"context"
	"sort"
	"strings"

	"staybook/internal/app/auth"
	"staybook/internal/app/dto"
	"staybook/internal/app/handlers/support"
	"staybook/internal/app/queries"
	"staybook/internal/app/uow"
	domainlistings "staybook/internal/domain/listings"
	"staybook/internal/domain/reservation"
)

const (
	listGuestKey = "reservations.list_guest"
	listHostKey  = "reservations.list_host"
)

type ListGuestReservationsQuery struct {
	GuestID string
}

func (q ListGuestReservationsQuery) Key() string { return listGuestKey }

func (q ListGuestReservationsQuery) RequiredRoles() []auth.Role { return []auth.Role{auth.RoleGuest} }

func (q ListGuestReservationsQuery) Validate() error {
	if strings.TrimSpace(q.GuestID) == "" {
		return ErrIdentityRequired
	}
	return nil
}

type ListGuestReservationsHandler struct {
	UoWFactory uow.UoWFactory
}

// Handle lists the guest's reservations, newest first. Reading never changes
// a reservation's status; completion is the reconcile job's work.
func (h *ListGuestReservationsHandler) Handle(ctx context.Context, q ListGuestReservationsQuery) (dto.ReservationCollection, error) {
	unit, execCtx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.ReservationCollection{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	items, err := unit.Reservations().ListByGuest(execCtx, reservation.GuestID(q.GuestID))
	if err != nil {
		return dto.ReservationCollection{}, err
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].CreatedAt.After(items[j].CreatedAt) })
	return dto.MapReservations(items), nil
}

// ListHostReservationsQuery filters by Status; "" or "ALL" returns everything.
type ListHostReservationsQuery struct {
	HostID string
	Status string
}

func (q ListHostReservationsQuery) Key() string { return listHostKey }

func (q ListHostReservationsQuery) RequiredRoles() []auth.Role { return []auth.Role{auth.RoleHost} }

func (q ListHostReservationsQuery) Validate() error {
	if strings.TrimSpace(q.HostID) == "" {
		return ErrIdentityRequired
	}
	_, err := q.statusFilter()
	return err
}

func (q ListHostReservationsQuery) statusFilter() (reservation.Status, error) {
	raw := strings.TrimSpace(q.Status)
	if raw == "" || strings.EqualFold(raw, "ALL") {
		return "", nil
	}
	status, ok := reservation.ParseStatus(strings.ToUpper(raw))
	if !ok {
		return "", ErrInvalidStatusFilter
	}
	return status, nil
}

type ListHostReservationsHandler struct {
	UoWFactory uow.UoWFactory
}

// Handle lists reservations across the host's listings by check-in date.
func (h *ListHostReservationsHandler) Handle(ctx context.Context, q ListHostReservationsQuery) (dto.ReservationCollection, error) {
	status, err := q.statusFilter()
	if err != nil {
		return dto.ReservationCollection{}, err
	}
	unit, execCtx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.ReservationCollection{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	items, err := unit.Reservations().ListByHost(execCtx, domainlistings.HostID(q.HostID), status)
	if err != nil {
		return dto.ReservationCollection{}, err
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].Range.CheckIn.Before(items[j].Range.CheckIn) })
	return dto.MapReservations(items), nil
}

var (
	_ queries.Handler[ListGuestReservationsQuery, dto.ReservationCollection] = (*ListGuestReservationsHandler)(nil)
	_ queries.Handler[ListHostReservationsQuery, dto.ReservationCollection]  = (*ListHostReservationsHandler)(nil)
)
