package availability

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"staybook/internal/app/dto"
	"staybook/internal/app/handlers/support"
	"staybook/internal/app/policies"
	"staybook/internal/app/queries"
	"staybook/internal/app/uow"
	domainavailability "staybook/internal/domain/availability"
	domainlistings "staybook/internal/domain/listings"
	"staybook/internal/domain/reservation"
	"staybook/internal/domain/shared/daterange"
)

const getCalendarKey = "availability.calendar"

var ErrListingIDRequired = errors.New("availability: listing id is required")

type GetCalendarQuery struct {
	ListingID string
	// From defaults to today.
	From time.Time
	// GuestID, when set, keeps the guest's own hold from blocking the view.
	GuestID string
}

func (q GetCalendarQuery) Key() string { return getCalendarKey }

func (q GetCalendarQuery) Validate() error {
	if strings.TrimSpace(q.ListingID) == "" {
		return ErrListingIDRequired
	}
	return nil
}

type GetCalendarHandler struct {
	UoWFactory  uow.UoWFactory
	Holds       reservation.HoldStore
	Policy      domainavailability.OccupancyPolicy
	HorizonDays int
	Clock       policies.Clock
	Logger      *slog.Logger
}

func (h *GetCalendarHandler) Handle(ctx context.Context, q GetCalendarQuery) (dto.Calendar, error) {
	unit, execCtx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Calendar{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}

	listing, err := unit.Listings().ByID(execCtx, domainlistings.ListingID(q.ListingID))
	if err != nil {
		return dto.Calendar{}, err
	}
	now := policies.Now(h.Clock)
	from := q.From
	if from.IsZero() || daterange.Day(from).Before(daterange.Day(now)) {
		from = now
	}

	holds, err := support.LoadActiveHolds(execCtx, h.Holds, listing.ID, now)
	if err != nil {
		// a hold store outage must not hide the calendar
		h.logger().Warn("holds unavailable, calendar computed without them", "listing_id", listing.ID, "error", err)
		holds = nil
	}
	blocked, err := support.BlockedDates(execCtx, unit, listing, holds, reservation.GuestID(q.GuestID), h.Policy)
	if err != nil {
		return dto.Calendar{}, err
	}
	if len(blocked.Skipped) > 0 {
		h.logger().Warn("malformed reservations skipped", "listing_id", listing.ID, "references", blocked.Skipped)
	}

	variant := listing.Variant()
	out := dto.Calendar{
		ListingID:      string(listing.ID),
		Category:       string(listing.Category),
		DateShape:      string(variant.DateShape()),
		From:           daterange.Day(from).Format(daterange.DayLayout),
		BlockedDates:   dto.FormatDays(blocked.Days()),
		SkippedRecords: len(blocked.Skipped),
	}
	start, err := domainavailability.EarliestAvailableDate(blocked, from, domainavailability.ScanOptions{
		StartOffset: variant.FirstBookableOffset(),
		HorizonDays: h.HorizonDays,
		Fits: func(d time.Time) bool {
			return domainavailability.RangeAvailable(blocked, variant.DefaultRange(d))
		},
	})
	switch {
	case errors.Is(err, domainavailability.ErrNoAvailability):
		return out, nil
	case err != nil:
		return dto.Calendar{}, err
	}
	def := variant.DefaultRange(start)
	out.DefaultCheckIn = def.CheckIn.Format(daterange.DayLayout)
	out.DefaultCheckOut = def.CheckOut.Format(daterange.DayLayout)
	return out, nil
}

func (h *GetCalendarHandler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

var _ queries.Handler[GetCalendarQuery, dto.Calendar] = (*GetCalendarHandler)(nil)
