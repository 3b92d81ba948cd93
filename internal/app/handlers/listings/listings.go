package listings

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"staybook/internal/app/auth"
	"staybook/internal/app/commands"
	"staybook/internal/app/dto"
	"staybook/internal/app/handlers/support"
	"staybook/internal/app/outbox"
	"staybook/internal/app/policies"
	domainlistings "staybook/internal/domain/listings"
)

const (
	setBlockedDatesKey = "listings.set_blocked_dates"
	setStatusKey       = "listings.set_status"
)

var (
	ErrListingRequired = errors.New("listings: listing id is required")
	ErrHostRequired    = errors.New("listings: host id is required")
)

// SetBlockedDatesCommand replaces the days a host keeps closed. The same days
// go onto the listing's calendar, so a confirmation racing the change
// collides on the calendar version.
type SetBlockedDatesCommand struct {
	ListingID string
	HostID    string
	Dates     []time.Time
}

func (c SetBlockedDatesCommand) Key() string { return setBlockedDatesKey }

func (c SetBlockedDatesCommand) RequiredRoles() []auth.Role { return []auth.Role{auth.RoleHost} }

func (c SetBlockedDatesCommand) Validate() error {
	return validateIdentity(c.ListingID, c.HostID)
}

type SetBlockedDatesHandler struct {
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
	Clock   policies.Clock
	Logger  *slog.Logger
}

func (h *SetBlockedDatesHandler) Handle(ctx context.Context, cmd SetBlockedDatesCommand) (dto.Listing, error) {
	unit, err := support.RequireUnit(ctx)
	if err != nil {
		return dto.Listing{}, err
	}
	now := policies.Now(h.Clock)
	listing, err := unit.Listings().ByID(ctx, domainlistings.ListingID(cmd.ListingID))
	if err != nil {
		return dto.Listing{}, err
	}
	if err := listing.SetBlockedDates(domainlistings.HostID(cmd.HostID), cmd.Dates, now); err != nil {
		return dto.Listing{}, err
	}
	calendar, err := unit.Calendars().Calendar(ctx, listing.ID)
	if err != nil {
		return dto.Listing{}, err
	}
	if err := calendar.SetHostBlocks(listing.BlockedDates, now); err != nil {
		return dto.Listing{}, err
	}
	if err := unit.Listings().Save(ctx, listing); err != nil {
		return dto.Listing{}, err
	}
	if err := unit.Calendars().Save(ctx, calendar); err != nil {
		return dto.Listing{}, err
	}
	if err := outbox.Stage(ctx, h.Outbox, h.Encoder, listing, calendar); err != nil {
		return dto.Listing{}, err
	}
	logger(h.Logger).Info("blocked dates set", "listing_id", listing.ID, "days", len(listing.BlockedDates))
	return dto.MapListing(listing), nil
}

// SetStatusCommand opens or closes a listing for bookings.
type SetStatusCommand struct {
	ListingID string
	HostID    string
	Active    bool
}

func (c SetStatusCommand) Key() string { return setStatusKey }

func (c SetStatusCommand) RequiredRoles() []auth.Role { return []auth.Role{auth.RoleHost} }

func (c SetStatusCommand) Validate() error {
	return validateIdentity(c.ListingID, c.HostID)
}

type SetStatusHandler struct {
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
	Clock   policies.Clock
	Logger  *slog.Logger
}

func (h *SetStatusHandler) Handle(ctx context.Context, cmd SetStatusCommand) (dto.Listing, error) {
	unit, err := support.RequireUnit(ctx)
	if err != nil {
		return dto.Listing{}, err
	}
	listing, err := unit.Listings().ByID(ctx, domainlistings.ListingID(cmd.ListingID))
	if err != nil {
		return dto.Listing{}, err
	}
	host := domainlistings.HostID(cmd.HostID)
	now := policies.Now(h.Clock)
	if cmd.Active {
		err = listing.Activate(host, now)
	} else {
		err = listing.Deactivate(host, now)
	}
	if err != nil {
		return dto.Listing{}, err
	}
	if err := unit.Listings().Save(ctx, listing); err != nil {
		return dto.Listing{}, err
	}
	if err := outbox.Stage(ctx, h.Outbox, h.Encoder, listing); err != nil {
		return dto.Listing{}, err
	}
	logger(h.Logger).Info("listing status set", "listing_id", listing.ID, "status", listing.Status)
	return dto.MapListing(listing), nil
}

func validateIdentity(listingID, hostID string) error {
	if strings.TrimSpace(listingID) == "" {
		return ErrListingRequired
	}
	if strings.TrimSpace(hostID) == "" {
		return ErrHostRequired
	}
	return nil
}

func logger(l *slog.Logger) *slog.Logger {
	if l != nil {
		return l
	}
	return slog.Default()
}

var (
	_ commands.Handler[SetBlockedDatesCommand, dto.Listing] = (*SetBlockedDatesHandler)(nil)
	_ commands.Handler[SetStatusCommand, dto.Listing]       = (*SetStatusHandler)(nil)
)
