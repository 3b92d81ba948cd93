package listings

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/events"
	"staybook/internal/domain/shared/money"
)

var (
	ErrNotFound           = errors.New("listings: not found")
	ErrIDRequired         = errors.New("listings: id is required")
	ErrHostRequired       = errors.New("listings: host is required")
	ErrTitleRequired      = errors.New("listings: title is required")
	ErrGuestsLimit        = errors.New("listings: guests limit must be at least 1")
	ErrPrice              = errors.New("listings: price must be non-negative")
	ErrDiscountPercent    = errors.New("listings: discount percent must be between 0 and 100")
	ErrInvalidState       = errors.New("listings: invalid state transition")
	ErrNotOwner           = errors.New("listings: listing is owned by another host")
	ErrListingNotBookable = errors.New("listings: listing is not accepting bookings")
	ErrPromoCodeMismatch  = errors.New("listings: promo code does not match")
)

type ListingID string
type HostID string

type ListingStatus string

const (
	StatusDraft    ListingStatus = "DRAFT"
	StatusActive   ListingStatus = "ACTIVE"
	StatusInactive ListingStatus = "INACTIVE"
)

type PriceType string

const (
	PricePerNight   PriceType = "per_night"
	PricePerSession PriceType = "per_session"
)

type Listing struct {
	ID              ListingID
	Host            HostID
	HostName        string
	Title           string
	Category        Category
	Price           money.Money
	PriceType       PriceType
	PromoCode       string
	DiscountPercent int
	BlockedDates    []time.Time
	GuestsLimit     int
	Status          ListingStatus
	Version         int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
	events.EventRecorder
}

type Repository interface {
	ByID(ctx context.Context, id ListingID) (*Listing, error)
	Save(ctx context.Context, listing *Listing) error
	ListByHost(ctx context.Context, host HostID) ([]*Listing, error)
}

type CreateParams struct {
	ID              ListingID
	Host            HostID
	HostName        string
	Title           string
	Category        Category
	Price           money.Money
	PromoCode       string
	DiscountPercent int
	BlockedDates    []time.Time
	GuestsLimit     int
	Now             time.Time
}

func NewListing(params CreateParams) (*Listing, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return nil, ErrIDRequired
	}
	if strings.TrimSpace(string(params.Host)) == "" {
		return nil, ErrHostRequired
	}
	if strings.TrimSpace(params.Title) == "" {
		return nil, ErrTitleRequired
	}
	variant, err := VariantFor(params.Category)
	if err != nil {
		return nil, err
	}
	if params.GuestsLimit < 1 {
		return nil, ErrGuestsLimit
	}
	if params.Price.Amount < 0 || params.Price.Currency == "" {
		return nil, ErrPrice
	}
	if params.DiscountPercent < 0 || params.DiscountPercent > 100 {
		return nil, ErrDiscountPercent
	}
	now := params.Now.UTC()
	l := &Listing{
		ID:              params.ID,
		Host:            params.Host,
		HostName:        strings.TrimSpace(params.HostName),
		Title:           strings.TrimSpace(params.Title),
		Category:        variant.Category(),
		Price:           params.Price,
		PriceType:       variant.PriceType(),
		PromoCode:       strings.TrimSpace(params.PromoCode),
		DiscountPercent: params.DiscountPercent,
		BlockedDates:    normalizeDays(params.BlockedDates),
		GuestsLimit:     params.GuestsLimit,
		Status:          StatusDraft,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	l.Record(ListingCreated{ListingID: l.ID, HostID: l.Host, Category: l.Category, At: now})
	return l, nil
}

// Variant returns the category behaviour for the listing.
func (l *Listing) Variant() Variant {
	v, err := VariantFor(l.Category)
	if err != nil {
		return homes{}
	}
	return v
}

func (l *Listing) OwnedBy(host HostID) bool {
	return host != "" && l.Host == host
}

func (l *Listing) Bookable() error {
	if l.Status != StatusActive {
		return ErrListingNotBookable
	}
	return nil
}

func (l *Listing) Activate(host HostID, now time.Time) error {
	if !l.OwnedBy(host) {
		return ErrNotOwner
	}
	if l.Status == StatusActive {
		return nil
	}
	l.Status = StatusActive
	l.touch(now)
	l.Record(ListingStatusChanged{ListingID: l.ID, Status: l.Status, At: l.UpdatedAt})
	return nil
}

func (l *Listing) Deactivate(host HostID, now time.Time) error {
	if !l.OwnedBy(host) {
		return ErrNotOwner
	}
	if l.Status != StatusActive {
		return ErrInvalidState
	}
	l.Status = StatusInactive
	l.touch(now)
	l.Record(ListingStatusChanged{ListingID: l.ID, Status: l.Status, At: l.UpdatedAt})
	return nil
}

// SetBlockedDates replaces the host-managed list of unavailable days.
func (l *Listing) SetBlockedDates(host HostID, dates []time.Time, now time.Time) error {
	if !l.OwnedBy(host) {
		return ErrNotOwner
	}
	l.BlockedDates = normalizeDays(dates)
	l.touch(now)
	l.Record(ListingUpdated{ListingID: l.ID, At: l.UpdatedAt})
	return nil
}

// ValidatePromo returns the discount percent a promo code grants. An empty
// code grants nothing; a code is compared case-insensitively with the
// listing's stored code.
func (l *Listing) ValidatePromo(code string) (int, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return 0, nil
	}
	if l.PromoCode == "" || !strings.EqualFold(code, l.PromoCode) {
		return 0, ErrPromoCodeMismatch
	}
	return l.DiscountPercent, nil
}

func (l *Listing) touch(now time.Time) {
	if now.IsZero() {
		now = time.Now()
	}
	l.UpdatedAt = now.UTC()
}

func normalizeDays(dates []time.Time) []time.Time {
	seen := make(map[time.Time]struct{}, len(dates))
	out := make([]time.Time, 0, len(dates))
	for _, d := range dates {
		day := daterange.Day(d)
		if day.IsZero() {
			continue
		}
		if _, ok := seen[day]; ok {
			continue
		}
		seen[day] = struct{}{}
		out = append(out, day)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}
