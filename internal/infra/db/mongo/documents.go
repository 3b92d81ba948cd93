package mongo

import (
	"time"

	domainavailability "staybook/internal/domain/availability"
	domainlistings "staybook/internal/domain/listings"
	domainreservation "staybook/internal/domain/reservation"
	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/money"
	domainwallet "staybook/internal/domain/wallet"
)

type moneyDocument struct {
	Amount   int64  `bson:"amount"`
	Currency string `bson:"currency"`
}

func newMoneyDocument(m money.Money) moneyDocument {
	return moneyDocument{Amount: m.Amount, Currency: m.Currency}
}

func (d moneyDocument) toMoney() money.Money {
	return money.Money{Amount: d.Amount, Currency: d.Currency}
}

// rangeDocument stores calendar days as unix milliseconds at 00:00 UTC.
type rangeDocument struct {
	CheckIn  int64 `bson:"check_in"`
	CheckOut int64 `bson:"check_out"`
}

func newRangeDocument(dr daterange.DateRange) rangeDocument {
	return rangeDocument{CheckIn: dayToTimestamp(dr.CheckIn), CheckOut: dayToTimestamp(dr.CheckOut)}
}

func (d rangeDocument) toRange() daterange.DateRange {
	return daterange.DateRange{CheckIn: timestampToTime(d.CheckIn), CheckOut: timestampToTime(d.CheckOut)}
}

func dayToTimestamp(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func timestampToTime(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

type listingDocument struct {
	ID              string        `bson:"_id"`
	HostID          string        `bson:"host_id"`
	HostName        string        `bson:"host_name"`
	Title           string        `bson:"title"`
	Category        string        `bson:"category"`
	Price           moneyDocument `bson:"price"`
	PriceType       string        `bson:"price_type"`
	PromoCode       string        `bson:"promo_code,omitempty"`
	DiscountPercent int           `bson:"discount_percent"`
	BlockedDates    []int64       `bson:"blocked_dates"`
	GuestsLimit     int           `bson:"guests_limit"`
	Status          string        `bson:"status"`
	CreatedAt       time.Time     `bson:"created_at"`
	UpdatedAt       time.Time     `bson:"updated_at"`
	Version         int64         `bson:"version"`
}

func newListingDocument(l *domainlistings.Listing) listingDocument {
	blocked := make([]int64, 0, len(l.BlockedDates))
	for _, d := range l.BlockedDates {
		blocked = append(blocked, dayToTimestamp(d))
	}
	return listingDocument{
		ID:              string(l.ID),
		HostID:          string(l.Host),
		HostName:        l.HostName,
		Title:           l.Title,
		Category:        string(l.Category),
		Price:           newMoneyDocument(l.Price),
		PriceType:       string(l.PriceType),
		PromoCode:       l.PromoCode,
		DiscountPercent: l.DiscountPercent,
		BlockedDates:    blocked,
		GuestsLimit:     l.GuestsLimit,
		Status:          string(l.Status),
		CreatedAt:       l.CreatedAt,
		UpdatedAt:       l.UpdatedAt,
		Version:         l.Version,
	}
}

func (d listingDocument) toAggregate() *domainlistings.Listing {
	blocked := make([]time.Time, 0, len(d.BlockedDates))
	for _, ms := range d.BlockedDates {
		blocked = append(blocked, timestampToTime(ms))
	}
	return &domainlistings.Listing{
		ID:              domainlistings.ListingID(d.ID),
		Host:            domainlistings.HostID(d.HostID),
		HostName:        d.HostName,
		Title:           d.Title,
		Category:        domainlistings.Category(d.Category),
		Price:           d.Price.toMoney(),
		PriceType:       domainlistings.PriceType(d.PriceType),
		PromoCode:       d.PromoCode,
		DiscountPercent: d.DiscountPercent,
		BlockedDates:    blocked,
		GuestsLimit:     d.GuestsLimit,
		Status:          domainlistings.ListingStatus(d.Status),
		CreatedAt:       d.CreatedAt.UTC(),
		UpdatedAt:       d.UpdatedAt.UTC(),
		Version:         d.Version,
	}
}

type blockDocument struct {
	Range     rangeDocument `bson:"range"`
	Reason    string        `bson:"reason"`
	Reference string        `bson:"reference"`
	CreatedAt time.Time     `bson:"created_at"`
}

type calendarDocument struct {
	ID      string          `bson:"_id"`
	Blocks  []blockDocument `bson:"blocks"`
	Version int64           `bson:"version"`
}

func newCalendarDocument(c *domainavailability.Calendar) calendarDocument {
	blocks := make([]blockDocument, 0, len(c.Blocks))
	for _, b := range c.Blocks {
		blocks = append(blocks, blockDocument{
			Range:     newRangeDocument(b.Range),
			Reason:    string(b.Reason),
			Reference: b.Reference,
			CreatedAt: b.CreatedAt,
		})
	}
	return calendarDocument{ID: string(c.ListingID), Blocks: blocks, Version: c.Version}
}

func (d calendarDocument) toAggregate() *domainavailability.Calendar {
	cal := domainavailability.NewCalendar(domainlistings.ListingID(d.ID))
	cal.Version = d.Version
	for _, b := range d.Blocks {
		cal.Blocks = append(cal.Blocks, domainavailability.Block{
			Range:     b.Range.toRange(),
			Reason:    domainavailability.BlockReason(b.Reason),
			Reference: b.Reference,
			CreatedAt: b.CreatedAt.UTC(),
		})
	}
	return cal
}

type paymentDocument struct {
	ID     string `bson:"id"`
	Status string `bson:"status"`
}

type reservationDocument struct {
	ID              string          `bson:"_id"`
	ListingID       string          `bson:"listing_id"`
	ListingTitle    string          `bson:"listing_title"`
	Category        string          `bson:"category"`
	HostID          string          `bson:"host_id"`
	HostName        string          `bson:"host_name"`
	GuestID         string          `bson:"guest_id"`
	GuestName       string          `bson:"guest_name"`
	GuestEmail      string          `bson:"guest_email"`
	Range           rangeDocument   `bson:"range"`
	Guests          int             `bson:"guests"`
	Subtotal        moneyDocument   `bson:"subtotal"`
	Discount        moneyDocument   `bson:"discount"`
	DiscountPercent int             `bson:"discount_percent"`
	Total           moneyDocument   `bson:"total"`
	Payment         paymentDocument `bson:"payment"`
	Status          string          `bson:"status"`
	CancelReason    string          `bson:"cancel_reason,omitempty"`
	CreatedAt       time.Time       `bson:"created_at"`
	UpdatedAt       time.Time       `bson:"updated_at"`
	Version         int64           `bson:"version"`
}

func newReservationDocument(r *domainreservation.Reservation) reservationDocument {
	return reservationDocument{
		ID:              string(r.ID),
		ListingID:       string(r.ListingID),
		ListingTitle:    r.ListingTitle,
		Category:        string(r.Category),
		HostID:          string(r.HostID),
		HostName:        r.HostName,
		GuestID:         string(r.GuestID),
		GuestName:       r.Guest.Name,
		GuestEmail:      r.Guest.Email,
		Range:           newRangeDocument(r.Range),
		Guests:          r.Guests,
		Subtotal:        newMoneyDocument(r.Subtotal),
		Discount:        newMoneyDocument(r.Discount),
		DiscountPercent: r.DiscountPercent,
		Total:           newMoneyDocument(r.Total),
		Payment:         paymentDocument{ID: r.Payment.ID, Status: r.Payment.Status},
		Status:          string(r.Status),
		CancelReason:    r.CancelReason,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
		Version:         r.Version,
	}
}

func (d reservationDocument) toAggregate() *domainreservation.Reservation {
	return &domainreservation.Reservation{
		ID:              domainreservation.ReservationID(d.ID),
		ListingID:       domainlistings.ListingID(d.ListingID),
		ListingTitle:    d.ListingTitle,
		Category:        domainlistings.Category(d.Category),
		HostID:          domainlistings.HostID(d.HostID),
		HostName:        d.HostName,
		GuestID:         domainreservation.GuestID(d.GuestID),
		Guest:           domainreservation.Contact{Name: d.GuestName, Email: d.GuestEmail},
		Range:           d.Range.toRange(),
		Guests:          d.Guests,
		Subtotal:        d.Subtotal.toMoney(),
		Discount:        d.Discount.toMoney(),
		DiscountPercent: d.DiscountPercent,
		Total:           d.Total.toMoney(),
		Payment:         domainreservation.Payment{ID: d.Payment.ID, Status: d.Payment.Status},
		Status:          domainreservation.Status(d.Status),
		CancelReason:    d.CancelReason,
		CreatedAt:       d.CreatedAt.UTC(),
		UpdatedAt:       d.UpdatedAt.UTC(),
		Version:         d.Version,
	}
}

type entryDocument struct {
	ID        string        `bson:"_id"`
	HostID    string        `bson:"host_id"`
	Kind      string        `bson:"kind"`
	Amount    moneyDocument `bson:"amount"`
	Reference string        `bson:"reference"`
	CreatedAt time.Time     `bson:"created_at"`
}

func newEntryDocument(e domainwallet.Entry) entryDocument {
	return entryDocument{
		ID:        string(e.ID),
		HostID:    string(e.HostID),
		Kind:      string(e.Kind),
		Amount:    newMoneyDocument(e.Amount),
		Reference: e.Reference,
		CreatedAt: e.CreatedAt,
	}
}

func (d entryDocument) toEntry() domainwallet.Entry {
	return domainwallet.Entry{
		ID:        domainwallet.EntryID(d.ID),
		HostID:    domainlistings.HostID(d.HostID),
		Kind:      domainwallet.EntryKind(d.Kind),
		Amount:    d.Amount.toMoney(),
		Reference: d.Reference,
		CreatedAt: d.CreatedAt.UTC(),
	}
}

type cashoutDocument struct {
	ID          string        `bson:"_id"`
	HostID      string        `bson:"host_id"`
	Amount      moneyDocument `bson:"amount"`
	PayoutEmail string        `bson:"payout_email"`
	Status      string        `bson:"status"`
	RequestedAt time.Time     `bson:"requested_at"`
	ResolvedAt  time.Time     `bson:"resolved_at"`
	ResolvedBy  string        `bson:"resolved_by,omitempty"`
	Version     int64         `bson:"version"`
}

func newCashoutDocument(c *domainwallet.Cashout) cashoutDocument {
	return cashoutDocument{
		ID:          string(c.ID),
		HostID:      string(c.HostID),
		Amount:      newMoneyDocument(c.Amount),
		PayoutEmail: c.PayoutEmail,
		Status:      string(c.Status),
		RequestedAt: c.RequestedAt,
		ResolvedAt:  c.ResolvedAt,
		ResolvedBy:  c.ResolvedBy,
		Version:     c.Version,
	}
}

func (d cashoutDocument) toAggregate() *domainwallet.Cashout {
	c := &domainwallet.Cashout{
		ID:          domainwallet.CashoutID(d.ID),
		HostID:      domainlistings.HostID(d.HostID),
		Amount:      d.Amount.toMoney(),
		PayoutEmail: d.PayoutEmail,
		Status:      domainwallet.CashoutStatus(d.Status),
		RequestedAt: d.RequestedAt.UTC(),
		ResolvedBy:  d.ResolvedBy,
		Version:     d.Version,
	}
	if !d.ResolvedAt.IsZero() {
		c.ResolvedAt = d.ResolvedAt.UTC()
	}
	return c
}

// walletDocument carries only the per-host version cashout requests bump.
type walletDocument struct {
	ID      string `bson:"_id"`
	Version int64  `bson:"version"`
}
