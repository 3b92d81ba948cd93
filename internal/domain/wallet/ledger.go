package wallet

import (
	"context"
	"errors"
	"strings"
	"time"

	"staybook/internal/domain/listings"
	"staybook/internal/domain/shared/money"
)

var (
	ErrDuplicateEntry  = errors.New("wallet: entry already recorded for reference")
	ErrInvalidAmount   = errors.New("wallet: amount must be positive")
	ErrReferenceNeeded = errors.New("wallet: entry reference is required")
)

type EntryID string

type EntryKind string

const (
	KindBookingCredit EntryKind = "booking_credit"
	KindCashoutDebit  EntryKind = "cashout_debit"
)

// Entry is one signed line of a host's ledger. Entries are never updated.
type Entry struct {
	ID        EntryID
	HostID    listings.HostID
	Kind      EntryKind
	Amount    money.Money
	Reference string
	CreatedAt time.Time
}

// Ledger is append-only. Append must reject a second entry with the same
// kind and reference with ErrDuplicateEntry.
type Ledger interface {
	Append(ctx context.Context, entry Entry) error
	Entries(ctx context.Context, host listings.HostID) ([]Entry, error)
}

// NewBookingCredit credits the host with a reservation total.
func NewBookingCredit(id EntryID, host listings.HostID, reservationID string, total money.Money, now time.Time) (Entry, error) {
	if !total.IsPositive() {
		return Entry{}, ErrInvalidAmount
	}
	return newEntry(id, host, KindBookingCredit, total, reservationID, now)
}

// NewCashoutDebit records an approved cashout as a negative amount.
func NewCashoutDebit(id EntryID, host listings.HostID, cashoutID string, amount money.Money, now time.Time) (Entry, error) {
	if !amount.IsPositive() {
		return Entry{}, ErrInvalidAmount
	}
	return newEntry(id, host, KindCashoutDebit, amount.Neg(), cashoutID, now)
}

func newEntry(id EntryID, host listings.HostID, kind EntryKind, amount money.Money, reference string, now time.Time) (Entry, error) {
	if strings.TrimSpace(reference) == "" {
		return Entry{}, ErrReferenceNeeded
	}
	if host == "" {
		return Entry{}, listings.ErrHostRequired
	}
	return Entry{ID: id, HostID: host, Kind: kind, Amount: amount, Reference: reference, CreatedAt: now.UTC()}, nil
}

// Balance folds the entries into a running total in currency.
func Balance(entries []Entry, currency string) (money.Money, error) {
	total := money.Zero(currency)
	for _, e := range entries {
		next, err := total.Add(e.Amount)
		if err != nil {
			return money.Money{}, err
		}
		total = next
	}
	return total, nil
}
