package wallet

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"staybook/internal/domain/listings"
	"staybook/internal/domain/shared/money"
)

var (
	ErrCashoutNotFound     = errors.New("wallet: cashout not found")
	ErrInsufficientBalance = errors.New("wallet: amount exceeds available balance")
	ErrPayoutEmail         = errors.New("wallet: payout email is invalid")
	ErrCashoutResolved     = errors.New("wallet: cashout already resolved")
	ErrAdminRequired       = errors.New("wallet: admin is required")
)

type CashoutID string

type CashoutStatus string

const (
	CashoutPending  CashoutStatus = "PENDING"
	CashoutApproved CashoutStatus = "APPROVED"
	CashoutDeclined CashoutStatus = "DECLINED"
)

type Cashout struct {
	ID          CashoutID
	HostID      listings.HostID
	Amount      money.Money
	PayoutEmail string
	Status      CashoutStatus
	RequestedAt time.Time
	ResolvedAt  time.Time
	ResolvedBy  string
	Version     int64
}

type CashoutRepository interface {
	ByID(ctx context.Context, id CashoutID) (*Cashout, error)
	Save(ctx context.Context, cashout *Cashout) error
	ListByHost(ctx context.Context, host listings.HostID) ([]*Cashout, error)
	// LockWallet bumps the host's wallet version inside the unit. Of two units
	// that read the same balance, only one can commit a cashout.
	LockWallet(ctx context.Context, host listings.HostID) error
}

// Summary is the host-facing view of the wallet.
type Summary struct {
	Balance   money.Money
	Pending   money.Money
	Available money.Money
}

// Summarize computes balance, pending cashouts and what is left to withdraw.
func Summarize(entries []Entry, cashouts []*Cashout, currency string) (Summary, error) {
	balance, err := Balance(entries, currency)
	if err != nil {
		return Summary{}, err
	}
	pending := money.Zero(currency)
	for _, c := range cashouts {
		if c == nil || c.Status != CashoutPending {
			continue
		}
		if pending, err = pending.Add(c.Amount); err != nil {
			return Summary{}, err
		}
	}
	available, err := balance.Sub(pending)
	if err != nil {
		return Summary{}, err
	}
	return Summary{Balance: balance, Pending: pending, Available: available}, nil
}

// RequestCashout opens a pending withdrawal against the available balance.
func RequestCashout(id CashoutID, host listings.HostID, amount money.Money, payoutEmail string, available money.Money, now time.Time) (*Cashout, error) {
	if host == "" {
		return nil, listings.ErrHostRequired
	}
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	payoutEmail = strings.TrimSpace(payoutEmail)
	if _, err := mail.ParseAddress(payoutEmail); err != nil {
		return nil, ErrPayoutEmail
	}
	if amount.Currency != available.Currency || amount.Amount > available.Amount {
		return nil, ErrInsufficientBalance
	}
	return &Cashout{
		ID:          id,
		HostID:      host,
		Amount:      amount,
		PayoutEmail: payoutEmail,
		Status:      CashoutPending,
		RequestedAt: now.UTC(),
	}, nil
}

func (c *Cashout) Approve(admin string, now time.Time) error {
	return c.resolve(CashoutApproved, admin, now)
}

func (c *Cashout) Decline(admin string, now time.Time) error {
	return c.resolve(CashoutDeclined, admin, now)
}

func (c *Cashout) resolve(status CashoutStatus, admin string, now time.Time) error {
	if strings.TrimSpace(admin) == "" {
		return ErrAdminRequired
	}
	if c.Status != CashoutPending {
		return ErrCashoutResolved
	}
	c.Status = status
	c.ResolvedBy = admin
	c.ResolvedAt = now.UTC()
	return nil
}
