package dto

import (
	"time"

	"staybook/internal/domain/rewards"
	"staybook/internal/domain/wallet"
)

type LedgerEntry struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Amount    MoneyDTO  `json:"amount"`
	Reference string    `json:"reference"`
	CreatedAt time.Time `json:"created_at"`
}

type Cashout struct {
	ID          string     `json:"id"`
	HostID      string     `json:"host_id"`
	Amount      MoneyDTO   `json:"amount"`
	PayoutEmail string     `json:"payout_email"`
	Status      string     `json:"status"`
	RequestedAt time.Time  `json:"requested_at"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`
	ResolvedBy  string     `json:"resolved_by,omitempty"`
}

type Wallet struct {
	HostID    string        `json:"host_id"`
	Balance   MoneyDTO      `json:"balance"`
	Pending   MoneyDTO      `json:"pending"`
	Available MoneyDTO      `json:"available"`
	Entries   []LedgerEntry `json:"entries"`
	Cashouts  []Cashout     `json:"cashouts"`
}

type Standing struct {
	HostID       string `json:"host_id"`
	Points       int64  `json:"points"`
	Tier         string `json:"tier"`
	NextTier     string `json:"next_tier,omitempty"`
	PointsToNext int64  `json:"points_to_next,omitempty"`
}

func MapEntry(e wallet.Entry) LedgerEntry {
	return LedgerEntry{
		ID:        string(e.ID),
		Kind:      string(e.Kind),
		Amount:    MapMoney(e.Amount),
		Reference: e.Reference,
		CreatedAt: e.CreatedAt,
	}
}

func MapCashout(c *wallet.Cashout) Cashout {
	if c == nil {
		return Cashout{}
	}
	out := Cashout{
		ID:          string(c.ID),
		HostID:      string(c.HostID),
		Amount:      MapMoney(c.Amount),
		PayoutEmail: c.PayoutEmail,
		Status:      string(c.Status),
		RequestedAt: c.RequestedAt,
		ResolvedBy:  c.ResolvedBy,
	}
	if !c.ResolvedAt.IsZero() {
		resolved := c.ResolvedAt
		out.ResolvedAt = &resolved
	}
	return out
}

func MapStanding(s rewards.Standing) Standing {
	return Standing{
		HostID:       string(s.HostID),
		Points:       s.Points,
		Tier:         string(s.Tier),
		NextTier:     string(s.NextTier),
		PointsToNext: s.PointsToNext,
	}
}
