package wallet

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"staybook/internal/app/auth"
	"staybook/internal/app/commands"
	"staybook/internal/app/dto"
	"staybook/internal/app/handlers/support"
	"staybook/internal/app/policies"
	"staybook/internal/app/queries"
	"staybook/internal/app/uow"
	domainlistings "staybook/internal/domain/listings"
	"staybook/internal/domain/shared/money"
	domainwallet "staybook/internal/domain/wallet"
)

const (
	getWalletKey      = "wallet.get"
	requestCashoutKey = "wallet.request_cashout"
	resolveCashoutKey = "wallet.resolve_cashout"
)

var (
	ErrHostRequired    = errors.New("wallet: host id is required")
	ErrCashoutRequired = errors.New("wallet: cashout id is required")
	ErrAdminRequired   = errors.New("wallet: admin id is required")
)

type GetWalletQuery struct {
	HostID string
}

func (q GetWalletQuery) Key() string { return getWalletKey }

func (q GetWalletQuery) RequiredRoles() []auth.Role { return []auth.Role{auth.RoleHost} }

func (q GetWalletQuery) Validate() error {
	if strings.TrimSpace(q.HostID) == "" {
		return ErrHostRequired
	}
	return nil
}

type GetWalletHandler struct {
	UoWFactory uow.UoWFactory
	Currency   string
}

// Handle folds the host's ledger; nothing is cached on a balance field.
func (h *GetWalletHandler) Handle(ctx context.Context, q GetWalletQuery) (dto.Wallet, error) {
	unit, execCtx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Wallet{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	host := domainlistings.HostID(q.HostID)
	entries, err := unit.Ledger().Entries(execCtx, host)
	if err != nil {
		return dto.Wallet{}, err
	}
	cashouts, err := unit.Cashouts().ListByHost(execCtx, host)
	if err != nil {
		return dto.Wallet{}, err
	}
	summary, err := domainwallet.Summarize(entries, cashouts, h.Currency)
	if err != nil {
		return dto.Wallet{}, err
	}
	out := dto.Wallet{
		HostID:    q.HostID,
		Balance:   dto.MapMoney(summary.Balance),
		Pending:   dto.MapMoney(summary.Pending),
		Available: dto.MapMoney(summary.Available),
		Entries:   make([]dto.LedgerEntry, 0, len(entries)),
		Cashouts:  make([]dto.Cashout, 0, len(cashouts)),
	}
	for _, e := range entries {
		out.Entries = append(out.Entries, dto.MapEntry(e))
	}
	for _, c := range cashouts {
		out.Cashouts = append(out.Cashouts, dto.MapCashout(c))
	}
	return out, nil
}

type RequestCashoutCommand struct {
	HostID      string
	Amount      int64
	PayoutEmail string
}

func (c RequestCashoutCommand) Key() string { return requestCashoutKey }

func (c RequestCashoutCommand) RequiredRoles() []auth.Role { return []auth.Role{auth.RoleHost} }

func (c RequestCashoutCommand) Validate() error {
	if strings.TrimSpace(c.HostID) == "" {
		return ErrHostRequired
	}
	if c.Amount <= 0 {
		return domainwallet.ErrInvalidAmount
	}
	return nil
}

type RequestCashoutHandler struct {
	Currency string
	Clock    policies.Clock
	NewID    func() string
	Logger   *slog.Logger
}

func (h *RequestCashoutHandler) Handle(ctx context.Context, cmd RequestCashoutCommand) (dto.Cashout, error) {
	unit, err := support.RequireUnit(ctx)
	if err != nil {
		return dto.Cashout{}, err
	}
	host := domainlistings.HostID(cmd.HostID)
	if err := unit.Cashouts().LockWallet(ctx, host); err != nil {
		return dto.Cashout{}, err
	}
	entries, err := unit.Ledger().Entries(ctx, host)
	if err != nil {
		return dto.Cashout{}, err
	}
	existing, err := unit.Cashouts().ListByHost(ctx, host)
	if err != nil {
		return dto.Cashout{}, err
	}
	summary, err := domainwallet.Summarize(entries, existing, h.Currency)
	if err != nil {
		return dto.Cashout{}, err
	}
	amount, err := money.New(cmd.Amount, h.Currency)
	if err != nil {
		return dto.Cashout{}, err
	}
	cashout, err := domainwallet.RequestCashout(domainwallet.CashoutID(newID(h.NewID)), host, amount, cmd.PayoutEmail, summary.Available, policies.Now(h.Clock))
	if err != nil {
		return dto.Cashout{}, err
	}
	if err := unit.Cashouts().Save(ctx, cashout); err != nil {
		return dto.Cashout{}, err
	}
	logger(h.Logger).Info("cashout requested", "cashout_id", cashout.ID, "host_id", host, "amount", amount.Amount)
	return dto.MapCashout(cashout), nil
}

// ResolveCashoutCommand approves or declines a pending cashout. Approval
// writes the debit entry in the same unit of work.
type ResolveCashoutCommand struct {
	CashoutID string
	AdminID   string
	Approve   bool
}

func (c ResolveCashoutCommand) Key() string { return resolveCashoutKey }

func (c ResolveCashoutCommand) RequiredRoles() []auth.Role { return []auth.Role{auth.RoleAdmin} }

func (c ResolveCashoutCommand) Validate() error {
	if strings.TrimSpace(c.CashoutID) == "" {
		return ErrCashoutRequired
	}
	if strings.TrimSpace(c.AdminID) == "" {
		return ErrAdminRequired
	}
	return nil
}

type ResolveCashoutHandler struct {
	Clock  policies.Clock
	NewID  func() string
	Logger *slog.Logger
}

func (h *ResolveCashoutHandler) Handle(ctx context.Context, cmd ResolveCashoutCommand) (dto.Cashout, error) {
	unit, err := support.RequireUnit(ctx)
	if err != nil {
		return dto.Cashout{}, err
	}
	cashout, err := unit.Cashouts().ByID(ctx, domainwallet.CashoutID(cmd.CashoutID))
	if err != nil {
		return dto.Cashout{}, err
	}
	now := policies.Now(h.Clock)
	if !cmd.Approve {
		if err := cashout.Decline(cmd.AdminID, now); err != nil {
			return dto.Cashout{}, err
		}
	} else {
		if err := cashout.Approve(cmd.AdminID, now); err != nil {
			return dto.Cashout{}, err
		}
		debit, err := domainwallet.NewCashoutDebit(domainwallet.EntryID(newID(h.NewID)), cashout.HostID, string(cashout.ID), cashout.Amount, now)
		if err != nil {
			return dto.Cashout{}, err
		}
		if err := unit.Ledger().Append(ctx, debit); err != nil {
			return dto.Cashout{}, err
		}
	}
	if err := unit.Cashouts().Save(ctx, cashout); err != nil {
		return dto.Cashout{}, err
	}
	logger(h.Logger).Info("cashout resolved", "cashout_id", cashout.ID, "status", cashout.Status, "admin_id", cmd.AdminID)
	return dto.MapCashout(cashout), nil
}

func newID(gen func() string) string {
	if gen != nil {
		return gen()
	}
	return uuid.NewString()
}

func logger(l *slog.Logger) *slog.Logger {
	if l != nil {
		return l
	}
	return slog.Default()
}

var (
	_ queries.Handler[GetWalletQuery, dto.Wallet]          = (*GetWalletHandler)(nil)
	_ commands.Handler[RequestCashoutCommand, dto.Cashout] = (*RequestCashoutHandler)(nil)
	_ commands.Handler[ResolveCashoutCommand, dto.Cashout] = (*ResolveCashoutHandler)(nil)
)
