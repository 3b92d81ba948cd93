package jobs

import (
	"context"
	"log/slog"
	"time"

	"staybook/internal/app/auth"
	"staybook/internal/app/commands"
	"staybook/internal/app/dto"
	"staybook/internal/app/handlers/reservations"
)

// Periodic runs Task every Interval until ctx is done. A failed run is
// logged and the next tick tries again.
type Periodic struct {
	Name     string
	Interval time.Duration
	Task     func(ctx context.Context) error
	Logger   *slog.Logger
}

func (p Periodic) Run(ctx context.Context) error {
	if p.Interval <= 0 || p.Task == nil {
		return nil
	}
	p.runOnce(ctx)
	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			p.runOnce(ctx)
		}
	}
}

func (p Periodic) runOnce(ctx context.Context) {
	if err := p.Task(ctx); err != nil {
		logger := p.Logger
		if logger == nil {
			logger = slog.Default()
		}
		logger.Warn("scheduled job failed", "job", p.Name, "error", err)
	}
}

// ReconcileExpired dispatches the completion sweep as the system principal.
func ReconcileExpired(bus commands.Bus, logger *slog.Logger) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		ctx = auth.WithPrincipal(ctx, auth.System())
		res, err := commands.Dispatch[reservations.ReconcileExpiredCommand, dto.ReconcileResult](ctx, bus, reservations.ReconcileExpiredCommand{})
		if err != nil {
			return err
		}
		if logger != nil && len(res.Completed) > 0 {
			logger.Info("reservations completed", "count", len(res.Completed), "failed", len(res.Failed))
		}
		return nil
	}
}

// HoldSweeper is implemented by hold stores that do not expire keys on their
// own.
type HoldSweeper interface {
	Sweep(ctx context.Context, now time.Time) (int, error)
}

func SweepHolds(store HoldSweeper, now func() time.Time) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		_, err := store.Sweep(ctx, now())
		return err
	}
}
