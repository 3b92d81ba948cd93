package reservations

import (
	"context"
	"log/slog"
	"time"

	"staybook/internal/app/auth"
	"staybook/internal/app/commands"
	"staybook/internal/app/dto"
	"staybook/internal/app/handlers/support"
	"staybook/internal/app/outbox"
	"staybook/internal/app/policies"
	"staybook/internal/domain/reservation"
)

const reconcileExpiredKey = "reservations.reconcile_expired"

// ReconcileExpiredCommand completes every confirmed stay whose check-out day
// is over. Now defaults to the handler clock.
type ReconcileExpiredCommand struct {
	Now time.Time
}

func (c ReconcileExpiredCommand) Key() string { return reconcileExpiredKey }

func (c ReconcileExpiredCommand) RequiredRoles() []auth.Role {
	return []auth.Role{auth.RoleSystem, auth.RoleAdmin}
}

type ReconcileExpiredHandler struct {
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
	Clock   policies.Clock
	Metrics Metrics
	Logger  *slog.Logger
}

func (h *ReconcileExpiredHandler) Handle(ctx context.Context, cmd ReconcileExpiredCommand) (dto.ReconcileResult, error) {
	unit, err := support.RequireUnit(ctx)
	if err != nil {
		return dto.ReconcileResult{}, err
	}
	now := cmd.Now
	if now.IsZero() {
		now = policies.Now(h.Clock)
	}
	confirmed, err := unit.Reservations().ListByStatus(ctx, reservation.StatusConfirmed)
	if err != nil {
		return dto.ReconcileResult{}, err
	}
	result := dto.ReconcileResult{Completed: []string{}}
	for _, res := range reservation.ReconcileExpired(confirmed, now) {
		if err := unit.Reservations().Save(ctx, res); err != nil {
			loggerOrDefault(h.Logger).Warn("reservation completion not saved", "reservation_id", res.ID, "error", err)
			result.Failed = append(result.Failed, string(res.ID))
			res.ClearEvents()
			continue
		}
		if err := outbox.Stage(ctx, h.Outbox, h.Encoder, res); err != nil {
			return dto.ReconcileResult{}, err
		}
		metricsOrNoop(h.Metrics).StatusChanged(string(res.Status))
		result.Completed = append(result.Completed, string(res.ID))
	}
	if len(result.Completed) > 0 || len(result.Failed) > 0 {
		loggerOrDefault(h.Logger).Info("expired reservations reconciled", "completed", len(result.Completed), "failed", len(result.Failed))
	}
	return result, nil
}

var _ commands.Handler[ReconcileExpiredCommand, dto.ReconcileResult] = (*ReconcileExpiredHandler)(nil)
