package support

import (
	"context"
	"errors"

	"staybook/internal/app/uow"
)

var ErrUnitOfWorkRequired = errors.New("handlers: unit of work required")

// BeginReadOnlyUnit reuses the unit in ctx or starts a read-only one. The
// returned cleanup is nil when the unit was already there.
func BeginReadOnlyUnit(ctx context.Context, factory uow.UoWFactory) (uow.UnitOfWork, context.Context, func(), error) {
	if unit, ok := uow.FromContext(ctx); ok {
		return unit, ctx, nil, nil
	}
	if factory == nil {
		return nil, ctx, nil, uow.ErrUnitOfWorkMissing
	}
	unit, err := factory.Begin(ctx, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, ctx, nil, err
	}
	execCtx := uow.Bind(ctx, unit)
	cleanup := func() {
		_ = unit.Rollback(execCtx)
	}
	return unit, execCtx, cleanup, nil
}

// RequireUnit returns the unit the Transaction middleware placed in ctx.
func RequireUnit(ctx context.Context) (uow.UnitOfWork, error) {
	unit, ok := uow.FromContext(ctx)
	if !ok {
		return nil, ErrUnitOfWorkRequired
	}
	return unit, nil
}
