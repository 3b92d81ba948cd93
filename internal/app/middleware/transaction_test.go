package middleware

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staybook/internal/app/commands"
	"staybook/internal/app/uow"
)

type fakeUnit struct {
	uow.UnitOfWork
	commitErr  error
	committed  bool
	rolledBack bool
}

func (u *fakeUnit) Commit(ctx context.Context) error {
	if u.commitErr != nil {
		return u.commitErr
	}
	u.committed = true
	return nil
}

func (u *fakeUnit) Rollback(ctx context.Context) error {
	u.rolledBack = true
	return nil
}

type fakeFactory struct {
	unit *fakeUnit
}

func (f fakeFactory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	return f.unit, nil
}

type releaseCommand struct{}

func (releaseCommand) Key() string { return "test.release" }

func dispatchWithHook(t *testing.T, unit *fakeUnit, handlerErr error) (bool, error) {
	t.Helper()
	released := false
	inner := commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
		uow.AfterCommit(ctx, func(context.Context) {
			require.True(t, unit.committed, "hook ran before commit")
			released = true
		})
		return "ok", handlerErr
	})
	bus := Transaction(fakeFactory{unit: unit}, nil)(inner)
	_, err := bus.Dispatch(context.Background(), releaseCommand{})
	return released, err
}

func TestTransactionRunsHooksAfterCommit(t *testing.T) {
	unit := &fakeUnit{}

	released, err := dispatchWithHook(t, unit, nil)
	require.NoError(t, err)
	assert.True(t, released)
	assert.False(t, unit.rolledBack)
}

func TestTransactionDropsHooksWhenCommitFails(t *testing.T) {
	unit := &fakeUnit{commitErr: uow.ErrConcurrentUpdate}

	released, err := dispatchWithHook(t, unit, nil)
	assert.ErrorIs(t, err, uow.ErrConcurrentUpdate)
	assert.False(t, released)
	assert.True(t, unit.rolledBack)
}

func TestTransactionDropsHooksWhenHandlerFails(t *testing.T) {
	unit := &fakeUnit{}

	released, err := dispatchWithHook(t, unit, errors.New("dates taken"))
	assert.Error(t, err)
	assert.False(t, released)
	assert.True(t, unit.rolledBack)
}

func TestAfterCommitWithoutBoundaryRunsAtOnce(t *testing.T) {
	ran := false
	uow.AfterCommit(context.Background(), func(context.Context) { ran = true })
	assert.True(t, ran)
}
