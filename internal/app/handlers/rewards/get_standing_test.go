package rewards

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staybook/internal/infra/storage/memory"
)

func TestGetStanding(t *testing.T) {
	store := memory.NewRewardsStore()
	ctx := context.Background()
	for _, ref := range []string{"r1", "r2", "r3", "r4", "r5", "r6", "r7", "r8", "r9", "r10", "r10"} {
		_, err := store.Award(ctx, "host-1", 10, ref)
		require.NoError(t, err)
	}

	h := &GetStandingHandler{Store: store}
	got, err := h.Handle(ctx, GetStandingQuery{HostID: "host-1"})
	require.NoError(t, err)
	assert.Equal(t, int64(100), got.Points)
	assert.Equal(t, "SILVER", got.Tier)
	assert.Equal(t, "GOLD", got.NextTier)
	assert.Equal(t, int64(200), got.PointsToNext)

	empty, err := h.Handle(ctx, GetStandingQuery{HostID: "host-2"})
	require.NoError(t, err)
	assert.Equal(t, "BRONZE", empty.Tier)

	_, err = (&GetStandingHandler{}).Handle(ctx, GetStandingQuery{HostID: "host-1"})
	assert.ErrorIs(t, err, ErrStoreDisabled)
}
