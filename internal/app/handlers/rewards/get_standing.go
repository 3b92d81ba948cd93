package rewards

import (
	"context"
	"errors"
	"strings"

	"staybook/internal/app/auth"
	"staybook/internal/app/dto"
	"staybook/internal/app/queries"
	domainlistings "staybook/internal/domain/listings"
	domainrewards "staybook/internal/domain/rewards"
)

const getStandingKey = "rewards.standing"

var (
	ErrHostRequired  = errors.New("rewards: host id is required")
	ErrStoreDisabled = errors.New("rewards: points store is not configured")
)

type GetStandingQuery struct {
	HostID string
}

func (q GetStandingQuery) Key() string { return getStandingKey }

func (q GetStandingQuery) RequiredRoles() []auth.Role { return []auth.Role{auth.RoleHost} }

func (q GetStandingQuery) Validate() error {
	if strings.TrimSpace(q.HostID) == "" {
		return ErrHostRequired
	}
	return nil
}

type GetStandingHandler struct {
	Store domainrewards.Store
}

func (h *GetStandingHandler) Handle(ctx context.Context, q GetStandingQuery) (dto.Standing, error) {
	if h.Store == nil {
		return dto.Standing{}, ErrStoreDisabled
	}
	host := domainlistings.HostID(q.HostID)
	points, err := h.Store.Points(ctx, host)
	if err != nil {
		return dto.Standing{}, err
	}
	return dto.MapStanding(domainrewards.StandingFor(host, points)), nil
}

var _ queries.Handler[GetStandingQuery, dto.Standing] = (*GetStandingHandler)(nil)
