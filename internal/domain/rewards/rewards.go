package rewards

import (
	"context"
	"errors"

	"staybook/internal/domain/listings"
)

var ErrInvalidPoints = errors.New("rewards: points must be positive")

// PointsPerBooking is credited to the host for each qualifying reservation.
const PointsPerBooking = 10

type Tier string

const (
	TierBronze   Tier = "BRONZE"
	TierSilver   Tier = "SILVER"
	TierGold     Tier = "GOLD"
	TierPlatinum Tier = "PLATINUM"
)

type threshold struct {
	tier   Tier
	points int64
}

// ordered highest first
var thresholds = []threshold{
	{TierPlatinum, 600},
	{TierGold, 300},
	{TierSilver, 100},
	{TierBronze, 0},
}

func TierFor(points int64) Tier {
	for _, t := range thresholds {
		if points >= t.points {
			return t.tier
		}
	}
	return TierBronze
}

// Standing is a host's points and tier, plus how far the next tier is.
type Standing struct {
	HostID       listings.HostID
	Points       int64
	Tier         Tier
	NextTier     Tier
	PointsToNext int64
}

func StandingFor(host listings.HostID, points int64) Standing {
	s := Standing{HostID: host, Points: points, Tier: TierFor(points)}
	for i := len(thresholds) - 1; i >= 0; i-- {
		if thresholds[i].points > points {
			s.NextTier = thresholds[i].tier
			s.PointsToNext = thresholds[i].points - points
			break
		}
	}
	return s
}

// Store keeps one points counter per host. Award increments atomically and
// ignores a reference it has already seen.
type Store interface {
	Award(ctx context.Context, host listings.HostID, points int64, reference string) (int64, error)
	Points(ctx context.Context, host listings.HostID) (int64, error)
}
