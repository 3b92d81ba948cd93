package redis

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	domainlistings "staybook/internal/domain/listings"
	domainrewards "staybook/internal/domain/rewards"
)

// awardScript increments the host's points only the first time a reference
// is seen, in a single round trip.
var awardScript = goredis.NewScript(`
if ARGV[3] == "" or redis.call("SETNX", KEYS[2], "1") == 1 then
	return redis.call("HINCRBY", KEYS[1], ARGV[1], ARGV[2])
end
return tonumber(redis.call("HGET", KEYS[1], ARGV[1]) or "0")
`)

// RewardsStore keeps all hosts' points in one hash.
type RewardsStore struct {
	client *goredis.Client
	prefix string
}

func NewRewardsStore(client *goredis.Client, prefix string) *RewardsStore {
	if prefix == "" {
		prefix = "staybook"
	}
	return &RewardsStore{client: client, prefix: prefix}
}

func (s *RewardsStore) pointsKey() string {
	return s.prefix + ":rewards:points"
}

func (s *RewardsStore) Award(ctx context.Context, host domainlistings.HostID, points int64, reference string) (int64, error) {
	if s.client == nil {
		return 0, errNilClient
	}
	if points <= 0 {
		return 0, domainrewards.ErrInvalidPoints
	}
	refKey := fmt.Sprintf("%s:rewards:ref:%s:%s", s.prefix, host, reference)
	total, err := awardScript.Run(ctx, s.client, []string{s.pointsKey(), refKey}, string(host), points, reference).Int64()
	if err != nil {
		return 0, fmt.Errorf("redis: award points: %w", err)
	}
	return total, nil
}

func (s *RewardsStore) Points(ctx context.Context, host domainlistings.HostID) (int64, error) {
	if s.client == nil {
		return 0, errNilClient
	}
	n, err := s.client.HGet(ctx, s.pointsKey(), string(host)).Int64()
	if errors.Is(err, goredis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis: read points: %w", err)
	}
	return n, nil
}

var _ domainrewards.Store = (*RewardsStore)(nil)
