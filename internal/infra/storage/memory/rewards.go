package memory

import (
	"context"
	"sync"

	domainlistings "staybook/internal/domain/listings"
	domainrewards "staybook/internal/domain/rewards"
)

type RewardsStore struct {
	mu     sync.Mutex
	points map[domainlistings.HostID]int64
	seen   map[string]struct{}
}

func NewRewardsStore() *RewardsStore {
	return &RewardsStore{
		points: make(map[domainlistings.HostID]int64),
		seen:   make(map[string]struct{}),
	}
}

// Award adds points once per reference and returns the new total.
func (s *RewardsStore) Award(ctx context.Context, host domainlistings.HostID, points int64, reference string) (int64, error) {
	if points <= 0 {
		return 0, domainrewards.ErrInvalidPoints
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if reference != "" {
		key := string(host) + ":" + reference
		if _, dup := s.seen[key]; dup {
			return s.points[host], nil
		}
		s.seen[key] = struct{}{}
	}
	s.points[host] += points
	return s.points[host], nil
}

func (s *RewardsStore) Points(ctx context.Context, host domainlistings.HostID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.points[host], nil
}

var _ domainrewards.Store = (*RewardsStore)(nil)
