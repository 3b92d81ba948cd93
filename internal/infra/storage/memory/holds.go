package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	domainlistings "staybook/internal/domain/listings"
	domainreservation "staybook/internal/domain/reservation"
)

// HoldStore keeps checkout holds in a map; expired holds are pruned lazily.
type HoldStore struct {
	mu    sync.Mutex
	holds map[string]domainreservation.Hold
}

func NewHoldStore() *HoldStore {
	return &HoldStore{holds: make(map[string]domainreservation.Hold)}
}

func (s *HoldStore) Put(ctx context.Context, hold domainreservation.Hold) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.holds[hold.Key()] = hold
	return nil
}

func (s *HoldStore) ActiveForListing(ctx context.Context, listingID domainlistings.ListingID, now time.Time) ([]domainreservation.Hold, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domainreservation.Hold, 0)
	for key, h := range s.holds {
		if !h.Active(now) {
			delete(s.holds, key)
			continue
		}
		if h.ListingID == listingID {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *HoldStore) Release(ctx context.Context, listingID domainlistings.ListingID, guestID domainreservation.GuestID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.holds, domainreservation.Hold{ListingID: listingID, GuestID: guestID}.Key())
	return nil
}

// Sweep drops expired holds and returns how many were removed.
func (s *HoldStore) Sweep(ctx context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for key, h := range s.holds {
		if !h.Active(now) {
			delete(s.holds, key)
			removed++
		}
	}
	return removed, nil
}

var _ domainreservation.HoldStore = (*HoldStore)(nil)
