package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	goredis "github.com/redis/go-redis/v9"

	domainlistings "staybook/internal/domain/listings"
	domainreservation "staybook/internal/domain/reservation"
)

var errNilClient = errors.New("redis: client is nil")

// HoldStore keeps each hold under its own key with the hold TTL, plus a set
// of guest ids per listing to find them again.
type HoldStore struct {
	client *goredis.Client
	prefix string
}

func NewHoldStore(client *goredis.Client, prefix string) *HoldStore {
	if prefix == "" {
		prefix = "staybook"
	}
	return &HoldStore{client: client, prefix: prefix}
}

func (s *HoldStore) holdKey(listingID domainlistings.ListingID, guestID domainreservation.GuestID) string {
	return fmt.Sprintf("%s:hold:%s:%s", s.prefix, listingID, guestID)
}

func (s *HoldStore) indexKey(listingID domainlistings.ListingID) string {
	return fmt.Sprintf("%s:holds:%s", s.prefix, listingID)
}

func (s *HoldStore) Put(ctx context.Context, hold domainreservation.Hold) error {
	if s.client == nil {
		return errNilClient
	}
	ttl := hold.ExpiresAt.Sub(hold.CreatedAt)
	if ttl <= 0 {
		return domainreservation.ErrHoldTTL
	}
	data, err := json.Marshal(hold)
	if err != nil {
		return fmt.Errorf("redis: marshal hold: %w", err)
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.holdKey(hold.ListingID, hold.GuestID), data, ttl)
	pipe.SAdd(ctx, s.indexKey(hold.ListingID), string(hold.GuestID))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: put hold: %w", err)
	}
	return nil
}

// ActiveForListing returns unexpired holds and prunes index entries whose
// hold key has already expired.
func (s *HoldStore) ActiveForListing(ctx context.Context, listingID domainlistings.ListingID, now time.Time) ([]domainreservation.Hold, error) {
	if s.client == nil {
		return nil, errNilClient
	}
	guests, err := s.client.SMembers(ctx, s.indexKey(listingID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: list holds: %w", err)
	}
	out := make([]domainreservation.Hold, 0, len(guests))
	if len(guests) == 0 {
		return out, nil
	}
	keys := make([]string, len(guests))
	for i, g := range guests {
		keys[i] = s.holdKey(listingID, domainreservation.GuestID(g))
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: load holds: %w", err)
	}
	var stale []any
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			stale = append(stale, guests[i])
			continue
		}
		var h domainreservation.Hold
		if err := json.Unmarshal([]byte(raw), &h); err != nil {
			stale = append(stale, guests[i])
			continue
		}
		if h.Active(now) {
			out = append(out, h)
		}
	}
	if len(stale) > 0 {
		if err := s.client.SRem(ctx, s.indexKey(listingID), stale...).Err(); err != nil {
			return nil, fmt.Errorf("redis: prune holds: %w", err)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *HoldStore) Release(ctx context.Context, listingID domainlistings.ListingID, guestID domainreservation.GuestID) error {
	if s.client == nil {
		return errNilClient
	}
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.holdKey(listingID, guestID))
	pipe.SRem(ctx, s.indexKey(listingID), string(guestID))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: release hold: %w", err)
	}
	return nil
}

var _ domainreservation.HoldStore = (*HoldStore)(nil)
