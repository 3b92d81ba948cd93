package availability

import (
	"context"
	"errors"
	"time"

	"staybook/internal/domain/listings"
	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/events"
)

var (
	ErrOverlappingRange = errors.New("availability: range overlaps with an existing block")
	ErrRangeNotFound    = errors.New("availability: range not found")
	ErrInvalidReference = errors.New("availability: block reference is required")
)

type BlockReason string

const (
	ReasonReservation BlockReason = "RESERVATION"
	ReasonHostBlock   BlockReason = "HOST_BLOCK"
)

type Block struct {
	Range     daterange.DateRange
	Reason    BlockReason
	Reference string
	CreatedAt time.Time
}

// Calendar is the per-listing occupancy record. Version is compared on save,
// so two writers that both loaded the same version cannot both reserve.
type Calendar struct {
	ListingID listings.ListingID
	Blocks    []Block
	Version   int64
	events.EventRecorder
}

type Repository interface {
	// Calendar returns the stored calendar or an empty one at version 0.
	Calendar(ctx context.Context, id listings.ListingID) (*Calendar, error)
	Save(ctx context.Context, calendar *Calendar) error
}

func NewCalendar(id listings.ListingID) *Calendar {
	return &Calendar{ListingID: id}
}

func (c *Calendar) CanReserve(r daterange.DateRange) bool {
	for _, block := range c.Blocks {
		if block.Range.Overlaps(r) {
			return false
		}
	}
	return true
}

func (c *Calendar) Reserve(r daterange.DateRange, reference string, now time.Time) error {
	if reference == "" {
		return ErrInvalidReference
	}
	if err := r.Validate(); err != nil {
		return err
	}
	if !c.CanReserve(r) {
		c.Record(CalendarOverbookingPrevented{ListingID: string(c.ListingID), Range: r, At: now.UTC()})
		return ErrOverlappingRange
	}
	c.Blocks = append(c.Blocks, Block{Range: r, Reason: ReasonReservation, Reference: reference, CreatedAt: now.UTC()})
	c.Record(CalendarBlocked{ListingID: string(c.ListingID), Range: r, Reason: ReasonReservation, At: now.UTC()})
	return nil
}

// Release frees the block held under reference.
func (c *Calendar) Release(reference string, now time.Time) error {
	idx := -1
	for i, block := range c.Blocks {
		if block.Reference == reference {
			idx = i
			break
		}
	}
	if idx == -1 {
		return ErrRangeNotFound
	}
	removed := c.Blocks[idx]
	c.Blocks = append(c.Blocks[:idx], c.Blocks[idx+1:]...)
	c.Record(CalendarReleased{ListingID: string(c.ListingID), Range: removed.Range, Reason: removed.Reason, At: now.UTC()})
	return nil
}

// SetHostBlocks replaces the host's own blocks with one block per day. A day
// inside a reservation block is refused and nothing changes.
func (c *Calendar) SetHostBlocks(days []time.Time, now time.Time) error {
	previous := make(map[string]Block)
	kept := make([]Block, 0, len(c.Blocks)+len(days))
	for _, b := range c.Blocks {
		if b.Reason == ReasonHostBlock {
			previous[b.Reference] = b
			continue
		}
		kept = append(kept, b)
	}
	ranges := make([]daterange.DateRange, 0, len(days))
	for _, d := range days {
		r, err := daterange.Single(d)
		if err != nil {
			return err
		}
		for _, b := range kept {
			if b.Range.Overlaps(r) {
				return ErrOverlappingRange
			}
		}
		ranges = append(ranges, r)
	}

	for _, r := range ranges {
		ref := hostBlockReference(r.CheckIn)
		if b, ok := previous[ref]; ok {
			kept = append(kept, b)
			delete(previous, ref)
			continue
		}
		kept = append(kept, Block{Range: r, Reason: ReasonHostBlock, Reference: ref, CreatedAt: now.UTC()})
		c.Record(CalendarBlocked{ListingID: string(c.ListingID), Range: r, Reason: ReasonHostBlock, At: now.UTC()})
	}
	for _, b := range previous {
		c.Record(CalendarReleased{ListingID: string(c.ListingID), Range: b.Range, Reason: ReasonHostBlock, At: now.UTC()})
	}
	c.Blocks = kept
	return nil
}

func hostBlockReference(day time.Time) string {
	return "host:" + day.Format(daterange.DayLayout)
}
