package availability

import (
	"errors"
	"sort"
	"time"

	"staybook/internal/domain/shared/daterange"
)

var ErrNoAvailability = errors.New("availability: no open date within the search horizon")

// DefaultHorizonDays bounds the forward scan for the earliest open date.
const DefaultHorizonDays = 730

// Occupancy is the slice of a reservation (or hold) the calculator cares about.
type Occupancy struct {
	Reference string
	Status    string
	CheckIn   time.Time
	CheckOut  time.Time
}

// OccupancyPolicy lists the statuses whose date ranges are unavailable.
type OccupancyPolicy struct {
	statuses map[string]struct{}
}

func NewOccupancyPolicy(statuses ...string) OccupancyPolicy {
	set := make(map[string]struct{}, len(statuses))
	for _, s := range statuses {
		set[s] = struct{}{}
	}
	return OccupancyPolicy{statuses: set}
}

// IsZero reports a policy with no occupying status, usually an unset field.
func (p OccupancyPolicy) IsZero() bool {
	return len(p.statuses) == 0
}

func (p OccupancyPolicy) Occupies(status string) bool {
	_, ok := p.statuses[status]
	return ok
}

// Statuses returns the occupying statuses in sorted order.
func (p OccupancyPolicy) Statuses() []string {
	out := make([]string, 0, len(p.statuses))
	for s := range p.statuses {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// BlockedSet is a set of calendar days. The zero value is an empty set.
type BlockedSet struct {
	days map[time.Time]struct{}
	// Skipped holds references of occupancies ignored because their dates
	// were missing or inverted.
	Skipped []string
}

func (s *BlockedSet) add(d time.Time) {
	if s.days == nil {
		s.days = make(map[time.Time]struct{})
	}
	s.days[daterange.Day(d)] = struct{}{}
}

// Contains compares by calendar day, never by instant.
func (s BlockedSet) Contains(d time.Time) bool {
	if d.IsZero() {
		return false
	}
	_, ok := s.days[daterange.Day(d)]
	return ok
}

func (s BlockedSet) Len() int {
	return len(s.days)
}

// Days returns the blocked days in ascending order.
func (s BlockedSet) Days() []time.Time {
	out := make([]time.Time, 0, len(s.days))
	for d := range s.days {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// ComputeBlockedDates unions the inclusive day ranges of occupying entries
// with the listing's explicit blocked dates. Malformed entries are skipped and
// reported in Skipped. The inputs are not modified.
func ComputeBlockedDates(occupancies []Occupancy, explicit []time.Time, policy OccupancyPolicy) BlockedSet {
	var set BlockedSet
	for _, d := range explicit {
		if d.IsZero() {
			continue
		}
		set.add(d)
	}
	for _, occ := range occupancies {
		if !policy.Occupies(occ.Status) {
			continue
		}
		dr := daterange.DateRange{CheckIn: daterange.Day(occ.CheckIn), CheckOut: daterange.Day(occ.CheckOut)}
		if dr.Validate() != nil {
			set.Skipped = append(set.Skipped, occ.Reference)
			continue
		}
		for _, d := range dr.Days() {
			set.add(d)
		}
	}
	return set
}

// IsDateBlocked reports whether d falls on a blocked calendar day.
func IsDateBlocked(d time.Time, blocked BlockedSet) bool {
	return blocked.Contains(d)
}

// RangeAvailable reports whether every day of dr is free.
func RangeAvailable(blocked BlockedSet, dr daterange.DateRange) bool {
	for _, d := range dr.Days() {
		if blocked.Contains(d) {
			return false
		}
	}
	return dr.Validate() == nil
}

// ScanOptions tune EarliestAvailableDate.
type ScanOptions struct {
	// StartOffset shifts the first candidate day forward from "from".
	StartOffset int
	HorizonDays int
	// Fits, when set, must also accept an unblocked candidate, e.g. to check
	// that the whole default stay starting there is free.
	Fits func(start time.Time) bool
}

// EarliestAvailableDate scans day by day from from+StartOffset and returns the
// first calendar day that is not blocked and that opts.Fits accepts.
func EarliestAvailableDate(blocked BlockedSet, from time.Time, opts ScanOptions) (time.Time, error) {
	horizon := opts.HorizonDays
	if horizon <= 0 {
		horizon = DefaultHorizonDays
	}
	start := daterange.Day(from)
	if start.IsZero() {
		return time.Time{}, daterange.ErrInvalidDay
	}
	start = start.AddDate(0, 0, opts.StartOffset)
	for i := 0; i < horizon; i++ {
		candidate := start.AddDate(0, 0, i)
		if blocked.Contains(candidate) {
			continue
		}
		if opts.Fits == nil || opts.Fits(candidate) {
			return candidate, nil
		}
	}
	return time.Time{}, ErrNoAvailability
}
