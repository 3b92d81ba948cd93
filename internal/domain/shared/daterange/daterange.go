package daterange

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrInvalidRange = errors.New("daterange: checkout must not be before checkin")
	ErrInvalidDay   = errors.New("daterange: invalid calendar day")
)

// DayLayout is the wire format for date-only values.
const DayLayout = "2006-01-02"

const day = 24 * time.Hour

// Day reduces t to its calendar date at 00:00 UTC. The year/month/day are
// taken in t's own location so a local midnight never slides to the previous day.
func Day(t time.Time) time.Time {
	if t.IsZero() {
		return time.Time{}
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDay parses a date-only string (or an RFC3339 timestamp) into a Day.
func ParseDay(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, ErrInvalidDay
	}
	if t, err := time.Parse(DayLayout, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, ErrInvalidDay
	}
	return Day(t), nil
}

// SameDay compares two instants by calendar date only.
func SameDay(a, b time.Time) bool {
	return Day(a).Equal(Day(b))
}

// DateRange is an inclusive range of calendar days [CheckIn, CheckOut].
// A single-day booking has CheckIn == CheckOut.
type DateRange struct {
	CheckIn  time.Time
	CheckOut time.Time
}

func New(checkIn, checkOut time.Time) (DateRange, error) {
	dr := DateRange{CheckIn: Day(checkIn), CheckOut: Day(checkOut)}
	if err := dr.Validate(); err != nil {
		return DateRange{}, err
	}
	return dr, nil
}

// Single builds a one-day range.
func Single(d time.Time) (DateRange, error) {
	return New(d, d)
}

func (dr DateRange) Validate() error {
	if dr.CheckOut.IsZero() || dr.CheckIn.IsZero() {
		return ErrInvalidRange
	}
	if Day(dr.CheckOut).Before(Day(dr.CheckIn)) {
		return ErrInvalidRange
	}
	return nil
}

func (dr DateRange) IsSingleDay() bool {
	return SameDay(dr.CheckIn, dr.CheckOut)
}

// Nights counts the nights between check-in and check-out.
func (dr DateRange) Nights() int {
	return int(Day(dr.CheckOut).Sub(Day(dr.CheckIn)) / day)
}

// Days expands the range into each calendar day it covers, both ends included.
func (dr DateRange) Days() []time.Time {
	if dr.Validate() != nil {
		return nil
	}
	start, end := Day(dr.CheckIn), Day(dr.CheckOut)
	out := make([]time.Time, 0, dr.Nights()+1)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		out = append(out, d)
	}
	return out
}

// Overlaps reports whether the two inclusive ranges share at least one day.
func (dr DateRange) Overlaps(other DateRange) bool {
	return !Day(dr.CheckIn).After(Day(other.CheckOut)) && !Day(other.CheckIn).After(Day(dr.CheckOut))
}

func (dr DateRange) String() string {
	return dr.CheckIn.Format(DayLayout) + ".." + dr.CheckOut.Format(DayLayout)
}
