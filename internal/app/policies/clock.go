package policies

import "time"

type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// FixedClock always returns the same instant.
type FixedClock struct{ At time.Time }

func (c FixedClock) Now() time.Time { return c.At }

func Now(c Clock) time.Time {
	if c == nil {
		return time.Now().UTC()
	}
	return c.Now()
}
