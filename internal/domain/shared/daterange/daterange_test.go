package daterange

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDay(t *testing.T, raw string) time.Time {
	t.Helper()
	d, err := ParseDay(raw)
	require.NoError(t, err)
	return d
}

func TestDayIgnoresTimezoneOffset(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*3600)
	localMidnight := time.Date(2024, 1, 5, 0, 30, 0, 0, loc)

	assert.Equal(t, "2024-01-05", Day(localMidnight).Format(DayLayout))
	assert.True(t, SameDay(localMidnight, mustDay(t, "2024-01-05")))
}

func TestParseDay(t *testing.T) {
	d, err := ParseDay("2024-03-10T23:15:00Z")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-10", d.Format(DayLayout))

	_, err = ParseDay("")
	assert.ErrorIs(t, err, ErrInvalidDay)

	_, err = ParseDay("10/03/2024")
	assert.ErrorIs(t, err, ErrInvalidDay)
}

func TestNewRejectsInvertedRange(t *testing.T) {
	_, err := New(mustDay(t, "2024-01-07"), mustDay(t, "2024-01-05"))
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = New(time.Time{}, mustDay(t, "2024-01-05"))
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestDaysInclusive(t *testing.T) {
	dr, err := New(mustDay(t, "2024-01-05"), mustDay(t, "2024-01-07"))
	require.NoError(t, err)

	days := dr.Days()
	require.Len(t, days, 3)
	assert.Equal(t, "2024-01-05", days[0].Format(DayLayout))
	assert.Equal(t, "2024-01-07", days[2].Format(DayLayout))
	assert.Equal(t, 2, dr.Nights())
}

func TestSingleDay(t *testing.T) {
	dr, err := Single(mustDay(t, "2024-02-29"))
	require.NoError(t, err)
	assert.True(t, dr.IsSingleDay())
	assert.Equal(t, 0, dr.Nights())
	assert.Len(t, dr.Days(), 1)
}

func TestOverlapsSharesBoundaryDay(t *testing.T) {
	a, _ := New(mustDay(t, "2024-01-05"), mustDay(t, "2024-01-07"))
	b, _ := New(mustDay(t, "2024-01-07"), mustDay(t, "2024-01-09"))
	c, _ := New(mustDay(t, "2024-01-08"), mustDay(t, "2024-01-09"))

	assert.True(t, a.Overlaps(b))
	assert.True(t, b.Overlaps(a))
	assert.False(t, a.Overlaps(c))
}
