package dto

import (
	"time"

	"staybook/internal/domain/shared/daterange"
)

// Calendar is the date-picker view of a listing. DefaultCheckIn is empty
// when no open day exists within the search horizon.
type Calendar struct {
	ListingID       string   `json:"listing_id"`
	Category        string   `json:"category"`
	DateShape       string   `json:"date_shape"`
	From            string   `json:"from"`
	BlockedDates    []string `json:"blocked_dates"`
	DefaultCheckIn  string   `json:"default_check_in,omitempty"`
	DefaultCheckOut string   `json:"default_check_out,omitempty"`
	SkippedRecords  int      `json:"skipped_records,omitempty"`
}

type Hold struct {
	ListingID string    `json:"listing_id"`
	CheckIn   string    `json:"check_in"`
	CheckOut  string    `json:"check_out"`
	ExpiresAt time.Time `json:"expires_at"`
	Quote     Quote     `json:"quote"`
}

func FormatDays(days []time.Time) []string {
	out := make([]string, 0, len(days))
	for _, d := range days {
		out = append(out, d.Format(daterange.DayLayout))
	}
	return out
}
