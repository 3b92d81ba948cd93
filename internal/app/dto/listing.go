package dto

import (
	"staybook/internal/domain/listings"
	"staybook/internal/domain/shared/daterange"
)

type Listing struct {
	ID           string   `json:"id"`
	HostID       string   `json:"host_id"`
	Title        string   `json:"title"`
	Category     string   `json:"category"`
	Status       string   `json:"status"`
	Price        MoneyDTO `json:"price"`
	GuestsLimit  int      `json:"guests_limit"`
	BlockedDates []string `json:"blocked_dates"`
}

func MapListing(l *listings.Listing) Listing {
	blocked := make([]string, 0, len(l.BlockedDates))
	for _, d := range l.BlockedDates {
		blocked = append(blocked, d.Format(daterange.DayLayout))
	}
	return Listing{
		ID:           string(l.ID),
		HostID:       string(l.Host),
		Title:        l.Title,
		Category:     string(l.Category),
		Status:       string(l.Status),
		Price:        MapMoney(l.Price),
		GuestsLimit:  l.GuestsLimit,
		BlockedDates: blocked,
	}
}
