package dto

import (
	"staybook/internal/domain/pricing"
	"staybook/internal/domain/shared/daterange"
)

// Quote is the amount a guest is charged for a stay. Available is false when
// the dates are taken; the price is still returned.
type Quote struct {
	ListingID       string   `json:"listing_id"`
	CheckIn         string   `json:"check_in"`
	CheckOut        string   `json:"check_out"`
	Guests          int      `json:"guests"`
	Units           int      `json:"units"`
	PriceType       string   `json:"price_type"`
	UnitPrice       MoneyDTO `json:"unit_price"`
	Subtotal        MoneyDTO `json:"subtotal"`
	DiscountPercent int      `json:"discount_percent"`
	Discount        MoneyDTO `json:"discount"`
	Total           MoneyDTO `json:"total"`
	Available       bool     `json:"available"`
}

func MapQuote(listingID string, dr daterange.DateRange, guests int, q pricing.Quote) Quote {
	return Quote{
		ListingID:       listingID,
		CheckIn:         dr.CheckIn.Format(daterange.DayLayout),
		CheckOut:        dr.CheckOut.Format(daterange.DayLayout),
		Guests:          guests,
		Units:           q.Units,
		PriceType:       string(q.PriceType),
		UnitPrice:       MapMoney(q.UnitPrice),
		Subtotal:        MapMoney(q.Subtotal),
		DiscountPercent: q.DiscountPercent,
		Discount:        MapMoney(q.Discount),
		Total:           MapMoney(q.Total),
	}
}
