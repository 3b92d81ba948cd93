package pricing

import (
	"errors"

	"staybook/internal/domain/listings"
	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/money"
)

var ErrCurrencyUnset = errors.New("pricing: currency must be defined")

// Quote is the price breakdown shown at checkout and stored on the reservation.
type Quote struct {
	Units           int
	UnitPrice       money.Money
	PriceType       listings.PriceType
	Subtotal        money.Money
	DiscountPercent int
	Discount        money.Money
	Total           money.Money
}

// QuoteFor prices a stay: subtotal = price x units, discount is the promo
// percent of the subtotal truncated to whole minor units.
func QuoteFor(l *listings.Listing, dr daterange.DateRange, promoCode string) (Quote, error) {
	if l == nil {
		return Quote{}, listings.ErrNotFound
	}
	if l.Price.Currency == "" {
		return Quote{}, ErrCurrencyUnset
	}
	units, err := l.Variant().Units(dr)
	if err != nil {
		return Quote{}, err
	}
	percent, err := l.ValidatePromo(promoCode)
	if err != nil {
		return Quote{}, err
	}
	subtotal := l.Price.Multiply(int64(units))
	discount, err := subtotal.Percent(percent)
	if err != nil {
		return Quote{}, err
	}
	total, err := subtotal.Sub(discount)
	if err != nil {
		return Quote{}, err
	}
	return Quote{
		Units:           units,
		UnitPrice:       l.Price,
		PriceType:       l.PriceType,
		Subtotal:        subtotal,
		DiscountPercent: percent,
		Discount:        discount,
		Total:           total,
	}, nil
}
