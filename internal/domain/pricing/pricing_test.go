package pricing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staybook/internal/domain/listings"
	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/money"
)

func listing(category listings.Category) *listings.Listing {
	v, _ := listings.VariantFor(category)
	return &listings.Listing{
		ID:              "lst-1",
		Host:            "host-1",
		Category:        category,
		Price:           money.Must(1000, "PHP"),
		PriceType:       v.PriceType(),
		PromoCode:       "Save10",
		DiscountPercent: 10,
	}
}

func TestQuoteAppliesPromo(t *testing.T) {
	start := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	dr, err := daterange.New(start, start.AddDate(0, 0, 3))
	require.NoError(t, err)

	q, err := QuoteFor(listing(listings.CategoryHomes), dr, "SAVE10")
	require.NoError(t, err)

	assert.Equal(t, 3, q.Units)
	assert.Equal(t, int64(3000), q.Subtotal.Amount)
	assert.Equal(t, int64(300), q.Discount.Amount)
	assert.Equal(t, int64(2700), q.Total.Amount)
	assert.Equal(t, "PHP", q.Total.Currency)
}

func TestQuoteWithoutPromo(t *testing.T) {
	start := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	dr, _ := daterange.Single(start)

	q, err := QuoteFor(listing(listings.CategoryExperiences), dr, "")
	require.NoError(t, err)
	assert.Equal(t, 1, q.Units)
	assert.Zero(t, q.Discount.Amount)
	assert.Equal(t, int64(1000), q.Total.Amount)
}

func TestQuoteRejects(t *testing.T) {
	start := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	single, _ := daterange.Single(start)
	two, _ := daterange.New(start, start.AddDate(0, 0, 2))

	_, err := QuoteFor(listing(listings.CategoryHomes), single, "")
	assert.ErrorIs(t, err, listings.ErrDateShape)

	_, err = QuoteFor(listing(listings.CategoryServices), two, "")
	assert.ErrorIs(t, err, listings.ErrDateShape)

	_, err = QuoteFor(listing(listings.CategoryHomes), two, "OTHER")
	assert.ErrorIs(t, err, listings.ErrPromoCodeMismatch)
}

func TestQuoteTruncatesDiscount(t *testing.T) {
	l := listing(listings.CategoryExperiences)
	l.Price = money.Must(999, "PHP")
	l.DiscountPercent = 15
	dr, _ := daterange.Single(time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC))

	q, err := QuoteFor(l, dr, "save10")
	require.NoError(t, err)
	assert.Equal(t, int64(149), q.Discount.Amount)
	assert.Equal(t, int64(850), q.Total.Amount)
}
