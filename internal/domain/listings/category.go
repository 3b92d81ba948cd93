package listings

import (
	"errors"
	"strings"
	"time"

	"staybook/internal/domain/shared/daterange"
)

var (
	ErrUnknownCategory = errors.New("listings: unknown category")
	ErrDateShape       = errors.New("listings: dates do not match the listing category")
)

type Category string

const (
	CategoryHomes       Category = "homes"
	CategoryExperiences Category = "experiences"
	CategoryServices    Category = "services"
)

// DateShape tells whether a category books a range of nights or a single day.
type DateShape string

const (
	ShapeRange  DateShape = "range"
	ShapeSingle DateShape = "single"
)

// Variant is the category-specific booking behaviour.
type Variant interface {
	Category() Category
	PriceType() PriceType
	DateShape() DateShape
	// Units is the price multiplier for the booked range.
	Units(dr daterange.DateRange) (int, error)
	// FirstBookableOffset is the number of days after "today" the earliest
	// booking may start.
	FirstBookableOffset() int
	DefaultRange(start time.Time) daterange.DateRange
	ReceiptTemplate() string
	CancellationTemplate() string
	AwardsPoints() bool
}

func ParseCategory(raw string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(raw)))
	if _, err := VariantFor(c); err != nil {
		return "", err
	}
	return c, nil
}

func VariantFor(c Category) (Variant, error) {
	switch c {
	case CategoryHomes:
		return homes{}, nil
	case CategoryExperiences:
		return experiences{}, nil
	case CategoryServices:
		return services{}, nil
	default:
		return nil, ErrUnknownCategory
	}
}

type homes struct{}

func (homes) Category() Category   { return CategoryHomes }
func (homes) PriceType() PriceType { return PricePerNight }
func (homes) DateShape() DateShape { return ShapeRange }

func (homes) Units(dr daterange.DateRange) (int, error) {
	if err := dr.Validate(); err != nil {
		return 0, err
	}
	nights := dr.Nights()
	if nights < 1 {
		return 0, ErrDateShape
	}
	return nights, nil
}

func (homes) FirstBookableOffset() int { return 0 }

func (homes) DefaultRange(start time.Time) daterange.DateRange {
	d := daterange.Day(start)
	return daterange.DateRange{CheckIn: d, CheckOut: d.AddDate(0, 0, 1)}
}

func (homes) ReceiptTemplate() string      { return "reservation_receipt_homes" }
func (homes) CancellationTemplate() string { return "cancellation_notice_homes" }
func (homes) AwardsPoints() bool           { return true }

// singleDay holds the behaviour shared by per-session categories.
type singleDay struct{}

func (singleDay) PriceType() PriceType { return PricePerSession }
func (singleDay) DateShape() DateShape { return ShapeSingle }

func (singleDay) Units(dr daterange.DateRange) (int, error) {
	if err := dr.Validate(); err != nil {
		return 0, err
	}
	if !dr.IsSingleDay() {
		return 0, ErrDateShape
	}
	return 1, nil
}

func (singleDay) DefaultRange(start time.Time) daterange.DateRange {
	d := daterange.Day(start)
	return daterange.DateRange{CheckIn: d, CheckOut: d}
}

type experiences struct{ singleDay }

func (experiences) Category() Category           { return CategoryExperiences }
func (experiences) FirstBookableOffset() int     { return 0 }
func (experiences) ReceiptTemplate() string      { return "reservation_receipt_experiences" }
func (experiences) CancellationTemplate() string { return "cancellation_notice_experiences" }
func (experiences) AwardsPoints() bool           { return true }

type services struct{ singleDay }

func (services) Category() Category           { return CategoryServices }
func (services) FirstBookableOffset() int     { return 1 }
func (services) ReceiptTemplate() string      { return "reservation_receipt_services" }
func (services) CancellationTemplate() string { return "cancellation_notice_services" }
func (services) AwardsPoints() bool           { return false }
