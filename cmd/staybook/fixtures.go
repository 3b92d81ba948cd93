package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"staybook/internal/app/uow"
	"staybook/internal/domain/listings"
	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/money"
)

type listingFixture struct {
	ID              string   `json:"id"`
	Host            string   `json:"host"`
	HostName        string   `json:"host_name"`
	Title           string   `json:"title"`
	Category        string   `json:"category"`
	PriceCents      int64    `json:"price_cents"`
	PromoCode       string   `json:"promo_code"`
	DiscountPercent int      `json:"discount_percent"`
	GuestsLimit     int      `json:"guests_limit"`
	BlockedDates    []string `json:"blocked_dates"`
}

// loadListingFixtures stores active listings from a JSON file. Listings that
// already exist are left alone, so a restart against Mongo is a no-op.
func loadListingFixtures(ctx context.Context, factory uow.UoWFactory, path, currency string, logger *slog.Logger) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("listing fixtures file not found, skipping", "path", path)
			return 0, nil
		}
		return 0, fmt.Errorf("read fixtures: %w", err)
	}
	if len(data) == 0 {
		logger.Warn("listing fixtures file empty", "path", path)
		return 0, nil
	}
	var fixtures []listingFixture
	if err := json.Unmarshal(data, &fixtures); err != nil {
		return 0, fmt.Errorf("decode fixtures: %w", err)
	}

	now := time.Now().UTC()
	imported := 0
	for _, fx := range fixtures {
		listing, err := fx.build(currency, now)
		if err != nil {
			logger.Error("fixture invalid", "listing_id", fx.ID, "error", err)
			continue
		}
		created, err := saveIfMissing(ctx, factory, listing)
		if err != nil {
			logger.Error("cannot store fixture listing", "listing_id", fx.ID, "error", err)
			continue
		}
		if created {
			imported++
			logger.Info("listing fixture imported", "listing_id", listing.ID, "category", listing.Category)
		}
	}
	return imported, nil
}

func (fx listingFixture) build(currency string, now time.Time) (*listings.Listing, error) {
	category, err := listings.ParseCategory(fx.Category)
	if err != nil {
		return nil, err
	}
	price, err := money.New(fx.PriceCents, currency)
	if err != nil {
		return nil, err
	}
	blocked := make([]time.Time, 0, len(fx.BlockedDates))
	for _, raw := range fx.BlockedDates {
		d, err := daterange.ParseDay(raw)
		if err != nil {
			return nil, fmt.Errorf("blocked date %q: %w", raw, err)
		}
		blocked = append(blocked, d)
	}
	listing, err := listings.NewListing(listings.CreateParams{
		ID:              listings.ListingID(fx.ID),
		Host:            listings.HostID(fx.Host),
		HostName:        fx.HostName,
		Title:           fx.Title,
		Category:        category,
		Price:           price,
		PromoCode:       fx.PromoCode,
		DiscountPercent: fx.DiscountPercent,
		BlockedDates:    blocked,
		GuestsLimit:     fx.GuestsLimit,
		Now:             now,
	})
	if err != nil {
		return nil, err
	}
	if err := listing.Activate(listing.Host, now); err != nil {
		return nil, err
	}
	listing.Drain()
	return listing, nil
}

func saveIfMissing(ctx context.Context, factory uow.UoWFactory, listing *listings.Listing) (bool, error) {
	unit, err := factory.Begin(ctx, uow.TxOptions{})
	if err != nil {
		return false, err
	}
	execCtx := uow.Bind(ctx, unit)
	if _, err := unit.Listings().ByID(execCtx, listing.ID); err == nil {
		return false, unit.Rollback(execCtx)
	} else if !errors.Is(err, listings.ErrNotFound) {
		_ = unit.Rollback(execCtx)
		return false, err
	}
	if err := unit.Listings().Save(execCtx, listing); err != nil {
		_ = unit.Rollback(execCtx)
		return false, err
	}
	return true, unit.Commit(execCtx)
}

func defaultListingFixturesPath() string {
	candidates := []string{
		filepath.Join("data", "listings.json"),
		filepath.Join("..", "..", "data", "listings.json"),
	}
	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return candidates[0]
}
