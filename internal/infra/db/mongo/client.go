package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/x/mongo/driver"
)

const (
	colListings     = "agg_listings"
	colCalendars    = "agg_calendars"
	colReservations = "agg_reservations"
	colLedger       = "wallet_ledger"
	colCashouts     = "wallet_cashouts"
	colWallets      = "wallet_locks"
	colIdempotency  = "app_idempotency"
	colRewards      = "rewards_accounts"
	colRewardAwards = "rewards_awards"
)

type Client struct {
	DB *mongo.Database
}

func New(ctx context.Context, uri, database string) (*Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	opts := options.Client().ApplyURI(uri).SetRetryWrites(true)
	m, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &Client{DB: m.Database(database)}, nil
}

func (c *Client) Ping(ctx context.Context) error {
	return c.DB.Client().Ping(ctx, nil)
}

func (c *Client) Close(ctx context.Context) error {
	return c.DB.Client().Disconnect(ctx)
}

// EnsureIndexes creates the indexes the repositories rely on for their
// uniqueness guarantees.
func EnsureIndexes(ctx context.Context, db *mongo.Database, idempotencyTTL time.Duration) error {
	if idempotencyTTL <= 0 {
		idempotencyTTL = 7 * 24 * time.Hour
	}
	specs := map[string][]mongo.IndexModel{
		colListings: {
			{Keys: bson.D{{Key: "host_id", Value: 1}}},
		},
		colReservations: {
			{Keys: bson.D{{Key: "listing_id", Value: 1}}},
			{Keys: bson.D{{Key: "guest_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "host_id", Value: 1}, {Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "status", Value: 1}}},
			{
				Keys: bson.D{{Key: "payment.id", Value: 1}},
				Options: options.Index().SetUnique(true).
					SetPartialFilterExpression(bson.M{"payment.id": bson.M{"$type": "string"}}),
			},
		},
		colLedger: {
			{Keys: bson.D{{Key: "kind", Value: 1}, {Key: "reference", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "host_id", Value: 1}, {Key: "created_at", Value: 1}}},
		},
		colCashouts: {
			{Keys: bson.D{{Key: "host_id", Value: 1}, {Key: "requested_at", Value: 1}}},
		},
		colIdempotency: {
			{Keys: bson.D{{Key: "created_at", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(int32(idempotencyTTL.Seconds()))},
		},
		colRewardAwards: {
			{Keys: bson.D{{Key: "host_id", Value: 1}, {Key: "reference", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
	}
	var errs []error
	for name, models := range specs {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			errs = append(errs, fmt.Errorf("indexes %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// isConflict reports write errors caused by a concurrent writer: a duplicate
// key on a versioned upsert or a transaction write conflict.
func isConflict(err error) bool {
	if err == nil {
		return false
	}
	if mongo.IsDuplicateKeyError(err) {
		return true
	}
	var se mongo.ServerError
	if errors.As(err, &se) {
		return se.HasErrorLabel(driver.TransientTransactionError) || se.HasErrorCode(112)
	}
	return false
}
