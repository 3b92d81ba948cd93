package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainlistings "staybook/internal/domain/listings"
	domainrewards "staybook/internal/domain/rewards"
)

// RewardsStore keeps a points counter per host. Each award first claims its
// reference in rewards_awards, so a replayed event never increments twice.
type RewardsStore struct {
	accounts *mongo.Collection
	awards   *mongo.Collection
}

func NewRewardsStore(db *mongo.Database) *RewardsStore {
	return &RewardsStore{accounts: db.Collection(colRewards), awards: db.Collection(colRewardAwards)}
}

func (s *RewardsStore) Award(ctx context.Context, host domainlistings.HostID, points int64, reference string) (int64, error) {
	if points <= 0 {
		return 0, domainrewards.ErrInvalidPoints
	}
	if reference != "" {
		_, err := s.awards.InsertOne(ctx, bson.M{"host_id": string(host), "reference": reference, "points": points, "awarded_at": time.Now().UTC()})
		if mongo.IsDuplicateKeyError(err) {
			return s.Points(ctx, host)
		}
		if err != nil {
			return 0, err
		}
	}
	var doc rewardsDocument
	err := s.accounts.FindOneAndUpdate(ctx,
		bson.M{"_id": string(host)},
		bson.M{"$inc": bson.M{"points": points}, "$set": bson.M{"updated_at": time.Now().UTC()}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		if reference != "" {
			_, _ = s.awards.DeleteOne(ctx, bson.M{"host_id": string(host), "reference": reference})
		}
		return 0, err
	}
	return doc.Points, nil
}

func (s *RewardsStore) Points(ctx context.Context, host domainlistings.HostID) (int64, error) {
	var doc rewardsDocument
	if err := s.accounts.FindOne(ctx, bson.M{"_id": string(host)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, nil
		}
		return 0, err
	}
	return doc.Points, nil
}

type rewardsDocument struct {
	ID        string    `bson:"_id"`
	Points    int64     `bson:"points"`
	UpdatedAt time.Time `bson:"updated_at"`
}

var _ domainrewards.Store = (*RewardsStore)(nil)
