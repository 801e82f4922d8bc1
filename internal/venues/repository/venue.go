package repository

import (
	"context"
	"errors"
	"fmt"

	"turfbook/pkg/config"
	"turfbook/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Venues"
)

var (
	ErrNotFound  = errors.New("venue not found")
	ErrInvalidID = errors.New("invalid venue ID format")
)

// VenueRepository is a read-only view of the venue catalogue.
type VenueRepository interface {
	FindByID(ctx context.Context, id string) (*model.Venue, error)
	FindIDsByOwner(ctx context.Context, ownerID string) ([]string, error)
}

type mongoVenueRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoVenueRepository(cfg *config.Config) VenueRepository {
	return &mongoVenueRepository{
		cfg:        cfg,
		collection: cfg.Client.Mongo.Database(cfg.MongoDatabaseName).Collection(CollectionName),
	}
}

func (r *mongoVenueRepository) FindByID(ctx context.Context, id string) (*model.Venue, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidID, id)
	}

	var venue model.Venue
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&venue)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find venue: %w", err)
	}
	return &venue, nil
}

func (r *mongoVenueRepository) FindIDsByOwner(ctx context.Context, ownerID string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().SetProjection(bson.M{"_id": 1})
	cursor, err := r.collection.Find(ctx, bson.M{"owner_id": ownerID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find venues for owner: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode venue ids: %w", err)
	}

	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.ID.Hex()
	}
	return ids, nil
}

