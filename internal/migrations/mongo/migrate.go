package mongo

import (
	"context"
	"fmt"

	bookingrepo "turfbook/internal/bookings/repository"
	"turfbook/internal/migrations/mongo/validators"
	slotrepo "turfbook/internal/slots/repository"
	venuerepo "turfbook/internal/venues/repository"
	"turfbook/pkg/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CollectionSpec is the schema and index set one collection must carry. A nil
// Validator means the collection belongs to another service and only its
// indexes are ensured.
type CollectionSpec struct {
	Name      string
	Indexes   []mongo.IndexModel
	Validator bson.M
}

var (
	// The unique slot index is what makes a concurrent claim of the same
	// half-hour fail for every caller but one.
	SlotsIndexes = []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "venue_id", Value: 1},
				{Key: "date", Value: 1},
				{Key: "time", Value: 1},
			},
			Options: options.Index().SetName("uniq_venue_date_time").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "booking_id", Value: 1}},
			Options: options.Index().SetName("booking_id").SetSparse(true),
		},
	}

	BookingsIndexes = []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "payment_order_id", Value: 1}},
			Options: options.Index().
				SetName("uniq_payment_order_id").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"payment_order_id": bson.M{"$gt": ""}}),
		},
		{
			Keys: bson.D{
				{Key: "user_id", Value: 1},
				{Key: "created_at", Value: -1},
			},
			Options: options.Index().SetName("user_created_at"),
		},
		{
			Keys: bson.D{
				{Key: "venue_id", Value: 1},
				{Key: "created_at", Value: -1},
			},
			Options: options.Index().SetName("venue_created_at"),
		},
		{
			Keys: bson.D{
				{Key: "status", Value: 1},
				{Key: "created_at", Value: 1},
			},
			Options: options.Index().SetName("status_created_at"),
		},
	}

	VenuesIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "owner_id", Value: 1}},
			Options: options.Index().SetName("owner_id"),
		},
	}
)

func Collections() []CollectionSpec {
	return []CollectionSpec{
		{Name: slotrepo.CollectionName, Indexes: SlotsIndexes, Validator: validators.SlotValidator},
		{Name: bookingrepo.CollectionName, Indexes: BookingsIndexes, Validator: validators.BookingValidator},
		{Name: venuerepo.CollectionName, Indexes: VenuesIndexes},
	}
}

func RunMigration(ctx context.Context, client *mongo.Client, dbName string, log *logger.Logger) error {
	db := client.Database(dbName)
	log.Info("Running Mongo migrations", "database", dbName)

	for _, spec := range Collections() {
		if spec.Validator != nil {
			if err := ensureCollection(ctx, db, spec.Name, spec.Validator, log); err != nil {
				return fmt.Errorf("failed to ensure collection %s: %w", spec.Name, err)
			}
		}
		if err := ensureIndexes(ctx, db, spec.Name, spec.Indexes, log); err != nil {
			return fmt.Errorf("failed to ensure indexes for %s: %w", spec.Name, err)
		}
	}

	log.Info("All migrations applied successfully")
	return nil
}

func ensureCollection(ctx context.Context, db *mongo.Database, name string, validator bson.M, log *logger.Logger) error {
	existing, err := db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return err
	}

	if len(existing) == 0 {
		log.Info("Creating collection", "collection", name)
		opts := options.CreateCollection().SetValidator(validator)
		if err := db.CreateCollection(ctx, name, opts); err != nil {
			return fmt.Errorf("failed creating %s: %w", name, err)
		}
		return nil
	}

	log.Info("Collection already exists, updating validator", "collection", name)
	command := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
	}
	if err := db.RunCommand(ctx, command).Err(); err != nil {
		log.Warn("Failed updating validator", "collection", name, "error", err)
	}
	return nil
}

func ensureIndexes(ctx context.Context, db *mongo.Database, name string, models []mongo.IndexModel, log *logger.Logger) error {
	names, err := db.Collection(name).Indexes().CreateMany(ctx, models)
	if err != nil {
		return err
	}
	log.Info("Ensured indexes", "collection", name, "indexes", names)
	return nil
}
