package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	slotserrors "turfbook/internal/slots/errors"
	"turfbook/pkg/calendar"
	"turfbook/pkg/config"
	"turfbook/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Slots"
)

type mongoSlotRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

// SlotRepository stores one record per (venue, day, time key). Days are UTC
// midnights and are always queried as [dayStart, dayStart+1day).
type SlotRepository interface {
	FindByKeys(ctx context.Context, venueID string, day time.Time, keys []string) ([]*model.Slot, error)
	FindByDay(ctx context.Context, venueID string, day time.Time) ([]*model.Slot, error)
	Claim(ctx context.Context, venueID string, day time.Time, key string, bookingID string) (*model.Slot, error)
	Release(ctx context.Context, slotID string) error
	ReleaseForBooking(ctx context.Context, venueID string, day time.Time, keys []string, bookingID string) (int64, error)
}

func NewMongoSlotRepository(cfg *config.Config) SlotRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoSlotRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

func (r *mongoSlotRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}

	deadline, hasDeadline := ctx.Deadline()
	if hasDeadline && time.Until(deadline) < timeout {
		return context.WithDeadline(ctx, deadline)
	}
	return context.WithTimeout(ctx, timeout)
}

func dayFilter(venueID string, day time.Time) bson.M {
	start, end := calendar.DayRange(day)
	return bson.M{
		"venue_id": venueID,
		"date":     bson.M{"$gte": start, "$lt": end},
	}
}

func (r *mongoSlotRepository) FindByKeys(ctx context.Context, venueID string, day time.Time, keys []string) ([]*model.Slot, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := dayFilter(venueID, day)
	filter["time"] = bson.M{"$in": keys}

	return r.find(ctx, filter)
}

func (r *mongoSlotRepository) FindByDay(ctx context.Context, venueID string, day time.Time) ([]*model.Slot, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	return r.find(ctx, dayFilter(venueID, day))
}

func (r *mongoSlotRepository) find(ctx context.Context, filter bson.M) ([]*model.Slot, error) {
	opts := options.Find().SetSort(bson.D{{Key: "time", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find slots: %w", err)
	}
	defer cursor.Close(ctx)

	var slots []*model.Slot
	if err = cursor.All(ctx, &slots); err != nil {
		return nil, fmt.Errorf("failed to decode slots: %w", err)
	}
	return slots, nil
}

// Claim marks the slot booked for bookingID in a single conditional upsert.
// The filter only matches a free record, so a booked or blocked one makes the
// upsert attempt an insert that the unique (venue_id, date, time) index
// rejects. Two racing claims on a missing record resolve the same way.
func (r *mongoSlotRepository) Claim(ctx context.Context, venueID string, day time.Time, key string, bookingID string) (*model.Slot, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)

	filter := dayFilter(venueID, day)
	filter["time"] = key
	filter["is_booked"] = false
	filter["is_blocked"] = false

	update := bson.M{
		"$set": bson.M{
			"is_booked":  true,
			"booking_id": bookingID,
			"updated_at": now,
		},
		"$setOnInsert": bson.M{
			"date":       calendar.NormalizeDay(day),
			"created_at": now,
		},
	}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var slot model.Slot
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&slot)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) || errors.Is(err, mongo.ErrNoDocuments) {
			return nil, slotserrors.ErrSlotTaken
		}
		return nil, fmt.Errorf("failed to claim slot %s: %w", key, err)
	}
	return &slot, nil
}

func (r *mongoSlotRepository) Release(ctx context.Context, slotID string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(slotID)
	if err != nil {
		return fmt.Errorf("%w: %s", slotserrors.ErrInvalidID, slotID)
	}

	_, err = r.collection.UpdateOne(ctx, bson.M{"_id": objectID}, releaseUpdate())
	if err != nil {
		return fmt.Errorf("failed to release slot: %w", err)
	}
	return nil
}

// ReleaseForBooking frees the listed keys only where they still point at
// bookingID, leaving slots re-claimed by another booking untouched.
func (r *mongoSlotRepository) ReleaseForBooking(ctx context.Context, venueID string, day time.Time, keys []string, bookingID string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}

	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := dayFilter(venueID, day)
	filter["time"] = bson.M{"$in": keys}
	filter["booking_id"] = bookingID

	result, err := r.collection.UpdateMany(ctx, filter, releaseUpdate())
	if err != nil {
		return 0, fmt.Errorf("failed to release slots for booking %s: %w", bookingID, err)
	}
	return result.ModifiedCount, nil
}

func releaseUpdate() bson.M {
	return bson.M{
		"$set": bson.M{
			"is_booked":  false,
			"booking_id": nil,
			"updated_at": time.Now().UTC().Truncate(time.Millisecond),
		},
	}
}
