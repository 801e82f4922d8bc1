package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	bookingserrors "turfbook/internal/bookings/errors"
	"turfbook/pkg/config"
	mongotx "turfbook/pkg/db/mongo"
	"turfbook/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Bookings"
)

// Cancellation is the bookkeeping written when a booking is cancelled.
type Cancellation struct {
	Reason       string
	At           time.Time
	RefundStatus string
	RefundAmount float64
}

// StaleQuery pages through pending bookings created before CreatedBefore in
// (created_at, _id) order. A non-empty AfterID resumes past that booking.
type StaleQuery struct {
	CreatedBefore  time.Time
	AfterCreatedAt time.Time
	AfterID        string
	Limit          int
}

type BookingRepository interface {
	Create(ctx context.Context, booking *model.Booking) error
	FindByID(ctx context.Context, id string) (*model.Booking, error)
	FindByOrderID(ctx context.Context, orderID string) (*model.Booking, error)
	FindByUser(ctx context.Context, userID string, limit int, offset int64) ([]*model.Booking, error)
	CountByUser(ctx context.Context, userID string) (int64, error)
	FindByVenues(ctx context.Context, venueIDs []string, limit int, offset int64) ([]*model.Booking, error)
	CountByVenues(ctx context.Context, venueIDs []string) (int64, error)
	// Confirm moves a pending booking to confirmed with the advance marked paid.
	Confirm(ctx context.Context, id string, transactionID string) (*model.Booking, error)
	// Cancel moves the booking to cancelled only if its status is one of from.
	Cancel(ctx context.Context, id string, from []string, c Cancellation) (*model.Booking, error)
	// RecordLatePayment marks a booking cancelled for one of reasons as paid
	// after the fact, with refundAmount owed back. It only applies once.
	RecordLatePayment(ctx context.Context, id string, transactionID string, refundAmount float64, reasons []string) (*model.Booking, error)
	FindStalePending(ctx context.Context, q StaleQuery) ([]*model.Booking, error)
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

type mongoBookingRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

func NewMongoBookingRepository(cfg *config.Config) BookingRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoBookingRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

// withTimeout wraps the context with a timeout if not already in a transaction.
// A SessionContext cannot be wrapped without dropping the session, so it is
// returned unchanged.
func (r *mongoBookingRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}

	deadline, hasDeadline := ctx.Deadline()
	if !hasDeadline {
		return context.WithTimeout(ctx, timeout)
	}

	remaining := time.Until(deadline)
	if remaining < timeout {
		return context.WithTimeout(ctx, remaining)
	}

	return context.WithTimeout(ctx, timeout)
}

// Create inserts the booking. Its id is minted by the caller before slots are
// claimed, so the slots can point back at it.
func (r *mongoBookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	if booking.ID == "" {
		booking.ID = primitive.NewObjectID().Hex()
	}
	booking.CreatedAt = now
	booking.UpdatedAt = now

	if _, err := r.collection.InsertOne(ctx, booking); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s", bookingserrors.ErrDuplicateOrder, booking.PaymentOrderID)
		}
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

func (r *mongoBookingRepository) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	if !primitive.IsValidObjectID(id) {
		return nil, fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *mongoBookingRepository) FindByOrderID(ctx context.Context, orderID string) (*model.Booking, error) {
	return r.findOne(ctx, bson.M{"payment_order_id": orderID})
}

func (r *mongoBookingRepository) findOne(ctx context.Context, filter bson.M) (*model.Booking, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var booking model.Booking
	err := r.collection.FindOne(ctx, filter).Decode(&booking)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, bookingserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find booking: %w", err)
	}
	return &booking, nil
}

func (r *mongoBookingRepository) FindByUser(ctx context.Context, userID string, limit int, offset int64) ([]*model.Booking, error) {
	return r.findMany(ctx, bson.M{"user_id": userID}, limit, offset)
}

func (r *mongoBookingRepository) CountByUser(ctx context.Context, userID string) (int64, error) {
	return r.count(ctx, bson.M{"user_id": userID})
}

func (r *mongoBookingRepository) FindByVenues(ctx context.Context, venueIDs []string, limit int, offset int64) ([]*model.Booking, error) {
	if len(venueIDs) == 0 {
		return []*model.Booking{}, nil
	}
	return r.findMany(ctx, bson.M{"venue_id": bson.M{"$in": venueIDs}}, limit, offset)
}

func (r *mongoBookingRepository) CountByVenues(ctx context.Context, venueIDs []string) (int64, error) {
	if len(venueIDs) == 0 {
		return 0, nil
	}
	return r.count(ctx, bson.M{"venue_id": bson.M{"$in": venueIDs}})
}

func (r *mongoBookingRepository) findMany(ctx context.Context, filter bson.M, limit int, offset int64) ([]*model.Booking, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find bookings: %w", err)
	}
	defer cursor.Close(ctx)

	bookings := []*model.Booking{}
	if err = cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("failed to decode bookings: %w", err)
	}
	return bookings, nil
}

func (r *mongoBookingRepository) count(ctx context.Context, filter bson.M) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count bookings: %w", err)
	}
	return count, nil
}

func (r *mongoBookingRepository) Confirm(ctx context.Context, id string, transactionID string) (*model.Booking, error) {
	update := bson.M{
		"$set": bson.M{
			"status":                 model.BookingConfirmed,
			"is_advance_paid":        true,
			"payment_transaction_id": transactionID,
			"updated_at":             time.Now().UTC().Truncate(time.Millisecond),
		},
	}
	return r.transition(ctx, id, []string{model.BookingPending}, update)
}

func (r *mongoBookingRepository) Cancel(ctx context.Context, id string, from []string, c Cancellation) (*model.Booking, error) {
	at := c.At.UTC().Truncate(time.Millisecond)
	update := bson.M{
		"$set": bson.M{
			"status":              model.BookingCancelled,
			"cancelled_at":        at,
			"cancellation_reason": c.Reason,
			"refund_status":       c.RefundStatus,
			"refund_amount":       c.RefundAmount,
			"updated_at":          at,
		},
	}
	return r.transition(ctx, id, from, update)
}

func (r *mongoBookingRepository) RecordLatePayment(ctx context.Context, id string, transactionID string, refundAmount float64, reasons []string) (*model.Booking, error) {
	update := bson.M{
		"$set": bson.M{
			"is_advance_paid":        true,
			"payment_transaction_id": transactionID,
			"refund_status":          model.RefundPending,
			"refund_amount":          refundAmount,
			"updated_at":             time.Now().UTC().Truncate(time.Millisecond),
		},
	}
	return r.updateWhere(ctx, id, bson.M{
		"status":              model.BookingCancelled,
		"is_advance_paid":     false,
		"cancellation_reason": bson.M{"$in": reasons},
	}, update)
}

// transition applies update only while the booking is in one of the from
// statuses. A miss is reported as ErrStatusChanged, or ErrNotFound when the
// booking does not exist at all.
func (r *mongoBookingRepository) transition(ctx context.Context, id string, from []string, update bson.M) (*model.Booking, error) {
	return r.updateWhere(ctx, id, bson.M{"status": bson.M{"$in": from}}, update)
}

func (r *mongoBookingRepository) updateWhere(ctx context.Context, id string, guard bson.M, update bson.M) (*model.Booking, error) {
	if !primitive.IsValidObjectID(id) {
		return nil, fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}

	writeCtx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{"_id": id}
	for k, v := range guard {
		filter[k] = v
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var booking model.Booking
	err := r.collection.FindOneAndUpdate(writeCtx, filter, update, opts).Decode(&booking)
	if err == nil {
		return &booking, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("failed to update booking status: %w", err)
	}

	if _, findErr := r.FindByID(ctx, id); findErr != nil {
		return nil, findErr
	}
	return nil, bookingserrors.ErrStatusChanged
}

func (r *mongoBookingRepository) FindStalePending(ctx context.Context, q StaleQuery) ([]*model.Booking, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"status":     model.BookingPending,
		"created_at": bson.M{"$lt": q.CreatedBefore},
	}
	if q.AfterID != "" {
		after := q.AfterCreatedAt.UTC().Truncate(time.Millisecond)
		filter["$or"] = bson.A{
			bson.M{"created_at": bson.M{"$gt": after}},
			bson.M{"created_at": after, "_id": bson.M{"$gt": q.AfterID}},
		}
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(q.Limit))

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find stale bookings: %w", err)
	}
	defer cursor.Close(ctx)

	var bookings []*model.Booking
	if err = cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("failed to decode stale bookings: %w", err)
	}
	return bookings, nil
}

func (r *mongoBookingRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
