package repository_test

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	migrations "turfbook/internal/migrations/mongo"
	slotserrors "turfbook/internal/slots/errors"
	"turfbook/internal/slots/repository"
	"turfbook/pkg/client"
	"turfbook/pkg/config"
	"turfbook/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const testVenue = "65f0a1b2c3d4e5f6a7b8c9d0"

// setupSlotRepository connects to TEST_MONGO_URI, migrates a throwaway
// database and drops it when the test ends.
func setupSlotRepository(t *testing.T) (repository.SlotRepository, *mongo.Collection) {
	t.Helper()

	uri := os.Getenv("TEST_MONGO_URI")
	if uri == "" {
		t.Skip("TEST_MONGO_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	mc, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err)
	require.NoError(t, mc.Ping(ctx, nil))

	dbName := fmt.Sprintf("turfbook_test_%d", time.Now().UnixNano())
	require.NoError(t, migrations.RunMigration(ctx, mc, dbName, logger.Discard()))

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = mc.Database(dbName).Drop(ctx)
		_ = mc.Disconnect(ctx)
	})

	cfg := &config.Config{
		MongoDatabaseName: dbName,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      5 * time.Second,
		Log:               logger.Discard(),
		Client:            &client.Client{Mongo: mc},
	}
	return repository.NewMongoSlotRepository(cfg), mc.Database(dbName).Collection(repository.CollectionName)
}

func testDay() time.Time {
	return time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
}

func TestMongoSlotRepository_ClaimIsExclusive(t *testing.T) {
	repo, _ := setupSlotRepository(t)
	ctx := context.Background()

	slot, err := repo.Claim(ctx, testVenue, testDay(), "10:00", "booking-a")
	require.NoError(t, err)
	assert.True(t, slot.IsBooked)
	require.NotNil(t, slot.BookingID)
	assert.Equal(t, "booking-a", *slot.BookingID)

	_, err = repo.Claim(ctx, testVenue, testDay(), "10:00", "booking-b")
	assert.ErrorIs(t, err, slotserrors.ErrSlotTaken)

	// A non-midnight instant on the same day addresses the same record.
	_, err = repo.Claim(ctx, testVenue, testDay().Add(15*time.Hour), "10:00", "booking-b")
	assert.ErrorIs(t, err, slotserrors.ErrSlotTaken)
}

func TestMongoSlotRepository_ConcurrentClaimsHaveOneWinner(t *testing.T) {
	repo, _ := setupSlotRepository(t)

	const racers = 8
	var (
		wg   sync.WaitGroup
		wins atomic.Int32
		lost atomic.Int32
	)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := repo.Claim(context.Background(), testVenue, testDay(), "18:30", fmt.Sprintf("booking-%d", i))
			switch {
			case err == nil:
				wins.Add(1)
			case assert.ErrorIs(t, err, slotserrors.ErrSlotTaken):
				lost.Add(1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, int32(racers-1), lost.Load())
}

func TestMongoSlotRepository_BlockedSlotCannotBeClaimed(t *testing.T) {
	repo, coll := setupSlotRepository(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Millisecond)
	_, err := coll.InsertOne(ctx, bson.M{
		"venue_id":   testVenue,
		"date":       testDay(),
		"time":       "07:00",
		"is_booked":  false,
		"is_blocked": true,
		"booking_id": nil,
		"created_at": now,
		"updated_at": now,
	})
	require.NoError(t, err)

	_, err = repo.Claim(ctx, testVenue, testDay(), "07:00", "booking-a")
	assert.ErrorIs(t, err, slotserrors.ErrSlotTaken)
}

func TestMongoSlotRepository_ReleaseForBookingLeavesOthersAlone(t *testing.T) {
	repo, _ := setupSlotRepository(t)
	ctx := context.Background()

	_, err := repo.Claim(ctx, testVenue, testDay(), "12:00", "booking-a")
	require.NoError(t, err)
	_, err = repo.Claim(ctx, testVenue, testDay(), "12:30", "booking-b")
	require.NoError(t, err)

	released, err := repo.ReleaseForBooking(ctx, testVenue, testDay(), []string{"12:00", "12:30"}, "booking-a")
	require.NoError(t, err)
	assert.Equal(t, int64(1), released)

	slots, err := repo.FindByKeys(ctx, testVenue, testDay(), []string{"12:00", "12:30"})
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.False(t, slots[0].IsBooked)
	assert.Nil(t, slots[0].BookingID)
	assert.True(t, slots[1].IsBooked)

	// A released record is claimable again.
	_, err = repo.Claim(ctx, testVenue, testDay(), "12:00", "booking-c")
	require.NoError(t, err)
}

func TestMongoSlotRepository_ReleaseIsIdempotent(t *testing.T) {
	repo, _ := setupSlotRepository(t)
	ctx := context.Background()

	slot, err := repo.Claim(ctx, testVenue, testDay(), "20:00", "booking-a")
	require.NoError(t, err)

	require.NoError(t, repo.Release(ctx, slot.ID))
	require.NoError(t, repo.Release(ctx, slot.ID))

	day, err := repo.FindByDay(ctx, testVenue, testDay())
	require.NoError(t, err)
	require.Len(t, day, 1)
	assert.True(t, day[0].Available())

	assert.ErrorIs(t, repo.Release(ctx, "not-an-object-id"), slotserrors.ErrInvalidID)
}
