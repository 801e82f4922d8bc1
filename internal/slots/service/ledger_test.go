package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"turfbook/internal/slots/slotstest"
	apperrors "turfbook/pkg/errors"
	"turfbook/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const venue = "65f0000000000000000000aa"

var day = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

func newLedger() (*Ledger, *slotstest.Repository) {
	repo := slotstest.NewRepository()
	return NewLedger(repo, logger.Discard()), repo
}

func TestClaim_CreatesMissingSlot(t *testing.T) {
	ledger, repo := newLedger()

	slot, err := ledger.Claim(context.Background(), venue, day, "10:00", "b1")
	require.NoError(t, err)
	assert.True(t, slot.IsBooked)
	require.NotNil(t, slot.BookingID)
	assert.Equal(t, "b1", *slot.BookingID)
	assert.Equal(t, 1, repo.Len())
}

func TestClaim_NormalizesDayBeforeLookup(t *testing.T) {
	ledger, repo := newLedger()
	late := day.Add(23 * time.Hour)

	_, err := ledger.Claim(context.Background(), venue, late, "10:00", "b1")
	require.NoError(t, err)
	assert.NotNil(t, repo.Get(venue, day, "10:00"))
}

func TestClaim_RejectsBookedOrBlocked(t *testing.T) {
	ledger, repo := newLedger()
	other := "b0"
	repo.Put(venue, day, "10:00", true, false, &other)
	repo.Put(venue, day, "10:30", false, true, nil)

	for _, key := range []string{"10:00", "10:30"} {
		_, err := ledger.Claim(context.Background(), venue, day, key, "b1")
		require.Error(t, err)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))
		assert.Equal(t, key, apperrors.AsAppError(err).Details["time"])
	}
}

func TestClaim_RejectsOffGridKey(t *testing.T) {
	ledger, repo := newLedger()

	for _, key := range []string{"10:15", "25:00", "ten"} {
		_, err := ledger.Claim(context.Background(), venue, day, key, "b1")
		assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput), key)
	}
	assert.Equal(t, 0, repo.Len())
}

func TestClaim_ConcurrentSingleWinner(t *testing.T) {
	ledger, repo := newLedger()

	const racers = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		wins      int
		conflicts int
	)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			_, err := ledger.Claim(context.Background(), venue, day, "14:00", string(rune('a'+id)))
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				wins++
			} else if apperrors.HasCode(err, apperrors.CodeConflict) {
				conflicts++
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, racers-1, conflicts)
	assert.Equal(t, 1, repo.Len())
}

func TestClaimAll_RollsBackOnConflict(t *testing.T) {
	ledger, repo := newLedger()
	other := "b0"
	repo.Put(venue, day, "11:00", true, false, &other)

	_, err := ledger.ClaimAll(context.Background(), venue, day, []string{"10:00", "10:30", "11:00", "11:30"}, "b1")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))

	assert.Empty(t, repo.BookedBy("b1"))
	assert.Equal(t, []string{"11:00"}, repo.BookedBy("b0"))
}

func TestClaimAll_RollsBackOnStorageError(t *testing.T) {
	ledger, repo := newLedger()
	repo.FailClaimAt = 2
	repo.FailErr = errors.New("connection reset")

	_, err := ledger.ClaimAll(context.Background(), venue, day, []string{"10:00", "10:30"}, "b1")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInternal))
	assert.Empty(t, repo.BookedBy("b1"))
}

func TestRelease_Idempotent(t *testing.T) {
	ledger, repo := newLedger()
	slot, err := ledger.Claim(context.Background(), venue, day, "09:00", "b1")
	require.NoError(t, err)

	require.NoError(t, ledger.Release(context.Background(), slot.ID))
	once := repo.Get(venue, day, "09:00")
	require.NoError(t, ledger.Release(context.Background(), slot.ID))
	twice := repo.Get(venue, day, "09:00")

	assert.Equal(t, once, twice)
	assert.False(t, twice.IsBooked)
	assert.Nil(t, twice.BookingID)
}

func TestRelease_InvalidID(t *testing.T) {
	ledger, _ := newLedger()
	err := ledger.Release(context.Background(), "not-an-id")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput))
}

func TestReleaseForBooking_SkipsReclaimedSlots(t *testing.T) {
	ledger, repo := newLedger()
	_, err := ledger.ClaimAll(context.Background(), venue, day, []string{"10:00", "10:30"}, "b1")
	require.NoError(t, err)

	// 10:30 was freed and then taken by someone else.
	other := "b2"
	repo.Put(venue, day, "10:30", true, false, &other)

	n, err := ledger.ReleaseForBooking(context.Background(), venue, day, []string{"10:00", "10:30"}, "b1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, []string{"10:30"}, repo.BookedBy("b2"))
}

func TestFindSlots_ReturnsOnlyExisting(t *testing.T) {
	ledger, repo := newLedger()
	repo.Put(venue, day, "10:30", false, true, nil)

	slots, err := ledger.FindSlots(context.Background(), venue, day, []string{"10:00", "10:30", "11:00"})
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, "10:30", slots[0].Time)
	assert.True(t, slots[0].IsBlocked)
}
