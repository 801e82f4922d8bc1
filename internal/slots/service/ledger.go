package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	slotserrors "turfbook/internal/slots/errors"
	"turfbook/internal/slots/repository"
	"turfbook/pkg/calendar"
	apperrors "turfbook/pkg/errors"
	"turfbook/pkg/logger"
	"turfbook/pkg/model"
)

// Ledger is the only writer of slot records. Every key it accepts must lie
// on the half-hour grid.
type Ledger struct {
	repo repository.SlotRepository
	log  *logger.Logger
}

func NewLedger(repo repository.SlotRepository, log *logger.Logger) *Ledger {
	return &Ledger{repo: repo, log: log}
}

func validateKeys(keys []string) error {
	for _, k := range keys {
		if _, err := calendar.ParseTimeKey(k); err != nil {
			return apperrors.InvalidInput(err.Error())
		}
	}
	return nil
}

// FindSlots returns the existing records among keys. A key with no record
// has never been touched and counts as available.
func (l *Ledger) FindSlots(ctx context.Context, venueID string, day time.Time, keys []string) ([]*model.Slot, error) {
	if err := validateKeys(keys); err != nil {
		return nil, err
	}
	slots, err := l.repo.FindByKeys(ctx, venueID, calendar.NormalizeDay(day), keys)
	if err != nil {
		return nil, apperrors.Internal("Failed to read slots", err)
	}
	return slots, nil
}

func (l *Ledger) ListForDay(ctx context.Context, venueID string, day time.Time) ([]*model.Slot, error) {
	slots, err := l.repo.FindByDay(ctx, venueID, calendar.NormalizeDay(day))
	if err != nil {
		return nil, apperrors.Internal("Failed to read slots", err)
	}
	return slots, nil
}

func (l *Ledger) Claim(ctx context.Context, venueID string, day time.Time, key string, bookingID string) (*model.Slot, error) {
	if err := validateKeys([]string{key}); err != nil {
		return nil, err
	}

	slot, err := l.repo.Claim(ctx, venueID, calendar.NormalizeDay(day), key, bookingID)
	if err != nil {
		if errors.Is(err, slotserrors.ErrSlotTaken) {
			return nil, apperrors.Conflict(fmt.Sprintf("Slot %s was taken by another reservation", key)).
				WithDetails(map[string]any{"time": key})
		}
		return nil, apperrors.Internal("Failed to claim slot", err)
	}
	return slot, nil
}

// ClaimAll claims keys in order. If any claim fails, every slot claimed in
// this call is released before the error is returned.
func (l *Ledger) ClaimAll(ctx context.Context, venueID string, day time.Time, keys []string, bookingID string) ([]*model.Slot, error) {
	if err := validateKeys(keys); err != nil {
		return nil, err
	}

	claimed := make([]*model.Slot, 0, len(keys))
	for _, key := range keys {
		slot, err := l.Claim(ctx, venueID, day, key, bookingID)
		if err != nil {
			l.rollback(ctx, claimed, bookingID)
			return nil, err
		}
		claimed = append(claimed, slot)
	}
	return claimed, nil
}

func (l *Ledger) rollback(ctx context.Context, claimed []*model.Slot, bookingID string) {
	// The request context may already be done; rollback must still run.
	ctx = context.WithoutCancel(ctx)
	for _, slot := range claimed {
		if err := l.Release(ctx, slot.ID); err != nil {
			l.log.Error("failed to roll back claimed slot",
				"slot_id", slot.ID,
				"time", slot.Time,
				"booking_id", bookingID,
				"error", err,
			)
		}
	}
}

// Release frees a slot. Releasing a free or unknown slot is a no-op.
func (l *Ledger) Release(ctx context.Context, slotID string) error {
	if err := l.repo.Release(ctx, slotID); err != nil {
		if errors.Is(err, slotserrors.ErrInvalidID) {
			return apperrors.InvalidInput(err.Error())
		}
		return apperrors.Internal("Failed to release slot", err)
	}
	return nil
}

// ReleaseForBooking frees the keys still held by bookingID and reports how
// many were released.
func (l *Ledger) ReleaseForBooking(ctx context.Context, venueID string, day time.Time, keys []string, bookingID string) (int64, error) {
	if err := validateKeys(keys); err != nil {
		return 0, err
	}
	n, err := l.repo.ReleaseForBooking(ctx, venueID, calendar.NormalizeDay(day), keys, bookingID)
	if err != nil {
		return 0, apperrors.Internal("Failed to release slots", err)
	}
	return n, nil
}
