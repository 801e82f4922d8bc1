package service

import (
	"context"

	"turfbook/pkg/calendar"
	apperrors "turfbook/pkg/errors"
	"turfbook/pkg/model"
)

// ListAvailableSlots lays the venue's operating hours out on the half-hour
// grid for one day and marks every interval the ledger holds as booked or
// blocked. Intervals without a ledger record are free.
func (s *bookingService) ListAvailableSlots(ctx context.Context, venueID string, date string) ([]model.SlotAvailability, error) {
	if venueID == "" {
		return nil, apperrors.InvalidInput("Venue ID cannot be empty")
	}
	day, err := calendar.ParseDay(date)
	if err != nil {
		return nil, apperrors.InvalidInput(err.Error())
	}

	venue, err := s.findVenue(ctx, venueID)
	if err != nil {
		return nil, err
	}

	hours, err := s.operatingHours(venue)
	if err != nil {
		return nil, err
	}

	records, err := s.ledger.ListForDay(ctx, venue.ID, day)
	if err != nil {
		return nil, err
	}
	byTime := make(map[string]*model.Slot, len(records))
	for _, slot := range records {
		byTime[slot.Time] = slot
	}

	keys := hours.Keys()
	grid := make([]model.SlotAvailability, 0, len(keys))
	for _, key := range keys {
		entry := model.SlotAvailability{Time: key, IsAvailable: true}
		if slot, ok := byTime[key]; ok {
			entry.IsBooked = slot.IsBooked
			entry.IsBlocked = slot.IsBlocked
			entry.IsAvailable = slot.Available()
		}
		grid = append(grid, entry)
	}
	return grid, nil
}
