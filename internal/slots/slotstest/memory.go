// Package slotstest provides an in-memory slot repository with the same
// uniqueness and conditional-claim semantics as the Mongo one.
package slotstest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	slotserrors "turfbook/internal/slots/errors"
	"turfbook/pkg/calendar"
	"turfbook/pkg/model"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Repository struct {
	mu     sync.Mutex
	byKey  map[string]*model.Slot
	byID   map[string]*model.Slot
	claims int
	// FailClaimAt, when positive, makes the Nth claim call fail with FailErr.
	FailClaimAt int
	FailErr     error
	// BeforeClaim, when set, runs ahead of every claim without the lock held,
	// so a test can slip a competing reservation in between two claims.
	BeforeClaim func(key string, bookingID string)
}

func NewRepository() *Repository {
	return &Repository{
		byKey: make(map[string]*model.Slot),
		byID:  make(map[string]*model.Slot),
	}
}

func slotKey(venueID string, day time.Time, key string) string {
	return fmt.Sprintf("%s|%s|%s", venueID, calendar.FormatDay(day), key)
}

// Put stores a slot record directly, as an owner block or a pre-existing
// booking would have.
func (r *Repository) Put(venueID string, day time.Time, key string, booked, blocked bool, bookingID *string) *model.Slot {
	r.mu.Lock()
	defer r.mu.Unlock()

	slot := &model.Slot{
		ID:        primitive.NewObjectID().Hex(),
		VenueID:   venueID,
		Date:      calendar.NormalizeDay(day),
		Time:      key,
		IsBooked:  booked,
		IsBlocked: blocked,
		BookingID: bookingID,
	}
	r.byKey[slotKey(venueID, day, key)] = slot
	r.byID[slot.ID] = slot
	return slot
}

// Get returns a copy of the stored record, or nil.
func (r *Repository) Get(venueID string, day time.Time, key string) *model.Slot {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.byKey[slotKey(venueID, day, key)]; ok {
		cp := *s
		return &cp
	}
	return nil
}

// BookedBy lists the time keys currently booked for bookingID, sorted.
func (r *Repository) BookedBy(bookingID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var keys []string
	for _, s := range r.byKey {
		if s.IsBooked && s.BookingID != nil && *s.BookingID == bookingID {
			keys = append(keys, s.Time)
		}
	}
	sort.Strings(keys)
	return keys
}

// Len reports the number of stored records.
func (r *Repository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byKey)
}

func (r *Repository) FindByKeys(_ context.Context, venueID string, day time.Time, keys []string) ([]*model.Slot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*model.Slot
	for _, k := range keys {
		if s, ok := r.byKey[slotKey(venueID, day, k)]; ok {
			cp := *s
			out = append(out, &cp)
		}
	}
	sortByTime(out)
	return out, nil
}

func (r *Repository) FindByDay(_ context.Context, venueID string, day time.Time) ([]*model.Slot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	prefix := fmt.Sprintf("%s|%s|", venueID, calendar.FormatDay(day))
	var out []*model.Slot
	for k, s := range r.byKey {
		if len(k) > len(prefix) && k[:len(prefix)] == prefix {
			cp := *s
			out = append(out, &cp)
		}
	}
	sortByTime(out)
	return out, nil
}

func (r *Repository) Claim(_ context.Context, venueID string, day time.Time, key string, bookingID string) (*model.Slot, error) {
	if r.BeforeClaim != nil {
		r.BeforeClaim(key, bookingID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.claims++
	if r.FailClaimAt > 0 && r.claims == r.FailClaimAt {
		return nil, r.FailErr
	}

	k := slotKey(venueID, day, key)
	slot, ok := r.byKey[k]
	if ok && !slot.Available() {
		return nil, slotserrors.ErrSlotTaken
	}
	if !ok {
		slot = &model.Slot{
			ID:      primitive.NewObjectID().Hex(),
			VenueID: venueID,
			Date:    calendar.NormalizeDay(day),
			Time:    key,
		}
		r.byKey[k] = slot
		r.byID[slot.ID] = slot
	}
	id := bookingID
	slot.IsBooked = true
	slot.BookingID = &id

	cp := *slot
	return &cp, nil
}

func (r *Repository) Release(_ context.Context, slotID string) error {
	if !primitive.IsValidObjectID(slotID) {
		return fmt.Errorf("%w: %s", slotserrors.ErrInvalidID, slotID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.byID[slotID]; ok {
		s.IsBooked = false
		s.BookingID = nil
	}
	return nil
}

func (r *Repository) ReleaseForBooking(_ context.Context, venueID string, day time.Time, keys []string, bookingID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var released int64
	for _, k := range keys {
		s, ok := r.byKey[slotKey(venueID, day, k)]
		if !ok || s.BookingID == nil || *s.BookingID != bookingID {
			continue
		}
		s.IsBooked = false
		s.BookingID = nil
		released++
	}
	return released, nil
}

func sortByTime(slots []*model.Slot) {
	sort.Slice(slots, func(i, j int) bool { return slots[i].Time < slots[j].Time })
}
