package model

import "time"

// Slot is the ledger record of one half-hour interval of a venue on a given
// day. A missing record means the interval was never touched and is free.
type Slot struct {
	ID        string    `json:"id" bson:"_id,omitempty"`
	VenueID   string    `json:"venue_id" bson:"venue_id"`
	Date      time.Time `json:"date" bson:"date"`
	Time      string    `json:"time" bson:"time"`
	IsBooked  bool      `json:"is_booked" bson:"is_booked"`
	IsBlocked bool      `json:"is_blocked" bson:"is_blocked"`
	BookingID *string   `json:"booking_id" bson:"booking_id"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

func (s *Slot) Available() bool {
	return !s.IsBooked && !s.IsBlocked
}

type SlotAvailability struct {
	Time        string `json:"time"`
	IsAvailable bool   `json:"is_available"`
	IsBooked    bool   `json:"is_booked"`
	IsBlocked   bool   `json:"is_blocked"`
}
