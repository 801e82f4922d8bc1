package model

import (
	"testing"

	"turfbook/pkg/calendar"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestBooking_Range(t *testing.T) {
	tests := []struct {
		name    string
		booking Booking
		want    calendar.Range
	}{
		{
			name:    "explicit range",
			booking: Booking{StartTime: "10:00", EndTime: strPtr("12:00"), DurationHours: 2},
			want:    calendar.MustRange("10:00", "12:00"),
		},
		{
			name:    "legacy booking uses duration",
			booking: Booking{Time: "18:00", DurationHours: 1.5},
			want:    calendar.MustRange("18:00", "19:30"),
		},
		{
			name:    "legacy booking without duration defaults to an hour",
			booking: Booking{Time: "07:00"},
			want:    calendar.MustRange("07:00", "08:00"),
		},
		{
			name:    "empty end time falls back to duration",
			booking: Booking{StartTime: "09:00", EndTime: strPtr(""), DurationHours: 0.5},
			want:    calendar.MustRange("09:00", "09:30"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.booking.Range()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBooking_IsTerminal(t *testing.T) {
	assert.False(t, (&Booking{Status: BookingPending}).IsTerminal())
	assert.False(t, (&Booking{Status: BookingConfirmed}).IsTerminal())
	assert.True(t, (&Booking{Status: BookingCancelled}).IsTerminal())
	assert.True(t, (&Booking{Status: BookingCompleted}).IsTerminal())
}

func TestVenue_Bookable(t *testing.T) {
	assert.True(t, (&Venue{IsActive: true, IsApproved: true}).Bookable())
	assert.False(t, (&Venue{IsActive: true}).Bookable())
	assert.False(t, (&Venue{IsApproved: true}).Bookable())
}

func TestSlot_Available(t *testing.T) {
	assert.True(t, (&Slot{}).Available())
	assert.False(t, (&Slot{IsBooked: true}).Available())
	assert.False(t, (&Slot{IsBlocked: true}).Available())
}
