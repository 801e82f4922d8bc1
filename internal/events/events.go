// Package events publishes booking lifecycle changes so downstream services
// (notifications, payouts) can react without polling the bookings collection.
package events

import (
	"context"
	"time"

	"turfbook/pkg/calendar"
	"turfbook/pkg/model"
)

const SchemaVersion = "1"

type Type string

const (
	BookingCreated   Type = "booking.created"
	BookingConfirmed Type = "booking.confirmed"
	BookingCancelled Type = "booking.cancelled"
	BookingExpired   Type = "booking.expired"
	BookingRefundDue Type = "booking.refund_due"
)

type BookingEvent struct {
	Type          Type      `json:"type"`
	BookingID     string    `json:"booking_id"`
	UserID        string    `json:"user_id"`
	VenueID       string    `json:"venue_id"`
	Date          string    `json:"date"`
	StartTime     string    `json:"start_time"`
	EndTime       string    `json:"end_time,omitempty"`
	Status        string    `json:"status"`
	TotalAmount   float64   `json:"total_amount"`
	AdvanceAmount float64   `json:"advance_amount"`
	RefundStatus  string    `json:"refund_status,omitempty"`
	RefundAmount  float64   `json:"refund_amount,omitempty"`
	Reason        string    `json:"reason,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

func NewBookingEvent(eventType Type, b *model.Booking) BookingEvent {
	e := BookingEvent{
		Type:          eventType,
		BookingID:     b.ID,
		UserID:        b.UserID,
		VenueID:       b.VenueID,
		Date:          calendar.FormatDay(b.Date),
		StartTime:     b.StartTime,
		Status:        b.Status,
		TotalAmount:   b.TotalAmount,
		AdvanceAmount: b.AdvanceAmount,
		RefundStatus:  b.RefundStatus,
		RefundAmount:  b.RefundAmount,
		Reason:        b.CancellationReason,
		OccurredAt:    time.Now().UTC(),
	}
	if b.EndTime != nil {
		e.EndTime = *b.EndTime
	}
	return e
}

// Publisher emits lifecycle events after the booking change is persisted.
// Implementations must not block the caller for longer than ctx allows.
type Publisher interface {
	Publish(ctx context.Context, eventType Type, booking *model.Booking) error
	Close() error
}

// Noop discards events. Used when no brokers are configured.
type Noop struct{}

func (Noop) Publish(context.Context, Type, *model.Booking) error { return nil }
func (Noop) Close() error                                        { return nil }
