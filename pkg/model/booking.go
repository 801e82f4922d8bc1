package model

import (
	"time"

	"turfbook/pkg/calendar"
)

const (
	BookingPending   = "pending"
	BookingConfirmed = "confirmed"
	BookingCancelled = "cancelled"
	BookingCompleted = "completed"

	RefundNone      = "none"
	RefundPending   = "pending"
	RefundProcessed = "processed"
)

type Booking struct {
	ID                   string     `json:"id" bson:"_id"`
	UserID               string     `json:"user_id" bson:"user_id"`
	VenueID              string     `json:"venue_id" bson:"venue_id"`
	SlotID               string     `json:"slot_id" bson:"slot_id"`
	Date                 time.Time  `json:"date" bson:"date"`
	Time                 string     `json:"time" bson:"time"`
	StartTime            string     `json:"start_time" bson:"start_time"`
	EndTime              *string    `json:"end_time" bson:"end_time"`
	DurationHours        float64    `json:"duration_hours" bson:"duration_hours"`
	TotalAmount          float64    `json:"total_amount" bson:"total_amount"`
	AdvanceAmount        float64    `json:"advance_amount" bson:"advance_amount"`
	RemainingAmount      float64    `json:"remaining_amount" bson:"remaining_amount"`
	IsAdvancePaid        bool       `json:"is_advance_paid" bson:"is_advance_paid"`
	IsFullAmountPaid     bool       `json:"is_full_amount_paid" bson:"is_full_amount_paid"`
	PaymentOrderID       string     `json:"payment_order_id" bson:"payment_order_id"`
	PaymentTransactionID string     `json:"payment_transaction_id,omitempty" bson:"payment_transaction_id"`
	Status               string     `json:"status" bson:"status"`
	CancelledAt          *time.Time `json:"cancelled_at,omitempty" bson:"cancelled_at"`
	CancellationReason   string     `json:"cancellation_reason,omitempty" bson:"cancellation_reason"`
	RefundStatus         string     `json:"refund_status" bson:"refund_status"`
	RefundAmount         float64    `json:"refund_amount" bson:"refund_amount"`
	CreatedAt            time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at" bson:"updated_at"`
}

// Range recomputes the slot range the booking claimed. Legacy single-slot
// bookings carry no end time and are expanded from their duration.
func (b *Booking) Range() (calendar.Range, error) {
	start := b.StartTime
	if start == "" {
		start = b.Time
	}
	if b.EndTime != nil && *b.EndTime != "" {
		return calendar.NewRange(start, *b.EndTime)
	}
	hours := b.DurationHours
	if hours <= 0 {
		hours = 1
	}
	return calendar.RangeFromDuration(start, hours)
}

func (b *Booking) IsTerminal() bool {
	return b.Status == BookingCancelled || b.Status == BookingCompleted
}

// CreateBookingRequest accepts either start_time/end_time or the legacy
// time/duration_hours pair.
type CreateBookingRequest struct {
	VenueID       string  `json:"venue_id" validate:"required,mongodb"`
	Date          string  `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime     string  `json:"start_time,omitempty" validate:"omitempty,timekey"`
	EndTime       string  `json:"end_time,omitempty" validate:"omitempty,timekey_end"`
	Time          string  `json:"time,omitempty" validate:"omitempty,timekey"`
	DurationHours float64 `json:"duration_hours,omitempty" validate:"omitempty,gt=0,max=24"`
}

type VerifyPaymentRequest struct {
	OrderID       string `json:"order_id" validate:"required,max=64"`
	TransactionID string `json:"transaction_id" validate:"required,max=64"`
	Signature     string `json:"signature" validate:"required,max=256"`
}

// CancelBookingRequest carries an optional free-text reason. Long reasons are
// truncated rather than rejected.
type CancelBookingRequest struct {
	Reason string `json:"reason,omitempty"`
}

type PaymentStatus struct {
	Status    string   `json:"status"`
	PaymentID string   `json:"payment_id,omitempty"`
	Amount    float64  `json:"amount"`
	Booking   *Booking `json:"booking"`
}
