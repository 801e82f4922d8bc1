package events

import (
	"context"

	"turfbook/pkg/kafka"
	"turfbook/pkg/logger"
)

// Notifier turns booking events into user-facing notifications. Delivery
// channels are not wired yet, so every notification is logged.
type Notifier struct {
	log *logger.Logger
}

func NewNotifier(log *logger.Logger) *Notifier {
	return &Notifier{log: log}
}

// Handle is a kafka.MessageHandler. Undecodable payloads are permanent
// failures and are not retried.
func (n *Notifier) Handle(ctx context.Context, msg kafka.Message) error {
	var event BookingEvent
	if err := msg.DecodeValue(&event); err != nil {
		return kafka.NewPermanentError("failed to decode booking event", err)
	}
	if event.BookingID == "" {
		return kafka.NewPermanentError("booking event without booking id", nil)
	}

	attrs := []any{
		"event_id", msg.GetEventID(),
		"booking_id", event.BookingID,
		"user_id", event.UserID,
		"venue_id", event.VenueID,
		"date", event.Date,
		"start_time", event.StartTime,
	}

	switch event.Type {
	case BookingCreated:
		n.log.Info("notify: booking awaiting payment", append(attrs, "advance_amount", event.AdvanceAmount)...)
	case BookingConfirmed:
		n.log.Info("notify: booking confirmed", attrs...)
	case BookingCancelled:
		n.log.Info("notify: booking cancelled", append(attrs,
			"reason", event.Reason,
			"refund_status", event.RefundStatus,
			"refund_amount", event.RefundAmount,
		)...)
	case BookingExpired:
		n.log.Info("notify: booking expired before payment", attrs...)
	case BookingRefundDue:
		n.log.Info("notify: payment received after cancellation, refund due", append(attrs,
			"reason", event.Reason,
			"refund_amount", event.RefundAmount,
		)...)
	default:
		n.log.Warn("ignoring unknown booking event", append(attrs, "type", event.Type)...)
	}
	return nil
}
