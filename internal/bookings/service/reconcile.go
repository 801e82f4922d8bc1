package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	bookingserrors "turfbook/internal/bookings/errors"
	"turfbook/internal/bookings/repository"
	"turfbook/internal/bookings/validator"
	"turfbook/internal/events"
	"turfbook/internal/metrics"
	"turfbook/pkg/auth"
	"turfbook/pkg/calendar"
	apperrors "turfbook/pkg/errors"
	"turfbook/pkg/model"
	"turfbook/pkg/payment"
	"turfbook/pkg/sanitizer"
)

const (
	ReasonVerificationFailed = "Payment verification failed"
	ReasonPaymentFailed      = "Payment failed at gateway"
	ReasonPaymentExpired     = "Payment window expired"
	ReasonCancelledByUser    = "Cancelled by user"

	maxReasonLength = 500
)

// rollbackReasons are the cancellations made because payment did not arrive
// in time. The gateway may still capture a retry on the same order, which
// then has to be refunded.
var rollbackReasons = []string{ReasonVerificationFailed, ReasonPaymentFailed, ReasonPaymentExpired}

// VerifyPayment checks the client-supplied signature for an order and
// confirms or rolls back the booking behind it. A mismatch is terminal for
// the booking: its slots are freed and it is cancelled.
func (s *bookingService) VerifyPayment(ctx context.Context, req *model.VerifyPaymentRequest) (*model.Booking, error) {
	booking, result, err := s.verifyPayment(ctx, req)
	s.metrics.PaymentVerification(result)
	return booking, err
}

func (s *bookingService) verifyPayment(ctx context.Context, req *model.VerifyPaymentRequest) (*model.Booking, string, error) {
	if req == nil {
		return nil, metrics.PaymentFailed, apperrors.InvalidInput("Request body is required")
	}
	if err := s.validator.ValidateVerify(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return nil, metrics.PaymentFailed, apperrors.InvalidInput("Payment verification failed: missing parameters").WithDetails(verrs.Details())
		}
		return nil, metrics.PaymentFailed, apperrors.InvalidInput(err.Error())
	}

	booking, err := s.repo.FindByOrderID(ctx, req.OrderID)
	if err != nil {
		return nil, metrics.PaymentFailed, translateBookingError(err, req.OrderID)
	}

	validSignature := s.signer.Verify(req.OrderID, req.TransactionID, req.Signature)

	if booking.Status != model.BookingPending {
		if validSignature && booking.Status == model.BookingConfirmed && booking.PaymentTransactionID == req.TransactionID {
			return booking, metrics.PaymentReplayed, nil
		}
		if validSignature && owesLateRefund(booking, req.TransactionID) {
			refunded, err := s.recordLatePayment(ctx, booking, req.TransactionID)
			if err != nil {
				return nil, metrics.PaymentFailed, err
			}
			return nil, metrics.PaymentLate, apperrors.InvalidState(
				"Booking was cancelled before payment completed; the advance will be refunded", refunded.Status,
			).WithDetails(map[string]any{
				"status":        refunded.Status,
				"refund_status": refunded.RefundStatus,
				"refund_amount": refunded.RefundAmount,
			})
		}
		return nil, metrics.PaymentFailed, apperrors.InvalidState(
			fmt.Sprintf("Booking is %s and cannot be verified", booking.Status), booking.Status)
	}

	if !validSignature {
		s.cfg.Log.Warn("Payment signature mismatch",
			"booking_id", booking.ID,
			"order_id", req.OrderID,
			"transaction_id", req.TransactionID,
		)
		if _, err := s.rollbackPending(ctx, booking, ReasonVerificationFailed, events.BookingCancelled); err != nil {
			return nil, metrics.PaymentFailed, err
		}
		return nil, metrics.PaymentRejected, apperrors.PaymentRejected(ReasonVerificationFailed)
	}

	confirmed, err := s.confirm(ctx, booking, req.TransactionID)
	if err != nil {
		return nil, metrics.PaymentFailed, err
	}
	return confirmed, metrics.PaymentVerified, nil
}

func (s *bookingService) confirm(ctx context.Context, booking *model.Booking, transactionID string) (*model.Booking, error) {
	confirmed, err := s.repo.Confirm(ctx, booking.ID, transactionID)
	if err != nil {
		return nil, s.transitionError(ctx, err, booking.ID, "confirmed")
	}

	s.cfg.Log.Info("Booking confirmed",
		"booking_id", confirmed.ID,
		"order_id", confirmed.PaymentOrderID,
		"transaction_id", transactionID,
	)
	s.publish(ctx, events.BookingConfirmed, confirmed)
	return confirmed, nil
}

// owesLateRefund reports whether a verified payment landed on a booking the
// reconciler had already cancelled for non-payment. A booking already
// flagged for the same transaction still qualifies so retries stay quiet.
func owesLateRefund(booking *model.Booking, transactionID string) bool {
	if booking.Status != model.BookingCancelled || !slices.Contains(rollbackReasons, booking.CancellationReason) {
		return false
	}
	return !booking.IsAdvancePaid || booking.PaymentTransactionID == transactionID
}

// recordLatePayment flags the captured advance of a cancelled booking for
// refund. The slots stay released.
func (s *bookingService) recordLatePayment(ctx context.Context, booking *model.Booking, transactionID string) (*model.Booking, error) {
	if booking.IsAdvancePaid {
		return booking, nil
	}

	refunded, err := s.repo.RecordLatePayment(ctx, booking.ID, transactionID, booking.AdvanceAmount, rollbackReasons)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrStatusChanged) {
			// A concurrent delivery recorded it first.
			return s.findBooking(ctx, booking.ID)
		}
		return nil, translateBookingError(err, booking.ID)
	}

	s.cfg.Log.Warn("Payment captured after booking was cancelled, refund due",
		"booking_id", refunded.ID,
		"order_id", refunded.PaymentOrderID,
		"transaction_id", transactionID,
		"cancellation_reason", refunded.CancellationReason,
		"refund_amount", refunded.RefundAmount,
	)
	s.publish(ctx, events.BookingRefundDue, refunded)
	return refunded, nil
}

// HandlePaymentEvent applies a signature-checked gateway webhook. Events for
// unknown orders or for bookings that already left pending are ignored so
// that gateway retries are harmless, except a capture for a booking cancelled
// for non-payment, which is flagged for refund.
func (s *bookingService) HandlePaymentEvent(ctx context.Context, event *payment.WebhookEvent) error {
	orderID := event.OrderID()
	if orderID == "" {
		s.cfg.Log.Info("Ignoring payment webhook without order", "event", event.Event)
		return nil
	}

	booking, err := s.repo.FindByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) {
			s.cfg.Log.Info("Ignoring payment webhook for unknown order", "event", event.Event, "order_id", orderID)
			return nil
		}
		return apperrors.Internal("Failed to retrieve booking", err)
	}
	captured := (event.Event == payment.EventPaymentCaptured || event.Event == payment.EventOrderPaid) && event.PaymentID() != ""
	if captured && owesLateRefund(booking, event.PaymentID()) {
		return s.lateCapture(ctx, booking, event.PaymentID())
	}
	if booking.Status != model.BookingPending {
		s.cfg.Log.Info("Ignoring payment webhook for settled booking",
			"event", event.Event,
			"booking_id", booking.ID,
			"status", booking.Status,
		)
		return nil
	}

	switch event.Event {
	case payment.EventPaymentFailed:
		_, err = s.rollbackPending(ctx, booking, ReasonPaymentFailed, events.BookingCancelled)
		s.metrics.PaymentVerification(metrics.PaymentRejected)
	case payment.EventPaymentCaptured, payment.EventOrderPaid:
		_, err = s.confirm(ctx, booking, event.PaymentID())
		s.metrics.PaymentVerification(metrics.PaymentVerified)
	default:
		s.cfg.Log.Info("Ignoring unhandled payment webhook", "event", event.Event, "order_id", orderID)
		return nil
	}

	if err != nil && apperrors.HasCode(err, apperrors.CodeInvalidState) {
		// A concurrent verification or rollback settled the booking first. A
		// capture that lost to a rollback still owes the advance back.
		if captured {
			if current, findErr := s.repo.FindByID(ctx, booking.ID); findErr == nil && owesLateRefund(current, event.PaymentID()) {
				return s.lateCapture(ctx, current, event.PaymentID())
			}
		}
		return nil
	}
	return err
}

func (s *bookingService) lateCapture(ctx context.Context, booking *model.Booking, paymentID string) error {
	if booking.IsAdvancePaid {
		return nil
	}
	s.metrics.PaymentVerification(metrics.PaymentLate)
	_, err := s.recordLatePayment(ctx, booking, paymentID)
	return err
}

// rollbackPending cancels a pending booking whose payment failed or never
// arrived and frees its slots. Both writes share a transaction.
func (s *bookingService) rollbackPending(ctx context.Context, booking *model.Booking, reason string, eventType events.Type) (*model.Booking, error) {
	cancelled, err := s.cancelAndRelease(ctx, booking, []string{model.BookingPending}, repository.Cancellation{
		Reason:       reason,
		At:           time.Now().UTC(),
		RefundStatus: model.RefundNone,
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, eventType, cancelled)
	return cancelled, nil
}

// CancelBooking cancels a pending or confirmed booking on behalf of its owner
// or an administrator. A paid advance is flagged for refund.
func (s *bookingService) CancelBooking(ctx context.Context, actor auth.Actor, id string, reason string) (*model.Booking, error) {
	booking, err := s.findBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canAccess(actor, booking) {
		return nil, apperrors.Forbidden("Not authorized to cancel this booking")
	}
	switch booking.Status {
	case model.BookingCancelled:
		return nil, apperrors.InvalidState("Booking is already cancelled", booking.Status)
	case model.BookingCompleted:
		return nil, apperrors.InvalidState("Cannot cancel completed booking", booking.Status)
	}

	reason = sanitizer.SanitizeText(reason, maxReasonLength)
	if reason == "" {
		reason = ReasonCancelledByUser
	}

	c := repository.Cancellation{
		Reason:       reason,
		At:           time.Now().UTC(),
		RefundStatus: model.RefundNone,
	}
	if booking.IsAdvancePaid {
		c.RefundStatus = model.RefundPending
		c.RefundAmount = booking.TotalAmount
	}

	cancelled, err := s.cancelAndRelease(ctx, booking, []string{model.BookingPending, model.BookingConfirmed}, c)
	if err != nil {
		return nil, err
	}

	s.metrics.Cancellation(booking.IsAdvancePaid)
	s.publish(ctx, events.BookingCancelled, cancelled)
	return cancelled, nil
}

// ExpirePending cancels pending bookings older than olderThan and frees their
// slots, scanning batch bookings at a time in creation order. A booking that
// fails to expire is skipped for the rest of the scan and retried on the next
// call. It returns how many bookings were expired.
func (s *bookingService) ExpirePending(ctx context.Context, olderThan time.Duration, batch int) (int, error) {
	if olderThan <= 0 {
		return 0, apperrors.InvalidInput("Expiry age must be positive")
	}
	if batch <= 0 {
		return 0, apperrors.InvalidInput("Batch size must be positive")
	}

	q := repository.StaleQuery{
		CreatedBefore: time.Now().UTC().Add(-olderThan),
		Limit:         batch,
	}
	expired := 0
	for {
		stale, err := s.repo.FindStalePending(ctx, q)
		if err != nil {
			return expired, apperrors.Internal("Failed to find stale bookings", err)
		}

		for _, booking := range stale {
			if ctx.Err() != nil {
				return expired, ctx.Err()
			}
			_, err := s.rollbackPending(ctx, booking, ReasonPaymentExpired, events.BookingExpired)
			if err != nil {
				if !apperrors.HasCode(err, apperrors.CodeInvalidState) {
					s.cfg.Log.Error("Failed to expire pending booking", "booking_id", booking.ID, "error", err)
				}
				continue
			}
			expired++
			s.metrics.Expiration()
		}

		if len(stale) < batch {
			return expired, nil
		}
		last := stale[len(stale)-1]
		q.AfterCreatedAt, q.AfterID = last.CreatedAt, last.ID
	}
}

func (s *bookingService) cancelAndRelease(ctx context.Context, booking *model.Booking, from []string, c repository.Cancellation) (*model.Booking, error) {
	keys := s.bookingKeys(booking)

	var (
		cancelled *model.Booking
		released  int64
	)
	err := s.repo.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		var err error
		cancelled, err = s.repo.Cancel(txCtx, booking.ID, from, c)
		if err != nil {
			return s.transitionError(txCtx, err, booking.ID, "cancelled")
		}
		released, err = s.ledger.ReleaseForBooking(txCtx, booking.VenueID, booking.Date, keys, booking.ID)
		return err
	})
	if err != nil {
		if apperrors.IsAppError(err) {
			return nil, err
		}
		return nil, apperrors.Internal("Failed to cancel booking", err)
	}

	s.metrics.SlotsReleased(released)
	s.cfg.Log.Info("Booking cancelled",
		"booking_id", cancelled.ID,
		"reason", c.Reason,
		"refund_status", cancelled.RefundStatus,
		"slots_released", released,
	)
	return cancelled, nil
}

// bookingKeys recomputes the slot keys a booking claimed. Bookings whose
// stored range cannot be rebuilt fall back to their start key.
func (s *bookingService) bookingKeys(booking *model.Booking) []string {
	rng, err := booking.Range()
	if err == nil {
		return rng.Keys()
	}

	start := booking.StartTime
	if start == "" {
		start = booking.Time
	}
	s.cfg.Log.Warn("Booking has an unusable time range, releasing start slot only",
		"booking_id", booking.ID,
		"start_time", start,
		"error", err,
	)
	if _, keyErr := calendar.ParseTimeKey(start); keyErr != nil {
		return nil
	}
	return []string{start}
}

// transitionError maps a failed conditional status change, reporting the
// status the booking actually has.
func (s *bookingService) transitionError(ctx context.Context, err error, id string, target string) error {
	if !errors.Is(err, bookingserrors.ErrStatusChanged) {
		return translateBookingError(err, id)
	}
	current, findErr := s.repo.FindByID(ctx, id)
	if findErr != nil {
		return translateBookingError(findErr, id)
	}
	return apperrors.InvalidState(
		fmt.Sprintf("Booking is %s and cannot be %s", current.Status, target), current.Status)
}
