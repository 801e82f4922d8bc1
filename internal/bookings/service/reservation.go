package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	bookingserrors "turfbook/internal/bookings/errors"
	"turfbook/internal/bookings/validator"
	"turfbook/internal/events"
	"turfbook/internal/metrics"
	"turfbook/pkg/auth"
	"turfbook/pkg/calendar"
	apperrors "turfbook/pkg/errors"
	"turfbook/pkg/model"
	"turfbook/pkg/payment"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// reservation is a create request after normalisation: one canonical range
// on one UTC day.
type reservation struct {
	venueID string
	day     time.Time
	rng     calendar.Range
}

// CreateBooking reserves every half-hour slot of the requested range and
// opens an advance-payment order for it. Slots claimed along the way are
// released before any error is returned.
func (s *bookingService) CreateBooking(ctx context.Context, actor auth.Actor, req *model.CreateBookingRequest) (*model.Booking, *payment.Order, error) {
	booking, order, err := s.createBooking(ctx, actor, req)
	s.metrics.Reservation(reservationOutcome(err))
	return booking, order, err
}

func (s *bookingService) createBooking(ctx context.Context, actor auth.Actor, req *model.CreateBookingRequest) (*model.Booking, *payment.Order, error) {
	if actor.UserID == "" {
		return nil, nil, apperrors.Unauthorized("Authentication required")
	}

	res, err := s.normalize(req)
	if err != nil {
		return nil, nil, err
	}

	venue, err := s.findVenue(ctx, res.venueID)
	if err != nil {
		return nil, nil, err
	}
	if !venue.Bookable() {
		return nil, nil, apperrors.Unavailable("Venue is not available for booking", "")
	}

	hours, err := s.operatingHours(venue)
	if err != nil {
		return nil, nil, err
	}
	if !res.rng.Within(hours) {
		return nil, nil, apperrors.InvalidInput(fmt.Sprintf("Requested time %s is outside operating hours %s", res.rng, hours))
	}

	keys := res.rng.Keys()

	existing, err := s.ledger.FindSlots(ctx, res.venueID, res.day, keys)
	if err != nil {
		return nil, nil, err
	}
	for _, slot := range existing {
		if !slot.Available() {
			return nil, nil, apperrors.Unavailable(
				fmt.Sprintf("Time range not available. Slot %s is already booked or blocked", slot.Time),
				slot.Time,
			)
		}
	}

	quote := PriceRange(venue.PricePerHour, res.rng, s.cfg.AdvancePercent)
	bookingID := primitive.NewObjectID().Hex()

	claimed, err := s.ledger.ClaimAll(ctx, res.venueID, res.day, keys, bookingID)
	if err != nil {
		if apperrors.HasCode(err, apperrors.CodeConflict) {
			s.metrics.SlotConflict()
			s.cfg.Log.Info("Lost slot race during reservation",
				"venue_id", res.venueID,
				"date", calendar.FormatDay(res.day),
				"range", res.rng.String(),
				"error", err,
			)
		}
		return nil, nil, err
	}

	order, err := s.gateway.CreateOrder(ctx, payment.OrderRequest{
		AmountMinor: payment.ToMinorUnits(quote.Advance),
		Currency:    s.cfg.PaymentCurrency,
		Receipt:     "booking_" + bookingID,
		Notes: map[string]string{
			"booking_id":     bookingID,
			"user_id":        actor.UserID,
			"venue_id":       res.venueID,
			"slot_id":        claimed[0].ID,
			"date":           calendar.FormatDay(res.day),
			"start_time":     res.rng.Start.String(),
			"end_time":       res.rng.End.String(),
			"duration":       strconv.FormatFloat(res.rng.Hours(), 'f', -1, 64),
			"payment_type":   "advance",
			"total_amount":   strconv.FormatFloat(quote.Total, 'f', 2, 64),
			"advance_amount": strconv.FormatFloat(quote.Advance, 'f', 2, 64),
		},
	})
	if err != nil {
		s.releaseClaimed(ctx, res, keys, bookingID)
		return nil, nil, translateGatewayError(err)
	}
	order.KeyID = s.cfg.PaymentKeyID

	end := res.rng.End.String()
	booking := &model.Booking{
		ID:              bookingID,
		UserID:          actor.UserID,
		VenueID:         res.venueID,
		SlotID:          claimed[0].ID,
		Date:            res.day,
		Time:            res.rng.Start.String(),
		StartTime:       res.rng.Start.String(),
		EndTime:         &end,
		DurationHours:   res.rng.Hours(),
		TotalAmount:     quote.Total,
		AdvanceAmount:   quote.Advance,
		RemainingAmount: quote.Remaining,
		PaymentOrderID:  order.ID,
		Status:          model.BookingPending,
		RefundStatus:    model.RefundNone,
	}

	if err := s.repo.Create(ctx, booking); err != nil {
		s.releaseClaimed(ctx, res, keys, bookingID)
		if errors.Is(err, bookingserrors.ErrDuplicateOrder) {
			return nil, nil, apperrors.Conflict("Payment order is already attached to another booking")
		}
		return nil, nil, apperrors.Internal("Failed to create booking", err)
	}

	s.cfg.Log.Info("Booking created",
		"booking_id", booking.ID,
		"user_id", booking.UserID,
		"venue_id", booking.VenueID,
		"date", calendar.FormatDay(booking.Date),
		"range", res.rng.String(),
		"slots", len(keys),
		"total_amount", quote.Total,
		"advance_amount", quote.Advance,
		"order_id", order.ID,
	)
	s.publish(ctx, events.BookingCreated, booking)

	return booking, order, nil
}

// normalize validates the request and folds both request shapes into one
// range. start_time/end_time wins when present; otherwise time plus
// duration_hours is expanded into a range.
func (s *bookingService) normalize(req *model.CreateBookingRequest) (*reservation, error) {
	if req == nil {
		return nil, apperrors.InvalidInput("Request body is required")
	}
	if err := s.validator.ValidateCreate(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return nil, apperrors.InvalidInput("Booking request validation failed").WithDetails(verrs.Details())
		}
		return nil, apperrors.InvalidInput(err.Error())
	}

	day, err := calendar.ParseDay(req.Date)
	if err != nil {
		return nil, apperrors.InvalidInput(err.Error())
	}

	var rng calendar.Range
	switch {
	case req.StartTime != "" && req.EndTime != "":
		rng, err = calendar.NewRange(req.StartTime, req.EndTime)
	case req.StartTime != "" || req.EndTime != "":
		return nil, apperrors.InvalidInput("start_time and end_time must be supplied together")
	case req.Time != "" && req.DurationHours != 0:
		rng, err = calendar.RangeFromDuration(req.Time, req.DurationHours)
	default:
		return nil, apperrors.InvalidInput("Please provide either (start_time and end_time) or (time and duration_hours)")
	}
	if err != nil {
		return nil, apperrors.InvalidInput(err.Error())
	}

	return &reservation{venueID: req.VenueID, day: day, rng: rng}, nil
}

// operatingHours is the venue's bookable window trimmed to the slot grid,
// or the configured default when the venue publishes no usable hours.
func (s *bookingService) operatingHours(venue *model.Venue) (calendar.Range, error) {
	if venue.OperatingHours != nil {
		hours, err := calendar.OpeningHours(venue.OperatingHours.Open, venue.OperatingHours.Close)
		if err == nil {
			return hours, nil
		}
		s.cfg.Log.Warn("Venue has invalid operating hours, using defaults",
			"venue_id", venue.ID,
			"open", venue.OperatingHours.Open,
			"close", venue.OperatingHours.Close,
			"error", err,
		)
	}
	hours, err := s.cfg.DefaultOperatingHours()
	if err != nil {
		return calendar.Range{}, apperrors.Internal("Default operating hours are misconfigured", err)
	}
	return hours, nil
}

func (s *bookingService) releaseClaimed(ctx context.Context, res *reservation, keys []string, bookingID string) {
	n, err := s.ledger.ReleaseForBooking(context.WithoutCancel(ctx), res.venueID, res.day, keys, bookingID)
	if err != nil {
		s.cfg.Log.Error("Failed to release slots after reservation failure",
			"booking_id", bookingID,
			"venue_id", res.venueID,
			"date", calendar.FormatDay(res.day),
			"error", err,
		)
		return
	}
	s.metrics.SlotsReleased(n)
}

func translateGatewayError(err error) error {
	switch {
	case errors.Is(err, payment.ErrOrderRejected):
		return apperrors.PaymentRejected("Payment order was rejected by the gateway")
	case errors.Is(err, payment.ErrGatewayFailure), errors.Is(err, context.DeadlineExceeded):
		return apperrors.ServiceUnavailable("Payment gateway")
	}
	return apperrors.Internal("Failed to create payment order", err)
}

func reservationOutcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeCreated
	case apperrors.HasCode(err, apperrors.CodeUnavailable):
		return metrics.OutcomeUnavailable
	case apperrors.HasCode(err, apperrors.CodeConflict):
		return metrics.OutcomeConflict
	case apperrors.HasCode(err, apperrors.CodeInvalidInput), apperrors.HasCode(err, apperrors.CodeNotFound):
		return metrics.OutcomeInvalid
	}
	return metrics.OutcomeError
}
