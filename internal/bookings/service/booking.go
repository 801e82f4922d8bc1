package service

import (
	"context"
	"errors"
	"time"

	bookingserrors "turfbook/internal/bookings/errors"
	"turfbook/internal/bookings/repository"
	"turfbook/internal/bookings/validator"
	"turfbook/internal/events"
	"turfbook/internal/metrics"
	venuerepo "turfbook/internal/venues/repository"
	"turfbook/pkg/auth"
	"turfbook/pkg/config"
	apperrors "turfbook/pkg/errors"
	"turfbook/pkg/model"
	"turfbook/pkg/payment"
)

const eventPublishTimeout = 5 * time.Second

type BookingService interface {
	CreateBooking(ctx context.Context, actor auth.Actor, req *model.CreateBookingRequest) (*model.Booking, *payment.Order, error)
	VerifyPayment(ctx context.Context, req *model.VerifyPaymentRequest) (*model.Booking, error)
	HandlePaymentEvent(ctx context.Context, event *payment.WebhookEvent) error
	CancelBooking(ctx context.Context, actor auth.Actor, id string, reason string) (*model.Booking, error)
	ExpirePending(ctx context.Context, olderThan time.Duration, batch int) (int, error)
	ListAvailableSlots(ctx context.Context, venueID string, date string) ([]model.SlotAvailability, error)
	GetBooking(ctx context.Context, actor auth.Actor, id string) (*model.Booking, error)
	ListMyBookings(ctx context.Context, actor auth.Actor, limit int, offset int64) ([]*model.Booking, int64, error)
	ListVenueBookings(ctx context.Context, actor auth.Actor, limit int, offset int64) ([]*model.Booking, int64, error)
	PaymentStatus(ctx context.Context, actor auth.Actor, bookingID string) (*model.PaymentStatus, error)
}

// SlotLedger is the slot bookkeeping the booking flows depend on.
type SlotLedger interface {
	FindSlots(ctx context.Context, venueID string, day time.Time, keys []string) ([]*model.Slot, error)
	ListForDay(ctx context.Context, venueID string, day time.Time) ([]*model.Slot, error)
	ClaimAll(ctx context.Context, venueID string, day time.Time, keys []string, bookingID string) ([]*model.Slot, error)
	ReleaseForBooking(ctx context.Context, venueID string, day time.Time, keys []string, bookingID string) (int64, error)
}

type Dependencies struct {
	Bookings  repository.BookingRepository
	Venues    venuerepo.VenueRepository
	Ledger    SlotLedger
	Gateway   payment.Gateway
	Signer    *payment.Signer
	Publisher events.Publisher
	Metrics   *metrics.Metrics
	Validator *validator.BookingValidator
}

type bookingService struct {
	repo      repository.BookingRepository
	venues    venuerepo.VenueRepository
	ledger    SlotLedger
	gateway   payment.Gateway
	signer    *payment.Signer
	publisher events.Publisher
	metrics   *metrics.Metrics
	validator *validator.BookingValidator
	cfg       *config.Config
}

func NewBookingService(deps Dependencies, cfg *config.Config) BookingService {
	publisher := deps.Publisher
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &bookingService{
		repo:      deps.Bookings,
		venues:    deps.Venues,
		ledger:    deps.Ledger,
		gateway:   deps.Gateway,
		signer:    deps.Signer,
		publisher: publisher,
		metrics:   deps.Metrics,
		validator: deps.Validator,
		cfg:       cfg,
	}
}

func (s *bookingService) findBooking(ctx context.Context, id string) (*model.Booking, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}

	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, translateBookingError(err, id)
	}
	return booking, nil
}

func (s *bookingService) findVenue(ctx context.Context, id string) (*model.Venue, error) {
	venue, err := s.venues.FindByID(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, venuerepo.ErrNotFound):
			return nil, apperrors.NotFoundWithID("Venue", id)
		case errors.Is(err, venuerepo.ErrInvalidID):
			return nil, apperrors.InvalidInput("Invalid venue ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve venue", err)
	}
	return venue, nil
}

func translateBookingError(err error, id string) error {
	switch {
	case errors.Is(err, bookingserrors.ErrNotFound):
		return apperrors.NotFoundWithID("Booking", id)
	case errors.Is(err, bookingserrors.ErrInvalidID):
		return apperrors.InvalidInput("Invalid booking ID format")
	case apperrors.IsAppError(err):
		return err
	}
	return apperrors.Internal("Failed to access booking", err)
}

// publish emits a lifecycle event. The booking change is already persisted,
// so a failure is logged and not returned.
func (s *bookingService) publish(ctx context.Context, eventType events.Type, booking *model.Booking) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), eventPublishTimeout)
	defer cancel()

	if err := s.publisher.Publish(ctx, eventType, booking); err != nil {
		s.cfg.Log.Error("Failed to publish booking event",
			"event_type", eventType,
			"booking_id", booking.ID,
			"error", err,
		)
	}
}

func canAccess(actor auth.Actor, booking *model.Booking) bool {
	return actor.IsAdmin() || (actor.UserID != "" && actor.UserID == booking.UserID)
}
