package service

import (
	"context"

	"turfbook/pkg/auth"
	"turfbook/pkg/config"
	apperrors "turfbook/pkg/errors"
	"turfbook/pkg/model"

	"golang.org/x/sync/errgroup"
)

// GetBooking returns a booking to its owner, to the owner of its venue, or to
// an administrator.
func (s *bookingService) GetBooking(ctx context.Context, actor auth.Actor, id string) (*model.Booking, error) {
	booking, err := s.findBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if canAccess(actor, booking) {
		return booking, nil
	}
	if actor.Role == auth.RoleOwner {
		venue, err := s.findVenue(ctx, booking.VenueID)
		if err == nil && venue.OwnerID == actor.UserID {
			return booking, nil
		}
	}
	return nil, apperrors.Forbidden("Not authorized to view this booking")
}

func (s *bookingService) ListMyBookings(ctx context.Context, actor auth.Actor, limit int, offset int64) ([]*model.Booking, int64, error) {
	if actor.UserID == "" {
		return nil, 0, apperrors.Unauthorized("Authentication required")
	}
	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	var (
		bookings []*model.Booking
		total    int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		bookings, err = s.repo.FindByUser(gctx, actor.UserID, limit, offset)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.repo.CountByUser(gctx, actor.UserID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, 0, apperrors.Internal("Failed to retrieve bookings", err)
	}
	return bookings, total, nil
}

// ListVenueBookings lists bookings across every venue the owner runs.
func (s *bookingService) ListVenueBookings(ctx context.Context, actor auth.Actor, limit int, offset int64) ([]*model.Booking, int64, error) {
	if actor.UserID == "" {
		return nil, 0, apperrors.Unauthorized("Authentication required")
	}
	if actor.Role != auth.RoleOwner && !actor.IsAdmin() {
		return nil, 0, apperrors.Forbidden("Only venue owners can list venue bookings")
	}
	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	venueIDs, err := s.venues.FindIDsByOwner(ctx, actor.UserID)
	if err != nil {
		return nil, 0, apperrors.Internal("Failed to retrieve venues", err)
	}
	if len(venueIDs) == 0 {
		return []*model.Booking{}, 0, nil
	}

	var (
		bookings []*model.Booking
		total    int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		bookings, err = s.repo.FindByVenues(gctx, venueIDs, limit, offset)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.repo.CountByVenues(gctx, venueIDs)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, 0, apperrors.Internal("Failed to retrieve bookings", err)
	}
	return bookings, total, nil
}

// PaymentStatus reports where the advance payment of a booking stands.
func (s *bookingService) PaymentStatus(ctx context.Context, actor auth.Actor, bookingID string) (*model.PaymentStatus, error) {
	booking, err := s.GetBooking(ctx, actor, bookingID)
	if err != nil {
		return nil, err
	}
	return &model.PaymentStatus{
		Status:    booking.Status,
		PaymentID: booking.PaymentTransactionID,
		Amount:    booking.TotalAmount,
		Booking:   booking,
	}, nil
}
