// Package bookingstest provides in-memory doubles for the booking flows: a
// repository with the same conditional-transition semantics as the Mongo
// one, a scripted payment gateway and a recording event publisher.
package bookingstest

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	bookingserrors "turfbook/internal/bookings/errors"
	"turfbook/internal/bookings/repository"
	"turfbook/internal/events"
	mongotx "turfbook/pkg/db/mongo"
	"turfbook/pkg/model"
	"turfbook/pkg/payment"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Repository struct {
	mu       sync.Mutex
	bookings map[string]*model.Booking
	// CreateErr, when set, is returned by every Create call.
	CreateErr error
	// CancelErrs makes Cancel fail for the listed booking ids.
	CancelErrs map[string]error
}

func NewRepository() *Repository {
	return &Repository{bookings: make(map[string]*model.Booking)}
}

var _ repository.BookingRepository = (*Repository)(nil)

// Put stores b as-is, bypassing the create bookkeeping.
func (r *Repository) Put(b *model.Booking) *model.Booking {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b.ID == "" {
		b.ID = primitive.NewObjectID().Hex()
	}
	cp := *b
	r.bookings[b.ID] = &cp
	return b
}

// Get returns a copy of the stored booking, or nil.
func (r *Repository) Get(id string) *model.Booking {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.bookings[id]; ok {
		cp := *b
		return &cp
	}
	return nil
}

func (r *Repository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.bookings)
}

func (r *Repository) Create(_ context.Context, booking *model.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.CreateErr != nil {
		return r.CreateErr
	}
	for _, b := range r.bookings {
		if b.PaymentOrderID != "" && b.PaymentOrderID == booking.PaymentOrderID {
			return fmt.Errorf("%w: %s", bookingserrors.ErrDuplicateOrder, booking.PaymentOrderID)
		}
	}
	if booking.ID == "" {
		booking.ID = primitive.NewObjectID().Hex()
	}
	now := time.Now().UTC()
	booking.CreatedAt = now
	booking.UpdatedAt = now
	cp := *booking
	r.bookings[booking.ID] = &cp
	return nil
}

func (r *Repository) FindByID(_ context.Context, id string) (*model.Booking, error) {
	if !primitive.IsValidObjectID(id) {
		return nil, fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}
	if b := r.Get(id); b != nil {
		return b, nil
	}
	return nil, bookingserrors.ErrNotFound
}

func (r *Repository) FindByOrderID(_ context.Context, orderID string) (*model.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.bookings {
		if b.PaymentOrderID == orderID {
			cp := *b
			return &cp, nil
		}
	}
	return nil, bookingserrors.ErrNotFound
}

func (r *Repository) FindByUser(_ context.Context, userID string, limit int, offset int64) ([]*model.Booking, error) {
	return r.page(func(b *model.Booking) bool { return b.UserID == userID }, limit, offset), nil
}

func (r *Repository) CountByUser(_ context.Context, userID string) (int64, error) {
	return int64(len(r.page(func(b *model.Booking) bool { return b.UserID == userID }, 0, 0))), nil
}

func (r *Repository) FindByVenues(_ context.Context, venueIDs []string, limit int, offset int64) ([]*model.Booking, error) {
	return r.page(func(b *model.Booking) bool { return slices.Contains(venueIDs, b.VenueID) }, limit, offset), nil
}

func (r *Repository) CountByVenues(_ context.Context, venueIDs []string) (int64, error) {
	return int64(len(r.page(func(b *model.Booking) bool { return slices.Contains(venueIDs, b.VenueID) }, 0, 0))), nil
}

// page returns matches newest first. A zero limit means no limit.
func (r *Repository) page(match func(*model.Booking) bool, limit int, offset int64) []*model.Booking {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := []*model.Booking{}
	for _, b := range r.bookings {
		if match(b) {
			cp := *b
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if offset >= int64(len(out)) {
		return []*model.Booking{}
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (r *Repository) Confirm(_ context.Context, id string, transactionID string) (*model.Booking, error) {
	return r.transition(id, []string{model.BookingPending}, func(b *model.Booking) {
		b.Status = model.BookingConfirmed
		b.IsAdvancePaid = true
		b.PaymentTransactionID = transactionID
	})
}

func (r *Repository) Cancel(_ context.Context, id string, from []string, c repository.Cancellation) (*model.Booking, error) {
	r.mu.Lock()
	err := r.CancelErrs[id]
	r.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return r.transition(id, from, func(b *model.Booking) {
		at := c.At
		b.Status = model.BookingCancelled
		b.CancelledAt = &at
		b.CancellationReason = c.Reason
		b.RefundStatus = c.RefundStatus
		b.RefundAmount = c.RefundAmount
	})
}

func (r *Repository) RecordLatePayment(_ context.Context, id string, transactionID string, refundAmount float64, reasons []string) (*model.Booking, error) {
	return r.updateWhere(id, func(b *model.Booking) bool {
		return b.Status == model.BookingCancelled && !b.IsAdvancePaid && slices.Contains(reasons, b.CancellationReason)
	}, func(b *model.Booking) {
		b.IsAdvancePaid = true
		b.PaymentTransactionID = transactionID
		b.RefundStatus = model.RefundPending
		b.RefundAmount = refundAmount
	})
}

func (r *Repository) transition(id string, from []string, apply func(*model.Booking)) (*model.Booking, error) {
	return r.updateWhere(id, func(b *model.Booking) bool { return slices.Contains(from, b.Status) }, apply)
}

func (r *Repository) updateWhere(id string, guard func(*model.Booking) bool, apply func(*model.Booking)) (*model.Booking, error) {
	if !primitive.IsValidObjectID(id) {
		return nil, fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.bookings[id]
	if !ok {
		return nil, bookingserrors.ErrNotFound
	}
	if !guard(b) {
		return nil, bookingserrors.ErrStatusChanged
	}
	apply(b)
	b.UpdatedAt = time.Now().UTC()
	cp := *b
	return &cp, nil
}

// FindStalePending scans oldest first, ties broken by id.
func (r *Repository) FindStalePending(_ context.Context, q repository.StaleQuery) ([]*model.Booking, error) {
	stale := r.page(func(b *model.Booking) bool {
		if b.Status != model.BookingPending || !b.CreatedAt.Before(q.CreatedBefore) {
			return false
		}
		if q.AfterID == "" {
			return true
		}
		return b.CreatedAt.After(q.AfterCreatedAt) || (b.CreatedAt.Equal(q.AfterCreatedAt) && b.ID > q.AfterID)
	}, 0, 0)
	slices.Reverse(stale)
	if q.Limit > 0 && len(stale) > q.Limit {
		stale = stale[:q.Limit]
	}
	return stale, nil
}

// ExecuteTransaction runs fn directly. Writes made before a failure are not
// undone.
func (r *Repository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return fn(ctx)
}

// Gateway hands out sequential order ids, or fails with Err when set.
type Gateway struct {
	mu       sync.Mutex
	Err      error
	Requests []payment.OrderRequest
	next     int
}

func (g *Gateway) CreateOrder(_ context.Context, req payment.OrderRequest) (*payment.Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.Requests = append(g.Requests, req)
	if g.Err != nil {
		return nil, g.Err
	}
	g.next++
	return &payment.Order{
		ID:       fmt.Sprintf("order_%04d", g.next),
		Amount:   req.AmountMinor,
		Currency: req.Currency,
	}, nil
}

// LastRequest returns the most recent order request, or the zero value.
func (g *Gateway) LastRequest() payment.OrderRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.Requests) == 0 {
		return payment.OrderRequest{}
	}
	return g.Requests[len(g.Requests)-1]
}

// Publisher records every published event type with its booking id.
type Publisher struct {
	mu     sync.Mutex
	Events []Published
}

type Published struct {
	Type      events.Type
	BookingID string
	Status    string
}

func (p *Publisher) Publish(_ context.Context, eventType events.Type, booking *model.Booking) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Events = append(p.Events, Published{Type: eventType, BookingID: booking.ID, Status: booking.Status})
	return nil
}

func (p *Publisher) Close() error { return nil }

// Types lists the published event types in order.
func (p *Publisher) Types() []events.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Type, 0, len(p.Events))
	for _, e := range p.Events {
		out = append(out, e.Type)
	}
	return out
}
