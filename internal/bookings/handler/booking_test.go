package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"turfbook/pkg/auth"
	apperrors "turfbook/pkg/errors"
	httputil "turfbook/pkg/http"
	"turfbook/pkg/logger"
	"turfbook/pkg/middleware"
	"turfbook/pkg/model"
	"turfbook/pkg/payment"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Mock service for testing
type mockBookingService struct {
	createFunc  func(ctx context.Context, actor auth.Actor, req *model.CreateBookingRequest) (*model.Booking, *payment.Order, error)
	verifyFunc  func(ctx context.Context, req *model.VerifyPaymentRequest) (*model.Booking, error)
	eventFunc   func(ctx context.Context, event *payment.WebhookEvent) error
	cancelFunc  func(ctx context.Context, actor auth.Actor, id string, reason string) (*model.Booking, error)
	slotsFunc   func(ctx context.Context, venueID string, date string) ([]model.SlotAvailability, error)
	getFunc     func(ctx context.Context, actor auth.Actor, id string) (*model.Booking, error)
	listFunc    func(ctx context.Context, actor auth.Actor, limit int, offset int64) ([]*model.Booking, int64, error)
	statusFunc  func(ctx context.Context, actor auth.Actor, bookingID string) (*model.PaymentStatus, error)
	venueCalled bool
}

func (m *mockBookingService) CreateBooking(ctx context.Context, actor auth.Actor, req *model.CreateBookingRequest) (*model.Booking, *payment.Order, error) {
	return m.createFunc(ctx, actor, req)
}

func (m *mockBookingService) VerifyPayment(ctx context.Context, req *model.VerifyPaymentRequest) (*model.Booking, error) {
	return m.verifyFunc(ctx, req)
}

func (m *mockBookingService) HandlePaymentEvent(ctx context.Context, event *payment.WebhookEvent) error {
	return m.eventFunc(ctx, event)
}

func (m *mockBookingService) CancelBooking(ctx context.Context, actor auth.Actor, id string, reason string) (*model.Booking, error) {
	return m.cancelFunc(ctx, actor, id, reason)
}

func (m *mockBookingService) ExpirePending(ctx context.Context, olderThan time.Duration, batch int) (int, error) {
	return 0, nil
}

func (m *mockBookingService) ListAvailableSlots(ctx context.Context, venueID string, date string) ([]model.SlotAvailability, error) {
	return m.slotsFunc(ctx, venueID, date)
}

func (m *mockBookingService) GetBooking(ctx context.Context, actor auth.Actor, id string) (*model.Booking, error) {
	return m.getFunc(ctx, actor, id)
}

func (m *mockBookingService) ListMyBookings(ctx context.Context, actor auth.Actor, limit int, offset int64) ([]*model.Booking, int64, error) {
	return m.listFunc(ctx, actor, limit, offset)
}

func (m *mockBookingService) ListVenueBookings(ctx context.Context, actor auth.Actor, limit int, offset int64) ([]*model.Booking, int64, error) {
	m.venueCalled = true
	return m.listFunc(ctx, actor, limit, offset)
}

func (m *mockBookingService) PaymentStatus(ctx context.Context, actor auth.Actor, bookingID string) (*model.PaymentStatus, error) {
	return m.statusFunc(ctx, actor, bookingID)
}

const webhookSecret = "whsec_test"

var player = auth.Actor{UserID: "user-1", Role: auth.RoleUser}

func newRouter(svc *mockBookingService) *httprouter.Router {
	router := httprouter.New()
	NewBookingHandler(svc, payment.NewSigner(webhookSecret), logger.Discard()).RegisterRoutes(router)
	return router
}

func serve(router http.Handler, method, path, body string, actor *auth.Actor) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if actor != nil {
		req = req.WithContext(auth.WithActor(req.Context(), *actor))
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) httputil.ErrorResponse {
	t.Helper()
	var body httputil.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestCreate(t *testing.T) {
	var received *model.CreateBookingRequest
	svc := &mockBookingService{
		createFunc: func(_ context.Context, actor auth.Actor, req *model.CreateBookingRequest) (*model.Booking, *payment.Order, error) {
			received = req
			return &model.Booking{ID: "b1", UserID: actor.UserID, Status: model.BookingPending},
				&payment.Order{ID: "order_1", Amount: 50000, Currency: "INR"}, nil
		},
	}
	router := newRouter(svc)

	rec := serve(router, http.MethodPost, "/api/v1/bookings",
		`{"venue_id":"65f0000000000000000000aa","date":"2025-03-10","start_time":"10:00","end_time":"12:00"}`, &player)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var body struct {
		Data CreateBookingResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "b1", body.Data.Booking.ID)
	assert.Equal(t, "order_1", body.Data.Order.ID)
	assert.Equal(t, "12:00", received.EndTime)
}

func TestCreate_Errors(t *testing.T) {
	svc := &mockBookingService{
		createFunc: func(context.Context, auth.Actor, *model.CreateBookingRequest) (*model.Booking, *payment.Order, error) {
			return nil, nil, apperrors.Unavailable("Time range not available. Slot 11:00 is already booked or blocked", "11:00")
		},
	}
	router := newRouter(svc)

	rec := serve(router, http.MethodPost, "/api/v1/bookings", `{"venue_id":"x"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(router, http.MethodPost, "/api/v1/bookings", `{"venue":`, &player)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(router, http.MethodPost, "/api/v1/bookings", `{"unknown":"field"}`, &player)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(router, http.MethodPost, "/api/v1/bookings",
		`{"venue_id":"65f0000000000000000000aa","date":"2025-03-10","start_time":"10:00","end_time":"12:00"}`, &player)
	assert.Equal(t, http.StatusConflict, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, apperrors.CodeUnavailable, body.Code)
	assert.Equal(t, "11:00", body.Details["time"])
}

func TestListMine_Pagination(t *testing.T) {
	var gotLimit int
	var gotOffset int64
	svc := &mockBookingService{
		listFunc: func(_ context.Context, _ auth.Actor, limit int, offset int64) ([]*model.Booking, int64, error) {
			gotLimit, gotOffset = limit, offset
			return []*model.Booking{{ID: "b1"}}, 7, nil
		},
	}
	router := newRouter(svc)

	rec := serve(router, http.MethodGet, "/api/v1/bookings?limit=5&offset=2", "", &player)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, gotLimit)
	assert.Equal(t, int64(2), gotOffset)

	var body httputil.PaginatedResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, int64(7), body.TotalCount)

	rec = serve(router, http.MethodGet, "/api/v1/bookings?limit=many", "", &player)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListForOwner(t *testing.T) {
	svc := &mockBookingService{
		listFunc: func(context.Context, auth.Actor, int, int64) ([]*model.Booking, int64, error) {
			return nil, 0, apperrors.Forbidden("Only venue owners can list venue bookings")
		},
	}
	rec := serve(newRouter(svc), http.MethodGet, "/api/v1/owner/bookings", "", &player)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.True(t, svc.venueCalled)
}

func TestGetByID(t *testing.T) {
	svc := &mockBookingService{
		getFunc: func(_ context.Context, _ auth.Actor, id string) (*model.Booking, error) {
			if id == "missing" {
				return nil, apperrors.NotFoundWithID("Booking", id)
			}
			return &model.Booking{ID: id}, nil
		},
	}
	router := newRouter(svc)

	rec := serve(router, http.MethodGet, "/api/v1/bookings/b1", "", &player)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(router, http.MethodGet, "/api/v1/bookings/missing", "", &player)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCancel(t *testing.T) {
	var gotReason string
	svc := &mockBookingService{
		cancelFunc: func(_ context.Context, _ auth.Actor, id string, reason string) (*model.Booking, error) {
			gotReason = reason
			if id == "done" {
				return nil, apperrors.InvalidState("Booking is already cancelled", model.BookingCancelled)
			}
			return &model.Booking{ID: id, Status: model.BookingCancelled}, nil
		},
	}
	router := newRouter(svc)

	rec := serve(router, http.MethodPost, "/api/v1/bookings/b1/cancel", `{"reason":"Rain"}`, &player)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Rain", gotReason)

	rec = serve(router, http.MethodPost, "/api/v1/bookings/b1/cancel", "", &player)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, gotReason)

	rec = serve(router, http.MethodPost, "/api/v1/bookings/done/cancel", "", &player)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, apperrors.CodeInvalidState, decodeError(t, rec).Code)
}

func TestVenueSlots(t *testing.T) {
	svc := &mockBookingService{
		slotsFunc: func(_ context.Context, venueID string, date string) ([]model.SlotAvailability, error) {
			return []model.SlotAvailability{{Time: "06:00", IsAvailable: true}}, nil
		},
	}
	router := newRouter(svc)

	rec := serve(router, http.MethodGet, "/api/v1/venues/v1/slots?date=2025-03-10", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(router, http.MethodGet, "/api/v1/venues/v1/slots", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVerifyPayment(t *testing.T) {
	svc := &mockBookingService{
		verifyFunc: func(_ context.Context, req *model.VerifyPaymentRequest) (*model.Booking, error) {
			if req.Signature != "good" {
				return nil, apperrors.PaymentRejected("Payment verification failed")
			}
			return &model.Booking{ID: "b1", Status: model.BookingConfirmed}, nil
		},
	}
	router := newRouter(svc)

	rec := serve(router, http.MethodPost, "/api/v1/payments/verify",
		`{"order_id":"order_1","transaction_id":"pay_1","signature":"good"}`, &player)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(router, http.MethodPost, "/api/v1/payments/verify",
		`{"order_id":"order_1","transaction_id":"pay_1","signature":"bad"}`, &player)
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
}

func TestPaymentStatus(t *testing.T) {
	svc := &mockBookingService{
		statusFunc: func(_ context.Context, _ auth.Actor, id string) (*model.PaymentStatus, error) {
			return &model.PaymentStatus{Status: model.BookingConfirmed, PaymentID: "pay_1", Amount: 2000}, nil
		},
	}
	rec := serve(newRouter(svc), http.MethodGet, "/api/v1/payments/status/b1", "", &player)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"payment_id":"pay_1"`)
}

func TestPaymentWebhook(t *testing.T) {
	var handled *payment.WebhookEvent
	svc := &mockBookingService{
		eventFunc: func(_ context.Context, event *payment.WebhookEvent) error {
			handled = event
			if event.OrderID() == "order_broken" {
				return errors.New("database unreachable")
			}
			return nil
		},
	}
	router := newRouter(svc)
	signer := payment.NewSigner(webhookSecret)

	post := func(body, signature string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/webhook", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		if signature != "" {
			req.Header.Set(middleware.WebhookSignatureHeader, signature)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	body := `{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_1","order_id":"order_1"}}}}`
	rec := post(body, signer.SignPayload([]byte(body)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotNil(t, handled)
	assert.Equal(t, "order_1", handled.OrderID())

	handled = nil
	assert.Equal(t, http.StatusUnauthorized, post(body, "").Code)
	assert.Equal(t, http.StatusUnauthorized, post(body, "forged").Code)
	assert.Nil(t, handled)

	broken := `{"event":"payment.failed","payload":{"payment":{"entity":{"id":"pay_2","order_id":"order_broken"}}}}`
	assert.Equal(t, http.StatusInternalServerError, post(broken, signer.SignPayload([]byte(broken))).Code)

	malformed := `{"payload":{}}`
	assert.Equal(t, http.StatusBadRequest, post(malformed, signer.SignPayload([]byte(malformed))).Code)
}

func TestReady(t *testing.T) {
	router := httprouter.New()
	NewHealthHandler(map[string]ReadinessCheck{
		"mongo": func(context.Context) error { return nil },
		"kafka": func(context.Context) error { return errors.New("no brokers") },
	}, logger.Discard()).RegisterRoutes(router)

	rec := serve(router, http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "unavailable", body.Status)
	assert.Equal(t, map[string]string{"mongo": "ok", "kafka": "error"}, body.Dependencies)

	rec = serve(router, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
