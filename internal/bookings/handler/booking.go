package handler

import (
	"io"
	"net/http"

	"turfbook/internal/bookings/service"
	"turfbook/pkg/auth"
	apperrors "turfbook/pkg/errors"
	httputil "turfbook/pkg/http"
	"turfbook/pkg/logger"
	"turfbook/pkg/middleware"
	"turfbook/pkg/model"
	"turfbook/pkg/payment"

	"github.com/julienschmidt/httprouter"
)

type BookingHandler struct {
	service       service.BookingService
	webhookSigner *payment.Signer
	log           *logger.Logger
}

// CreateBookingResponse pairs the pending booking with the order the client
// needs to collect the advance.
type CreateBookingResponse struct {
	Booking *model.Booking `json:"booking"`
	Order   *payment.Order `json:"order"`
}

// NewBookingHandler builds the booking API. webhookSigner checks gateway
// callbacks; when nil the webhook route is not registered.
func NewBookingHandler(service service.BookingService, webhookSigner *payment.Signer, log *logger.Logger) *BookingHandler {
	return &BookingHandler{
		service:       service,
		webhookSigner: webhookSigner,
		log:           log,
	}
}

func (h *BookingHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *BookingHandler) requireActor(w http.ResponseWriter, r *http.Request, handler string) (auth.Actor, bool) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok || actor.UserID == "" {
		h.writeError(w, handler, apperrors.Unauthorized("Authentication required"))
		return auth.Actor{}, false
	}
	return actor, true
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	actor, ok := h.requireActor(w, r, "Create")
	if !ok {
		return
	}

	var req model.CreateBookingRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "Create", err)
		return
	}

	booking, order, err := h.service.CreateBooking(r.Context(), actor, &req)
	if err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, CreateBookingResponse{Booking: booking, Order: order}); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *BookingHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, ok := h.requireActor(w, r, "GetByID")
	if !ok {
		return
	}

	booking, err := h.service.GetBooking(r.Context(), actor, ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) ListMine(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	actor, ok := h.requireActor(w, r, "ListMine")
	if !ok {
		return
	}

	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "ListMine", err)
		return
	}

	bookings, total, err := h.service.ListMyBookings(r.Context(), actor, limit, offset)
	if err != nil {
		h.writeError(w, "ListMine", err)
		return
	}

	if err := httputil.WritePaginated(w, bookings, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "ListMine", "operation", "WritePaginated", "error", err)
	}
}

func (h *BookingHandler) ListForOwner(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	actor, ok := h.requireActor(w, r, "ListForOwner")
	if !ok {
		return
	}

	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "ListForOwner", err)
		return
	}

	bookings, total, err := h.service.ListVenueBookings(r.Context(), actor, limit, offset)
	if err != nil {
		h.writeError(w, "ListForOwner", err)
		return
	}

	if err := httputil.WritePaginated(w, bookings, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "ListForOwner", "operation", "WritePaginated", "error", err)
	}
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, ok := h.requireActor(w, r, "Cancel")
	if !ok {
		return
	}

	// The body is optional.
	var req model.CancelBookingRequest
	if r.ContentLength != 0 {
		if err := httputil.DecodeJSON(r, &req); err != nil {
			h.writeError(w, "Cancel", err)
			return
		}
	}

	booking, err := h.service.CancelBooking(r.Context(), actor, ps.ByName("id"), req.Reason)
	if err != nil {
		h.writeError(w, "Cancel", err)
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "Cancel", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) VenueSlots(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	date := r.URL.Query().Get("date")
	if date == "" {
		h.writeError(w, "VenueSlots", apperrors.InvalidInput("Query parameter 'date' is required"))
		return
	}

	slots, err := h.service.ListAvailableSlots(r.Context(), ps.ByName("id"), date)
	if err != nil {
		h.writeError(w, "VenueSlots", err)
		return
	}

	if err := httputil.WriteSuccess(w, slots); err != nil {
		h.log.Error("failed to write success response", "handler", "VenueSlots", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) VerifyPayment(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if _, ok := h.requireActor(w, r, "VerifyPayment"); !ok {
		return
	}

	var req model.VerifyPaymentRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "VerifyPayment", err)
		return
	}

	booking, err := h.service.VerifyPayment(r.Context(), &req)
	if err != nil {
		h.writeError(w, "VerifyPayment", err)
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "VerifyPayment", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) PaymentStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, ok := h.requireActor(w, r, "PaymentStatus")
	if !ok {
		return
	}

	status, err := h.service.PaymentStatus(r.Context(), actor, ps.ByName("bookingId"))
	if err != nil {
		h.writeError(w, "PaymentStatus", err)
		return
	}

	if err := httputil.WriteSuccess(w, status); err != nil {
		h.log.Error("failed to write success response", "handler", "PaymentStatus", "operation", "WriteSuccess", "error", err)
	}
}

// PaymentWebhook applies a gateway callback. The signature has already been
// checked by the time it runs; any processing failure is answered with 5xx so
// the gateway retries.
func (h *BookingHandler) PaymentWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.writeError(w, "PaymentWebhook", apperrors.InvalidInput("Failed to read request body"))
		return
	}

	event, err := payment.ParseWebhookEvent(body)
	if err != nil {
		h.writeError(w, "PaymentWebhook", apperrors.InvalidInput(err.Error()))
		return
	}

	if err := h.service.HandlePaymentEvent(r.Context(), event); err != nil {
		h.log.Error("Payment webhook processing failed",
			"request_id", middleware.RequestID(r),
			"event", event.Event,
			"order_id", event.OrderID(),
			"error", err,
		)
		h.writeError(w, "PaymentWebhook", err)
		return
	}

	if err := httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"}); err != nil {
		h.log.Error("failed to write JSON response", "handler", "PaymentWebhook", "operation", "WriteJSON", "error", err)
	}
}

func (h *BookingHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/bookings", h.Create)
	router.GET("/api/v1/bookings", h.ListMine)
	router.GET("/api/v1/bookings/:id", h.GetByID)
	router.POST("/api/v1/bookings/:id/cancel", h.Cancel)
	router.GET("/api/v1/owner/bookings", h.ListForOwner)
	router.GET("/api/v1/venues/:id/slots", h.VenueSlots)
	router.POST("/api/v1/payments/verify", h.VerifyPayment)
	router.GET("/api/v1/payments/status/:bookingId", h.PaymentStatus)
	if h.webhookSigner != nil {
		router.Handler(http.MethodPost, "/api/v1/payments/webhook",
			middleware.WebhookSignature(h.webhookSigner, h.log)(http.HandlerFunc(h.PaymentWebhook)))
	}
}
