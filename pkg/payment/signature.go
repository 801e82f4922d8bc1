package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

const (
	EventPaymentFailed   = "payment.failed"
	EventPaymentCaptured = "payment.captured"
	EventOrderPaid       = "order.paid"
)

type Signer struct {
	secret []byte
}

func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

// Sign returns the hex HMAC-SHA256 of "orderID|transactionID".
func (s *Signer) Sign(orderID, transactionID string) string {
	return s.sum([]byte(orderID + "|" + transactionID))
}

func (s *Signer) Verify(orderID, transactionID, signature string) bool {
	return hmac.Equal([]byte(s.Sign(orderID, transactionID)), []byte(signature))
}

// VerifyPayload checks a webhook signature computed over the raw request body.
func (s *Signer) VerifyPayload(body []byte, signature string) bool {
	return hmac.Equal([]byte(s.sum(body)), []byte(signature))
}

func (s *Signer) SignPayload(body []byte) string {
	return s.sum(body)
}

func (s *Signer) sum(data []byte) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(data)
	return hex.EncodeToString(mac.Sum(nil))
}

type WebhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID               string `json:"id"`
				OrderID          string `json:"order_id"`
				Status           string `json:"status"`
				ErrorDescription string `json:"error_description"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

func (e *WebhookEvent) OrderID() string {
	return e.Payload.Payment.Entity.OrderID
}

func (e *WebhookEvent) PaymentID() string {
	return e.Payload.Payment.Entity.ID
}

func ParseWebhookEvent(body []byte) (*WebhookEvent, error) {
	var event WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedWebhook, err)
	}
	if event.Event == "" {
		return nil, fmt.Errorf("%w: missing event name", ErrMalformedWebhook)
	}
	return &event, nil
}
