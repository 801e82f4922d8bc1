// Package payment creates advance-payment orders with the gateway and checks
// the signatures it hands back to clients and webhooks.
package payment

import (
	"context"
	"errors"
	"math"
)

var (
	ErrOrderRejected    = errors.New("payment gateway rejected the order")
	ErrGatewayFailure   = errors.New("payment gateway request failed")
	ErrMalformedWebhook = errors.New("malformed webhook payload")
)

type OrderRequest struct {
	AmountMinor int64
	Currency    string
	Receipt     string
	Notes       map[string]string
}

// Order is the handle a client needs to complete payment.
type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	KeyID    string `json:"key_id,omitempty"`
}

type Gateway interface {
	CreateOrder(ctx context.Context, req OrderRequest) (*Order, error)
}

// ToMinorUnits converts an amount in major currency units to paise/cents.
func ToMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
