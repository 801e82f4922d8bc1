package payment

import (
	"context"
	"fmt"
	"time"

	"turfbook/pkg/client"
)

const ordersPath = "/v1/orders"

type RazorpayClient struct {
	http  *client.HttpClient
	keyID string
}

func NewRazorpayClient(baseURL, keyID, keySecret string, timeout time.Duration) *RazorpayClient {
	return &RazorpayClient{
		http:  client.NewHttpClient(baseURL, timeout).WithBasicAuth(keyID, keySecret),
		keyID: keyID,
	}
}

type createOrderBody struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt,omitempty"`
	Notes    map[string]string `json:"notes,omitempty"`
}

type orderEntity struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
}

func (c *RazorpayClient) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	resp, err := c.http.POST(ctx, ordersPath, createOrderBody{
		Amount:   req.AmountMinor,
		Currency: req.Currency,
		Receipt:  req.Receipt,
		Notes:    req.Notes,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayFailure, err)
	}

	if !resp.IsSuccess() {
		if resp.StatusCode >= 500 {
			return nil, fmt.Errorf("%w: %s", ErrGatewayFailure, client.GetErrorMessage(resp))
		}
		return nil, fmt.Errorf("%w: %s", ErrOrderRejected, client.GetErrorMessage(resp))
	}

	var entity orderEntity
	if err := resp.DecodeJSON(&entity); err != nil {
		return nil, fmt.Errorf("%w: failed to decode order: %v", ErrGatewayFailure, err)
	}
	if entity.ID == "" {
		return nil, fmt.Errorf("%w: order id missing from response", ErrGatewayFailure)
	}

	return &Order{
		ID:       entity.ID,
		Amount:   entity.Amount,
		Currency: entity.Currency,
		KeyID:    c.keyID,
	}, nil
}
