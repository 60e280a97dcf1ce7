package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"buspass/internal/utils"
)

// Order is what the external gateway hands back for a created order.
type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

// Gateway is the payment collaborator. Calls may block on the network;
// callers pass a context and must not hold entity locks while waiting.
type Gateway interface {
	CreateOrder(ctx context.Context, amount int64, currency, receipt string) (Order, error)
	VerifySignature(orderID, paymentID, signature string) bool
}

// Sign computes the callback signature the gateway sends back:
// hex(HMAC-SHA256("orderID|paymentID", secret)).
func Sign(orderID, paymentID, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// Client talks to the gateway over HTTP. When BaseURL is empty it runs in
// local mode and mints order ids itself, which keeps dev setups working
// without gateway credentials.
type Client struct {
	KeyID      string
	Secret     string
	BaseURL    string
	HTTPClient *http.Client
}

func (c Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: 10 * time.Second}
}

func (c Client) CreateOrder(ctx context.Context, amount int64, currency, receipt string) (Order, error) {
	if amount <= 0 {
		return Order{}, fmt.Errorf("order amount must be positive, got %d", amount)
	}

	if c.BaseURL == "" {
		return Order{
			ID:       utils.NewReceipt("order"),
			Amount:   amount,
			Currency: currency,
			Receipt:  receipt,
		}, nil
	}

	body, err := json.Marshal(map[string]any{
		"amount":   amount,
		"currency": currency,
		"receipt":  receipt,
	})
	if err != nil {
		return Order{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return Order{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.KeyID, c.Secret)

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return Order{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Order{}, fmt.Errorf("gateway order creation returned %d", resp.StatusCode)
	}

	var order Order
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return Order{}, err
	}
	if order.ID == "" {
		return Order{}, fmt.Errorf("gateway order response missing id")
	}
	return order, nil
}

func (c Client) VerifySignature(orderID, paymentID, signature string) bool {
	expected := Sign(orderID, paymentID, c.Secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}
