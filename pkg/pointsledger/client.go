package pointsledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
)

// Client talks to the external points ledger service over HTTP
type Client struct {
	BaseURL string
	APIKey  string
	MockAPI bool
	client  *http.Client
}

// debitRequest is the body of a debit call
type debitRequest struct {
	Amount    int64  `json:"amount"`
	Reference string `json:"reference"`
}

// errorResponse is the ledger's error body
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var _ Ledger = (*Client)(nil)

// NewClient creates a new ledger client
func NewClient(baseURL, apiKey string, timeout time.Duration, mockAPI bool) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		MockAPI: mockAPI,
		client:  &http.Client{Timeout: timeout},
	}
}

// Debit removes amount points from userID's balance
func (c *Client) Debit(ctx context.Context, userID string, amount int64, reference string) error {
	if amount == 0 {
		return nil
	}
	if c.MockAPI {
		return nil
	}
	if reference == "" {
		reference = uuid.NewString()
	}

	body, err := json.Marshal(debitRequest{Amount: amount, Reference: reference})
	if err != nil {
		return fmt.Errorf("encode debit request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1/accounts/%s/debit", c.BaseURL, url.PathEscape(userID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build debit request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", reference)
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("ledger debit call: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusNoContent:
		return nil
	case http.StatusPaymentRequired, http.StatusConflict:
		return ErrInsufficientFunds
	}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var e errorResponse
	if json.Unmarshal(raw, &e) == nil && e.Error != "" {
		return fmt.Errorf("ledger debit failed (status %d): %s", resp.StatusCode, e.Error)
	}
	return fmt.Errorf("ledger debit failed (status %d)", resp.StatusCode)
}
