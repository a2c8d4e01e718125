// Package fragment delivers purchased Stars through the Fragment API.
// Disbursement is best-effort: an order stays confirmed whatever
// happens here, and without an API key the result is an explicit
// simulation, never presented as a real delivery.
package fragment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Client struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
}

type Result struct {
	Delivered     bool   `json:"delivered"`
	Simulated     bool   `json:"simulated"`
	TransactionID string `json:"transactionId"`
}

type sendReq struct {
	Recipient string `json:"recipient"`
	Amount    int    `json:"amount"`
}

type sendResp struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{BaseURL: baseURL, APIKey: apiKey}
}

// SendStars pushes stars to a recipient handle. With no API key
// configured it returns a simulated result and no error.
func (c *Client) SendStars(ctx context.Context, recipient string, stars int) (Result, error) {
	txn := newTransactionID()
	if c.APIKey == "" {
		return Result{Simulated: true, TransactionID: txn}, nil
	}
	body, _ := json.Marshal(sendReq{
		Recipient: strings.TrimPrefix(recipient, "@"),
		Amount:    stars,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimSuffix(c.BaseURL, "/")+"/stars/send", bytes.NewReader(body))
	if err != nil {
		return Result{TransactionID: txn}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	hc := c.HTTP
	if hc == nil {
		hc = &http.Client{Timeout: 8 * time.Second}
	}
	resp, err := hc.Do(req)
	if err != nil {
		return Result{TransactionID: txn}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return Result{TransactionID: txn}, fmt.Errorf("fragment: status %d", resp.StatusCode)
	}
	var out sendResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Result{TransactionID: txn}, err
	}
	if !out.OK && out.Error != "" {
		return Result{TransactionID: txn}, fmt.Errorf("fragment: %s", out.Error)
	}
	return Result{Delivered: true, TransactionID: txn}, nil
}

func newTransactionID() string {
	id := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return "TXN-" + id[:12]
}
