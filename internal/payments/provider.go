package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ErrProvider wraps failures talking to the payment collaborator; checkout
// aborts (and rolls back its reservations) when intent creation fails.
var ErrProvider = errors.New("payment provider error")

// Provider is the boundary to the external payment collaborator. Only
// intent creation is consumed here; the provider's ledger is its own.
type Provider interface {
	CreateIntent(ctx context.Context, amountMinor int64, currency, orderID string) (string, error)
}

// HTTPProvider talks to the provider's REST API.
type HTTPProvider struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

func NewHTTPProvider(baseURL, apiKey string) *HTTPProvider {
	return &HTTPProvider{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 100,
			},
		},
	}
}

type intentRequest struct {
	AmountMinor int64  `json:"amount_minor"`
	Currency    string `json:"currency"`
	OrderID     string `json:"order_id"`
}

type intentResponse struct {
	ID string `json:"id"`
}

func (p *HTTPProvider) CreateIntent(ctx context.Context, amountMinor int64, currency, orderID string) (string, error) {
	body, err := json.Marshal(intentRequest{AmountMinor: amountMinor, Currency: currency, OrderID: orderID})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.BaseURL+"/v1/intents", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.APIKey)

	resp, err := p.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrProvider, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("%w: create intent status %d", ErrProvider, resp.StatusCode)
	}
	var out intentResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: decode intent: %v", ErrProvider, err)
	}
	if out.ID == "" {
		return "", fmt.Errorf("%w: empty intent id", ErrProvider)
	}
	return out.ID, nil
}
