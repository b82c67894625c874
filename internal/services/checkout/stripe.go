package checkout

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"videochat-system/utils"
)

type StripeConfig struct {
	BaseURL   string `json:"base_url"`
	SecretKey string `json:"secret_key"`
}

// StripeClient opens Stripe Checkout sessions for coin packages.
type StripeClient struct {
	baseURL   string
	secretKey string

	breaker *utils.CircuitBreaker
	hc      *http.Client
}

func NewStripeClient(cfg *StripeConfig) *StripeClient {
	return &StripeClient{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		secretKey: cfg.SecretKey,
		breaker:   utils.NewCircuitBreaker("stripe"),
		hc: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *StripeClient) Provider() Provider {
	return ProviderStripe
}

type stripeSessionResponse struct {
	ID        string `json:"id"`
	URL       string `json:"url"`
	ExpiresAt int64  `json:"expires_at"`
}

func (c *StripeClient) CreateCheckout(ctx context.Context, req *CheckoutRequest) (*CheckoutSession, error) {
	// Stripe amounts are in the smallest currency unit.
	cents := req.Amount.Mul(hundred).IntPart()

	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("client_reference_id", req.Reference)
	form.Set("line_items[0][quantity]", "1")
	form.Set("line_items[0][price_data][currency]", strings.ToLower(req.Currency))
	form.Set("line_items[0][price_data][unit_amount]", fmt.Sprintf("%d", cents))
	form.Set("line_items[0][price_data][product_data][name]", req.Description)
	form.Set("metadata[user_id]", req.UserID)
	form.Set("metadata[package_id]", req.PackageID)

	result, err := c.breaker.Execute(ctx, func() (interface{}, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
			c.baseURL+"/v1/checkout/sessions", strings.NewReader(form.Encode()))
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("Authorization", "Bearer "+c.secretKey)
		httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := c.hc.Do(httpReq)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("stripe checkout session: unexpected status %d", resp.StatusCode)
		}

		var session stripeSessionResponse
		if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
			return nil, fmt.Errorf("decode stripe response: %w", err)
		}
		return &session, nil
	})
	if err != nil {
		return nil, fmt.Errorf("stripe: %w", err)
	}

	session := result.(*stripeSessionResponse)
	return &CheckoutSession{
		Reference:   req.Reference,
		Provider:    ProviderStripe,
		RedirectURL: session.URL,
		ExpiresAt:   time.Unix(session.ExpiresAt, 0),
	}, nil
}
