package checkout

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"videochat-system/utils"
)

var hundred = decimal.NewFromInt(100)

type IyzicoConfig struct {
	BaseURL   string `json:"base_url"`
	SecretKey string `json:"secret_key"`
}

// IyzicoClient opens iyzico checkout forms for coin packages. Requests are
// signed with an HMAC-SHA256 over the body.
type IyzicoClient struct {
	baseURL   string
	secretKey string

	breaker *utils.CircuitBreaker
	hc      *http.Client
}

func NewIyzicoClient(cfg *IyzicoConfig) *IyzicoClient {
	return &IyzicoClient{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		secretKey: cfg.SecretKey,
		breaker:   utils.NewCircuitBreaker("iyzico"),
		hc: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *IyzicoClient) Provider() Provider {
	return ProviderIyzico
}

type iyzicoCheckoutRequest struct {
	ConversationID string          `json:"conversationId"`
	Price          decimal.Decimal `json:"price"`
	Currency       string          `json:"currency"`
	BasketID       string          `json:"basketId"`
	Description    string          `json:"description,omitempty"`
}

type iyzicoCheckoutResponse struct {
	Status         string `json:"status"`
	PaymentPageURL string `json:"paymentPageUrl"`
	ErrorMessage   string `json:"errorMessage"`
}

func (c *IyzicoClient) CreateCheckout(ctx context.Context, req *CheckoutRequest) (*CheckoutSession, error) {
	body, err := json.Marshal(iyzicoCheckoutRequest{
		ConversationID: req.Reference,
		Price:          req.Amount,
		Currency:       req.Currency,
		BasketID:       req.PackageID,
		Description:    req.Description,
	})
	if err != nil {
		return nil, err
	}

	result, err := c.breaker.Execute(ctx, func() (interface{}, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
			c.baseURL+"/payment/iyzipos/checkoutform/initialize", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("X-Iyz-Signature", hmac256(body, []byte(c.secretKey)))

		resp, err := c.hc.Do(httpReq)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("iyzico checkout: unexpected status %d", resp.StatusCode)
		}

		var checkout iyzicoCheckoutResponse
		if err := json.NewDecoder(resp.Body).Decode(&checkout); err != nil {
			return nil, fmt.Errorf("decode iyzico response: %w", err)
		}
		if checkout.Status != "success" {
			return nil, fmt.Errorf("iyzico checkout: %s", checkout.ErrorMessage)
		}
		return &checkout, nil
	})
	if err != nil {
		return nil, fmt.Errorf("iyzico: %w", err)
	}

	checkout := result.(*iyzicoCheckoutResponse)
	return &CheckoutSession{
		Reference:   req.Reference,
		Provider:    ProviderIyzico,
		RedirectURL: checkout.PaymentPageURL,
		ExpiresAt:   time.Now().Add(30 * time.Minute),
	}, nil
}

// hmac256 generates an HMAC-SHA256 hash of body keyed with key.
func hmac256(body, key []byte) string {
	hash := hmac.New(sha256.New, key)
	hash.Write(body)
	return hex.EncodeToString(hash.Sum(nil))
}
