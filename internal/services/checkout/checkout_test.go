package checkout

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRequest() *CheckoutRequest {
	return &CheckoutRequest{
		UserID:      "user-1",
		PackageID:   "2",
		Coins:       500,
		Amount:      decimal.NewFromFloat(19.99),
		Currency:    "USD",
		Reference:   "purchase_user-1_1700000000",
		Description: "Coin purchase: Popular",
	}
}

func TestStripeClient_CreateCheckout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/checkout/sessions", r.URL.Path)
		assert.Equal(t, "Bearer sk_test_123", r.Header.Get("Authorization"))

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "payment", r.PostForm.Get("mode"))
		assert.Equal(t, "purchase_user-1_1700000000", r.PostForm.Get("client_reference_id"))
		assert.Equal(t, "1999", r.PostForm.Get("line_items[0][price_data][unit_amount]"))
		assert.Equal(t, "usd", r.PostForm.Get("line_items[0][price_data][currency]"))
		assert.Equal(t, "user-1", r.PostForm.Get("metadata[user_id]"))

		json.NewEncoder(w).Encode(map[string]any{
			"id":         "cs_test_1",
			"url":        "https://checkout.stripe.com/pay/cs_test_1",
			"expires_at": time.Now().Add(time.Hour).Unix(),
		})
	}))
	defer server.Close()

	client := NewStripeClient(&StripeConfig{BaseURL: server.URL, SecretKey: "sk_test_123"})

	session, err := client.CreateCheckout(context.Background(), testRequest())

	require.NoError(t, err)
	assert.Equal(t, ProviderStripe, session.Provider)
	assert.Equal(t, "purchase_user-1_1700000000", session.Reference)
	assert.Equal(t, "https://checkout.stripe.com/pay/cs_test_1", session.RedirectURL)
	assert.True(t, session.ExpiresAt.After(time.Now()))
}

func TestStripeClient_CreateCheckout_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewStripeClient(&StripeConfig{BaseURL: server.URL, SecretKey: "sk_test_123"})

	_, err := client.CreateCheckout(context.Background(), testRequest())

	assert.Error(t, err)
}

func TestIyzicoClient_CreateCheckout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/payment/iyzipos/checkoutform/initialize", r.URL.Path)
		assert.NotEmpty(t, r.Header.Get("X-Iyz-Signature"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "purchase_user-1_1700000000", body["conversationId"])
		assert.Equal(t, "USD", body["currency"])

		json.NewEncoder(w).Encode(map[string]any{
			"status":         "success",
			"paymentPageUrl": "https://sandbox.iyzipay.com/checkout/1",
		})
	}))
	defer server.Close()

	client := NewIyzicoClient(&IyzicoConfig{BaseURL: server.URL, SecretKey: "secret"})

	session, err := client.CreateCheckout(context.Background(), testRequest())

	require.NoError(t, err)
	assert.Equal(t, ProviderIyzico, session.Provider)
	assert.Equal(t, "https://sandbox.iyzipay.com/checkout/1", session.RedirectURL)
}

func TestIyzicoClient_CreateCheckout_Failure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"status":       "failure",
			"errorMessage": "invalid api key",
		})
	}))
	defer server.Close()

	client := NewIyzicoClient(&IyzicoConfig{BaseURL: server.URL, SecretKey: "secret"})

	_, err := client.CreateCheckout(context.Background(), testRequest())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid api key")
}

func TestRegistry_PrimaryIsFirstRegistered(t *testing.T) {
	registry := NewRegistry()
	stripe := NewStripeClient(&StripeConfig{BaseURL: "https://api.stripe.com"})
	iyzico := NewIyzicoClient(&IyzicoConfig{BaseURL: "https://api.iyzipay.com"})

	registry.Register(stripe)
	registry.Register(iyzico)

	primary, err := registry.Primary()
	require.NoError(t, err)
	assert.Equal(t, ProviderStripe, primary.Provider())

	client, err := registry.Client(ProviderIyzico)
	require.NoError(t, err)
	assert.Equal(t, ProviderIyzico, client.Provider())

	assert.Len(t, registry.Providers(), 2)
}

func TestRegistry_Empty(t *testing.T) {
	registry := NewRegistry()

	_, err := registry.Primary()
	assert.Error(t, err)

	_, err = registry.Client(ProviderStripe)
	assert.Error(t, err)
}
