package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Provider identifies a checkout backend.
type Provider string

const (
	ProviderStripe Provider = "stripe"
	ProviderIyzico Provider = "iyzico"
)

// CheckoutRequest describes a coin purchase to hand to a provider.
type CheckoutRequest struct {
	UserID      string          `json:"user_id"`
	PackageID   string          `json:"package_id"`
	Coins       int             `json:"coins"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Reference   string          `json:"reference"`
	Description string          `json:"description,omitempty"`
}

// CheckoutSession is the provider-side session the client is redirected to.
type CheckoutSession struct {
	Reference   string    `json:"reference"`
	Provider    Provider  `json:"provider"`
	RedirectURL string    `json:"redirect_url"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// ProviderClient is the common interface for all checkout providers.
type ProviderClient interface {
	// Provider returns the provider type.
	Provider() Provider

	// CreateCheckout opens a provider-side checkout session.
	CreateCheckout(ctx context.Context, req *CheckoutRequest) (*CheckoutSession, error)
}

// Registry manages the configured provider clients.
type Registry struct {
	clients map[Provider]ProviderClient
	primary Provider
}

func NewRegistry() *Registry {
	return &Registry{
		clients: make(map[Provider]ProviderClient),
	}
}

// Register adds a provider client. The first registered provider becomes
// the primary.
func (r *Registry) Register(client ProviderClient) {
	r.clients[client.Provider()] = client
	if r.primary == "" {
		r.primary = client.Provider()
	}
}

// Client returns the client for the given provider.
func (r *Registry) Client(provider Provider) (ProviderClient, error) {
	client, exists := r.clients[provider]
	if !exists {
		return nil, fmt.Errorf("checkout provider %s not registered", provider)
	}
	return client, nil
}

// Primary returns the primary provider client.
func (r *Registry) Primary() (ProviderClient, error) {
	if r.primary == "" {
		return nil, fmt.Errorf("no checkout provider configured")
	}
	return r.Client(r.primary)
}

// Providers returns the registered provider types.
func (r *Registry) Providers() []Provider {
	providers := make([]Provider, 0, len(r.clients))
	for provider := range r.clients {
		providers = append(providers, provider)
	}
	return providers
}
