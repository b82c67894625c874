package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"videochat-system/internal/services/checkout"
	"videochat-system/internal/status"
	"videochat-system/models"
)

// fakePurchaseLedger records credits without a backing store.
type fakePurchaseLedger struct {
	balances  map[string]int
	credits   int
	creditErr error
}

func newFakePurchaseLedger() *fakePurchaseLedger {
	return &fakePurchaseLedger{balances: make(map[string]int)}
}

func (l *fakePurchaseLedger) PackageByID(id string) (*models.CoinPackage, error) {
	return (&CoinService{}).PackageByID(id)
}

func (l *fakePurchaseLedger) Credit(ctx context.Context, userID string, amount int, provider, description string) error {
	if l.creditErr != nil {
		return l.creditErr
	}
	l.balances[userID] += amount
	l.credits++
	return nil
}

func (l *fakePurchaseLedger) Balance(ctx context.Context, userID string) (int, error) {
	return l.balances[userID], nil
}

// fakeProvider returns a canned checkout session.
type fakeProvider struct {
	name    checkout.Provider
	lastReq *checkout.CheckoutRequest
}

func (p *fakeProvider) Provider() checkout.Provider {
	return p.name
}

func (p *fakeProvider) CreateCheckout(ctx context.Context, req *checkout.CheckoutRequest) (*checkout.CheckoutSession, error) {
	p.lastReq = req
	return &checkout.CheckoutSession{
		Reference:   req.Reference,
		Provider:    p.name,
		RedirectURL: "https://checkout.example.com/" + req.Reference,
		ExpiresAt:   time.Now().Add(30 * time.Minute),
	}, nil
}

func TestPurchaseService_BeginPurchase(t *testing.T) {
	db, _ := redismock.NewClientMock()
	provider := &fakeProvider{name: checkout.ProviderStripe}
	registry := checkout.NewRegistry()
	registry.Register(provider)

	service := NewPurchaseService(db, nil, newFakePurchaseLedger(), registry, newRecordingNotifier(), "checkout-payment-notifications")

	session, err := service.BeginPurchase(context.Background(), "user-1", "2", "")

	require.NoError(t, err)
	assert.Equal(t, checkout.ProviderStripe, session.Provider)
	assert.True(t, strings.HasPrefix(session.Reference, "purchase_user-1_"))

	require.NotNil(t, provider.lastReq)
	assert.Equal(t, 500, provider.lastReq.Coins)
	assert.Equal(t, "19.99", provider.lastReq.Amount.StringFixed(2))
	assert.Equal(t, "USD", provider.lastReq.Currency)
	assert.Equal(t, "Coin purchase: Popular", provider.lastReq.Description)
}

func TestPurchaseService_BeginPurchase_UnknownPackage(t *testing.T) {
	db, _ := redismock.NewClientMock()
	registry := checkout.NewRegistry()
	registry.Register(&fakeProvider{name: checkout.ProviderStripe})

	service := NewPurchaseService(db, nil, newFakePurchaseLedger(), registry, newRecordingNotifier(), "checkout-payment-notifications")

	_, err := service.BeginPurchase(context.Background(), "user-1", "nope", "")

	assert.ErrorIs(t, err, status.ErrPackageNotFound)
}

func TestPurchaseService_BeginPurchase_UnknownProvider(t *testing.T) {
	db, _ := redismock.NewClientMock()
	registry := checkout.NewRegistry()
	registry.Register(&fakeProvider{name: checkout.ProviderStripe})

	service := NewPurchaseService(db, nil, newFakePurchaseLedger(), registry, newRecordingNotifier(), "checkout-payment-notifications")

	_, err := service.BeginPurchase(context.Background(), "user-1", "1", checkout.ProviderIyzico)

	assert.Error(t, err)
}

func TestPurchaseService_SettlePurchase_CreditsAndNotifies(t *testing.T) {
	db, mock := redismock.NewClientMock()
	ledger := newFakePurchaseLedger()
	notifier := newRecordingNotifier()
	registry := checkout.NewRegistry()

	service := NewPurchaseService(db, nil, ledger, registry, notifier, "checkout-payment-notifications")

	mock.ExpectHGetAll("purchase:purchase_user-1_1700000000").SetVal(map[string]string{
		"user_id":    "user-1",
		"package_id": "1",
		"coins":      "100",
		"provider":   "stripe",
		"status":     "pending",
	})
	mock.ExpectSetNX("purchase:purchase_user-1_1700000000:claim", "1", purchaseTTL).SetVal(true)
	mock.ExpectHSet("purchase:purchase_user-1_1700000000", "status", "completed").SetVal(0)

	err := service.SettlePurchase(context.Background(), "purchase_user-1_1700000000")

	require.NoError(t, err)
	assert.Equal(t, 100, ledger.balances["user-1"])

	event, ok := notifier.lastEvent("user-1")
	require.True(t, ok)
	assert.Equal(t, "coins_updated", event.event)
	assert.Equal(t, 100, event.payload["coins_added"])
	assert.Equal(t, 100, event.payload["balance"])

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPurchaseService_SettlePurchase_AlreadyCompleted(t *testing.T) {
	db, mock := redismock.NewClientMock()
	ledger := newFakePurchaseLedger()

	service := NewPurchaseService(db, nil, ledger, checkout.NewRegistry(), newRecordingNotifier(), "checkout-payment-notifications")

	mock.ExpectHGetAll("purchase:ref-1").SetVal(map[string]string{
		"user_id": "user-1",
		"coins":   "100",
		"status":  "completed",
	})

	require.NoError(t, service.SettlePurchase(context.Background(), "ref-1"))
	assert.Equal(t, 0, ledger.credits)
}

func TestPurchaseService_SettlePurchase_DuplicateConfirmationCreditsOnce(t *testing.T) {
	db, mock := redismock.NewClientMock()
	ledger := newFakePurchaseLedger()
	notifier := newRecordingNotifier()

	service := NewPurchaseService(db, nil, ledger, checkout.NewRegistry(), notifier, "checkout-payment-notifications")

	// A second confirmation can read the hash before the first one marks it
	// completed; losing the claim must make it a no-op.
	mock.ExpectHGetAll("purchase:ref-1").SetVal(map[string]string{
		"user_id":    "user-1",
		"package_id": "1",
		"coins":      "100",
		"provider":   "stripe",
		"status":     "pending",
	})
	mock.ExpectSetNX("purchase:ref-1:claim", "1", purchaseTTL).SetVal(false)

	require.NoError(t, service.SettlePurchase(context.Background(), "ref-1"))

	assert.Equal(t, 0, ledger.credits)
	_, notified := notifier.lastEvent("user-1")
	assert.False(t, notified)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPurchaseService_SettlePurchase_CreditFailureReleasesClaim(t *testing.T) {
	db, mock := redismock.NewClientMock()
	ledger := newFakePurchaseLedger()
	ledger.creditErr = assert.AnError

	service := NewPurchaseService(db, nil, ledger, checkout.NewRegistry(), newRecordingNotifier(), "checkout-payment-notifications")

	mock.ExpectHGetAll("purchase:ref-1").SetVal(map[string]string{
		"user_id":    "user-1",
		"package_id": "1",
		"coins":      "100",
		"provider":   "stripe",
		"status":     "pending",
	})
	mock.ExpectSetNX("purchase:ref-1:claim", "1", purchaseTTL).SetVal(true)
	mock.ExpectDel("purchase:ref-1:claim").SetVal(1)

	require.Error(t, service.SettlePurchase(context.Background(), "ref-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPurchaseService_SettlePurchase_UnknownReference(t *testing.T) {
	db, mock := redismock.NewClientMock()

	service := NewPurchaseService(db, nil, newFakePurchaseLedger(), checkout.NewRegistry(), newRecordingNotifier(), "checkout-payment-notifications")

	mock.ExpectHGetAll("purchase:ref-x").SetVal(map[string]string{})

	err := service.SettlePurchase(context.Background(), "ref-x")

	assert.ErrorIs(t, err, status.ErrCheckoutNotFound)
}
