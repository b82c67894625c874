package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	pubnub "github.com/pubnub/go/v7"
	"github.com/redis/go-redis/v9"

	"videochat-system/internal/services/checkout"
	"videochat-system/internal/status"
	"videochat-system/models"
)

const purchaseTTL = 30 * time.Minute

// PurchaseLedger is the slice of the coin ledger that purchases need.
type PurchaseLedger interface {
	PackageByID(id string) (*models.CoinPackage, error)
	Credit(ctx context.Context, userID string, amount int, provider, description string) error
	Balance(ctx context.Context, userID string) (int, error)
}

// PurchaseService opens provider checkout sessions for coin packages and
// credits accounts when the payment notification channel confirms them.
type PurchaseService struct {
	Redis    *redis.Client
	PubNub   *pubnub.PubNub
	coins    PurchaseLedger
	registry *checkout.Registry
	notifier Notifier

	notifyChannel string
}

func NewPurchaseService(redisClient *redis.Client, pn *pubnub.PubNub, coins PurchaseLedger, registry *checkout.Registry, notifier Notifier, notifyChannel string) *PurchaseService {
	return &PurchaseService{
		Redis:         redisClient,
		PubNub:        pn,
		coins:         coins,
		registry:      registry,
		notifier:      notifier,
		notifyChannel: notifyChannel,
	}
}

// BeginPurchase opens a checkout session for the given package and records
// the pending purchase so the payment notification can be matched back.
func (s *PurchaseService) BeginPurchase(ctx context.Context, userID, packageID string, provider checkout.Provider) (*checkout.CheckoutSession, error) {
	pkg, err := s.coins.PackageByID(packageID)
	if err != nil {
		return nil, err
	}

	var client checkout.ProviderClient
	if provider == "" {
		client, err = s.registry.Primary()
	} else {
		client, err = s.registry.Client(provider)
	}
	if err != nil {
		return nil, err
	}

	reference := fmt.Sprintf("purchase_%s_%d", userID, time.Now().Unix())

	session, err := client.CreateCheckout(ctx, &checkout.CheckoutRequest{
		UserID:      userID,
		PackageID:   pkg.ID,
		Coins:       pkg.Coins,
		Amount:      pkg.Price,
		Currency:    pkg.Currency,
		Reference:   reference,
		Description: fmt.Sprintf("Coin purchase: %s", pkg.Name),
	})
	if err != nil {
		return nil, err
	}

	purchaseKey := fmt.Sprintf("purchase:%s", reference)
	pending := map[string]any{
		"user_id":    userID,
		"package_id": pkg.ID,
		"coins":      pkg.Coins,
		"provider":   string(client.Provider()),
		"status":     "pending",
		"created_at": time.Now().Unix(),
	}
	for k, v := range pending {
		s.Redis.HSet(ctx, purchaseKey, k, v)
	}
	s.Redis.Expire(ctx, purchaseKey, purchaseTTL)

	return session, nil
}

// SubscribeToPaymentNotifications blocks on the provider notification channel
// and settles purchases as confirmations arrive. Run it in its own goroutine.
func (s *PurchaseService) SubscribeToPaymentNotifications() {
	listener := pubnub.NewListener()

	s.PubNub.AddListener(listener)
	s.PubNub.Subscribe().
		Channels([]string{s.notifyChannel}).
		Execute()

	for message := range listener.Message {
		go s.handlePaymentNotification(message)
	}
}

func (s *PurchaseService) handlePaymentNotification(message *pubnub.PNMessage) {
	var notification struct {
		Reference string `json:"reference"`
		Status    string `json:"status"`
	}

	data, ok := message.Message.(map[string]any)
	if !ok {
		return
	}

	jsonData, _ := json.Marshal(data)
	if err := json.Unmarshal(jsonData, &notification); err != nil {
		slog.Error("parse payment notification", "error", err)
		return
	}

	if notification.Status != "success" {
		slog.Info("payment not successful", "reference", notification.Reference, "status", notification.Status)
		return
	}

	ctx := context.Background()
	if err := s.SettlePurchase(ctx, notification.Reference); err != nil {
		slog.Error("settle purchase", "reference", notification.Reference, "error", err)
	}
}

// SettlePurchase credits the coins for a confirmed purchase. A claim key
// makes settlement single-shot: duplicate confirmations for one reference,
// even concurrent ones, credit at most once.
func (s *PurchaseService) SettlePurchase(ctx context.Context, reference string) error {
	purchaseKey := fmt.Sprintf("purchase:%s", reference)

	pending, err := s.Redis.HGetAll(ctx, purchaseKey).Result()
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		return status.ErrCheckoutNotFound
	}
	if pending["status"] == "completed" {
		return nil
	}

	claimKey := purchaseKey + ":claim"
	claimed, err := s.Redis.SetNX(ctx, claimKey, "1", purchaseTTL).Result()
	if err != nil {
		return err
	}
	if !claimed {
		return nil
	}

	coins, err := strconv.Atoi(pending["coins"])
	if err != nil {
		return fmt.Errorf("pending purchase %s: bad coin amount %q", reference, pending["coins"])
	}
	userID := pending["user_id"]

	pkg, err := s.coins.PackageByID(pending["package_id"])
	if err != nil {
		return err
	}

	description := fmt.Sprintf("Coin purchase: %s", pkg.Name)
	if err := s.coins.Credit(ctx, userID, coins, pending["provider"], description); err != nil {
		// Release the claim so a redelivered confirmation can retry.
		s.Redis.Del(ctx, claimKey)
		return err
	}

	s.Redis.HSet(ctx, purchaseKey, "status", "completed")

	balance, err := s.coins.Balance(ctx, userID)
	if err != nil {
		slog.Warn("read balance after purchase", "user", userID, "error", err)
		balance = -1
	}
	s.notifier.Deliver(userID, "coins_updated", map[string]any{
		"coins_added": coins,
		"balance":     balance,
	})

	slog.Info("purchase settled", "reference", reference, "user", userID, "coins", coins)
	return nil
}
