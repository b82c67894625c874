package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
	"github.com/shopspring/decimal"

	"videochat-system/internal/status"
	"videochat-system/models"
)

// CoinService is the credit ledger. Balances live in the "coins" collection
// as a denormalized running sum; every movement also appends a row to the
// "transactions" collection. Both writes happen inside one store transaction
// so a balance can never drift from its history.
type CoinService struct {
	app core.App
}

func NewCoinService(app core.App) *CoinService {
	return &CoinService{app: app}
}

// coinPackages mirrors the packages offered at checkout.
var coinPackages = []models.CoinPackage{
	{ID: "1", Name: "Starter", Coins: 100, Price: decimal.NewFromFloat(4.99), Currency: "USD"},
	{ID: "2", Name: "Popular", Coins: 500, Price: decimal.NewFromFloat(19.99), Currency: "USD"},
	{ID: "3", Name: "Premium", Coins: 1000, Price: decimal.NewFromFloat(34.99), Currency: "USD"},
}

func (s *CoinService) Packages() []models.CoinPackage {
	packages := make([]models.CoinPackage, len(coinPackages))
	copy(packages, coinPackages)
	return packages
}

func (s *CoinService) PackageByID(id string) (*models.CoinPackage, error) {
	for _, p := range coinPackages {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, status.ErrPackageNotFound
}

// EnsureAccount creates the user's coin record with the signup bonus if the
// user has never been seen before. Safe to call on every connection.
func (s *CoinService) EnsureAccount(ctx context.Context, userID string, bonus int) error {
	_, err := s.app.FindFirstRecordByFilter("coins", "user = {:user}", dbx.Params{"user": userID})
	if err == nil {
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("lookup coin account: %w", err)
	}

	return s.app.RunInTransaction(func(txApp core.App) error {
		coins, err := txApp.FindCollectionByNameOrId("coins")
		if err != nil {
			return err
		}

		record := core.NewRecord(coins)
		record.Set("user", userID)
		record.Set("balance", bonus)
		if err := txApp.Save(record); err != nil {
			return fmt.Errorf("create coin account: %w", err)
		}

		if bonus > 0 {
			if err := s.appendTransaction(txApp, userID, bonus, models.TransactionPurchase, "system", "Welcome bonus"); err != nil {
				return err
			}
		}

		slog.Info("created coin account", "user", userID, "bonus", bonus)
		return nil
	})
}

// Balance returns the user's current coin balance. A missing account reads
// as zero, matching a user whose record was pruned externally.
func (s *CoinService) Balance(ctx context.Context, userID string) (int, error) {
	record, err := s.app.FindFirstRecordByFilter("coins", "user = {:user}", dbx.Params{"user": userID})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("lookup coin balance: %w", err)
	}
	return record.GetInt("balance"), nil
}

// DebitIfSufficient removes amount coins from the user inside a single store
// transaction. Returns status.ErrInsufficientCoins without any side effect
// when the balance is too low.
func (s *CoinService) DebitIfSufficient(ctx context.Context, userID string, amount int, description string) error {
	return s.app.RunInTransaction(func(txApp core.App) error {
		record, err := txApp.FindFirstRecordByFilter("coins", "user = {:user}", dbx.Params{"user": userID})
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return status.ErrInsufficientCoins
			}
			return fmt.Errorf("lookup coin balance: %w", err)
		}

		balance := record.GetInt("balance")
		if balance < amount {
			return status.ErrInsufficientCoins
		}

		record.Set("balance", balance-amount)
		if err := txApp.Save(record); err != nil {
			return fmt.Errorf("update coin balance: %w", err)
		}

		return s.appendTransaction(txApp, userID, -amount, models.TransactionUsage, "system", description)
	})
}

// Credit adds amount coins to the user, creating the account if needed.
func (s *CoinService) Credit(ctx context.Context, userID string, amount int, provider, description string) error {
	return s.app.RunInTransaction(func(txApp core.App) error {
		record, err := txApp.FindFirstRecordByFilter("coins", "user = {:user}", dbx.Params{"user": userID})
		if err != nil {
			if !errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("lookup coin balance: %w", err)
			}
			coins, err := txApp.FindCollectionByNameOrId("coins")
			if err != nil {
				return err
			}
			record = core.NewRecord(coins)
			record.Set("user", userID)
			record.Set("balance", 0)
		}

		record.Set("balance", record.GetInt("balance")+amount)
		if err := txApp.Save(record); err != nil {
			return fmt.Errorf("update coin balance: %w", err)
		}

		return s.appendTransaction(txApp, userID, amount, models.TransactionPurchase, provider, description)
	})
}

// Transactions returns the user's ledger history, newest first.
func (s *CoinService) Transactions(ctx context.Context, userID string) ([]models.Transaction, error) {
	records, err := s.app.FindRecordsByFilter(
		"transactions",
		"user = {:user}",
		"-created",
		200,
		0,
		dbx.Params{"user": userID},
	)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}

	transactions := make([]models.Transaction, 0, len(records))
	for _, r := range records {
		transactions = append(transactions, models.Transaction{
			ID:          r.Id,
			UserID:      r.GetString("user"),
			Amount:      r.GetInt("amount"),
			Type:        r.GetString("type"),
			Provider:    r.GetString("provider"),
			Description: r.GetString("description"),
			CreatedAt:   r.GetDateTime("created").Time(),
		})
	}
	return transactions, nil
}

func (s *CoinService) appendTransaction(txApp core.App, userID string, amount int, kind, provider, description string) error {
	transactions, err := txApp.FindCollectionByNameOrId("transactions")
	if err != nil {
		return err
	}

	record := core.NewRecord(transactions)
	record.Set("user", userID)
	record.Set("amount", amount)
	record.Set("type", kind)
	record.Set("provider", provider)
	record.Set("description", description)
	if err := txApp.Save(record); err != nil {
		return fmt.Errorf("append transaction: %w", err)
	}
	return nil
}
