package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	TransactionUsage    = "usage"
	TransactionPurchase = "purchase"
)

type Transaction struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Amount      int       `json:"amount"` // signed: debits negative, credits positive
	Type        string    `json:"type"`   // usage, purchase
	Provider    string    `json:"provider"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

type CoinPackage struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Coins    int             `json:"amount"`
	Price    decimal.Decimal `json:"price"`
	Currency string          `json:"currency"`
}
