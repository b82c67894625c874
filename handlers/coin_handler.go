package handlers

import (
	"errors"
	"net/http"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"videochat-system/internal/services"
	"videochat-system/internal/services/checkout"
	"videochat-system/internal/status"
)

type CoinHandler struct {
	presence  *services.PresenceService
	coins     *services.CoinService
	purchases *services.PurchaseService
}

func NewCoinHandler(presence *services.PresenceService, coins *services.CoinService, purchases *services.PurchaseService) *CoinHandler {
	return &CoinHandler{
		presence:  presence,
		coins:     coins,
		purchases: purchases,
	}
}

func (h *CoinHandler) GetBalance(e *core.RequestEvent) error {
	userID, err := authenticate(e, h.presence)
	if err != nil {
		return err
	}

	balance, err := h.coins.Balance(e.Request.Context(), userID)
	if err != nil {
		return apis.NewApiError(http.StatusInternalServerError, "Failed to read balance", err)
	}

	return e.JSON(http.StatusOK, map[string]any{"balance": balance})
}

func (h *CoinHandler) ListPackages(e *core.RequestEvent) error {
	return e.JSON(http.StatusOK, map[string]any{"packages": h.coins.Packages()})
}

func (h *CoinHandler) ListTransactions(e *core.RequestEvent) error {
	userID, err := authenticate(e, h.presence)
	if err != nil {
		return err
	}

	transactions, err := h.coins.Transactions(e.Request.Context(), userID)
	if err != nil {
		return apis.NewApiError(http.StatusInternalServerError, "Failed to list transactions", err)
	}

	return e.JSON(http.StatusOK, map[string]any{"transactions": transactions})
}

// Purchase opens a provider checkout session for a coin package. Coins are
// credited when the provider confirms payment, not here.
func (h *CoinHandler) Purchase(e *core.RequestEvent) error {
	userID, err := authenticate(e, h.presence)
	if err != nil {
		return err
	}

	var req struct {
		PackageID string `json:"package_id"`
		Provider  string `json:"provider"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if req.PackageID == "" {
		return apis.NewBadRequestError("package_id is required", nil)
	}

	session, err := h.purchases.BeginPurchase(e.Request.Context(), userID, req.PackageID, checkout.Provider(req.Provider))
	if err != nil {
		if errors.Is(err, status.ErrPackageNotFound) {
			return apis.NewNotFoundError("Unknown coin package", nil)
		}
		return apis.NewApiError(http.StatusInternalServerError, "Failed to start purchase", err)
	}

	return e.JSON(http.StatusOK, session)
}
