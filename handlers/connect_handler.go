package handlers

import (
	"errors"
	"net/http"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"videochat-system/internal/services"
	"videochat-system/internal/status"
)

// ConnectHandler manages the participant connection lifecycle. Connecting
// mints an anonymous identity with a one-time client secret; every other
// endpoint authenticates with that secret.
type ConnectHandler struct {
	presence    *services.PresenceService
	coins       *services.CoinService
	matches     *services.MatchService
	signupBonus int
}

func NewConnectHandler(presence *services.PresenceService, coins *services.CoinService, matches *services.MatchService, signupBonus int) *ConnectHandler {
	return &ConnectHandler{
		presence:    presence,
		coins:       coins,
		matches:     matches,
		signupBonus: signupBonus,
	}
}

func (h *ConnectHandler) Connect(e *core.RequestEvent) error {
	ctx := e.Request.Context()

	userID, secret, err := h.presence.Register(ctx)
	if err != nil {
		return apis.NewApiError(http.StatusInternalServerError, "Failed to register", err)
	}

	if err := h.coins.EnsureAccount(ctx, userID, h.signupBonus); err != nil {
		return apis.NewApiError(http.StatusInternalServerError, "Failed to create coin account", err)
	}

	balance, err := h.coins.Balance(ctx, userID)
	if err != nil {
		return apis.NewApiError(http.StatusInternalServerError, "Failed to read balance", err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"user_id":       userID,
		"client_secret": secret,
		"balance":       balance,
	})
}

func (h *ConnectHandler) Heartbeat(e *core.RequestEvent) error {
	userID, err := authenticate(e, h.presence)
	if err != nil {
		return err
	}

	if err := h.presence.Touch(e.Request.Context(), userID); err != nil {
		return apis.NewApiError(http.StatusInternalServerError, "Failed to refresh presence", err)
	}

	return e.JSON(http.StatusOK, map[string]any{"status": "ok"})
}

// Disconnect removes the participant from the waiting queue and marks it
// offline. A pending fallback timer is also cancelled.
func (h *ConnectHandler) Disconnect(e *core.RequestEvent) error {
	userID, err := authenticate(e, h.presence)
	if err != nil {
		return err
	}

	h.matches.CancelMatch(userID)

	if err := h.presence.Disconnect(e.Request.Context(), userID); err != nil {
		return apis.NewApiError(http.StatusInternalServerError, "Failed to disconnect", err)
	}

	return e.JSON(http.StatusOK, map[string]any{"status": "disconnected"})
}

// authenticate resolves the participant identity from request headers.
func authenticate(e *core.RequestEvent, presence *services.PresenceService) (string, error) {
	userID := e.Request.Header.Get("X-User-Id")
	secret := e.Request.Header.Get("X-Client-Secret")
	if userID == "" || secret == "" {
		return "", apis.NewUnauthorizedError("Missing credentials", nil)
	}

	if err := presence.Authenticate(e.Request.Context(), userID, secret); err != nil {
		if errors.Is(err, status.ErrUserNotFound) || errors.Is(err, status.ErrInvalidSecret) {
			return "", apis.NewUnauthorizedError("Invalid credentials", nil)
		}
		return "", apis.NewApiError(http.StatusInternalServerError, "Failed to authenticate", err)
	}
	return userID, nil
}
