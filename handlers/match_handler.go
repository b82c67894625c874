package handlers

import (
	"errors"
	"net/http"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"videochat-system/internal/services"
	"videochat-system/internal/status"
)

type MatchHandler struct {
	presence *services.PresenceService
	matches  *services.MatchService
	store    *services.MatchStore
	signals  *services.SignalService
}

func NewMatchHandler(presence *services.PresenceService, matches *services.MatchService, store *services.MatchStore, signals *services.SignalService) *MatchHandler {
	return &MatchHandler{
		presence: presence,
		matches:  matches,
		store:    store,
		signals:  signals,
	}
}

// FindMatch puts the participant in the waiting queue. The outcome arrives
// asynchronously on the participant's notification channel as a match_found
// or match_error event.
func (h *MatchHandler) FindMatch(e *core.RequestEvent) error {
	userID, err := authenticate(e, h.presence)
	if err != nil {
		return err
	}

	if err := h.matches.RequestMatch(e.Request.Context(), userID); err != nil {
		switch {
		case errors.Is(err, status.ErrBanned):
			return apis.NewForbiddenError("Account is banned", nil)
		case errors.Is(err, status.ErrInsufficientCoins):
			return apis.NewBadRequestError("Not enough coins", nil)
		case errors.Is(err, status.ErrAlreadyInCall):
			return apis.NewBadRequestError("Already in an active call", nil)
		case errors.Is(err, status.ErrUserNotFound):
			return apis.NewNotFoundError("Unknown participant", nil)
		default:
			return apis.NewApiError(http.StatusInternalServerError, "Failed to find match", err)
		}
	}

	return e.JSON(http.StatusOK, map[string]any{
		"status":  "searching",
		"user_id": userID,
	})
}

func (h *MatchHandler) CancelFindMatch(e *core.RequestEvent) error {
	userID, err := authenticate(e, h.presence)
	if err != nil {
		return err
	}

	h.matches.CancelMatch(userID)

	return e.JSON(http.StatusOK, map[string]any{"status": "cancelled"})
}

func (h *MatchHandler) EndCall(e *core.RequestEvent) error {
	userID, err := authenticate(e, h.presence)
	if err != nil {
		return err
	}

	var req struct {
		MatchID string `json:"match_id"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if req.MatchID == "" {
		return apis.NewBadRequestError("match_id is required", nil)
	}

	if err := h.matches.EndCall(e.Request.Context(), req.MatchID, userID); err != nil {
		return apis.NewApiError(http.StatusInternalServerError, "Failed to end call", err)
	}

	return e.JSON(http.StatusOK, map[string]any{"status": "ended"})
}

// Signal forwards a WebRTC negotiation message to the counterpart. The
// payload is opaque; undeliverable messages are dropped.
func (h *MatchHandler) Signal(e *core.RequestEvent) error {
	userID, err := authenticate(e, h.presence)
	if err != nil {
		return err
	}

	var req struct {
		To      string         `json:"to"`
		Payload map[string]any `json:"payload"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	h.signals.Relay(e.Request.Context(), userID, req.To, req.Payload)

	return e.JSON(http.StatusOK, map[string]any{"status": "sent"})
}

func (h *MatchHandler) MatchHistory(e *core.RequestEvent) error {
	userID, err := authenticate(e, h.presence)
	if err != nil {
		return err
	}

	matches, err := h.store.ListForUser(e.Request.Context(), userID)
	if err != nil {
		return apis.NewApiError(http.StatusInternalServerError, "Failed to list matches", err)
	}

	return e.JSON(http.StatusOK, map[string]any{"matches": matches})
}

func (h *MatchHandler) GetMatch(e *core.RequestEvent) error {
	userID, err := authenticate(e, h.presence)
	if err != nil {
		return err
	}

	matchID := e.Request.PathValue("id")
	match, err := h.store.GetMatch(e.Request.Context(), matchID)
	if err != nil {
		if errors.Is(err, status.ErrMatchNotFound) {
			return apis.NewNotFoundError("Match not found", nil)
		}
		return apis.NewApiError(http.StatusInternalServerError, "Failed to load match", err)
	}

	if match.UserID != userID && match.MatchedWith != userID {
		return apis.NewForbiddenError("Not a participant of this match", nil)
	}

	return e.JSON(http.StatusOK, match)
}
