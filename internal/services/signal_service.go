package services

import (
	"context"
	"log/slog"
)

// SignalService forwards connection-negotiation messages (offers, answers,
// ICE candidates) between the two endpoints of a live call. It keeps no
// state beyond routing: an offline destination just drops the message, the
// endpoints' own negotiation protocol deals with loss.
type SignalService struct {
	presence Directory
	notifier Notifier
}

func NewSignalService(presence Directory, notifier Notifier) *SignalService {
	return &SignalService{
		presence: presence,
		notifier: notifier,
	}
}

// Relay forwards payload to the destination's channel if it is connected.
// Publishing happens in the caller's goroutine, so messages from one sender
// to one destination keep their order.
func (s *SignalService) Relay(ctx context.Context, fromID, toID string, payload map[string]any) {
	if toID == "" {
		return
	}

	if !s.presence.Connected(ctx, toID) {
		slog.Debug("dropping negotiation message for offline user", "from", fromID, "to", toID)
		return
	}

	s.notifier.Deliver(toID, "negotiation_message", map[string]any{
		"from":    fromID,
		"payload": payload,
	})
}
