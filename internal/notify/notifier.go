package notify

import (
	"fmt"
	"log/slog"

	pubnub "github.com/pubnub/go/v7"
)

// PubNubNotifier pushes events to a participant's private channel. Delivery
// is best effort: a participant without an open subscription simply misses
// the message, and ledger/session state stays queryable for when they
// reconnect.
type PubNubNotifier struct {
	pn *pubnub.PubNub
}

func NewPubNubNotifier(pn *pubnub.PubNub) *PubNubNotifier {
	return &PubNubNotifier{pn: pn}
}

func userChannel(userID string) string {
	return fmt.Sprintf("user-%s", userID)
}

func (n *PubNubNotifier) Deliver(userID, event string, payload map[string]any) {
	message := map[string]any{"type": event}
	for k, v := range payload {
		message[k] = v
	}

	_, _, err := n.pn.Publish().
		Channel(userChannel(userID)).
		Message(message).
		Execute()
	if err != nil {
		slog.Warn("publish notification", "user", userID, "event", event, "error", err)
	}
}
