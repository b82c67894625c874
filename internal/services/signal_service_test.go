package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignalService_Relay(t *testing.T) {
	dir := newFakeDirectory()
	notifier := newRecordingNotifier()
	service := NewSignalService(dir, notifier)

	payload := map[string]any{"type": "offer", "sdp": "v=0..."}
	service.Relay(context.Background(), "user-1", "user-2", payload)

	event, ok := notifier.lastEvent("user-2")
	require.True(t, ok)
	assert.Equal(t, "negotiation_message", event.event)
	assert.Equal(t, "user-1", event.payload["from"])
	assert.Equal(t, payload, event.payload["payload"])
}

func TestSignalService_Relay_OfflineDestinationDropped(t *testing.T) {
	dir := newFakeDirectory()
	dir.offline["user-2"] = true
	notifier := newRecordingNotifier()
	service := NewSignalService(dir, notifier)

	service.Relay(context.Background(), "user-1", "user-2", map[string]any{"type": "offer"})

	_, ok := notifier.lastEvent("user-2")
	assert.False(t, ok)
}

func TestSignalService_Relay_EmptyDestination(t *testing.T) {
	dir := newFakeDirectory()
	notifier := newRecordingNotifier()
	service := NewSignalService(dir, notifier)

	service.Relay(context.Background(), "user-1", "", map[string]any{"type": "offer"})

	assert.Empty(t, notifier.events)
}
