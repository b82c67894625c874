package services

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
)

func TestPresenceService_Connected(t *testing.T) {
	db, mock := redismock.NewClientMock()
	service := NewPresenceService(db, nil, time.Minute)

	mock.ExpectExists("presence:user:user-1").SetVal(1)
	assert.True(t, service.Connected(context.Background(), "user-1"))

	mock.ExpectExists("presence:user:user-2").SetVal(0)
	assert.False(t, service.Connected(context.Background(), "user-2"))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPresenceService_Connected_RedisErrorMeansOffline(t *testing.T) {
	db, mock := redismock.NewClientMock()
	service := NewPresenceService(db, nil, time.Minute)

	mock.ExpectExists("presence:user:user-1").SetErr(assert.AnError)

	assert.False(t, service.Connected(context.Background(), "user-1"))
}

func TestPresenceKey(t *testing.T) {
	assert.Equal(t, "presence:user:abc123", presenceKey("abc123"))
}
