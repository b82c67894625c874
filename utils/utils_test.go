package utils

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Circuit Breaker Tests

func TestCircuitBreaker_NewCircuitBreaker(t *testing.T) {
	cb := NewCircuitBreaker("test")

	assert.Equal(t, "test", cb.name)
	assert.Equal(t, uint32(100), cb.minVolume)
	assert.Equal(t, 0.6, cb.tripRatio)
	assert.Equal(t, 60*time.Second, cb.window)
	assert.Equal(t, 60*time.Second, cb.cooldown)
	assert.Equal(t, StateClosed, cb.state)
}

func TestCircuitBreaker_ExecuteSuccess(t *testing.T) {
	cb := NewCircuitBreaker("test")
	ctx := context.Background()

	expectedResult := "success"
	result, err := cb.Execute(ctx, func() (any, error) {
		return expectedResult, nil
	})

	assert.NoError(t, err)
	assert.Equal(t, expectedResult, result)
	assert.Equal(t, StateClosed, cb.state)
	assert.Equal(t, uint32(1), cb.requests)
	assert.Equal(t, uint32(0), cb.failures)
}

func TestCircuitBreaker_ExecuteFailure(t *testing.T) {
	cb := NewCircuitBreaker("test")
	ctx := context.Background()

	expectedError := errors.New("test error")
	result, err := cb.Execute(ctx, func() (any, error) {
		return nil, expectedError
	})

	assert.Error(t, err)
	assert.Equal(t, expectedError, err)
	assert.Nil(t, result)
	assert.Equal(t, StateClosed, cb.state)
	assert.Equal(t, uint32(1), cb.requests)
	assert.Equal(t, uint32(1), cb.failures)
}

func TestCircuitBreaker_TripsAndSheds(t *testing.T) {
	cb := NewCircuitBreaker("test")
	cb.minVolume = 2
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := cb.Execute(ctx, func() (any, error) {
			return nil, errors.New("provider down")
		})
		assert.Error(t, err)
	}
	assert.Equal(t, StateOpen, cb.state)

	called := false
	_, err := cb.Execute(ctx, func() (any, error) {
		called = true
		return nil, nil
	})

	assert.ErrorIs(t, err, ErrBreakerOpen)
	assert.False(t, called)
}

func TestCircuitBreaker_HalfOpenSuccessCloses(t *testing.T) {
	cb := NewCircuitBreaker("test")
	cb.minVolume = 1
	ctx := context.Background()

	_, _ = cb.Execute(ctx, func() (any, error) {
		return nil, errors.New("provider down")
	})
	assert.Equal(t, StateOpen, cb.state)

	// Expire the cooldown so the next call is a probe.
	cb.deadline = time.Now().Add(-time.Second)

	result, err := cb.Execute(ctx, func() (any, error) {
		return "recovered", nil
	})

	assert.NoError(t, err)
	assert.Equal(t, "recovered", result)
	assert.Equal(t, StateClosed, cb.state)
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb := NewCircuitBreaker("test")
	cb.minVolume = 1
	ctx := context.Background()

	_, _ = cb.Execute(ctx, func() (any, error) {
		return nil, errors.New("provider down")
	})
	cb.deadline = time.Now().Add(-time.Second)

	_, err := cb.Execute(ctx, func() (any, error) {
		return nil, errors.New("still down")
	})

	assert.Error(t, err)
	assert.Equal(t, StateOpen, cb.state)
}

// Random Tests

func TestGenerateCode(t *testing.T) {
	code, err := GenerateCode(8)

	require.NoError(t, err)
	assert.Len(t, code, 16) // 8 bytes hex encoded
	assert.Equal(t, strings.ToUpper(code), code)
}

func TestGenerateCode_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code, err := GenerateCode(8)
		require.NoError(t, err)
		assert.False(t, seen[code])
		seen[code] = true
	}
}

func TestGenerateFakeUserID(t *testing.T) {
	id := GenerateFakeUserID()

	assert.True(t, strings.HasPrefix(id, "fake-"))
	assert.Len(t, id, len("fake-")+16)
	assert.Equal(t, strings.ToLower(id), id)
}

// Redis Tests

func TestRedisHealthCheck(t *testing.T) {
	db, mock := redismock.NewClientMock()

	mock.ExpectPing().SetVal("PONG")

	assert.NoError(t, RedisHealthCheck(db))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisHealthCheck_Failure(t *testing.T) {
	db, mock := redismock.NewClientMock()

	mock.ExpectPing().SetErr(errors.New("connection refused"))

	assert.Error(t, RedisHealthCheck(db))
}
