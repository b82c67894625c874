package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMatch_Counterpart(t *testing.T) {
	m := &Match{UserID: "user-1", MatchedWith: "user-2"}

	assert.Equal(t, "user-2", m.Counterpart("user-1"))
	assert.Equal(t, "user-1", m.Counterpart("user-2"))
}

func TestMatch_Ended(t *testing.T) {
	m := &Match{StartTime: time.Now()}
	assert.False(t, m.Ended())

	now := time.Now()
	m.EndTime = &now
	assert.True(t, m.Ended())
}
