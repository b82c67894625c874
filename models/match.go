package models

import (
	"time"
)

type Match struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	MatchedWith string     `json:"matched_with"`
	IsFake      bool       `json:"is_fake"`
	VideoPath   string     `json:"video_path,omitempty"`
	StartTime   time.Time  `json:"start_time"`
	EndTime     *time.Time `json:"end_time,omitempty"`
	Duration    *int       `json:"duration,omitempty"` // whole seconds
}

// Ended reports whether the match has already been finalized.
func (m *Match) Ended() bool {
	return m.EndTime != nil
}

// Counterpart returns the other participant of a live match.
func (m *Match) Counterpart(userID string) string {
	if m.UserID == userID {
		return m.MatchedWith
	}
	return m.UserID
}

type QueueEntry struct {
	UserID   string    `json:"user_id"`
	JoinedAt time.Time `json:"joined_at"`
}

type FakeVideo struct {
	ID       string `json:"id"`
	Path     string `json:"path"`
	IsActive bool   `json:"is_active"`
}
