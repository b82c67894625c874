package services

import (
	"sync"
	"time"

	"videochat-system/models"
)

// MatchQueue holds the users currently waiting for a live match. Every
// operation takes the queue lock, so enqueue, pair dequeue and removal are
// atomic with respect to each other: an entry claimed by a forming pair can
// never also be claimed by a fallback timer or a cancellation.
type MatchQueue struct {
	mu      sync.Mutex
	entries []models.QueueEntry
}

func NewMatchQueue() *MatchQueue {
	return &MatchQueue{}
}

// Enqueue appends the user unless already queued. Returns true if the user
// was newly added.
func (q *MatchQueue) Enqueue(userID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, e := range q.entries {
		if e.UserID == userID {
			return false
		}
	}

	q.entries = append(q.entries, models.QueueEntry{
		UserID:   userID,
		JoinedAt: time.Now(),
	})
	return true
}

// TryDequeuePair removes and returns the two longest-waiting users. Returns
// false without mutating the queue when fewer than two users are waiting.
func (q *MatchQueue) TryDequeuePair() (string, string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.entries) < 2 {
		return "", "", false
	}

	first := q.entries[0].UserID
	second := q.entries[1].UserID
	q.entries = append([]models.QueueEntry{}, q.entries[2:]...)

	return first, second, true
}

// Remove deletes the user's entry and reports whether it was present. The
// fallback timer and explicit cancellation both race through here; whichever
// caller sees true owns the entry.
func (q *MatchQueue) Remove(userID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, e := range q.entries {
		if e.UserID == userID {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			return true
		}
	}
	return false
}

func (q *MatchQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// OldestWait returns how long the head of the queue has been waiting.
func (q *MatchQueue) OldestWait() time.Duration {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.entries) == 0 {
		return 0
	}
	return time.Since(q.entries[0].JoinedAt)
}

// Snapshot returns a copy of the current entries, oldest first.
func (q *MatchQueue) Snapshot() []models.QueueEntry {
	q.mu.Lock()
	defer q.mu.Unlock()

	snapshot := make([]models.QueueEntry, len(q.entries))
	copy(snapshot, q.entries)
	return snapshot
}
