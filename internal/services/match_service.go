package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"videochat-system/internal/status"
	"videochat-system/models"
	"videochat-system/monitoring"
	"videochat-system/utils"
)

const (
	descLiveMatch   = "Video chat match"
	descFakeMatch   = "Video chat match (fake)"
	descMatchRefund = "Video chat match refund"
)

// Ledger is the credit ledger the coordinator debits for every match.
type Ledger interface {
	Balance(ctx context.Context, userID string) (int, error)
	DebitIfSufficient(ctx context.Context, userID string, amount int, description string) error
	Credit(ctx context.Context, userID string, amount int, provider, description string) error
}

// SessionStore persists match records.
type SessionStore interface {
	CreateMatch(ctx context.Context, userID, matchedWith string, isFake bool, videoPath string) (string, error)
	GetMatch(ctx context.Context, matchID string) (*models.Match, error)
	EndMatch(ctx context.Context, matchID string, endTime time.Time, duration int) error
}

// VideoPicker selects the simulated counterpart for fallback matches.
type VideoPicker interface {
	PickForUser(ctx context.Context, userID string) (*models.FakeVideo, error)
}

// Directory answers who a participant is and whether they are reachable.
type Directory interface {
	IsBanned(ctx context.Context, userID string) (bool, error)
	Connected(ctx context.Context, userID string) bool
}

// Notifier pushes an event to a participant, best effort.
type Notifier interface {
	Deliver(userID, event string, payload map[string]any)
}

// MatchService pairs participants for live calls, falling back to a fake
// video when no partner shows up within the fallback window. The queue and
// the per-user fallback timers are the shared mutable state; every decision
// about who owns a queue entry funnels through the queue's atomic Remove,
// so the timer, a forming pair and an explicit cancel can race safely.
type MatchService struct {
	queue    *MatchQueue
	coins    Ledger
	store    SessionStore
	videos   VideoPicker
	presence Directory
	notifier Notifier
	monitor  *monitoring.Monitor

	cost   int
	window time.Duration

	mu          sync.Mutex
	timers      map[string]*time.Timer
	activeCalls map[string]string // user -> match id
	stopped     bool
}

func NewMatchService(
	queue *MatchQueue,
	coins Ledger,
	store SessionStore,
	videos VideoPicker,
	presence Directory,
	notifier Notifier,
	monitor *monitoring.Monitor,
	cost int,
	window time.Duration,
) *MatchService {
	return &MatchService{
		queue:       queue,
		coins:       coins,
		store:       store,
		videos:      videos,
		presence:    presence,
		notifier:    notifier,
		monitor:     monitor,
		cost:        cost,
		window:      window,
		timers:      make(map[string]*time.Timer),
		activeCalls: make(map[string]string),
	}
}

// RequestMatch enqueues the user and either pairs them immediately with the
// longest-waiting partner or arms the fallback timer. Precondition failures
// are pushed to the user as match_error and returned to the caller.
func (s *MatchService) RequestMatch(ctx context.Context, userID string) error {
	banned, err := s.presence.IsBanned(ctx, userID)
	if err != nil {
		s.notifier.Deliver(userID, "match_error", map[string]any{"message": "User not found"})
		s.monitor.TrackMatchOperation("request", "user_not_found")
		return status.ErrUserNotFound
	}
	if banned {
		s.notifier.Deliver(userID, "match_error", map[string]any{"message": "Your account has been banned"})
		s.monitor.TrackMatchOperation("request", "banned")
		return status.ErrBanned
	}

	s.mu.Lock()
	_, inCall := s.activeCalls[userID]
	s.mu.Unlock()
	if inCall {
		s.notifier.Deliver(userID, "match_error", map[string]any{"message": "Already in a call"})
		s.monitor.TrackMatchOperation("request", "already_in_call")
		return status.ErrAlreadyInCall
	}

	balance, err := s.coins.Balance(ctx, userID)
	if err != nil {
		s.monitor.TrackMatchOperation("request", "error")
		return fmt.Errorf("check balance: %w", err)
	}
	if balance < s.cost {
		s.notifier.Deliver(userID, "match_error", map[string]any{"message": "Not enough coins"})
		s.monitor.TrackMatchOperation("request", "insufficient_coins")
		return status.ErrInsufficientCoins
	}

	// A repeated request while waiting is a no-op: the entry and its
	// fallback timer are already in place.
	if !s.queue.Enqueue(userID) {
		return nil
	}
	s.monitor.TrackMatchOperation("request", "success")
	slog.Info("user requested match", "user", userID, "queue_len", s.queue.Len())

	if p1, p2, ok := s.queue.TryDequeuePair(); ok {
		// Identities are unique in the queue, but never pair a user
		// with themselves: put the second entry back and wait.
		if p1 == p2 {
			s.queue.Enqueue(p2)
			s.armFallback(p2)
			return nil
		}
		err := s.pairLive(ctx, p1, p2)
		// The dequeued pair can be two older entries, e.g. restored by a
		// rollback. The requester is then still waiting and needs the
		// timer like any other queued user.
		if userID != p1 && userID != p2 {
			s.armFallback(userID)
		}
		return err
	}

	s.armFallback(userID)
	return nil
}

// CancelMatch removes the user from the queue without charging them. Safe
// to call when the user was never queued or already paired.
func (s *MatchService) CancelMatch(userID string) {
	s.stopFallback(userID)
	if s.queue.Remove(userID) {
		s.monitor.TrackMatchOperation("cancel", "success")
		slog.Info("user cancelled match finding", "user", userID)
	}
}

// EndCall finalizes the match: records end time and duration in whole
// seconds, and notifies the live counterpart if reachable. Unknown or
// already-ended matches are no-ops.
func (s *MatchService) EndCall(ctx context.Context, matchID, requesterID string) error {
	match, err := s.store.GetMatch(ctx, matchID)
	if err != nil {
		if errors.Is(err, status.ErrMatchNotFound) {
			return nil
		}
		return err
	}
	if match.Ended() {
		return nil
	}

	endTime := time.Now()
	seconds := int(endTime.Sub(match.StartTime).Seconds())
	if seconds < 0 {
		seconds = 0
	}

	if err := s.store.EndMatch(ctx, matchID, endTime, seconds); err != nil {
		return fmt.Errorf("end match %s: %w", matchID, err)
	}

	s.mu.Lock()
	delete(s.activeCalls, match.UserID)
	delete(s.activeCalls, match.MatchedWith)
	s.mu.Unlock()

	s.monitor.TrackCallDuration(time.Duration(seconds) * time.Second)
	slog.Info("match ended", "match", matchID, "duration_seconds", seconds)

	if !match.IsFake {
		other := match.Counterpart(requesterID)
		if s.presence.Connected(ctx, other) {
			s.notifier.Deliver(other, "call_ended", map[string]any{"match_id": matchID})
		}
	}
	return nil
}

// QueueLen reports the current number of waiting users.
func (s *MatchService) QueueLen() int {
	return s.queue.Len()
}

// OldestWait reports how long the head of the queue has been waiting.
func (s *MatchService) OldestWait() time.Duration {
	return s.queue.OldestWait()
}

// QueueSnapshot returns the waiting users, oldest first.
func (s *MatchService) QueueSnapshot() []models.QueueEntry {
	return s.queue.Snapshot()
}

// ActiveCallCount reports the number of distinct ongoing calls.
func (s *MatchService) ActiveCallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	matches := make(map[string]bool, len(s.activeCalls))
	for _, matchID := range s.activeCalls {
		matches[matchID] = true
	}
	return len(matches)
}

// Shutdown stops all pending fallback timers.
func (s *MatchService) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopped = true
	for userID, timer := range s.timers {
		timer.Stop()
		delete(s.timers, userID)
	}
	slog.Info("match service shut down")
}

func (s *MatchService) pairLive(ctx context.Context, p1, p2 string) error {
	// Both entries left the queue; their timers must not fire. A timer
	// that already fired loses the race on the queue's Remove anyway.
	s.stopFallback(p1)
	s.stopFallback(p2)

	if err := s.coins.DebitIfSufficient(ctx, p1, s.cost, descLiveMatch); err != nil {
		s.requeue(p1, p2)
		s.monitor.TrackMatchOperation("pair", "debit_failed")
		return fmt.Errorf("debit %s: %w", p1, err)
	}

	if err := s.coins.DebitIfSufficient(ctx, p2, s.cost, descLiveMatch); err != nil {
		if cerr := s.coins.Credit(ctx, p1, s.cost, "system", descMatchRefund); cerr != nil {
			slog.Error("refund after failed pairing", "user", p1, "error", cerr)
		}
		s.requeue(p1, p2)
		s.monitor.TrackMatchOperation("pair", "debit_failed")
		return fmt.Errorf("debit %s: %w", p2, err)
	}

	matchID, err := s.store.CreateMatch(ctx, p1, p2, false, "")
	if err != nil {
		for _, userID := range []string{p1, p2} {
			if cerr := s.coins.Credit(ctx, userID, s.cost, "system", descMatchRefund); cerr != nil {
				slog.Error("refund after failed pairing", "user", userID, "error", cerr)
			}
		}
		s.requeue(p1, p2)
		s.monitor.TrackMatchOperation("pair", "store_failed")
		return fmt.Errorf("create match: %w", err)
	}

	s.mu.Lock()
	s.activeCalls[p1] = matchID
	s.activeCalls[p2] = matchID
	s.mu.Unlock()

	s.notifier.Deliver(p1, "match_found", map[string]any{
		"match_id": matchID,
		"user_id":  p2,
		"is_fake":  false,
	})
	s.notifier.Deliver(p2, "match_found", map[string]any{
		"match_id": matchID,
		"user_id":  p1,
		"is_fake":  false,
	})

	s.monitor.TrackMatchOperation("pair", "success")
	slog.Info("matched users", "user1", p1, "user2", p2, "match", matchID)
	return nil
}

// fireFallback runs when the user's fallback window elapses. The queue's
// atomic Remove decides the race against pairing and cancellation: only the
// caller that removes the entry proceeds.
func (s *MatchService) fireFallback(userID string) {
	s.mu.Lock()
	delete(s.timers, userID)
	stopped := s.stopped
	s.mu.Unlock()
	if stopped {
		return
	}

	if !s.queue.Remove(userID) {
		return
	}

	ctx := context.Background()

	// Don't charge a user who can no longer receive the match.
	if !s.presence.Connected(ctx, userID) {
		s.monitor.TrackMatchOperation("fallback", "offline")
		slog.Info("skipped fallback for offline user", "user", userID)
		return
	}

	video, err := s.videos.PickForUser(ctx, userID)
	if err != nil {
		s.notifier.Deliver(userID, "match_error", map[string]any{"message": "No matches available. Please try again later."})
		s.monitor.TrackMatchOperation("fallback", "no_videos")
		slog.Warn("no fake videos for fallback", "user", userID, "error", err)
		return
	}

	if err := s.coins.DebitIfSufficient(ctx, userID, s.cost, descFakeMatch); err != nil {
		if errors.Is(err, status.ErrInsufficientCoins) {
			s.notifier.Deliver(userID, "match_error", map[string]any{"message": "Not enough coins"})
			s.monitor.TrackMatchOperation("fallback", "insufficient_coins")
			return
		}
		// Store hiccup: the entry goes back and the window restarts.
		s.queue.Enqueue(userID)
		s.armFallback(userID)
		slog.Error("fallback debit", "user", userID, "error", err)
		return
	}

	fakeUserID := utils.GenerateFakeUserID()
	matchID, err := s.store.CreateMatch(ctx, userID, fakeUserID, true, video.Path)
	if err != nil {
		if cerr := s.coins.Credit(ctx, userID, s.cost, "system", descMatchRefund); cerr != nil {
			slog.Error("refund after failed fallback", "user", userID, "error", cerr)
		}
		s.notifier.Deliver(userID, "match_error", map[string]any{"message": "No matches available. Please try again later."})
		s.monitor.TrackMatchOperation("fallback", "store_failed")
		slog.Error("create fallback match", "user", userID, "error", err)
		return
	}

	s.mu.Lock()
	s.activeCalls[userID] = matchID
	s.mu.Unlock()

	s.notifier.Deliver(userID, "match_found", map[string]any{
		"match_id":   matchID,
		"user_id":    fakeUserID,
		"is_fake":    true,
		"video_path": video.Path,
	})

	s.monitor.TrackFallbackMatch()
	s.monitor.TrackMatchOperation("fallback", "success")
	slog.Info("matched user with fake video", "user", userID, "match", matchID, "video", video.Path)
}

func (s *MatchService) armFallback(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}
	if _, exists := s.timers[userID]; exists {
		return
	}
	s.timers[userID] = time.AfterFunc(s.window, func() {
		s.fireFallback(userID)
	})
}

func (s *MatchService) stopFallback(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if timer, exists := s.timers[userID]; exists {
		timer.Stop()
		delete(s.timers, userID)
	}
}

func (s *MatchService) requeue(p1, p2 string) {
	s.queue.Enqueue(p1)
	s.queue.Enqueue(p2)
	s.armFallback(p1)
	s.armFallback(p2)
}
