package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/types"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"videochat-system/internal/status"
	"videochat-system/utils"
)

// PresenceService tracks which participants are currently reachable.
// Participant records live in the "participants" collection; liveness is a
// Redis key with a TTL that the client refreshes via heartbeats, so a dead
// connection goes offline without an explicit disconnect.
type PresenceService struct {
	Redis *redis.Client
	app   core.App
	ttl   time.Duration
}

func NewPresenceService(redisClient *redis.Client, app core.App, ttl time.Duration) *PresenceService {
	return &PresenceService{
		Redis: redisClient,
		app:   app,
		ttl:   ttl,
	}
}

func presenceKey(userID string) string {
	return fmt.Sprintf("presence:user:%s", userID)
}

// Register creates a new anonymous participant and marks it online. The
// returned client secret is shown once; only its bcrypt hash is stored.
func (s *PresenceService) Register(ctx context.Context) (string, string, error) {
	participants, err := s.app.FindCollectionByNameOrId("participants")
	if err != nil {
		return "", "", err
	}

	secret, err := utils.GenerateCode(16)
	if err != nil {
		return "", "", fmt.Errorf("generate client secret: %w", err)
	}
	secretHash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", "", fmt.Errorf("hash client secret: %w", err)
	}

	record := core.NewRecord(participants)
	record.Set("banned", false)
	record.Set("last_seen", types.NowDateTime())
	record.Set("secret_hash", string(secretHash))
	if err := s.app.Save(record); err != nil {
		return "", "", fmt.Errorf("create participant: %w", err)
	}

	if err := s.Touch(ctx, record.Id); err != nil {
		slog.Warn("set presence for new participant", "user", record.Id, "error", err)
	}

	slog.Info("registered participant", "user", record.Id)
	return record.Id, secret, nil
}

// Authenticate verifies a participant's client secret.
func (s *PresenceService) Authenticate(ctx context.Context, userID, secret string) error {
	record, err := s.app.FindRecordById("participants", userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return status.ErrUserNotFound
		}
		return fmt.Errorf("lookup participant: %w", err)
	}

	hash := record.GetString("secret_hash")
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)); err != nil {
		return status.ErrInvalidSecret
	}
	return nil
}

// Exists reports whether the participant record is known.
func (s *PresenceService) Exists(ctx context.Context, userID string) bool {
	_, err := s.app.FindRecordById("participants", userID)
	return err == nil
}

// IsBanned reads the participant's banned flag.
func (s *PresenceService) IsBanned(ctx context.Context, userID string) (bool, error) {
	record, err := s.app.FindRecordById("participants", userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, fmt.Errorf("participant %s: %w", userID, err)
		}
		return false, fmt.Errorf("lookup participant: %w", err)
	}
	return record.GetBool("banned"), nil
}

// Touch refreshes the presence key and the participant's last-seen time.
func (s *PresenceService) Touch(ctx context.Context, userID string) error {
	if err := s.Redis.Set(ctx, presenceKey(userID), "1", s.ttl).Err(); err != nil {
		return fmt.Errorf("set presence: %w", err)
	}

	if record, err := s.app.FindRecordById("participants", userID); err == nil {
		record.Set("last_seen", types.NowDateTime())
		if err := s.app.Save(record); err != nil {
			slog.Warn("update last seen", "user", userID, "error", err)
		}
	}
	return nil
}

// Disconnect marks the participant offline immediately.
func (s *PresenceService) Disconnect(ctx context.Context, userID string) error {
	if err := s.Redis.Del(ctx, presenceKey(userID)).Err(); err != nil {
		return fmt.Errorf("clear presence: %w", err)
	}

	if record, err := s.app.FindRecordById("participants", userID); err == nil {
		record.Set("last_seen", types.NowDateTime())
		if err := s.app.Save(record); err != nil {
			slog.Warn("update last seen", "user", userID, "error", err)
		}
	}
	return nil
}

// Connected reports whether the participant's presence key is still alive.
func (s *PresenceService) Connected(ctx context.Context, userID string) bool {
	n, err := s.Redis.Exists(ctx, presenceKey(userID)).Result()
	if err != nil {
		slog.Warn("presence check", "user", userID, "error", err)
		return false
	}
	return n > 0
}
