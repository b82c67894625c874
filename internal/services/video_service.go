package services

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/pocketbase/pocketbase/core"
	"github.com/redis/go-redis/v9"

	"videochat-system/internal/status"
	"videochat-system/models"
)

// VideoCatalog lists the fake videos offered as simulated matches.
type VideoCatalog interface {
	ListVideos(ctx context.Context, activeOnly bool) ([]models.FakeVideo, error)
}

// PBVideoCatalog reads the catalog from the "fake_videos" collection.
type PBVideoCatalog struct {
	app core.App
}

func NewPBVideoCatalog(app core.App) *PBVideoCatalog {
	return &PBVideoCatalog{app: app}
}

func (c *PBVideoCatalog) ListVideos(ctx context.Context, activeOnly bool) ([]models.FakeVideo, error) {
	filter := "id != ''"
	if activeOnly {
		filter = "is_active = true"
	}

	records, err := c.app.FindRecordsByFilter("fake_videos", filter, "path", 0, 0)
	if err != nil {
		return nil, fmt.Errorf("list fake videos: %w", err)
	}

	videos := make([]models.FakeVideo, 0, len(records))
	for _, r := range records {
		videos = append(videos, models.FakeVideo{
			ID:       r.Id,
			Path:     r.GetString("path"),
			IsActive: r.GetBool("is_active"),
		})
	}
	return videos, nil
}

// VideoService selects a fake video for a user, avoiding recent repeats.
// The recently-shown history is a bounded Redis list per user; when every
// active video has been seen, the history resets and the full catalog is
// eligible again.
type VideoService struct {
	Redis        *redis.Client
	catalog      VideoCatalog
	historyDepth int
}

func NewVideoService(redisClient *redis.Client, catalog VideoCatalog, historyDepth int) *VideoService {
	return &VideoService{
		Redis:        redisClient,
		catalog:      catalog,
		historyDepth: historyDepth,
	}
}

func videoHistoryKey(userID string) string {
	return fmt.Sprintf("video:history:%s", userID)
}

// PickForUser returns a random active video the user has not seen in their
// last historyDepth picks, and records the pick in the history.
func (s *VideoService) PickForUser(ctx context.Context, userID string) (*models.FakeVideo, error) {
	videos, err := s.catalog.ListVideos(ctx, true)
	if err != nil {
		return nil, err
	}
	if len(videos) == 0 {
		return nil, status.ErrNoVideosAvailable
	}

	historyKey := videoHistoryKey(userID)
	history, err := s.Redis.LRange(ctx, historyKey, 0, -1).Result()
	if err != nil {
		slog.Warn("read video history", "user", userID, "error", err)
		history = nil
	}

	seen := make(map[string]bool, len(history))
	for _, id := range history {
		seen[id] = true
	}

	available := make([]models.FakeVideo, 0, len(videos))
	for _, v := range videos {
		if !seen[v.ID] {
			available = append(available, v)
		}
	}

	// Everything has been shown. Reset the history and start over.
	if len(available) == 0 {
		if err := s.Redis.Del(ctx, historyKey).Err(); err != nil {
			slog.Warn("reset video history", "user", userID, "error", err)
		}
		available = videos
	}

	pick := available[rand.IntN(len(available))]

	if err := s.Redis.LPush(ctx, historyKey, pick.ID).Err(); err != nil {
		slog.Warn("record video history", "user", userID, "error", err)
	} else if err := s.Redis.LTrim(ctx, historyKey, 0, int64(s.historyDepth-1)).Err(); err != nil {
		slog.Warn("trim video history", "user", userID, "error", err)
	}

	return &pick, nil
}
