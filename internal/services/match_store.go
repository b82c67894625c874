package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/types"

	"videochat-system/internal/status"
	"videochat-system/models"
)

// MatchStore persists match records in the "matches" collection. A match is
// written once at creation and mutated a single time at termination.
type MatchStore struct {
	app core.App
}

func NewMatchStore(app core.App) *MatchStore {
	return &MatchStore{app: app}
}

func (s *MatchStore) CreateMatch(ctx context.Context, userID, matchedWith string, isFake bool, videoPath string) (string, error) {
	matches, err := s.app.FindCollectionByNameOrId("matches")
	if err != nil {
		return "", err
	}

	record := core.NewRecord(matches)
	record.Set("user", userID)
	record.Set("matched_with", matchedWith)
	record.Set("is_fake", isFake)
	record.Set("video_path", videoPath)
	record.Set("start_time", types.NowDateTime())

	if err := s.app.Save(record); err != nil {
		return "", fmt.Errorf("create match: %w", err)
	}
	return record.Id, nil
}

func (s *MatchStore) GetMatch(ctx context.Context, matchID string) (*models.Match, error) {
	record, err := s.app.FindRecordById("matches", matchID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, status.ErrMatchNotFound
		}
		return nil, fmt.Errorf("lookup match: %w", err)
	}
	return recordToMatch(record), nil
}

// EndMatch finalizes the match record. The caller is responsible for
// computing the duration; a record already holding an end time is left
// untouched.
func (s *MatchStore) EndMatch(ctx context.Context, matchID string, endTime time.Time, duration int) error {
	record, err := s.app.FindRecordById("matches", matchID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return status.ErrMatchNotFound
		}
		return fmt.Errorf("lookup match: %w", err)
	}

	if !record.GetDateTime("end_time").IsZero() {
		return nil
	}

	end, err := types.ParseDateTime(endTime)
	if err != nil {
		return fmt.Errorf("parse end time: %w", err)
	}

	record.Set("end_time", end)
	record.Set("duration", duration)
	if err := s.app.Save(record); err != nil {
		return fmt.Errorf("finalize match: %w", err)
	}
	return nil
}

// ListForUser returns the user's matches on either side of the pairing,
// newest first.
func (s *MatchStore) ListForUser(ctx context.Context, userID string) ([]models.Match, error) {
	records, err := s.app.FindRecordsByFilter(
		"matches",
		"user = {:user} || matched_with = {:user}",
		"-start_time",
		200,
		0,
		dbx.Params{"user": userID},
	)
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}

	matches := make([]models.Match, 0, len(records))
	for _, r := range records {
		matches = append(matches, *recordToMatch(r))
	}
	return matches, nil
}

func recordToMatch(record *core.Record) *models.Match {
	match := &models.Match{
		ID:          record.Id,
		UserID:      record.GetString("user"),
		MatchedWith: record.GetString("matched_with"),
		IsFake:      record.GetBool("is_fake"),
		VideoPath:   record.GetString("video_path"),
		StartTime:   record.GetDateTime("start_time").Time(),
	}

	if end := record.GetDateTime("end_time"); !end.IsZero() {
		endTime := end.Time()
		duration := record.GetInt("duration")
		match.EndTime = &endTime
		match.Duration = &duration
	}
	return match
}
