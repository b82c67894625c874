package handlers

import (
	"net/http"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"videochat-system/internal/services"
	"videochat-system/models"
)

// AdminHandler exposes the operator surface. Routes are mounted behind
// superuser auth, so handlers do not re-check permissions.
type AdminHandler struct {
	app     core.App
	matches *services.MatchService
	catalog services.VideoCatalog
}

func NewAdminHandler(app core.App, matches *services.MatchService, catalog services.VideoCatalog) *AdminHandler {
	return &AdminHandler{
		app:     app,
		matches: matches,
		catalog: catalog,
	}
}

func (h *AdminHandler) GetDashboard(e *core.RequestEvent) error {
	entries := h.matches.QueueSnapshot()

	waiting := make([]map[string]any, 0, len(entries))
	for _, entry := range entries {
		waiting = append(waiting, map[string]any{
			"user_id":   entry.UserID,
			"joined_at": entry.JoinedAt,
		})
	}

	return e.JSON(http.StatusOK, map[string]any{
		"queue_length":   h.matches.QueueLen(),
		"oldest_wait_ms": h.matches.OldestWait().Milliseconds(),
		"active_calls":   h.matches.ActiveCallCount(),
		"waiting":        waiting,
	})
}

func (h *AdminHandler) RemoveFromQueue(e *core.RequestEvent) error {
	var req struct {
		UserID string `json:"user_id"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if req.UserID == "" {
		return apis.NewBadRequestError("user_id is required", nil)
	}

	h.matches.CancelMatch(req.UserID)

	return e.JSON(http.StatusOK, map[string]any{"status": "removed"})
}

func (h *AdminHandler) ListFakeVideos(e *core.RequestEvent) error {
	videos, err := h.catalog.ListVideos(e.Request.Context(), false)
	if err != nil {
		return apis.NewApiError(http.StatusInternalServerError, "Failed to list videos", err)
	}
	if videos == nil {
		videos = []models.FakeVideo{}
	}

	return e.JSON(http.StatusOK, map[string]any{"videos": videos})
}

// ToggleFakeVideo flips a video's is_active flag. Inactive videos are never
// served to fallback matches.
func (h *AdminHandler) ToggleFakeVideo(e *core.RequestEvent) error {
	videoID := e.Request.PathValue("id")

	record, err := h.app.FindRecordById("fake_videos", videoID)
	if err != nil {
		return apis.NewNotFoundError("Video not found", nil)
	}

	record.Set("is_active", !record.GetBool("is_active"))
	if err := h.app.Save(record); err != nil {
		return apis.NewApiError(http.StatusInternalServerError, "Failed to update video", err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"id":        record.Id,
		"is_active": record.GetBool("is_active"),
	})
}

// BanParticipant sets or clears a participant's banned flag. Banned
// participants cannot join the waiting queue.
func (h *AdminHandler) BanParticipant(e *core.RequestEvent) error {
	var req struct {
		UserID string `json:"user_id"`
		Banned bool   `json:"banned"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	record, err := h.app.FindRecordById("participants", req.UserID)
	if err != nil {
		return apis.NewNotFoundError("Participant not found", nil)
	}

	record.Set("banned", req.Banned)
	if err := h.app.Save(record); err != nil {
		return apis.NewApiError(http.StatusInternalServerError, "Failed to update participant", err)
	}

	if req.Banned {
		h.matches.CancelMatch(req.UserID)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"user_id": record.Id,
		"banned":  record.GetBool("banned"),
	})
}
