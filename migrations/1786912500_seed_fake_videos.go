package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

func init() {
	m.Register(func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("fake_videos")
		if err != nil {
			return err
		}

		paths := []string{
			"/videos/fake/clip-001.mp4",
			"/videos/fake/clip-002.mp4",
			"/videos/fake/clip-003.mp4",
			"/videos/fake/clip-004.mp4",
			"/videos/fake/clip-005.mp4",
			"/videos/fake/clip-006.mp4",
			"/videos/fake/clip-007.mp4",
			"/videos/fake/clip-008.mp4",
			"/videos/fake/clip-009.mp4",
			"/videos/fake/clip-010.mp4",
			"/videos/fake/clip-011.mp4",
			"/videos/fake/clip-012.mp4",
		}

		for _, path := range paths {
			record := core.NewRecord(collection)
			record.Set("path", path)
			record.Set("is_active", true)
			if err := app.Save(record); err != nil {
				return err
			}
		}

		return nil
	}, func(app core.App) error {
		records, err := app.FindAllRecords("fake_videos")
		if err != nil {
			return err
		}

		for _, record := range records {
			if err := app.Delete(record); err != nil {
				return err
			}
		}

		return nil
	})
}
