package workers

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/gosimple/slug"
	"gorm.io/gorm"

	"game-match-system/models"
	"game-match-system/utils"
)

// MatchArchiveWorker exports finished matches to R2 as JSON documents so the
// relational table can stay lean. Records are picked up in batches and marked
// archived once the upload succeeds.
type MatchArchiveWorker struct {
	DB *gorm.DB
}

const archiveBatchSize = 100

func (w *MatchArchiveWorker) Register(sched gocron.Scheduler) error {
	_, err := sched.NewJob(
		gocron.DurationJob(5*time.Minute),
		gocron.NewTask(w.archiveBatch),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule match archive job: %w", err)
	}
	log.Println("🗄️ [ARCHIVE] match archive worker scheduled (every 5m)")
	return nil
}

func (w *MatchArchiveWorker) archiveBatch() {
	var records []models.MatchRecord
	if err := w.DB.Where("archived = ?", false).
		Order("ended_at asc").
		Limit(archiveBatchSize).
		Find(&records).Error; err != nil {
		log.Printf("❌ [ARCHIVE] failed to query unarchived matches: %v", err)
		return
	}
	if len(records) == 0 {
		return
	}

	archived := 0
	for _, rec := range records {
		data, err := json.Marshal(rec)
		if err != nil {
			log.Printf("❌ [ARCHIVE] failed to serialize match %s: %v", rec.ID, err)
			continue
		}
		key := fmt.Sprintf("matches/%s/%s.json",
			rec.EndedAt.Format("2006-01-02"),
			slug.Make(rec.Player1Name+"-vs-"+rec.Player2Name+"-"+rec.ID),
		)
		url, err := utils.UploadBytesToR2(key, data, "application/json")
		if err != nil {
			log.Printf("❌ [ARCHIVE] failed to upload match %s: %v", rec.ID, err)
			continue
		}
		if err := w.DB.Model(&models.MatchRecord{}).
			Where("id = ?", rec.ID).
			Updates(map[string]interface{}{
				"archived":    true,
				"archive_url": url,
			}).Error; err != nil {
			log.Printf("❌ [ARCHIVE] failed to mark match %s archived: %v", rec.ID, err)
			continue
		}
		archived++
	}
	log.Printf("🗄️ [ARCHIVE] archived %d/%d matches", archived, len(records))
}
