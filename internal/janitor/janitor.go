package janitor

import (
	"context"
	"fmt"
	"time"

	"github.com/CLDWare/pollroom-backend/config"
	models "github.com/CLDWare/pollroom-backend/pkg/db"
	"github.com/CLDWare/pollroom-backend/pkg/logger"
	"gorm.io/gorm"
)

type Janitor struct {
	cfg              *config.Config
	database         *gorm.DB
	announceNoAction bool
	cancel           context.CancelFunc
}

func NewJanitor(cfg *config.Config, db *gorm.DB, announceNoAction bool) *Janitor {
	return &Janitor{
		cfg:              cfg,
		database:         db,
		announceNoAction: announceNoAction,
	}
}

func (jan *Janitor) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	jan.cancel = cancel

	go func() {
		shortTicker := time.NewTicker(jan.cfg.Janitor.ShortCleanInterval)
		defer shortTicker.Stop()
		fullTicker := time.NewTicker(jan.cfg.Janitor.FullCleanInterval)
		defer fullTicker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-shortTicker.C:
				jan.RunShort()
			case <-fullTicker.C:
				jan.RunFull()
			}
		}
	}()
}

func (jan *Janitor) Stop() {
	if jan.cancel != nil {
		jan.cancel()
		jan.cancel = nil
	}
}

func (jan *Janitor) RunShort() {
	logger.Info("Janitor: Running short cleaning sequence.")
	jan.CleanUpExpiredAuthSessions()
}

func (jan *Janitor) RunFull() {
	logger.Info("Janitor: Running full cleaning sequence.")
	jan.RunShort()

	jan.PruneOldPollRecords()
	jan.DeepCleanDatabase(nil)
}

// CleanUpExpiredAuthSessions cleans up auth sessions that have expired
func (jan *Janitor) CleanUpExpiredAuthSessions() {
	ctx := context.Background()

	sessionsDeleted, err := gorm.G[models.AuthSession](jan.database).Where("expires_at < ?", time.Now()).Delete(ctx)
	if err != nil {
		logger.Err(fmt.Sprintf("Janitor: Error cleaning expired auth sessions: %s", err.Error()))
		return
	}
	if jan.announceNoAction || sessionsDeleted != 0 {
		logger.Info(fmt.Sprintf("Janitor: cleaned %d expired auth sessions", sessionsDeleted))
	}
}

// PruneOldPollRecords soft-deletes archived polls whose session ended
// longer ago than the configured retention, questions included.
func (jan *Janitor) PruneOldPollRecords() {
	cutoff := time.Now().Add(-jan.cfg.Janitor.RecordRetention)

	var stale []models.Poll
	if err := jan.database.Where("ended_at IS NOT NULL AND ended_at < ?", cutoff).Find(&stale).Error; err != nil {
		logger.Err(fmt.Sprintf("Janitor: Error finding stale poll records: %s", err.Error()))
		return
	}
	if len(stale) == 0 {
		if jan.announceNoAction {
			logger.Info("Janitor: no stale poll records to prune")
		}
		return
	}

	for _, record := range stale {
		if err := jan.database.Where("poll_record_id = ?", record.ID).Delete(&models.QuestionResult{}).Error; err != nil {
			logger.Err(fmt.Sprintf("Janitor: Error pruning questions of poll record %d: %s", record.ID, err.Error()))
			continue
		}
		if err := jan.database.Delete(&record).Error; err != nil {
			logger.Err(fmt.Sprintf("Janitor: Error pruning poll record %d: %s", record.ID, err.Error()))
		}
	}
	logger.Info(fmt.Sprintf("Janitor: pruned %d stale poll records", len(stale)))
}

// DeepCleanDatabase forces gorm to delete all "deleted" entries
func (jan *Janitor) DeepCleanDatabase(deepcleanModels *[]any) {
	if deepcleanModels == nil {
		deepcleanModels = &[]any{
			models.User{},
			models.AuthSession{},
			models.Poll{},
			models.QuestionResult{},
		}
	}
	for _, deepcleanModel := range *deepcleanModels {
		result := jan.database.Unscoped().Where("deleted_at IS NOT NULL").Delete(deepcleanModel)
		if result.Error != nil {
			logger.Err(fmt.Sprintf("Janitor: Error while deepcleaning model %T: %s", deepcleanModel, result.Error.Error()))
		} else {
			if jan.announceNoAction || result.RowsAffected != 0 {
				logger.Info(fmt.Sprintf("Janitor: Deleted %d rows from model %T", result.RowsAffected, deepcleanModel))
			}
		}
	}
}
