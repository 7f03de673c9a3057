package handlers

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/CLDWare/pollroom-backend/internal/store"
	models "github.com/CLDWare/pollroom-backend/pkg/db"
	"github.com/CLDWare/pollroom-backend/pkg/logger"
)

// The archive is write-behind: the in-memory store stays the source of
// truth for live sessions, rows are written as lifecycle events happen
// so results survive the session. Archive failures are logged, never
// surfaced to clients.

func (h *WebsocketHandler) recordPollCreated(poll store.PollView) {
	if h.db == nil {
		return
	}

	record := models.Poll{
		PollID:      poll.ID,
		Title:       poll.Title,
		Description: poll.Description,
	}
	if err := h.db.Create(&record).Error; err != nil {
		logger.Err(fmt.Sprintf("Failed to archive poll %s: %s", poll.ID, err))
	}
}

func (h *WebsocketHandler) recordQuestionResult(question store.QuestionView, results store.Results) {
	if h.db == nil {
		return
	}

	var record models.Poll
	if err := h.db.Where("poll_id = ?", question.PollID).First(&record).Error; err != nil {
		logger.Err(fmt.Sprintf("No archive record for poll %s: %s", question.PollID, err))
		return
	}

	optionsJSON, err := json.Marshal(results.Options)
	if err != nil {
		logger.Err(fmt.Sprintf("Failed to encode results for question %s: %s", question.ID, err))
		return
	}

	row := models.QuestionResult{
		PollRecordID:    record.ID,
		QuestionID:      question.ID,
		Text:            question.Text,
		CorrectOptionID: question.CorrectOptionID,
		TotalVotes:      results.TotalVotes,
		AnsweredCount:   results.AnsweredCount,
		OptionsJSON:     string(optionsJSON),
		StartedAt:       question.StartedAt,
		ClosedAt:        question.ClosedAt,
	}
	if err := h.db.Create(&row).Error; err != nil {
		logger.Err(fmt.Sprintf("Failed to archive question %s: %s", question.ID, err))
	}
}

func (h *WebsocketHandler) recordPollEnded(pollID string) {
	if h.db == nil {
		return
	}

	now := time.Now()
	result := h.db.Model(&models.Poll{}).Where("poll_id = ?", pollID).Update("ended_at", &now)
	if result.Error != nil {
		logger.Err(fmt.Sprintf("Failed to mark poll %s ended: %s", pollID, result.Error))
	}
}
