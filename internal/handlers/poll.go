package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/MonkyMars/gecho"
	"gorm.io/gorm"

	"github.com/CLDWare/pollroom-backend/config"
	contextkeys "github.com/CLDWare/pollroom-backend/internal/contextKeys"
	"github.com/CLDWare/pollroom-backend/internal/store"
	models "github.com/CLDWare/pollroom-backend/pkg/db"
	"github.com/CLDWare/pollroom-backend/pkg/logger"
)

// PollHandler handles the REST side of polls. Live sessions live in
// the store; everything else is served from the archive.
type PollHandler struct {
	config *config.Config
	db     *gorm.DB
	store  *store.Store
}

// NewPollHandler creates a new poll handler
func NewPollHandler(cfg *config.Config, db *gorm.DB, st *store.Store) *PollHandler {
	return &PollHandler{
		config: cfg,
		db:     db,
		store:  st,
	}
}

type CreatePollBody struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// PostPoll
//
// @Summary		Create a poll record
// @Description	Create an archived poll record owned by the authenticated teacher
// @Tags			polls
// @Accept			json
// @Produce		json
// @Param			body	body	CreatePollBody	true	"Poll to create"
// @Success		201	{object} apiResponses.BaseResponse
// @Failure		400	{object} apiResponses.BadRequestError
// @Failure		401	{object} apiResponses.UnauthorizedError
// @Router 			/api/polls		[post]
func (h *PollHandler) PostPoll(w http.ResponseWriter, r *http.Request) {
	if err := gecho.Handlers.HandleMethod(w, r, http.MethodPost); err != nil {
		err.Send() // Automatically sends 405 Method Not Allowed
		return
	}

	var body CreatePollBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		gecho.BadRequest(w).WithMessage(err.Error()).Send()
		logger.Err(err)
		return
	}

	if body.Title == "" {
		gecho.BadRequest(w).WithMessage("Title is required").Send()
		return
	}

	user, ok := r.Context().Value(contextkeys.AuthUserKey).(models.User)
	if !ok {
		gecho.InternalServerError(w).Send()
		return
	}

	poll, err := h.store.CreatePoll(body.Title, body.Description)
	if err != nil {
		gecho.BadRequest(w).WithMessage(err.Error()).Send()
		return
	}

	record := models.Poll{
		PollID:      poll.ID,
		Title:       poll.Title,
		Description: poll.Description,
		TeacherID:   &user.ID,
	}
	if err := h.db.Create(&record).Error; err != nil {
		logger.Err(fmt.Sprintf("Failed to archive poll %s: %s", poll.ID, err))
	}

	gecho.Created(w).WithData(map[string]any{"poll": poll}).Send()
}

// GetPoll
//
// @Summary		Get a poll
// @Description	Get a poll by id, live session first, archived record as fallback
// @Tags			polls
// @Produce		json
// @Param			pollId	path	string	true	"Poll id"
// @Success		200	{object} apiResponses.BaseResponse
// @Failure		404	{object} apiResponses.NotFoundError
// @Router 			/api/polls/{pollId}		[get]
func (h *PollHandler) GetPoll(w http.ResponseWriter, r *http.Request) {
	if err := gecho.Handlers.HandleMethod(w, r, http.MethodGet); err != nil {
		err.Send() // Automatically sends 405 Method Not Allowed
		return
	}

	pollID := r.PathValue("pollId")

	if poll, err := h.store.GetPoll(pollID); err == nil {
		gecho.Success(w).WithData(map[string]any{"poll": poll, "live": true}).Send()
		return
	}

	var record models.Poll
	if err := h.db.Where("poll_id = ?", pollID).First(&record).Error; err != nil {
		gecho.NotFound(w).WithMessage("Poll not found").Send()
		return
	}

	gecho.Success(w).WithData(map[string]any{"poll": toPollRecordInfo(record), "live": false}).Send()
}

// GetPollResults
//
// @Summary		Get poll results
// @Description	Get the per-question tally of a poll, live or archived
// @Tags			polls
// @Produce		json
// @Param			pollId	path	string	true	"Poll id"
// @Success		200	{object} apiResponses.BaseResponse
// @Failure		404	{object} apiResponses.NotFoundError
// @Router 			/api/polls/{pollId}/results		[get]
func (h *PollHandler) GetPollResults(w http.ResponseWriter, r *http.Request) {
	if err := gecho.Handlers.HandleMethod(w, r, http.MethodGet); err != nil {
		err.Send() // Automatically sends 405 Method Not Allowed
		return
	}

	pollID := r.PathValue("pollId")

	if results, err := h.store.PollResults(pollID); err == nil {
		gecho.Success(w).WithData(results).Send()
		return
	}

	var record models.Poll
	if err := h.db.Preload("Questions").Where("poll_id = ?", pollID).First(&record).Error; err != nil {
		gecho.NotFound(w).WithMessage("Poll not found").Send()
		return
	}

	results := store.PollResults{
		PollID:    record.PollID,
		Title:     record.Title,
		Questions: []store.QuestionResults{},
	}
	for _, question := range record.Questions {
		var options []store.OptionResult
		if err := json.Unmarshal([]byte(question.OptionsJSON), &options); err != nil {
			logger.Err(fmt.Sprintf("Corrupt archived results for question %s: %s", question.QuestionID, err))
			continue
		}
		results.Questions = append(results.Questions, store.QuestionResults{
			ID:              question.QuestionID,
			Text:            question.Text,
			Status:          store.StatusClosed,
			Options:         options,
			TotalVotes:      question.TotalVotes,
			AnsweredCount:   question.AnsweredCount,
			CorrectOptionID: question.CorrectOptionID,
		})
	}

	gecho.Success(w).WithData(results).Send()
}

// GetHealth
//
// @Summary		Health check
// @Tags			health
// @Produce		json
// @Success		200	{object} apiResponses.BaseResponse
// @Router 			/api/health		[get]
func (h *PollHandler) GetHealth(w http.ResponseWriter, r *http.Request) {
	if err := gecho.Handlers.HandleMethod(w, r, http.MethodGet); err != nil {
		err.Send() // Automatically sends 405 Method Not Allowed
		return
	}

	gecho.Success(w).WithData(map[string]any{
		"status":    "ok",
		"timestamp": time.Now(),
	}).Send()
}

func toPollRecordInfo(record models.Poll) map[string]any {
	return map[string]any{
		"id":          record.PollID,
		"title":       record.Title,
		"description": record.Description,
		"createdAt":   record.CreatedAt,
		"endedAt":     record.EndedAt,
	}
}
