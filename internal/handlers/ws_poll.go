package handlers

import (
	"fmt"
	"time"

	"github.com/CLDWare/pollroom-backend/internal/store"
	"github.com/CLDWare/pollroom-backend/pkg/logger"
)

// closeReason explains why a question closed in the question:closed
// broadcast.
type closeReason string

const (
	reasonTimeout     closeReason = "timeout"
	reasonAllAnswered closeReason = "all_answered"
	reasonManual      closeReason = "manual"
)

func triggersPollFlow(msg *websocketMessage) bool {
	switch msg.Command {
	case cmdCreatePoll, cmdJoinAnyPoll, cmdJoinPoll, cmdStartQuestion,
		cmdSubmitAnswer, cmdCloseQuestion, cmdRemoveStudent,
		cmdChatMessage, cmdGetState:
		return true
	}
	return false
}

func (h *WebsocketHandler) pollFlow(conn *websocketConnection, msg websocketMessage) {
	switch msg.Command {
	case cmdCreatePoll:
		h.handleCreatePoll(conn, msg)
	case cmdJoinAnyPoll:
		h.handleJoinPoll(conn, msg, false)
	case cmdJoinPoll:
		h.handleJoinPoll(conn, msg, true)
	case cmdStartQuestion:
		h.handleStartQuestion(conn, msg)
	case cmdSubmitAnswer:
		h.handleSubmitAnswer(conn, msg)
	case cmdCloseQuestion:
		h.handleCloseQuestion(conn, msg)
	case cmdRemoveStudent:
		h.handleRemoveStudent(conn, msg)
	case cmdChatMessage:
		h.handleChatMessage(conn, msg)
	case cmdGetState:
		h.handleGetState(conn, msg)
	}
}

func (h *WebsocketHandler) handleCreatePoll(conn *websocketConnection, msg websocketMessage) {
	create, _ := toCreatePollMessage(msg)

	poll, err := h.store.CreatePoll(create.Title, create.Description)
	if err != nil {
		conn.nack(cmdCreatePoll, err.Error())
		return
	}

	if _, err := h.store.AddParticipant(conn.connectionID, poll.ID, "Teacher", store.RoleTeacher); err != nil {
		conn.nack(cmdCreatePoll, err.Error())
		return
	}
	h.subscribe(conn, pollTopic(poll.ID))

	h.metrics.PollCreated()
	h.recordPollCreated(poll)
	logger.Info(fmt.Sprintf("Poll %s created by %s", poll.ID, conn.connectionID))

	conn.ack(cmdCreatePoll, map[string]any{"poll": poll})
}

func (h *WebsocketHandler) handleJoinPoll(conn *websocketConnection, msg websocketMessage, requirePollID bool) {
	join, reason := toJoinPollMessage(msg, requirePollID)
	if reason != "" {
		conn.nack(msg.Command, reason)
		return
	}

	var poll store.PollView
	if requirePollID {
		var err error
		poll, err = h.store.GetPoll(join.PollID)
		if err != nil {
			conn.nack(msg.Command, "Poll not found")
			return
		}
	} else {
		var ok bool
		poll, ok = h.store.LatestPoll()
		if !ok {
			conn.nack(msg.Command, "No active poll found")
			return
		}
	}

	unlock := h.lockPoll(poll.ID)
	defer unlock()

	if _, err := h.store.AddParticipant(conn.connectionID, poll.ID, join.Name, store.RoleStudent); err != nil {
		// The poll can disappear between lookup and join.
		if requirePollID {
			conn.nack(msg.Command, "Poll not found")
		} else {
			conn.nack(msg.Command, "No active poll found")
		}
		return
	}
	h.subscribe(conn, pollTopic(poll.ID))

	// Late joiners get the in-flight question so they can answer it.
	var currentQuestion any
	if question, ok := h.store.CurrentQuestion(poll.ID); ok {
		currentQuestion = question
	}
	results, _ := h.store.PollResults(poll.ID)

	conn.ack(msg.Command, map[string]any{
		"poll":            poll,
		"currentQuestion": currentQuestion,
		"results":         results,
	})

	h.publishExcept(pollTopic(poll.ID), conn.connectionID, evtStudentJoined, map[string]any{
		"name":         join.Name,
		"participants": h.store.ActiveStudents(poll.ID),
	})
	logger.Info(fmt.Sprintf("Student %q joined poll %s as %s", join.Name, poll.ID, conn.connectionID))
}

func (h *WebsocketHandler) handleStartQuestion(conn *websocketConnection, msg websocketMessage) {
	start, reason := toStartQuestionMessage(msg)
	if reason != "" {
		conn.nack(cmdStartQuestion, reason)
		return
	}

	unlock := h.lockPoll(start.PollID)
	defer unlock()

	// Guard, creation and activation happen as one store transition, so
	// two racing starts can never both activate a question.
	started, err := h.store.StartNewQuestion(start.PollID, start.Question)
	if err != nil {
		if err == store.ErrQuestionInProgress {
			conn.nack(cmdStartQuestion, "Cannot start new question. Previous question still active.")
			return
		}
		conn.nack(cmdStartQuestion, err.Error())
		return
	}

	h.armQuestionTimer(start.PollID, started.ID, time.Duration(started.TimeLimitSeconds)*time.Second)

	h.publish(pollTopic(start.PollID), evtQuestionStarted, map[string]any{
		"question": started,
	})
	logger.Info(fmt.Sprintf("Question %s started on poll %s (%ds)", started.ID, start.PollID, started.TimeLimitSeconds))

	conn.ack(cmdStartQuestion, map[string]any{"question": started})
}

// armQuestionTimer arms the question's countdown. Expiry re-enters the
// serialized per-poll path like any other event.
func (h *WebsocketHandler) armQuestionTimer(pollID, questionID string, d time.Duration) {
	h.timers.Arm(questionID, d, func() {
		unlock := h.lockPoll(pollID)
		defer unlock()
		h.closeQuestion(pollID, questionID, reasonTimeout)
	})
}

func (h *WebsocketHandler) handleSubmitAnswer(conn *websocketConnection, msg websocketMessage) {
	answer, ok := toSubmitAnswerMessage(msg)
	if !ok {
		conn.nack(cmdSubmitAnswer, "Invalid vote or already answered")
		return
	}

	unlock := h.lockPoll(answer.PollID)
	defer unlock()

	// Every guard failure collapses to one generic message so a client
	// can not probe which guard it tripped.
	_, results, allAnswered, err := h.store.RecordVote(answer.PollID, answer.QuestionID, conn.connectionID, answer.OptionID)
	if err != nil {
		conn.nack(cmdSubmitAnswer, "Invalid vote or already answered")
		return
	}

	conn.ack(cmdSubmitAnswer, nil)

	h.publish(pollTopic(answer.PollID), evtResultsUpdate, map[string]any{
		"questionId": answer.QuestionID,
		"results":    results,
	})

	if allAnswered {
		h.closeQuestion(answer.PollID, answer.QuestionID, reasonAllAnswered)
	}
}

func (h *WebsocketHandler) handleCloseQuestion(conn *websocketConnection, msg websocketMessage) {
	closeMsg, ok := toCloseQuestionMessage(msg)
	if !ok {
		conn.nack(cmdCloseQuestion, "Question not found")
		return
	}

	unlock := h.lockPoll(closeMsg.PollID)
	defer unlock()

	if _, _, err := h.closeQuestion(closeMsg.PollID, closeMsg.QuestionID, reasonManual); err != nil {
		conn.nack(cmdCloseQuestion, "Question not found")
		return
	}
	conn.ack(cmdCloseQuestion, nil)
}

// closeQuestion funnels all three close triggers through the store's
// idempotent transition. Exactly the caller that flipped the state
// broadcasts question:closed and archives the tally; losers of the
// race do nothing.
func (h *WebsocketHandler) closeQuestion(pollID, questionID string, reason closeReason) (store.QuestionView, store.Results, error) {
	question, results, changed, err := h.store.CloseQuestion(pollID, questionID)
	if err != nil {
		return store.QuestionView{}, store.Results{}, err
	}
	if !changed {
		return question, results, nil
	}

	h.recordQuestionResult(question, results)
	h.publish(pollTopic(pollID), evtQuestionClosed, map[string]any{
		"questionId": questionID,
		"reason":     string(reason),
		"results":    results,
	})
	logger.Info(fmt.Sprintf("Question %s closed (%s)", questionID, reason))

	return question, results, nil
}

func (h *WebsocketHandler) handleRemoveStudent(conn *websocketConnection, msg websocketMessage) {
	remove, ok := toRemoveStudentMessage(msg)
	if !ok {
		return
	}

	unlock := h.lockPoll(remove.PollID)
	defer unlock()

	student, ok := h.store.GetParticipant(remove.StudentConnectionID)
	if !ok || student.PollID != remove.PollID || student.Role != store.RoleStudent {
		return
	}

	h.store.RemoveParticipant(remove.StudentConnectionID)

	h.sendToConnection(remove.StudentConnectionID, websocketMessage{
		Command: evtStudentRemoved,
		Data:    map[string]any{"message": "You have been removed from the poll"},
	})
	h.unsubscribe(remove.StudentConnectionID, pollTopic(remove.PollID))

	h.publish(pollTopic(remove.PollID), evtStudentLeft, map[string]any{
		"name":         student.Name,
		"participants": h.store.ActiveStudents(remove.PollID),
	})
	logger.Info(fmt.Sprintf("Student %q removed from poll %s", student.Name, remove.PollID))
}

func (h *WebsocketHandler) handleChatMessage(conn *websocketConnection, msg websocketMessage) {
	chat, ok := toChatMessage(msg)
	if !ok {
		return
	}

	// Only participants of a poll may chat in it.
	sender, ok := h.store.GetParticipant(conn.connectionID)
	if !ok {
		return
	}

	unlock := h.lockPoll(sender.PollID)
	defer unlock()

	h.publish(pollTopic(sender.PollID), evtChatNewMessage, map[string]any{
		"sender":    sender.Name,
		"role":      sender.Role,
		"message":   chat.Message,
		"senderId":  conn.connectionID,
		"timestamp": time.Now(),
	})
}

func (h *WebsocketHandler) handleGetState(conn *websocketConnection, msg websocketMessage) {
	state, ok := toGetStateMessage(msg)
	if !ok {
		conn.nack(cmdGetState, "Poll not found")
		return
	}

	poll, err := h.store.GetPoll(state.PollID)
	if err != nil {
		conn.nack(cmdGetState, "Poll not found")
		return
	}

	var currentQuestion any
	if question, ok := h.store.CurrentQuestion(poll.ID); ok {
		currentQuestion = question
	}
	results, _ := h.store.PollResults(poll.ID)

	conn.ack(cmdGetState, map[string]any{
		"poll":            poll,
		"currentQuestion": currentQuestion,
		"results":         results,
		"participants":    h.store.ActiveStudents(poll.ID),
	})
}
