package handlers

import (
	"math"
	"strconv"

	"github.com/CLDWare/pollroom-backend/internal/store"
)

// websocketMessage is the wire format for everything that travels over
// a websocket, in both directions.
type websocketMessage struct {
	Command string         `json:"command"`
	Data    map[string]any `json:"data,omitempty"`
}

type websocketErrorMessage struct {
	ErrorCode uint    `json:"error_code"`
	Info      *string `json:"info,omitempty"`
}

// Client commands.
const (
	cmdCreatePoll    = "teacher:create_poll"
	cmdJoinAnyPoll   = "student:join_any_poll"
	cmdJoinPoll      = "student:join_poll"
	cmdStartQuestion = "teacher:start_question"
	cmdSubmitAnswer  = "student:submit_answer"
	cmdCloseQuestion = "teacher:close_question"
	cmdRemoveStudent = "teacher:remove_student"
	cmdChatMessage   = "chat:send_message"
	cmdGetState      = "poll:get_state"
)

// Server events.
const (
	evtQuestionStarted = "question:started"
	evtQuestionClosed  = "question:closed"
	evtResultsUpdate   = "results:update"
	evtStudentJoined   = "student:joined"
	evtStudentLeft     = "student:left"
	evtPollClosed      = "poll:closed"
	evtStudentRemoved  = "student:removed"
	evtChatNewMessage  = "chat:new_message"
)

// ack confirms a command. Extra payload fields are merged next to the
// success flag.
func (conn *websocketConnection) ack(command string, data map[string]any) {
	payload := map[string]any{"success": true}
	for key, value := range data {
		payload[key] = value
	}
	conn.send(websocketMessage{Command: command + ":ack", Data: payload})
}

// nack reports a failed command with a reason the client may display.
func (conn *websocketConnection) nack(command, reason string) {
	conn.send(websocketMessage{
		Command: command + ":ack",
		Data:    map[string]any{"success": false, "error": reason},
	})
}

// stringField reads a required string field from a message payload.
func stringField(data map[string]any, key string) (string, bool) {
	value, ok := data[key].(string)
	return value, ok && value != ""
}

// idField reads an identifier that clients may send as a string or a
// JSON number. Numbers are normalized to their canonical decimal
// string so "1" and 1 name the same option.
func idField(data map[string]any, key string) (string, bool) {
	switch value := data[key].(type) {
	case string:
		return value, value != ""
	case float64:
		if value == math.Trunc(value) {
			return strconv.FormatInt(int64(value), 10), true
		}
		return strconv.FormatFloat(value, 'f', -1, 64), true
	default:
		return "", false
	}
}

type createPollMessage struct {
	Title       string
	Description string
}

func toCreatePollMessage(msg websocketMessage) (createPollMessage, bool) {
	title, _ := stringField(msg.Data, "title")
	description, _ := msg.Data["description"].(string)
	return createPollMessage{Title: title, Description: description}, true
}

type joinPollMessage struct {
	PollID string // empty for join-any
	Name   string
}

func toJoinPollMessage(msg websocketMessage, requirePollID bool) (joinPollMessage, string) {
	name, ok := stringField(msg.Data, "name")
	if !ok {
		return joinPollMessage{}, "name is required"
	}
	join := joinPollMessage{Name: name}
	if requirePollID {
		pollID, ok := stringField(msg.Data, "pollId")
		if !ok {
			return joinPollMessage{}, "pollId is required"
		}
		join.PollID = pollID
	}
	return join, ""
}

type startQuestionMessage struct {
	PollID   string
	Question store.QuestionData
}

// toStartQuestionMessage parses the teacher's question payload. The
// options list must be flat {id, text} objects; anything else is
// rejected here rather than stored in a half-usable shape.
func toStartQuestionMessage(msg websocketMessage) (startQuestionMessage, string) {
	pollID, ok := stringField(msg.Data, "pollId")
	if !ok {
		return startQuestionMessage{}, "pollId is required"
	}

	rawQuestion, ok := msg.Data["questionData"].(map[string]any)
	if !ok {
		return startQuestionMessage{}, "questionData is required"
	}

	question := store.QuestionData{}
	question.Text, _ = rawQuestion["text"].(string)
	question.CorrectOptionID, _ = idField(rawQuestion, "correctOptionId")
	if limit, ok := rawQuestion["timeLimitSeconds"].(float64); ok {
		question.TimeLimitSeconds = int(limit)
	}

	rawOptions, ok := rawQuestion["options"].([]any)
	if !ok {
		return startQuestionMessage{}, "questionData.options must be a list"
	}
	for _, rawOption := range rawOptions {
		optionMap, ok := rawOption.(map[string]any)
		if !ok {
			return startQuestionMessage{}, "options must be a flat list of {id, text} objects"
		}
		id, okID := idField(optionMap, "id")
		text, okText := optionMap["text"].(string)
		if !okID || !okText {
			return startQuestionMessage{}, "options must be a flat list of {id, text} objects"
		}
		question.Options = append(question.Options, store.OptionData{ID: id, Text: text})
	}

	return startQuestionMessage{PollID: pollID, Question: question}, ""
}

type submitAnswerMessage struct {
	PollID     string
	QuestionID string
	OptionID   string
}

func toSubmitAnswerMessage(msg websocketMessage) (submitAnswerMessage, bool) {
	pollID, okPoll := stringField(msg.Data, "pollId")
	questionID, okQuestion := stringField(msg.Data, "questionId")
	optionID, okOption := idField(msg.Data, "optionId")
	if !okPoll || !okQuestion || !okOption {
		return submitAnswerMessage{}, false
	}
	return submitAnswerMessage{PollID: pollID, QuestionID: questionID, OptionID: optionID}, true
}

type closeQuestionMessage struct {
	PollID     string
	QuestionID string
}

func toCloseQuestionMessage(msg websocketMessage) (closeQuestionMessage, bool) {
	pollID, okPoll := stringField(msg.Data, "pollId")
	questionID, okQuestion := stringField(msg.Data, "questionId")
	if !okPoll || !okQuestion {
		return closeQuestionMessage{}, false
	}
	return closeQuestionMessage{PollID: pollID, QuestionID: questionID}, true
}

type removeStudentMessage struct {
	PollID              string
	StudentConnectionID string
}

func toRemoveStudentMessage(msg websocketMessage) (removeStudentMessage, bool) {
	pollID, okPoll := stringField(msg.Data, "pollId")
	// The reference client sends studentSocketId; studentId is accepted
	// as an alias.
	studentID, okStudent := stringField(msg.Data, "studentSocketId")
	if !okStudent {
		studentID, okStudent = stringField(msg.Data, "studentId")
	}
	if !okPoll || !okStudent {
		return removeStudentMessage{}, false
	}
	return removeStudentMessage{PollID: pollID, StudentConnectionID: studentID}, true
}

type chatMessage struct {
	Message string
}

func toChatMessage(msg websocketMessage) (chatMessage, bool) {
	message, ok := stringField(msg.Data, "message")
	if !ok {
		return chatMessage{}, false
	}
	return chatMessage{Message: message}, true
}

type getStateMessage struct {
	PollID string
}

func toGetStateMessage(msg websocketMessage) (getStateMessage, bool) {
	pollID, ok := stringField(msg.Data, "pollId")
	if !ok {
		return getStateMessage{}, false
	}
	return getStateMessage{PollID: pollID}, true
}
