package store

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoOptionQuestion() QuestionData {
	return QuestionData{
		Text: "What is 2+2?",
		Options: []OptionData{
			{ID: "a", Text: "3"},
			{ID: "b", Text: "4"},
		},
		CorrectOptionID:  "b",
		TimeLimitSeconds: 30,
	}
}

// startedQuestion creates a poll with one active question and the
// given student roster.
func startedQuestion(t *testing.T, s *Store, students ...string) (PollView, QuestionView) {
	t.Helper()

	poll, err := s.CreatePoll("poll", "")
	require.NoError(t, err)
	_, err = s.AddParticipant("teacher", poll.ID, "Teacher", RoleTeacher)
	require.NoError(t, err)
	for _, student := range students {
		_, err = s.AddParticipant(student, poll.ID, student, RoleStudent)
		require.NoError(t, err)
	}

	question, err := s.AddQuestion(poll.ID, twoOptionQuestion())
	require.NoError(t, err)
	started, err := s.StartQuestion(poll.ID, question.ID)
	require.NoError(t, err)
	return poll, started
}

func TestAddQuestion(t *testing.T) {
	s := newTestStore()
	poll, err := s.CreatePoll("poll", "")
	require.NoError(t, err)

	question, err := s.AddQuestion(poll.ID, twoOptionQuestion())
	require.NoError(t, err)
	assert.Equal(t, StatusPending, question.Status)
	require.Len(t, question.Options, 2)
	assert.False(t, question.Options[0].IsCorrect)
	assert.True(t, question.Options[1].IsCorrect)

	results, err := s.QuestionResults(poll.ID, question.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, results.TotalVotes)
	for _, option := range results.Options {
		assert.Equal(t, 0, option.Votes)
		assert.Equal(t, 0, option.Percentage)
	}
}

func TestAddQuestion_Validation(t *testing.T) {
	s := newTestStore()
	poll, err := s.CreatePoll("poll", "")
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(*QuestionData)
	}{
		{"empty text", func(q *QuestionData) { q.Text = "" }},
		{"too few options", func(q *QuestionData) { q.Options = q.Options[:1]; q.CorrectOptionID = "a" }},
		{"duplicate option id", func(q *QuestionData) { q.Options[1].ID = "a"; q.CorrectOptionID = "a" }},
		{"option without text", func(q *QuestionData) { q.Options[0].Text = "" }},
		{"undeclared correct option", func(q *QuestionData) { q.CorrectOptionID = "z" }},
		{"negative time limit", func(q *QuestionData) { q.TimeLimitSeconds = -5 }},
		{"time limit above maximum", func(q *QuestionData) { q.TimeLimitSeconds = 3600 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := twoOptionQuestion()
			tt.mutate(&data)
			_, err := s.AddQuestion(poll.ID, data)
			require.Error(t, err)
			assert.True(t, IsValidation(err))
		})
	}
}

func TestAddQuestion_DefaultTimeLimit(t *testing.T) {
	s := newTestStore()
	poll, err := s.CreatePoll("poll", "")
	require.NoError(t, err)

	data := twoOptionQuestion()
	data.TimeLimitSeconds = 0
	question, err := s.AddQuestion(poll.ID, data)
	require.NoError(t, err)
	assert.Equal(t, 60, question.TimeLimitSeconds)
}

func TestCanStartNewQuestion(t *testing.T) {
	s := newTestStore()
	poll, err := s.CreatePoll("poll", "")
	require.NoError(t, err)

	assert.True(t, s.CanStartNewQuestion(poll.ID))

	question, err := s.AddQuestion(poll.ID, twoOptionQuestion())
	require.NoError(t, err)
	assert.False(t, s.CanStartNewQuestion(poll.ID), "pending question blocks a new one")

	_, err = s.StartQuestion(poll.ID, question.ID)
	require.NoError(t, err)
	assert.False(t, s.CanStartNewQuestion(poll.ID), "active question blocks a new one")

	_, _, changed, err := s.CloseQuestion(poll.ID, question.ID)
	require.NoError(t, err)
	require.True(t, changed)
	assert.True(t, s.CanStartNewQuestion(poll.ID))
}

func TestStartQuestion_OnlyPending(t *testing.T) {
	s := newTestStore()
	poll, question := startedQuestion(t, s, "alice")

	_, err := s.StartQuestion(poll.ID, question.ID)
	assert.ErrorIs(t, err, ErrQuestionNotPending)

	current, ok := s.CurrentQuestion(poll.ID)
	require.True(t, ok)
	assert.Equal(t, question.ID, current.ID)
	assert.Equal(t, StatusActive, current.Status)
}

func TestStartNewQuestion(t *testing.T) {
	s := newTestStore()
	poll, err := s.CreatePoll("poll", "")
	require.NoError(t, err)

	question, err := s.StartNewQuestion(poll.ID, twoOptionQuestion())
	require.NoError(t, err)
	assert.Equal(t, StatusActive, question.Status)
	require.NotNil(t, question.StartedAt)

	current, ok := s.CurrentQuestion(poll.ID)
	require.True(t, ok)
	assert.Equal(t, question.ID, current.ID)
}

func TestStartNewQuestion_GuardHoldsUnderInterleaving(t *testing.T) {
	s := newTestStore()
	poll, err := s.CreatePoll("poll", "")
	require.NoError(t, err)

	// Two teachers observe an idle poll before either starts, then both
	// attempt the start. Guard, creation and activation are one
	// transition, so the second attempt must lose even though its
	// stand-alone check passed.
	assert.True(t, s.CanStartNewQuestion(poll.ID))
	assert.True(t, s.CanStartNewQuestion(poll.ID))

	winner, err := s.StartNewQuestion(poll.ID, twoOptionQuestion())
	require.NoError(t, err)
	_, err = s.StartNewQuestion(poll.ID, twoOptionQuestion())
	assert.ErrorIs(t, err, ErrQuestionInProgress)

	results, err := s.PollResults(poll.ID)
	require.NoError(t, err)
	require.Len(t, results.Questions, 1, "the losing start must not add a question")

	current, ok := s.CurrentQuestion(poll.ID)
	require.True(t, ok)
	assert.Equal(t, winner.ID, current.ID)
}

func TestStartNewQuestion_ConcurrentStartsActivateOne(t *testing.T) {
	s := newTestStore()
	poll, err := s.CreatePoll("poll", "")
	require.NoError(t, err)

	const attempts = 8
	var wg sync.WaitGroup
	var started int32
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.StartNewQuestion(poll.ID, twoOptionQuestion()); err == nil {
				atomic.AddInt32(&started, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), started)

	results, err := s.PollResults(poll.ID)
	require.NoError(t, err)
	require.Len(t, results.Questions, 1)
	assert.Equal(t, StatusActive, results.Questions[0].Status)
}

func TestStartQuestion_OtherQuestionInFlight(t *testing.T) {
	s := newTestStore()
	poll, err := s.CreatePoll("poll", "")
	require.NoError(t, err)

	first, err := s.AddQuestion(poll.ID, twoOptionQuestion())
	require.NoError(t, err)
	second, err := s.AddQuestion(poll.ID, twoOptionQuestion())
	require.NoError(t, err)

	// Activating either staged question is blocked by the other still
	// being in flight.
	_, err = s.StartQuestion(poll.ID, first.ID)
	assert.ErrorIs(t, err, ErrQuestionInProgress)
	_, err = s.StartQuestion(poll.ID, second.ID)
	assert.ErrorIs(t, err, ErrQuestionInProgress)

	_, ok := s.CurrentQuestion(poll.ID)
	assert.False(t, ok)
}

func TestRecordVote(t *testing.T) {
	s := newTestStore()
	poll, question := startedQuestion(t, s, "alice", "bob")

	_, results, allAnswered, err := s.RecordVote(poll.ID, question.ID, "alice", "b")
	require.NoError(t, err)
	assert.False(t, allAnswered)
	assert.Equal(t, 1, results.TotalVotes)
	assert.Equal(t, 1, results.AnsweredCount)

	_, results, allAnswered, err = s.RecordVote(poll.ID, question.ID, "bob", "a")
	require.NoError(t, err)
	assert.True(t, allAnswered, "second of two students completes the roster")
	assert.Equal(t, 2, results.TotalVotes)
}

func TestRecordVote_Guards(t *testing.T) {
	s := newTestStore()
	poll, question := startedQuestion(t, s, "alice")

	_, _, _, err := s.RecordVote(poll.ID, question.ID, "alice", "z")
	assert.ErrorIs(t, err, ErrUnknownOption)

	_, _, _, err = s.RecordVote(poll.ID, question.ID, "alice", "a")
	require.NoError(t, err)

	// The second vote is rejected, not overwritten.
	_, _, _, err = s.RecordVote(poll.ID, question.ID, "alice", "b")
	assert.ErrorIs(t, err, ErrAlreadyAnswered)

	results, err := s.QuestionResults(poll.ID, question.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, results.TotalVotes)

	_, _, changed, err := s.CloseQuestion(poll.ID, question.ID)
	require.NoError(t, err)
	require.True(t, changed)

	_, _, _, err = s.RecordVote(poll.ID, question.ID, "bob", "a")
	assert.ErrorIs(t, err, ErrQuestionNotActive)
}

func TestRecordVote_SumMatchesAnswered(t *testing.T) {
	s := newTestStore()
	poll, question := startedQuestion(t, s, "a1", "a2", "a3", "a4")

	votes := map[string]string{"a1": "a", "a2": "b", "a3": "b", "a4": "b"}
	for student, option := range votes {
		_, _, _, err := s.RecordVote(poll.ID, question.ID, student, option)
		require.NoError(t, err)
	}

	results, err := s.QuestionResults(poll.ID, question.ID)
	require.NoError(t, err)

	sum := 0
	for _, option := range results.Options {
		sum += option.Votes
	}
	assert.Equal(t, results.AnsweredCount, sum)
	assert.Equal(t, 4, results.TotalVotes)
}

func TestResults_Percentages(t *testing.T) {
	s := newTestStore()
	poll, question := startedQuestion(t, s, "s1", "s2", "s3", "s4")

	// 1 vote on a, 3 votes on b.
	_, _, _, err := s.RecordVote(poll.ID, question.ID, "s1", "a")
	require.NoError(t, err)
	for _, student := range []string{"s2", "s3", "s4"} {
		_, _, _, err := s.RecordVote(poll.ID, question.ID, student, "b")
		require.NoError(t, err)
	}

	results, err := s.QuestionResults(poll.ID, question.ID)
	require.NoError(t, err)

	byID := map[string]OptionResult{}
	for _, option := range results.Options {
		byID[option.ID] = option
	}
	assert.Equal(t, 25, byID["a"].Percentage)
	assert.Equal(t, 75, byID["b"].Percentage)
}

func TestCloseQuestion_Idempotent(t *testing.T) {
	timers := NewTimerManager()
	s := New(testPollConfig(), timers)
	poll, question := startedQuestion(t, s, "alice")

	fired := 0
	timers.Arm(question.ID, time.Hour, func() { fired++ })

	_, _, changed, err := s.CloseQuestion(poll.ID, question.ID)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.False(t, timers.Armed(question.ID), "close cancels the countdown")

	// Racing closers observe the already closed state.
	view, _, changed, err := s.CloseQuestion(poll.ID, question.ID)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, StatusClosed, view.Status)
	assert.Equal(t, 0, fired)

	_, ok := s.CurrentQuestion(poll.ID)
	assert.False(t, ok)
}

func TestCloseQuestion_Unknown(t *testing.T) {
	s := newTestStore()
	poll, err := s.CreatePoll("poll", "")
	require.NoError(t, err)

	_, _, _, err = s.CloseQuestion(poll.ID, "nope")
	assert.ErrorIs(t, err, ErrQuestionNotFound)
	_, _, _, err = s.CloseQuestion("nope", "nope")
	assert.ErrorIs(t, err, ErrPollNotFound)
}

func TestPollResults_AllQuestions(t *testing.T) {
	s := newTestStore()
	poll, first := startedQuestion(t, s, "alice")

	_, _, _, err := s.RecordVote(poll.ID, first.ID, "alice", "b")
	require.NoError(t, err)
	_, _, changed, err := s.CloseQuestion(poll.ID, first.ID)
	require.NoError(t, err)
	require.True(t, changed)

	second, err := s.AddQuestion(poll.ID, twoOptionQuestion())
	require.NoError(t, err)
	_, err = s.StartQuestion(poll.ID, second.ID)
	require.NoError(t, err)

	results, err := s.PollResults(poll.ID)
	require.NoError(t, err)
	require.Len(t, results.Questions, 2)
	assert.Equal(t, StatusClosed, results.Questions[0].Status)
	assert.Equal(t, 1, results.Questions[0].TotalVotes)
	assert.Equal(t, StatusActive, results.Questions[1].Status)
	assert.Equal(t, 0, results.Questions[1].TotalVotes)
}
