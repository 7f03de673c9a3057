package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CLDWare/pollroom-backend/config"
)

func testPollConfig() config.PollConfig {
	return config.PollConfig{
		DefaultTimeLimit: 60 * time.Second,
		MaxTimeLimit:     10 * time.Minute,
		MinOptions:       2,
		MaxOptions:       10,
	}
}

func newTestStore() *Store {
	return New(testPollConfig(), NewTimerManager())
}

func TestCreatePoll(t *testing.T) {
	s := newTestStore()

	poll, err := s.CreatePoll("Chapter 4 review", "Fractions")
	require.NoError(t, err)
	assert.NotEmpty(t, poll.ID)
	assert.Equal(t, "Chapter 4 review", poll.Title)
	assert.Equal(t, 0, poll.QuestionCount)

	fetched, err := s.GetPoll(poll.ID)
	require.NoError(t, err)
	assert.Equal(t, poll.ID, fetched.ID)
}

func TestCreatePoll_TitleRequired(t *testing.T) {
	s := newTestStore()

	_, err := s.CreatePoll("", "no title")
	require.Error(t, err)
	assert.True(t, IsValidation(err))
	assert.Equal(t, "title is required", err.Error())
}

func TestGetPoll_Unknown(t *testing.T) {
	s := newTestStore()

	_, err := s.GetPoll("nope")
	assert.ErrorIs(t, err, ErrPollNotFound)
}

func TestLatestPoll(t *testing.T) {
	s := newTestStore()

	_, ok := s.LatestPoll()
	assert.False(t, ok)

	first, err := s.CreatePoll("first", "")
	require.NoError(t, err)
	second, err := s.CreatePoll("second", "")
	require.NoError(t, err)

	latest, ok := s.LatestPoll()
	require.True(t, ok)
	assert.Equal(t, second.ID, latest.ID)

	// Removing the newest poll falls back to the older one.
	s.RemovePoll(second.ID)
	latest, ok = s.LatestPoll()
	require.True(t, ok)
	assert.Equal(t, first.ID, latest.ID)
}

func TestAddParticipant(t *testing.T) {
	s := newTestStore()

	poll, err := s.CreatePoll("poll", "")
	require.NoError(t, err)

	student, err := s.AddParticipant("conn-1", poll.ID, "Alice", RoleStudent)
	require.NoError(t, err)
	assert.Equal(t, "Alice", student.Name)
	assert.Equal(t, RoleStudent, student.Role)

	fetched, ok := s.GetParticipant("conn-1")
	require.True(t, ok)
	assert.Equal(t, poll.ID, fetched.PollID)

	_, err = s.AddParticipant("conn-2", "unknown-poll", "Bob", RoleStudent)
	assert.ErrorIs(t, err, ErrPollNotFound)
}

func TestActiveStudents_ExcludesTeacherAndRemoved(t *testing.T) {
	s := newTestStore()

	poll, err := s.CreatePoll("poll", "")
	require.NoError(t, err)

	_, err = s.AddParticipant("teacher", poll.ID, "Teacher", RoleTeacher)
	require.NoError(t, err)
	_, err = s.AddParticipant("alice", poll.ID, "Alice", RoleStudent)
	require.NoError(t, err)
	_, err = s.AddParticipant("bob", poll.ID, "Bob", RoleStudent)
	require.NoError(t, err)

	assert.Len(t, s.ActiveStudents(poll.ID), 2)

	removed, ok := s.RemoveParticipant("bob")
	require.True(t, ok)
	assert.Equal(t, "Bob", removed.Name)
	assert.Len(t, s.ActiveStudents(poll.ID), 1)

	_, ok = s.GetParticipant("bob")
	assert.False(t, ok)
}

func TestRemovePoll(t *testing.T) {
	s := newTestStore()

	poll, err := s.CreatePoll("poll", "")
	require.NoError(t, err)
	_, err = s.AddParticipant("teacher", poll.ID, "Teacher", RoleTeacher)
	require.NoError(t, err)
	_, err = s.AddParticipant("alice", poll.ID, "Alice", RoleStudent)
	require.NoError(t, err)

	removed := s.RemovePoll(poll.ID)
	assert.Len(t, removed, 2)

	_, err = s.GetPoll(poll.ID)
	assert.ErrorIs(t, err, ErrPollNotFound)
	_, ok := s.GetParticipant("alice")
	assert.False(t, ok)

	// Idempotent on unknown polls.
	assert.Empty(t, s.RemovePoll(poll.ID))
}

func TestRemovePoll_CancelsQuestionTimers(t *testing.T) {
	timers := NewTimerManager()
	s := New(testPollConfig(), timers)

	poll, err := s.CreatePoll("poll", "")
	require.NoError(t, err)
	question, err := s.AddQuestion(poll.ID, twoOptionQuestion())
	require.NoError(t, err)
	_, err = s.StartQuestion(poll.ID, question.ID)
	require.NoError(t, err)

	timers.Arm(question.ID, time.Hour, func() {})
	require.True(t, timers.Armed(question.ID))

	s.RemovePoll(poll.ID)
	assert.False(t, timers.Armed(question.ID))
}
