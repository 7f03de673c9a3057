package store

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// OptionData is one inbound answer option. The boundary requires a
// flat {id, text} list; nested or duck-typed shapes are rejected
// before they reach the store.
type OptionData struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// QuestionData is the inbound payload for a new question.
type QuestionData struct {
	Text             string       `json:"text"`
	Options          []OptionData `json:"options"`
	CorrectOptionID  string       `json:"correctOptionId"`
	TimeLimitSeconds int          `json:"timeLimitSeconds"`
}

// OptionResult is the tallied state of one option.
type OptionResult struct {
	ID         string `json:"id"`
	Text       string `json:"text"`
	Votes      int    `json:"votes"`
	Percentage int    `json:"percentage"`
}

// Results is the derived aggregation of a question's votes. The shape
// is identical for live partial results and for closed questions.
type Results struct {
	Options       []OptionResult `json:"options"`
	TotalVotes    int            `json:"totalVotes"`
	AnsweredCount int            `json:"answeredCount"`
}

// QuestionResults is one question's entry in a poll-wide results view.
type QuestionResults struct {
	ID              string         `json:"id"`
	Text            string         `json:"text"`
	Status          QuestionStatus `json:"status"`
	Options         []OptionResult `json:"options"`
	TotalVotes      int            `json:"totalVotes"`
	AnsweredCount   int            `json:"answeredCount"`
	CorrectOptionID string         `json:"correctOptionId,omitempty"`
}

// PollResults aggregates every question of a poll, newest last.
type PollResults struct {
	PollID    string            `json:"pollId"`
	Title     string            `json:"title"`
	Questions []QuestionResults `json:"questions"`
}

// AddQuestion appends a pending question to the poll. The vote map is
// zero-initialized for every declared option id and isCorrect is
// derived from CorrectOptionID. Creation and activation are two
// explicit steps so a question can be staged before it starts; use
// StartNewQuestion when both should happen as one atomic step.
func (s *Store) AddQuestion(pollID string, data QuestionData) (QuestionView, error) {
	if err := s.validateQuestionData(&data); err != nil {
		return QuestionView{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.polls[pollID]
	if !ok {
		return QuestionView{}, ErrPollNotFound
	}

	q := newQuestion(pollID, data)
	p.questions = append(p.questions, q)
	return q.view(), nil
}

// StartNewQuestion validates, creates and activates a question in one
// serialized step. The no-other-question-in-flight guard is
// re-evaluated under the store lock, so two racing starts on the same
// poll can never both activate: the loser fails with
// ErrQuestionInProgress and adds nothing.
func (s *Store) StartNewQuestion(pollID string, data QuestionData) (QuestionView, error) {
	if err := s.validateQuestionData(&data); err != nil {
		return QuestionView{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.polls[pollID]
	if !ok {
		return QuestionView{}, ErrPollNotFound
	}
	if !p.canStartNewQuestion() {
		return QuestionView{}, ErrQuestionInProgress
	}

	q := newQuestion(pollID, data)
	now := time.Now()
	q.status = StatusActive
	q.startedAt = &now

	p.questions = append(p.questions, q)
	p.currentQuestionID = q.id

	return q.view(), nil
}

func newQuestion(pollID string, data QuestionData) *question {
	q := &question{
		id:               uuid.NewString(),
		pollID:           pollID,
		text:             data.Text,
		correctOptionID:  data.CorrectOptionID,
		timeLimitSeconds: data.TimeLimitSeconds,
		status:           StatusPending,
		createdAt:        time.Now(),
		votes:            make(map[string]int, len(data.Options)),
		answeredBy:       make(map[string]struct{}),
	}
	for _, opt := range data.Options {
		q.options = append(q.options, Option{
			ID:        opt.ID,
			Text:      opt.Text,
			IsCorrect: opt.ID == data.CorrectOptionID,
		})
		q.votes[opt.ID] = 0
	}
	return q
}

func (s *Store) validateQuestionData(data *QuestionData) error {
	if data.Text == "" {
		return validationErrorf("question text is required")
	}
	if len(data.Options) < s.cfg.MinOptions || len(data.Options) > s.cfg.MaxOptions {
		return validationErrorf("a question needs between %d and %d options, got %d",
			s.cfg.MinOptions, s.cfg.MaxOptions, len(data.Options))
	}
	seen := make(map[string]struct{}, len(data.Options))
	for _, opt := range data.Options {
		if opt.ID == "" || opt.Text == "" {
			return validationErrorf("every option needs an id and a text")
		}
		if _, dup := seen[opt.ID]; dup {
			return validationErrorf("duplicate option id %q", opt.ID)
		}
		seen[opt.ID] = struct{}{}
	}
	if data.CorrectOptionID != "" {
		if _, ok := seen[data.CorrectOptionID]; !ok {
			return validationErrorf("correctOptionId %q is not a declared option", data.CorrectOptionID)
		}
	}
	if data.TimeLimitSeconds == 0 {
		data.TimeLimitSeconds = int(s.cfg.DefaultTimeLimit.Seconds())
	}
	if data.TimeLimitSeconds < 0 || data.TimeLimitSeconds > int(s.cfg.MaxTimeLimit.Seconds()) {
		return validationErrorf("time limit must be between 1 and %d seconds", int(s.cfg.MaxTimeLimit.Seconds()))
	}
	return nil
}

// CanStartNewQuestion reports whether the poll has no question that is
// currently pending or active.
func (s *Store) CanStartNewQuestion(pollID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.polls[pollID]
	if !ok {
		return false
	}
	return p.canStartNewQuestion()
}

// StartQuestion transitions a staged pending question to active and
// makes it the poll's current question. Re-checks under the lock that
// no other question is still in flight, so no interleaving of callers
// can leave two questions active on one poll.
func (s *Store) StartQuestion(pollID, questionID string) (QuestionView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.polls[pollID]
	if !ok {
		return QuestionView{}, ErrPollNotFound
	}
	q := p.findQuestion(questionID)
	if q == nil {
		return QuestionView{}, ErrQuestionNotFound
	}
	for _, other := range p.questions {
		if other.id != questionID && other.status != StatusClosed {
			return QuestionView{}, ErrQuestionInProgress
		}
	}
	if q.status != StatusPending {
		return QuestionView{}, ErrQuestionNotPending
	}

	now := time.Now()
	q.status = StatusActive
	q.startedAt = &now
	p.currentQuestionID = q.id

	return q.view(), nil
}

// RecordVote registers one vote, atomically with respect to other vote
// and close operations on the same question. The second vote from the
// same connection is rejected, not overwritten. Returns the updated
// question, its tally, and whether every active student has now
// answered (evaluated under the same lock, so the all-answered close
// trigger sees a consistent roster).
func (s *Store) RecordVote(pollID, questionID, connectionID, optionID string) (QuestionView, Results, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.polls[pollID]
	if !ok {
		return QuestionView{}, Results{}, false, ErrPollNotFound
	}
	q := p.findQuestion(questionID)
	if q == nil {
		return QuestionView{}, Results{}, false, ErrQuestionNotFound
	}
	if q.status != StatusActive {
		return QuestionView{}, Results{}, false, ErrQuestionNotActive
	}
	if _, answered := q.answeredBy[connectionID]; answered {
		return QuestionView{}, Results{}, false, ErrAlreadyAnswered
	}
	if _, declared := q.votes[optionID]; !declared {
		return QuestionView{}, Results{}, false, ErrUnknownOption
	}

	q.votes[optionID]++
	q.answeredBy[connectionID] = struct{}{}

	students := s.activeStudentsLocked(pollID)
	allAnswered := len(students) > 0 && len(q.answeredBy) >= len(students)

	return q.view(), q.results(), allAnswered, nil
}

// CloseQuestion performs the single terminal transition of a question.
// Timeout, all-answered and manual close all funnel through here; the
// first caller wins and the rest are no-ops that observe the already
// closed state (changed == false). The question's timer is canceled as
// part of the same serialized step, so a racing countdown can never
// produce a second close.
func (s *Store) CloseQuestion(pollID, questionID string) (QuestionView, Results, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.polls[pollID]
	if !ok {
		return QuestionView{}, Results{}, false, ErrPollNotFound
	}
	q := p.findQuestion(questionID)
	if q == nil {
		return QuestionView{}, Results{}, false, ErrQuestionNotFound
	}

	s.timers.Cancel(questionID)

	if q.status == StatusClosed {
		return q.view(), q.results(), false, nil
	}

	now := time.Now()
	q.status = StatusClosed
	q.closedAt = &now
	if p.currentQuestionID == questionID {
		p.currentQuestionID = ""
	}

	return q.view(), q.results(), true, nil
}

// CurrentQuestion returns the poll's active question, if any.
func (s *Store) CurrentQuestion(pollID string) (QuestionView, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.polls[pollID]
	if !ok || p.currentQuestionID == "" {
		return QuestionView{}, false
	}
	q := p.findQuestion(p.currentQuestionID)
	if q == nil {
		return QuestionView{}, false
	}
	return q.view(), true
}

// QuestionResults returns the tally for a single question regardless
// of its status.
func (s *Store) QuestionResults(pollID, questionID string) (Results, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.polls[pollID]
	if !ok {
		return Results{}, ErrPollNotFound
	}
	q := p.findQuestion(questionID)
	if q == nil {
		return Results{}, ErrQuestionNotFound
	}
	return q.results(), nil
}

// PollResults aggregates the tally of every question of the poll, in
// creation order. Live and closed questions share one shape.
func (s *Store) PollResults(pollID string) (PollResults, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.polls[pollID]
	if !ok {
		return PollResults{}, ErrPollNotFound
	}

	res := PollResults{
		PollID:    p.id,
		Title:     p.title,
		Questions: []QuestionResults{},
	}
	for _, q := range p.questions {
		tally := q.results()
		res.Questions = append(res.Questions, QuestionResults{
			ID:              q.id,
			Text:            q.text,
			Status:          q.status,
			Options:         tally.Options,
			TotalVotes:      tally.TotalVotes,
			AnsweredCount:   tally.AnsweredCount,
			CorrectOptionID: q.correctOptionID,
		})
	}
	return res, nil
}

// results computes the tally. Pure with respect to the question state;
// callers must hold the store lock.
func (q *question) results() Results {
	total := 0
	for _, count := range q.votes {
		total += count
	}

	res := Results{
		Options:       make([]OptionResult, 0, len(q.options)),
		TotalVotes:    total,
		AnsweredCount: len(q.answeredBy),
	}
	for _, opt := range q.options {
		votes := q.votes[opt.ID]
		percentage := 0
		if total > 0 {
			percentage = int(math.Round(float64(votes) / float64(total) * 100))
		}
		res.Options = append(res.Options, OptionResult{
			ID:         opt.ID,
			Text:       opt.Text,
			Votes:      votes,
			Percentage: percentage,
		})
	}
	return res
}

func (q *question) view() QuestionView {
	opts := make([]Option, len(q.options))
	copy(opts, q.options)

	return QuestionView{
		ID:               q.id,
		PollID:           q.pollID,
		Text:             q.text,
		Options:          opts,
		CorrectOptionID:  q.correctOptionID,
		TimeLimitSeconds: q.timeLimitSeconds,
		Status:           q.status,
		CreatedAt:        q.createdAt,
		StartedAt:        q.startedAt,
		ClosedAt:         q.closedAt,
	}
}
