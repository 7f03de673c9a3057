package store

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/CLDWare/pollroom-backend/config"
)

type ParticipantRole string

const (
	RoleTeacher ParticipantRole = "teacher"
	RoleStudent ParticipantRole = "student"
)

type QuestionStatus string

const (
	StatusPending QuestionStatus = "pending"
	StatusActive  QuestionStatus = "active"
	StatusClosed  QuestionStatus = "closed"
)

// poll is the internal aggregate. Mutated only while Store.mu is held.
type poll struct {
	id                string
	title             string
	description       string
	createdAt         time.Time
	questions         []*question // insertion order = creation order, append-only
	currentQuestionID string      // "" when no question is active
}

// question is the internal per-question state. votes holds a key for
// every declared option id and no other key; sum(votes) == len(answeredBy)
// at all times.
type question struct {
	id               string
	pollID           string
	text             string
	options          []Option
	correctOptionID  string
	timeLimitSeconds int
	status           QuestionStatus
	createdAt        time.Time
	startedAt        *time.Time
	closedAt         *time.Time
	votes            map[string]int
	answeredBy       map[string]struct{} // connection ids
}

type participant struct {
	connectionID string
	pollID       string
	name         string
	role         ParticipantRole
	joinedAt     time.Time
	isRemoved    bool
}

// Option is one declared answer option of a question.
type Option struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	IsCorrect bool   `json:"isCorrect"`
}

// PollView is the snapshot of a poll handed out by the store.
type PollView struct {
	ID                string    `json:"id"`
	Title             string    `json:"title"`
	Description       string    `json:"description"`
	CreatedAt         time.Time `json:"createdAt"`
	CurrentQuestionID string    `json:"currentQuestionId,omitempty"`
	QuestionCount     int       `json:"questionCount"`
}

// QuestionView is the snapshot of a question handed out by the store.
// All store methods return copies; the internal state is never exposed.
type QuestionView struct {
	ID               string         `json:"id"`
	PollID           string         `json:"pollId"`
	Text             string         `json:"text"`
	Options          []Option       `json:"options"`
	CorrectOptionID  string         `json:"correctOptionId"`
	TimeLimitSeconds int            `json:"timeLimitSeconds"`
	Status           QuestionStatus `json:"status"`
	CreatedAt        time.Time      `json:"createdAt"`
	StartedAt        *time.Time     `json:"startedAt,omitempty"`
	ClosedAt         *time.Time     `json:"closedAt,omitempty"`
}

type ParticipantView struct {
	ConnectionID string          `json:"connectionId"`
	PollID       string          `json:"pollId"`
	Name         string          `json:"name"`
	Role         ParticipantRole `json:"role"`
	JoinedAt     time.Time       `json:"joinedAt"`
}

// Store is the single authoritative in-memory coordinator: it owns the
// poll and participant registries and serializes every mutation behind
// one mutex, so per-poll lifecycle invariants hold without finer locks.
// It is constructed per server instance and injected, never a package
// singleton, so tests get fresh isolated instances.
type Store struct {
	cfg    config.PollConfig
	timers *TimerManager

	mu           sync.RWMutex
	polls        map[string]*poll
	pollOrder    []string // creation order, for "join any poll"
	participants map[string]*participant
}

// New creates an empty store. The TimerManager is shared with the
// caller: the caller arms countdowns, the store cancels them when a
// question closes or a poll is torn down.
func New(cfg config.PollConfig, timers *TimerManager) *Store {
	return &Store{
		cfg:          cfg,
		timers:       timers,
		polls:        make(map[string]*poll),
		participants: make(map[string]*participant),
	}
}

// CreatePoll registers a new poll with a fresh id and no questions.
func (s *Store) CreatePoll(title, description string) (PollView, error) {
	if title == "" {
		return PollView{}, validationErrorf("title is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p := &poll{
		id:          uuid.NewString(),
		title:       title,
		description: description,
		createdAt:   time.Now(),
	}
	s.polls[p.id] = p
	s.pollOrder = append(s.pollOrder, p.id)

	return p.view(), nil
}

// GetPoll returns the poll with the given id.
func (s *Store) GetPoll(pollID string) (PollView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.polls[pollID]
	if !ok {
		return PollView{}, ErrPollNotFound
	}
	return p.view(), nil
}

// LatestPoll returns the most recently created poll, if any.
func (s *Store) LatestPoll() (PollView, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := len(s.pollOrder) - 1; i >= 0; i-- {
		if p, ok := s.polls[s.pollOrder[i]]; ok {
			return p.view(), true
		}
	}
	return PollView{}, false
}

// RemovePoll tears a poll down in one serialized step: every timer
// belonging to any of its questions is canceled, every participant
// scoped to it is removed, and the poll itself is deleted. The removed
// participants are returned so the caller can notify them. Idempotent:
// removing an unknown poll returns no participants and no error.
func (s *Store) RemovePoll(pollID string) []ParticipantView {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.polls[pollID]
	if !ok {
		return nil
	}

	for _, q := range p.questions {
		s.timers.Cancel(q.id)
	}

	var removed []ParticipantView
	for connID, part := range s.participants {
		if part.pollID == pollID {
			part.isRemoved = true
			removed = append(removed, part.view())
			delete(s.participants, connID)
		}
	}

	delete(s.polls, pollID)
	return removed
}

// AddParticipant inserts or replaces the participant entry for the
// given connection id.
func (s *Store) AddParticipant(connectionID, pollID, name string, role ParticipantRole) (ParticipantView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.polls[pollID]; !ok {
		return ParticipantView{}, ErrPollNotFound
	}

	part := &participant{
		connectionID: connectionID,
		pollID:       pollID,
		name:         name,
		role:         role,
		joinedAt:     time.Now(),
	}
	s.participants[connectionID] = part
	return part.view(), nil
}

// RemoveParticipant marks the participant removed and drops the entry.
// Returns the removed participant so the caller can notify the poll.
func (s *Store) RemoveParticipant(connectionID string) (ParticipantView, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	part, ok := s.participants[connectionID]
	if !ok {
		return ParticipantView{}, false
	}
	part.isRemoved = true
	delete(s.participants, connectionID)
	return part.view(), true
}

// GetParticipant returns the participant for a connection id.
func (s *Store) GetParticipant(connectionID string) (ParticipantView, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	part, ok := s.participants[connectionID]
	if !ok || part.isRemoved {
		return ParticipantView{}, false
	}
	return part.view(), true
}

// ActiveStudents returns all non-removed participants with role
// student for the poll. This is the authoritative "how many must
// answer" count for the all-answered close trigger.
func (s *Store) ActiveStudents(pollID string) []ParticipantView {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.activeStudentsLocked(pollID)
}

func (s *Store) activeStudentsLocked(pollID string) []ParticipantView {
	students := []ParticipantView{}
	for _, part := range s.participants {
		if part.pollID == pollID && !part.isRemoved && part.role == RoleStudent {
			students = append(students, part.view())
		}
	}
	return students
}

func (p *poll) view() PollView {
	return PollView{
		ID:                p.id,
		Title:             p.title,
		Description:       p.description,
		CreatedAt:         p.createdAt,
		CurrentQuestionID: p.currentQuestionID,
		QuestionCount:     len(p.questions),
	}
}

func (part *participant) view() ParticipantView {
	return ParticipantView{
		ConnectionID: part.connectionID,
		PollID:       part.pollID,
		Name:         part.name,
		Role:         part.role,
		JoinedAt:     part.joinedAt,
	}
}

// canStartNewQuestion reports whether no question of the poll is
// pending or active. Callers must hold the store lock.
func (p *poll) canStartNewQuestion() bool {
	for _, q := range p.questions {
		if q.status != StatusClosed {
			return false
		}
	}
	return true
}

func (p *poll) findQuestion(questionID string) *question {
	for _, q := range p.questions {
		if q.id == questionID {
			return q
		}
	}
	return nil
}
