package db

import (
	"time"

	"gorm.io/gorm"
)

// User is a teacher account, created on first Google sign-in
type User struct {
	gorm.Model
	GoogleSubject string `gorm:"unique"`
	Email         string `gorm:"unique"`
	Name          string
	DisplayName   string
}

type AuthSession struct {
	gorm.Model
	SessionToken string `gorm:"unique"`
	UserID       uint
	User         User `gorm:"foreignKey:UserID;references:ID"`
	ExpiresAt    time.Time
}

// Poll is the persistent record of a live poll session. The live
// engine owns the session while it runs; this row is history.
type Poll struct {
	gorm.Model
	PollID      string `gorm:"unique"` // id of the in-memory session
	Title       string
	Description string
	TeacherID   *uint
	Teacher     *User `gorm:"foreignKey:TeacherID;references:ID"`
	EndedAt     *time.Time
	Questions   []QuestionResult `gorm:"foreignKey:PollRecordID;references:ID"`
}

// QuestionResult is the final tally of one closed question,
// written exactly once when the question closes.
type QuestionResult struct {
	gorm.Model
	PollRecordID    uint
	QuestionID      string `gorm:"unique"` // id of the in-memory question
	Text            string
	CorrectOptionID string
	TotalVotes      int
	AnsweredCount   int
	OptionsJSON     string // final per-option counts and percentages, results shape
	StartedAt       *time.Time
	ClosedAt        *time.Time
}
