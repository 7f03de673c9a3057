package main

import (
	"context"
	"time"

	models "github.com/CLDWare/pollroom-backend/pkg/db"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func main() {
	db, err := gorm.Open(sqlite.Open("test.db"), &gorm.Config{})
	if err != nil {
		panic("failed to connect to database: " + err.Error())
	}

	ctx := context.Background()

	db.AutoMigrate(&models.User{}, &models.AuthSession{}, &models.Poll{}, &models.QuestionResult{})

	// DUMMY DATA
	teacher := models.User{
		GoogleSubject: "100000000000000000001",
		Email:         "t.vandervelden@chrlyceumdelft.nl",
		Name:          "Tom van der Velden",
		DisplayName:   "Tom",
	}
	err = gorm.G[models.User](db).Create(ctx, &teacher)

	endedAt := time.Now().Add(-30 * time.Minute)
	poll := models.Poll{
		PollID:      "8b6f4a1e-dummy-poll",
		Title:       "Wat vond je van de les?",
		Description: "Evaluatie van het hoofdstuk over breuken",
		TeacherID:   &teacher.ID,
		EndedAt:     &endedAt,
	}
	err = gorm.G[models.Poll](db).Create(ctx, &poll)

	startedAt := endedAt.Add(-5 * time.Minute)
	closedAt := endedAt.Add(-4 * time.Minute)
	question := models.QuestionResult{
		PollRecordID:    poll.ID,
		QuestionID:      "3f2c9d7a-dummy-question",
		Text:            "Hoe duidelijk was de uitleg?",
		CorrectOptionID: "",
		TotalVotes:      23,
		AnsweredCount:   23,
		OptionsJSON:     `[{"id":"1","text":"Heel duidelijk","votes":10,"percentage":43},{"id":"2","text":"Duidelijk","votes":7,"percentage":30},{"id":"3","text":"Onduidelijk","votes":6,"percentage":26}]`,
		StartedAt:       &startedAt,
		ClosedAt:        &closedAt,
	}
	gorm.G[models.QuestionResult](db).Create(ctx, &question)

	record, err := gorm.G[models.Poll](db).Where("id = ?", poll.ID).First(ctx)
	println(record.ID, record.PollID, record.Title)
}
