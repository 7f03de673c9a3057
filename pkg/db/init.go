package db

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func InitialiseDatabase() (*gorm.DB, error) {
	return InitialiseDatabaseAt("data/pollroom.db")
}

// InitialiseDatabaseAt opens the sqlite database at the given path and
// migrates the schema. Tests use ":memory:".
func InitialiseDatabaseAt(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %s", err.Error())
	}

	db.AutoMigrate(&User{}, &AuthSession{}, &Poll{}, &QuestionResult{})
	return db, nil
}
