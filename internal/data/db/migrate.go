package db

import (
	"fmt"

	types "github.com/yungbote/lessonforge-backend/internal/domain"
	"gorm.io/gorm"
)

func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&types.Lesson{},
		&types.LessonSentence{},
		&types.LessonWord{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
