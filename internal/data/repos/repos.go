package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/lessonforge-backend/internal/data/repos/lessons"
	"github.com/yungbote/lessonforge-backend/internal/pkg/logger"
)

type LessonRepo = lessons.LessonRepo
type SentenceRepo = lessons.SentenceRepo

func NewLessonRepo(db *gorm.DB, baseLog *logger.Logger) LessonRepo {
	return lessons.NewLessonRepo(db, baseLog)
}

func NewSentenceRepo(db *gorm.DB, baseLog *logger.Logger) SentenceRepo {
	return lessons.NewSentenceRepo(db, baseLog)
}
