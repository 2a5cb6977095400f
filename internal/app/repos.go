package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/lessonforge-backend/internal/data/repos"
	"github.com/yungbote/lessonforge-backend/internal/pkg/logger"
)

type Repos struct {
	Lesson   repos.LessonRepo
	Sentence repos.SentenceRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Lesson:   repos.NewLessonRepo(db, log),
		Sentence: repos.NewSentenceRepo(db, log),
	}
}
