package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/lessonforge-backend/internal/eventbus"
	"github.com/yungbote/lessonforge-backend/internal/pkg/logger"
	"github.com/yungbote/lessonforge-backend/internal/services"
)

type Services struct {
	Notifier   services.StepNotifier
	Completion services.LessonCompletionService
	Progress   services.LessonProgressService
	Saga       services.SagaService
	Lesson     services.LessonService
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg *Config, reposet Repos, clients Clients, bus eventbus.Publisher) Services {
	log.Info("Wiring services...")

	notifier := services.NewStepNotifier(bus)
	completion := services.NewLessonCompletionService(
		db,
		log,
		reposet.Lesson,
		reposet.Sentence,
		clients.Metadata,
		notifier,
		cfg.MetadataFetchTimeout,
	)
	progress := services.NewLessonProgressService(db, log, reposet.Lesson, completion, notifier, clients.JobStatus)
	saga := services.NewSagaService(
		db,
		log,
		reposet.Lesson,
		clients.Jobs,
		clients.JobStatus,
		bus,
		services.SagaConfig{CancelMarkerTTL: cfg.CancelMarkerTTL},
	)

	return Services{
		Notifier:   notifier,
		Completion: completion,
		Progress:   progress,
		Saga:       saga,
		Lesson:     services.NewLessonService(db, log, reposet.Lesson, reposet.Sentence),
	}
}
