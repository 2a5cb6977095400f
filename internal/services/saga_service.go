package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/lessonforge-backend/internal/clients/aiworker"
	redisclient "github.com/yungbote/lessonforge-backend/internal/clients/redis"
	"github.com/yungbote/lessonforge-backend/internal/data/repos"
	types "github.com/yungbote/lessonforge-backend/internal/domain"
	"github.com/yungbote/lessonforge-backend/internal/domain/events"
	"github.com/yungbote/lessonforge-backend/internal/domain/lessons"
	"github.com/yungbote/lessonforge-backend/internal/eventbus"
	"github.com/yungbote/lessonforge-backend/internal/normalization"
	"github.com/yungbote/lessonforge-backend/internal/pkg/ctxutil"
	"github.com/yungbote/lessonforge-backend/internal/pkg/dbctx"
	pkgerrors "github.com/yungbote/lessonforge-backend/internal/pkg/errors"
	"github.com/yungbote/lessonforge-backend/internal/pkg/logger"
	"github.com/yungbote/lessonforge-backend/internal/pkg/pointers"
)

const cancelledMessage = "AI processing cancelled."

type CreateLessonInput struct {
	Title           string             `json:"title"`
	Description     string             `json:"description"`
	TopicSlug       string             `json:"topicSlug"`
	LessonType      lessons.LessonType `json:"lessonType"`
	SourceType      lessons.SourceType `json:"sourceType"`
	SourceURL       string             `json:"sourceUrl"`
	SourceLanguage  string             `json:"sourceLanguage"`
	LanguageLevel   string             `json:"languageLevel"`
	EnableDictation bool               `json:"enableDictation"`
	EnableShadowing bool               `json:"enableShadowing"`
}

// SagaService starts, restarts and cancels AI generation for lessons. The
// remaining steps of the saga are driven by worker events through
// LessonProgressService.
type SagaService interface {
	CreateLesson(ctx context.Context, in CreateLessonInput) (*types.Lesson, error)
	RetryGeneration(ctx context.Context, lessonID int64, isRestart bool) (*types.Lesson, error)
	CancelGeneration(ctx context.Context, lessonID int64) (*types.Lesson, error)
}

type SagaConfig struct {
	CancelMarkerTTL time.Duration
}

type sagaService struct {
	db         *gorm.DB
	log        *logger.Logger
	lessonRepo repos.LessonRepo
	jobs       aiworker.JobCreator
	jobStatus  redisclient.JobStatusStore
	pub        eventbus.Publisher
	cfg        SagaConfig
}

// NewSagaService wires the orchestrator. When jobs also implements
// aiworker.JobCanceller, cancellation is forwarded to the job backend.
func NewSagaService(
	db *gorm.DB,
	baseLog *logger.Logger,
	lessonRepo repos.LessonRepo,
	jobs aiworker.JobCreator,
	jobStatus redisclient.JobStatusStore,
	pub eventbus.Publisher,
	cfg SagaConfig,
) SagaService {
	if cfg.CancelMarkerTTL <= 0 {
		cfg.CancelMarkerTTL = redisclient.DefaultCancelMarkerTTL
	}
	return &sagaService{
		db:         db,
		log:        baseLog.With("service", "SagaService"),
		lessonRepo: lessonRepo,
		jobs:       jobs,
		jobStatus:  jobStatus,
		pub:        pub,
		cfg:        cfg,
	}
}

func (in CreateLessonInput) validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return invalidArgument("title is required")
	}
	if strings.TrimSpace(in.TopicSlug) == "" {
		return invalidArgument("topicSlug is required")
	}
	if !in.LessonType.Valid() {
		return invalidArgument("unknown lessonType %q", in.LessonType)
	}
	if in.LessonType == lessons.LessonTypeAIAssisted {
		if strings.TrimSpace(in.SourceURL) == "" {
			return invalidArgument("sourceUrl is required for AI-assisted lessons")
		}
		if !in.SourceType.Valid() {
			return invalidArgument("unknown sourceType %q", in.SourceType)
		}
	}
	return nil
}

func (s *sagaService) CreateLesson(ctx context.Context, in CreateLessonInput) (*types.Lesson, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	slug := normalization.Slugify(in.Title)
	if slug == "" {
		return nil, invalidArgument("title %q produces an empty slug", in.Title)
	}

	dbc := dbctx.Context{Ctx: ctx}
	taken, err := s.lessonRepo.ExistsBySlug(dbc, slug)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrSlugTaken
	}

	lesson := &types.Lesson{
		Title:           strings.TrimSpace(in.Title),
		Slug:            slug,
		Description:     in.Description,
		TopicSlug:       strings.TrimSpace(in.TopicSlug),
		LessonType:      in.LessonType,
		SourceType:      in.SourceType,
		SourceURL:       strings.TrimSpace(in.SourceURL),
		SourceLanguage:  in.SourceLanguage,
		LanguageLevel:   in.LanguageLevel,
		EnableDictation: in.EnableDictation,
		EnableShadowing: in.EnableShadowing,
		ProcessingStep:  lessons.StepNone,
		Status:          lessons.StatusDraft,
	}
	if err := s.lessonRepo.Create(dbc, lesson); err != nil {
		if errors.Is(err, pkgerrors.ErrConflict) {
			return nil, ErrSlugTaken
		}
		return nil, err
	}
	s.log.Info("Lesson created", "lesson_id", lesson.ID, "slug", lesson.Slug, "type", lesson.LessonType)

	if !lesson.IsAIAssisted() {
		return lesson, nil
	}
	return s.startJob(ctx, lesson, nil, false)
}

func (s *sagaService) RetryGeneration(ctx context.Context, lessonID int64, isRestart bool) (*types.Lesson, error) {
	lesson, err := s.lessonRepo.GetByID(dbctx.Context{Ctx: ctx}, lessonID, false)
	if err != nil {
		return nil, err
	}
	if lesson == nil {
		return nil, ErrLessonNotFound
	}
	if !lesson.IsAIAssisted() {
		return nil, ErrNotAIAssisted
	}
	s.log.Info("Retrying lesson generation", "lesson_id", lesson.ID, "is_restart", isRestart)
	return s.startJob(ctx, lesson, &isRestart, true)
}

// startJob requests a job from the worker and records it on the lesson. A
// failed request leaves the lesson untouched.
func (s *sagaService) startJob(ctx context.Context, lesson *types.Lesson, isRestart *bool, carryMetadata bool) (*types.Lesson, error) {
	if s.jobs == nil {
		return nil, wrapCause(ErrJobCreation, errors.New("no AI job backend configured"))
	}
	jobID, err := s.jobs.CreateJob(ctx, aiworker.JobRequest{
		LessonID:   lesson.ID,
		SourceType: lesson.SourceType,
		SourceURL:  lesson.SourceURL,
		IsRestart:  pointers.Deref(isRestart),
	})
	if err == nil && strings.TrimSpace(jobID) == "" {
		err = aiworker.ErrNoJobID
	}
	if err != nil {
		s.log.Error("Failed to create AI job", "lesson_id", lesson.ID, "error", err)
		return nil, wrapCause(ErrJobCreation, err)
	}

	var updated *types.Lesson
	ctx, ob := ctxutil.WithOutbox(ctx)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		locked, err := s.lessonRepo.GetByID(dbc, lesson.ID, true)
		if err != nil {
			return err
		}
		if locked == nil {
			return ErrLessonNotFound
		}
		locked.AIJobID = pointers.String(jobID)
		locked.AIMessage = pointers.String("AI job created with ID: " + jobID)
		locked.ProcessingStep = lessons.StepProcessingStarted
		locked.Status = lessons.StatusProcessing
		if err := s.lessonRepo.Save(dbc, locked); err != nil {
			return err
		}

		req := events.GenerationRequested{
			LessonID:   locked.ID,
			SourceType: locked.SourceType,
			SourceURL:  locked.SourceURL,
			AIJobID:    jobID,
			IsRestart:  isRestart,
		}
		if carryMetadata {
			req.AIMetadataURL = locked.AIMetadataURL
		}
		ob.Append(events.TopicGenerationRequested, strconv.FormatInt(locked.ID, 10), req)
		updated = locked
		return nil
	})
	if err != nil {
		ob.Discard()
		return nil, fmt.Errorf("record job %s for lesson %d: %w", jobID, lesson.ID, err)
	}
	if err := flushOutbox(ctx, s.pub, ob); err != nil {
		s.log.Error("Generation request not published", "lesson_id", updated.ID, "job_id", jobID, "error", err)
		return updated, wrapCause(ErrPublish, err)
	}
	s.log.Info("AI job started", "lesson_id", updated.ID, "job_id", jobID)
	return updated, nil
}

func (s *sagaService) CancelGeneration(ctx context.Context, lessonID int64) (*types.Lesson, error) {
	var cancelled *types.Lesson
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		lesson, err := s.lessonRepo.GetByID(dbc, lessonID, true)
		if err != nil {
			return err
		}
		if lesson == nil {
			return ErrLessonNotFound
		}
		lesson.Status = lessons.StatusDraft
		lesson.PublishedAt = nil
		lesson.AIMessage = pointers.String(cancelledMessage)
		if err := s.lessonRepo.Save(dbc, lesson); err != nil {
			return err
		}
		cancelled = lesson
		return nil
	})
	if err != nil {
		return nil, err
	}

	jobID := strings.TrimSpace(pointers.Deref(cancelled.AIJobID))
	if jobID == "" {
		return cancelled, nil
	}
	log := s.log.With("lesson_id", cancelled.ID, "job_id", jobID)
	if s.jobStatus != nil {
		if err := s.jobStatus.MarkCancelled(ctx, jobID, s.cfg.CancelMarkerTTL); err != nil {
			log.Warn("Failed to write cancel marker", "error", err)
		}
	}
	if canceller, ok := s.jobs.(aiworker.JobCanceller); ok {
		if err := canceller.CancelJob(ctx, jobID); err != nil {
			log.Warn("Failed to cancel AI job", "error", err)
		}
	}
	log.Info("AI processing cancelled")
	return cancelled, nil
}
