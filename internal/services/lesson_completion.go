package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/lessonforge-backend/internal/alignment"
	"github.com/yungbote/lessonforge-backend/internal/clients/metadata"
	"github.com/yungbote/lessonforge-backend/internal/data/repos"
	"github.com/yungbote/lessonforge-backend/internal/domain/events"
	"github.com/yungbote/lessonforge-backend/internal/domain/lessons"
	"github.com/yungbote/lessonforge-backend/internal/pkg/ctxutil"
	"github.com/yungbote/lessonforge-backend/internal/pkg/dbctx"
	"github.com/yungbote/lessonforge-backend/internal/pkg/logger"
	"github.com/yungbote/lessonforge-backend/internal/pkg/pointers"
)

const (
	DefaultMetadataFetchTimeout = 30 * time.Second

	completedMessage = "Lesson generation completed successfully."
)

// LessonCompletionService turns a COMPLETED event into sentences and words.
type LessonCompletionService interface {
	Complete(ctx context.Context, ev events.ProcessingStepUpdated) error
}

type lessonCompletionService struct {
	db           *gorm.DB
	log          *logger.Logger
	lessonRepo   repos.LessonRepo
	sentenceRepo repos.SentenceRepo
	fetcher      metadata.Fetcher
	notifier     StepNotifier
	fetchTimeout time.Duration
}

func NewLessonCompletionService(
	db *gorm.DB,
	log *logger.Logger,
	lessonRepo repos.LessonRepo,
	sentenceRepo repos.SentenceRepo,
	fetcher metadata.Fetcher,
	notifier StepNotifier,
	fetchTimeout time.Duration,
) LessonCompletionService {
	if fetchTimeout <= 0 {
		fetchTimeout = DefaultMetadataFetchTimeout
	}
	return &lessonCompletionService{
		db:           db,
		log:          log.With("service", "LessonCompletionService"),
		lessonRepo:   lessonRepo,
		sentenceRepo: sentenceRepo,
		fetcher:      fetcher,
		notifier:     notifier,
		fetchTimeout: fetchTimeout,
	}
}

func (s *lessonCompletionService) Complete(ctx context.Context, ev events.ProcessingStepUpdated) error {
	log := s.log.With("job_id", ev.AIJobID)

	lesson, err := s.lessonRepo.GetByAIJobID(dbctx.Context{Ctx: ctx}, ev.AIJobID, false)
	if err != nil {
		return fmt.Errorf("lookup job %s: %w", ev.AIJobID, err)
	}
	if lesson == nil {
		log.Warn("No lesson owns this job; dropping completion")
		return nil
	}
	log = log.With("lesson_id", lesson.ID)

	metadataURL := pointers.NonEmpty(ev.AIMetadataURL)
	if metadataURL == nil {
		metadataURL = pointers.NonEmpty(lesson.AIMetadataURL)
	}

	// Fetch before any transaction opens so the row lock is never held
	// across network I/O.
	doc, err := s.fetch(ctx, metadataURL)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn("Metadata unavailable; failing lesson", "error", err)
		return s.fail(ctx, ev, err)
	}

	sentences := alignment.BuildSentences(doc)

	ctx, ob := ctxutil.WithOutbox(ctx)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		locked, err := s.lessonRepo.GetByAIJobID(dbc, ev.AIJobID, true)
		if err != nil {
			return err
		}
		if locked == nil {
			log.Warn("Lesson vanished before completion")
			return nil
		}
		alignment.MergeSource(locked, doc.SourceFetched)
		pointers.MergeString(&locked.AudioURL, ev.AudioURL)
		pointers.MergeString(&locked.SourceReferenceID, ev.SourceReferenceID)
		pointers.MergeString(&locked.ThumbnailURL, ev.ThumbnailURL)
		pointers.Merge(&locked.DurationSeconds, ev.DurationSeconds)
		pointers.MergeString(&locked.AIMetadataURL, metadataURL)

		if _, err := s.sentenceRepo.ReplaceForLesson(dbc, locked.ID, sentences); err != nil {
			return fmt.Errorf("replace sentences: %w", err)
		}
		locked.TotalSentences = len(sentences)
		locked.ProcessingStep = lessons.StepCompleted
		locked.Status = lessons.StatusReady
		locked.AIMessage = pointers.String(completedMessage)
		if err := s.lessonRepo.Save(dbc, locked); err != nil {
			return err
		}

		notify := events.NotifyFrom(locked.ID, ev)
		notify.ProcessingStep = lessons.StepCompleted
		notify.AIMessage = locked.AIMessage
		return s.notifier.Notify(ctx, notify)
	})
	if err != nil {
		ob.Discard()
		return fmt.Errorf("complete job %s: %w", ev.AIJobID, err)
	}
	log.Info("Lesson generation completed", "sentences", len(sentences))
	if err := s.notifier.Flush(ctx, ob); err != nil {
		return fmt.Errorf("notify completion for job %s: %w", ev.AIJobID, err)
	}
	return nil
}

func (s *lessonCompletionService) fetch(ctx context.Context, metadataURL *string) (*events.MetadataDocument, error) {
	if metadataURL == nil {
		return nil, fmt.Errorf("%w: no metadata url", metadata.ErrUnavailable)
	}
	if s.fetcher == nil {
		return nil, fmt.Errorf("%w: no fetcher configured", metadata.ErrUnavailable)
	}
	fetchCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()
	doc, err := s.fetcher.Fetch(fetchCtx, strings.TrimSpace(*metadataURL))
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: empty document", metadata.ErrUnavailable)
	}
	return doc, nil
}

// fail marks the lesson ERROR without touching its step and tells subscribers
// the job failed. The event is acked; recovery goes through RetryGeneration.
func (s *lessonCompletionService) fail(ctx context.Context, ev events.ProcessingStepUpdated, cause error) error {
	msg := "Lesson completion failed: " + cause.Error()
	if errors.Is(cause, context.DeadlineExceeded) {
		msg = "Lesson completion failed: metadata fetch timed out"
	}

	ctx, ob := ctxutil.WithOutbox(ctx)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		lesson, err := s.lessonRepo.GetByAIJobID(dbc, ev.AIJobID, true)
		if err != nil {
			return err
		}
		if lesson == nil {
			return nil
		}
		lesson.Status = lessons.StatusError
		lesson.AIMessage = pointers.String(msg)
		if err := s.lessonRepo.Save(dbc, lesson); err != nil {
			return err
		}
		return s.notifier.Notify(ctx, events.StepNotify{
			LessonID:       lesson.ID,
			AIJobID:        ev.AIJobID,
			ProcessingStep: lessons.StepFailed,
			AIMessage:      lesson.AIMessage,
		})
	})
	if err != nil {
		ob.Discard()
		return fmt.Errorf("fail job %s: %w", ev.AIJobID, err)
	}
	return s.notifier.Flush(ctx, ob)
}
