package services

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	redisclient "github.com/yungbote/lessonforge-backend/internal/clients/redis"
	"github.com/yungbote/lessonforge-backend/internal/data/repos"
	"github.com/yungbote/lessonforge-backend/internal/domain/events"
	"github.com/yungbote/lessonforge-backend/internal/domain/lessons"
	"github.com/yungbote/lessonforge-backend/internal/pkg/ctxutil"
	"github.com/yungbote/lessonforge-backend/internal/pkg/dbctx"
	"github.com/yungbote/lessonforge-backend/internal/pkg/logger"
	"github.com/yungbote/lessonforge-backend/internal/pkg/pointers"
)

var tracer = otel.Tracer("github.com/yungbote/lessonforge-backend/internal/services")

// LessonProgressService applies processing-step-updated events from the AI
// worker to the lesson that owns the job.
type LessonProgressService interface {
	Apply(ctx context.Context, ev events.ProcessingStepUpdated) error
}

type lessonProgressService struct {
	db         *gorm.DB
	log        *logger.Logger
	lessonRepo repos.LessonRepo
	completion LessonCompletionService
	notifier   StepNotifier
	jobStatus  redisclient.JobStatusStore
}

// NewLessonProgressService wires the state machine. jobStatus may be nil.
func NewLessonProgressService(
	db *gorm.DB,
	log *logger.Logger,
	lessonRepo repos.LessonRepo,
	completion LessonCompletionService,
	notifier StepNotifier,
	jobStatus redisclient.JobStatusStore,
) LessonProgressService {
	return &lessonProgressService{
		db:         db,
		log:        log.With("service", "LessonProgressService"),
		lessonRepo: lessonRepo,
		completion: completion,
		notifier:   notifier,
		jobStatus:  jobStatus,
	}
}

// transition mutates a locked lesson for one step. aiMessage merging is
// common to every step and happens outside.
type transition func(l *lessons.Lesson, ev events.ProcessingStepUpdated)

// transitionFor is the step table. COMPLETED is handled by the completion
// procedure; NONE and PROCESSING_STARTED are never emitted by the worker.
func transitionFor(step lessons.ProcessingStep) (transition, bool) {
	switch step {
	case lessons.StepSourceFetched:
		return applySourceFetched, true
	case lessons.StepTranscribed, lessons.StepNLPAnalyzed:
		return applyAnalysisStep, true
	case lessons.StepFailed:
		return applyFailed, true
	}
	return nil, false
}

func applySourceFetched(l *lessons.Lesson, ev events.ProcessingStepUpdated) {
	l.ProcessingStep = ev.ProcessingStep
	l.Status = lessons.StatusProcessing
	pointers.MergeString(&l.AudioURL, ev.AudioURL)
	pointers.MergeString(&l.SourceReferenceID, ev.SourceReferenceID)
	pointers.MergeString(&l.ThumbnailURL, ev.ThumbnailURL)
	pointers.Merge(&l.DurationSeconds, ev.DurationSeconds)
	pointers.MergeString(&l.AIMetadataURL, ev.AIMetadataURL)
}

func applyAnalysisStep(l *lessons.Lesson, ev events.ProcessingStepUpdated) {
	l.ProcessingStep = ev.ProcessingStep
	l.Status = lessons.StatusProcessing
	pointers.MergeString(&l.AIMetadataURL, ev.AIMetadataURL)
}

// applyFailed keeps the last reached step so operators can see where the
// pipeline stopped.
func applyFailed(l *lessons.Lesson, ev events.ProcessingStepUpdated) {
	l.Status = lessons.StatusError
	pointers.MergeString(&l.AIMetadataURL, ev.AIMetadataURL)
}

func (s *lessonProgressService) Apply(ctx context.Context, ev events.ProcessingStepUpdated) error {
	ev.AIJobID = strings.TrimSpace(ev.AIJobID)
	ctx, span := tracer.Start(ctx, "lesson.apply", trace.WithAttributes(
		attribute.String("ai_job_id", ev.AIJobID),
		attribute.String("processing_step", string(ev.ProcessingStep)),
		attribute.Bool("is_skip", ev.IsSkip),
	))
	defer span.End()

	log := s.log.With("job_id", ev.AIJobID, "step", ev.ProcessingStep, "skip", ev.IsSkip)
	if ev.AIJobID == "" {
		log.Warn("Dropping processing event without job id")
		return nil
	}
	if !ev.ProcessingStep.WorkerEmitted() {
		log.Warn("Rejecting processing event with a step the worker never emits")
		return nil
	}
	s.noteCancellation(ctx, log, ev.AIJobID)

	var err error
	switch {
	case ev.IsSkip:
		err = s.applySkip(ctx, log, ev)
	case ev.ProcessingStep == lessons.StepCompleted:
		err = s.completion.Complete(ctx, ev)
	default:
		err = s.applyTransition(ctx, log, ev)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (s *lessonProgressService) applyTransition(ctx context.Context, log *logger.Logger, ev events.ProcessingStepUpdated) error {
	apply, ok := transitionFor(ev.ProcessingStep)
	if !ok {
		log.Warn("No transition for processing step")
		return nil
	}

	ctx, ob := ctxutil.WithOutbox(ctx)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		lesson, err := s.lessonRepo.GetByAIJobID(dbc, ev.AIJobID, true)
		if err != nil {
			return err
		}
		if lesson == nil {
			log.Warn("No lesson owns this job; dropping event")
			return nil
		}
		apply(lesson, ev)
		pointers.MergeString(&lesson.AIMessage, ev.AIMessage)
		if err := s.lessonRepo.Save(dbc, lesson); err != nil {
			return err
		}
		log.Debug("Applied processing step", "lesson_id", lesson.ID, "status", lesson.Status)
		return s.notifier.Notify(ctx, events.NotifyFrom(lesson.ID, ev))
	})
	if err != nil {
		ob.Discard()
		return fmt.Errorf("apply %s for job %s: %w", ev.ProcessingStep, ev.AIJobID, err)
	}
	if err := s.notifier.Flush(ctx, ob); err != nil {
		return fmt.Errorf("notify %s for job %s: %w", ev.ProcessingStep, ev.AIJobID, err)
	}
	return nil
}

// applySkip forwards the step to subscribers without touching the lesson.
func (s *lessonProgressService) applySkip(ctx context.Context, log *logger.Logger, ev events.ProcessingStepUpdated) error {
	lesson, err := s.lessonRepo.GetByAIJobID(dbctx.Context{Ctx: ctx}, ev.AIJobID, false)
	if err != nil {
		return fmt.Errorf("lookup job %s: %w", ev.AIJobID, err)
	}
	if lesson == nil {
		log.Warn("No lesson owns this job; dropping skip event")
		return nil
	}
	if err := s.notifier.Notify(ctx, events.NotifyFrom(lesson.ID, ev)); err != nil {
		return fmt.Errorf("notify skip %s for job %s: %w", ev.ProcessingStep, ev.AIJobID, err)
	}
	return nil
}

// noteCancellation only logs. Cancellation is advisory and late events are
// still applied.
func (s *lessonProgressService) noteCancellation(ctx context.Context, log *logger.Logger, jobID string) {
	if s.jobStatus == nil {
		return
	}
	cancelled, err := s.jobStatus.IsCancelled(ctx, jobID)
	if err != nil {
		log.Debug("Cancel marker lookup failed", "error", err)
		return
	}
	if cancelled {
		log.Info("Applying event for a job that was cancelled")
	}
}
