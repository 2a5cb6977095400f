package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/lessonforge-backend/internal/data/repos"
	types "github.com/yungbote/lessonforge-backend/internal/domain"
	"github.com/yungbote/lessonforge-backend/internal/domain/lessons"
	"github.com/yungbote/lessonforge-backend/internal/pkg/dbctx"
	pkgerrors "github.com/yungbote/lessonforge-backend/internal/pkg/errors"
	"github.com/yungbote/lessonforge-backend/internal/pkg/logger"
)

type LessonService interface {
	GetBySlug(ctx context.Context, slug string) (*types.Lesson, error)
	Publish(ctx context.Context, lessonID int64) (*types.Lesson, error)
	Unpublish(ctx context.Context, lessonID int64) (*types.Lesson, error)
	Delete(ctx context.Context, lessonID int64) error
	SetSentenceActive(ctx context.Context, sentenceID int64, active bool) (*types.LessonSentence, error)
}

type lessonService struct {
	db           *gorm.DB
	log          *logger.Logger
	lessonRepo   repos.LessonRepo
	sentenceRepo repos.SentenceRepo
	now          func() time.Time
}

func NewLessonService(db *gorm.DB, baseLog *logger.Logger, lessonRepo repos.LessonRepo, sentenceRepo repos.SentenceRepo) LessonService {
	return &lessonService{
		db:           db,
		log:          baseLog.With("service", "LessonService"),
		lessonRepo:   lessonRepo,
		sentenceRepo: sentenceRepo,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// GetBySlug returns the lesson with sentences and words in order.
func (s *lessonService) GetBySlug(ctx context.Context, slug string) (*types.Lesson, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, invalidArgument("slug is required")
	}
	lesson, err := s.lessonRepo.GetBySlugWithContent(dbctx.Context{Ctx: ctx}, slug)
	if err != nil {
		return nil, err
	}
	if lesson == nil {
		return nil, ErrLessonNotFound
	}
	return lesson, nil
}

func (s *lessonService) Publish(ctx context.Context, lessonID int64) (*types.Lesson, error) {
	return s.setPublished(ctx, lessonID, true)
}

func (s *lessonService) Unpublish(ctx context.Context, lessonID int64) (*types.Lesson, error) {
	return s.setPublished(ctx, lessonID, false)
}

func (s *lessonService) setPublished(ctx context.Context, lessonID int64, published bool) (*types.Lesson, error) {
	var out *types.Lesson
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		lesson, err := s.lessonRepo.GetByID(dbc, lessonID, true)
		if err != nil {
			return err
		}
		if lesson == nil {
			return ErrLessonNotFound
		}
		if published {
			// AI lessons have no content until generation finishes.
			if lesson.IsAIAssisted() && lesson.Status != lessons.StatusReady {
				return ErrNotReady
			}
			if lesson.PublishedAt == nil {
				t := s.now()
				lesson.PublishedAt = &t
			}
		} else {
			lesson.PublishedAt = nil
		}
		if err := s.lessonRepo.Save(dbc, lesson); err != nil {
			return err
		}
		out = lesson
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("Lesson publication changed", "lesson_id", out.ID, "published", published)
	return out, nil
}

func (s *lessonService) Delete(ctx context.Context, lessonID int64) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		if err := s.sentenceRepo.DeleteByLesson(dbc, lessonID); err != nil {
			return err
		}
		return s.lessonRepo.Delete(dbc, lessonID)
	})
	if errors.Is(err, pkgerrors.ErrNotFound) {
		return ErrLessonNotFound
	}
	if err != nil {
		return err
	}
	s.log.Info("Lesson deleted", "lesson_id", lessonID)
	return nil
}

func (s *lessonService) SetSentenceActive(ctx context.Context, sentenceID int64, active bool) (*types.LessonSentence, error) {
	dbc := dbctx.Context{Ctx: ctx}
	ok, err := s.sentenceRepo.SetActive(dbc, sentenceID, active)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrSentenceNotFound
	}
	sentence, err := s.sentenceRepo.GetByID(dbc, sentenceID)
	if err != nil {
		return nil, err
	}
	if sentence == nil {
		return nil, ErrSentenceNotFound
	}
	return sentence, nil
}
