package lessons

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/lessonforge-backend/internal/domain"
	"github.com/yungbote/lessonforge-backend/internal/pkg/dbctx"
	pkgerrors "github.com/yungbote/lessonforge-backend/internal/pkg/errors"
	"github.com/yungbote/lessonforge-backend/internal/pkg/logger"
)

type LessonRepo interface {
	Create(dbc dbctx.Context, lesson *types.Lesson) error
	GetByID(dbc dbctx.Context, id int64, forUpdate bool) (*types.Lesson, error)
	GetByAIJobID(dbc dbctx.Context, jobID string, forUpdate bool) (*types.Lesson, error)
	GetBySlug(dbc dbctx.Context, slug string) (*types.Lesson, error)
	GetBySlugWithContent(dbc dbctx.Context, slug string) (*types.Lesson, error)
	ExistsBySlug(dbc dbctx.Context, slug string) (bool, error)
	Save(dbc dbctx.Context, lesson *types.Lesson) error
	Delete(dbc dbctx.Context, id int64) error
}

type lessonRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLessonRepo(db *gorm.DB, baseLog *logger.Logger) LessonRepo {
	return &lessonRepo{
		db:  db,
		log: baseLog.With("repo", "LessonRepo"),
	}
}

func (r *lessonRepo) Create(dbc dbctx.Context, lesson *types.Lesson) error {
	if lesson == nil {
		return fmt.Errorf("create lesson: %w", pkgerrors.ErrInvalidArgument)
	}
	if err := dbc.Use(r.db).Omit(clause.Associations).Create(lesson).Error; err != nil {
		if pkgerrors.IsUniqueViolation(err) {
			return fmt.Errorf("lesson slug %q: %w", lesson.Slug, pkgerrors.ErrConflict)
		}
		return err
	}
	return nil
}

func (r *lessonRepo) GetByID(dbc dbctx.Context, id int64, forUpdate bool) (*types.Lesson, error) {
	if id <= 0 {
		return nil, nil
	}
	q := dbc.Use(r.db)
	if forUpdate {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var lesson types.Lesson
	if err := q.Where("id = ?", id).Limit(1).Find(&lesson).Error; err != nil {
		return nil, err
	}
	if lesson.ID == 0 {
		return nil, nil
	}
	return &lesson, nil
}

// GetByAIJobID resolves the lesson that currently owns jobID. Job ids are
// replaced on retry, so a stale id resolves to nothing.
func (r *lessonRepo) GetByAIJobID(dbc dbctx.Context, jobID string, forUpdate bool) (*types.Lesson, error) {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return nil, nil
	}
	q := dbc.Use(r.db)
	if forUpdate {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var lesson types.Lesson
	err := q.Where("ai_job_id = ?", jobID).
		Order("id DESC").
		Limit(1).
		Find(&lesson).Error
	if err != nil {
		return nil, err
	}
	if lesson.ID == 0 {
		return nil, nil
	}
	return &lesson, nil
}

func (r *lessonRepo) GetBySlug(dbc dbctx.Context, slug string) (*types.Lesson, error) {
	if slug == "" {
		return nil, nil
	}
	var lesson types.Lesson
	if err := dbc.Use(r.db).Where("slug = ?", slug).Limit(1).Find(&lesson).Error; err != nil {
		return nil, err
	}
	if lesson.ID == 0 {
		return nil, nil
	}
	return &lesson, nil
}

func (r *lessonRepo) GetBySlugWithContent(dbc dbctx.Context, slug string) (*types.Lesson, error) {
	if slug == "" {
		return nil, nil
	}
	var lesson types.Lesson
	err := dbc.Use(r.db).
		Preload("Sentences", func(db *gorm.DB) *gorm.DB {
			return db.Order("order_index ASC")
		}).
		Preload("Sentences.Words", func(db *gorm.DB) *gorm.DB {
			return db.Order("order_index ASC")
		}).
		Where("slug = ?", slug).
		Limit(1).
		Find(&lesson).Error
	if err != nil {
		return nil, err
	}
	if lesson.ID == 0 {
		return nil, nil
	}
	return &lesson, nil
}

func (r *lessonRepo) ExistsBySlug(dbc dbctx.Context, slug string) (bool, error) {
	var count int64
	if err := dbc.Use(r.db).Model(&types.Lesson{}).Where("slug = ?", slug).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Save writes every column of the lesson row. Sentences are never touched.
func (r *lessonRepo) Save(dbc dbctx.Context, lesson *types.Lesson) error {
	if lesson == nil || lesson.ID == 0 {
		return fmt.Errorf("save lesson: %w", pkgerrors.ErrInvalidArgument)
	}
	return dbc.Use(r.db).Omit(clause.Associations).Save(lesson).Error
}

// Delete removes the lesson row only; callers clear sentences and words first
// in the same transaction.
func (r *lessonRepo) Delete(dbc dbctx.Context, id int64) error {
	res := dbc.Use(r.db).Where("id = ?", id).Delete(&types.Lesson{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("lesson %d: %w", id, pkgerrors.ErrNotFound)
	}
	return nil
}
