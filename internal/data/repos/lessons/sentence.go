package lessons

import (
	"gorm.io/gorm"

	types "github.com/yungbote/lessonforge-backend/internal/domain"
	"github.com/yungbote/lessonforge-backend/internal/pkg/dbctx"
	"github.com/yungbote/lessonforge-backend/internal/pkg/logger"
)

type SentenceRepo interface {
	// ReplaceForLesson deletes every sentence and word of the lesson and
	// inserts the given tree. Run it inside the caller's transaction.
	ReplaceForLesson(dbc dbctx.Context, lessonID int64, sentences []types.LessonSentence) ([]types.LessonSentence, error)
	DeleteByLesson(dbc dbctx.Context, lessonID int64) error
	ListByLesson(dbc dbctx.Context, lessonID int64) ([]types.LessonSentence, error)
	CountWordsByLesson(dbc dbctx.Context, lessonID int64) (int64, error)
	GetByID(dbc dbctx.Context, id int64) (*types.LessonSentence, error)
	SetActive(dbc dbctx.Context, id int64, active bool) (bool, error)
}

type sentenceRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSentenceRepo(db *gorm.DB, baseLog *logger.Logger) SentenceRepo {
	return &sentenceRepo{
		db:  db,
		log: baseLog.With("repo", "SentenceRepo"),
	}
}

func (r *sentenceRepo) ReplaceForLesson(dbc dbctx.Context, lessonID int64, sentences []types.LessonSentence) ([]types.LessonSentence, error) {
	if err := r.DeleteByLesson(dbc, lessonID); err != nil {
		return nil, err
	}
	if len(sentences) == 0 {
		return []types.LessonSentence{}, nil
	}
	for i := range sentences {
		sentences[i].ID = 0
		sentences[i].LessonID = lessonID
		for j := range sentences[i].Words {
			sentences[i].Words[j].ID = 0
			sentences[i].Words[j].SentenceID = 0
		}
	}
	if err := dbc.Use(r.db).CreateInBatches(&sentences, 200).Error; err != nil {
		return nil, err
	}
	return sentences, nil
}

func (r *sentenceRepo) DeleteByLesson(dbc dbctx.Context, lessonID int64) error {
	transaction := dbc.Use(r.db)
	sentenceIDs := transaction.Model(&types.LessonSentence{}).Select("id").Where("lesson_id = ?", lessonID)
	if err := transaction.Where("sentence_id IN (?)", sentenceIDs).Delete(&types.LessonWord{}).Error; err != nil {
		return err
	}
	return dbc.Use(r.db).Where("lesson_id = ?", lessonID).Delete(&types.LessonSentence{}).Error
}

func (r *sentenceRepo) ListByLesson(dbc dbctx.Context, lessonID int64) ([]types.LessonSentence, error) {
	var out []types.LessonSentence
	err := dbc.Use(r.db).
		Preload("Words", func(db *gorm.DB) *gorm.DB {
			return db.Order("order_index ASC")
		}).
		Where("lesson_id = ?", lessonID).
		Order("order_index ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *sentenceRepo) CountWordsByLesson(dbc dbctx.Context, lessonID int64) (int64, error) {
	var count int64
	transaction := dbc.Use(r.db)
	sentenceIDs := transaction.Model(&types.LessonSentence{}).Select("id").Where("lesson_id = ?", lessonID)
	err := dbc.Use(r.db).Model(&types.LessonWord{}).Where("sentence_id IN (?)", sentenceIDs).Count(&count).Error
	return count, err
}

func (r *sentenceRepo) GetByID(dbc dbctx.Context, id int64) (*types.LessonSentence, error) {
	var s types.LessonSentence
	if err := dbc.Use(r.db).Where("id = ?", id).Limit(1).Find(&s).Error; err != nil {
		return nil, err
	}
	if s.ID == 0 {
		return nil, nil
	}
	return &s, nil
}

func (r *sentenceRepo) SetActive(dbc dbctx.Context, id int64, active bool) (bool, error) {
	res := dbc.Use(r.db).Model(&types.LessonSentence{}).Where("id = ?", id).Update("is_active", active)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
