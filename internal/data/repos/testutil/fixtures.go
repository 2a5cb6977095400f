package testutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/lessonforge-backend/internal/domain"
	"github.com/yungbote/lessonforge-backend/internal/domain/lessons"
)

// SeedAILesson inserts an AI-assisted lesson that is processing jobID.
func SeedAILesson(tb testing.TB, ctx context.Context, db *gorm.DB, jobID string) *types.Lesson {
	tb.Helper()
	l := &types.Lesson{
		Title:           "Lesson " + jobID,
		Slug:            "lesson-" + uuid.NewString(),
		TopicSlug:       "listening",
		LessonType:      lessons.LessonTypeAIAssisted,
		SourceType:      lessons.SourceTypeYouTube,
		SourceURL:       "https://youtube.com/watch?v=" + jobID,
		EnableDictation: true,
		EnableShadowing: true,
		ProcessingStep:  lessons.StepProcessingStarted,
		Status:          lessons.StatusProcessing,
	}
	if jobID != "" {
		id := jobID
		l.AIJobID = &id
	}
	if err := db.WithContext(ctx).Create(l).Error; err != nil {
		tb.Fatalf("seed lesson: %v", err)
	}
	return l
}

// SeedSentences inserts n sentences with two words each.
func SeedSentences(tb testing.TB, ctx context.Context, db *gorm.DB, lessonID int64, n int) []types.LessonSentence {
	tb.Helper()
	out := make([]types.LessonSentence, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, types.LessonSentence{
			LessonID:    lessonID,
			OrderIndex:  i,
			TextRaw:     "old text",
			TextDisplay: "old text",
			IsActive:    true,
			Words: []types.LessonWord{
				{OrderIndex: 0, WordText: "old", WordLower: "old", WordNormalized: "old", IsClickable: true},
				{OrderIndex: 1, WordText: "text", WordLower: "text", WordNormalized: "text", IsClickable: true},
			},
		})
	}
	if err := db.WithContext(ctx).Create(&out).Error; err != nil {
		tb.Fatalf("seed sentences: %v", err)
	}
	return out
}

func ReloadLesson(tb testing.TB, db *gorm.DB, id int64) *types.Lesson {
	tb.Helper()
	var l types.Lesson
	if err := db.Where("id = ?", id).First(&l).Error; err != nil {
		tb.Fatalf("reload lesson %d: %v", id, err)
	}
	return &l
}
