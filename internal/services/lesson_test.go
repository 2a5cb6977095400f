package services

import (
	"context"
	"errors"
	"testing"

	"github.com/yungbote/lessonforge-backend/internal/data/repos/testutil"
	types "github.com/yungbote/lessonforge-backend/internal/domain"
	"github.com/yungbote/lessonforge-backend/internal/domain/lessons"
)

func TestPublishRequiresReadyAILesson(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	svc := NewLessonService(h.db, h.log, h.lessons, h.sentences)
	seeded := testutil.SeedAILesson(t, ctx, h.db, "job-1")

	if _, err := svc.Publish(ctx, seeded.ID); !errors.Is(err, ErrNotReady) {
		t.Fatalf("expected ErrNotReady, got %v", err)
	}

	if err := h.db.Model(seeded).Update("status", lessons.StatusReady).Error; err != nil {
		t.Fatalf("update: %v", err)
	}
	l, err := svc.Publish(ctx, seeded.ID)
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if l.PublishedAt == nil {
		t.Fatalf("publishedAt not set")
	}
	l, err = svc.Unpublish(ctx, seeded.ID)
	if err != nil {
		t.Fatalf("Unpublish: %v", err)
	}
	if l.PublishedAt != nil || testutil.ReloadLesson(t, h.db, seeded.ID).PublishedAt != nil {
		t.Fatalf("publishedAt not cleared")
	}
	if _, err := svc.Publish(ctx, 4040); !errors.Is(err, ErrLessonNotFound) {
		t.Fatalf("missing lesson: expected ErrLessonNotFound, got %v", err)
	}
}

func TestGetBySlugAndDelete(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	svc := NewLessonService(h.db, h.log, h.lessons, h.sentences)
	seeded := testutil.SeedAILesson(t, ctx, h.db, "job-1")
	testutil.SeedSentences(t, ctx, h.db, seeded.ID, 3)

	l, err := svc.GetBySlug(ctx, seeded.Slug)
	if err != nil {
		t.Fatalf("GetBySlug: %v", err)
	}
	if len(l.Sentences) != 3 || len(l.Sentences[0].Words) != 2 {
		t.Fatalf("content: sentences=%d", len(l.Sentences))
	}
	for i, s := range l.Sentences {
		if s.OrderIndex != i {
			t.Fatalf("sentence order: index %d has orderIndex %d", i, s.OrderIndex)
		}
	}

	if err := svc.Delete(ctx, seeded.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	var sentences, words int64
	h.db.Model(&types.LessonSentence{}).Count(&sentences)
	h.db.Model(&types.LessonWord{}).Count(&words)
	if sentences != 0 || words != 0 {
		t.Fatalf("delete left sentences=%d words=%d", sentences, words)
	}
	if _, err := svc.GetBySlug(ctx, seeded.Slug); !errors.Is(err, ErrLessonNotFound) {
		t.Fatalf("expected ErrLessonNotFound, got %v", err)
	}
	if err := svc.Delete(ctx, seeded.ID); !errors.Is(err, ErrLessonNotFound) {
		t.Fatalf("second delete: expected ErrLessonNotFound, got %v", err)
	}
}

func TestSetSentenceActive(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	svc := NewLessonService(h.db, h.log, h.lessons, h.sentences)
	seeded := testutil.SeedAILesson(t, ctx, h.db, "job-1")
	sentences := testutil.SeedSentences(t, ctx, h.db, seeded.ID, 1)

	s, err := svc.SetSentenceActive(ctx, sentences[0].ID, false)
	if err != nil {
		t.Fatalf("SetSentenceActive: %v", err)
	}
	if s.IsActive {
		t.Fatalf("sentence still active")
	}
	if _, err := svc.SetSentenceActive(ctx, 777, true); !errors.Is(err, ErrSentenceNotFound) {
		t.Fatalf("expected ErrSentenceNotFound, got %v", err)
	}
}
