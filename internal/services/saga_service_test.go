package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yungbote/lessonforge-backend/internal/data/repos/testutil"
	types "github.com/yungbote/lessonforge-backend/internal/domain"
	"github.com/yungbote/lessonforge-backend/internal/domain/lessons"
	pkgerrors "github.com/yungbote/lessonforge-backend/internal/pkg/errors"
	"github.com/yungbote/lessonforge-backend/internal/pkg/pointers"
)

func newSaga(h *harness, jobs *fakeJobs) SagaService {
	return NewSagaService(h.db, h.log, h.lessons, jobs, h.jobStatus, h.pub, SagaConfig{CancelMarkerTTL: 30 * time.Minute})
}

func aiInput(title string) CreateLessonInput {
	return CreateLessonInput{
		Title:      title,
		TopicSlug:  "listening",
		LessonType: lessons.LessonTypeAIAssisted,
		SourceType: lessons.SourceTypeYouTube,
		SourceURL:  "https://youtube.com/watch?v=abc",
	}
}

func TestCreateTraditionalLessonStaysDraft(t *testing.T) {
	h := newHarness(t)
	jobs := &fakeJobs{nextID: "job-1"}
	saga := newSaga(h, jobs)

	l, err := saga.CreateLesson(context.Background(), CreateLessonInput{
		Title:      "Café Conversations",
		TopicSlug:  "daily-life",
		LessonType: lessons.LessonTypeTraditional,
	})
	if err != nil {
		t.Fatalf("CreateLesson: %v", err)
	}
	if l.Slug != "cafe-conversations" {
		t.Fatalf("slug: want=%q got=%q", "cafe-conversations", l.Slug)
	}
	if l.Status != lessons.StatusDraft || l.ProcessingStep != lessons.StepNone || l.AIJobID != nil {
		t.Fatalf("lesson: %+v", l)
	}
	if len(jobs.requests) != 0 || len(h.pub.generationRequests(t)) != 0 {
		t.Fatalf("traditional lesson must not start a job")
	}
}

func TestCreateAILessonStartsJob(t *testing.T) {
	h := newHarness(t)
	jobs := &fakeJobs{nextID: "job-42"}
	saga := newSaga(h, jobs)

	l, err := saga.CreateLesson(context.Background(), aiInput("Morning Routine"))
	if err != nil {
		t.Fatalf("CreateLesson: %v", err)
	}
	got := testutil.ReloadLesson(t, h.db, l.ID)
	if pointers.Deref(got.AIJobID) != "job-42" {
		t.Fatalf("aiJobId: %v", got.AIJobID)
	}
	if pointers.Deref(got.AIMessage) != "AI job created with ID: job-42" {
		t.Fatalf("aiMessage: %v", got.AIMessage)
	}
	if got.ProcessingStep != lessons.StepProcessingStarted || got.Status != lessons.StatusProcessing {
		t.Fatalf("step/status: %s/%s", got.ProcessingStep, got.Status)
	}

	reqs := h.pub.generationRequests(t)
	if len(reqs) != 1 {
		t.Fatalf("generation requests: want=1 got=%d", len(reqs))
	}
	req := reqs[0]
	if req.LessonID != l.ID || req.AIJobID != "job-42" || req.SourceURL != "https://youtube.com/watch?v=abc" {
		t.Fatalf("generation request: %+v", req)
	}
	if req.AIMetadataURL != nil || req.IsRestart != nil {
		t.Fatalf("first request carries no metadata url or restart flag: %+v", req)
	}
}

func TestCreateLessonValidation(t *testing.T) {
	h := newHarness(t)
	saga := newSaga(h, &fakeJobs{nextID: "job-1"})

	missingURL := aiInput("No Source")
	missingURL.SourceURL = " "
	cases := map[string]CreateLessonInput{
		"title":      {TopicSlug: "t", LessonType: lessons.LessonTypeTraditional},
		"topic":      {Title: "x", LessonType: lessons.LessonTypeTraditional},
		"type":       {Title: "x", TopicSlug: "t", LessonType: "OTHER"},
		"source url": missingURL,
	}
	for name, in := range cases {
		if _, err := saga.CreateLesson(context.Background(), in); !errors.Is(err, pkgerrors.ErrInvalidArgument) {
			t.Fatalf("%s: expected ErrInvalidArgument, got %v", name, err)
		}
	}
}

func TestCreateLessonDuplicateSlug(t *testing.T) {
	h := newHarness(t)
	saga := newSaga(h, &fakeJobs{nextID: "job-1"})
	in := CreateLessonInput{Title: "Hello World", TopicSlug: "t", LessonType: lessons.LessonTypeTraditional}

	if _, err := saga.CreateLesson(context.Background(), in); err != nil {
		t.Fatalf("CreateLesson: %v", err)
	}
	in.Title = "hello   world!"
	if _, err := saga.CreateLesson(context.Background(), in); !errors.Is(err, ErrSlugTaken) {
		t.Fatalf("expected ErrSlugTaken, got %v", err)
	}
}

func TestCreateLessonJobCreationFailure(t *testing.T) {
	h := newHarness(t)
	jobs := &fakeJobs{err: errors.New("connection refused")}
	saga := newSaga(h, jobs)

	_, err := saga.CreateLesson(context.Background(), aiInput("Broken Worker"))
	if !errors.Is(err, ErrJobCreation) || !errors.Is(err, pkgerrors.ErrUpstream) {
		t.Fatalf("expected ErrJobCreation, got %v", err)
	}

	var stored []types.Lesson
	if err := h.db.Find(&stored).Error; err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(stored) != 1 || stored[0].Status != lessons.StatusDraft || stored[0].AIJobID != nil {
		t.Fatalf("lesson after failed job creation: %+v", stored)
	}
	if len(h.pub.generationRequests(t)) != 0 {
		t.Fatalf("no generation request may be published")
	}
}

func TestRetryGeneration(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	seeded := testutil.SeedAILesson(t, ctx, h.db, "job-1")
	if err := h.db.Model(seeded).Updates(map[string]any{
		"ai_metadata_url": "https://cdn/m.json",
		"status":          lessons.StatusError,
	}).Error; err != nil {
		t.Fatalf("update: %v", err)
	}
	jobs := &fakeJobs{nextID: "job-2"}
	saga := newSaga(h, jobs)

	l, err := saga.RetryGeneration(ctx, seeded.ID, true)
	if err != nil {
		t.Fatalf("RetryGeneration: %v", err)
	}
	if pointers.Deref(l.AIJobID) != "job-2" || l.Status != lessons.StatusProcessing || l.ProcessingStep != lessons.StepProcessingStarted {
		t.Fatalf("lesson after retry: %+v", l)
	}
	if len(jobs.requests) != 1 || !jobs.requests[0].IsRestart {
		t.Fatalf("job requests: %+v", jobs.requests)
	}
	reqs := h.pub.generationRequests(t)
	if len(reqs) != 1 {
		t.Fatalf("generation requests: want=1 got=%d", len(reqs))
	}
	if pointers.Deref(reqs[0].AIMetadataURL) != "https://cdn/m.json" || !pointers.Deref(reqs[0].IsRestart) {
		t.Fatalf("retry request: %+v", reqs[0])
	}
}

func TestRetryGenerationRejections(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	saga := newSaga(h, &fakeJobs{nextID: "job-2"})

	if _, err := saga.RetryGeneration(ctx, 12345, false); !errors.Is(err, ErrLessonNotFound) {
		t.Fatalf("missing lesson: expected ErrLessonNotFound, got %v", err)
	}

	trad, err := saga.CreateLesson(ctx, CreateLessonInput{Title: "Plain", TopicSlug: "t", LessonType: lessons.LessonTypeTraditional})
	if err != nil {
		t.Fatalf("CreateLesson: %v", err)
	}
	if _, err := saga.RetryGeneration(ctx, trad.ID, false); !errors.Is(err, ErrNotAIAssisted) || !errors.Is(err, pkgerrors.ErrUnprocessable) {
		t.Fatalf("traditional lesson: expected ErrNotAIAssisted, got %v", err)
	}
}

func TestCancelGeneration(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	seeded := testutil.SeedAILesson(t, ctx, h.db, "job-7")
	now := time.Now().UTC()
	if err := h.db.Model(seeded).Update("published_at", &now).Error; err != nil {
		t.Fatalf("update: %v", err)
	}
	jobs := &fakeJobs{}
	saga := newSaga(h, jobs)

	l, err := saga.CancelGeneration(ctx, seeded.ID)
	if err != nil {
		t.Fatalf("CancelGeneration: %v", err)
	}
	if l.Status != lessons.StatusDraft || l.PublishedAt != nil || pointers.Deref(l.AIMessage) != cancelledMessage {
		t.Fatalf("lesson after cancel: %+v", l)
	}
	got := testutil.ReloadLesson(t, h.db, seeded.ID)
	if got.Status != lessons.StatusDraft || got.PublishedAt != nil {
		t.Fatalf("stored lesson after cancel: %+v", got)
	}
	if ttl, ok := h.jobStatus.marked["job-7"]; !ok || ttl != 30*time.Minute {
		t.Fatalf("cancel marker: ok=%v ttl=%s", ok, ttl)
	}
	if len(jobs.cancelled) != 1 || jobs.cancelled[0] != "job-7" {
		t.Fatalf("job backend cancel: %v", jobs.cancelled)
	}

	if _, err := saga.CancelGeneration(ctx, 999); !errors.Is(err, ErrLessonNotFound) {
		t.Fatalf("missing lesson: expected ErrLessonNotFound, got %v", err)
	}
}
