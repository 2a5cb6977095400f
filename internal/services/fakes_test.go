package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/lessonforge-backend/internal/clients/aiworker"
	"github.com/yungbote/lessonforge-backend/internal/data/repos"
	"github.com/yungbote/lessonforge-backend/internal/data/repos/testutil"
	"github.com/yungbote/lessonforge-backend/internal/domain/events"
	"github.com/yungbote/lessonforge-backend/internal/pkg/logger"
)

type published struct {
	Topic   string
	Key     string
	Payload any
}

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []published
	err  error
}

func (p *recordingPublisher) Publish(_ context.Context, topic, key string, v any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, published{Topic: topic, Key: key, Payload: v})
	return nil
}

func (p *recordingPublisher) notifications(t *testing.T) []events.StepNotify {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []events.StepNotify
	for _, m := range p.msgs {
		if m.Topic != events.TopicProcessingStepNotify {
			continue
		}
		n, ok := m.Payload.(events.StepNotify)
		if !ok {
			t.Fatalf("step-notify payload type: got %T", m.Payload)
		}
		out = append(out, n)
	}
	return out
}

func (p *recordingPublisher) generationRequests(t *testing.T) []events.GenerationRequested {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []events.GenerationRequested
	for _, m := range p.msgs {
		if m.Topic != events.TopicGenerationRequested {
			continue
		}
		req, ok := m.Payload.(events.GenerationRequested)
		if !ok {
			t.Fatalf("generation-requested payload type: got %T", m.Payload)
		}
		out = append(out, req)
	}
	return out
}

type fakeFetcher struct {
	doc  *events.MetadataDocument
	err  error
	urls []string
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (*events.MetadataDocument, error) {
	f.urls = append(f.urls, url)
	if f.err != nil {
		return nil, f.err
	}
	return f.doc, nil
}

type fakeJobs struct {
	nextID    string
	err       error
	requests  []aiworker.JobRequest
	cancelled []string
}

func (f *fakeJobs) CreateJob(_ context.Context, req aiworker.JobRequest) (string, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return "", f.err
	}
	return f.nextID, nil
}

func (f *fakeJobs) CancelJob(_ context.Context, jobID string) error {
	f.cancelled = append(f.cancelled, jobID)
	return errors.New("workflow backend offline")
}

type fakeJobStatus struct {
	marked map[string]time.Duration
}

func (f *fakeJobStatus) MarkCancelled(_ context.Context, jobID string, ttl time.Duration) error {
	if f.marked == nil {
		f.marked = map[string]time.Duration{}
	}
	f.marked[jobID] = ttl
	return nil
}

func (f *fakeJobStatus) IsCancelled(_ context.Context, jobID string) (bool, error) {
	_, ok := f.marked[jobID]
	return ok, nil
}

type harness struct {
	db        *gorm.DB
	log       *logger.Logger
	lessons   repos.LessonRepo
	sentences repos.SentenceRepo
	pub       *recordingPublisher
	fetcher   *fakeFetcher
	jobStatus *fakeJobStatus
	progress  LessonProgressService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		db:        testutil.DB(t),
		log:       testutil.Logger(t),
		pub:       &recordingPublisher{},
		fetcher:   &fakeFetcher{},
		jobStatus: &fakeJobStatus{},
	}
	h.lessons = repos.NewLessonRepo(h.db, h.log)
	h.sentences = repos.NewSentenceRepo(h.db, h.log)
	notifier := NewStepNotifier(h.pub)
	completion := NewLessonCompletionService(h.db, h.log, h.lessons, h.sentences, h.fetcher, notifier, time.Second)
	h.progress = NewLessonProgressService(h.db, h.log, h.lessons, completion, notifier, h.jobStatus)
	return h
}

func f64(v float64) *float64 { return &v }
