package consumers

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/yungbote/lessonforge-backend/internal/domain/events"
	"github.com/yungbote/lessonforge-backend/internal/domain/lessons"
	"github.com/yungbote/lessonforge-backend/internal/eventbus"
	"github.com/yungbote/lessonforge-backend/internal/pkg/logger"
)

type fakeProgress struct {
	mu   sync.Mutex
	got  []events.ProcessingStepUpdated
	err  error
	done chan struct{}
}

func (f *fakeProgress) Apply(_ context.Context, ev events.ProcessingStepUpdated) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.got = append(f.got, ev)
	if f.done != nil {
		close(f.done)
		f.done = nil
	}
	return f.err
}

func TestProgressHandlerDecodesAndApplies(t *testing.T) {
	svc := &fakeProgress{}
	h := ProgressHandler(logger.Nop(), svc)

	err := h(context.Background(), eventbus.Message{Payload: []byte(`{"aiJobId":"job-42","processingStep":"SOURCE_FETCHED","durationSeconds":95,"isSkip":false}`)})
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if len(svc.got) != 1 {
		t.Fatalf("Apply calls: want=1 got=%d", len(svc.got))
	}
	ev := svc.got[0]
	if ev.AIJobID != "job-42" || ev.ProcessingStep != lessons.StepSourceFetched || ev.DurationSeconds == nil || *ev.DurationSeconds != 95 {
		t.Fatalf("decoded event: %+v", ev)
	}
}

func TestProgressHandlerAcksMalformedPayload(t *testing.T) {
	svc := &fakeProgress{}
	h := ProgressHandler(logger.Nop(), svc)
	if err := h(context.Background(), eventbus.Message{Payload: []byte(`{"aiJobId":`)}); err != nil {
		t.Fatalf("malformed payload should be acked, got %v", err)
	}
	if len(svc.got) != 0 {
		t.Fatalf("Apply should not be called")
	}
}

func TestProgressHandlerReturnsApplyErrors(t *testing.T) {
	boom := errors.New("db down")
	h := ProgressHandler(logger.Nop(), &fakeProgress{err: boom})
	if err := h(context.Background(), eventbus.Message{Payload: []byte(`{"aiJobId":"j","processingStep":"TRANSCRIBED"}`)}); !errors.Is(err, boom) {
		t.Fatalf("expected apply error, got %v", err)
	}
}

func TestRunnerRecoversPanics(t *testing.T) {
	r := NewRunner(logger.Nop(), nil)
	wrapped := r.wrap(registration{topic: "t", group: "g", handler: func(context.Context, eventbus.Message) error {
		panic("boom")
	}})
	err := wrapped(context.Background(), eventbus.Message{ID: "1-0"})
	var pe *panicError
	if !errors.As(err, &pe) {
		t.Fatalf("expected panicError, got %v", err)
	}
}

func TestRunnerDeliversThroughMemoryBus(t *testing.T) {
	bus := eventbus.NewMemoryBus(logger.Nop(), eventbus.MemoryConfig{Partitions: 2})
	defer bus.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	svc := &fakeProgress{done: done}
	r := NewRunner(logger.Nop(), bus)
	RegisterAll(r, logger.Nop(), svc, nil)
	if err := r.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	ev := events.ProcessingStepUpdated{AIJobID: "job-1", ProcessingStep: lessons.StepTranscribed}
	if err := bus.Publish(ctx, events.TopicProcessingStepUpdated, ev.AIJobID, ev); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("event not delivered")
	}
}
