package eventbus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/yungbote/lessonforge-backend/internal/pkg/logger"
)

type payload struct {
	Key string `json:"key"`
	Seq int    `json:"seq"`
}

func TestPartitionForIsStable(t *testing.T) {
	for _, key := range []string{"job-1", "job-42", "17", ""} {
		first := PartitionFor(key, 8)
		for i := 0; i < 10; i++ {
			if got := PartitionFor(key, 8); got != first {
				t.Fatalf("PartitionFor(%q) changed: %d != %d", key, got, first)
			}
		}
		if first < 0 || first >= 8 {
			t.Fatalf("PartitionFor(%q)=%d out of range", key, first)
		}
	}
	if got := PartitionFor("anything", 1); got != 0 {
		t.Fatalf("single partition should always be 0, got %d", got)
	}
	if got := StreamName("topic", 3); got != "topic:p3" {
		t.Fatalf("StreamName=%q", got)
	}
}

func TestMemoryBusPreservesPerKeyOrder(t *testing.T) {
	bus := NewMemoryBus(logger.Nop(), MemoryConfig{Partitions: 4})
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	const perKey = 50
	keys := []string{"a", "b", "c", "d", "e"}

	var mu sync.Mutex
	seen := map[string][]int{}
	done := make(chan struct{})
	total := 0
	err := bus.Subscribe(ctx, "t", "g", func(ctx context.Context, msg Message) error {
		var p payload
		if err := msg.Decode(&p); err != nil {
			return err
		}
		if p.Key != msg.Key {
			t.Errorf("payload key %q != message key %q", p.Key, msg.Key)
		}
		mu.Lock()
		defer mu.Unlock()
		seen[p.Key] = append(seen[p.Key], p.Seq)
		total++
		if total == perKey*len(keys) {
			close(done)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	for i := 0; i < perKey; i++ {
		for _, k := range keys {
			if err := bus.Publish(ctx, "t", k, payload{Key: k, Seq: i}); err != nil {
				t.Fatalf("Publish: %v", err)
			}
		}
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for deliveries")
	}

	mu.Lock()
	defer mu.Unlock()
	for _, k := range keys {
		got := seen[k]
		if len(got) != perKey {
			t.Fatalf("key %s: got %d messages want %d", k, len(got), perKey)
		}
		for i, seq := range got {
			if seq != i {
				t.Fatalf("key %s: position %d has seq %d", k, i, seq)
			}
		}
	}
}

func TestMemoryBusRedeliversUntilHandled(t *testing.T) {
	bus := NewMemoryBus(logger.Nop(), MemoryConfig{Partitions: 1, RetryDelay: time.Millisecond})
	defer bus.Close()
	ctx := context.Background()

	attempts := make(chan int, 10)
	err := bus.Subscribe(ctx, "t", "g", func(ctx context.Context, msg Message) error {
		attempts <- msg.Attempt
		if msg.Attempt < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if err := bus.Publish(ctx, "t", "k", []byte(`{}`)); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	for want := 1; want <= 3; want++ {
		select {
		case got := <-attempts:
			if got != want {
				t.Fatalf("attempt=%d want %d", got, want)
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for attempt %d", want)
		}
	}
	select {
	case got := <-attempts:
		t.Fatalf("unexpected extra delivery, attempt %d", got)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMemoryBusBlocksKeyPastMaxAttempts(t *testing.T) {
	bus := NewMemoryBus(logger.Nop(), MemoryConfig{
		Partitions:    1,
		MaxAttempts:   2,
		RetryDelay:    time.Millisecond,
		MaxRetryDelay: 4 * time.Millisecond,
	})
	defer bus.Close()
	ctx := context.Background()

	const failures = 5
	var mu sync.Mutex
	var handled []int
	done := make(chan struct{})
	err := bus.Subscribe(ctx, "t", "g", func(ctx context.Context, msg Message) error {
		var p payload
		if err := msg.Decode(&p); err != nil {
			return err
		}
		if p.Seq == 0 && msg.Attempt <= failures {
			return errors.New("still failing")
		}
		mu.Lock()
		defer mu.Unlock()
		handled = append(handled, p.Seq)
		if len(handled) == 2 {
			close(done)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	for seq := 0; seq < 2; seq++ {
		if err := bus.Publish(ctx, "t", "job-1", payload{Key: "job-1", Seq: seq}); err != nil {
			t.Fatalf("Publish: %v", err)
		}
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		mu.Lock()
		defer mu.Unlock()
		t.Fatalf("failing message was dropped or never retried, handled=%v", handled)
	}
	mu.Lock()
	defer mu.Unlock()
	if handled[0] != 0 || handled[1] != 1 {
		t.Fatalf("later message overtook the failing one: %v", handled)
	}
}

func TestRetryDelayIsCapped(t *testing.T) {
	base, max := 10*time.Millisecond, 70*time.Millisecond
	want := []time.Duration{10, 20, 40, 70, 70}
	for i, w := range want {
		if got := retryDelay(base, max, i+1); got != w*time.Millisecond {
			t.Fatalf("attempt %d: got %v want %v", i+1, got, w*time.Millisecond)
		}
	}
}

func TestMemoryBusFansOutToEveryGroup(t *testing.T) {
	bus := NewMemoryBus(logger.Nop(), MemoryConfig{})
	defer bus.Close()
	ctx := context.Background()

	got := make(chan string, 2)
	for _, g := range []string{"g1", "g2"} {
		group := g
		if err := bus.Subscribe(ctx, "t", group, func(ctx context.Context, msg Message) error {
			got <- group
			return nil
		}); err != nil {
			t.Fatalf("Subscribe %s: %v", group, err)
		}
	}
	if err := bus.Subscribe(ctx, "t", "g1", func(context.Context, Message) error { return nil }); err == nil {
		t.Fatalf("expected duplicate group subscription to fail")
	}
	if err := bus.Publish(ctx, "t", "k", map[string]string{"x": "y"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	groups := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case g := <-got:
			groups[g] = true
		case <-time.After(time.Second):
			t.Fatalf("timed out, got groups %v", groups)
		}
	}
	if !groups["g1"] || !groups["g2"] {
		t.Fatalf("expected both groups, got %v", groups)
	}
}

func TestMemoryBusPublishAfterClose(t *testing.T) {
	bus := NewMemoryBus(logger.Nop(), MemoryConfig{})
	if err := bus.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := bus.Publish(context.Background(), "t", "k", fmt.Sprintf("%d", 1)); err == nil {
		t.Fatalf("expected publish on closed bus to fail")
	}
}
