package eventbus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/yungbote/lessonforge-backend/internal/pkg/logger"
)

type MemoryConfig struct {
	Partitions  int
	QueueSize   int
	// MaxAttempts is the failure count after which a stuck message is
	// logged as an error. Delivery keeps retrying past it.
	MaxAttempts   int
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration
}

type memoryBus struct {
	log *logger.Logger
	cfg MemoryConfig

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.RWMutex
	subs   map[string]map[string][]chan Message
	closed bool
	seq    uint64
}

// NewMemoryBus returns an in-process bus with the same ordering contract as
// the redis bus. Messages live only in memory. A failing message blocks its
// partition and is retried until handled or the bus closes.
func NewMemoryBus(log *logger.Logger, cfg MemoryConfig) Bus {
	if cfg.Partitions <= 0 {
		cfg.Partitions = DefaultPartitions
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1024
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 50 * time.Millisecond
	}
	if cfg.MaxRetryDelay < cfg.RetryDelay {
		cfg.MaxRetryDelay = max(2*time.Second, cfg.RetryDelay)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &memoryBus{
		log:    log.With("service", "MemoryEventBus"),
		cfg:    cfg,
		ctx:    ctx,
		cancel: cancel,
		subs:   map[string]map[string][]chan Message{},
	}
}

func (b *memoryBus) Publish(ctx context.Context, topic, key string, v any) error {
	payload, err := encode(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", topic, err)
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return fmt.Errorf("event bus closed")
	}
	b.seq++
	p := PartitionFor(key, b.cfg.Partitions)
	msg := Message{
		Topic:     topic,
		Key:       key,
		Partition: p,
		ID:        fmt.Sprintf("%d-0", b.seq),
		Payload:   payload,
	}
	var queues []chan Message
	for _, partitions := range b.subs[topic] {
		queues = append(queues, partitions[p])
	}
	b.mu.Unlock()

	for _, q := range queues {
		select {
		case q <- msg:
		case <-ctx.Done():
			return ctx.Err()
		case <-b.ctx.Done():
			return fmt.Errorf("event bus closed")
		}
	}
	return nil
}

func (b *memoryBus) Subscribe(ctx context.Context, topic, group string, h Handler) error {
	if h == nil {
		return fmt.Errorf("handler required")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return fmt.Errorf("event bus closed")
	}
	groups := b.subs[topic]
	if groups == nil {
		groups = map[string][]chan Message{}
		b.subs[topic] = groups
	}
	if _, exists := groups[group]; exists {
		return fmt.Errorf("group %q already consuming %s", group, topic)
	}

	queues := make([]chan Message, b.cfg.Partitions)
	for p := range queues {
		queues[p] = make(chan Message, b.cfg.QueueSize)
	}
	groups[group] = queues

	log := b.log.With("topic", topic, "group", group)
	for p := range queues {
		q := queues[p]
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case <-b.ctx.Done():
					return
				case msg := <-q:
					b.deliver(ctx, log, msg, h)
				}
			}
		}()
	}
	return nil
}

func (b *memoryBus) deliver(ctx context.Context, log *logger.Logger, msg Message, h Handler) {
	for attempt := 1; ; attempt++ {
		msg.Attempt = attempt
		err := h(ctx, msg)
		if err == nil {
			return
		}
		if attempt%b.cfg.MaxAttempts == 0 {
			log.Error("Handler keeps failing; partition blocked", "id", msg.ID, "key", msg.Key, "attempts", attempt, "error", err)
		} else {
			log.Warn("Handler failed, redelivering", "id", msg.ID, "key", msg.Key, "attempt", attempt, "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-b.ctx.Done():
			return
		case <-time.After(retryDelay(b.cfg.RetryDelay, b.cfg.MaxRetryDelay, attempt)):
		}
	}
}

func (b *memoryBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()
	b.cancel()
	b.wg.Wait()
	return nil
}
