package eventbus

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/lessonforge-backend/internal/pkg/logger"
)

type RedisStreamsConfig struct {
	Partitions int
	// MaxLen caps each partition stream (approximate trimming). Zero disables trimming.
	MaxLen    int64
	BatchSize int64
	Block     time.Duration
	// Consumer identifies this process within every group. It must be stable
	// across restarts so the process picks its own pending entries back up.
	Consumer string
	// MaxAttempts is the failure count after which a stuck entry is logged
	// as an error. The entry stays at the head of its partition and is
	// retried until acked.
	MaxAttempts   int
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration
	// ClaimIdle is how long another consumer's pending entry must sit idle
	// before this process takes it over. Idle entries are swept every
	// ClaimIdle/2 while consuming.
	ClaimIdle time.Duration
}

type redisStreamsBus struct {
	log *logger.Logger
	rdb goredis.UniversalClient
	cfg RedisStreamsConfig

	ctx    context.Context
	cancel context.CancelFunc
	group  *errgroup.Group

	mu     sync.Mutex
	closed bool
}

func NewRedisStreamsBus(log *logger.Logger, rdb goredis.UniversalClient, cfg RedisStreamsConfig) (Bus, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if rdb == nil {
		return nil, fmt.Errorf("redis client required")
	}
	if cfg.Partitions <= 0 {
		cfg.Partitions = DefaultPartitions
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 16
	}
	if cfg.Block <= 0 {
		cfg.Block = 5 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 500 * time.Millisecond
	}
	if cfg.MaxRetryDelay < cfg.RetryDelay {
		cfg.MaxRetryDelay = max(30*time.Second, cfg.RetryDelay)
	}
	if cfg.ClaimIdle <= 0 {
		cfg.ClaimIdle = 5 * time.Minute
	}
	if strings.TrimSpace(cfg.Consumer) == "" {
		host, _ := os.Hostname()
		if host == "" {
			host = "lessonforge"
		}
		cfg.Consumer = host
	}

	ctx, cancel := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(ctx)
	return &redisStreamsBus{
		log:    log.With("service", "RedisStreamsBus"),
		rdb:    rdb,
		cfg:    cfg,
		ctx:    gctx,
		cancel: cancel,
		group:  g,
	}, nil
}

func (b *redisStreamsBus) Publish(ctx context.Context, topic, key string, v any) error {
	payload, err := encode(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", topic, err)
	}
	stream := StreamName(topic, PartitionFor(key, b.cfg.Partitions))
	args := &goredis.XAddArgs{
		Stream: stream,
		Values: map[string]any{"key": key, "payload": string(payload)},
	}
	if b.cfg.MaxLen > 0 {
		args.MaxLen = b.cfg.MaxLen
		args.Approx = true
	}
	if err := b.rdb.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("xadd %s: %w", stream, err)
	}
	return nil
}

func (b *redisStreamsBus) Subscribe(ctx context.Context, topic, group string, h Handler) error {
	if h == nil {
		return fmt.Errorf("handler required")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return fmt.Errorf("event bus closed")
	}

	for p := 0; p < b.cfg.Partitions; p++ {
		stream := StreamName(topic, p)
		if err := b.rdb.XGroupCreateMkStream(ctx, stream, group, "0").Err(); err != nil && !isBusyGroup(err) {
			return fmt.Errorf("create group %s on %s: %w", group, stream, err)
		}
	}

	for p := 0; p < b.cfg.Partitions; p++ {
		pc := &partitionConsumer{
			bus:       b,
			log:       b.log.With("topic", topic, "group", group, "partition", p),
			topic:     topic,
			group:     group,
			partition: p,
			stream:    StreamName(topic, p),
			consumer:  fmt.Sprintf("%s-p%d", b.cfg.Consumer, p),
			handler:   h,
		}
		b.group.Go(func() error {
			runCtx, cancel := mergeDone(ctx, b.ctx)
			defer cancel()
			pc.run(runCtx)
			return nil
		})
	}
	b.log.Info("Subscribed", "topic", topic, "group", group, "partitions", b.cfg.Partitions)
	return nil
}

func (b *redisStreamsBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()
	b.cancel()
	return b.group.Wait()
}

type partitionConsumer struct {
	bus       *redisStreamsBus
	log       *logger.Logger
	topic     string
	group     string
	partition int
	stream    string
	consumer  string
	handler   Handler
}

// run first drains entries this consumer read but never acked (including
// entries claimed from idle consumers), then follows new entries. The
// claim and pending pass repeats every ClaimIdle/2 so entries left by a
// crashed consumer, or whose XACK failed, are picked up without a restart.
func (c *partitionConsumer) run(ctx context.Context) {
	sweepEvery := c.bus.cfg.ClaimIdle / 2
	var lastSweep time.Time
	cursor := ">"
	for ctx.Err() == nil {
		if cursor == ">" && time.Since(lastSweep) >= sweepEvery {
			c.claimIdle(ctx)
			lastSweep = time.Now()
			cursor = "0"
		}
		pending := cursor != ">"
		args := &goredis.XReadGroupArgs{
			Group:    c.group,
			Consumer: c.consumer,
			Streams:  []string{c.stream, cursor},
			Count:    c.bus.cfg.BatchSize,
			Block:    c.bus.cfg.Block,
		}
		if pending {
			args.Block = -1
		}
		res, err := c.bus.rdb.XReadGroup(ctx, args).Result()
		if err != nil {
			if errors.Is(err, goredis.Nil) {
				if pending {
					cursor = ">"
				}
				continue
			}
			if ctx.Err() != nil {
				return
			}
			c.log.Warn("XREADGROUP failed", "error", err)
			sleepCtx(ctx, time.Second)
			continue
		}

		var entries []goredis.XMessage
		for _, s := range res {
			entries = append(entries, s.Messages...)
		}
		if pending && len(entries) == 0 {
			cursor = ">"
			continue
		}
		for _, entry := range entries {
			if !c.handle(ctx, entry) {
				return
			}
			if pending {
				cursor = entry.ID
			}
		}
	}
}

func (c *partitionConsumer) claimIdle(ctx context.Context) {
	start := "0-0"
	for ctx.Err() == nil {
		claimed, next, err := c.bus.rdb.XAutoClaim(ctx, &goredis.XAutoClaimArgs{
			Stream:   c.stream,
			Group:    c.group,
			Consumer: c.consumer,
			MinIdle:  c.bus.cfg.ClaimIdle,
			Start:    start,
			Count:    c.bus.cfg.BatchSize,
		}).Result()
		if err != nil {
			if !errors.Is(err, goredis.Nil) && ctx.Err() == nil {
				c.log.Warn("XAUTOCLAIM failed", "error", err)
			}
			return
		}
		if len(claimed) > 0 {
			c.log.Info("Claimed idle entries", "count", len(claimed))
		}
		if next == "" || next == "0-0" {
			return
		}
		start = next
	}
}

// handle delivers entry until the handler succeeds and reports false only
// when ctx ended first. The entry is never skipped: later entries of the
// partition wait behind it.
func (c *partitionConsumer) handle(ctx context.Context, entry goredis.XMessage) bool {
	msg := Message{
		Topic:     c.topic,
		Key:       stringValue(entry.Values["key"]),
		Partition: c.partition,
		ID:        entry.ID,
		Payload:   []byte(stringValue(entry.Values["payload"])),
	}
	cfg := c.bus.cfg
	for attempt := 1; ; attempt++ {
		if ctx.Err() != nil {
			return false
		}
		msg.Attempt = attempt
		err := c.handler(ctx, msg)
		if err == nil {
			if ackErr := c.bus.rdb.XAck(ctx, c.stream, c.group, entry.ID).Err(); ackErr != nil {
				c.log.Warn("XACK failed", "id", entry.ID, "error", ackErr)
			}
			return true
		}
		if ctx.Err() != nil {
			return false
		}
		if attempt%cfg.MaxAttempts == 0 {
			c.log.Error("Handler keeps failing; partition blocked", "id", entry.ID, "key", msg.Key, "attempts", attempt, "error", err)
		} else {
			c.log.Warn("Handler failed, retrying", "id", entry.ID, "key", msg.Key, "attempt", attempt, "error", err)
		}
		c.touch(ctx, entry.ID)
		sleepCtx(ctx, retryDelay(cfg.RetryDelay, cfg.MaxRetryDelay, attempt))
	}
}

// touch resets the entry's idle time so other consumers do not claim it
// while this one is still retrying.
func (c *partitionConsumer) touch(ctx context.Context, id string) {
	err := c.bus.rdb.XClaimJustID(ctx, &goredis.XClaimArgs{
		Stream:   c.stream,
		Group:    c.group,
		Consumer: c.consumer,
		Messages: []string{id},
	}).Err()
	if err != nil && !errors.Is(err, goredis.Nil) && ctx.Err() == nil {
		c.log.Warn("XCLAIM failed", "id", id, "error", err)
	}
}

func isBusyGroup(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), "BUSYGROUP")
}

func stringValue(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	case nil:
		return ""
	}
	return fmt.Sprint(v)
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// mergeDone returns a context that ends when either parent ends.
func mergeDone(a, b context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(a)
	stop := context.AfterFunc(b, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
