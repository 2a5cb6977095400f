package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/lessonforge-backend/internal/pkg/logger"
)

func TestJobStatusKey(t *testing.T) {
	if got := JobStatusKey("job-42"); got != "aiJobStatus:job-42" {
		t.Fatalf("JobStatusKey=%q", got)
	}
}

func TestJobStatusStoreMarkCancelled(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("set TEST_REDIS_ADDR to run redis tests")
	}
	rdb := goredis.NewClient(&goredis.Options{Addr: addr})
	t.Cleanup(func() { _ = rdb.Close() })

	ctx := context.Background()
	store := NewJobStatusStore(logger.Nop(), rdb)
	jobID := uuid.NewString()
	t.Cleanup(func() { _ = rdb.Del(ctx, JobStatusKey(jobID)).Err() })

	if ok, err := store.IsCancelled(ctx, jobID); err != nil || ok {
		t.Fatalf("IsCancelled before mark: ok=%v err=%v", ok, err)
	}
	if err := store.MarkCancelled(ctx, jobID, 0); err != nil {
		t.Fatalf("MarkCancelled: %v", err)
	}
	if ok, err := store.IsCancelled(ctx, jobID); err != nil || !ok {
		t.Fatalf("IsCancelled after mark: ok=%v err=%v", ok, err)
	}
	ttl, err := rdb.TTL(ctx, JobStatusKey(jobID)).Result()
	if err != nil {
		t.Fatalf("TTL: %v", err)
	}
	if ttl <= 29*time.Minute || ttl > 30*time.Minute {
		t.Fatalf("TTL=%s want about 30m", ttl)
	}
}
