package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/lessonforge-backend/internal/pkg/logger"
)

const (
	jobStatusKeyPrefix = "aiJobStatus:"
	JobStatusCancelled = "CANCELLED"

	DefaultCancelMarkerTTL = 30 * time.Minute
)

// JobStatusStore holds advisory per-job markers the AI worker polls to stop
// early. Markers expire on their own.
type JobStatusStore interface {
	MarkCancelled(ctx context.Context, jobID string, ttl time.Duration) error
	IsCancelled(ctx context.Context, jobID string) (bool, error)
}

type jobStatusStore struct {
	log *logger.Logger
	rdb goredis.Cmdable
}

func NewJobStatusStore(log *logger.Logger, rdb goredis.Cmdable) JobStatusStore {
	return &jobStatusStore{
		log: log.With("client", "JobStatusStore"),
		rdb: rdb,
	}
}

func JobStatusKey(jobID string) string {
	return jobStatusKeyPrefix + jobID
}

func (s *jobStatusStore) MarkCancelled(ctx context.Context, jobID string, ttl time.Duration) error {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return fmt.Errorf("job id required")
	}
	if ttl <= 0 {
		ttl = DefaultCancelMarkerTTL
	}
	if err := s.rdb.Set(ctx, JobStatusKey(jobID), JobStatusCancelled, ttl).Err(); err != nil {
		return fmt.Errorf("set cancel marker for %s: %w", jobID, err)
	}
	s.log.Debug("Cancel marker written", "job_id", jobID, "ttl", ttl)
	return nil
}

func (s *jobStatusStore) IsCancelled(ctx context.Context, jobID string) (bool, error) {
	v, err := s.rdb.Get(ctx, JobStatusKey(jobID)).Result()
	if errors.Is(err, goredis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return v == JobStatusCancelled, nil
}
