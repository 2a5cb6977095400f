// Package aiworker creates and cancels jobs on the external AI pipeline.
package aiworker

import (
	"context"
	"errors"

	"github.com/yungbote/lessonforge-backend/internal/domain/lessons"
)

// ErrNoJobID is returned when the backend accepted the request but did not
// hand back an id.
var ErrNoJobID = errors.New("ai worker returned no job id")

type JobRequest struct {
	LessonID   int64              `json:"lessonId"`
	SourceType lessons.SourceType `json:"sourceType"`
	SourceURL  string             `json:"sourceUrl"`
	IsRestart  bool               `json:"isRestart,omitempty"`
}

type JobCreator interface {
	CreateJob(ctx context.Context, req JobRequest) (string, error)
}

// JobCanceller is implemented by backends that can stop a running job.
type JobCanceller interface {
	CancelJob(ctx context.Context, jobID string) error
}
