package aiworker

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	temporalsdkclient "go.temporal.io/sdk/client"

	"github.com/yungbote/lessonforge-backend/internal/pkg/logger"
)

type TemporalConfig struct {
	TaskQueue string
	Workflow  string
}

// temporalJobs models each AI job as a workflow execution whose id is the job id.
type temporalJobs struct {
	log       *logger.Logger
	client    temporalsdkclient.Client
	taskQueue string
	workflow  string
}

type TemporalJobs interface {
	JobCreator
	JobCanceller
}

func NewTemporalJobs(log *logger.Logger, c temporalsdkclient.Client, cfg TemporalConfig) (TemporalJobs, error) {
	if c == nil {
		return nil, fmt.Errorf("temporal client required")
	}
	if strings.TrimSpace(cfg.TaskQueue) == "" || strings.TrimSpace(cfg.Workflow) == "" {
		return nil, fmt.Errorf("temporal task queue and workflow required")
	}
	return &temporalJobs{
		log:       log.With("client", "AIWorkerTemporal"),
		client:    c,
		taskQueue: cfg.TaskQueue,
		workflow:  cfg.Workflow,
	}, nil
}

func (t *temporalJobs) CreateJob(ctx context.Context, req JobRequest) (string, error) {
	jobID := uuid.NewString()
	run, err := t.client.ExecuteWorkflow(ctx, temporalsdkclient.StartWorkflowOptions{
		ID:                    jobID,
		TaskQueue:             t.taskQueue,
		WorkflowIDReusePolicy: enumspb.WORKFLOW_ID_REUSE_POLICY_REJECT_DUPLICATE,
	}, t.workflow, req)
	if err != nil {
		return "", fmt.Errorf("start %s workflow: %w", t.workflow, err)
	}
	t.log.Info("AI job workflow started", "job_id", jobID, "run_id", run.GetRunID(), "lesson_id", req.LessonID)
	return jobID, nil
}

// CancelJob requests cancellation of the job's workflow. A job that already
// finished is not an error.
func (t *temporalJobs) CancelJob(ctx context.Context, jobID string) error {
	err := t.client.CancelWorkflow(ctx, jobID, "")
	if err == nil {
		return nil
	}
	var notFound *serviceerror.NotFound
	if errors.As(err, &notFound) {
		t.log.Debug("Cancel for finished or unknown job ignored", "job_id", jobID)
		return nil
	}
	return fmt.Errorf("cancel workflow %s: %w", jobID, err)
}
