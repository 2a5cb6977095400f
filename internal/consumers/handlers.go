package consumers

import (
	"context"
	"encoding/json"

	"github.com/yungbote/lessonforge-backend/internal/domain/events"
	"github.com/yungbote/lessonforge-backend/internal/eventbus"
	"github.com/yungbote/lessonforge-backend/internal/pkg/logger"
	"github.com/yungbote/lessonforge-backend/internal/relay"
	"github.com/yungbote/lessonforge-backend/internal/services"
)

// ProgressGroup consumes processing-step-updated from the AI worker.
const ProgressGroup = "lesson-progress"

// ProgressHandler feeds worker events into the lesson state machine. Payloads
// that cannot be decoded are acked; anything the state machine returns is
// retried.
func ProgressHandler(log *logger.Logger, svc services.LessonProgressService) eventbus.Handler {
	log = log.With("handler", "ProcessingStepUpdated")
	return func(ctx context.Context, msg eventbus.Message) error {
		var ev events.ProcessingStepUpdated
		if err := json.Unmarshal(msg.Payload, &ev); err != nil {
			log.Warn("Dropping malformed processing event", "id", msg.ID, "key", msg.Key, "error", err)
			return nil
		}
		if err := svc.Apply(ctx, ev); err != nil {
			log.Warn("Processing event failed", "id", msg.ID, "job_id", ev.AIJobID, "attempt", msg.Attempt, "error", err)
			return err
		}
		return nil
	}
}

// RegisterAll wires the service's consumers onto r.
func RegisterAll(r *Runner, log *logger.Logger, progress services.LessonProgressService, rel *relay.Relay) {
	if progress != nil {
		r.Register(events.TopicProcessingStepUpdated, ProgressGroup, ProgressHandler(log, progress))
	}
	if rel != nil {
		r.Register(events.TopicProcessingStepNotify, relay.ConsumerGroup, rel.Handle)
	}
}
