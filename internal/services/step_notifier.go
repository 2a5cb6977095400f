package services

import (
	"context"
	"strconv"

	"github.com/yungbote/lessonforge-backend/internal/domain/events"
	"github.com/yungbote/lessonforge-backend/internal/eventbus"
	"github.com/yungbote/lessonforge-backend/internal/pkg/ctxutil"
)

// StepNotifier emits step-notify events keyed by lesson id. Inside a
// transaction (an outbox on ctx) the event is queued until Flush.
type StepNotifier interface {
	Notify(ctx context.Context, n events.StepNotify) error
	Flush(ctx context.Context, ob *ctxutil.Outbox) error
}

type stepNotifier struct {
	pub eventbus.Publisher
}

func NewStepNotifier(pub eventbus.Publisher) StepNotifier {
	return &stepNotifier{pub: pub}
}

func (n *stepNotifier) Notify(ctx context.Context, msg events.StepNotify) error {
	key := strconv.FormatInt(msg.LessonID, 10)
	if ob := ctxutil.GetOutbox(ctx); ob != nil {
		ob.Append(events.TopicProcessingStepNotify, key, msg)
		return nil
	}
	return n.pub.Publish(ctx, events.TopicProcessingStepNotify, key, msg)
}

func (n *stepNotifier) Flush(ctx context.Context, ob *ctxutil.Outbox) error {
	return flushOutbox(ctx, n.pub, ob)
}
