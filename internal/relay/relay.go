// Package relay forwards step-notify events to the clients watching a lesson.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/yungbote/lessonforge-backend/internal/eventbus"
	"github.com/yungbote/lessonforge-backend/internal/pkg/logger"
)

// ConsumerGroup is the event bus group the relay reads step-notify with.
const ConsumerGroup = "notification-relay"

// Notification is one step-notify event. Raw is the payload exactly as it
// was published.
type Notification struct {
	LessonID int64
	Raw      json.RawMessage
}

type Sink interface {
	Deliver(ctx context.Context, n Notification) error
}

type Relay struct {
	log   *logger.Logger
	sinks []Sink
}

func NewRelay(log *logger.Logger, sinks ...Sink) *Relay {
	kept := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			kept = append(kept, s)
		}
	}
	return &Relay{log: log.With("component", "NotificationRelay"), sinks: kept}
}

// Handle is an eventbus.Handler. A sink error is returned so the bus
// redelivers; subscribers may then see the same notification twice.
func (r *Relay) Handle(ctx context.Context, msg eventbus.Message) error {
	var head struct {
		LessonID int64 `json:"lessonId"`
	}
	if err := json.Unmarshal(msg.Payload, &head); err != nil || head.LessonID <= 0 {
		r.log.Warn("Dropping malformed step notification", "id", msg.ID, "key", msg.Key, "error", err)
		return nil
	}
	n := Notification{LessonID: head.LessonID, Raw: json.RawMessage(msg.Payload)}

	var errs []error
	for _, s := range r.sinks {
		if err := s.Deliver(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("relay lesson %d: %w", n.LessonID, err)
	}
	return nil
}
