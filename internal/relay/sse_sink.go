package relay

import (
	"context"

	"github.com/yungbote/lessonforge-backend/internal/realtime"
	"github.com/yungbote/lessonforge-backend/internal/realtime/bus"
)

func sseMessage(n Notification) realtime.SSEMessage {
	return realtime.SSEMessage{
		Channel: realtime.LessonProcessingChannel(n.LessonID),
		Event:   realtime.SSEEventLessonProcessingStep,
		Data:    n.Raw,
	}
}

// HubSink broadcasts to the clients connected to this process.
type HubSink struct{ Hub *realtime.SSEHub }

func (s *HubSink) Deliver(_ context.Context, n Notification) error {
	s.Hub.Broadcast(sseMessage(n))
	return nil
}

// BusSink fans out through the realtime bus so every replica's hub gets the
// message.
type BusSink struct{ Bus bus.Bus }

func (s *BusSink) Deliver(ctx context.Context, n Notification) error {
	return s.Bus.Publish(ctx, sseMessage(n))
}
