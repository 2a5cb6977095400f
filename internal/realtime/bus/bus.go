package bus

import (
	"context"

	"github.com/yungbote/lessonforge-backend/internal/realtime"
)

// Bus carries SSE messages between replicas so every process can deliver to
// the clients connected to it.
type Bus interface {
	Publish(ctx context.Context, msg realtime.SSEMessage) error
	StartForwarder(ctx context.Context, onMsg func(m realtime.SSEMessage)) error
	Close() error
}
