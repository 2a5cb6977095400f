package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/yungbote/lessonforge-backend/internal/eventbus"
	"github.com/yungbote/lessonforge-backend/internal/pkg/ctxutil"
)

// flushOutbox publishes everything a committed transaction queued. It keeps
// going after a failure so one bad publish does not hide the others.
func flushOutbox(ctx context.Context, pub eventbus.Publisher, ob *ctxutil.Outbox) error {
	if ob == nil {
		return nil
	}
	ctx = ctxutil.Detached(ctx)
	var errs []error
	for _, env := range ob.Drain() {
		if err := pub.Publish(ctx, env.Topic, env.Key, env.Payload); err != nil {
			errs = append(errs, fmt.Errorf("publish %s key=%s: %w", env.Topic, env.Key, err))
		}
	}
	return errors.Join(errs...)
}
