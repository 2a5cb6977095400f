// Package consumers runs the event bus handlers of this service.
package consumers

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/lessonforge-backend/internal/eventbus"
	"github.com/yungbote/lessonforge-backend/internal/pkg/logger"
)

var tracer = otel.Tracer("github.com/yungbote/lessonforge-backend/internal/consumers")

type registration struct {
	topic   string
	group   string
	handler eventbus.Handler
}

type Runner struct {
	log  *logger.Logger
	sub  eventbus.Subscriber
	regs []registration
}

func NewRunner(baseLog *logger.Logger, sub eventbus.Subscriber) *Runner {
	return &Runner{
		log: baseLog.With("component", "ConsumerRunner"),
		sub: sub,
	}
}

// Register adds a handler. Call before Start.
func (r *Runner) Register(topic, group string, h eventbus.Handler) {
	r.regs = append(r.regs, registration{topic: topic, group: group, handler: h})
}

// Start subscribes every registered handler. Consumers run until ctx ends
// or the bus is closed.
func (r *Runner) Start(ctx context.Context) error {
	for _, reg := range r.regs {
		if err := r.sub.Subscribe(ctx, reg.topic, reg.group, r.wrap(reg)); err != nil {
			return fmt.Errorf("subscribe %s/%s: %w", reg.topic, reg.group, err)
		}
		r.log.Info("Consumer started", "topic", reg.topic, "group", reg.group)
	}
	return nil
}

// wrap adds a span per message and turns handler panics into errors so the
// message is redelivered instead of killing the partition consumer.
func (r *Runner) wrap(reg registration) eventbus.Handler {
	log := r.log.With("topic", reg.topic, "group", reg.group)
	return func(ctx context.Context, msg eventbus.Message) (err error) {
		ctx, span := tracer.Start(ctx, "eventbus.consume "+reg.topic,
			trace.WithSpanKind(trace.SpanKindConsumer),
			trace.WithAttributes(
				attribute.String("messaging.consumer.group.name", reg.group),
				attribute.String("messaging.message.id", msg.ID),
				attribute.String("messaging.key", msg.Key),
				attribute.Int("messaging.partition", msg.Partition),
				attribute.Int("messaging.attempt", msg.Attempt),
			),
		)
		defer func() {
			if rec := recover(); rec != nil {
				log.Error("Consumer handler panic", "id", msg.ID, "key", msg.Key, "panic", rec)
				err = &panicError{Val: rec}
			}
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}
			span.End()
		}()
		return reg.handler(ctx, msg)
	}
}

type panicError struct{ Val any }

func (e *panicError) Error() string { return fmt.Sprintf("panic: %v", e.Val) }
