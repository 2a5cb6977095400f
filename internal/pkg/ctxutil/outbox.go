package ctxutil

import (
	"context"
	"sync"
)

type outboxKey struct{}

// Envelope is one message waiting for a transaction to commit.
type Envelope struct {
	Topic   string
	Key     string
	Payload any
}

// Outbox collects messages produced inside a transaction so they are
// published only after it commits.
type Outbox struct {
	mu       sync.Mutex
	messages []Envelope
}

func WithOutbox(ctx context.Context) (context.Context, *Outbox) {
	if ob := GetOutbox(ctx); ob != nil {
		return ctx, ob
	}
	ob := &Outbox{messages: make([]Envelope, 0, 1)}
	return context.WithValue(Default(ctx), outboxKey{}, ob), ob
}

func GetOutbox(ctx context.Context) *Outbox {
	if ctx == nil {
		return nil
	}
	ob, ok := ctx.Value(outboxKey{}).(*Outbox)
	if !ok {
		return nil
	}
	return ob
}

func (o *Outbox) Append(topic, key string, payload any) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.messages = append(o.messages, Envelope{Topic: topic, Key: key, Payload: payload})
}

// Drain returns the collected messages and empties the outbox.
func (o *Outbox) Drain() []Envelope {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := o.messages
	o.messages = make([]Envelope, 0, 1)
	return out
}

// Discard drops everything collected, for rolled-back transactions.
func (o *Outbox) Discard() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.messages = o.messages[:0]
}
