// Package eventbus is the ordered-per-key, at-least-once log that connects the
// lesson service to the AI worker and the notification relay.
//
// Each topic is split into a fixed number of partitions. A key always maps to
// the same partition and every consumer group reads a partition with a single
// goroutine, so events sharing a key are handled in publish order.
package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"time"
)

type Message struct {
	Topic     string
	Key       string
	Partition int
	ID        string
	Payload   []byte
	// Attempt counts deliveries of this message to the current handler, from 1.
	Attempt int
}

// Decode unmarshals the JSON payload into v.
func (m Message) Decode(v any) error {
	return json.Unmarshal(m.Payload, v)
}

// Handler processes one message. Returning nil acknowledges it. An error
// redelivers the same message, with backoff, until it succeeds or the
// consumer stops; nothing behind it in the partition is handled meanwhile.
type Handler func(ctx context.Context, msg Message) error

type Publisher interface {
	Publish(ctx context.Context, topic, key string, v any) error
}

type Subscriber interface {
	// Subscribe starts consuming topic as group and returns once the
	// consumers are running. They stop when ctx ends or the bus closes.
	Subscribe(ctx context.Context, topic, group string, h Handler) error
}

type Bus interface {
	Publisher
	Subscriber
	Close() error
}

const DefaultPartitions = 8

// PartitionFor maps key onto one of n partitions.
func PartitionFor(key string, n int) int {
	if n <= 1 {
		return 0
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(n))
}

// retryDelay is base doubled per failed attempt, capped at max.
func retryDelay(base, max time.Duration, attempt int) time.Duration {
	d := base
	for i := 1; i < attempt && d < max; i++ {
		d *= 2
	}
	if d > max {
		d = max
	}
	return d
}

// StreamName is the storage name of one topic partition.
func StreamName(topic string, partition int) string {
	return fmt.Sprintf("%s:p%d", topic, partition)
}

func encode(v any) ([]byte, error) {
	switch p := v.(type) {
	case []byte:
		return p, nil
	case json.RawMessage:
		return p, nil
	}
	return json.Marshal(v)
}
