package ports

import (
	"context"
	"time"
)

// QueueItem is one leased item from a durable stage queue.
type QueueItem struct {
	Queue     string
	ID        string
	Payload   []byte
	Attempt   int
	NotBefore time.Time
	Token     string
}

// Queue is a durable at-least-once channel between pipeline stages.
type Queue interface {
	// Enqueue adds an item. Enqueueing an id already present in the queue is a no-op.
	Enqueue(ctx context.Context, queue, id string, payload []byte) error
	// Dequeue leases the oldest eligible item. ok is false when none is ready.
	Dequeue(ctx context.Context, queue string, lease time.Duration) (item QueueItem, ok bool, err error)
	Ack(ctx context.Context, item QueueItem) error
	// Retry releases the lease, bumps the attempt count and hides the item for delay.
	Retry(ctx context.Context, item QueueItem, delay time.Duration, reason string) error
	// Fail parks the item permanently.
	Fail(ctx context.Context, item QueueItem, reason string) error
	Depth(ctx context.Context, queue string) (int, error)
}
