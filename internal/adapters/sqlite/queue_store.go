package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fr0stylo/txcommit/internal/app/ports"
	"github.com/fr0stylo/txcommit/internal/db"
	"github.com/fr0stylo/txcommit/internal/db/queries"
)

// Enqueue inserts an item. An id already present in the queue, finished or not, is left untouched.
func (s *Store) Enqueue(ctx context.Context, queue, id string, payload []byte) error {
	ctx = db.WithQueue(ctx, queue)
	now := s.nowMs()
	_, err := s.database.EnqueueItem(ctx, queries.EnqueueItemParams{
		Queue:       queue,
		ItemID:      id,
		Payload:     payload,
		NotBeforeMs: now,
		CreatedAtMs: now,
		UpdatedAtMs: now,
	})
	if err != nil {
		return fmt.Errorf("enqueue %s/%s: %w", queue, id, err)
	}
	return nil
}

// Dequeue leases the oldest visible item, including items whose previous lease expired.
func (s *Store) Dequeue(ctx context.Context, queue string, lease time.Duration) (ports.QueueItem, bool, error) {
	ctx = db.WithQueue(ctx, queue)
	now := s.nowMs()
	row, err := s.database.ClaimQueueItem(ctx, queries.ClaimQueueItemParams{
		LeaseToken:   uuid.NewString(),
		LeaseUntilMs: now + lease.Milliseconds(),
		NowMs:        now,
		Queue:        queue,
	})
	if errors.Is(err, sql.ErrNoRows) {
		return ports.QueueItem{}, false, nil
	}
	if err != nil {
		return ports.QueueItem{}, false, fmt.Errorf("claim from %s: %w", queue, err)
	}
	return ports.QueueItem{
		Queue:     row.Queue,
		ID:        row.ItemID,
		Payload:   row.Payload,
		Attempt:   int(row.Attempt),
		NotBefore: fromMs(row.NotBeforeMs),
		Token:     row.LeaseToken,
	}, true, nil
}

func (s *Store) Ack(ctx context.Context, item ports.QueueItem) error {
	ctx = db.WithQueue(ctx, item.Queue)
	n, err := s.database.AckQueueItem(ctx, queries.AckQueueItemParams{
		UpdatedAtMs: s.nowMs(),
		Queue:       item.Queue,
		ItemID:      item.ID,
		LeaseToken:  item.Token,
	})
	return settled(item, "ack", n, err)
}

func (s *Store) Retry(ctx context.Context, item ports.QueueItem, delay time.Duration, reason string) error {
	ctx = db.WithQueue(ctx, item.Queue)
	now := s.nowMs()
	n, err := s.database.RetryQueueItem(ctx, queries.RetryQueueItemParams{
		NotBeforeMs: now + delay.Milliseconds(),
		LastError:   reason,
		UpdatedAtMs: now,
		Queue:       item.Queue,
		ItemID:      item.ID,
		LeaseToken:  item.Token,
	})
	return settled(item, "retry", n, err)
}

func (s *Store) Fail(ctx context.Context, item ports.QueueItem, reason string) error {
	ctx = db.WithQueue(ctx, item.Queue)
	n, err := s.database.FailQueueItem(ctx, queries.FailQueueItemParams{
		LastError:   reason,
		UpdatedAtMs: s.nowMs(),
		Queue:       item.Queue,
		ItemID:      item.ID,
		LeaseToken:  item.Token,
	})
	return settled(item, "fail", n, err)
}

// Depth counts items that are ready, delayed or leased.
func (s *Store) Depth(ctx context.Context, queue string) (int, error) {
	ctx = db.WithQueue(ctx, queue)
	n, err := s.database.CountPendingQueueItems(ctx, queue)
	if err != nil {
		return 0, fmt.Errorf("depth of %s: %w", queue, err)
	}
	return int(n), nil
}

// PurgeFinished deletes done and failed items last touched before olderThan ago.
// Purged ids can be enqueued again.
func (s *Store) PurgeFinished(ctx context.Context, olderThan time.Duration) (int64, error) {
	n, err := s.database.PurgeFinishedQueueItems(ctx, s.nowMs()-olderThan.Milliseconds())
	if err != nil {
		return 0, fmt.Errorf("purge finished queue items: %w", err)
	}
	return n, nil
}

// ItemState returns the stored status and attempt count of one item.
func (s *Store) ItemState(ctx context.Context, queue, id string) (string, int, error) {
	row, err := s.database.GetQueueItem(ctx, queries.GetQueueItemParams{Queue: queue, ItemID: id})
	if err != nil {
		return "", 0, notFound(err, "queue item "+queue+"/"+id)
	}
	return row.Status, int(row.Attempt), nil
}

func settled(item ports.QueueItem, op string, rows int64, err error) error {
	if err != nil {
		return fmt.Errorf("%s %s/%s: %w", op, item.Queue, item.ID, err)
	}
	if rows == 0 {
		return fmt.Errorf("%s %s/%s: %w", op, item.Queue, item.ID, ErrLeaseLost)
	}
	return nil
}
