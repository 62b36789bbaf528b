package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"github.com/fr0stylo/txcommit/internal/app/ports"
)

const (
	headerAttempt = "x-txcommit-attempt"
	headerError   = "x-txcommit-error"
	retrySuffix   = ".retry."
	failedSuffix  = ".failed"
)

// retryTiers are the fixed delays of the per-queue retry queues. Every
// message in one tier queue carries the same TTL, so expiry order matches
// arrival order and a long delay never holds back a shorter one.
var retryTiers = []time.Duration{
	time.Second,
	5 * time.Second,
	30 * time.Second,
	2 * time.Minute,
	10 * time.Minute,
	time.Hour,
}

// retryTier rounds delay up to the nearest tier. Delays past the last tier
// are capped at it.
func retryTier(delay time.Duration) time.Duration {
	for _, tier := range retryTiers {
		if delay <= tier {
			return tier
		}
	}
	return retryTiers[len(retryTiers)-1]
}

func retryQueue(name string, tier time.Duration) string {
	return name + retrySuffix + strconv.FormatInt(tier.Milliseconds(), 10)
}

// channel is the subset of *amqp091.Channel the queue uses.
type channel interface {
	Get(queue string, autoAck bool) (amqp091.Delivery, bool, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Ack(tag uint64, multiple bool) error
	Nack(tag uint64, multiple bool, requeue bool) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp091.Table) (amqp091.Queue, error)
	QueueDeclarePassive(name string, durable, autoDelete, exclusive, noWait bool, args amqp091.Table) (amqp091.Queue, error)
	Close() error
}

// Queue runs the stage queues on a RabbitMQ broker. Each stage queue has one
// retry queue per delay tier whose expired messages dead-letter back into it,
// and a failed queue that parks messages for inspection.
//
// Unacknowledged messages stay leased until the channel closes, so the lease
// duration passed to Dequeue is not enforced by the broker.
type Queue struct {
	mu        sync.Mutex
	conn      *amqp091.Connection
	ch        channel
	queues    map[string]struct{}
	closeOnce sync.Once
}

// Dial connects to url and declares the topology for queues.
func Dial(url string, queues []string) (*Queue, error) {
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("rabbitmq url is required")
	}
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open rabbitmq channel: %w", err)
	}
	q, err := newQueue(ch, queues)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}
	q.conn = conn
	return q, nil
}

func newQueue(ch channel, queues []string) (*Queue, error) {
	q := &Queue{ch: ch, queues: make(map[string]struct{}, len(queues))}
	for _, name := range queues {
		if err := q.declare(name); err != nil {
			return nil, err
		}
		q.queues[name] = struct{}{}
	}
	return q, nil
}

func (q *Queue) declare(name string) error {
	if _, err := q.ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", name, err)
	}
	for _, tier := range retryTiers {
		retryArgs := amqp091.Table{
			"x-message-ttl":             tier.Milliseconds(),
			"x-dead-letter-exchange":    "",
			"x-dead-letter-routing-key": name,
		}
		if _, err := q.ch.QueueDeclare(retryQueue(name, tier), true, false, false, false, retryArgs); err != nil {
			return fmt.Errorf("declare queue %s: %w", retryQueue(name, tier), err)
		}
	}
	if _, err := q.ch.QueueDeclare(name+failedSuffix, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", name+failedSuffix, err)
	}
	return nil
}

// Enqueue publishes a persistent message. The broker does not deduplicate
// ids, so consumers must tolerate repeats.
func (q *Queue) Enqueue(ctx context.Context, queue, id string, payload []byte) error {
	if err := q.known(queue); err != nil {
		return err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.publish(ctx, queue, id, payload, 0, nil)
}

func (q *Queue) Dequeue(_ context.Context, queue string, _ time.Duration) (ports.QueueItem, bool, error) {
	if err := q.known(queue); err != nil {
		return ports.QueueItem{}, false, err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	d, ok, err := q.ch.Get(queue, false)
	if err != nil {
		return ports.QueueItem{}, false, fmt.Errorf("get from %s: %w", queue, err)
	}
	if !ok {
		return ports.QueueItem{}, false, nil
	}
	return ports.QueueItem{
		Queue:     queue,
		ID:        d.MessageId,
		Payload:   d.Body,
		Attempt:   attemptOf(d.Headers),
		NotBefore: d.Timestamp,
		Token:     strconv.FormatUint(d.DeliveryTag, 10),
	}, true, nil
}

func (q *Queue) Ack(_ context.Context, item ports.QueueItem) error {
	tag, err := parseTag(item)
	if err != nil {
		return err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.ch.Ack(tag, false); err != nil {
		return fmt.Errorf("ack %s/%s: %w", item.Queue, item.ID, err)
	}
	return nil
}

// Retry republishes the message to the retry tier covering delay and
// acknowledges the original. A positive delay is rounded up to its tier.
func (q *Queue) Retry(ctx context.Context, item ports.QueueItem, delay time.Duration, reason string) error {
	tag, err := parseTag(item)
	if err != nil {
		return err
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	target := item.Queue
	if delay > 0 {
		target = retryQueue(item.Queue, retryTier(delay))
	}
	headers := amqp091.Table{headerError: reason}
	if err := q.publish(ctx, target, item.ID, item.Payload, item.Attempt+1, headers); err != nil {
		_ = q.ch.Nack(tag, false, true)
		return err
	}
	if err := q.ch.Ack(tag, false); err != nil {
		return fmt.Errorf("ack retried %s/%s: %w", item.Queue, item.ID, err)
	}
	return nil
}

// Fail moves the message to the failed queue.
func (q *Queue) Fail(ctx context.Context, item ports.QueueItem, reason string) error {
	tag, err := parseTag(item)
	if err != nil {
		return err
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	headers := amqp091.Table{headerError: reason}
	if err := q.publish(ctx, item.Queue+failedSuffix, item.ID, item.Payload, item.Attempt, headers); err != nil {
		_ = q.ch.Nack(tag, false, true)
		return err
	}
	if err := q.ch.Ack(tag, false); err != nil {
		return fmt.Errorf("ack failed %s/%s: %w", item.Queue, item.ID, err)
	}
	return nil
}

// Depth counts ready messages plus messages waiting out any retry tier.
func (q *Queue) Depth(_ context.Context, queue string) (int, error) {
	if err := q.known(queue); err != nil {
		return 0, err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	total := 0
	names := []string{queue}
	for _, tier := range retryTiers {
		names = append(names, retryQueue(queue, tier))
	}
	for _, name := range names {
		state, err := q.ch.QueueDeclarePassive(name, true, false, false, false, nil)
		if err != nil {
			return 0, fmt.Errorf("inspect queue %s: %w", name, err)
		}
		total += state.Messages
	}
	return total, nil
}

// Close closes the channel and the connection.
func (q *Queue) Close() error {
	var errs []error
	q.closeOnce.Do(func() {
		if err := q.ch.Close(); err != nil && !errors.Is(err, amqp091.ErrClosed) {
			errs = append(errs, err)
		}
		if q.conn != nil {
			if err := q.conn.Close(); err != nil && !errors.Is(err, amqp091.ErrClosed) {
				errs = append(errs, err)
			}
		}
	})
	return errors.Join(errs...)
}

func (q *Queue) publish(ctx context.Context, key, id string, payload []byte, attempt int, headers amqp091.Table) error {
	if headers == nil {
		headers = amqp091.Table{}
	}
	headers[headerAttempt] = int64(attempt)
	err := q.ch.PublishWithContext(ctx, "", key, false, false, amqp091.Publishing{
		Headers:      headers,
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		MessageId:    id,
		Timestamp:    time.Now().UTC(),
		Body:         payload,
	})
	if err != nil {
		return fmt.Errorf("publish %s/%s: %w", key, id, err)
	}
	return nil
}

func (q *Queue) known(queue string) error {
	if _, ok := q.queues[queue]; !ok {
		return fmt.Errorf("unknown queue %q", queue)
	}
	return nil
}

func parseTag(item ports.QueueItem) (uint64, error) {
	tag, err := strconv.ParseUint(item.Token, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid delivery tag %q for %s/%s", item.Token, item.Queue, item.ID)
	}
	return tag, nil
}

func attemptOf(headers amqp091.Table) int {
	switch v := headers[headerAttempt].(type) {
	case int64:
		return int(v)
	case int32:
		return int(v)
	case int:
		return v
	case int16:
		return int(v)
	case string:
		n, _ := strconv.Atoi(v)
		return n
	default:
		return 0
	}
}

var _ ports.Queue = (*Queue)(nil)
