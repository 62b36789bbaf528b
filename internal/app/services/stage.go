package services

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/sethvargo/go-retry"

	"github.com/fr0stylo/txcommit/internal/app/domain"
	"github.com/fr0stylo/txcommit/internal/app/ports"
	"github.com/fr0stylo/txcommit/internal/observability"
)

// ErrOwned is returned by a stage handler that keeps the item leased and
// settles it itself later.
var ErrOwned = errors.New("queue item owned by handler")

// StageHandler processes one leased queue item.
type StageHandler func(ctx context.Context, item ports.QueueItem) error

// StageOptions tunes a StageWorker.
type StageOptions struct {
	Workers     int
	Lease       time.Duration
	Poll        time.Duration
	MaxAttempts int
	BackoffBase time.Duration
	BackoffMax  time.Duration
	Clock       clock.Clock
	Logger      *slog.Logger
}

// StageWorker pulls items from one durable queue and settles each according to
// its handler result.
type StageWorker struct {
	queue   ports.Queue
	name    string
	handler StageHandler
	opts    StageOptions
	log     *slog.Logger
}

// NewStageWorker constructs a worker for queue name.
func NewStageWorker(queue ports.Queue, name string, handler StageHandler, opts StageOptions) *StageWorker {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.Lease <= 0 {
		opts.Lease = 30 * time.Second
	}
	if opts.Poll <= 0 {
		opts.Poll = 250 * time.Millisecond
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 10
	}
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = 500 * time.Millisecond
	}
	if opts.BackoffMax < opts.BackoffBase {
		opts.BackoffMax = opts.BackoffBase * 64
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &StageWorker{
		queue:   queue,
		name:    name,
		handler: handler,
		opts:    opts,
		log:     log.With("stage", name),
	}
}

// Name is the queue this worker consumes.
func (w *StageWorker) Name() string {
	return w.name
}

// Run blocks until ctx is cancelled and every in-flight item has settled.
func (w *StageWorker) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < w.opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.loop(ctx)
		}()
	}
	wg.Wait()
}

func (w *StageWorker) loop(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		processed, err := w.ProcessNext(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.log.Warn("stage_dequeue_failed", "error", err)
		}
		if processed {
			continue
		}
		select {
		case <-ctx.Done():
			return
		case <-w.opts.Clock.After(w.opts.Poll):
		}
	}
}

// ProcessNext leases and settles at most one item. It reports whether an item was found.
func (w *StageWorker) ProcessNext(ctx context.Context) (bool, error) {
	item, ok, err := w.queue.Dequeue(ctx, w.name, w.opts.Lease)
	if err != nil || !ok {
		return false, err
	}

	// In-flight work finishes even when shutdown cancels the poll loop.
	hctx := context.WithoutCancel(ctx)
	err = w.handler(hctx, item)
	w.settle(hctx, item, err)
	return true, nil
}

func (w *StageWorker) settle(ctx context.Context, item ports.QueueItem, err error) {
	log := w.log.With("item_id", item.ID, "attempt", item.Attempt)

	var deferred *domain.DeferredError
	switch {
	case err == nil:
		if ackErr := w.queue.Ack(ctx, item); ackErr != nil {
			log.Warn("stage_ack_failed", "error", ackErr)
		}
		return
	case errors.Is(err, ErrOwned):
		return
	case errors.As(err, &deferred):
		w.retry(ctx, log, item, deferred.Delay, err)
		return
	}

	kind := domain.ClassifyError(err)
	if (kind == domain.ErrorRetryable || kind == domain.ErrorConflict) && item.Attempt+1 < w.opts.MaxAttempts {
		w.retry(ctx, log, item, BackoffDelay(w.opts.BackoffBase, w.opts.BackoffMax, item.Attempt), err)
		return
	}

	log.Error("stage_item_failed", "error_kind", kind, "error", err)
	if failErr := w.queue.Fail(ctx, item, err.Error()); failErr != nil {
		log.Warn("stage_fail_failed", "error", failErr)
	}
}

func (w *StageWorker) retry(ctx context.Context, log *slog.Logger, item ports.QueueItem, delay time.Duration, cause error) {
	log.Info("stage_item_requeued", "delay", delay.String(), "error", cause)
	if err := w.queue.Retry(ctx, item, delay, cause.Error()); err != nil {
		log.Warn("stage_retry_failed", "error", err)
	}
}

// BackoffDelay is the capped exponential delay before retry number attempt+1.
func BackoffDelay(base, max time.Duration, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}
	if max < base {
		max = base
	}
	b := retry.WithCappedDuration(max, retry.NewExponential(base))
	delay := base
	for i := 0; i <= attempt; i++ {
		next, stop := b.Next()
		if stop {
			break
		}
		delay = next
	}
	return delay
}

// withPipelineFields attaches item identity to ctx for logs and spans.
func withPipelineFields(ctx context.Context, referenceID, txHash, streamKey string) context.Context {
	return observability.WithPipelineFields(ctx, observability.PipelineFields{
		ReferenceID: referenceID,
		TxHash:      txHash,
		StreamKey:   streamKey,
	})
}
