package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/fr0stylo/txcommit/internal/app/domain"
	"github.com/fr0stylo/txcommit/internal/app/ports"
)

// BatchSink accepts batched requests.
type BatchSink interface {
	Add(ctx context.Context, req domain.WriteRequest, done func(error)) error
}

// Intake admits write requests into the pipeline and routes them past request-in.
type Intake struct {
	queue    ports.Queue
	statuses ports.RequestStatusStore
	batches  BatchSink
	backoff  time.Duration
	log      *slog.Logger
}

// NewIntake constructs the request-in entry point.
func NewIntake(queue ports.Queue, statuses ports.RequestStatusStore, batches BatchSink, retryDelay time.Duration, log *slog.Logger) *Intake {
	if retryDelay <= 0 {
		retryDelay = time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	return &Intake{queue: queue, statuses: statuses, batches: batches, backoff: retryDelay, log: log}
}

// Accept validates req, records it as accepted and enqueues it on request-in.
// Accepting the same request id twice is a no-op.
func (i *Intake) Accept(ctx context.Context, req domain.WriteRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("%w: encode request %s: %v", domain.ErrMalformedCall, req.ID, err)
	}
	if err := i.statuses.RecordAccepted(ctx, req.ID); err != nil {
		return fmt.Errorf("record accepted %s: %w", req.ID, err)
	}
	if err := i.queue.Enqueue(ctx, domain.QueueRequestIn, req.ID, payload); err != nil {
		return fmt.Errorf("enqueue request %s: %w", req.ID, err)
	}
	i.log.InfoContext(withPipelineFields(ctx, req.ID, "", req.StreamKey), "request_accepted", "tx_type", req.PayloadType)
	return nil
}

// Route is the request-in handler. Batched requests stay leased until their
// batch is durably sealed; everything else moves to submit-ready.
func (i *Intake) Route(ctx context.Context, item ports.QueueItem) error {
	var req domain.WriteRequest
	if err := json.Unmarshal(item.Payload, &req); err != nil {
		return fmt.Errorf("%w: decode request %s: %v", domain.ErrMalformedCall, item.ID, err)
	}
	ctx = withPipelineFields(ctx, req.ID, "", req.StreamKey)

	if !req.Batched() {
		return i.queue.Enqueue(ctx, domain.QueueSubmitReady, req.ID, item.Payload)
	}

	settleCtx := context.WithoutCancel(ctx)
	err := i.batches.Add(ctx, req, func(sealErr error) {
		if sealErr != nil {
			if retryErr := i.queue.Retry(settleCtx, item, i.backoff, sealErr.Error()); retryErr != nil {
				i.log.WarnContext(settleCtx, "batched_request_retry_failed", "error", retryErr)
			}
			return
		}
		if ackErr := i.queue.Ack(settleCtx, item); ackErr != nil {
			i.log.WarnContext(settleCtx, "batched_request_ack_failed", "error", ackErr)
		}
	})
	if err != nil {
		return domain.Defer(err, i.backoff)
	}
	return ErrOwned
}

// QueueHandoff publishes sealed batches onto batch-sealed.
func QueueHandoff(queue ports.Queue) BatchHandoff {
	return func(ctx context.Context, batch domain.Batch) error {
		payload, err := json.Marshal(batch)
		if err != nil {
			return fmt.Errorf("encode batch %s: %w", batch.ID, err)
		}
		return queue.Enqueue(ctx, domain.QueueBatchSealed, batch.ID, payload)
	}
}
