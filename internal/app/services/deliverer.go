package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/fr0stylo/txcommit/internal/app/domain"
	"github.com/fr0stylo/txcommit/internal/app/ports"
	"github.com/fr0stylo/txcommit/internal/observability"
)

// DelivererConfig bounds callback retries.
type DelivererConfig struct {
	MaxAttempts int
	BackoffBase time.Duration
	BackoffMax  time.Duration
	Clock       clock.Clock
}

// Deliverer performs one callback attempt per leased delivery item.
type Deliverer struct {
	sender        ports.CallbackSender
	registrations ports.RegistrationStore
	deliveries    ports.DeliveryLog
	cfg           DelivererConfig
	metrics       *observability.PipelineMetrics
	log           *slog.Logger
}

// NewDeliverer constructs a deliverer.
func NewDeliverer(sender ports.CallbackSender, registrations ports.RegistrationStore, deliveries ports.DeliveryLog, cfg DelivererConfig, metrics *observability.PipelineMetrics, log *slog.Logger) *Deliverer {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = time.Second
	}
	if cfg.BackoffMax < cfg.BackoffBase {
		cfg.BackoffMax = time.Minute
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Deliverer{sender: sender, registrations: registrations, deliveries: deliveries, cfg: cfg, metrics: metrics, log: log}
}

// HandleDelivery is the callback-delivery handler.
func (d *Deliverer) HandleDelivery(ctx context.Context, item ports.QueueItem) error {
	var attempt domain.DeliveryAttempt
	if err := json.Unmarshal(item.Payload, &attempt); err != nil {
		return fmt.Errorf("%w: decode delivery %s: %v", domain.ErrMalformedEvent, item.ID, err)
	}
	return d.Deliver(ctx, item.ID, attempt, item.Attempt+1)
}

// Deliver posts the outcome once. It returns nil on success or when the
// registration is gone, a deferral while attempts remain, and a terminal
// error once attemptNumber reaches the configured maximum.
func (d *Deliverer) Deliver(ctx context.Context, deliveryID string, attempt domain.DeliveryAttempt, attemptNumber int) error {
	common := attempt.Outcome.Common()
	ctx = withPipelineFields(ctx, common.ReferenceID, common.TxHash, "")
	log := d.log.With("delivery_id", deliveryID, "url", attempt.RegistrationURL, "attempt", attemptNumber)

	reg, err := d.registrations.GetRegistration(ctx, attempt.RegistrationID)
	if errors.Is(err, domain.ErrNotFound) {
		log.InfoContext(ctx, "delivery_registration_removed")
		return nil
	}
	if err != nil {
		return domain.Defer(fmt.Errorf("%w: load registration: %v", domain.ErrStorageUnavailable, err), d.backoff(attemptNumber-1))
	}

	status, sendErr := d.sender.Send(ctx, reg, deliveryID, attempt.Outcome)
	record := domain.DeliveryRecord{
		DeliveryID:      deliveryID,
		RegistrationURL: reg.URL,
		ReferenceID:     common.ReferenceID,
		TxHash:          common.TxHash,
		Attempt:         attemptNumber,
		StatusCode:      status,
		RecordedAt:      d.cfg.Clock.Now().UTC(),
	}

	if sendErr == nil {
		record.State = domain.DeliveryDelivered
		d.record(ctx, log, record)
		d.metrics.Delivery(ctx, "delivered")
		log.InfoContext(ctx, "delivery_succeeded", "status_code", status)
		return nil
	}

	record.Error = sendErr.Error()
	if attemptNumber >= d.cfg.MaxAttempts {
		record.State = domain.DeliveryFailed
		d.record(ctx, log, record)
		d.metrics.Delivery(ctx, "failed")
		log.ErrorContext(ctx, "delivery_permanently_failed", "status_code", status, "error", sendErr)
		return fmt.Errorf("%w: %s gave up after %d attempts: %v", domain.ErrRetriesExhausted, reg.URL, attemptNumber, sendErr)
	}

	record.State = domain.DeliveryRetrying
	delay := d.backoff(attemptNumber - 1)
	record.Error = fmt.Sprintf("%s (next attempt at %s)", sendErr, d.cfg.Clock.Now().Add(delay).UTC().Format(time.RFC3339))
	d.record(ctx, log, record)
	d.metrics.Delivery(ctx, "retry")
	log.WarnContext(ctx, "delivery_failed", "status_code", status, "delay", delay.String(), "error", sendErr)
	return domain.Defer(sendErr, delay)
}

func (d *Deliverer) record(ctx context.Context, log *slog.Logger, record domain.DeliveryRecord) {
	if d.deliveries == nil {
		return
	}
	if err := d.deliveries.RecordDelivery(ctx, record); err != nil {
		log.WarnContext(ctx, "delivery_log_write_failed", "error", err)
	}
}

func (d *Deliverer) backoff(attempt int) time.Duration {
	return BackoffDelay(d.cfg.BackoffBase, d.cfg.BackoffMax, attempt)
}
