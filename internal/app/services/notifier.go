package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/fr0stylo/txcommit/internal/app/domain"
	"github.com/fr0stylo/txcommit/internal/app/ports"
)

// Notifier records terminal outcomes and fans them out to registered callbacks.
type Notifier struct {
	queue         ports.Queue
	statuses      ports.RequestStatusStore
	registrations ports.RegistrationStore
	sinks         []ports.OutcomeSink
	log           *slog.Logger
}

// NewNotifier constructs a notifier. sinks receive a copy of every outcome that is published.
func NewNotifier(queue ports.Queue, statuses ports.RequestStatusStore, registrations ports.RegistrationStore, sinks []ports.OutcomeSink, log *slog.Logger) *Notifier {
	if log == nil {
		log = slog.Default()
	}
	return &Notifier{queue: queue, statuses: statuses, registrations: registrations, sinks: sinks, log: log}
}

// HandleOutcome is the notify-ready handler.
func (n *Notifier) HandleOutcome(ctx context.Context, item ports.QueueItem) error {
	var outcome domain.TxOutcome
	if err := json.Unmarshal(item.Payload, &outcome); err != nil {
		return fmt.Errorf("%w: decode outcome %s: %v", domain.ErrMalformedEvent, item.ID, err)
	}
	return n.Publish(ctx, outcome)
}

// Publish makes outcome the terminal state of its request and enqueues one
// callback delivery per matching registration. An outcome for a request that
// already reached a terminal state through another outcome is dropped.
func (n *Notifier) Publish(ctx context.Context, outcome domain.TxOutcome) error {
	common := outcome.Common()
	ctx = withPipelineFields(ctx, common.ReferenceID, common.TxHash, "")
	state := domain.StateForOutcome(outcome.Status())

	stored, err := n.statuses.Transition(ctx, common.ReferenceID, state, common.TxHash, outcome.Reason())
	if err != nil {
		return fmt.Errorf("%w: record outcome status: %v", domain.ErrStorageUnavailable, err)
	}
	if !stored.Changed && !sameOutcome(stored, outcome, state) {
		n.log.WarnContext(ctx, "stale_outcome_dropped",
			"status", outcome.Status(),
			"stored_state", stored.State,
			"stored_tx_hash", stored.TxHash,
		)
		return nil
	}
	for _, ref := range outcome.ReferenceIDs()[1:] {
		if _, err := n.statuses.Transition(ctx, ref, state, common.TxHash, outcome.Reason()); err != nil {
			return fmt.Errorf("%w: record item status %s: %v", domain.ErrStorageUnavailable, ref, err)
		}
	}

	registrations, err := n.registrations.ListRegistrations(ctx, outcome.EventType())
	if err != nil {
		return fmt.Errorf("%w: list registrations: %v", domain.ErrStorageUnavailable, err)
	}
	fanout := 0
	for _, reg := range registrations {
		if !reg.Matches(outcome.EventType()) {
			continue
		}
		payload, err := json.Marshal(domain.DeliveryAttempt{
			RegistrationID:  reg.ID,
			RegistrationURL: reg.URL,
			Outcome:         outcome,
		})
		if err != nil {
			return fmt.Errorf("encode delivery for %s: %w", reg.URL, err)
		}
		if err := n.queue.Enqueue(ctx, domain.QueueDelivery, deliveryID(outcome, reg), payload); err != nil {
			return fmt.Errorf("%w: enqueue delivery for %s: %v", domain.ErrStorageUnavailable, reg.URL, err)
		}
		fanout++
	}

	for _, sink := range n.sinks {
		if err := sink.PublishOutcome(ctx, outcome); err != nil {
			return fmt.Errorf("%w: mirror outcome: %v", domain.ErrStorageUnavailable, err)
		}
	}

	n.log.InfoContext(ctx, "outcome_published",
		"tx_type", outcome.TxType(),
		"status", outcome.Status(),
		"callbacks", fanout,
	)
	return nil
}

// sameOutcome matches a redelivered outcome against the terminal state it
// already wrote, so an interrupted fan-out is completed on retry.
func sameOutcome(stored domain.RequestStatus, outcome domain.TxOutcome, state domain.RequestState) bool {
	common := outcome.Common()
	if stored.State != state || stored.Detail != outcome.Reason() {
		return false
	}
	return common.TxHash == "" || stored.TxHash == common.TxHash
}

func deliveryID(outcome domain.TxOutcome, reg domain.WebhookRegistration) string {
	return outcome.Key() + "|" + strconv.FormatInt(reg.ID, 10)
}
