package ports

import (
	"context"

	"github.com/fr0stylo/txcommit/internal/app/domain"
)

// CallbackSender posts one outcome to one registered endpoint and returns the HTTP status.
type CallbackSender interface {
	Send(ctx context.Context, registration domain.WebhookRegistration, deliveryID string, outcome domain.TxOutcome) (int, error)
}

// OutcomeSink receives a copy of every terminal outcome.
type OutcomeSink interface {
	PublishOutcome(ctx context.Context, outcome domain.TxOutcome) error
}
