package ports

import (
	"context"

	"github.com/fr0stylo/txcommit/internal/app/domain"
)

// WatchStore is the durable set of transactions awaiting a terminal state.
type WatchStore interface {
	Watch(ctx context.Context, tx domain.SubmittedTransaction) error
	ListWatched(ctx context.Context) ([]domain.SubmittedTransaction, error)
	Checkpoint(ctx context.Context, txHash string, checkedThrough uint64) error
	Unwatch(ctx context.Context, txHash string) error
}

// CursorStore persists scanner progress.
type CursorStore interface {
	LoadCursor(ctx context.Context, name string) (uint64, bool, error)
	SaveCursor(ctx context.Context, name string, block uint64) error
}

// RequestStatusStore tracks the externally visible state of accepted requests.
type RequestStatusStore interface {
	RecordAccepted(ctx context.Context, referenceID string) error
	// Transition moves a request to state unless it is already terminal and
	// returns the stored status after the attempt.
	Transition(ctx context.Context, referenceID string, state domain.RequestState, txHash, detail string) (domain.RequestStatus, error)
	GetStatus(ctx context.Context, referenceID string) (domain.RequestStatus, error)
}

// RegistrationStore reads webhook registrations.
type RegistrationStore interface {
	ListRegistrations(ctx context.Context, eventType string) ([]domain.WebhookRegistration, error)
	GetRegistration(ctx context.Context, id int64) (domain.WebhookRegistration, error)
}

// DeliveryLog records callback delivery results.
type DeliveryLog interface {
	RecordDelivery(ctx context.Context, record domain.DeliveryRecord) error
}
