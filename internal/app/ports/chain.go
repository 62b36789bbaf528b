package ports

import (
	"context"
	"time"

	"github.com/fr0stylo/txcommit/internal/app/domain"
)

// ChainClient is the black box view of the chain node used by the pipeline.
type ChainClient interface {
	Submit(ctx context.Context, call domain.SignedCall) (string, error)
	CurrentBlock(ctx context.Context) (domain.BlockRef, error)
	EventsAt(ctx context.Context, blockNumber uint64) ([]domain.ChainEvent, error)
	SequenceBaseFor(ctx context.Context, account string) (uint64, error)
	MeterPayment(ctx context.Context, call domain.Call, payer string) (domain.SignedCall, error)
}

// CoordinationStore is shared state for sequence leases.
type CoordinationStore interface {
	// LeaseFirstUnleased atomically leases the first key without a live lease and
	// returns its index. ok is false when every key is leased.
	LeaseFirstUnleased(ctx context.Context, keys []string, ttl time.Duration) (index int, ok bool, err error)
}

// Signer owns the payer key used to sign submissions.
type Signer interface {
	Account() string
	Sign(payload []byte) ([]byte, error)
}

// ContentStore is a content addressed blob store.
type ContentStore interface {
	Put(ctx context.Context, data []byte) (string, error)
	Get(ctx context.Context, contentID string) ([]byte, error)
}
