package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/fr0stylo/txcommit/internal/app/domain"
	"github.com/fr0stylo/txcommit/internal/app/ports"
	"github.com/fr0stylo/txcommit/internal/observability"
)

const (
	allocationLeased   = "leased"
	allocationFallback = "fallback"
)

// SequenceBaseSource reports the next sequence number the chain will accept for an account.
type SequenceBaseSource interface {
	SequenceBaseFor(ctx context.Context, account string) (uint64, error)
}

// AllocatorConfig tunes sequence allocation.
type AllocatorConfig struct {
	Window       int
	LeaseTTL     time.Duration
	StoreTimeout time.Duration
	KeyPrefix    string
}

// SequenceAllocator hands out collision-free sequence numbers to concurrent submitters.
type SequenceAllocator struct {
	chain   SequenceBaseSource
	store   ports.CoordinationStore
	cfg     AllocatorConfig
	bases   singleflight.Group
	metrics *observability.PipelineMetrics
	log     *slog.Logger
}

// NewSequenceAllocator constructs an allocator over a shared coordination store.
func NewSequenceAllocator(chain SequenceBaseSource, store ports.CoordinationStore, cfg AllocatorConfig, metrics *observability.PipelineMetrics, log *slog.Logger) *SequenceAllocator {
	if cfg.Window <= 0 {
		cfg.Window = 50
	}
	if cfg.LeaseTTL <= 0 {
		cfg.LeaseTTL = 2 * time.Second
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = 500 * time.Millisecond
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "txcommit:seq"
	}
	if log == nil {
		log = slog.Default()
	}
	return &SequenceAllocator{chain: chain, store: store, cfg: cfg, metrics: metrics, log: log}
}

// Allocate returns a sequence number in [base, base+window) that no live lease
// holds, or base+window when the whole window is leased.
func (a *SequenceAllocator) Allocate(ctx context.Context, account string) (uint64, error) {
	base, err := a.sequenceBase(ctx, account)
	if err != nil {
		return 0, err
	}

	keys := make([]string, a.cfg.Window)
	for i := range keys {
		keys[i] = a.leaseKey(account, base+uint64(i))
	}

	storeCtx, cancel := context.WithTimeout(ctx, a.cfg.StoreTimeout)
	defer cancel()
	index, ok, err := a.store.LeaseFirstUnleased(storeCtx, keys, a.cfg.LeaseTTL)
	if err != nil {
		return 0, fmt.Errorf("%w: lease sequence for %s: %v", domain.ErrAllocatorUnavailable, account, err)
	}
	if !ok {
		// Numbers past the window are not leased; a concurrent caller can get the same value.
		fallback := base + uint64(a.cfg.Window)
		a.log.WarnContext(ctx, "sequence_window_exhausted",
			"account", account,
			"base", base,
			"window", a.cfg.Window,
			"fallback", fallback,
		)
		a.metrics.Allocation(ctx, allocationFallback)
		return fallback, nil
	}
	if index < 0 || index >= len(keys) {
		return 0, fmt.Errorf("%w: coordination store returned index %d for %d keys", domain.ErrAllocatorUnavailable, index, len(keys))
	}

	a.metrics.Allocation(ctx, allocationLeased)
	return base + uint64(index), nil
}

// sequenceBase collapses concurrent lookups for the same account into one chain call.
func (a *SequenceAllocator) sequenceBase(ctx context.Context, account string) (uint64, error) {
	result, err, _ := a.bases.Do("sequence_base:"+account, func() (any, error) {
		return a.chain.SequenceBaseFor(ctx, account)
	})
	if err != nil {
		return 0, fmt.Errorf("fetch sequence base for %s: %w", account, err)
	}
	return result.(uint64), nil
}

// leaseKey hash-tags the account so every candidate of one window lands in
// the same cluster slot.
func (a *SequenceAllocator) leaseKey(account string, sequence uint64) string {
	return a.cfg.KeyPrefix + ":{" + account + "}:" + strconv.FormatUint(sequence, 10)
}
