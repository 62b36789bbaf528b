package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/fr0stylo/txcommit/internal/app/domain"
	"github.com/fr0stylo/txcommit/internal/app/ports"
	"github.com/fr0stylo/txcommit/internal/observability"
)

// FinalityCursor names the scan progress cursor.
const FinalityCursor = "finality"

// BlockSource is the part of the chain client the tracker reads.
type BlockSource interface {
	CurrentBlock(ctx context.Context) (domain.BlockRef, error)
	EventsAt(ctx context.Context, blockNumber uint64) ([]domain.ChainEvent, error)
}

// TrackerConfig tunes block scanning.
type TrackerConfig struct {
	ScanInterval     time.Duration
	MaxBlocksPerScan int
	Clock            clock.Clock
}

// FinalityTracker watches submitted transactions across their mortality window
// until each one is finalized, failed or expired.
type FinalityTracker struct {
	chain   BlockSource
	watches ports.WatchStore
	cursors ports.CursorStore
	queue   ports.Queue
	decoder OutcomeDecoder
	cfg     TrackerConfig
	metrics *observability.PipelineMetrics
	log     *slog.Logger

	scanMu sync.Mutex
}

// NewFinalityTracker constructs a tracker that publishes outcomes onto notify-ready.
func NewFinalityTracker(chain BlockSource, watches ports.WatchStore, cursors ports.CursorStore, queue ports.Queue, cfg TrackerConfig, metrics *observability.PipelineMetrics, log *slog.Logger) *FinalityTracker {
	if cfg.ScanInterval <= 0 {
		cfg.ScanInterval = 3 * time.Second
	}
	if cfg.MaxBlocksPerScan <= 0 {
		cfg.MaxBlocksPerScan = 256
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if log == nil {
		log = slog.Default()
	}
	return &FinalityTracker{
		chain:   chain,
		watches: watches,
		cursors: cursors,
		queue:   queue,
		cfg:     cfg,
		metrics: metrics,
		log:     log,
	}
}

// Watch adds tx to the durable watch set.
func (t *FinalityTracker) Watch(ctx context.Context, tx domain.SubmittedTransaction) error {
	if err := t.watches.Watch(ctx, tx); err != nil {
		return fmt.Errorf("%w: watch %s: %v", domain.ErrStorageUnavailable, tx.TxHash, err)
	}
	return nil
}

// HandleWatch is the finality-watch handler.
func (t *FinalityTracker) HandleWatch(ctx context.Context, item ports.QueueItem) error {
	var tx domain.SubmittedTransaction
	if err := json.Unmarshal(item.Payload, &tx); err != nil {
		return fmt.Errorf("%w: decode submitted transaction %s: %v", domain.ErrMalformedEvent, item.ID, err)
	}
	return t.Watch(withPipelineFields(ctx, tx.ReferenceID, tx.TxHash, ""), tx)
}

// Run scans on every tick until ctx is cancelled.
func (t *FinalityTracker) Run(ctx context.Context) {
	ticker := t.cfg.Clock.Ticker(t.cfg.ScanInterval)
	defer ticker.Stop()
	for {
		if _, err := t.ScanOnce(ctx); err != nil && ctx.Err() == nil {
			t.log.WarnContext(ctx, "finality_scan_failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// ScanOnce inspects the next range of blocks for every watched transaction and
// returns how many reached a terminal outcome.
func (t *FinalityTracker) ScanOnce(ctx context.Context) (int, error) {
	t.scanMu.Lock()
	defer t.scanMu.Unlock()

	watched, err := t.watches.ListWatched(ctx)
	if err != nil {
		return 0, fmt.Errorf("list watched: %w", err)
	}
	head, err := t.chain.CurrentBlock(ctx)
	if err != nil {
		return 0, fmt.Errorf("current block: %w", err)
	}
	if len(watched) == 0 {
		return 0, t.cursors.SaveCursor(ctx, FinalityCursor, head.Number)
	}

	sort.Slice(watched, func(i, j int) bool {
		if watched[i].BirthBlock != watched[j].BirthBlock {
			return watched[i].BirthBlock < watched[j].BirthBlock
		}
		return watched[i].TxHash < watched[j].TxHash
	})

	resolved := 0
	pending := make([]*domain.SubmittedTransaction, 0, len(watched))
	checked := make(map[string]uint64, len(watched))
	for i := range watched {
		tx := &watched[i]
		if tx.NextBlock() > tx.DeathBlock {
			// Checked through death on an earlier pass but never resolved.
			if err := t.resolve(ctx, *tx, t.expired(*tx)); err != nil {
				return resolved, err
			}
			resolved++
			continue
		}
		pending = append(pending, tx)
		checked[tx.TxHash] = tx.CheckedThrough
	}
	if len(pending) == 0 {
		return resolved, t.cursors.SaveCursor(ctx, FinalityCursor, head.Number)
	}

	from := pending[0].NextBlock()
	for _, tx := range pending[1:] {
		if next := tx.NextBlock(); next < from {
			from = next
		}
	}
	if from > head.Number {
		return resolved, nil
	}
	to := from + uint64(t.cfg.MaxBlocksPerScan) - 1
	if to > head.Number {
		to = head.Number
	}

	var scanErr error
	scanned := from - 1
	for b := from; b <= to && len(pending) > 0; b++ {
		if !anyDue(pending, b) {
			scanned = b
			continue
		}
		events, err := t.chain.EventsAt(ctx, b)
		if err != nil {
			scanErr = fmt.Errorf("events at %d: %w", b, err)
			break
		}
		grouped := domain.EventsFor(events)
		block := domain.BlockRef{Number: b}
		if b == head.Number {
			block.Hash = head.Hash
		}

		remaining := pending[:0]
		for _, tx := range pending {
			if tx.NextBlock() > b {
				remaining = append(remaining, tx)
				continue
			}
			txEvents, included := grouped[tx.TxHash]
			switch {
			case included:
				outcome := t.decode(ctx, *tx, txEvents, block)
				if err := t.resolve(ctx, *tx, outcome); err != nil {
					scanErr = err
					remaining = append(remaining, tx)
					continue
				}
				resolved++
			case b >= tx.DeathBlock:
				if err := t.resolve(ctx, *tx, t.expired(*tx)); err != nil {
					scanErr = err
					remaining = append(remaining, tx)
					continue
				}
				resolved++
			default:
				tx.CheckedThrough = b
				remaining = append(remaining, tx)
			}
		}
		pending = remaining
		if scanErr != nil {
			break
		}
		scanned = b
	}

	for _, tx := range pending {
		if tx.CheckedThrough == checked[tx.TxHash] {
			continue
		}
		if err := t.watches.Checkpoint(ctx, tx.TxHash, tx.CheckedThrough); err != nil {
			return resolved, fmt.Errorf("checkpoint %s: %w", tx.TxHash, err)
		}
	}
	if scanned >= from {
		if err := t.cursors.SaveCursor(ctx, FinalityCursor, scanned); err != nil {
			return resolved, fmt.Errorf("save cursor: %w", err)
		}
	}
	return resolved, scanErr
}

func anyDue(pending []*domain.SubmittedTransaction, block uint64) bool {
	for _, tx := range pending {
		if tx.NextBlock() <= block && block <= tx.DeathBlock {
			return true
		}
	}
	return false
}

func (t *FinalityTracker) decode(ctx context.Context, tx domain.SubmittedTransaction, events []domain.ChainEvent, block domain.BlockRef) domain.TxOutcome {
	outcome, err := t.decoder.Decode(tx, events, block)
	if err == nil {
		return outcome
	}
	t.log.ErrorContext(withPipelineFields(ctx, tx.ReferenceID, tx.TxHash, ""), "outcome_decode_failed",
		"tx_type", tx.TxType,
		"block", block.Number,
		"events", len(events),
		"error", err,
	)
	return domain.NewFailedOutcome(tx.TxType, domain.OutcomeCommon{
		ReferenceID: tx.ReferenceID,
		ProviderID:  tx.ProviderID,
		MsaID:       tx.MsaID,
		TxHash:      tx.TxHash,
		Block:       block,
	}, err.Error()).WithItems(tx.ItemReferenceIDs)
}

func (t *FinalityTracker) expired(tx domain.SubmittedTransaction) domain.TxOutcome {
	return domain.NewExpiredOutcome(tx.TxType, domain.OutcomeCommon{
		ReferenceID: tx.ReferenceID,
		ProviderID:  tx.ProviderID,
		MsaID:       tx.MsaID,
		TxHash:      tx.TxHash,
	}).WithItems(tx.ItemReferenceIDs)
}

// resolve publishes outcome before dropping tx from the watch set.
func (t *FinalityTracker) resolve(ctx context.Context, tx domain.SubmittedTransaction, outcome domain.TxOutcome) error {
	ctx = withPipelineFields(ctx, tx.ReferenceID, tx.TxHash, "")
	payload, err := json.Marshal(outcome)
	if err != nil {
		return fmt.Errorf("encode outcome %s: %w", tx.TxHash, err)
	}
	if err := t.queue.Enqueue(ctx, domain.QueueNotifyReady, outcome.Key(), payload); err != nil {
		return fmt.Errorf("enqueue outcome %s: %w", tx.TxHash, err)
	}
	if err := t.watches.Unwatch(ctx, tx.TxHash); err != nil {
		return fmt.Errorf("unwatch %s: %w", tx.TxHash, err)
	}
	t.metrics.Outcome(ctx, string(tx.TxType), string(outcome.Status()))
	t.log.InfoContext(ctx, "transaction_resolved",
		"tx_type", tx.TxType,
		"status", outcome.Status(),
		"block", outcome.Common().Block.Number,
	)
	return nil
}
