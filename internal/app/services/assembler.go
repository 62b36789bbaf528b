package services

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"

	"github.com/fr0stylo/txcommit/internal/app/domain"
	"github.com/fr0stylo/txcommit/internal/observability"
)

// ErrAssemblerClosed is returned by Add after Close.
var ErrAssemblerClosed = errors.New("batch assembler closed")

const (
	sealByCount    = "count"
	sealByTimer    = "timer"
	sealByShutdown = "shutdown"
)

// BatchHandoff receives each sealed batch exactly once.
type BatchHandoff func(ctx context.Context, batch domain.Batch) error

// AssemblerConfig bounds batches by count and age.
type AssemblerConfig struct {
	MaxItems   int
	Interval   time.Duration
	ProviderID string
	Clock      clock.Clock
}

type openBatch struct {
	batch   domain.Batch
	waiters []func(error)
	timer   *clock.Timer
	sealed  bool
}

// BatchAssembler accumulates write requests per stream into sealed batches.
type BatchAssembler struct {
	mu      sync.Mutex
	open    map[string]*openBatch
	closed  bool
	flights sync.WaitGroup

	cfg     AssemblerConfig
	handoff BatchHandoff
	metrics *observability.PipelineMetrics
	log     *slog.Logger
}

// NewBatchAssembler constructs an assembler that passes sealed batches to handoff.
func NewBatchAssembler(cfg AssemblerConfig, handoff BatchHandoff, metrics *observability.PipelineMetrics, log *slog.Logger) *BatchAssembler {
	if cfg.MaxItems <= 0 {
		cfg.MaxItems = 100
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Second
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if log == nil {
		log = slog.Default()
	}
	return &BatchAssembler{
		open:    make(map[string]*openBatch),
		cfg:     cfg,
		handoff: handoff,
		metrics: metrics,
		log:     log,
	}
}

// Add appends req to the open batch of its stream. done is called once the
// batch holding req has been handed off, with the handoff error if any.
func (a *BatchAssembler) Add(ctx context.Context, req domain.WriteRequest, done func(error)) error {
	key := req.StreamKey

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return ErrAssemblerClosed
	}
	ob := a.open[key]
	if ob == nil {
		ob = a.openLocked(key)
	}
	if i := indexOfItem(ob.batch.Items, req.ID); i >= 0 {
		// Redelivered item already waiting in this batch.
		ob.waiters = append(ob.waiters, done)
		a.mu.Unlock()
		return nil
	}
	ob.batch.Items = append(ob.batch.Items, req)
	ob.waiters = append(ob.waiters, done)

	var full *openBatch
	if len(ob.batch.Items) >= a.cfg.MaxItems {
		a.sealLocked(key, ob)
		full = ob
	}
	a.mu.Unlock()

	if full != nil {
		a.handOff(context.WithoutCancel(ctx), full, sealByCount)
	}
	return nil
}

func (a *BatchAssembler) openLocked(key string) *openBatch {
	ob := &openBatch{batch: domain.Batch{
		ID:                 uuid.NewString(),
		StreamKey:          key,
		OpenedAt:           a.cfg.Clock.Now().UTC(),
		MaxItems:           a.cfg.MaxItems,
		MaxIntervalSeconds: int(a.cfg.Interval / time.Second),
		ProviderID:         a.cfg.ProviderID,
	}}
	a.open[key] = ob
	ob.timer = a.cfg.Clock.AfterFunc(a.cfg.Interval, func() {
		a.sealOnTimer(key, ob)
	})
	return ob
}

// sealLocked moves ob from open to sealed. The caller holds a.mu and must hand ob off.
func (a *BatchAssembler) sealLocked(key string, ob *openBatch) {
	ob.sealed = true
	if ob.timer != nil {
		ob.timer.Stop()
	}
	if a.open[key] == ob {
		delete(a.open, key)
	}
	ob.batch.SealedAt = a.cfg.Clock.Now().UTC()
	a.flights.Add(1)
}

func (a *BatchAssembler) sealOnTimer(key string, ob *openBatch) {
	a.mu.Lock()
	if ob.sealed || a.open[key] != ob {
		a.mu.Unlock()
		return
	}
	a.sealLocked(key, ob)
	a.mu.Unlock()

	a.handOff(context.Background(), ob, sealByTimer)
}

func (a *BatchAssembler) handOff(ctx context.Context, ob *openBatch, trigger string) {
	defer a.flights.Done()

	ctx = withPipelineFields(ctx, ob.batch.ID, "", ob.batch.StreamKey)
	err := a.handoff(ctx, ob.batch)
	if err != nil {
		a.log.ErrorContext(ctx, "batch_handoff_failed",
			"batch_id", ob.batch.ID,
			"trigger", trigger,
			"items", len(ob.batch.Items),
			"error", err,
		)
	} else {
		a.metrics.BatchSealed(ctx, trigger, len(ob.batch.Items))
		a.log.InfoContext(ctx, "batch_sealed",
			"batch_id", ob.batch.ID,
			"trigger", trigger,
			"items", len(ob.batch.Items),
		)
	}
	for _, done := range ob.waiters {
		if done != nil {
			done(err)
		}
	}
}

// Close seals and hands off every open batch, then waits for in-flight
// handoffs or ctx, whichever ends first.
func (a *BatchAssembler) Close(ctx context.Context) error {
	a.mu.Lock()
	a.closed = true
	pending := make([]*openBatch, 0, len(a.open))
	for key, ob := range a.open {
		a.sealLocked(key, ob)
		pending = append(pending, ob)
	}
	a.mu.Unlock()

	for _, ob := range pending {
		a.handOff(ctx, ob, sealByShutdown)
	}

	drained := make(chan struct{})
	go func() {
		a.flights.Wait()
		close(drained)
	}()
	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// OpenStreams lists streams with an unsealed batch.
func (a *BatchAssembler) OpenStreams() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	streams := make([]string, 0, len(a.open))
	for key := range a.open {
		streams = append(streams, key)
	}
	sort.Strings(streams)
	return streams
}

func indexOfItem(items []domain.WriteRequest, id string) int {
	for i, item := range items {
		if item.ID == id {
			return i
		}
	}
	return -1
}
